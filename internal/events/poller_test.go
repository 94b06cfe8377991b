package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

var eventColumns = []string{"id", "aggregate_id", "event_type", "payload", "created_at"}

func TestPublishBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(1, 11, models.EventOrderPlaced, []byte(`{"order_id":11}`), now).
			AddRow(2, 12, models.EventOrderPlaced, []byte(`{"order_id":12}`), now))
	mock.ExpectExec("UPDATE outbox_events SET published_at").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	writer := &fakeWriter{}
	poller := NewPoller(db, writer, config.EventsConfig{BatchSize: 10}, nil, zap.NewNop())

	n, err := poller.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, writer.msgs, 2)
	assert.Equal(t, "11", string(writer.msgs[0].Key))
	assert.JSONEq(t, `{"order_id":11}`, string(writer.msgs[0].Value))
	assert.Equal(t, "event_type", writer.msgs[0].Headers[0].Key)
	assert.Equal(t, models.EventOrderPlaced, string(writer.msgs[0].Headers[0].Value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatchKeepsEventsOnBrokerError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(1, 11, models.EventOrderPlaced, []byte(`{}`), time.Now()))
	mock.ExpectRollback()

	writer := &fakeWriter{err: errors.New("broker down")}
	poller := NewPoller(db, writer, config.EventsConfig{}, nil, zap.NewNop())

	n, err := poller.PublishBatch(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBatchNothingPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnRows(sqlmock.NewRows(eventColumns))
	mock.ExpectCommit()

	writer := &fakeWriter{}
	n, err := NewPoller(db, writer, config.EventsConfig{}, nil, zap.NewNop()).PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsOnCancel(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPoller(db, &fakeWriter{}, config.EventsConfig{PollInterval: time.Hour}, nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
