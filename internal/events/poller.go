// Package events relays outbox events written by checkout to Kafka.
package events

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(cfg config.EventsConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Poller publishes pending outbox events in id order. A batch is marked
// published only after the broker accepted it, so delivery is at least once.
type Poller struct {
	db        *sql.DB
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewPoller(db *sql.DB, writer MessageWriter, cfg config.EventsConfig, m *metrics.Metrics, logger *zap.Logger) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Poller{
		db:        db,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil && ctx.Err() == nil {
				p.metrics.OutboxFailed()
				p.logger.Error("publish outbox batch", zap.Error(err))
			}
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		}
	}
}

// PublishBatch sends one batch and returns the number of events published.
func (p *Poller) PublishBatch(ctx context.Context) (int, error) {
	published := 0
	err := database.WithTransaction(ctx, p.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		events, err := store.FetchUnpublishedEvents(ctx, tx, p.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(events))
		ids := make([]int64, 0, len(events))
		for _, event := range events {
			msgs = append(msgs, kafka.Message{
				Key:   []byte(strconv.FormatInt(event.AggregateID, 10)),
				Value: event.Payload,
				Time:  event.CreatedAt,
				Headers: []kafka.Header{
					{Key: "event_type", Value: []byte(event.EventType)},
					{Key: "event_id", Value: []byte(strconv.FormatInt(event.ID, 10))},
				},
			})
			ids = append(ids, event.ID)
		}

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := store.MarkEventsPublished(ctx, tx, ids); err != nil {
			return err
		}

		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		p.metrics.OutboxPublished(published)
		p.logger.Debug("published outbox events", zap.Int("count", published))
	}
	return published, nil
}
