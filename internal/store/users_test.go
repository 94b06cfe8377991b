package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserNormalizesEmail(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ada@example.com", "Ada").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(3, "ada@example.com", "Ada", fixedTime, fixedTime, 1))

	user, err := CreateUser(context.Background(), db, "  Ada@Example.COM ", " Ada ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserRequiresEmail(t *testing.T) {
	db, mock := newMock(t)

	_, err := CreateUser(context.Background(), db, "   ", "Nobody")
	assert.ErrorIs(t, err, database.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := CreateUser(context.Background(), db, "ada@example.com", "Ada")
	assert.ErrorIs(t, err, database.ErrAlreadyExists)
	assert.Equal(t, database.KindConflict, database.KindOf(err))
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := GetUserByEmail(context.Background(), db, "Ghost@example.com")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
