package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var productRowColumns = []string{
	"id", "category_id", "name", "title", "slug", "description", "price",
	"discount_percent", "stock", "thumbnail", "is_active", "created_at", "updated_at",
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows(productRowColumns)
}

func addProductRow(rows *sqlmock.Rows, id int64, title, price string, discount, stock int, category string) *sqlmock.Rows {
	return rows.AddRow(id, 1, category, title, "p-"+title, "", price, discount, stock, "", true, fixedTime, fixedTime)
}

var userRowColumns = []string{"id", "email", "name", "created_at", "updated_at", "version"}

var cartRowColumns = []string{"id", "user_id", "session_key", "checked_out", "created_at", "updated_at"}
