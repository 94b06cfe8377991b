package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const userColumns = `id, email, name, created_at, updated_at, version`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt, &user.Version)
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a customer. Emails are stored lower-cased and must be
// unique.
func CreateUser(ctx context.Context, db database.DBTX, email, name string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", database.ErrInvalidInput)
	}

	user, err := scanUser(db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, created_at, updated_at, version)
		VALUES ($1, $2, NOW(), NOW(), 1)
		RETURNING `+userColumns,
		email, strings.TrimSpace(name)))
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create user %s: %w", email, database.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db database.DBTX, id int64) (*models.User, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func GetUserByEmail(ctx context.Context, db database.DBTX, email string) (*models.User, error) {
	return getUser(ctx, db, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

func getUser(ctx context.Context, db database.DBTX, query string, arg any) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
