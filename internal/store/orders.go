package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const orderColumns = `
	id, user_id, cart_id, order_number, status, total,
	full_name, email, phone, address_line1, address_line2,
	city, state, postal_code, country, created_at, updated_at, version`

func scanOrder(row rowScanner, o *models.Order) error {
	return row.Scan(
		&o.ID, &o.UserID, &o.CartID, &o.OrderNumber, &o.Status, &o.Total,
		&o.FullName, &o.Email, &o.Phone, &o.AddressLine1, &o.AddressLine2,
		&o.City, &o.State, &o.PostalCode, &o.Country,
		&o.CreatedAt, &o.UpdatedAt, &o.Version,
	)
}

// GetOrder loads an order with its frozen line items.
func GetOrder(ctx context.Context, db database.DBTX, id int64) (*models.Order, error) {
	return loadOrder(ctx, db, `WHERE id = $1`, id)
}

// GetOrderForUser hides orders of other users behind ErrOrderNotFound.
func GetOrderForUser(ctx context.Context, db database.DBTX, userID, id int64) (*models.Order, error) {
	return loadOrder(ctx, db, `WHERE id = $1 AND user_id = $2`, id, userID)
}

func loadOrder(ctx context.Context, db database.DBTX, where string, args ...any) (*models.Order, error) {
	order := &models.Order{}
	row := db.QueryRowContext(ctx, `SELECT`+orderColumns+` FROM orders `+where, args...)
	if err := scanOrder(row, order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := listOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func listOrderItems(ctx context.Context, db database.DBTX, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.title, oi.unit_price, oi.quantity, oi.created_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductTitle,
			&it.UnitPrice, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// ListOrdersCursor returns a user's orders newest first, limit at a time,
// without line items. Pass the previous page's NextCursor to continue.
func ListOrdersCursor(ctx context.Context, db database.DBTX, userID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cursor: %v", database.ErrInvalidInput, err)
	}

	// One extra row tells whether another page exists.
	rows, err := db.QueryContext(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`,
		userID, after.CreatedAt, after.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	page := &CursorPage[models.Order]{Items: []models.Order{}}
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		page.Items = append(page.Items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.HasMore = true
		if limit > 0 {
			last := page.Items[limit-1]
			page.NextCursor = OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		}
	}
	return page, nil
}

// UpdateOrderStatus moves an order to status if it is still at version.
// A stale version yields ErrOptimisticLockFailed.
func UpdateOrderStatus(ctx context.Context, db database.DBTX, id int64, status string, version int) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown order status %q", database.ErrInvalidInput, status)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`,
		status, id, version)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return database.ErrOrderNotFound
	}
	return database.ErrOptimisticLockFailed
}
