package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// resolveAttempts bounds how often ResolveCart retries when its read loses a
// race with a concurrent insert or checkout.
const resolveAttempts = 3

const cartColumns = `id, user_id, COALESCE(session_key, ''), checked_out, created_at, updated_at`

const resolveUserCartQuery = `
	WITH ins AS (
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) WHERE user_id IS NOT NULL AND checked_out = FALSE
		DO NOTHING
		RETURNING ` + cartColumns + `
	)
	SELECT * FROM ins
	UNION ALL
	SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 AND checked_out = FALSE
	LIMIT 1`

const resolveSessionCartQuery = `
	WITH ins AS (
		INSERT INTO carts (session_key, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (session_key) WHERE session_key IS NOT NULL AND checked_out = FALSE
		DO NOTHING
		RETURNING ` + cartColumns + `
	)
	SELECT * FROM ins
	UNION ALL
	SELECT ` + cartColumns + ` FROM carts WHERE session_key = $1 AND checked_out = FALSE
	LIMIT 1`

func scanCart(row rowScanner, cart *models.Cart) error {
	var userID sql.NullInt64
	err := row.Scan(
		&cart.ID,
		&userID,
		&cart.SessionKey,
		&cart.CheckedOut,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if userID.Valid {
		id := userID.Int64
		cart.UserID = &id
	}
	return nil
}

// ResolveCart returns the open cart of identity, creating it when none exists.
// Concurrent callers for the same identity always end up with the same cart.
func ResolveCart(ctx context.Context, db database.DBTX, identity models.Identity) (*models.Cart, error) {
	var (
		query string
		arg   any
	)
	switch {
	case identity.Authenticated():
		query, arg = resolveUserCartQuery, identity.UserID
	case identity.SessionKey != "":
		query, arg = resolveSessionCartQuery, identity.SessionKey
	default:
		return nil, database.ErrUnauthorized
	}

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		cart := &models.Cart{}
		err := scanCart(db.QueryRowContext(ctx, query, arg), cart)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			if database.IsForeignKeyViolation(err) {
				return nil, database.ErrUserNotFound
			}
			return nil, fmt.Errorf("resolve cart: %w", err)
		}
	}

	return nil, fmt.Errorf("resolve cart: no open cart after %d attempts", resolveAttempts)
}

func GetCart(ctx context.Context, db database.DBTX, cartID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	err := scanCart(db.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID), cart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// lockOpenCart takes a share lock on the cart so a concurrent checkout, which
// locks it FOR UPDATE, is serialized against item changes.
func lockOpenCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	var checkedOut bool
	err := tx.QueryRowContext(ctx,
		`SELECT checked_out FROM carts WHERE id = $1 FOR SHARE`,
		cartID).Scan(&checkedOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrCartNotFound
		}
		return fmt.Errorf("lock cart %d: %w", cartID, err)
	}
	if checkedOut {
		return database.ErrCartCheckedOut
	}
	return nil
}

func touchCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// AddItem adds quantity units of an active product to an open cart. An
// existing line for the product is incremented. Quantities below one count as
// one.
func AddItem(ctx context.Context, db *sql.DB, cartID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	var item *models.CartItem
	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}

		var active bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM products WHERE id = $1`,
			productID).Scan(&active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("get product %d: %w", productID, err)
		}
		if !active {
			return database.ErrProductNotFound
		}

		item = &models.CartItem{}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, quantity, added_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT ON CONSTRAINT cart_items_cart_product_key
			 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			 RETURNING id, cart_id, product_id, quantity, added_at`,
			cartID, productID, quantity).Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// AddItemBySlug is AddItem keyed by the product's URL slug.
func AddItemBySlug(ctx context.Context, db *sql.DB, cartID int64, slug string, quantity int) (*models.CartItem, error) {
	var productID int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM products WHERE slug = $1 AND is_active`,
		slug).Scan(&productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product %q: %w", slug, err)
	}

	return AddItem(ctx, db, cartID, productID, quantity)
}

// UpdateItem sets the quantity of a line in an open cart. A quantity of zero
// or less removes the line.
func UpdateItem(ctx context.Context, db *sql.DB, cartID, itemID int64, quantity int) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockOpenCart(ctx, tx, cartID); err != nil {
			return err
		}

		var (
			result sql.Result
			err    error
		)
		if quantity <= 0 {
			result, err = tx.ExecContext(ctx,
				`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`,
				itemID, cartID)
		} else {
			result, err = tx.ExecContext(ctx,
				`UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3`,
				quantity, itemID, cartID)
		}
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrCartItemNotFound
		}

		return touchCart(ctx, tx, cartID)
	})
}

func RemoveItem(ctx context.Context, db *sql.DB, cartID, itemID int64) error {
	return UpdateItem(ctx, db, cartID, itemID, 0)
}

// listCartItems returns the lines of a cart with the products as currently
// stored. suffix is appended to the query, e.g. a locking clause.
func listCartItems(ctx context.Context, db database.DBTX, cartID int64, suffix string) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.added_at,` + productColumns + productFrom + `
		JOIN cart_items ci ON ci.product_id = p.id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id` + suffix

	rows, err := db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var (
			item models.CartItem
			p    = &item.Product
		)
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
			&p.ID,
			&p.CategoryID,
			&p.CategoryName,
			&p.Title,
			&p.Slug,
			&p.Description,
			&p.Price,
			&p.DiscountPercent,
			&p.Stock,
			&p.Thumbnail,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetCartView loads a cart with its lines and a total computed from live
// product prices.
func GetCartView(ctx context.Context, db database.DBTX, cartID int64) (*models.CartView, error) {
	cart, err := GetCart(ctx, db, cartID)
	if err != nil {
		return nil, err
	}

	items, err := listCartItems(ctx, db, cartID, "")
	if err != nil {
		return nil, err
	}

	return &models.CartView{
		Cart:  *cart,
		Items: items,
		Total: models.CartTotal(items),
	}, nil
}

// CountCartItems returns the number of lines in the open cart of identity
// without creating a cart.
func CountCartItems(ctx context.Context, db database.DBTX, identity models.Identity) (int, error) {
	var (
		query string
		arg   any
	)
	switch {
	case identity.Authenticated():
		query = `
			SELECT COUNT(ci.id)
			FROM carts c
			JOIN cart_items ci ON ci.cart_id = c.id
			WHERE c.user_id = $1 AND c.checked_out = FALSE`
		arg = identity.UserID
	case identity.SessionKey != "":
		query = `
			SELECT COUNT(ci.id)
			FROM carts c
			JOIN cart_items ci ON ci.cart_id = c.id
			WHERE c.session_key = $1 AND c.checked_out = FALSE`
		arg = identity.SessionKey
	default:
		return 0, nil
	}

	var count int
	if err := db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return count, nil
}
