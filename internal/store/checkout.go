package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CheckoutRequest converts an open cart into an order. A zero CartID selects
// the user's open cart.
type CheckoutRequest struct {
	Identity models.Identity
	CartID   int64
	Shipping models.ShippingInfo
}

type orderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderPlacedPayload struct {
	OrderID     int64             `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      int64             `json:"user_id"`
	Total       decimal.Decimal   `json:"total"`
	Items       []orderPlacedItem `json:"items"`
}

func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// shippingFor fills the contact fields the visitor left empty from their
// profile.
func shippingFor(user *models.User, in models.ShippingInfo) models.ShippingInfo {
	out := in
	out.FullName = strings.TrimSpace(out.FullName)
	out.Email = strings.TrimSpace(out.Email)
	if out.FullName == "" {
		out.FullName = user.Name
	}
	if out.FullName == "" {
		out.FullName = user.Email
	}
	if out.Email == "" {
		out.Email = user.Email
	}
	return out
}

// lockCheckoutCart locks the cart being checked out and checks it belongs to
// the user and is still open.
func lockCheckoutCart(ctx context.Context, tx *sql.Tx, userID, cartID int64) (*models.Cart, error) {
	var row *sql.Row
	if cartID > 0 {
		row = tx.QueryRowContext(ctx,
			`SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`,
			cartID)
	} else {
		row = tx.QueryRowContext(ctx,
			`SELECT `+cartColumns+` FROM carts WHERE user_id = $1 AND checked_out = FALSE FOR UPDATE`,
			userID)
	}

	cart := &models.Cart{}
	if err := scanCart(row, cart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if cartID > 0 {
				return nil, database.ErrCartNotFound
			}
			return nil, database.ErrCartCheckedOut
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	if cart.UserID == nil || *cart.UserID != userID {
		return nil, database.ErrCartNotFound
	}
	if cart.CheckedOut {
		return nil, database.ErrCartCheckedOut
	}

	return cart, nil
}

// Checkout places an order for the items in the user's open cart. Prices are
// frozen on the order lines, stock is decremented and clamped at zero, the
// cart is closed and an order.placed event is queued, all in one serializable
// transaction. A second checkout of the same cart fails with
// ErrCartCheckedOut.
func Checkout(ctx context.Context, db *sql.DB, req CheckoutRequest) (*models.Order, error) {
	if !req.Identity.Authenticated() {
		return nil, database.ErrUnauthorized
	}

	user, err := GetUser(ctx, db, req.Identity.UserID)
	if err != nil {
		return nil, err
	}
	shipping := shippingFor(user, req.Shipping)

	var order *models.Order
	err = database.WithRetry(ctx, db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		cart, err := lockCheckoutCart(ctx, tx, user.ID, req.CartID)
		if err != nil {
			return err
		}

		items, err := listCartItems(ctx, tx, cart.ID, " FOR UPDATE OF p")
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return database.ErrEmptyCart
		}

		total := models.CartTotal(items)
		order = &models.Order{
			UserID:       user.ID,
			CartID:       cart.ID,
			OrderNumber:  generateOrderNumber(time.Now()),
			Status:       models.OrderStatusPending,
			Total:        total,
			FullName:     shipping.FullName,
			Email:        shipping.Email,
			Phone:        shipping.Phone,
			AddressLine1: shipping.AddressLine1,
			AddressLine2: shipping.AddressLine2,
			City:         shipping.City,
			State:        shipping.State,
			PostalCode:   shipping.PostalCode,
			Country:      shipping.Country,
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, cart_id, order_number, status, total,
			                     full_name, email, phone, address_line1, address_line2,
			                     city, state, postal_code, country, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW(), 1)
			 RETURNING id, created_at, updated_at, version`,
			order.UserID, order.CartID, order.OrderNumber, order.Status, order.Total,
			order.FullName, order.Email, order.Phone, order.AddressLine1, order.AddressLine2,
			order.City, order.State, order.PostalCode, order.Country,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
		if err != nil {
			if database.IsUniqueViolation(err, "orders_cart_id_key") {
				return database.ErrCartCheckedOut
			}
			return fmt.Errorf("create order: %w", err)
		}

		payload := orderPlacedPayload{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
		}

		order.Items = make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			orderItem := models.OrderItem{
				OrderID:      order.ID,
				ProductID:    item.ProductID,
				ProductTitle: item.Product.Title,
				UnitPrice:    item.Product.DiscountedPrice(),
				Quantity:     item.Quantity,
			}

			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, unit_price, quantity, created_at)
				 VALUES ($1, $2, $3, $4, NOW())
				 RETURNING id, created_at`,
				orderItem.OrderID, orderItem.ProductID, orderItem.UnitPrice, orderItem.Quantity,
			).Scan(&orderItem.ID, &orderItem.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			order.Items = append(order.Items, orderItem)
			payload.Items = append(payload.Items, orderPlacedItem{
				ProductID: orderItem.ProductID,
				Quantity:  orderItem.Quantity,
				UnitPrice: orderItem.UnitPrice,
			})
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE carts SET checked_out = TRUE, updated_at = NOW() WHERE id = $1`,
			cart.ID)
		if err != nil {
			return fmt.Errorf("close cart: %w", err)
		}

		return InsertOutboxEvent(ctx, tx, order.ID, models.EventOrderPlaced, payload)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// decrementStock never fails for lack of stock; the level is clamped at zero.
func decrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = GREATEST(stock - $1, 0),
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}
