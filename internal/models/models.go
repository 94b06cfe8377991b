package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Icon      string    `json:"icon,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID              int64           `json:"id"`
	CategoryID      int64           `json:"category_id"`
	CategoryName    string          `json:"category_name,omitempty"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent"`
	Stock           int             `json:"stock"`
	Thumbnail       string          `json:"thumbnail,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ProductImage struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Path      string    `json:"path"`
	AltText   string    `json:"alt_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Cart belongs to either a user or an anonymous session key. Once CheckedOut
// is set the cart is read-only and owned by exactly one Order.
type Cart struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	SessionKey string    `json:"session_key,omitempty"`
	CheckedOut bool      `json:"checked_out"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CartItem carries the product as currently stored, so its subtotal follows
// price changes until checkout.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	Product   Product   `json:"product"`
}

type CartView struct {
	Cart  Cart            `json:"cart"`
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type Order struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	CartID       int64           `json:"cart_id"`
	OrderNumber  string          `json:"order_number"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	AddressLine1 string          `json:"address_line1"`
	AddressLine2 string          `json:"address_line2"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	PostalCode   string          `json:"postal_code"`
	Country      string          `json:"country"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
	Items        []OrderItem     `json:"items,omitempty"`
}

// OrderItem freezes the discounted unit price at order time.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	ProductTitle string          `json:"product_title,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingInfo is the contact and address data submitted at checkout. Empty
// FullName and Email fall back to the user's profile.
type ShippingInfo struct {
	FullName     string `json:"full_name" validate:"omitempty,max=160"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Phone        string `json:"phone" validate:"omitempty,max=40"`
	AddressLine1 string `json:"address_line1" validate:"omitempty,max=160"`
	AddressLine2 string `json:"address_line2" validate:"omitempty,max=160"`
	City         string `json:"city" validate:"omitempty,max=80"`
	State        string `json:"state" validate:"omitempty,max=80"`
	PostalCode   string `json:"postal_code" validate:"omitempty,max=20"`
	Country      string `json:"country" validate:"omitempty,max=60"`
}

const EventOrderPlaced = "order.placed"

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes and published asynchronously.
type OutboxEvent struct {
	ID          int64           `json:"id"`
	AggregateID int64           `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
