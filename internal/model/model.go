package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64
	Username  string
	Email     string
	Password  string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

// DisplayName is the name snapshotted onto reviews and shown in user
// summaries. Falls back to the email when no name was set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Product's owning user is nullable: deleting the owner nulls the
// reference instead of cascading. Rating stays null until the first
// review lands.
type Product struct {
	ID           int64
	UserID       *int64
	Name         string
	Image        string
	Brand        string
	Category     string
	Description  string
	Rating       decimal.NullDecimal
	NumReviews   int
	Price        decimal.Decimal
	CountInStock int
	CreatedAt    time.Time
	Reviews      []Review
}

type Review struct {
	ID        int64
	ProductID *int64
	UserID    *int64
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Order invariant: PaidAt is non-nil iff IsPaid, likewise
// DeliveredAt/IsDelivered. Items, ShippingAddress and User are loaded
// relations, not columns.
type Order struct {
	ID            int64
	UserID        *int64
	PaymentMethod string
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
	TotalPrice    decimal.Decimal
	IsPaid        bool
	PaidAt        *time.Time
	IsDelivered   bool
	DeliveredAt   *time.Time
	CreatedAt     time.Time

	Items           []OrderItem
	ShippingAddress *ShippingAddress
	User            *User
}

// OrderItem snapshots the product's name, price and image at placement
// time so later catalog edits don't rewrite order history.
type OrderItem struct {
	ID        int64
	ProductID *int64
	OrderID   *int64
	Name      string
	Qty       int
	Price     decimal.Decimal
	Image     string
}

type ShippingAddress struct {
	ID            int64
	OrderID       int64
	Address       string
	City          string
	PostalCode    string
	Country       string
	ShippingPrice decimal.Decimal
}

// OrderPlacedMessage is published after a successful order commit.
type OrderPlacedMessage struct {
	EventID    string  `json:"event_id"`
	OrderID    int64   `json:"order_id"`
	UserID     int64   `json:"user_id"`
	TotalPrice string  `json:"total_price"`
	ProductIDs []int64 `json:"product_ids"`
}

// PaymentMessage is what the external payment provider drops on the
// payments queue once a charge clears.
type PaymentMessage struct {
	OrderID      int64  `json:"order_id"`
	ProviderTxID string `json:"provider_tx_id"`
}
