package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// JSON field names follow the legacy storefront contract (camelCase,
// "_id" primary keys) so existing clients keep working unchanged.

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse carries the id under both keys the legacy client uses.
type UserResponse struct {
	ID       int64  `json:"id"`
	LegacyID int64  `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
}

// --- Product ---

type UpdateProductRequest struct {
	Name         string          `json:"name" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Brand        string          `json:"brand"`
	Category     string          `json:"category"`
	CountInStock int             `json:"countInStock" binding:"min=0"`
	Description  string          `json:"description"`
}

type ProductResponse struct {
	ID           int64               `json:"_id"`
	UserID       *int64              `json:"user"`
	Name         string              `json:"name"`
	Image        string              `json:"image"`
	Brand        string              `json:"brand"`
	Category     string              `json:"category"`
	Description  string              `json:"description"`
	Rating       decimal.NullDecimal `json:"rating"`
	NumReviews   int                 `json:"numReviews"`
	Price        decimal.Decimal     `json:"price"`
	CountInStock int                 `json:"countInStock"`
	CreatedAt    time.Time           `json:"createdAt"`
	Reviews      []ReviewResponse    `json:"reviews"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// --- Review ---

type SubmitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID        int64     `json:"_id"`
	ProductID *int64    `json:"product"`
	UserID    *int64    `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// --- Order ---

type PlaceOrderRequest struct {
	OrderItems      []OrderItemRequest     `json:"orderItems"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TaxPrice        decimal.Decimal        `json:"taxPrice"`
	ShippingPrice   decimal.Decimal        `json:"shippingPrice"`
	TotalPrice      decimal.Decimal        `json:"totalPrice"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
}

// OrderItemRequest.Price is accepted for contract compatibility; the
// persisted unit price is snapshotted from the product row instead.
type OrderItemRequest struct {
	Product int64           `json:"product"`
	Qty     int             `json:"qty" binding:"required,min=1"`
	Price   decimal.Decimal `json:"price"`
}

type ShippingAddressRequest struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// ShippingAddress is either a ShippingAddressResponse or the literal
// false when the order has none, as the legacy serializer emitted.
type OrderResponse struct {
	ID              int64               `json:"_id"`
	User            *UserResponse       `json:"user"`
	OrderItems      []OrderItemResponse `json:"orderItems"`
	ShippingAddress any                 `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	TaxPrice        decimal.Decimal     `json:"taxPrice"`
	ShippingPrice   decimal.Decimal     `json:"shippingPrice"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	IsPaid          bool                `json:"isPaid"`
	PaidAt          *time.Time          `json:"paidAt"`
	IsDelivered     bool                `json:"isDelivered"`
	DeliveredAt     *time.Time          `json:"deliveredAt"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type OrderItemResponse struct {
	ID        int64           `json:"_id"`
	ProductID *int64          `json:"product"`
	OrderID   *int64          `json:"order"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

type ShippingAddressResponse struct {
	ID            int64           `json:"_id"`
	OrderID       int64           `json:"order"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	PostalCode    string          `json:"postalCode"`
	Country       string          `json:"country"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
}
