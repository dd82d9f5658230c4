// Package gateway is the typed client over the remote commerce backend.
// One method per resource operation; every method translates an in-process
// call into an HTTP request against /api/v1 and maps non-2xx responses to the
// model error taxonomy. The gateway never retries: the backend applies its own
// idempotency guards for mutating calls, and retry decisions belong to callers.
package gateway

import (
	"context"

	"storefront/internal/model"
)

// TokenSource supplies a fresh bearer token per call. Tokens are short-lived
// identity-provider credentials and are deliberately not cached across calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Gateway abstracts the commerce backend. Orchestrators depend on this
// interface so tests can substitute a mock.
type Gateway interface {
	// === Identity ===

	// VerifyUser checks that the bearer identity exists at the backend.
	// A 404 means the identity-provider account has no store account.
	VerifyUser(ctx context.Context) (*model.Session, error)

	// SyncProfile upserts profile fields for the bearer identity.
	SyncProfile(ctx context.Context, req *ProfileSyncRequest) error

	// Register creates a store account, via bearer token or raw credentials.
	Register(ctx context.Context, req *RegisterRequest) error

	// === Catalog (public, no auth) ===

	Banners(ctx context.Context) ([]model.Banner, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Products(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	Product(ctx context.Context, slug string) (*model.Product, error)

	// === Catalog administration ===

	CreateCategory(ctx context.Context, cat *model.Category) (*model.Category, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	// === Cart ===
	// Mutations return no cart payload on purpose: the cart orchestrator
	// always follows a mutation with a full GetCart resynchronization so the
	// mirror reflects server-side price and stock recalculation.

	GetCart(ctx context.Context) (*model.Cart, error)
	AddCartItem(ctx context.Context, variantID int64, quantity int) error
	UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, cartItemID int64) error
	ClearCart(ctx context.Context) error

	// === Orders ===

	CreateOrder(ctx context.Context, req *OrderRequest) (*model.Order, error)
	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id int64) (*model.Order, error)

	// === Coupons ===

	CreateCoupon(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	ValidateCoupon(ctx context.Context, code string, cartTotal int64) (*model.CouponResult, error)

	// === Payments ===

	// CreatePaymentOrder reserves a payment-gateway order before the widget
	// is shown. Distinct from the backend's own order record (DBOrderID).
	CreatePaymentOrder(ctx context.Context, req *PaymentOrderRequest) (*model.PendingPaymentOrder, error)

	// VerifyPayment submits the widget's payment identifiers for server-side
	// signature verification. Callers must never retry this automatically.
	VerifyPayment(ctx context.Context, req *PaymentVerification) error

	// === Wishlist ===

	Wishlist(ctx context.Context) ([]model.WishlistItem, error)
	AddWishlistItem(ctx context.Context, productID int64) error
	RemoveWishlistItem(ctx context.Context, productID int64) error

	// === Reviews ===

	CreateReview(ctx context.Context, r *model.Review) (*model.Review, error)
	ProductReviews(ctx context.Context, productID int64) ([]model.Review, error)
}

// ProfileSyncRequest upserts identity-provider profile fields into the
// backend's user record.
type ProfileSyncRequest struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// RegisterRequest creates a store account. With a bearer token present the
// credential fields are ignored by the backend.
type RegisterRequest struct {
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// OrderRequest is the COD order-creation payload. Items carry variant and
// quantity only; the server reprices.
type OrderRequest struct {
	Items           []model.LineItem    `json:"items"`
	ShippingAddress model.Address       `json:"shipping_address"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	CouponCode      string              `json:"coupon_code,omitempty"`
}

// PaymentOrderRequest creates a payment-gateway order for the online path.
type PaymentOrderRequest struct {
	Amount          int64            `json:"amount"` // minor units
	Currency        string           `json:"currency"`
	Items           []model.LineItem `json:"items"`
	ShippingAddress model.Address    `json:"shipping_address"`
	CouponCode      string           `json:"coupon_code,omitempty"`
}

// PaymentVerification carries the three widget-reported payment identifiers
// plus the locally tracked backend order id.
type PaymentVerification struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
	DBOrderID      int64  `json:"db_order_id"`
}
