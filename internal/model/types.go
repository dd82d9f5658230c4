// Package model holds the domain types shared across the storefront client.
// All JSON tags match the commerce backend's wire format (snake_case).
//
// Cart and order data is owned by the backend; what this process holds is a
// mirror copy, always refreshable and never authoritative. Prices travel in
// integer minor units (paise).
package model

import "time"

// Session is the authenticated user as seen by this process.
// Owned exclusively by the identity adapter; read-only everywhere else.
type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// CartItem is one line of the backend-owned cart.
// Invariant: Quantity >= 1. CartItemID is unique within a cart.
type CartItem struct {
	CartItemID   int64  `json:"id"`
	VariantID    int64  `json:"variant_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	Size         string `json:"size,omitempty"`
	Color        string `json:"color,omitempty"`
	UnitPrice    int64  `json:"unit_price"` // minor units
	Quantity     int    `json:"quantity"`
}

// CartSummary is derived by the backend. When present it is preferred over any
// client-computed subtotal.
type CartSummary struct {
	Subtotal  int64 `json:"subtotal"` // minor units
	ItemCount int   `json:"item_count"`
}

// Cart is the full backend cart payload: items plus optional server summary.
type Cart struct {
	Items   []CartItem   `json:"items"`
	Summary *CartSummary `json:"summary,omitempty"`
}

// Subtotal returns the server summary subtotal when present, else the client
// fallback sum over mirrored items.
func (c *Cart) Subtotal() int64 {
	if c.Summary != nil {
		return c.Summary.Subtotal
	}
	var sum int64
	for _, item := range c.Items {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	return sum
}

// Count returns the total item quantity. Always derived, never stored.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// LineItem is the order-creation shape: variant and quantity only.
// Price is never sent; the server reprices on its side.
type LineItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// PaymentMethod selects the checkout path.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Address is a shipping address in the backend's expected shape.
type Address struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// OrderStatus is an opaque display enum. The client never derives or mutates
// it locally.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPlaced     OrderStatus = "placed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is one line of a placed order, as reported by the backend.
type OrderItem struct {
	VariantID   int64  `json:"variant_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// OrderTotals are server-computed amounts in minor units.
type OrderTotals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// Order is a read-only projection from the backend.
type Order struct {
	ID              int64         `json:"id"`
	OrderNumber     string        `json:"order_number"`
	Status          OrderStatus   `json:"status"`
	Items           []OrderItem   `json:"items"`
	Totals          OrderTotals   `json:"totals"`
	ShippingAddress Address       `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   string        `json:"payment_status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// PendingPaymentOrder exists only between payment-order creation and the
// verification callback. If the process dies in that window the backend order
// stays in its own "awaiting payment" state; reconciliation is a server
// responsibility.
type PendingPaymentOrder struct {
	GatewayOrderID string `json:"gateway_order_id"`
	DBOrderID      int64  `json:"db_order_id"`
	Amount         int64  `json:"amount"` // minor units
	Currency       string `json:"currency"`
}

// === Catalog types (public endpoints) ===

// ProductVariant is a purchasable size/color combination.
type ProductVariant struct {
	ID    int64  `json:"id"`
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
	Stock int    `json:"stock"`
}

// Product is a catalog entry.
type Product struct {
	ID          int64            `json:"id"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       int64            `json:"price"` // minor units
	SalePrice   int64            `json:"sale_price,omitempty"`
	Images      []string         `json:"images,omitempty"`
	CategoryID  int64            `json:"category_id,omitempty"`
	Featured    bool             `json:"featured,omitempty"`
	OnSale      bool             `json:"on_sale,omitempty"`
	Variants    []ProductVariant `json:"variants,omitempty"`
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	Category string
	Featured bool
	OnSale   bool
	Limit    int
}

// Category groups products.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

// Banner is homepage marketing content.
type Banner struct {
	ID    int64  `json:"id"`
	Title string `json:"title,omitempty"`
	Image string `json:"image"`
	Link  string `json:"link,omitempty"`
}

// Coupon is an admin-created discount code.
type Coupon struct {
	ID           int64  `json:"id,omitempty"`
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"` // "percent" or "flat"
	Value        int64  `json:"value"`
	MinTotal     int64  `json:"min_total,omitempty"`
}

// CouponResult is the outcome of validating a code against a cart total.
type CouponResult struct {
	Valid    bool   `json:"valid"`
	Discount int64  `json:"discount"` // minor units
	Message  string `json:"message,omitempty"`
}

// Review is a product review.
type Review struct {
	ID        int64     `json:"id,omitempty"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// WishlistItem is a saved product reference.
type WishlistItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Product   *Product `json:"product,omitempty"`
}
