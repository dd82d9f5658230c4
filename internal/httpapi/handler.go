// Package httpapi is the REST and MCP façade over the storefront
// orchestrators. It owns no domain state beyond the registry of in-flight
// checkout attempts; everything else is delegated.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/gateway"
	"storefront/internal/identity"
	"storefront/internal/model"
	"storefront/internal/payment"
)

// MaxRequestBodySize caps JSON request bodies at 1MB.
const MaxRequestBodySize = 1 << 20

// Options configure the façade.
type Options struct {
	Gateway  gateway.Gateway
	Cart     *cart.Orchestrator
	Identity *identity.Adapter
	Widget   *payment.HostedWidget
	Logger   *slog.Logger

	PaymentKeyID string
	Currency     string
	StoreName    string
}

// Handler serves the storefront API.
type Handler struct {
	opts Options

	mu       sync.Mutex
	attempts map[string]*checkout.Attempt
}

// New creates a Handler over the given collaborators.
func New(opts Options) *Handler {
	return &Handler{
		opts:     opts,
		attempts: make(map[string]*checkout.Attempt),
	}
}

// RegisterRoutes mounts every route on the mux using Go 1.22+ method
// patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Session
	mux.HandleFunc("GET /api/session", h.handleSession)
	mux.HandleFunc("POST /api/session/signout", h.handleSignOut)
	mux.HandleFunc("POST /api/register", h.handleRegister)

	// Catalog (public)
	mux.HandleFunc("GET /api/banners", h.handleBanners)
	mux.HandleFunc("GET /api/categories", h.handleCategories)
	mux.HandleFunc("GET /api/products", h.handleProducts)
	mux.HandleFunc("GET /api/products/{slug}", h.handleProduct)

	// Cart
	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.handleUpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.handleRemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)

	// Checkout
	mux.HandleFunc("POST /api/checkout", h.handleCheckout)
	mux.HandleFunc("GET /api/checkout/{id}", h.handleCheckoutStatus)
	mux.HandleFunc("POST /api/payments/callback", h.handlePaymentCallback)

	// Orders
	mux.HandleFunc("GET /api/orders", h.handleOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.handleOrder)

	// Coupons
	mux.HandleFunc("POST /api/coupons/validate", h.handleValidateCoupon)

	// Wishlist
	mux.HandleFunc("GET /api/wishlist", h.handleWishlist)
	mux.HandleFunc("POST /api/wishlist/{productId}", h.handleAddWishlist)
	mux.HandleFunc("DELETE /api/wishlist/{productId}", h.handleRemoveWishlist)

	// Reviews
	mux.HandleFunc("POST /api/reviews", h.handleCreateReview)
	mux.HandleFunc("GET /api/reviews/product/{productId}", h.handleProductReviews)

	// Admin
	mux.HandleFunc("POST /api/admin/categories", h.handleCreateCategory)
	mux.HandleFunc("POST /api/admin/products", h.handleCreateProduct)
	mux.HandleFunc("POST /api/admin/coupons", h.handleCreateCoupon)

	// MCP transport
	mux.Handle("/mcp", h.NewMCPHandler())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// === Session ===

type sessionResponse struct {
	SignedIn bool           `json:"signed_in"`
	Session  *model.Session `json:"session,omitempty"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.opts.Identity.Session()
	h.writeJSON(w, http.StatusOK, sessionResponse{SignedIn: sess != nil, Session: sess})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Identity.SignOut(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.opts.Cart.Reset()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req gateway.RegisterRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if err := h.opts.Gateway.Register(r.Context(), &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// === Catalog ===

func (h *Handler) handleBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.opts.Gateway.Banners(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, banners)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.opts.Gateway.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ProductFilter{
		Category: q.Get("category"),
		Featured: q.Get("featured") == "true",
		OnSale:   q.Get("on_sale") == "true",
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			h.writeError(w, model.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	products, err := h.opts.Gateway.Products(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.opts.Gateway.Product(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

// === Cart ===

type cartResponse struct {
	State   cart.State     `json:"state"`
	Cart    *model.Cart    `json:"cart,omitempty"`
	Count   int            `json:"count"`
	Changes []mirrorNotice `json:"changes,omitempty"`
}

type mirrorNotice struct {
	Kind      string `json:"kind"`
	VariantID int64  `json:"variant_id"`
	Name      string `json:"name,omitempty"`
	OldQty    int    `json:"old_quantity,omitempty"`
	NewQty    int    `json:"new_quantity,omitempty"`
	OldPrice  int64  `json:"old_unit_price,omitempty"`
	NewPrice  int64  `json:"new_unit_price,omitempty"`
}

func (h *Handler) cartSnapshot() cartResponse {
	snap := h.opts.Cart.Snapshot()
	resp := cartResponse{State: snap.State, Cart: snap.Cart, Count: h.opts.Cart.Count()}
	for _, c := range snap.Changes {
		resp.Changes = append(resp.Changes, mirrorNotice{
			Kind:      string(c.Kind),
			VariantID: c.VariantID,
			Name:      c.Name,
			OldQty:    c.OldQuantity,
			NewQty:    c.NewQuantity,
			OldPrice:  c.OldUnitPrice,
			NewPrice:  c.NewUnitPrice,
		})
	}
	return resp
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Cart.Refresh(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

type addCartItemRequest struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if err := h.opts.Cart.Add(r.Context(), req.VariantID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if err := h.opts.Cart.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.opts.Cart.Remove(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.opts.Cart.Clear(r.Context())
	h.writeJSON(w, http.StatusOK, h.cartSnapshot())
}

// === Checkout ===

type checkoutRequest struct {
	ShippingAddress model.Address       `json:"shipping_address"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	CouponCode      string              `json:"coupon_code,omitempty"`
}

type checkoutResponse struct {
	AttemptID   string          `json:"attempt_id"`
	Status      checkout.Status `json:"status"`
	OrderID     int64           `json:"order_id,omitempty"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	Error       string          `json:"error,omitempty"`
	Terminal    bool            `json:"terminal,omitempty"`
}

func (h *Handler) newAttempt() *checkout.Attempt {
	return checkout.NewAttempt(checkout.Deps{
		Gateway:      h.opts.Gateway,
		Cart:         h.opts.Cart,
		Widget:       h.opts.Widget,
		Logger:       h.opts.Logger,
		PaymentKeyID: h.opts.PaymentKeyID,
		Currency:     h.opts.Currency,
		StoreName:    h.opts.StoreName,
	})
}

// handleCheckout starts one checkout attempt. The COD path completes within
// the request. The online path parks the attempt on the payment widget and
// returns 202: the client polls the attempt while the user pays, and the
// provider callback releases it.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	draft := &checkout.Draft{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
	}
	attempt := h.newAttempt()

	switch req.PaymentMethod {
	case model.PaymentCOD:
		orderID, err := attempt.Place(r.Context(), draft)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, checkoutResponse{
			AttemptID: attempt.ID,
			Status:    attempt.Status(),
			OrderID:   orderID,
		})

	case model.PaymentOnline:
		h.mu.Lock()
		h.attempts[attempt.ID] = attempt
		h.mu.Unlock()

		// The widget wait outlives this request; the attempt runs detached
		// from the request's cancellation and is resolved by the payment
		// callback.
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if _, err := attempt.Place(ctx, draft); err != nil {
				h.opts.Logger.Warn("online checkout attempt stopped",
					slog.String("attempt", attempt.ID),
					slog.Any("error", err))
			}
		}()
		h.writeJSON(w, http.StatusAccepted, checkoutResponse{
			AttemptID: attempt.ID,
			Status:    attempt.Status(),
		})

	default:
		h.writeError(w, model.NewValidationError("payment_method", "must be cod or online"))
	}
}

func (h *Handler) handleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	attempt, ok := h.attempts[r.PathValue("id")]
	h.mu.Unlock()
	if !ok {
		h.writeError(w, &model.Error{
			Code: "ATTEMPT_NOT_FOUND", Message: "no such checkout attempt", StatusCode: http.StatusNotFound,
		})
		return
	}

	resp := checkoutResponse{
		AttemptID: attempt.ID,
		Status:    attempt.Status(),
		OrderID:   attempt.OrderID(),
		Terminal:  attempt.Terminal(),
	}
	if err := attempt.Err(); err != nil {
		resp.Error = err.Error()
	}
	if pending := attempt.Pending(); pending != nil && attempt.Status() == checkout.StatusAwaitingPaymentWidget {
		resp.CheckoutURL = h.opts.Widget.CheckoutURL(payment.Options{
			KeyID:          h.opts.PaymentKeyID,
			GatewayOrderID: pending.GatewayOrderID,
			Amount:         pending.Amount,
			Currency:       pending.Currency,
			StoreName:      h.opts.StoreName,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)

	// Attempts are single-use: once a poll has seen the outcome there is
	// nothing left to serve, and the registry must not grow with every
	// checkout in a long-lived process.
	if resp.Status == checkout.StatusPlaced || resp.Status == checkout.StatusFailed {
		h.mu.Lock()
		delete(h.attempts, attempt.ID)
		h.mu.Unlock()
	}
}

type paymentCallbackRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Status         string `json:"status"` // paid | failed | dismissed
	PaymentID      string `json:"payment_id,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

func (h *Handler) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if req.GatewayOrderID == "" {
		h.writeError(w, model.NewValidationError("gateway_order_id", "must not be empty"))
		return
	}

	var resolved bool
	switch req.Status {
	case "paid":
		if req.PaymentID == "" || req.Signature == "" {
			h.writeError(w, model.NewValidationError("payment_id", "paid callback requires payment_id and signature"))
			return
		}
		resolved = h.opts.Widget.Complete(req.GatewayOrderID, req.PaymentID, req.Signature)
	case "failed":
		resolved = h.opts.Widget.Fail(req.GatewayOrderID)
	case "dismissed":
		resolved = h.opts.Widget.Dismiss(req.GatewayOrderID)
	default:
		h.writeError(w, model.NewValidationError("status", "must be paid, failed, or dismissed"))
		return
	}

	if !resolved {
		h.writeError(w, &model.Error{
			Code: "NO_PENDING_PAYMENT", Message: "no attempt is waiting on that gateway order", StatusCode: http.StatusNotFound,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

// === Orders ===

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.opts.Gateway.Orders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.opts.Gateway.Order(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// === Coupons ===

type validateCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		h.writeError(w, model.NewValidationError("code", "must not be empty"))
		return
	}
	result, err := h.opts.Gateway.ValidateCoupon(r.Context(), req.Code, h.opts.Cart.Subtotal())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// === Wishlist ===

func (h *Handler) handleWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.opts.Gateway.Wishlist(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "productId")
	if !ok {
		return
	}
	if err := h.opts.Gateway.AddWishlistItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "productId")
	if !ok {
		return
	}
	if err := h.opts.Gateway.RemoveWishlistItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// === Reviews ===

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var review model.Review
	if !h.readJSON(w, r, &review) {
		return
	}
	created, err := h.opts.Gateway.CreateReview(r.Context(), &review)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "productId")
	if !ok {
		return
	}
	reviews, err := h.opts.Gateway.ProductReviews(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reviews)
}

// === Admin ===

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category model.Category
	if !h.readJSON(w, r, &category) {
		return
	}
	created, err := h.opts.Gateway.CreateCategory(r.Context(), &category)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var product model.Product
	if !h.readJSON(w, r, &product) {
		return
	}
	created, err := h.opts.Gateway.CreateProduct(r.Context(), &product)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var coupon model.Coupon
	if !h.readJSON(w, r, &coupon) {
		return
	}
	created, err := h.opts.Gateway.CreateCoupon(r.Context(), &coupon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// === Helpers ===

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, model.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, model.NewValidationError("body", "invalid JSON request body"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.opts.Logger.Error("response encode failed", slog.Any("error", err))
	}
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps the typed error taxonomy onto HTTP. Unknown errors become
// opaque 500s; their detail goes to the log, not the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.Error
	if !errors.As(err, &apiErr) {
		switch {
		case errors.Is(err, payment.ErrWidgetDismissed), errors.Is(err, payment.ErrWidgetFailed):
			apiErr = &model.Error{Code: "PAYMENT_NOT_COMPLETED", Message: err.Error(), StatusCode: http.StatusConflict}
		case errors.Is(err, checkout.ErrIllegalTransition):
			apiErr = &model.Error{Code: "ILLEGAL_TRANSITION", Message: err.Error(), StatusCode: http.StatusConflict}
		default:
			h.opts.Logger.Error("internal error", slog.Any("error", err))
			apiErr = &model.Error{Code: "INTERNAL_ERROR", Message: "an internal error occurred", StatusCode: http.StatusInternalServerError}
		}
	}
	h.writeJSON(w, apiErr.StatusCode, errorResponse{Error: errorBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Field:   apiErr.Field,
	}})
}
