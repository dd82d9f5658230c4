// Package checkout drives one checkout attempt from form fill to a terminal
// placed or failed state.
//
// An Attempt is short-lived: created fresh per checkout, never persisted,
// discarded once it reaches Placed or a terminal failure. It reads cart
// state, calls the gateway to create orders and payment intents, blocks on
// the external payment widget, and on verified payment instructs the cart
// orchestrator to clear.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/cart"
	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/payment"
)

// Draft is the per-attempt form state. Line items are captured from the
// cart mirror at placement time; prices are never sent, the backend
// reprices every line.
type Draft struct {
	ShippingAddress model.Address
	PaymentMethod   model.PaymentMethod
	CouponCode      string
}

// Deps are the collaborators one attempt needs.
type Deps struct {
	Gateway gateway.Gateway
	Cart    *cart.Orchestrator
	Widget  payment.Widget
	Logger  *slog.Logger

	// PaymentKeyID is the widget client identifier. Its absence is a
	// deployment misconfiguration detected at checkout time only: COD-only
	// stores run without it.
	PaymentKeyID string
	Currency     string
	StoreName    string
}

// Attempt is one user-initiated pass through the checkout flow.
type Attempt struct {
	ID string

	deps Deps

	mu       sync.Mutex
	status   Status
	err      error
	terminal bool
	orderID  int64
	pending  *model.PendingPaymentOrder
}

// NewAttempt creates an attempt in the Filling state.
func NewAttempt(deps Deps) *Attempt {
	return &Attempt{
		ID:     uuid.NewString(),
		deps:   deps,
		status: StatusFilling,
	}
}

// Status returns the current phase.
func (a *Attempt) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Err returns the failure that moved the attempt to Failed (or back to
// Filling), if any.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// OrderID returns the backend order id once the attempt is Placed.
func (a *Attempt) OrderID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderID
}

// Pending returns the payment order awaiting widget completion, if the
// attempt is in that window.
func (a *Attempt) Pending() *model.PendingPaymentOrder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Terminal reports whether the attempt may not return to Filling: either it
// is Placed, or it failed in a way retrying cannot fix (payment
// misconfiguration, failed verification).
func (a *Attempt) Terminal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status.IsTerminal() || a.terminal
}

// Place runs the whole flow for the draft. It returns the placed order id,
// or an error describing where the flow stopped. On validation failure and
// on widget dismissal/failure the attempt returns to Filling and may be
// driven again with a corrected draft; terminal failures may not.
func (a *Attempt) Place(ctx context.Context, draft *Draft) (int64, error) {
	if err := a.transition(StatusValidating); err != nil {
		return 0, err
	}

	if err := ValidateAddress(&draft.ShippingAddress); err != nil {
		a.backToFilling(err)
		return 0, err
	}

	items := a.lineItems()
	if len(items) == 0 {
		err := model.NewValidationError("cart", "cart is empty")
		a.backToFilling(err)
		return 0, err
	}

	if err := a.transition(StatusValid); err != nil {
		return 0, err
	}

	switch draft.PaymentMethod {
	case model.PaymentCOD:
		return a.placeCOD(ctx, draft, items)
	case model.PaymentOnline:
		return a.placeOnline(ctx, draft, items)
	default:
		err := model.NewValidationError("payment_method", "must be cod or online")
		a.backToFilling(err)
		return 0, err
	}
}

// placeCOD creates the order directly and finalizes.
func (a *Attempt) placeCOD(ctx context.Context, draft *Draft, items []model.LineItem) (int64, error) {
	if err := a.transition(StatusPlacingOrder); err != nil {
		return 0, err
	}

	order, err := a.deps.Gateway.CreateOrder(ctx, &gateway.OrderRequest{
		Items:           items,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   model.PaymentCOD,
		CouponCode:      draft.CouponCode,
	})
	if err != nil {
		a.fail(err, false)
		return 0, err
	}

	return a.finalize(ctx, order.ID)
}

// placeOnline runs payment-intent creation, the widget handoff, and
// verification.
func (a *Attempt) placeOnline(ctx context.Context, draft *Draft, items []model.LineItem) (int64, error) {
	if a.deps.PaymentKeyID == "" {
		// Deployment misconfiguration: terminal, not retryable.
		err := model.NewPaymentConfigError("payment widget key id is not configured")
		a.fail(err, true)
		return 0, err
	}

	if err := a.transition(StatusCreatingPaymentIntent); err != nil {
		return 0, err
	}

	pending, err := a.deps.Gateway.CreatePaymentOrder(ctx, &gateway.PaymentOrderRequest{
		Amount:          a.deps.Cart.Subtotal(),
		Currency:        a.deps.Currency,
		Items:           items,
		ShippingAddress: draft.ShippingAddress,
		CouponCode:      draft.CouponCode,
	})
	if err != nil {
		a.fail(err, false)
		return 0, err
	}
	a.mu.Lock()
	a.pending = pending
	a.mu.Unlock()
	a.deps.Logger.Info("payment intent created",
		slog.String("attempt", a.ID),
		slog.String("gateway_order_id", pending.GatewayOrderID),
		slog.String("amount", model.FormatMinor(pending.Amount)),
		slog.String("currency", pending.Currency))

	if err := a.transition(StatusAwaitingPaymentWidget); err != nil {
		return 0, err
	}

	result, err := a.deps.Widget.Open(ctx, payment.Options{
		KeyID:          a.deps.PaymentKeyID,
		GatewayOrderID: pending.GatewayOrderID,
		Amount:         pending.Amount,
		Currency:       pending.Currency,
		StoreName:      a.deps.StoreName,
		Email:          draft.ShippingAddress.Email,
		Phone:          draft.ShippingAddress.Phone,
	})
	if err != nil {
		// Dismissal or widget-reported failure: no money moved, the cart is
		// untouched and the backend is not contacted.
		if errors.Is(err, payment.ErrWidgetDismissed) || errors.Is(err, payment.ErrWidgetFailed) {
			a.backToFilling(err)
			return 0, err
		}
		a.fail(err, true)
		return 0, err
	}

	if err := a.transition(StatusVerifyingPayment); err != nil {
		return 0, err
	}

	// Funds may have moved; verification is called exactly once. A retried
	// verification against the payment gateway can double-process depending
	// on backend idempotency, which this client cannot assume.
	if err := a.deps.Gateway.VerifyPayment(ctx, &gateway.PaymentVerification{
		GatewayOrderID: result.GatewayOrderID,
		PaymentID:      result.PaymentID,
		Signature:      result.Signature,
		DBOrderID:      pending.DBOrderID,
	}); err != nil {
		a.deps.Logger.Error("payment verification failed",
			slog.String("attempt", a.ID),
			slog.String("gateway_order_id", result.GatewayOrderID),
			slog.Any("error", err))
		verr := model.NewPaymentVerificationError()
		a.fail(verr, true)
		return 0, verr
	}

	return a.finalize(ctx, pending.DBOrderID)
}

// finalize clears the cart and lands in Placed. The clear's backend failure
// is swallowed inside the cart orchestrator: a stale server cart never
// blocks a completed purchase.
func (a *Attempt) finalize(ctx context.Context, orderID int64) (int64, error) {
	if err := a.transition(StatusFinalizing); err != nil {
		return 0, err
	}

	a.deps.Cart.Clear(ctx)

	a.mu.Lock()
	a.orderID = orderID
	a.mu.Unlock()
	if err := a.transition(StatusPlaced); err != nil {
		return 0, err
	}

	a.deps.Logger.Info("order placed",
		slog.String("attempt", a.ID),
		slog.Int64("order_id", orderID))
	return orderID, nil
}

// lineItems snapshots the cart mirror as order lines: variant and quantity
// only.
func (a *Attempt) lineItems() []model.LineItem {
	snap := a.deps.Cart.Snapshot()
	if snap.Cart == nil {
		return nil
	}
	items := make([]model.LineItem, 0, len(snap.Cart.Items))
	for _, item := range snap.Cart.Items {
		items = append(items, model.LineItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return items
}

func (a *Attempt) transition(to Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !CanTransitionTo(a.status, to) {
		return ErrIllegalTransition
	}
	a.status = to
	if to != StatusFailed {
		a.err = nil
	}
	return nil
}

// backToFilling records a retryable failure and reopens the form.
func (a *Attempt) backToFilling(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusFilling
	a.err = err
	a.pending = nil
}

func (a *Attempt) fail(err error, terminal bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusFailed
	a.err = err
	a.terminal = terminal
}

// Retry returns a failed attempt to Filling for another pass. Terminal
// failures stay failed.
func (a *Attempt) Retry() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.terminal || a.status.IsTerminal() {
		return ErrIllegalTransition
	}
	if !CanTransitionTo(a.status, StatusFilling) {
		return ErrIllegalTransition
	}
	a.status = StatusFilling
	a.err = nil
	a.pending = nil
	return nil
}
