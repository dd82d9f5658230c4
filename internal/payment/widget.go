// Package payment wraps the external payment widget behind a blocking call.
//
// The widget is the single intentional handoff to third-party UI in the
// whole checkout flow. Its event callbacks (success, failure, dismissal) are
// folded into one Open call that returns either the three payment
// identifiers needed for verification or a typed error, so the checkout
// state machine can treat it like any other blocking step.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"storefront/internal/model"
)

var (
	// ErrWidgetDismissed means the user closed the widget without paying.
	// No money moved; no backend call is warranted.
	ErrWidgetDismissed = errors.New("payment widget dismissed")

	// ErrWidgetFailed means the widget reported a payment failure.
	ErrWidgetFailed = errors.New("payment widget reported failure")
)

// Options parameterize one widget invocation.
type Options struct {
	KeyID          string // widget client identifier from store config
	GatewayOrderID string
	Amount         int64 // minor units
	Currency       string
	StoreName      string
	Email          string
	Phone          string
}

// Result carries the identifiers the widget hands back on success. All
// three, plus the locally tracked db order id, go into the verification
// call.
type Result struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// Widget is one payment-collection round: it blocks until the user
// completes, fails, or dismisses the payment flow.
type Widget interface {
	Open(ctx context.Context, opts Options) (*Result, error)
}

// HostedWidget hands the user a hosted checkout URL and blocks until the
// payment provider's callback resolves the attempt. Complete, Fail and
// Dismiss are invoked by the callback endpoint; context cancellation while
// waiting counts as dismissal.
type HostedWidget struct {
	// CheckoutBaseURL is the provider's hosted checkout page.
	CheckoutBaseURL string

	mu      sync.Mutex
	pending map[string]chan outcome
}

type outcome struct {
	result *Result
	err    error
}

// NewHostedWidget creates a widget dispatcher with no pending attempts.
func NewHostedWidget(checkoutBaseURL string) *HostedWidget {
	return &HostedWidget{
		CheckoutBaseURL: checkoutBaseURL,
		pending:         make(map[string]chan outcome),
	}
}

// CheckoutURL builds the hosted page URL for an attempt. Shown to the user
// out-of-band (CLI prints it, the API returns it).
func (w *HostedWidget) CheckoutURL(opts Options) string {
	q := url.Values{}
	q.Set("key_id", opts.KeyID)
	q.Set("order_id", opts.GatewayOrderID)
	q.Set("amount", fmt.Sprintf("%d", opts.Amount))
	q.Set("currency", opts.Currency)
	if opts.StoreName != "" {
		q.Set("name", opts.StoreName)
	}
	return w.CheckoutBaseURL + "?" + q.Encode()
}

// Open blocks until Complete, Fail, or Dismiss is called for the attempt's
// gateway order id, or the context is cancelled.
func (w *HostedWidget) Open(ctx context.Context, opts Options) (*Result, error) {
	if opts.KeyID == "" {
		return nil, model.NewPaymentConfigError("payment widget key id is not configured")
	}

	ch := make(chan outcome, 1)
	w.mu.Lock()
	w.pending[opts.GatewayOrderID] = ch
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.pending, opts.GatewayOrderID)
		w.mu.Unlock()
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ErrWidgetDismissed
	}
}

// Complete resolves a pending attempt with the provider's identifiers.
// Returns false if no attempt is waiting on that gateway order id.
func (w *HostedWidget) Complete(gatewayOrderID, paymentID, signature string) bool {
	return w.resolve(gatewayOrderID, outcome{result: &Result{
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
		Signature:      signature,
	}})
}

// Fail resolves a pending attempt with a widget-reported payment failure.
func (w *HostedWidget) Fail(gatewayOrderID string) bool {
	return w.resolve(gatewayOrderID, outcome{err: ErrWidgetFailed})
}

// Dismiss resolves a pending attempt as closed-without-payment.
func (w *HostedWidget) Dismiss(gatewayOrderID string) bool {
	return w.resolve(gatewayOrderID, outcome{err: ErrWidgetDismissed})
}

func (w *HostedWidget) resolve(gatewayOrderID string, out outcome) bool {
	w.mu.Lock()
	ch, ok := w.pending[gatewayOrderID]
	if ok {
		delete(w.pending, gatewayOrderID)
	}
	w.mu.Unlock()
	if !ok {
		return false
	}
	ch <- out
	return true
}

// FakeWidget scripts widget outcomes for tests. Exactly one of Result or
// Err is returned from Open; Opens counts invocations and LastOptions
// records the most recent call.
type FakeWidget struct {
	Result      *Result
	Err         error
	Opens       int
	LastOptions Options
}

func (f *FakeWidget) Open(ctx context.Context, opts Options) (*Result, error) {
	f.Opens++
	f.LastOptions = opts
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result != nil {
		return f.Result, nil
	}
	return &Result{GatewayOrderID: opts.GatewayOrderID, PaymentID: "pay_fake", Signature: "sig_fake"}, nil
}
