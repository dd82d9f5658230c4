// Package cart holds the process-wide cart mirror and its mutation surface.
//
// The backend owns the cart. This orchestrator keeps a mirror copy and
// refuses to mutate it locally: every add/update/remove round-trips through
// the gateway and then re-fetches the whole cart, so server-side price and
// stock recalculation can never drift from what the client shows.
package cart

import (
	"context"
	"log/slog"
	"sync"

	"storefront/internal/gateway"
	"storefront/internal/mirror"
	"storefront/internal/model"
)

// State is the orchestrator's lifecycle phase.
type State string

const (
	// StateEmpty means no session: there is no cart to mirror.
	StateEmpty State = "empty"

	// StateLoading means the initial fetch after session acquisition is in
	// flight.
	StateLoading State = "loading"

	// StateReady means the mirror matches the last backend response.
	StateReady State = "ready"

	// StateMutating means a mutation round-trip is in flight. Consumers may
	// disable controls but must not speculate about the outcome.
	StateMutating State = "mutating"

	// StateReadyWithError means the last mutation failed; the mirror still
	// holds the last known-good snapshot and Err carries the failure.
	StateReadyWithError State = "ready_with_error"
)

// Snapshot is the published view of cart state. Cart is nil in StateEmpty.
// Changes lists the server-side adjustments observed on the last resync that
// the client's own mutation does not account for.
type Snapshot struct {
	State   State
	Cart    *model.Cart
	Changes []mirror.Change
	Err     error
}

// Orchestrator is the sole mutator of the cart mirror.
type Orchestrator struct {
	gw     gateway.Gateway
	logger *slog.Logger

	// flight serializes mutation round-trips. Overlapping quantity updates
	// against the same item would otherwise race to a lost update.
	flight sync.Mutex

	mu      sync.Mutex
	state   State
	cart    *model.Cart
	changes []mirror.Change
	err     error
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an orchestrator in the empty state.
func New(gw gateway.Gateway, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gw:     gw,
		logger: logger,
		state:  StateEmpty,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current published state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{State: o.state, Cart: o.cart, Changes: o.changes, Err: o.err}
}

// Count is the total item quantity, derived from the mirror on every call.
func (o *Orchestrator) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cart == nil {
		return 0
	}
	return o.cart.Count()
}

// Subtotal returns the cart subtotal in minor units, preferring the backend
// summary over the client-side sum.
func (o *Orchestrator) Subtotal() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cart == nil {
		return 0
	}
	return o.cart.Subtotal()
}

// Subscribe registers a snapshot callback and returns an unsubscribe
// function. Callbacks run synchronously on the mutating goroutine.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// Load performs the initial fetch after a session is acquired.
func (o *Orchestrator) Load(ctx context.Context) error {
	o.flight.Lock()
	defer o.flight.Unlock()

	o.publish(StateLoading, o.currentCart(), nil, nil)
	return o.resync(ctx, 0, "")
}

// Reset drops the mirror. Called on sign-out.
func (o *Orchestrator) Reset() {
	o.flight.Lock()
	defer o.flight.Unlock()
	o.publish(StateEmpty, nil, nil, nil)
}

// Add adds quantity units of a variant, then resyncs. The upper bound on
// quantity is server-defined; only positivity is checked here.
func (o *Orchestrator) Add(ctx context.Context, variantID int64, quantity int) error {
	if quantity < 1 {
		return model.NewValidationError("quantity", "must be a positive integer")
	}
	// Adding a variant already in the cart shows up in the diff as a quantity
	// change, not an addition.
	expected := mirror.ChangeItemAdded
	if o.hasVariant(variantID) {
		expected = mirror.ChangeQuantityChanged
	}
	return o.mutate(ctx, variantID, expected, func(ctx context.Context) error {
		return o.gw.AddCartItem(ctx, variantID, quantity)
	})
}

// UpdateQuantity sets an existing line to a new quantity. Zero is rejected:
// removal is a distinct operation, not a quantity edge case, and callers who
// mean "remove" must say so.
func (o *Orchestrator) UpdateQuantity(ctx context.Context, cartItemID int64, quantity int) error {
	if quantity < 1 {
		return model.NewValidationError("quantity", "must be at least 1; use Remove to delete a line")
	}
	return o.mutate(ctx, o.variantForLine(cartItemID), mirror.ChangeQuantityChanged, func(ctx context.Context) error {
		return o.gw.UpdateCartItem(ctx, cartItemID, quantity)
	})
}

// Remove deletes a cart line, then resyncs.
func (o *Orchestrator) Remove(ctx context.Context, cartItemID int64) error {
	return o.mutate(ctx, o.variantForLine(cartItemID), mirror.ChangeItemRemoved, func(ctx context.Context) error {
		return o.gw.RemoveCartItem(ctx, cartItemID)
	})
}

// Clear empties the cart. The backend call is attempted but its failure is
// swallowed after logging: clearing runs right after order placement, and a
// stale server-side cart must not block the post-purchase flow. The local
// mirror is emptied either way.
func (o *Orchestrator) Clear(ctx context.Context) {
	o.flight.Lock()
	defer o.flight.Unlock()

	o.publish(StateMutating, o.currentCart(), nil, nil)

	if err := o.gw.ClearCart(ctx); err != nil {
		o.logger.Warn("cart clear failed on backend, clearing mirror anyway",
			slog.Any("error", err))
	}
	o.publish(StateReady, &model.Cart{}, nil, nil)
}

// Refresh re-fetches the cart without a preceding mutation.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.flight.Lock()
	defer o.flight.Unlock()
	return o.resync(ctx, 0, "")
}

// mutate runs one backend mutation under the single-flight guard and then
// resynchronizes the mirror from a full fetch. On failure the mirror keeps
// the last known-good snapshot and the error is both published and returned.
// expectedVariant/expectedKind name the diff entry the mutation itself will
// produce, so it is not reported back as a server-side adjustment.
func (o *Orchestrator) mutate(ctx context.Context, expectedVariant int64, expectedKind mirror.ChangeKind, op func(context.Context) error) error {
	o.flight.Lock()
	defer o.flight.Unlock()

	prev := o.currentCart()
	o.publish(StateMutating, prev, nil, nil)

	if err := op(ctx); err != nil {
		o.publish(StateReadyWithError, prev, nil, err)
		return err
	}
	return o.resync(ctx, expectedVariant, expectedKind)
}

// resync replaces the mirror with a fresh fetch and publishes the diff
// against the previous snapshot as change notices, minus the change the
// caller's own mutation accounts for. Caller holds flight.
func (o *Orchestrator) resync(ctx context.Context, expectedVariant int64, expectedKind mirror.ChangeKind) error {
	prev := o.currentCart()

	fresh, err := o.gw.GetCart(ctx)
	if err != nil {
		o.publish(StateReadyWithError, prev, nil, err)
		return err
	}

	changes := mirror.Unexpected(mirror.Diff(prev, fresh), expectedVariant, expectedKind)
	o.publish(StateReady, fresh, changes, nil)
	return nil
}

func (o *Orchestrator) currentCart() *model.Cart {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cart
}

// hasVariant reports whether the mirror holds a line for the variant.
func (o *Orchestrator) hasVariant(variantID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cart == nil {
		return false
	}
	for _, item := range o.cart.Items {
		if item.VariantID == variantID {
			return true
		}
	}
	return false
}

// variantForLine resolves a cart line ID to its variant in the current
// mirror. Returns 0 (no expectation) for unknown lines.
func (o *Orchestrator) variantForLine(cartItemID int64) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cart == nil {
		return 0
	}
	for _, item := range o.cart.Items {
		if item.CartItemID == cartItemID {
			return item.VariantID
		}
	}
	return 0
}

func (o *Orchestrator) publish(state State, cart *model.Cart, changes []mirror.Change, err error) {
	o.mu.Lock()
	o.state = state
	o.cart = cart
	o.changes = changes
	o.err = err
	subs := make([]func(Snapshot), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	snap := Snapshot{State: state, Cart: cart, Changes: changes, Err: err}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
