package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"storefront/internal/gateway"
	"storefront/internal/mirror"
	"storefront/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend is an in-memory cart the mock gateway mutates, so tests
// exercise the real mutate-then-resync round trip.
type fakeBackend struct {
	items  []model.CartItem
	nextID int64
	prices map[int64]int64 // variantID -> unit price
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 1, prices: map[int64]int64{7: 49900, 9: 12500}}
}

func (b *fakeBackend) gateway() *gateway.Mock {
	return &gateway.Mock{
		GetCartFunc: func(ctx context.Context) (*model.Cart, error) {
			items := make([]model.CartItem, len(b.items))
			copy(items, b.items)
			return &model.Cart{Items: items}, nil
		},
		AddCartItemFunc: func(ctx context.Context, variantID int64, quantity int) error {
			for i := range b.items {
				if b.items[i].VariantID == variantID {
					b.items[i].Quantity += quantity
					return nil
				}
			}
			b.items = append(b.items, model.CartItem{
				CartItemID: b.nextID,
				VariantID:  variantID,
				UnitPrice:  b.prices[variantID],
				Quantity:   quantity,
			})
			b.nextID++
			return nil
		},
		UpdateCartItemFunc: func(ctx context.Context, cartItemID int64, quantity int) error {
			for i := range b.items {
				if b.items[i].CartItemID == cartItemID {
					b.items[i].Quantity = quantity
					return nil
				}
			}
			return model.NewBackendError(404, "cart item not found")
		},
		RemoveCartItemFunc: func(ctx context.Context, cartItemID int64) error {
			for i := range b.items {
				if b.items[i].CartItemID == cartItemID {
					b.items = append(b.items[:i], b.items[i+1:]...)
					return nil
				}
			}
			return model.NewBackendError(404, "cart item not found")
		},
		ClearCartFunc: func(ctx context.Context) error {
			b.items = nil
			return nil
		},
	}
}

func TestAdd_IncreasesCountByQuantity(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := o.Count()

	if err := o.Add(ctx, 7, 3); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := o.Count(); got != before+3 {
		t.Errorf("Count = %d, want %d", got, before+3)
	}
	if snap := o.Snapshot(); snap.State != StateReady {
		t.Errorf("state = %q, want ready", snap.State)
	}
}

func TestAdd_RejectsNonPositiveQuantity(t *testing.T) {
	calls := 0
	gw := &gateway.Mock{
		AddCartItemFunc: func(ctx context.Context, variantID int64, quantity int) error {
			calls++
			return nil
		},
	}
	o := New(gw, testLogger())

	for _, qty := range []int{0, -1} {
		err := o.Add(context.Background(), 7, qty)
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Add(qty=%d) err = %v, want ErrInvalidInput", qty, err)
		}
	}
	if calls != 0 {
		t.Errorf("backend called %d times for invalid quantities, want 0", calls)
	}
}

func TestUpdateQuantity_ZeroIsNotRemoval(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Add(ctx, 7, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	itemID := o.Snapshot().Cart.Items[0].CartItemID

	err := o.UpdateQuantity(ctx, itemID, 0)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("UpdateQuantity(0) err = %v, want ErrInvalidInput", err)
	}
	// The line survives untouched.
	if got := o.Count(); got != 2 {
		t.Errorf("Count after rejected zero update = %d, want 2", got)
	}
}

func TestClear_RoundTrip(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Add(ctx, 7, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	o.Clear(ctx)

	if err := o.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := o.Snapshot()
	if len(snap.Cart.Items) != 0 {
		t.Errorf("items after clear = %d, want 0", len(snap.Cart.Items))
	}
	if snap.Cart.Summary != nil {
		t.Errorf("summary after clear = %+v, want nil", snap.Cart.Summary)
	}
	if o.Count() != 0 || o.Subtotal() != 0 {
		t.Errorf("Count/Subtotal after clear = %d/%d, want 0/0", o.Count(), o.Subtotal())
	}
}

func TestClear_SwallowsBackendFailure(t *testing.T) {
	gw := &gateway.Mock{
		ClearCartFunc: func(ctx context.Context) error {
			return model.NewBackendError(500, "")
		},
		GetCartFunc: func(ctx context.Context) (*model.Cart, error) {
			return &model.Cart{Items: []model.CartItem{{CartItemID: 1, VariantID: 7, Quantity: 1}}}, nil
		},
	}
	o := New(gw, testLogger())
	ctx := context.Background()

	if err := o.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	o.Clear(ctx)

	snap := o.Snapshot()
	if snap.State != StateReady {
		t.Errorf("state after failed clear = %q, want ready", snap.State)
	}
	if snap.Err != nil {
		t.Errorf("err after failed clear = %v, want swallowed", snap.Err)
	}
	if len(snap.Cart.Items) != 0 {
		t.Errorf("mirror not emptied after failed clear: %d items", len(snap.Cart.Items))
	}
}

func TestRemove_SecondCallFailsCleanly(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Add(ctx, 7, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := o.Add(ctx, 9, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	itemID := o.Snapshot().Cart.Items[0].CartItemID

	if err := o.Remove(ctx, itemID); err != nil {
		t.Fatalf("first Remove: %v", err)
	}

	err := o.Remove(ctx, itemID)
	var apiErr *model.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("second Remove err = %v, want backend 404", err)
	}

	// Mirror keeps the last known-good state, not a corrupted one.
	snap := o.Snapshot()
	if snap.State != StateReadyWithError {
		t.Errorf("state = %q, want ready_with_error", snap.State)
	}
	if len(snap.Cart.Items) != 1 || snap.Cart.Items[0].VariantID != 9 {
		t.Errorf("mirror = %+v, want the surviving variant-9 line", snap.Cart.Items)
	}
	if snap.Err == nil {
		t.Error("snapshot Err not surfaced")
	}
}

func TestMutationFailure_RevertsToKnownGood(t *testing.T) {
	fail := false
	gw := &gateway.Mock{
		GetCartFunc: func(ctx context.Context) (*model.Cart, error) {
			return &model.Cart{Items: []model.CartItem{{CartItemID: 1, VariantID: 7, Quantity: 2}}}, nil
		},
		AddCartItemFunc: func(ctx context.Context, variantID int64, quantity int) error {
			if fail {
				return model.NewBackendError(409, "out of stock")
			}
			return nil
		},
	}
	o := New(gw, testLogger())
	ctx := context.Background()

	if err := o.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	fail = true
	err := o.Add(ctx, 9, 1)
	if !errors.Is(err, model.ErrBackend) {
		t.Fatalf("Add err = %v, want ErrBackend", err)
	}

	snap := o.Snapshot()
	if snap.State != StateReadyWithError {
		t.Errorf("state = %q, want ready_with_error", snap.State)
	}
	if o.Count() != 2 {
		t.Errorf("Count = %d, want last known-good 2", o.Count())
	}
}

func TestResync_PublishesServerAdjustments(t *testing.T) {
	price := int64(49900)
	gw := &gateway.Mock{
		GetCartFunc: func(ctx context.Context) (*model.Cart, error) {
			return &model.Cart{Items: []model.CartItem{
				{CartItemID: 1, VariantID: 7, Quantity: 2, UnitPrice: price},
			}}, nil
		},
	}
	o := New(gw, testLogger())
	ctx := context.Background()

	if err := o.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Server repriced between fetches.
	price = 52900
	if err := o.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Changes) != 1 || snap.Changes[0].Kind != mirror.ChangePriceChanged {
		t.Fatalf("changes = %+v, want one price change", snap.Changes)
	}
	if snap.Changes[0].NewUnitPrice != 52900 {
		t.Errorf("new price = %d, want 52900", snap.Changes[0].NewUnitPrice)
	}
}

func TestMutate_ReportsOnlyUnrequestedAdjustments(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Add(ctx, 9, 1); err != nil {
		t.Fatalf("Add 9: %v", err)
	}
	if snap := o.Snapshot(); len(snap.Changes) != 0 {
		t.Fatalf("changes after own add = %+v, want none", snap.Changes)
	}

	// Server reprices the existing line while an unrelated add is in flight.
	backend.items[0].UnitPrice = 9900
	if err := o.Add(ctx, 7, 1); err != nil {
		t.Fatalf("Add 7: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Changes) != 1 {
		t.Fatalf("changes = %+v, want only the reprice", snap.Changes)
	}
	if c := snap.Changes[0]; c.Kind != mirror.ChangePriceChanged || c.VariantID != 9 {
		t.Errorf("change = %+v, want price change on variant 9", c)
	}
}

func TestSubtotal_PrefersBackendSummary(t *testing.T) {
	gw := &gateway.Mock{
		GetCartFunc: func(ctx context.Context) (*model.Cart, error) {
			return &model.Cart{
				Items:   []model.CartItem{{CartItemID: 1, VariantID: 7, Quantity: 2, UnitPrice: 49900}},
				Summary: &model.CartSummary{Subtotal: 89900, ItemCount: 2},
			}, nil
		},
	}
	o := New(gw, testLogger())

	if err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// 89900 from the summary, not 2*49900 from the lines.
	if got := o.Subtotal(); got != 89900 {
		t.Errorf("Subtotal = %d, want backend summary 89900", got)
	}
}

func TestSubscribe_SnapshotSequence(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	var states []State
	unsubscribe := o.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	if err := o.Add(ctx, 7, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	unsubscribe()
	o.Reset()

	want := []State{StateMutating, StateReady}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, states[i], want[i])
		}
	}
	if o.Snapshot().State != StateEmpty {
		t.Errorf("state after Reset = %q, want empty", o.Snapshot().State)
	}
}

func TestReset_DropsMirror(t *testing.T) {
	backend := newFakeBackend()
	o := New(backend.gateway(), testLogger())
	ctx := context.Background()

	if err := o.Add(ctx, 7, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	o.Reset()

	snap := o.Snapshot()
	if snap.State != StateEmpty || snap.Cart != nil {
		t.Errorf("snapshot after Reset = %+v, want empty state, nil cart", snap)
	}
	if o.Count() != 0 {
		t.Errorf("Count after Reset = %d, want 0", o.Count())
	}
}
