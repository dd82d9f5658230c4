package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapter_InitialSignedOutPrecedesSignIn(t *testing.T) {
	provider := NewFakeProvider()
	// Session resolved before the adapter even starts.
	provider.SignIn(&User{UID: "u1", Email: "a@b.com"}, "tok")

	adapter := NewAdapter(provider, testLogger())
	var events []EventKind
	adapter.Subscribe(func(ev Event) { events = append(events, ev.Kind) })

	adapter.Start(context.Background(), &gateway.Mock{})
	defer adapter.Stop()

	if len(events) != 2 {
		t.Fatalf("got %d events %v, want 2", len(events), events)
	}
	if events[0] != EventSignedOut {
		t.Errorf("first event = %q, want %q", events[0], EventSignedOut)
	}
	if events[1] != EventSignedIn {
		t.Errorf("second event = %q, want %q", events[1], EventSignedIn)
	}
}

func TestAdapter_InitialSignedOutEmittedOnce(t *testing.T) {
	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())
	var events []EventKind
	adapter.Subscribe(func(ev Event) { events = append(events, ev.Kind) })

	adapter.Start(context.Background(), &gateway.Mock{})
	defer adapter.Stop()

	if len(events) != 1 || events[0] != EventSignedOut {
		t.Fatalf("got events %v, want exactly one signed_out", events)
	}
	if adapter.Session() != nil {
		t.Error("Session() non-nil before any sign-in")
	}
}

func TestAdapter_VerifyAndSync(t *testing.T) {
	var synced *gateway.ProfileSyncRequest
	gw := &gateway.Mock{
		VerifyUserFunc: func(ctx context.Context) (*model.Session, error) {
			return &model.Session{UserID: "42", DisplayName: "Backend Name"}, nil
		},
		SyncProfileFunc: func(ctx context.Context, req *gateway.ProfileSyncRequest) error {
			synced = req
			return nil
		},
	}

	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())
	var signedIn *model.Session
	adapter.Subscribe(func(ev Event) {
		if ev.Kind == EventSignedIn {
			signedIn = ev.Session
		}
	})
	adapter.Start(context.Background(), gw)
	defer adapter.Stop()

	provider.SignIn(&User{
		UID:         "uid-1",
		Email:       "shopper@example.com",
		PhoneNumber: "9876543210",
		DisplayName: "Provider Name",
	}, "tok")

	if signedIn == nil {
		t.Fatal("no signed_in event published")
	}
	if signedIn.UserID != "42" {
		t.Errorf("UserID = %q, want backend id 42", signedIn.UserID)
	}
	// Backend fields win; provider fills the gaps.
	if signedIn.DisplayName != "Backend Name" {
		t.Errorf("DisplayName = %q, want backend value", signedIn.DisplayName)
	}
	if signedIn.Email != "shopper@example.com" {
		t.Errorf("Email = %q, want provider fallback", signedIn.Email)
	}
	if synced == nil || synced.PhoneNumber != "9876543210" {
		t.Errorf("profile sync request = %+v, want provider phone", synced)
	}
	if got := adapter.Session(); got == nil || got.UserID != "42" {
		t.Errorf("Session() = %+v, want verified session", got)
	}
}

func TestAdapter_BackendUnknownUserDestroysProviderSession(t *testing.T) {
	gw := &gateway.Mock{
		VerifyUserFunc: func(ctx context.Context) (*model.Session, error) {
			return nil, model.NewBackendError(404, "user not found")
		},
	}

	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())
	var mismatch *Event
	adapter.Subscribe(func(ev Event) {
		if ev.Kind == EventMismatch {
			cp := ev
			mismatch = &cp
		}
	})
	adapter.Start(context.Background(), gw)
	defer adapter.Stop()

	provider.SignIn(&User{UID: "ghost"}, "tok")

	if mismatch == nil {
		t.Fatal("no identity_mismatch event published")
	}
	if !errors.Is(mismatch.Err, model.ErrIdentityMismatch) {
		t.Errorf("mismatch err = %v, want ErrIdentityMismatch", mismatch.Err)
	}
	if provider.SignOuts != 1 {
		t.Errorf("provider SignOuts = %d, want 1", provider.SignOuts)
	}
	if adapter.Session() != nil {
		t.Error("Session() non-nil after mismatch")
	}
}

func TestAdapter_TransientVerifyFailureKeepsProviderSession(t *testing.T) {
	gw := &gateway.Mock{
		VerifyUserFunc: func(ctx context.Context) (*model.Session, error) {
			return nil, model.NewBackendError(500, "")
		},
	}

	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())
	var failed *Event
	adapter.Subscribe(func(ev Event) {
		if ev.Kind == EventSignedOut && ev.Err != nil {
			cp := ev
			failed = &cp
		}
	})
	adapter.Start(context.Background(), gw)
	defer adapter.Stop()

	provider.SignIn(&User{UID: "u1"}, "tok")

	if failed == nil {
		t.Fatal("no signed_out event with error published")
	}
	if !errors.Is(failed.Err, model.ErrBackend) {
		t.Errorf("err = %v, want ErrBackend", failed.Err)
	}
	if provider.SignOuts != 0 {
		t.Errorf("provider SignOuts = %d, want 0 on transient failure", provider.SignOuts)
	}
	// The provider session survives; a later retry can still verify.
	if provider.CurrentUser() == nil {
		t.Error("provider user destroyed by transient failure")
	}
}

func TestAdapter_Token(t *testing.T) {
	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())

	if _, err := adapter.Token(context.Background()); !errors.Is(err, model.ErrNotAuthenticated) {
		t.Errorf("Token() signed out err = %v, want ErrNotAuthenticated", err)
	}

	provider.SignIn(&User{UID: "u1"}, "fresh-token")
	tok, err := adapter.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok != "fresh-token" {
		t.Errorf("Token() = %q, want provider token", tok)
	}
}

func TestAdapter_SignOutPublishesEvent(t *testing.T) {
	provider := NewFakeProvider()
	adapter := NewAdapter(provider, testLogger())
	adapter.Start(context.Background(), &gateway.Mock{})
	defer adapter.Stop()

	provider.SignIn(&User{UID: "u1"}, "tok")
	if adapter.Session() == nil {
		t.Fatal("no session after sign-in")
	}

	var events []EventKind
	adapter.Subscribe(func(ev Event) { events = append(events, ev.Kind) })

	if err := adapter.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if adapter.Session() != nil {
		t.Error("Session() non-nil after sign-out")
	}
	if len(events) != 1 || events[0] != EventSignedOut {
		t.Errorf("got events %v, want one signed_out", events)
	}
}
