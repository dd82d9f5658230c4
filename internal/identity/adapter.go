package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

// EventKind classifies session-state transitions.
type EventKind string

const (
	// EventSignedOut covers both the initial unauthenticated emission and
	// later sign-outs.
	EventSignedOut EventKind = "signed_out"

	// EventSignedIn is emitted once the backend has verified the provider
	// identity and the profile sync has been attempted.
	EventSignedIn EventKind = "signed_in"

	// EventMismatch means the provider session was valid but the backend has
	// no matching account. The provider session has already been destroyed;
	// the consumer should direct the user to registration.
	EventMismatch EventKind = "identity_mismatch"
)

// Event is one session-state transition.
type Event struct {
	Kind    EventKind
	Session *model.Session // non-nil only for EventSignedIn
	Err     error          // set for EventMismatch and verify failures
}

// Adapter owns the Session object. It subscribes to identity-provider
// push notifications, runs verify-and-sync against the backend on each new
// authenticated user, and publishes Events to subscribers.
//
// The adapter is also the gateway's TokenSource: tokens come straight from
// the provider, fresh per call.
type Adapter struct {
	provider Provider
	logger   *slog.Logger

	mu          sync.Mutex
	gw          gateway.Gateway
	session     *model.Session
	subs        map[int]func(Event)
	nextSub     int
	unsubscribe func()
}

var _ gateway.TokenSource = (*Adapter)(nil)

// NewAdapter creates an adapter over the given provider. The gateway is
// supplied at Start: the gateway itself needs the adapter as its token
// source, so construction is provider → adapter → gateway → Start.
func NewAdapter(provider Provider, logger *slog.Logger) *Adapter {
	return &Adapter{
		provider: provider,
		logger:   logger,
		subs:     make(map[int]func(Event)),
	}
}

// Start emits the initial unauthenticated state, then subscribes to provider
// changes. Exactly one signed-out event precedes any authenticated event, so
// consumers never make redirect decisions against an unresolved state.
func (a *Adapter) Start(ctx context.Context, gw gateway.Gateway) {
	a.mu.Lock()
	a.gw = gw
	a.mu.Unlock()

	a.publish(Event{Kind: EventSignedOut})

	a.unsubscribe = a.provider.OnChange(func(u *User) {
		a.onProviderChange(ctx, u)
	})

	// The provider may have resolved a session before we subscribed.
	if u := a.provider.CurrentUser(); u != nil {
		a.onProviderChange(ctx, u)
	}
}

// Stop detaches from the provider. In-flight verify calls discard their
// results rather than publishing after teardown.
func (a *Adapter) Stop() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Session returns the current verified session, or nil.
func (a *Adapter) Session() *model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Token implements gateway.TokenSource. Tokens are short-lived and fetched
// fresh from the provider on every call.
func (a *Adapter) Token(ctx context.Context) (string, error) {
	if a.provider.CurrentUser() == nil {
		return "", model.NewNotAuthenticatedError("token fetch")
	}
	return a.provider.Token(ctx)
}

// Subscribe registers a session-event callback and returns an unsubscribe
// function. The callback is invoked synchronously on the publishing
// goroutine.
func (a *Adapter) Subscribe(fn func(Event)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

// SignOut destroys the provider session. The resulting provider push
// notification clears the local session and publishes the signed-out event.
func (a *Adapter) SignOut(ctx context.Context) error {
	return a.provider.SignOut(ctx)
}

func (a *Adapter) onProviderChange(ctx context.Context, u *User) {
	if u == nil {
		a.mu.Lock()
		hadSession := a.session != nil
		a.session = nil
		a.mu.Unlock()
		// Start already emitted the initial signed-out state; the provider's
		// own initial nil resolution must not repeat it.
		if hadSession {
			a.publish(Event{Kind: EventSignedOut})
		}
		return
	}

	a.verifyAndSync(ctx, u)
}

// verifyAndSync checks the provider identity against the backend and, when
// known, upserts profile fields and publishes the signed-in session. A
// provider session is not trusted as proof of backend account existence: a
// backend 404 destroys the provider session and signals registration.
func (a *Adapter) verifyAndSync(ctx context.Context, u *User) {
	gw := a.gatewayRef()
	if gw == nil {
		return
	}

	backendSess, err := gw.VerifyUser(ctx)
	if err != nil {
		var apiErr *model.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			a.logger.Warn("identity unknown to backend, signing out",
				slog.String("uid", u.UID))
			if signOutErr := a.provider.SignOut(ctx); signOutErr != nil {
				a.logger.Error("provider sign-out failed", slog.Any("error", signOutErr))
			}
			a.mu.Lock()
			a.session = nil
			a.mu.Unlock()
			a.publish(Event{Kind: EventMismatch, Err: model.NewIdentityMismatchError()})
			return
		}

		// Transient verification failure: no session is established, but the
		// provider session survives for a later retry by the consumer.
		a.logger.Error("identity verification failed", slog.Any("error", err))
		a.publish(Event{Kind: EventSignedOut, Err: err})
		return
	}

	sess := &model.Session{
		UserID:      backendSess.UserID,
		Email:       firstNonEmpty(backendSess.Email, u.Email),
		PhoneNumber: firstNonEmpty(backendSess.PhoneNumber, u.PhoneNumber),
		DisplayName: firstNonEmpty(backendSess.DisplayName, u.DisplayName),
		PhotoURL:    firstNonEmpty(backendSess.PhotoURL, u.PhotoURL),
	}

	// Push provider profile fields to the backend. Failure is non-fatal:
	// the session is already verified.
	syncReq := &gateway.ProfileSyncRequest{
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
	if err := gw.SyncProfile(ctx, syncReq); err != nil {
		a.logger.Warn("profile sync failed", slog.Any("error", err))
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	a.publish(Event{Kind: EventSignedIn, Session: sess})
}

func (a *Adapter) gatewayRef() gateway.Gateway {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gw
}

func (a *Adapter) publish(ev Event) {
	a.mu.Lock()
	subs := make([]func(Event), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
