// Package identity adapts the external identity provider to the storefront.
//
// Two systems of record exist for "is this user real": the identity provider
// (sign-in, OTP, token issuance) and the commerce backend's own user table.
// This package keeps them explicitly separate: a provider session becomes a
// storefront Session only after the backend verifies the identity. The
// IdentityMismatch failure path is a first-class transition, not a side
// effect.
package identity

import (
	"context"
	"os"
	"sync"
)

// User is the provider-side account record, as pushed by the provider SDK.
type User struct {
	UID         string
	Email       string
	PhoneNumber string
	DisplayName string
	PhotoURL    string
}

// Provider is the surface this process consumes from the external identity
// SDK. Implementations wrap the real vendor client.
type Provider interface {
	// CurrentUser returns the signed-in provider account, or nil.
	CurrentUser() *User

	// Token mints a fresh short-lived bearer token for the current user.
	Token(ctx context.Context) (string, error)

	// OnChange registers a callback invoked on every auth-state change,
	// including the provider's initial state resolution. Returns an
	// unsubscribe function.
	OnChange(fn func(*User)) (unsubscribe func())

	// SignOut destroys the provider session.
	SignOut(ctx context.Context) error
}

// FakeProvider is an in-memory Provider for tests and the CLI.
type FakeProvider struct {
	mu       sync.Mutex
	user     *User
	token    string
	tokenErr error
	cbs      map[int]func(*User)
	nextID   int
	SignOuts int
}

// NewFakeProvider returns a signed-out fake.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{cbs: make(map[int]func(*User))}
}

// FromEnv builds a provider for headless deployments: one fixed identity
// whose bearer token is injected via IDENTITY_TOKEN, with optional
// IDENTITY_UID, IDENTITY_EMAIL, IDENTITY_PHONE, and IDENTITY_NAME. An empty
// IDENTITY_TOKEN means the process runs signed out (catalog-only).
func FromEnv() *FakeProvider {
	p := NewFakeProvider()
	token := os.Getenv("IDENTITY_TOKEN")
	if token == "" {
		return p
	}
	p.SignIn(&User{
		UID:         os.Getenv("IDENTITY_UID"),
		Email:       os.Getenv("IDENTITY_EMAIL"),
		PhoneNumber: os.Getenv("IDENTITY_PHONE"),
		DisplayName: os.Getenv("IDENTITY_NAME"),
	}, token)
	return p
}

// SignIn sets the current user and token, then notifies subscribers.
func (f *FakeProvider) SignIn(u *User, token string) {
	f.mu.Lock()
	f.user = u
	f.token = token
	cbs := f.snapshotCallbacks()
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(u)
	}
}

// SetTokenError makes subsequent Token calls fail.
func (f *FakeProvider) SetTokenError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenErr = err
}

func (f *FakeProvider) CurrentUser() *User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *FakeProvider) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.token, nil
}

func (f *FakeProvider) OnChange(fn func(*User)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.cbs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.cbs, id)
	}
}

func (f *FakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.user = nil
	f.token = ""
	f.SignOuts++
	cbs := f.snapshotCallbacks()
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(nil)
	}
	return nil
}

func (f *FakeProvider) snapshotCallbacks() []func(*User) {
	cbs := make([]func(*User), 0, len(f.cbs))
	for _, cb := range f.cbs {
		cbs = append(cbs, cb)
	}
	return cbs
}
