package checkout

import (
	"errors"
	"testing"

	"storefront/internal/model"
)

func validAddress() model.Address {
	return model.Address{
		FullName: "Asha Rao",
		Phone:    "9876543210",
		Email:    "asha@example.com",
		Street:   "12 MG Road",
		City:     "Bengaluru",
		State:    "Karnataka",
		Pincode:  "560001",
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.Address)
		wantField string
	}{
		{"valid", func(a *model.Address) {}, ""},
		{"landmark optional", func(a *model.Address) { a.Landmark = "" }, ""},
		{"empty name", func(a *model.Address) { a.FullName = "  " }, "full_name"},
		{"phone 8 digits", func(a *model.Address) { a.Phone = "98765432" }, "phone"},
		{"phone 11 digits", func(a *model.Address) { a.Phone = "98765432101" }, "phone"},
		{"phone with letters", func(a *model.Address) { a.Phone = "98765abcde" }, "phone"},
		{"email without domain", func(a *model.Address) { a.Email = "asha@" }, "email"},
		{"email without tld", func(a *model.Address) { a.Email = "asha@example" }, "email"},
		{"empty street", func(a *model.Address) { a.Street = "" }, "street"},
		{"empty city", func(a *model.Address) { a.City = "" }, "city"},
		{"empty state", func(a *model.Address) { a.State = "" }, "state"},
		{"pincode 5 digits", func(a *model.Address) { a.Pincode = "12345" }, "pincode"},
		{"pincode 7 digits", func(a *model.Address) { a.Pincode = "1234567" }, "pincode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := validAddress()
			tt.mutate(&addr)

			err := ValidateAddress(&addr)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateAddress = %v, want nil", err)
				}
				return
			}

			var apiErr *model.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("ValidateAddress = %v, want *model.Error", err)
			}
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if apiErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", apiErr.Field, tt.wantField)
			}
		})
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusFilling, StatusValidating, true},
		{StatusValidating, StatusValid, true},
		{StatusValidating, StatusFilling, true},
		{StatusValid, StatusPlacingOrder, true},
		{StatusValid, StatusCreatingPaymentIntent, true},
		{StatusCreatingPaymentIntent, StatusAwaitingPaymentWidget, true},
		{StatusAwaitingPaymentWidget, StatusVerifyingPayment, true},
		{StatusAwaitingPaymentWidget, StatusFilling, true},
		{StatusVerifyingPayment, StatusFinalizing, true},
		{StatusFinalizing, StatusPlaced, true},
		{StatusFailed, StatusFilling, true},
		// Every non-terminal state may fail.
		{StatusFilling, StatusFailed, true},
		{StatusVerifyingPayment, StatusFailed, true},
		// Illegal edges.
		{StatusFilling, StatusPlacingOrder, false},
		{StatusValid, StatusAwaitingPaymentWidget, false},
		{StatusPlaced, StatusFilling, false},
		{StatusPlaced, StatusFailed, false},
	}

	for _, tt := range tests {
		if got := CanTransitionTo(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
