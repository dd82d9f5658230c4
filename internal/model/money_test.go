package model

import "testing"

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{49900, "499.00"},
		{99, "0.99"},
		{0, "0.00"},
		{-1250, "-12.50"},
		{100005, "1000.05"},
	}

	for _, tt := range tests {
		if got := FormatMinor(tt.in); got != tt.want {
			t.Errorf("FormatMinor(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCart_SubtotalFallback(t *testing.T) {
	cart := &Cart{
		Items: []CartItem{
			{CartItemID: 1, UnitPrice: 49900, Quantity: 2},
			{CartItemID: 2, UnitPrice: 9900, Quantity: 1},
		},
	}

	// Summary absent: client sum over mirrored items
	if got := cart.Subtotal(); got != 109700 {
		t.Errorf("Subtotal() fallback = %d, want 109700", got)
	}

	// Summary present: server value wins even when it disagrees
	cart.Summary = &CartSummary{Subtotal: 99700, ItemCount: 3}
	if got := cart.Subtotal(); got != 99700 {
		t.Errorf("Subtotal() with summary = %d, want server value 99700", got)
	}
}

func TestCart_Count(t *testing.T) {
	cart := &Cart{
		Items: []CartItem{
			{Quantity: 2},
			{Quantity: 3},
		},
	}
	if got := cart.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}

	empty := &Cart{}
	if got := empty.Count(); got != 0 {
		t.Errorf("Count() on empty cart = %d, want 0", got)
	}
}
