package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCartLineQuantity(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 5},
		},
	}

	if got := cart.LineQuantity("p-2"); got != 5 {
		t.Errorf("expected quantity 5, got %d", got)
	}
	if got := cart.LineQuantity("p-9"); got != 0 {
		t.Errorf("expected quantity 0 for absent product, got %d", got)
	}
}

func TestTotalPrice(t *testing.T) {
	items := []LineView{
		{ProductID: "p-1", Quantity: 3, Price: 1500},
		{ProductID: "p-2", Quantity: 1, Price: 250},
	}

	if got := TotalPrice(items); got != 4750 {
		t.Errorf("expected total 4750, got %d", got)
	}

	if got := TotalPrice(nil); got != 0 {
		t.Errorf("expected total 0 for empty lines, got %d", got)
	}
}

func TestOrderMutable(t *testing.T) {
	for _, tc := range []struct {
		status  OrderStatus
		mutable bool
	}{
		{OrderStatusPending, true},
		{OrderStatusModified, true},
		{OrderStatusProcessed, false},
	} {
		order := Order{Status: tc.status}
		if got := order.Mutable(); got != tc.mutable {
			t.Errorf("status %s: expected mutable=%v, got %v", tc.status, tc.mutable, got)
		}
	}
}

func TestKindOf(t *testing.T) {
	t.Run("business error", func(t *testing.T) {
		err := NotFound("order", "o-1")
		kind, ok := KindOf(err)
		if !ok {
			t.Fatal("expected a business kind")
		}
		if kind != ErrNotFound {
			t.Errorf("expected %s, got %s", ErrNotFound, kind)
		}
	})

	t.Run("wrapped business error", func(t *testing.T) {
		err := fmt.Errorf("confirm cart: %w", InsufficientStock("Widget"))
		kind, ok := KindOf(err)
		if !ok {
			t.Fatal("expected a business kind")
		}
		if kind != ErrInsufficientStock {
			t.Errorf("expected %s, got %s", ErrInsufficientStock, kind)
		}
	})

	t.Run("internal error", func(t *testing.T) {
		if _, ok := KindOf(errors.New("connection refused")); ok {
			t.Error("expected no business kind for internal errors")
		}
	})
}

func TestErrorMessages(t *testing.T) {
	if got := NotFound("product", "p-1").Error(); got != "product p-1: not found" {
		t.Errorf("unexpected message: %s", got)
	}
	if got := InvalidInput("cart", "quantity must be positive").Error(); got != "cart: quantity must be positive" {
		t.Errorf("unexpected message: %s", got)
	}
	if got := InsufficientStock("Widget").Error(); got != "product Widget: insufficient stock" {
		t.Errorf("unexpected message: %s", got)
	}
}
