package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/catalog"
)

type failingPlacer struct{ err error }

func (f failingPlacer) Place(context.Context, Request) (Order, error) {
	return Order{}, f.err
}

func filledStore(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.NewStore(nil)
	t.Cleanup(func() { _ = store.Close() })
	store.Add(catalog.Product{ID: 1, Title: "Mascara", Price: 10}, 4)
	return store
}

func TestNewIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := NewID(now, 42); got != "ORD-1700000000123-42" {
		t.Fatalf("NewID = %q", got)
	}
}

func TestPaymentMethods(t *testing.T) {
	labels := []string{"Credit Card", "Debit Card", "UPI", "Cash on Delivery"}
	if len(PaymentMethods) != len(labels) {
		t.Fatalf("expected %d methods", len(labels))
	}
	for i, method := range PaymentMethods {
		if method.Label() != labels[i] {
			t.Fatalf("method %d label = %q, want %q", i, method.Label(), labels[i])
		}
		if !method.Valid() {
			t.Fatalf("%s should be valid", method)
		}
	}
	if DefaultPaymentMethod != CreditCard {
		t.Fatalf("default should be credit card")
	}
	if PaymentMethod("bitcoin").Valid() {
		t.Fatalf("unexpected valid method")
	}
}

func TestCheckoutClearsCartOnSuccess(t *testing.T) {
	store := filledStore(t)
	placer := &SimulatedPlacer{
		Now:  func() time.Time { return time.UnixMilli(1000) },
		Rand: func(int) int { return 7 },
	}
	placed, err := Checkout(context.Background(), placer, store, UPI)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if placed.ID != "ORD-1000-7" {
		t.Fatalf("order id = %q", placed.ID)
	}
	if placed.PaymentMethod != UPI || len(placed.Items) != 1 {
		t.Fatalf("unexpected order %+v", placed)
	}
	if placed.Summary.Subtotal != 40 || placed.Summary.Total != 49.19 {
		t.Fatalf("unexpected summary %+v", placed.Summary)
	}
	if !store.Cart().Empty() {
		t.Fatalf("cart should be cleared after a successful order")
	}
}

func TestCheckoutKeepsCartOnFailure(t *testing.T) {
	store := filledStore(t)
	boom := errors.New("service unavailable")
	if _, err := Checkout(context.Background(), failingPlacer{err: boom}, store, ""); !errors.Is(err, boom) {
		t.Fatalf("expected placement error, got %v", err)
	}
	if store.Cart().ItemCount != 4 {
		t.Fatalf("cart must be untouched after failure")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := cart.NewStore(nil)
	defer store.Close()
	if _, err := Checkout(context.Background(), NewSimulatedPlacer(), store, CreditCard); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutRejectsUnknownMethod(t *testing.T) {
	store := filledStore(t)
	if _, err := Checkout(context.Background(), &SimulatedPlacer{}, store, "barter"); err == nil {
		t.Fatalf("expected error for unknown payment method")
	}
	if store.Cart().Empty() {
		t.Fatalf("cart must be untouched")
	}
}

func TestSimulatedPlacerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	placer := &SimulatedPlacer{Delay: time.Hour}
	if _, err := placer.Place(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatedPlacerDefaultID(t *testing.T) {
	placed, err := (&SimulatedPlacer{}).Place(context.Background(), Request{PaymentMethod: CashOnDelivery})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !regexp.MustCompile(`^ORD-\d+-\d{1,4}$`).MatchString(placed.ID) {
		t.Fatalf("unexpected id %q", placed.ID)
	}
	if placed.CreatedAt.IsZero() {
		t.Fatalf("expected creation time")
	}
}
