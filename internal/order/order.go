// Package order places orders for the contents of a cart. Orders are built in
// memory, shown once and never stored.
package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/pricing"
)

// DefaultPlacementDelay mimics the latency of a real order service.
const DefaultPlacementDelay = 2 * time.Second

// ErrEmptyCart is returned when checking out with nothing in the cart.
var ErrEmptyCart = errors.New("order: cart is empty")

// PaymentMethod identifies how the customer intends to pay.
type PaymentMethod string

const (
	CreditCard     PaymentMethod = "card"
	DebitCard      PaymentMethod = "debit"
	UPI            PaymentMethod = "upi"
	CashOnDelivery PaymentMethod = "cod"
)

// DefaultPaymentMethod is preselected on the checkout screen.
const DefaultPaymentMethod = CreditCard

// PaymentMethods lists the choices in display order.
var PaymentMethods = []PaymentMethod{CreditCard, DebitCard, UPI, CashOnDelivery}

// Label returns the human readable name.
func (m PaymentMethod) Label() string {
	switch m {
	case CreditCard:
		return "Credit Card"
	case DebitCard:
		return "Debit Card"
	case UPI:
		return "UPI"
	case CashOnDelivery:
		return "Cash on Delivery"
	default:
		return string(m)
	}
}

// Valid reports whether m is one of PaymentMethods.
func (m PaymentMethod) Valid() bool {
	for _, candidate := range PaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// Request is everything needed to place an order.
type Request struct {
	Items         []cart.Item
	Summary       pricing.OrderSummary
	PaymentMethod PaymentMethod
}

// Order is a placed order.
type Order struct {
	ID            string               `json:"id"`
	Items         []cart.Item          `json:"items"`
	Summary       pricing.OrderSummary `json:"summary"`
	PaymentMethod PaymentMethod        `json:"paymentMethod"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// Placer submits orders.
type Placer interface {
	Place(ctx context.Context, req Request) (Order, error)
}

// NewID formats an order id as ORD-<unix millis>-<n> with n in [0, 9999].
func NewID(now time.Time, n int) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), n)
}

// SimulatedPlacer accepts every order after a fixed delay.
type SimulatedPlacer struct {
	Delay time.Duration
	// Now and Rand default to time.Now and math/rand/v2.
	Now  func() time.Time
	Rand func(n int) int
}

// NewSimulatedPlacer returns a placer using DefaultPlacementDelay.
func NewSimulatedPlacer() *SimulatedPlacer {
	return &SimulatedPlacer{Delay: DefaultPlacementDelay}
}

// Place waits for Delay, or until ctx is done, then stamps the order.
func (p *SimulatedPlacer) Place(ctx context.Context, req Request) (Order, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Order{}, fmt.Errorf("order: place: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Order{}, fmt.Errorf("order: place: %w", err)
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	intn := rand.IntN
	if p.Rand != nil {
		intn = p.Rand
	}
	created := now()
	return Order{
		ID:            NewID(created, intn(10000)),
		Items:         append([]cart.Item(nil), req.Items...),
		Summary:       req.Summary,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     created,
	}, nil
}

// Checkout places an order for everything in store and clears the cart only
// when placement succeeds. A failed placement leaves the cart untouched.
func Checkout(ctx context.Context, placer Placer, store *cart.Store, method PaymentMethod) (Order, error) {
	if placer == nil || store == nil {
		return Order{}, fmt.Errorf("order: checkout: placer and store are required")
	}
	if strings.TrimSpace(string(method)) == "" {
		method = DefaultPaymentMethod
	}
	if !method.Valid() {
		return Order{}, fmt.Errorf("order: checkout: unknown payment method %q", method)
	}
	current := store.Cart()
	if current.Empty() {
		return Order{}, ErrEmptyCart
	}
	placed, err := placer.Place(ctx, Request{
		Items:         current.Items,
		Summary:       pricing.CalculateOrderSummary(current.Total, 0),
		PaymentMethod: method,
	})
	if err != nil {
		return Order{}, err
	}
	store.Clear()
	return placed, nil
}
