package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/order"
	"github.com/kingrea/storefront/internal/pricing"
)

const placeOrderFailed = "Failed to place order. Please try again."

type checkoutMsg interface{ forCheckout() }

type orderPlacedMsg struct {
	order order.Order
	err   error
}

func (orderPlacedMsg) forCheckout() {}

type checkoutView struct {
	app     *App
	method  int
	placing bool
	alert   string
	spinner spinner.Model
}

func newCheckoutView(app *App) *checkoutView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = priceStyle
	method := 0
	for i, m := range order.PaymentMethods {
		if m == order.DefaultPaymentMethod {
			method = i
		}
	}
	return &checkoutView{app: app, method: method, spinner: s}
}

func (v *checkoutView) selectedMethod() order.PaymentMethod {
	return order.PaymentMethods[v.method]
}

func (v *checkoutView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case spinner.TickMsg:
		if !v.placing {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(m)
		return cmd

	case orderPlacedMsg:
		v.placing = false
		if m.err != nil {
			if errors.Is(m.err, order.ErrEmptyCart) {
				v.app.syncCart()
				return nil
			}
			v.alert = placeOrderFailed
			v.app.logError("Error placing order: %v", m.err)
			return nil
		}
		v.app.syncCart()
		v.app.logInfo("Order · %s placed (%s, %s)", m.order.ID,
			m.order.PaymentMethod.Label(), pricing.FormatCurrency(m.order.Summary.Total))
		return v.app.showConfirmation(m.order)

	case tea.KeyMsg:
		if v.placing {
			return nil
		}
		if v.alert != "" {
			// Any key dismisses the alert.
			v.alert = ""
			return nil
		}
		if v.app.cart.Empty() {
			if m.String() == "enter" {
				return v.app.resetToHome()
			}
			return nil
		}
		switch m.String() {
		case "up", "k":
			if v.method > 0 {
				v.method--
			}
		case "down", "j":
			if v.method < len(order.PaymentMethods)-1 {
				v.method++
			}
		case "enter", "p":
			return v.placeOrder()
		}
	}
	return nil
}

func (v *checkoutView) placeOrder() tea.Cmd {
	v.placing = true
	v.alert = ""
	placer := v.app.placer
	store := v.app.store
	ctx := v.app.ctx
	method := v.selectedMethod()
	v.app.logInfo("Order · placing with %s", method.Label())
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		placed, err := order.Checkout(ctx, placer, store, method)
		return orderPlacedMsg{order: placed, err: err}
	})
}

func (v *checkoutView) View() string {
	c := v.app.cart
	if c.Empty() {
		return strings.Join([]string{
			titleStyle.Render("Your cart is empty"),
			mutedStyle.Render("Add some products to proceed with checkout"),
			"",
			buttonStyle.Render("Start Shopping"),
		}, "\n")
	}
	summary := pricing.CalculateOrderSummary(c.Total, 0)

	lines := []string{titleStyle.Render("Order Items")}
	for _, item := range c.Items {
		lines = append(lines, fmt.Sprintf("  %-34s x%-3d %10s",
			catalog.Truncate(item.Product.Title, 30),
			item.Quantity,
			pricing.FormatCurrency(item.LineTotal())))
	}

	lines = append(lines, "", titleStyle.Render("Payment Method"))
	for i, m := range order.PaymentMethods {
		if i == v.method {
			lines = append(lines, selectedStyle.Render("  (●) "+m.Label()))
		} else {
			lines = append(lines, "  ( ) "+m.Label())
		}
	}

	shipping := pricing.FormatCurrency(summary.Shipping)
	if summary.FreeShipping() {
		shipping = goodStyle.Render("FREE")
	}
	lines = append(lines, "", titleStyle.Render("Order Summary"),
		summaryRow("Subtotal", pricing.FormatCurrency(summary.Subtotal)),
		summaryRow(fmt.Sprintf("Tax (%.0f%%)", pricing.TaxRate*100), pricing.FormatCurrency(summary.Tax)),
		summaryRow("Shipping", shipping),
		summaryRow("Total", priceStyle.Render(pricing.FormatCurrency(summary.Total))),
	)
	if !summary.FreeShipping() {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  Add %s more for free shipping",
			pricing.FormatCurrency(pricing.AmountToFreeShipping(summary.Subtotal-summary.Discount)))))
	}

	lines = append(lines, "")
	switch {
	case v.placing:
		lines = append(lines, v.spinner.View()+" Placing order...")
	default:
		lines = append(lines, fmt.Sprintf("Total Amount %s   %s",
			priceStyle.Render(pricing.FormatCurrency(summary.Total)),
			buttonStyle.Render("Place Order")))
	}
	if v.alert != "" {
		lines = append(lines, "", alertStyle.Render("Error · "+v.alert))
	}
	lines = append(lines, mutedStyle.Render("↑/↓ → payment method    enter → place order    esc → back"))
	return strings.Join(lines, "\n")
}

func summaryRow(label, value string) string {
	return fmt.Sprintf("  %-14s %s", label, value)
}
