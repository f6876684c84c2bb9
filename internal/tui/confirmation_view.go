package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/order"
	"github.com/kingrea/storefront/internal/pricing"
)

type confirmationView struct {
	app   *App
	order order.Order
}

func newConfirmationView(app *App, placed order.Order) *confirmationView {
	return &confirmationView{app: app, order: placed}
}

func (v *confirmationView) Update(msg tea.Msg) tea.Cmd {
	if m, ok := msg.(tea.KeyMsg); ok && m.String() == "enter" {
		return v.app.resetToHome()
	}
	return nil
}

func (v *confirmationView) View() string {
	return strings.Join([]string{
		goodStyle.Render("✔ Order Placed Successfully!"),
		mutedStyle.Render("Thank you for your order. Your order has been placed and is being processed."),
		"",
		mutedStyle.Render("Order ID"),
		titleStyle.Render(v.order.ID),
		mutedStyle.Render(v.order.PaymentMethod.Label() + " · " + pricing.FormatCurrency(v.order.Summary.Total)),
		"",
		mutedStyle.Render("You will receive a confirmation email shortly with your order details."),
		"",
		buttonStyle.Render("Continue Shopping"),
		mutedStyle.Render("enter → continue shopping"),
	}, "\n")
}
