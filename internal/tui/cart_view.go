package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/pricing"
)

type cartView struct {
	app    *App
	cursor int
}

func newCartView(app *App) *cartView {
	return &cartView{app: app}
}

func (v *cartView) clampCursor() {
	n := len(v.app.cart.Items)
	if v.cursor >= n {
		v.cursor = n - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *cartView) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	items := v.app.cart.Items
	if len(items) == 0 {
		if keyMsg.String() == "enter" {
			return v.app.resetToHome()
		}
		return nil
	}
	v.clampCursor()
	current := items[v.cursor]
	store := v.app.store
	switch keyMsg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(items)-1 {
			v.cursor++
		}
	case "+", "=", "right", "l":
		store.UpdateQuantity(current.Product.ID, current.Quantity+1)
	case "-", "left", "h":
		// The cart screen never drops a line by decrementing.
		if current.Quantity > 1 {
			store.UpdateQuantity(current.Product.ID, current.Quantity-1)
		}
	case "d", "delete", "backspace":
		store.Remove(current.Product.ID)
		v.app.statusMsg = fmt.Sprintf("Removed %s", catalog.Truncate(current.Product.Title, 30))
		v.app.logInfo("Cart · removed product %d", current.Product.ID)
	case "enter", "c":
		return v.app.openCheckout()
	default:
		return nil
	}
	v.app.syncCart()
	v.clampCursor()
	return nil
}

func (v *cartView) View() string {
	c := v.app.cart
	if c.Empty() {
		return strings.Join([]string{
			titleStyle.Render("Your Cart is Empty"),
			mutedStyle.Render("Add some products to your cart and they will appear here"),
			"",
			buttonStyle.Render("Start Shopping"),
		}, "\n")
	}
	v.clampCursor()
	rows := make([]string, 0, len(c.Items))
	for i, item := range c.Items {
		line := fmt.Sprintf("%-32s %9s   [-] %2d [+]   %10s",
			catalog.Truncate(item.Product.Title, 28),
			pricing.FormatCurrency(item.Product.Price),
			item.Quantity,
			pricing.FormatCurrency(item.LineTotal()),
		)
		if i == v.cursor {
			rows = append(rows, selectedStyle.Render("› "+line))
		} else {
			rows = append(rows, "  "+line)
		}
	}
	summary := fmt.Sprintf("Subtotal (%d items)  %s", c.ItemCount, priceStyle.Render(pricing.FormatCurrency(c.Total)))
	return strings.Join([]string{
		titleStyle.Render("Shopping Cart"),
		strings.Join(rows, "\n"),
		"",
		summary,
		buttonStyle.Render("Proceed to Checkout"),
		mutedStyle.Render("+/- → quantity    d → remove    enter → checkout"),
	}, "\n")
}
