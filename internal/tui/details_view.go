package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/pricing"
)

type detailsMsg interface{ forDetails() }

type productLoadedMsg struct {
	id      int
	product catalog.Product
	err     error
}

func (productLoadedMsg) forDetails() {}

type detailsView struct {
	app      *App
	id       int
	product  *catalog.Product
	loading  bool
	notFound bool
	quantity int
	image    int
}

func newDetailsView(app *App, id int) *detailsView {
	return &detailsView{app: app, id: id, quantity: 1}
}

func (v *detailsView) Init() tea.Cmd {
	v.loading = true
	client := v.app.catalog
	ctx := v.app.ctx
	id := v.id
	return func() tea.Msg {
		product, err := client.Product(ctx, id)
		return productLoadedMsg{id: id, product: product, err: err}
	}
}

func (v *detailsView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case productLoadedMsg:
		if m.id != v.id {
			return nil
		}
		v.loading = false
		if m.err != nil {
			v.notFound = true
			if errors.Is(m.err, catalog.ErrNotFound) {
				v.app.logWarn("Product %d not found", m.id)
			} else {
				v.app.logError("Error fetching product details: %v", m.err)
			}
			return nil
		}
		product := m.product
		v.product = &product
		if qty := v.app.store.Quantity(product.ID); qty > 0 {
			v.quantity = qty
		}
		return nil

	case tea.KeyMsg:
		if v.product == nil {
			return nil
		}
		switch m.String() {
		case "+", "=", "right", "l":
			v.increment()
		case "-", "left", "h":
			v.decrement()
		case "enter", "a":
			v.commit()
		case "v":
			return v.app.openCart()
		case "n", "]":
			if imgs := v.product.ImageURLs(); len(imgs) > 0 {
				v.image = (v.image + 1) % len(imgs)
			}
		case "p", "[":
			if imgs := v.product.ImageURLs(); len(imgs) > 0 {
				v.image = (v.image - 1 + len(imgs)) % len(imgs)
			}
		}
	}
	return nil
}

func (v *detailsView) increment() {
	if v.product.Stock > 0 && v.quantity >= v.product.Stock {
		return
	}
	v.quantity++
}

// decrement floors at 1.
func (v *detailsView) decrement() {
	if v.quantity > 1 {
		v.quantity--
	}
}

// commit adds the selection, or sets the cart quantity when the product is
// already in the cart.
func (v *detailsView) commit() {
	p := *v.product
	if catalog.IsOutOfStock(p.Stock) {
		v.app.statusMsg = "This product is out of stock"
		return
	}
	store := v.app.store
	if store.IsInCart(p.ID) {
		store.UpdateQuantity(p.ID, v.quantity)
		v.app.statusMsg = fmt.Sprintf("Updated %s × %d", catalog.Truncate(p.Title, 30), v.quantity)
		v.app.logInfo("Cart · updated product %d to %d", p.ID, v.quantity)
	} else {
		store.Add(p, v.quantity)
		v.app.statusMsg = fmt.Sprintf("Added %s × %d to cart", catalog.Truncate(p.Title, 30), v.quantity)
		v.app.logInfo("Cart · added product %d × %d", p.ID, v.quantity)
	}
	v.app.syncCart()
}

func (v *detailsView) View() string {
	if v.loading {
		return mutedStyle.Render("Loading product details...")
	}
	if v.notFound || v.product == nil {
		return warnStyle.Render("Product not found") + "\n" + mutedStyle.Render("esc → go back")
	}
	p := *v.product
	outOfStock := catalog.IsOutOfStock(p.Stock)

	stock := goodStyle.Render(p.StockLabel())
	switch {
	case outOfStock:
		stock = priceStyle.Render(p.StockLabel())
	case catalog.IsLowStock(p.Stock, catalog.LowStockThreshold):
		stock = warnStyle.Render(p.StockLabel())
	}
	priceLine := priceStyle.Render(pricing.FormatCurrency(p.Price))
	if p.DiscountPercentage > 0 {
		priceLine += "  " + goodStyle.Render(fmt.Sprintf("%.0f%% OFF", p.DiscountPercentage))
	}
	lines := []string{
		mutedStyle.Render(strings.ToUpper(p.Category)),
		titleStyle.Render(p.Title),
		fmt.Sprintf("★ %s    %s", catalog.FormatRating(p.Rating), stock),
		priceLine,
	}
	if p.Brand != "" {
		lines = append(lines, mutedStyle.Render("Brand: "+p.Brand))
	}
	if imgs := p.ImageURLs(); len(imgs) > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Image %d of %d", v.image%len(imgs)+1, len(imgs))))
	}
	lines = append(lines, "", titleStyle.Render("Description"), lipgloss.NewStyle().Width(70).Render(p.Description))

	if !outOfStock {
		lines = append(lines, "", titleStyle.Render("Quantity"), fmt.Sprintf("[-]  %d  [+]", v.quantity))
	}

	label := "Add to Cart"
	if v.app.store.IsInCart(p.ID) {
		label = "Update Cart"
	}
	button := buttonStyle.Render(label)
	if outOfStock {
		button = disabledStyle.Render(label)
	}
	total := pricing.LineTotal(p.Price, v.quantity)
	lines = append(lines, "",
		fmt.Sprintf("Total %s   %s", priceStyle.Render(pricing.FormatCurrency(total)), button),
		mutedStyle.Render("+/- → quantity    enter → "+strings.ToLower(label)+"    v → view cart    esc → back"),
	)
	return strings.Join(lines, "\n")
}
