// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for the storefront.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/config"
	"github.com/kingrea/storefront/internal/logbook"
	"github.com/kingrea/storefront/internal/logging"
	"github.com/kingrea/storefront/internal/order"
)

// appState represents which "screen" we're on
type appState int

const (
	stateHome              appState = iota // Banners, featured, trending, all products
	stateSearch                             // Debounced product search
	stateProductDetails                     // One product with quantity selector
	stateCart                               // Cart lines with +/- and remove
	stateCheckout                           // Payment method and order summary
	stateOrderConfirmation                  // Shows the placed order id once
)

// tabs are the root screens reachable with tab/shift+tab.
var tabs = []appState{stateHome, stateSearch, stateCart}

const logPanelLines = 6

var (
	accentColor = lipgloss.Color("#FF6B6B")
	infoColor   = lipgloss.Color("#5B8DEF")
	borderColor = lipgloss.Color("#444444")
	mutedColor  = lipgloss.Color("#888888")
	textColor   = lipgloss.Color("#AAAAAA")
	goodColor   = lipgloss.Color("#4CAF50")
	warnColor   = lipgloss.Color("#F7B801")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(infoColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	priceStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	goodStyle     = lipgloss.NewStyle().Bold(true).Foreground(goodColor)
	warnStyle     = lipgloss.NewStyle().Bold(true).Foreground(warnColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(infoColor)
	buttonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accentColor).Padding(0, 2)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(borderColor).Padding(0, 2)
	alertStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
)

// Catalog is the product API the screens read from.
type Catalog interface {
	Products(ctx context.Context, limit, skip int) (catalog.Page, error)
	Product(ctx context.Context, id int) (catalog.Product, error)
	Search(ctx context.Context, query string, limit, skip int) (catalog.Page, error)
	ByCategory(ctx context.Context, category string, limit int) (catalog.Page, error)
	Categories(ctx context.Context) ([]string, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithCatalog replaces the HTTP catalog client.
func WithCatalog(c Catalog) AppOption {
	return func(a *App) {
		if c != nil {
			a.catalog = c
		}
	}
}

// WithPlacer replaces the simulated order placer.
func WithPlacer(p order.Placer) AppOption {
	return func(a *App) {
		if p != nil {
			a.placer = p
		}
	}
}

// WithLogbook shares an already opened logbook with the App.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// cartUpdatedMsg carries a snapshot published by the cart store.
type cartUpdatedMsg struct {
	cart cart.Cart
}

// cartLoadedMsg reports that hydration from storage finished.
type cartLoadedMsg struct{}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	history []appState
	config  *config.Config
	store   *cart.Store
	catalog Catalog
	placer  order.Placer
	logbook *logbook.Logbook
	ownsLog bool

	ctx     context.Context
	cancel  context.CancelFunc
	cartSub cart.Subscription
	cart    cart.Cart

	home         *homeView
	search       *searchView
	details      *detailsView
	cartView     *cartView
	checkout     *checkoutView
	confirmation *confirmationView

	statusMsg string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App around an explicitly owned cart store.
func NewApp(cfg *config.Config, store *cart.Store, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("tui: cart store is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		state:  stateHome,
		config: cfg,
		store:  store,
		placer: order.NewSimulatedPlacer(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		lb, err := logbook.New(filepath.Join(cfg.LogsDir(), logging.FileName))
		if err == nil {
			app.logbook = lb
			app.ownsLog = true
		}
	}
	if app.catalog == nil {
		app.catalog = catalog.NewClient(cfg.Project.Catalog.BaseURL,
			catalog.WithTimeout(cfg.Project.Catalog.Timeout),
			catalog.WithLogger(app.logbook),
		)
	}
	app.logInfo("Session opened · catalog %s", cfg.Project.Catalog.BaseURL)

	app.cartSub = store.Subscribe()
	app.cart = store.Cart()
	app.home = newHomeView(app)
	app.search = newSearchView(app)
	app.cartView = newCartView(app)
	return app, nil
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

func (a *App) pageSize() int {
	if a.config.Project.Catalog.PageSize > 0 {
		return a.config.Project.Catalog.PageSize
	}
	return catalog.ProductsPerPage
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadCart(),
		a.listenCart(),
		a.home.Init(),
	)
}

func (a *App) loadCart() tea.Cmd {
	return func() tea.Msg {
		a.store.Load(a.ctx)
		return cartLoadedMsg{}
	}
}

// listenCart waits for the next snapshot from the store. It returns nil
// once the subscription is closed.
func (a *App) listenCart() tea.Cmd {
	updates := a.cartSub.Updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-updates
		if !ok {
			return nil
		}
		return cartUpdatedMsg{cart: c}
	}
}

// syncCart refreshes the cached snapshot after a mutation made by a screen.
func (a *App) syncCart() {
	a.cart = a.store.Cart()
}

// Close releases the App's subscription and, when NewApp opened it, the
// logbook.
func (a *App) Close() {
	a.cancel()
	a.cartSub.Close()
	if a.ownsLog {
		_ = a.logbook.Close()
		a.ownsLog = false
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case cartLoadedMsg:
		a.syncCart()
		a.logInfo("Cart loaded · %d item(s)", a.cart.ItemCount)
		return a, nil

	case cartUpdatedMsg:
		a.cart = msg.cart
		return a, a.listenCart()

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c":
			return a.quit()
		case "tab", "shift+tab":
			if a.isTabState() {
				return a.switchTab(key == "tab")
			}
		case "q":
			if a.isTabState() && !a.typing() {
				return a.quit()
			}
		case "esc":
			if len(a.history) > 0 && !a.busy() {
				return a.back()
			}
		}
	}

	return a, a.updateActive(msg)
}

// updateActive routes a message to the current screen. Async results are
// always delivered to their owning screen so a late response still lands.
func (a *App) updateActive(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case homeMsg:
		return a.home.Update(msg)
	case searchMsg:
		return a.search.Update(msg)
	case detailsMsg:
		if a.details != nil {
			return a.details.Update(msg)
		}
		return nil
	case checkoutMsg:
		if a.checkout != nil {
			return a.checkout.Update(msg)
		}
		return nil
	}
	switch a.state {
	case stateHome:
		return a.home.Update(msg)
	case stateSearch:
		return a.search.Update(msg)
	case stateProductDetails:
		if a.details != nil {
			return a.details.Update(msg)
		}
	case stateCart:
		return a.cartView.Update(msg)
	case stateCheckout:
		if a.checkout != nil {
			return a.checkout.Update(msg)
		}
	case stateOrderConfirmation:
		if a.confirmation != nil {
			return a.confirmation.Update(msg)
		}
	}
	return nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.logInfo("Session closed")
	a.Close()
	return a, tea.Quit
}

func (a *App) isTabState() bool {
	for _, tab := range tabs {
		if a.state == tab {
			return len(a.history) == 0
		}
	}
	return false
}

// busy reports whether an order is being placed.
func (a *App) busy() bool {
	return a.state == stateCheckout && a.checkout != nil && a.checkout.placing
}

// typing reports whether key presses belong to a text input.
func (a *App) typing() bool {
	return a.state == stateSearch && a.search.input.Focused()
}

func (a *App) switchTab(forward bool) (tea.Model, tea.Cmd) {
	idx := 0
	for i, tab := range tabs {
		if tab == a.state {
			idx = i
		}
	}
	if forward {
		idx = (idx + 1) % len(tabs)
	} else {
		idx = (idx - 1 + len(tabs)) % len(tabs)
	}
	return a, a.showTab(tabs[idx])
}

func (a *App) showTab(tab appState) tea.Cmd {
	a.history = nil
	a.state = tab
	a.statusMsg = ""
	a.syncCart()
	if tab == stateSearch {
		return a.search.Focus()
	}
	a.search.Blur()
	return nil
}

// navigate pushes the current screen and shows next.
func (a *App) navigate(next appState) {
	a.history = append(a.history, a.state)
	a.state = next
	a.statusMsg = ""
	a.search.Blur()
}

// back pops the navigation stack.
func (a *App) back() (tea.Model, tea.Cmd) {
	if len(a.history) == 0 {
		return a, nil
	}
	prev := a.history[len(a.history)-1]
	a.history = a.history[:len(a.history)-1]
	a.state = prev
	a.statusMsg = ""
	a.syncCart()
	if prev == stateSearch {
		return a, a.search.Focus()
	}
	return a, nil
}

// resetToHome clears the navigation stack, like a navigator reset.
func (a *App) resetToHome() tea.Cmd {
	a.details = nil
	a.checkout = nil
	a.confirmation = nil
	return a.showTab(stateHome)
}

func (a *App) openProduct(id int) tea.Cmd {
	a.details = newDetailsView(a, id)
	a.navigate(stateProductDetails)
	return a.details.Init()
}

func (a *App) openCart() tea.Cmd {
	if a.state == stateCart {
		return nil
	}
	a.syncCart()
	a.cartView.clampCursor()
	a.navigate(stateCart)
	return nil
}

func (a *App) openCheckout() tea.Cmd {
	a.checkout = newCheckoutView(a)
	a.navigate(stateCheckout)
	return nil
}

func (a *App) showConfirmation(placed order.Order) tea.Cmd {
	a.details = nil
	a.checkout = nil
	a.confirmation = newConfirmationView(a, placed)
	a.history = nil
	a.state = stateOrderConfirmation
	return nil
}

func (a *App) resize() {
	w, h := a.contentSize()
	a.home.SetSize(w, h)
	a.search.SetSize(w, h)
}

// contentSize is the room left inside the main box.
func (a *App) contentSize() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	height := a.height
	if height <= 0 {
		height = 40
	}
	return max(20, width-6), max(8, height-logPanelLines-12)
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	switch a.state {
	case stateHome:
		content = a.home.View()
	case stateSearch:
		content = a.search.View()
	case stateProductDetails:
		if a.details != nil {
			content = a.details.View()
		}
	case stateCart:
		content = a.cartView.View()
	case stateCheckout:
		if a.checkout != nil {
			content = a.checkout.View()
		}
	case stateOrderConfirmation:
		if a.confirmation != nil {
			content = a.confirmation.View()
		}
	}
	return a.renderFrame(content, width)
}

func (a *App) renderFrame(content string, width int) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("⬡ STOREFRONT"),
		"  ",
		a.renderTabs(),
		"  ",
		a.renderCartBadge(),
	)
	if strings.TrimSpace(content) == "" {
		content = "Loading..."
	}
	body := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(content)
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render(a.renderFooter())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderTabs() string {
	labels := map[appState]string{stateHome: "Home", stateSearch: "Search", stateCart: "Cart"}
	active := a.state
	if len(a.history) > 0 {
		active = a.history[0]
	}
	var parts []string
	for _, tab := range tabs {
		label := labels[tab]
		if tab == active {
			parts = append(parts, selectedStyle.Underline(true).Render(label))
		} else {
			parts = append(parts, mutedStyle.Render(label))
		}
	}
	return strings.Join(parts, mutedStyle.Render(" │ "))
}

func (a *App) renderCartBadge() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(accentColor).
		Padding(0, 1).
		Render("🛒 " + cartBadge(a.cart.ItemCount))
}

// cartBadge caps the displayed count at 99+.
func cartBadge(count int) string {
	if count > 99 {
		return "99+"
	}
	return fmt.Sprintf("%d", count)
}

func (a *App) renderFooter() string {
	hints := "tab → switch    esc → back    ctrl+c → quit"
	if a.isTabState() && !a.typing() {
		hints = "tab → switch    q → quit"
	}
	if a.statusMsg == "" {
		return hints
	}
	return a.statusMsg + "    " + hints
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, _ := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(infoColor).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(textColor).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}
