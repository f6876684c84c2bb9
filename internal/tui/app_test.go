package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/config"
	"github.com/kingrea/storefront/internal/order"
	"github.com/kingrea/storefront/internal/storage"
)

// cmdTimeout bounds how long runCommands waits for one command. Commands
// that block longer (banner ticks, cursor blinks, cart listeners) are skipped.
const cmdTimeout = 250 * time.Millisecond

type fakeCatalog struct {
	mu       sync.Mutex
	products []catalog.Product
	searches []string
	fail     bool
}

func newFakeCatalog(n int) *fakeCatalog {
	f := &fakeCatalog{}
	for i := 1; i <= n; i++ {
		f.products = append(f.products, catalog.Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %02d", i),
			Price:    float64(i) + 0.99,
			Rating:   float64(i%5) + 0.5,
			Stock:    i,
			Category: []string{"beauty", "groceries"}[i%2],
		})
	}
	return f
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	skip, _ := strconv.Atoi(q.Get("skip"))
	switch {
	case r.URL.Path == "/products":
		writeJSON(w, f.page(f.products, limit, skip))
	case r.URL.Path == "/products/search":
		f.searches = append(f.searches, q.Get("q"))
		var matches []catalog.Product
		for _, p := range f.products {
			if strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Get("q"))) {
				matches = append(matches, p)
			}
		}
		writeJSON(w, f.page(matches, limit, skip))
	case r.URL.Path == "/products/categories":
		writeJSON(w, []map[string]string{{"slug": "beauty", "name": "Beauty"}, {"slug": "groceries", "name": "Groceries"}})
	case strings.HasPrefix(r.URL.Path, "/products/category/"):
		name := strings.TrimPrefix(r.URL.Path, "/products/category/")
		var matches []catalog.Product
		for _, p := range f.products {
			if p.Category == name {
				matches = append(matches, p)
			}
		}
		writeJSON(w, f.page(matches, limit, 0))
	default:
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/products/"))
		if err != nil || id < 1 || id > len(f.products) {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, f.products[id-1])
	}
}

func (f *fakeCatalog) page(all []catalog.Product, limit, skip int) catalog.Page {
	if limit <= 0 {
		limit = 30
	}
	end := min(len(all), skip+limit)
	start := min(skip, end)
	return catalog.Page{Products: all[start:end], Total: len(all), Skip: skip, Limit: limit}
}

func (f *fakeCatalog) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeCatalog) searchLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type failingPlacer struct{}

func (failingPlacer) Place(context.Context, order.Request) (order.Order, error) {
	return order.Order{}, errors.New("order service unavailable")
}

func newTestApp(t *testing.T, fake *fakeCatalog, opts ...AppOption) *App {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitStorefrontDir(projectDir); err != nil {
		t.Fatalf("init storefront dir: %v", err)
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Project.Catalog.BaseURL = server.URL
	cfg.Project.UI.BannerInterval = time.Hour
	cfg.Project.UI.SearchDebounce = 20 * time.Millisecond

	store := cart.NewStore(storage.NewMemoryStore())
	t.Cleanup(func() { _ = store.Close() })
	baseOpts := []AppOption{WithPlacer(&order.SimulatedPlacer{})}
	app, err := NewApp(cfg, store, append(baseOpts, opts...)...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return runCommands(t, app, app.Init())
}

// runCommands executes cmd and every command it produces, expanding
// batches, and feeds the resulting messages back into the App.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, done := execCmd(next)
		if !done || msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		queue = append(queue, nextCmd)
	}
	return app
}

func execCmd(cmd tea.Cmd) (tea.Msg, bool) {
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()
	select {
	case msg := <-result:
		return msg, true
	case <-time.After(cmdTimeout):
		return nil, false
	}
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, cmd := app.Update(msg)
		app = runCommands(t, model, cmd)
	}
	return app
}

// typeText delivers every rune before running any command, so debounce
// ticks from earlier keystrokes are already stale when they fire.
func typeText(t *testing.T, app *App, text string) *App {
	t.Helper()
	var cmds []tea.Cmd
	for _, r := range text {
		model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = model.(*App)
		cmds = append(cmds, cmd)
	}
	return runCommands(t, app, tea.Batch(cmds...))
}

func TestHomeLoadsSectionsAndCategories(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(25))
	home := app.home
	if home.loading {
		t.Fatalf("home still loading")
	}
	if len(home.products) != 10 {
		t.Fatalf("expected first page of 10, got %d", len(home.products))
	}
	if len(home.featured) != 5 || home.featured[0].ID != 1 {
		t.Fatalf("unexpected featured: %+v", home.featured)
	}
	if len(home.trending) != 5 {
		t.Fatalf("expected 5 trending products, got %d", len(home.trending))
	}
	for i := 1; i < len(home.trending); i++ {
		if home.trending[i-1].Rating < home.trending[i].Rating {
			t.Fatalf("trending not sorted by rating: %+v", home.trending)
		}
	}
	if !home.hasMore {
		t.Fatalf("expected more pages")
	}
	if strings.Join(home.categories, ",") != "beauty,groceries" {
		t.Fatalf("unexpected categories %v", home.categories)
	}
	if !strings.Contains(app.View(), "Featured Products") {
		t.Fatalf("home view missing featured section")
	}
}

func TestHomeLoadsNextPageAtEnd(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(15))
	for i := 0; i < 9; i++ {
		app = press(t, app, "down")
	}
	if got := len(app.home.products); got != 15 {
		t.Fatalf("expected second page appended, got %d products", got)
	}
	if app.home.hasMore {
		t.Fatalf("expected no further pages")
	}
	if app.home.page != 1 {
		t.Fatalf("page = %d, want 1", app.home.page)
	}
}

func TestHomeCategoryCycle(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(12))
	app = press(t, app, "c")
	if app.home.selectedCategory() != "beauty" {
		t.Fatalf("expected beauty, got %q", app.home.selectedCategory())
	}
	for _, p := range app.home.products {
		if p.Category != "beauty" {
			t.Fatalf("unexpected product in category listing: %+v", p)
		}
	}
	if app.home.hasMore {
		t.Fatalf("category listings are not paginated")
	}
	app = press(t, app, "c", "c")
	if app.home.selectedCategory() != "" || len(app.home.products) != 10 {
		t.Fatalf("expected cycling back to all products")
	}
}

func TestHomeDropsNextPageAfterCategoryChange(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(25))
	app.home.list.Select(len(app.home.products) - 1)
	pending := app.home.maybeLoadMore()
	if pending == nil {
		t.Fatalf("expected a next-page request at the end of the list")
	}
	app = press(t, app, "c")
	if app.home.selectedCategory() != "beauty" {
		t.Fatalf("expected beauty, got %q", app.home.selectedCategory())
	}
	beauty := len(app.home.products)
	app = runCommands(t, app, pending)
	for _, p := range app.home.products {
		if p.Category != "beauty" {
			t.Fatalf("next page leaked into category listing: %+v", p)
		}
	}
	if len(app.home.products) != beauty || app.home.hasMore || app.home.loadingMore || app.home.page != 0 {
		t.Fatalf("after late page: products=%d (want %d) hasMore=%v loadingMore=%v page=%d",
			len(app.home.products), beauty, app.home.hasMore, app.home.loadingMore, app.home.page)
	}
}

func TestHomeDropsNextPageAfterRefresh(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(25))
	app.home.list.Select(len(app.home.products) - 1)
	pending := app.home.maybeLoadMore()
	if pending == nil {
		t.Fatalf("expected a next-page request at the end of the list")
	}
	app = press(t, app, "r")
	app = runCommands(t, app, pending)
	if len(app.home.products) != 10 || app.home.page != 0 {
		t.Fatalf("refresh should discard the late page: products=%d page=%d", len(app.home.products), app.home.page)
	}
	if app.home.loadingMore || !app.home.hasMore {
		t.Fatalf("expected paging to resume: loadingMore=%v hasMore=%v", app.home.loadingMore, app.home.hasMore)
	}
}

func TestHomeFailureKeepsList(t *testing.T) {
	fake := newFakeCatalog(12)
	app := newTestApp(t, fake)
	fake.setFail(true)
	app = press(t, app, "r")
	if len(app.home.products) != 10 {
		t.Fatalf("failed refresh should leave the list as-is, got %d", len(app.home.products))
	}
	if app.home.err == nil {
		t.Fatalf("expected error to be recorded")
	}
	lines, _ := app.logbook.Tail(20)
	if !strings.Contains(strings.Join(lines, "\n"), "Error fetching products") {
		t.Fatalf("expected failure in the log: %v", lines)
	}
}

func TestBannerRotation(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(3))
	for i := 0; i < len(catalog.Banners); i++ {
		app.Update(bannerTickMsg{})
	}
	if app.home.banner != 0 {
		t.Fatalf("banner should wrap around, got %d", app.home.banner)
	}
	app.Update(bannerTickMsg{})
	if app.home.banner != 1 {
		t.Fatalf("banner = %d, want 1", app.home.banner)
	}
}

func TestAddToCartFromDetails(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(12))
	app = press(t, app, "enter")
	if app.state != stateProductDetails || app.details == nil || app.details.product == nil {
		t.Fatalf("expected product details, state %d", app.state)
	}
	if !strings.Contains(app.View(), "Add to Cart") {
		t.Fatalf("details should offer Add to Cart")
	}
	// Product 1 has a stock of 1, so + is capped.
	app = press(t, app, "+", "+", "enter")
	if got := app.store.Quantity(1); got != 1 {
		t.Fatalf("quantity = %d, want 1", got)
	}
	if !strings.Contains(app.View(), "Update Cart") {
		t.Fatalf("details should offer Update Cart once in cart")
	}
	if !strings.Contains(app.View(), "🛒 1") {
		t.Fatalf("badge should show 1 item")
	}
	app = press(t, app, "esc")
	if app.state != stateHome {
		t.Fatalf("esc should return home, state %d", app.state)
	}
}

func TestDetailsUpdateCartSetsQuantity(t *testing.T) {
	fake := newFakeCatalog(12)
	app := newTestApp(t, fake)
	app.store.Add(fake.products[7], 2)
	app = runCommands(t, app, app.openProduct(8))
	if app.details.quantity != 2 {
		t.Fatalf("quantity selector should start at the cart quantity, got %d", app.details.quantity)
	}
	app = press(t, app, "+", "+", "-", "enter")
	if got := app.store.Quantity(8); got != 3 {
		t.Fatalf("Update Cart should set quantity to 3, got %d", got)
	}
	app = press(t, app, "-", "-", "-", "-")
	if app.details.quantity != 1 {
		t.Fatalf("quantity should floor at 1, got %d", app.details.quantity)
	}
}

func TestDetailsNotFound(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(3))
	app = runCommands(t, app, app.openProduct(404))
	if !strings.Contains(app.View(), "Product not found") {
		t.Fatalf("expected not found message")
	}
}

func TestSearchDebounceAndPagination(t *testing.T) {
	fake := newFakeCatalog(25)
	app := newTestApp(t, fake)
	app = press(t, app, "tab")
	if app.state != stateSearch {
		t.Fatalf("tab should open search, state %d", app.state)
	}
	app = typeText(t, app, "product")
	if app.search.query != "product" {
		t.Fatalf("query = %q", app.search.query)
	}
	for _, q := range fake.searchLog() {
		if q != "product" {
			t.Fatalf("stale debounced query sent: %v", fake.searchLog())
		}
	}
	if app.search.total != 25 || len(app.search.results) != 10 || !app.search.hasMore {
		t.Fatalf("unexpected first page: total=%d results=%d more=%v", app.search.total, len(app.search.results), app.search.hasMore)
	}
	if !strings.Contains(app.View(), "25 results found") {
		t.Fatalf("expected result count in view")
	}
	for i := 0; i < 9; i++ {
		app = press(t, app, "down")
	}
	if len(app.search.results) != 20 {
		t.Fatalf("expected second page appended, got %d", len(app.search.results))
	}
	app = press(t, app, "esc")
	if app.search.query != "" || len(app.search.results) != 0 || app.search.searched {
		t.Fatalf("esc should clear the search")
	}
}

func TestStaleDebounceTickIgnored(t *testing.T) {
	fake := newFakeCatalog(5)
	app := newTestApp(t, fake)
	app = press(t, app, "tab")
	app.search.seq = 3
	model, cmd := app.Update(searchDebounceMsg{seq: 2, query: "old"})
	app = runCommands(t, model, cmd)
	if len(fake.searchLog()) != 0 {
		t.Fatalf("stale tick should not search: %v", fake.searchLog())
	}
}

func TestSearchDropsLoadMoreFromEarlierRun(t *testing.T) {
	fake := newFakeCatalog(25)
	app := newTestApp(t, fake)
	app = press(t, app, "tab")
	app = typeText(t, app, "product")
	app.search.list.Select(len(app.search.results) - 1)
	pending := app.search.maybeLoadMore()
	if pending == nil {
		t.Fatalf("expected a load-more request at the end of the results")
	}
	model, cmd := app.Update(searchDebounceMsg{seq: app.search.seq, query: "product"})
	app = runCommands(t, model, cmd)
	if app.search.loadingMore {
		t.Fatalf("a new search should reset load-more state")
	}
	app = runCommands(t, app, pending)
	if len(app.search.results) != 10 || app.search.page != 0 {
		t.Fatalf("late page appended to new search: results=%d page=%d", len(app.search.results), app.search.page)
	}
	seen := map[int]bool{}
	for _, p := range app.search.results {
		if seen[p.ID] {
			t.Fatalf("duplicate product %d in results", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestSearchFailureClearsResults(t *testing.T) {
	fake := newFakeCatalog(5)
	app := newTestApp(t, fake)
	app = press(t, app, "tab")
	app = typeText(t, app, "prod")
	if len(app.search.results) == 0 {
		t.Fatalf("expected results")
	}
	fake.setFail(true)
	app = typeText(t, app, "u")
	if len(app.search.results) != 0 || app.search.hasMore {
		t.Fatalf("failed search should empty results")
	}
}

func TestCartScreenAdjustsQuantities(t *testing.T) {
	fake := newFakeCatalog(12)
	app := newTestApp(t, fake)
	app.store.Add(fake.products[4], 1)
	app.store.Add(fake.products[5], 2)
	app = press(t, app, "tab", "tab")
	if app.state != stateCart {
		t.Fatalf("expected cart tab, state %d", app.state)
	}
	app = press(t, app, "-")
	if got := app.store.Quantity(5); got != 1 {
		t.Fatalf("decrement must not go below 1, got %d", got)
	}
	app = press(t, app, "+", "+")
	if got := app.store.Quantity(5); got != 3 {
		t.Fatalf("quantity = %d, want 3", got)
	}
	app = press(t, app, "down", "d")
	if app.store.IsInCart(6) {
		t.Fatalf("d should remove the selected line")
	}
	if app.cart.ItemCount != 3 {
		t.Fatalf("cached cart not refreshed: %+v", app.cart)
	}
	app = press(t, app, "d")
	if !strings.Contains(app.View(), "Your Cart is Empty") {
		t.Fatalf("expected empty state")
	}
}

func TestCheckoutPlacesOrderAndResets(t *testing.T) {
	fake := newFakeCatalog(12)
	app := newTestApp(t, fake)
	app.store.Add(catalog.Product{ID: 1, Title: "Thing", Price: 20}, 2)
	app = press(t, app, "tab", "tab", "enter")
	if app.state != stateCheckout {
		t.Fatalf("expected checkout, state %d", app.state)
	}
	view := app.View()
	for _, want := range []string{"Credit Card", "Cash on Delivery", "$40.00", "$3.20", "$5.99", "$49.19"} {
		if !strings.Contains(view, want) {
			t.Fatalf("checkout view missing %s", want)
		}
	}
	app = press(t, app, "down", "down", "enter")
	if app.state != stateOrderConfirmation || app.confirmation == nil {
		t.Fatalf("expected confirmation, state %d", app.state)
	}
	if app.confirmation.order.PaymentMethod != order.UPI {
		t.Fatalf("payment method = %s", app.confirmation.order.PaymentMethod)
	}
	if !strings.HasPrefix(app.confirmation.order.ID, "ORD-") || !strings.Contains(app.View(), app.confirmation.order.ID) {
		t.Fatalf("confirmation should show the order id")
	}
	if !app.store.Cart().Empty() || app.cart.ItemCount != 0 {
		t.Fatalf("cart should be cleared after the order")
	}
	if len(app.history) != 0 {
		t.Fatalf("navigation stack should be reset")
	}
	app = press(t, app, "enter")
	if app.state != stateHome || app.confirmation != nil {
		t.Fatalf("continue shopping should reset to home, state %d", app.state)
	}
}

func TestCheckoutFailureShowsAlert(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(3), WithPlacer(failingPlacer{}))
	app.store.Add(catalog.Product{ID: 1, Title: "Thing", Price: 60}, 1)
	app = press(t, app, "tab", "tab", "enter", "enter")
	if app.state != stateCheckout {
		t.Fatalf("failure should stay on checkout, state %d", app.state)
	}
	if !strings.Contains(app.View(), "Failed to place order. Please try again.") {
		t.Fatalf("expected failure alert")
	}
	if app.store.Cart().ItemCount != 1 {
		t.Fatalf("cart must be untouched on failure")
	}
	if !strings.Contains(app.View(), "FREE") {
		t.Fatalf("60.00 should ship free")
	}
}

func TestCheckoutEmptyState(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(3))
	app = runCommands(t, app, app.openCheckout())
	if !strings.Contains(app.View(), "Your cart is empty") {
		t.Fatalf("expected empty checkout state")
	}
}

func TestCartBadge(t *testing.T) {
	for count, want := range map[int]string{0: "0", 7: "7", 99: "99", 100: "99+", 250: "99+"} {
		if got := cartBadge(count); got != want {
			t.Fatalf("cartBadge(%d) = %q, want %q", count, got, want)
		}
	}
}

func TestCartUpdateMessageRefreshesBadge(t *testing.T) {
	app := newTestApp(t, newFakeCatalog(3))
	app.store.Add(catalog.Product{ID: 9, Price: 1}, 150)
	model, cmd := app.Update(cartUpdatedMsg{cart: app.store.Cart()})
	app = model.(*App)
	if cmd == nil {
		t.Fatalf("expected the cart listener to be re-armed")
	}
	if !strings.Contains(app.View(), "99+") {
		t.Fatalf("badge should cap at 99+")
	}
}
