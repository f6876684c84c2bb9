package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/pricing"
)

const (
	featuredCount  = 5
	trendingStart  = 5
	trendingEnd    = 10
	bannerFallback = 5 * time.Second

	refreshingStatus = "Refreshing products..."
)

type homeMsg interface{ forHome() }

// homeLoadedMsg carries a page and, on a full load, the categories. gen is
// the view's load generation when the request was issued.
type homeLoadedMsg struct {
	gen        int
	page       catalog.Page
	pageIndex  int
	append     bool
	category   string
	categories []string
	err        error
}

type bannerTickMsg struct{}

func (homeLoadedMsg) forHome() {}
func (bannerTickMsg) forHome() {}

// productItem implements list.Item for product rows.
type productItem struct {
	product catalog.Product
}

func (i productItem) Title() string { return i.product.Title }
func (i productItem) Description() string {
	parts := []string{
		pricing.FormatCurrency(i.product.Price),
		"★ " + catalog.FormatRating(i.product.Rating),
	}
	if tag := catalog.Tag(i.product.ID, catalog.ProductTags); tag != "" {
		parts = append(parts, tag)
	}
	if catalog.IsOutOfStock(i.product.Stock) {
		parts = append(parts, "Out of Stock")
	}
	return strings.Join(parts, " · ")
}
func (i productItem) FilterValue() string { return i.product.Title }

func productItems(products []catalog.Product) []list.Item {
	items := make([]list.Item, 0, len(products))
	for _, p := range products {
		items = append(items, productItem{product: p})
	}
	return items
}

func newProductList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = titleStyle
	return l
}

type homeView struct {
	app         *App
	list        list.Model
	products    []catalog.Product
	featured    []catalog.Product
	trending    []catalog.Product
	categories  []string
	category    int // -1 shows every category
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	banner      int
	err         error
	// gen counts refreshes and filter changes; pages from older generations
	// are dropped.
	gen int
}

func newHomeView(app *App) *homeView {
	return &homeView{
		app:      app,
		list:     newProductList("All Products"),
		category: -1,
	}
}

func (v *homeView) Init() tea.Cmd {
	v.loading = true
	return tea.Batch(v.fetchFirstPage(true), v.scheduleBanner())
}

func (v *homeView) SetSize(width, height int) {
	v.list.SetSize(width, max(6, height-12))
}

func (v *homeView) selectedCategory() string {
	if v.category < 0 || v.category >= len(v.categories) {
		return ""
	}
	return v.categories[v.category]
}

// fetchFirstPage loads page 0 and, when withCategories is set, the category
// list alongside it.
func (v *homeView) fetchFirstPage(withCategories bool) tea.Cmd {
	client := v.app.catalog
	ctx := v.app.ctx
	limit := v.app.pageSize()
	category := v.selectedCategory()
	gen := v.gen
	return func() tea.Msg {
		msg := homeLoadedMsg{gen: gen, category: category}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			if category != "" {
				msg.page, err = client.ByCategory(gctx, category, catalog.DefaultLimit)
			} else {
				msg.page, err = client.Products(gctx, limit, 0)
			}
			return err
		})
		if withCategories {
			g.Go(func() error {
				categories, err := client.Categories(gctx)
				if err != nil {
					// Without categories the filter key is a no-op.
					return nil
				}
				msg.categories = categories
				return nil
			})
		}
		msg.err = g.Wait()
		return msg
	}
}

func (v *homeView) fetchNextPage() tea.Cmd {
	client := v.app.catalog
	ctx := v.app.ctx
	limit := v.app.pageSize()
	next := v.page + 1
	gen := v.gen
	category := v.selectedCategory()
	return func() tea.Msg {
		page, err := client.Products(ctx, limit, next*limit)
		return homeLoadedMsg{gen: gen, page: page, pageIndex: next, append: true, category: category, err: err}
	}
}

func (v *homeView) scheduleBanner() tea.Cmd {
	interval := v.app.config.BannerInterval()
	if interval <= 0 {
		interval = bannerFallback
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return bannerTickMsg{}
	})
}

func (v *homeView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case bannerTickMsg:
		if len(catalog.Banners) > 0 {
			v.banner = (v.banner + 1) % len(catalog.Banners)
		}
		return v.scheduleBanner()

	case homeLoadedMsg:
		return v.handleLoaded(m)

	case tea.KeyMsg:
		switch m.String() {
		case "enter":
			if item, ok := v.list.SelectedItem().(productItem); ok {
				return v.app.openProduct(item.product.ID)
			}
			return nil
		case "r":
			return v.refresh()
		case "c":
			return v.cycleCategory()
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return tea.Batch(cmd, v.maybeLoadMore())
}

func (v *homeView) handleLoaded(m homeLoadedMsg) tea.Cmd {
	if len(m.categories) > 0 {
		v.categories = m.categories
	}
	if m.gen != v.gen || m.category != v.selectedCategory() {
		// A refresh or filter change happened while this page was in flight.
		return nil
	}
	if m.append {
		v.loadingMore = false
	} else {
		v.loading = false
		if v.app.statusMsg == refreshingStatus {
			v.app.statusMsg = ""
		}
	}
	if m.err != nil {
		v.err = m.err
		v.app.logError("Error fetching products: %v", m.err)
		return nil
	}
	v.err = nil
	if m.append {
		v.products = append(v.products, m.page.Products...)
		v.list.SetItems(productItems(v.products))
	} else {
		v.products = append([]catalog.Product(nil), m.page.Products...)
		v.featured, v.trending = sections(v.products)
		v.list.SetItems(productItems(v.products))
		v.list.Select(0)
	}
	v.page = m.pageIndex
	// Category listings are fetched in one request.
	v.hasMore = m.category == "" && m.page.HasMore()
	return nil
}

// sections splits the first page into featured and trending rows.
func sections(products []catalog.Product) (featured, trending []catalog.Product) {
	featured = append(featured, products[:min(featuredCount, len(products))]...)
	if len(products) > trendingStart {
		trending = append(trending, products[trendingStart:min(trendingEnd, len(products))]...)
		sort.SliceStable(trending, func(i, j int) bool {
			return trending[i].Rating > trending[j].Rating
		})
	}
	return featured, trending
}

// maybeLoadMore requests the next page once the cursor reaches the end.
func (v *homeView) maybeLoadMore() tea.Cmd {
	if v.loading || v.loadingMore || !v.hasMore {
		return nil
	}
	if len(v.products) == 0 || v.list.Index() < len(v.products)-1 {
		return nil
	}
	v.loadingMore = true
	return v.fetchNextPage()
}

// restart starts a new load generation so in-flight pages are ignored.
func (v *homeView) restart() {
	v.gen++
	v.loading = true
	v.loadingMore = false
	v.page = 0
}

func (v *homeView) refresh() tea.Cmd {
	v.restart()
	v.hasMore = true
	v.app.statusMsg = refreshingStatus
	return v.fetchFirstPage(len(v.categories) == 0)
}

func (v *homeView) cycleCategory() tea.Cmd {
	if len(v.categories) == 0 {
		v.app.statusMsg = "No categories available"
		return nil
	}
	v.category++
	if v.category >= len(v.categories) {
		v.category = -1
	}
	if name := v.selectedCategory(); name != "" {
		v.app.statusMsg = fmt.Sprintf("Category: %s", name)
		v.list.Title = fmt.Sprintf("Category · %s", name)
	} else {
		v.app.statusMsg = "Category: all"
		v.list.Title = "All Products"
	}
	v.app.logInfo("Home · %s", v.app.statusMsg)
	v.restart()
	return v.fetchFirstPage(false)
}

func (v *homeView) View() string {
	sectionsView := []string{v.renderBanner()}
	if v.loading && len(v.products) == 0 {
		sectionsView = append(sectionsView, "", mutedStyle.Render("Loading products..."))
		return strings.Join(sectionsView, "\n")
	}
	if v.err != nil && len(v.products) == 0 {
		sectionsView = append(sectionsView, "", warnStyle.Render("Could not load products. Press r to retry."))
		return strings.Join(sectionsView, "\n")
	}
	if len(v.featured) > 0 {
		sectionsView = append(sectionsView, "", renderShelf("Featured Products", v.featured))
	}
	if len(v.trending) > 0 {
		sectionsView = append(sectionsView, renderShelf("Trending Now", v.trending))
	}
	sectionsView = append(sectionsView, "", v.list.View())
	if v.loadingMore {
		sectionsView = append(sectionsView, mutedStyle.Render("Loading more..."))
	}
	hint := mutedStyle.Render("enter → details    r → refresh    c → category")
	sectionsView = append(sectionsView, hint)
	return strings.Join(sectionsView, "\n")
}

func (v *homeView) renderBanner() string {
	if len(catalog.Banners) == 0 {
		return ""
	}
	b := catalog.Banners[v.banner%len(catalog.Banners)]
	dots := make([]string, len(catalog.Banners))
	for i := range catalog.Banners {
		if i == v.banner%len(catalog.Banners) {
			dots[i] = "●"
		} else {
			dots[i] = "○"
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s\n%s",
			priceStyle.Render(b.Title),
			mutedStyle.Render(b.Description),
			mutedStyle.Render(strings.Join(dots, " "))))
}

// renderShelf draws a compact horizontal row of product cards.
func renderShelf(title string, products []catalog.Product) string {
	cards := make([]string, 0, len(products))
	for _, p := range products {
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Width(18).
			Render(fmt.Sprintf("%s\n%s ★%s",
				catalog.Truncate(p.Title, 15),
				priceStyle.Render(pricing.FormatCurrency(p.Price)),
				catalog.FormatRating(p.Rating))))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		lipgloss.JoinHorizontal(lipgloss.Top, cards...))
}
