package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/catalog"
)

const searchDebounceFallback = 500 * time.Millisecond

type searchMsg interface{ forSearch() }

// searchDebounceMsg fires once typing pauses. Only the tick whose seq still
// matches the view's seq triggers a request.
type searchDebounceMsg struct {
	seq   int
	query string
}

type searchResultsMsg struct {
	gen       int
	query     string
	page      catalog.Page
	pageIndex int
	append    bool
	err       error
}

func (searchDebounceMsg) forSearch() {}
func (searchResultsMsg) forSearch() {}

type searchView struct {
	app         *App
	input       textinput.Model
	list        list.Model
	results     []catalog.Product
	query       string
	seq         int
	searched    bool
	loading     bool
	loadingMore bool
	hasMore     bool
	page        int
	total       int
	// gen changes whenever a new search starts or the box is cleared.
	gen int
}

func newSearchView(app *App) *searchView {
	input := textinput.New()
	input.Placeholder = "Search products..."
	input.Prompt = "🔍 "
	input.CharLimit = 100
	return &searchView{
		app:   app,
		input: input,
		list:  newProductList("Results"),
	}
}

func (v *searchView) SetSize(width, height int) {
	v.input.Width = max(10, width-6)
	v.list.SetSize(width, max(4, height-4))
}

func (v *searchView) Focus() tea.Cmd {
	return v.input.Focus()
}

func (v *searchView) Blur() {
	v.input.Blur()
}

func (v *searchView) debounce() time.Duration {
	if d := v.app.config.SearchDebounce(); d > 0 {
		return d
	}
	return searchDebounceFallback
}

func (v *searchView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case searchDebounceMsg:
		if m.seq != v.seq {
			return nil
		}
		return v.start(m.query)

	case searchResultsMsg:
		return v.handleResults(m)

	case tea.KeyMsg:
		switch m.String() {
		case "esc":
			v.clear()
			return nil
		case "enter":
			if item, ok := v.list.SelectedItem().(productItem); ok {
				return v.app.openProduct(item.product.ID)
			}
			return nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			v.list, cmd = v.list.Update(msg)
			return tea.Batch(cmd, v.maybeLoadMore())
		}
		return v.updateInput(msg)
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// updateInput feeds the key to the text box and restarts the debounce
// timer when the text changed.
func (v *searchView) updateInput(msg tea.Msg) tea.Cmd {
	before := v.input.Value()
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	text := v.input.Value()
	if text == before {
		return cmd
	}
	v.seq++
	seq := v.seq
	return tea.Batch(cmd, tea.Tick(v.debounce(), func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq, query: text}
	}))
}

// start issues page 0 for query. A blank query clears the results.
func (v *searchView) start(query string) tea.Cmd {
	v.gen++
	v.query = query
	v.page = 0
	v.loadingMore = false
	if strings.TrimSpace(query) == "" {
		v.results = nil
		v.list.SetItems(nil)
		v.searched = false
		v.hasMore = false
		v.loading = false
		v.total = 0
		return nil
	}
	v.searched = true
	v.loading = true
	v.hasMore = true
	v.app.logInfo("Search · %q", query)
	return v.fetch(query, 0, false)
}

func (v *searchView) fetch(query string, pageIndex int, appendPage bool) tea.Cmd {
	client := v.app.catalog
	ctx := v.app.ctx
	limit := v.app.pageSize()
	gen := v.gen
	return func() tea.Msg {
		page, err := client.Search(ctx, query, limit, pageIndex*limit)
		return searchResultsMsg{gen: gen, query: query, page: page, pageIndex: pageIndex, append: appendPage, err: err}
	}
}

func (v *searchView) handleResults(m searchResultsMsg) tea.Cmd {
	if m.gen != v.gen || m.query != v.query {
		return nil
	}
	if m.append {
		v.loadingMore = false
	} else {
		v.loading = false
	}
	if m.err != nil {
		v.app.logError("Error searching products: %v", m.err)
		v.results = nil
		v.list.SetItems(nil)
		v.hasMore = false
		return nil
	}
	if m.append {
		v.results = append(v.results, m.page.Products...)
	} else {
		v.results = append([]catalog.Product(nil), m.page.Products...)
		v.list.Select(0)
	}
	v.list.SetItems(productItems(v.results))
	v.total = m.page.Total
	v.page = m.pageIndex
	v.hasMore = m.page.HasMore()
	return nil
}

func (v *searchView) maybeLoadMore() tea.Cmd {
	if v.loading || v.loadingMore || !v.hasMore || strings.TrimSpace(v.query) == "" {
		return nil
	}
	if len(v.results) == 0 || v.list.Index() < len(v.results)-1 {
		return nil
	}
	v.loadingMore = true
	return v.fetch(v.query, v.page+1, true)
}

// clear empties the box and drops any pending debounce.
func (v *searchView) clear() {
	v.seq++
	v.gen++
	v.input.SetValue("")
	v.query = ""
	v.results = nil
	v.list.SetItems(nil)
	v.searched = false
	v.hasMore = false
	v.loading = false
	v.loadingMore = false
	v.total = 0
}

func (v *searchView) View() string {
	lines := []string{v.input.View(), ""}
	switch {
	case v.loading:
		lines = append(lines, mutedStyle.Render("Searching..."))
	case !v.searched:
		lines = append(lines,
			titleStyle.Render("Search Products"),
			mutedStyle.Render("Start typing to search for products"))
	case len(v.results) == 0:
		lines = append(lines,
			titleStyle.Render("No Results Found"),
			mutedStyle.Render(fmt.Sprintf("We couldn't find any products matching %q", v.query)))
	default:
		lines = append(lines,
			mutedStyle.Render(fmt.Sprintf("%d results found", v.total)),
			v.list.View())
		if v.loadingMore {
			lines = append(lines, mutedStyle.Render("Loading more..."))
		}
	}
	lines = append(lines, mutedStyle.Render("↑/↓ → browse    enter → details    esc → clear"))
	return strings.Join(lines, "\n")
}
