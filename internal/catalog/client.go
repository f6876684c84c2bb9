package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the public demo catalog.
	DefaultBaseURL = "https://dummyjson.com"
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 30 * time.Second

	pathProducts   = "/products"
	pathSearch     = "/products/search"
	pathCategories = "/products/categories"
	pathCategory   = "/products/category"

	maxErrorBody = 4 << 10
)

// ErrNotFound is returned when the catalog answers 404.
var ErrNotFound = errors.New("catalog: not found")

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s returned %d", e.URL, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Logger records request diagnostics. logbook.Logbook satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// Client reads products from the REST catalog.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  Logger
	newID   func() string
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient overrides the transport used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. A client passed to WithHTTPClient is
// copied rather than modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger records request/response lines.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs overrides the X-Request-ID generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// NewClient builds a catalog client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  nopLogger{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the catalog root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Products lists a page of the full catalog.
func (c *Client) Products(ctx context.Context, limit, skip int) (Page, error) {
	var page Page
	if err := c.get(ctx, pathProducts, pageQuery(limit, skip), &page); err != nil {
		return Page{}, fmt.Errorf("catalog: list products: %w", err)
	}
	return page, nil
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int) (Product, error) {
	var product Product
	path := pathProducts + "/" + strconv.Itoa(id)
	if err := c.get(ctx, path, nil, &product); err != nil {
		return Product{}, fmt.Errorf("catalog: get product %d: %w", id, err)
	}
	return product, nil
}

// Search lists a page of products matching query.
func (c *Client) Search(ctx context.Context, query string, limit, skip int) (Page, error) {
	q := pageQuery(limit, skip)
	q.Set("q", query)
	var page Page
	if err := c.get(ctx, pathSearch, q, &page); err != nil {
		return Page{}, fmt.Errorf("catalog: search %q: %w", query, err)
	}
	return page, nil
}

// ByCategory lists the first limit products in category.
func (c *Client) ByCategory(ctx context.Context, category string, limit int) (Page, error) {
	if limit <= 0 {
		limit = ProductsPerPage
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	path := pathCategory + "/" + url.PathEscape(strings.TrimSpace(category))
	var page Page
	if err := c.get(ctx, path, q, &page); err != nil {
		return Page{}, fmt.Errorf("catalog: list category %q: %w", category, err)
	}
	return page, nil
}

// Categories returns the category slugs the catalog knows about. Both the
// legacy plain string list and the object form ({slug, name, url}) are read.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, pathCategories, nil, &raw); err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		var name string
		if err := json.Unmarshal(entry, &name); err == nil {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
			continue
		}
		var obj struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil {
			return nil, fmt.Errorf("catalog: decode category: %w", err)
		}
		switch {
		case strings.TrimSpace(obj.Slug) != "":
			out = append(out, strings.TrimSpace(obj.Slug))
		case strings.TrimSpace(obj.Name) != "":
			out = append(out, strings.TrimSpace(obj.Name))
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	reqID := c.newID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	c.logger.Printf("API Request: GET %s (%s)", target, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("API Response Error: %v (%s)", err, reqID)
		return err
	}
	defer resp.Body.Close()
	c.logger.Printf("API Response: %d %s (%s)", resp.StatusCode, target, reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, URL: target, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func pageQuery(limit, skip int) url.Values {
	if limit <= 0 {
		limit = ProductsPerPage
	}
	if skip < 0 {
		skip = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	return q
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
