package catalog

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size the catalog API uses when none is requested.
	DefaultLimit = 20
	// ProductsPerPage is the page size the storefront screens request.
	ProductsPerPage = 10
	// LowStockThreshold marks a product as "Only N left" at or below this stock.
	LowStockThreshold = 10
)

// ProductTags are the promotional badges shown on product cards.
var ProductTags = []string{
	"Free Delivery",
	"Selling Fast",
	"Limited Stock",
	"Best Seller",
	"Hot Deal",
	"New Arrival",
}

// Product is a read-only copy of a catalog entry.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
	Tags               []string `json:"tags,omitempty"`
}

// Page is one slice of a paginated product listing.
type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// HasMore reports whether another page exists after this one.
func (p Page) HasMore() bool {
	return p.Skip+len(p.Products) < p.Total
}

// Banner is a promotional slide on the home screen.
type Banner struct {
	ID          int
	Title       string
	Image       string
	Description string
}

// Banners are the fixed home screen promotions.
var Banners = []Banner{
	{
		ID:          1,
		Title:       "Summer Sale",
		Image:       "https://dummyjson.com/image/400x200/008080/ffffff?text=Summer+Sale+50%25+OFF",
		Description: "Up to 50% off on selected items",
	},
	{
		ID:          2,
		Title:       "New Arrivals",
		Image:       "https://dummyjson.com/image/400x200/6366F1/ffffff?text=New+Arrivals",
		Description: "Check out our latest products",
	},
	{
		ID:          3,
		Title:       "Free Shipping",
		Image:       "https://dummyjson.com/image/400x200/10B981/ffffff?text=Free+Shipping",
		Description: "On orders above $50",
	},
}

// IsLowStock reports a positive stock at or below threshold.
func IsLowStock(stock, threshold int) bool {
	return stock > 0 && stock <= threshold
}

// IsOutOfStock reports a depleted product.
func IsOutOfStock(stock int) bool {
	return stock == 0
}

// StockLabel is the availability line shown on the details screen.
func (p Product) StockLabel() string {
	switch {
	case IsOutOfStock(p.Stock):
		return "Out of Stock"
	case IsLowStock(p.Stock, LowStockThreshold):
		return fmt.Sprintf("Only %d left", p.Stock)
	default:
		return "In Stock"
	}
}

// Tag picks a badge from tags deterministically by product id so the same
// product always shows the same badge.
func Tag(productID int, tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	idx := productID % len(tags)
	if idx < 0 {
		idx += len(tags)
	}
	return tags[idx]
}

// ImageURLs returns the gallery, falling back to the thumbnail.
func (p Product) ImageURLs() []string {
	if len(p.Images) > 0 {
		return p.Images
	}
	if p.Thumbnail == "" {
		return nil
	}
	return []string{p.Thumbnail}
}

// FormatRating renders a rating with one decimal place.
func FormatRating(rating float64) string {
	return fmt.Sprintf("%.1f", rating)
}

// Truncate shortens text to maxLength runes and appends an ellipsis.
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength < 0 {
		maxLength = 0
	}
	return strings.TrimSpace(string(runes[:maxLength])) + "..."
}
