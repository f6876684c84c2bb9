package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/pricing"
	"github.com/kingrea/storefront/internal/storage"
)

// StorageKey is the blob key the cart is saved under.
const StorageKey = "@ecommerce_cart"

const saveTimeout = 10 * time.Second

// Logger is the subset of the logbook the store writes to.
type Logger interface {
	Printf(format string, args ...any)
}

// Item is one product line in the cart.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price × quantity rounded to cents.
func (i Item) LineTotal() float64 {
	return pricing.LineTotal(i.Product.Price, i.Quantity)
}

// Cart is a derived, read-only view of the store.
type Cart struct {
	Items     []Item
	ItemCount int
	Total     float64
}

// Empty reports whether the cart holds no items.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Option customizes Store construction.
type Option func(*Store)

// WithLogger injects a logger for load and save failures.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithKey overrides the blob key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// Store is the authoritative cart. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	items  []Item
	loaded bool
	closed bool
	subs   map[*subscriber]struct{}

	blobs   storage.BlobStore
	key     string
	logger  Logger
	pending chan []Item
	done    chan struct{}
}

// NewStore builds an empty store persisting to blobs. A nil blob store keeps
// the cart in memory only.
func NewStore(blobs storage.BlobStore, opts ...Option) *Store {
	s := &Store{
		subs:    map[*subscriber]struct{}{},
		blobs:   blobs,
		key:     StorageKey,
		pending: make(chan []Item, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	go s.writeLoop()
	return s
}

// Load hydrates the store from the blob store. A missing or unreadable blob
// leaves the cart empty. Load never fails; problems are logged.
func (s *Store) Load(ctx context.Context) {
	var stored []Item
	found := false
	if s.blobs != nil {
		data, ok, err := s.blobs.Get(ctx, s.key)
		switch {
		case err != nil:
			s.logf("cart: load failed: %v", err)
		case ok:
			if err := json.Unmarshal(data, &stored); err != nil {
				s.logf("cart: discarding unreadable cart: %v", err)
			} else {
				found = true
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	if found {
		s.items = stored
	}
	s.loaded = true
	s.changedLocked()
}

// Loaded reports whether Load has finished.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Add merges quantity into the product's entry, appending a new entry when
// the product is not yet in the cart. Stock is not checked.
func (s *Store) Add(product catalog.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Item, len(s.items), len(s.items)+1)
	copy(next, s.items)
	if idx := indexOf(next, product.ID); idx >= 0 {
		next[idx].Quantity += quantity
	} else {
		next = append(next, Item{Product: product, Quantity: quantity})
	}
	s.items = next
	s.changedLocked()
}

// AddOne adds a single unit of product.
func (s *Store) AddOne(product catalog.Product) {
	s.Add(product, 1)
}

// Remove deletes the product's entry if present.
func (s *Store) Remove(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

// UpdateQuantity sets the product's quantity in place. A quantity of zero or
// less removes the entry. Unknown products are ignored.
func (s *Store) UpdateQuantity(productID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	idx := indexOf(s.items, productID)
	if idx < 0 {
		return
	}
	next := make([]Item, len(s.items))
	copy(next, s.items)
	next[idx].Quantity = quantity
	s.items = next
	s.changedLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.changedLocked()
}

// IsInCart reports whether the product has an entry.
func (s *Store) IsInCart(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.items, productID) >= 0
}

// Quantity returns the product's quantity, or 0 when absent.
func (s *Store) Quantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := indexOf(s.items, productID); idx >= 0 {
		return s.items[idx].Quantity
	}
	return 0
}

// Cart returns a snapshot with the item count and total derived from the
// current items. The Items slice belongs to the caller.
func (s *Store) Cart() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.items)
}

// Close flushes the pending save, stops the writer and ends every
// subscription. The store must not be mutated afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	close(s.pending)
	for sub := range s.subs {
		sub.close()
	}
	s.subs = map[*subscriber]struct{}{}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *Store) removeLocked(productID int) {
	idx := indexOf(s.items, productID)
	if idx < 0 {
		return
	}
	next := make([]Item, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	s.items = next
	s.changedLocked()
}

// changedLocked publishes the current items to subscribers and, once loaded,
// queues them for saving. Callers hold s.mu.
func (s *Store) changedLocked() {
	if s.closed {
		return
	}
	if s.loaded {
		s.scheduleSaveLocked(cloneItems(s.items))
	}
	s.publishLocked(snapshot(s.items))
}

// scheduleSaveLocked replaces any unsaved snapshot with items. The writer
// only ever sees the newest list, and saves happen in mutation order.
func (s *Store) scheduleSaveLocked(items []Item) {
	select {
	case <-s.pending:
	default:
	}
	s.pending <- items
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for items := range s.pending {
		s.save(items)
	}
}

func (s *Store) save(items []Item) {
	if s.blobs == nil {
		return
	}
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logf("cart: encode failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.logf("cart: save failed: %v", err)
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

func snapshot(items []Item) Cart {
	c := Cart{Items: cloneItems(items)}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		c.ItemCount += item.Quantity
		lines = append(lines, pricing.Line{Price: item.Product.Price, Quantity: item.Quantity})
	}
	c.Total = pricing.Subtotal(lines)
	return c
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, productID int) int {
	for i, item := range items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}
