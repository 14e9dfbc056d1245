// Package cart holds the shopper's bag: line items keyed by product and
// variant, persisted in full on every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

// StorageKey is where the serialized line items live.
const StorageKey = "beautivra-cart"

const persistTimeout = 2 * time.Second

type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	items   []domain.CartLineItem
	isOpen  bool
}

// Load restores the bag from storage. Missing or malformed data yields an
// empty bag; it is logged and never returned as an error. A failed read
// also starts empty; Registry.Get reports it instead.
func Load(ctx context.Context, s storage.Storage) *Store {
	store, err := load(ctx, s)
	if err != nil {
		slog.WarnContext(ctx, "cart load failed, starting empty", "error", err)
		return &Store{storage: s}
	}
	return store
}

// load is Load without the fallback for storage failures other than
// storage.ErrNotFound.
func load(ctx context.Context, s storage.Storage) (*Store, error) {
	store := &Store{storage: s}

	data, err := s.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		slog.WarnContext(ctx, "error parsing cart, starting empty", "error", err)
		return store, nil
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			slog.WarnContext(ctx, "dropping stored cart item without quantity", "product_id", item.ProductID)
			continue
		}
		store.items = append(store.items, item)
	}
	return store, nil
}

// ErrQuantityLimit is returned by AddItemUpTo when the line would exceed
// its limit.
var ErrQuantityLimit = errors.New("line quantity limit exceeded")

// AddItem snapshots product into the bag. An existing (product, variant)
// line is incremented in place; a non-positive quantity counts as one.
func (s *Store) AddItem(ctx context.Context, product *domain.Product, variant *string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.add(ctx, product, variant, quantity, 0)
}

// AddItemUpTo is AddItem refusing to grow the line past limit. The bag is
// left unchanged when it refuses.
func (s *Store) AddItemUpTo(ctx context.Context, product *domain.Product, variant *string, quantity, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.add(ctx, product, variant, quantity, limit)
}

func (s *Store) add(ctx context.Context, product *domain.Product, variant *string, quantity, limit int) error {
	if quantity <= 0 {
		quantity = 1
	}

	i := s.indexOf(product.ID, variant)
	total := quantity
	if i >= 0 {
		total += s.items[i].Quantity
	}
	if limit > 0 && total > limit {
		return ErrQuantityLimit
	}

	if i >= 0 {
		s.items[i].Quantity = total
		s.persist(ctx)
		return nil
	}

	s.items = append(s.items, domain.CartLineItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.PrimaryImageURL(),
		Variant:      cloneVariant(variant),
		Price:        product.Price.Add(product.PriceModifier(variant)),
		Quantity:     quantity,
	})
	s.persist(ctx)
	return nil
}

// RemoveItem drops the matching line. Missing lines are ignored.
func (s *Store) RemoveItem(ctx context.Context, productID string, variant *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(ctx, productID, variant)
}

// UpdateQuantity replaces the quantity of the matching line; zero or less
// removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, variant *string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(ctx, productID, variant)
		return
	}

	i := s.indexOf(productID, variant)
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.persist(ctx)
}

// Clear empties the bag. Drawer visibility is left alone.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

func (s *Store) Open() {
	s.mu.Lock()
	s.isOpen = true
	s.mu.Unlock()
}

func (s *Store) Close() {
	s.mu.Lock()
	s.isOpen = false
	s.mu.Unlock()
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartLineItem, len(s.items))
	for i, item := range s.items {
		item.Variant = cloneVariant(item.Variant)
		out[i] = item
	}
	return out
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return subtotal(s.items)
}

// FreeShippingRemaining is how much more the shopper has to spend to reach
// threshold, never negative.
func (s *Store) FreeShippingRemaining(threshold decimal.Decimal) decimal.Decimal {
	remaining := threshold.Sub(s.Subtotal())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (s *Store) remove(ctx context.Context, productID string, variant *string) {
	i := s.indexOf(productID, variant)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

func (s *Store) indexOf(productID string, variant *string) int {
	for i, item := range s.items {
		if item.Matches(productID, variant) {
			return i
		}
	}
	return -1
}

// persist overwrites the stored bag. Failures are logged; the in-memory
// state stays authoritative for the session.
func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.ErrorContext(ctx, "marshal cart failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		slog.ErrorContext(ctx, "cart persist failed", "error", err)
	}
}

func subtotal(items []domain.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func cloneVariant(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
