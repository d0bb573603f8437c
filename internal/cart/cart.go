// Package cart keeps a shopper's cart in a key-value store. The in-memory
// copy is hydrated on Open and written back after every mutation.
package cart

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const KeyCart = "cart"

// Line is one cart entry. Lines are unique by (ItemID, Variant); an empty
// Variant means no variant was chosen.
type Line struct {
	ItemID   catalog.ItemID `json:"id"`
	Title    string         `json:"title"`
	Price    float64        `json:"price"`
	Image    string         `json:"image,omitempty"`
	Quantity int            `json:"quantity"`
	Variant  string         `json:"variant,omitempty"`
}

func (l Line) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(id catalog.ItemID, variant string) bool {
	return l.ItemID == id && l.Variant == variant
}

type Cart struct {
	store kv.Store
	log   *zap.Logger

	mu    sync.Mutex
	lines []Line
	// readErr is set when the backend could not be read on Open. The cart
	// then never writes, so the saved lines survive.
	readErr error
}

// Open hydrates a cart from store. A missing, unreadable or corrupt blob
// yields an empty cart; the failure is logged. Check Err before mutating.
func Open(ctx context.Context, store kv.Store, log *zap.Logger) *Cart {
	c := &Cart{store: store, log: kit.OrNop(log)}

	lines, err := kv.LoadJSON[[]Line](ctx, store, KeyCart)
	if err != nil {
		c.log.Warn("cart restore failed, starting empty", zap.Error(err))
		if errors.Is(err, kv.ErrRead) {
			c.readErr = err
		}
	}
	for _, l := range lines {
		if l.Quantity > 0 {
			c.lines = append(c.lines, l)
		}
	}
	return c
}

// AddItem adds qty of it in the given variant. A non-positive qty counts
// as one. An existing line for the same item and variant is incremented.
func (c *Cart) AddItem(ctx context.Context, it catalog.Item, qty int, variant string) {
	if qty <= 0 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(it.ID, variant); i >= 0 {
		c.lines[i].Quantity += qty
	} else {
		c.lines = append(c.lines, Line{
			ItemID:   it.ID,
			Title:    it.Title,
			Price:    it.Price,
			Image:    it.Image(),
			Quantity: qty,
			Variant:  variant,
		})
	}
	c.persistLocked(ctx)
}

// RemoveItem drops the line for id and variant. Absent lines are ignored.
func (c *Cart) RemoveItem(ctx context.Context, id catalog.ItemID, variant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(ctx, id, variant)
}

func (c *Cart) removeLocked(ctx context.Context, id catalog.ItemID, variant string) {
	c.lines = slices.DeleteFunc(c.lines, func(l Line) bool { return l.matches(id, variant) })
	c.persistLocked(ctx)
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes the line.
// Absent lines are ignored.
func (c *Cart) SetQuantity(ctx context.Context, id catalog.ItemID, variant string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		c.removeLocked(ctx, id, variant)
		return
	}
	i := c.indexLocked(id, variant)
	if i < 0 {
		return
	}
	c.lines[i].Quantity = qty
	c.persistLocked(ctx)
}

func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.persistLocked(ctx)
}

// Total is the sum of price × quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.lines)
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return countOf(c.lines)
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Err reports a backend read failure from Open. A cart with a non-nil Err
// is read-only.
func (c *Cart) Err() error { return c.readErr }

func (c *Cart) indexLocked(id catalog.ItemID, variant string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.matches(id, variant) })
}

func (c *Cart) persistLocked(ctx context.Context) {
	if c.readErr != nil {
		c.log.Warn("cart not saved, stored lines were never read", zap.Error(c.readErr))
		return
	}
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	if err := kv.SaveJSON(ctx, c.store, KeyCart, lines); err != nil {
		c.log.Error("cart save failed", zap.Error(err))
	}
}

func totalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func countOf(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
