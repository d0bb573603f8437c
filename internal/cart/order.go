package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"StoreFront/internal/kv"
)

const KeyOrders = "orders"

var ErrEmptyCart = errors.New("cart is empty")

type Order struct {
	ID        string          `json:"id"`
	Lines     []Line          `json:"lines"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

const StatusPlaced = "PLACED"

// Checkout turns the cart into an order, appends it to the order history
// and empties the cart. If the history cannot be read or written the cart
// is left untouched. A corrupt history is replaced.
func (c *Cart) Checkout(ctx context.Context) (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return Order{}, fmt.Errorf("load cart: %w", c.readErr)
	}
	if len(c.lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	o := Order{
		ID:        "o_" + uuid.NewString(),
		Lines:     slices.Clone(c.lines),
		Count:     countOf(c.lines),
		Total:     totalOf(c.lines),
		Status:    StatusPlaced,
		CreatedAt: time.Now().UTC(),
	}

	history, err := kv.LoadJSON[[]Order](ctx, c.store, KeyOrders)
	switch {
	case errors.Is(err, kv.ErrRead):
		return Order{}, fmt.Errorf("load order history: %w", err)
	case err != nil:
		c.log.Warn("order history corrupt, starting a new one", zap.Error(err))
	}
	if err := kv.SaveJSON(ctx, c.store, KeyOrders, append(history, o)); err != nil {
		return Order{}, fmt.Errorf("record order: %w", err)
	}

	c.lines = nil
	c.persistLocked(ctx)
	return o, nil
}

// Orders returns the order history, oldest first. Unreadable history reads
// as empty.
func (c *Cart) Orders(ctx context.Context) []Order {
	history, err := kv.LoadJSON[[]Order](ctx, c.store, KeyOrders)
	if err != nil {
		c.log.Warn("order history unreadable", zap.Error(err))
	}
	if history == nil {
		return []Order{}
	}
	return history
}
