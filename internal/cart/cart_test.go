package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoreFront/internal/cart"
	"StoreFront/internal/catalog"
	"StoreFront/internal/kv"
)

var (
	mug    = catalog.Item{ID: "1", Title: "Mug", Price: 9.99, Images: []string{"mug.png"}}
	poster = catalog.Item{ID: "2", Title: "Poster", Price: 15.5}
)

func TestCart_AddAndTotals(t *testing.T) {
	ctx := context.Background()
	c := cart.Open(ctx, kv.NewMemStore(), nil)

	c.AddItem(ctx, mug, 1, "")
	c.AddItem(ctx, mug, 1, "")

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, "19.98", c.Total().String())

	line := c.Lines()[0]
	assert.Equal(t, "Mug", line.Title)
	assert.Equal(t, "mug.png", line.Image)

	c.SetQuantity(ctx, "1", "", 0)
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Count())
	assert.True(t, c.Total().IsZero())
}

func TestCart_VariantsAreSeparateLines(t *testing.T) {
	ctx := context.Background()
	c := cart.Open(ctx, kv.NewMemStore(), nil)

	c.AddItem(ctx, poster, 1, "A3")
	c.AddItem(ctx, poster, 2, "A4")
	c.AddItem(ctx, poster, 1, "A3")

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 2, lines[1].Quantity)

	c.RemoveItem(ctx, "2", "A4")
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, "A3", c.Lines()[0].Variant)
}

func TestCart_QuantityEdgeCases(t *testing.T) {
	ctx := context.Background()
	c := cart.Open(ctx, kv.NewMemStore(), nil)

	c.AddItem(ctx, mug, 0, "")
	c.AddItem(ctx, mug, -3, "")
	assert.Equal(t, 2, c.Count())

	c.SetQuantity(ctx, "missing", "", 5)
	c.RemoveItem(ctx, "missing", "")
	assert.Equal(t, 1, c.Len())

	c.SetQuantity(ctx, "1", "", 7)
	assert.Equal(t, 7, c.Count())
	assert.Equal(t, "69.93", c.Total().String())

	c.SetQuantity(ctx, "1", "", -1)
	assert.Zero(t, c.Len())
}

func TestCart_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()

	c := cart.Open(ctx, store, nil)
	c.AddItem(ctx, mug, 2, "")
	c.AddItem(ctx, poster, 1, "A3")

	again := cart.Open(ctx, store, nil)
	assert.Equal(t, c.Lines(), again.Lines())
	assert.Equal(t, "35.48", again.Total().String())

	again.Clear(ctx)
	raw, ok, err := store.Get(ctx, cart.KeyCart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
	assert.Zero(t, cart.Open(ctx, store, nil).Len())
}

func TestCart_CorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	require.NoError(t, store.Set(ctx, cart.KeyCart, []byte(`{not json`)))

	c := cart.Open(ctx, store, nil)
	assert.Zero(t, c.Len())

	c.AddItem(ctx, mug, 1, "")
	assert.Equal(t, 1, cart.Open(ctx, store, nil).Len())
}

func TestCart_DropsNonPositiveLinesOnRestore(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	require.NoError(t, store.Set(ctx, cart.KeyCart,
		[]byte(`[{"id":"1","title":"Mug","price":9.99,"quantity":0},{"id":2,"title":"Poster","price":15.5,"quantity":1}]`)))

	c := cart.Open(ctx, store, nil)
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, catalog.ItemID("2"), c.Lines()[0].ItemID)
}

type failingStore struct {
	*kv.MemStore
	failKey string
}

func (f failingStore) Set(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemStore.Set(ctx, key, value)
}

func TestCart_SaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	c := cart.Open(ctx, failingStore{MemStore: kv.NewMemStore(), failKey: cart.KeyCart}, nil)

	c.AddItem(ctx, mug, 3, "")
	assert.Equal(t, 3, c.Count())
}

func TestCart_Checkout(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	c := cart.Open(ctx, store, nil)

	_, err := c.Checkout(ctx)
	require.ErrorIs(t, err, cart.ErrEmptyCart)

	c.AddItem(ctx, mug, 2, "")
	c.AddItem(ctx, poster, 1, "")

	o, err := c.Checkout(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^o_[0-9a-f-]{36}$`, o.ID)
	assert.Equal(t, 3, o.Count)
	assert.Equal(t, "35.48", o.Total.String())
	assert.Equal(t, cart.StatusPlaced, o.Status)
	assert.Len(t, o.Lines, 2)
	assert.Zero(t, c.Len())

	c.AddItem(ctx, poster, 1, "")
	_, err = c.Checkout(ctx)
	require.NoError(t, err)

	orders := cart.Open(ctx, store, nil).Orders(ctx)
	require.Len(t, orders, 2)
	assert.Equal(t, o.ID, orders[0].ID)
	assert.Equal(t, "15.5", orders[1].Total.String())
}

func TestCart_CheckoutKeepsCartWhenHistoryFails(t *testing.T) {
	ctx := context.Background()
	c := cart.Open(ctx, failingStore{MemStore: kv.NewMemStore(), failKey: cart.KeyOrders}, nil)
	c.AddItem(ctx, mug, 1, "")

	_, err := c.Checkout(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrStorage)
	assert.Equal(t, 1, c.Len())
}

func TestCart_OrdersEmpty(t *testing.T) {
	ctx := context.Background()
	orders := cart.Open(ctx, kv.NewMemStore(), nil).Orders(ctx)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

// flakyReads fails the next fails reads of failKey.
type flakyReads struct {
	*kv.MemStore
	failKey string
	fails   *int
}

func (f flakyReads) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == f.failKey && *f.fails > 0 {
		*f.fails--
		return nil, false, errors.New("i/o timeout")
	}
	return f.MemStore.Get(ctx, key)
}

func TestCart_CheckoutKeepsHistoryWhenUnreadable(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemStore()
	fails := 0
	store := flakyReads{MemStore: mem, failKey: cart.KeyOrders, fails: &fails}

	c := cart.Open(ctx, store, nil)
	for range 3 {
		c.AddItem(ctx, mug, 1, "")
		_, err := c.Checkout(ctx)
		require.NoError(t, err)
	}

	c.AddItem(ctx, poster, 1, "")
	fails = 1
	_, err := c.Checkout(ctx)
	require.ErrorIs(t, err, kv.ErrRead)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, c.Orders(ctx), 3)

	_, err = c.Checkout(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Orders(ctx), 4)
}

func TestCart_UnreadableCartIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemStore()
	cart.Open(ctx, mem, nil).AddItem(ctx, mug, 2, "")

	fails := 1
	c := cart.Open(ctx, flakyReads{MemStore: mem, failKey: cart.KeyCart, fails: &fails}, nil)
	require.ErrorIs(t, c.Err(), kv.ErrRead)
	assert.Zero(t, c.Len())

	c.AddItem(ctx, poster, 1, "")
	c.Clear(ctx)
	_, err := c.Checkout(ctx)
	require.ErrorIs(t, err, kv.ErrRead)

	lines := cart.Open(ctx, mem, nil).Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, mug.ID, lines[0].ItemID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCart_CorruptBlobIsWritable(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	require.NoError(t, store.Set(ctx, cart.KeyOrders, []byte(`[{`)))

	c := cart.Open(ctx, store, nil)
	require.NoError(t, c.Err())
	c.AddItem(ctx, mug, 1, "")

	_, err := c.Checkout(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Orders(ctx), 1)
}

func TestCart_AddThenRemoveRestoresLines(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemStore()
	c := cart.Open(ctx, store, nil)
	c.AddItem(ctx, mug, 2, "")
	c.AddItem(ctx, poster, 1, "A3")

	before := c.Lines()

	c.AddItem(ctx, poster, 4, "A2")
	c.RemoveItem(ctx, poster.ID, "A2")

	assert.Equal(t, before, c.Lines())
	assert.Equal(t, before, cart.Open(ctx, store, nil).Lines())
}
