package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCartRepo struct {
	items   []Line
	added   map[int64]int
	updated map[int64]int
	removed []int64
	cleared bool
}

func newFakeCartRepo(items ...Line) *fakeCartRepo {
	return &fakeCartRepo{
		items:   items,
		added:   make(map[int64]int),
		updated: make(map[int64]int),
	}
}

func (f *fakeCartRepo) Items(context.Context, int64) ([]Line, error) {
	return f.items, nil
}

func (f *fakeCartRepo) Add(_ context.Context, _ int64, productID int64, quantity int) error {
	f.added[productID] += quantity
	return nil
}

func (f *fakeCartRepo) UpdateQuantity(_ context.Context, _ int64, productID int64, quantity int) error {
	f.updated[productID] = quantity
	return nil
}

func (f *fakeCartRepo) Remove(_ context.Context, _ int64, productID int64) error {
	f.removed = append(f.removed, productID)
	return nil
}

func (f *fakeCartRepo) Clear(context.Context, int64) error {
	f.cleared = true
	return nil
}

func line(id int64, price string, qty, stock int) Line {
	return Line{
		ProductID:     id,
		ProductName:   "product",
		UnitPrice:     decimal.RequireFromString(price),
		Quantity:      qty,
		StockQuantity: stock,
		IsActive:      true,
	}
}

func TestSumLines(t *testing.T) {
	totals := SumLines([]Line{
		line(1, "100.00", 2, 10),
		line(2, "49.50", 1, 10),
	})

	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("249.50")),
		"subtotal: got %s", totals.Subtotal)
	assert.Equal(t, 3, totals.TotalItems)
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.Total.Equal(totals.Subtotal))
}

func TestSumLines_Empty(t *testing.T) {
	totals := SumLines(nil)

	assert.True(t, totals.Subtotal.IsZero())
	assert.Equal(t, 0, totals.TotalItems)
}

func TestValidateLines(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		v := ValidateLines([]Line{line(1, "10.00", 2, 5)})
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
	})

	t.Run("inactive product", func(t *testing.T) {
		l := line(1, "10.00", 1, 5)
		l.IsActive = false
		l.ProductName = "Old Gadget"

		v := ValidateLines([]Line{l})
		assert.False(t, v.Valid)
		require.Len(t, v.Errors, 1)
		assert.Equal(t, "Old Gadget is no longer available", v.Errors[0])
	})

	t.Run("over stock", func(t *testing.T) {
		l := line(1, "10.00", 6, 5)
		l.ProductName = "Sneakers"

		v := ValidateLines([]Line{l})
		assert.False(t, v.Valid)
		require.Len(t, v.Errors, 1)
		assert.Equal(t, "Sneakers has only 5 items in stock", v.Errors[0])
	})

	t.Run("both problems reported", func(t *testing.T) {
		l := line(1, "10.00", 6, 5)
		l.IsActive = false

		v := ValidateLines([]Line{l})
		assert.False(t, v.Valid)
		assert.Len(t, v.Errors, 2)
	})
}

func TestServiceAdd(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewService(repo)

	require.NoError(t, svc.Add(context.Background(), 1, 42, 2))
	assert.Equal(t, 2, repo.added[42])

	err := svc.Add(context.Background(), 1, 42, 0)
	assert.Error(t, err)
}

func TestServiceUpdateQuantity(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewService(repo)

	require.NoError(t, svc.UpdateQuantity(context.Background(), 1, 42, 3))
	assert.Equal(t, 3, repo.updated[42])

	// Zero or negative removes the line instead.
	require.NoError(t, svc.UpdateQuantity(context.Background(), 1, 43, 0))
	assert.Equal(t, []int64{43}, repo.removed)
}

func TestServiceTotals(t *testing.T) {
	repo := newFakeCartRepo(line(1, "100.00", 2, 10))
	svc := NewService(repo)

	totals, err := svc.Totals(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("200.00")))
}
