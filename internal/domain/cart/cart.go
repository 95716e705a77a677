package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when an operation requires a non-empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// Line is a cart row joined with live product data. It is ephemeral:
// the unit price is resolved from the product at read time and is never
// snapshotted into the cart itself.
type Line struct {
	ProductID     int64
	ProductName   string
	UnitPrice     decimal.Decimal
	Quantity      int
	StockQuantity int
	IsActive      bool
}

// Subtotal returns UnitPrice * Quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds coupon-free cart totals. Shipping is flat zero for now;
// the field exists so a rate rule can land without changing callers.
type Totals struct {
	Subtotal   decimal.Decimal
	TotalItems int
	Shipping   decimal.Decimal
	Total      decimal.Decimal
}

// Validation is the advisory result of checking a cart against live
// product state. It reserves nothing: stock is only committed inside
// the order-creation transaction.
type Validation struct {
	Valid  bool
	Errors []string
}

// Repository defines persistence operations for cart line items.
// Add must upsert: an existing (user, product) row has its quantity
// incremented rather than duplicated.
type Repository interface {
	Items(ctx context.Context, userID int64) ([]Line, error)
	Add(ctx context.Context, userID, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}
