package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Service exposes cart reads and mutations on top of a Repository.
type Service struct {
	lines Repository
}

// NewService creates a cart Service backed by the given repository.
func NewService(lines Repository) *Service {
	return &Service{lines: lines}
}

// Items returns the user's cart lines joined with live product data.
func (s *Service) Items(ctx context.Context, userID int64) ([]Line, error) {
	items, err := s.lines.Items(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart items")
	}
	return items, nil
}

// Totals computes the coupon-free subtotal, item count, and total for
// the user's cart. Pure aggregation: no locks, no mutation.
func (s *Service) Totals(ctx context.Context, userID int64) (Totals, error) {
	items, err := s.lines.Items(ctx, userID)
	if err != nil {
		return Totals{}, errors.Wrap(err, "load cart items")
	}
	return SumLines(items), nil
}

// SumLines aggregates totals over the given lines.
func SumLines(items []Line) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Shipping: decimal.Zero,
	}
	for _, l := range items {
		t.Subtotal = t.Subtotal.Add(l.Subtotal())
		t.TotalItems += l.Quantity
	}
	t.Total = t.Subtotal.Add(t.Shipping)
	return t
}

// Validate checks every line against current product state: inactive
// products and quantities above available stock are flagged. Advisory
// only; a concurrent checkout can still win the remaining stock, which
// the order-creation transaction resolves with its conditional decrement.
func (s *Service) Validate(ctx context.Context, userID int64) (Validation, error) {
	items, err := s.lines.Items(ctx, userID)
	if err != nil {
		return Validation{}, errors.Wrap(err, "load cart items")
	}
	return ValidateLines(items), nil
}

// ValidateLines applies the advisory checks to the given lines.
func ValidateLines(items []Line) Validation {
	var errs []string
	for _, l := range items {
		if !l.IsActive {
			errs = append(errs, fmt.Sprintf("%s is no longer available", l.ProductName))
		}
		if l.Quantity > l.StockQuantity {
			errs = append(errs, fmt.Sprintf("%s has only %d items in stock", l.ProductName, l.StockQuantity))
		}
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// Add puts quantity units of a product into the cart, merging with an
// existing line for the same product.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	if err := s.lines.Add(ctx, userID, productID, quantity); err != nil {
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// UpdateQuantity sets a line's quantity. A non-positive quantity
// removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	if err := s.lines.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		return errors.Wrap(err, "update cart quantity")
	}
	return nil
}

// Remove deletes a line from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	if err := s.lines.Remove(ctx, userID, productID); err != nil {
		return errors.Wrap(err, "remove cart item")
	}
	return nil
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.lines.Clear(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
