package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/storefront/internal/domain/cart"
)

const (
	// Lines join live product data: the effective unit price is the
	// sale price when set, else the regular price (COALESCE keeps that
	// decision in one place).
	cartItemsSQL = `SELECT ci.product_id, p.name, COALESCE(p.sale_price, p.price),
		ci.quantity, p.stock_quantity, p.is_active
		FROM cart_items ci
		INNER JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at DESC`

	// Upsert: an existing (user, product) row gets its quantity
	// incremented rather than duplicated.
	cartAddSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	cartUpdateSQL = `UPDATE cart_items SET quantity = $3
		WHERE user_id = $1 AND product_id = $2`

	cartRemoveSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	cartClearSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Items returns the user's cart lines joined with live product data.
func (r *CartRepository) Items(ctx context.Context, userID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, cartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart for user %d: %w", userID, err)
	}

	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("loading cart for user %d: %w", userID, err)
	}
	return lines, nil
}

// Add upserts a cart line for (user, product).
func (r *CartRepository) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if _, err := r.pool.Exec(ctx, cartAddSQL, userID, productID, quantity); err != nil {
		return fmt.Errorf("adding product %d to cart: %w", productID, err)
	}
	return nil
}

// UpdateQuantity sets the quantity on an existing line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if _, err := r.pool.Exec(ctx, cartUpdateSQL, userID, productID, quantity); err != nil {
		return fmt.Errorf("updating cart quantity for product %d: %w", productID, err)
	}
	return nil
}

// Remove deletes a line from the user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID, productID int64) error {
	if _, err := r.pool.Exec(ctx, cartRemoveSQL, userID, productID); err != nil {
		return fmt.Errorf("removing product %d from cart: %w", productID, err)
	}
	return nil
}

// Clear empties the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, cartClearSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ProductID, &l.ProductName, &l.UnitPrice,
		&l.Quantity, &l.StockQuantity, &l.IsActive,
	)
	return l, err
}
