package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/storefront/internal/domain/coupon"
	"github.com/shopkart/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		user_id, order_number, subtotal, discount_amount, shipping_charge, total_amount,
		payment_method, payment_status, order_status, coupon_id, coupon_code, stock_committed,
		shipping_name, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_pincode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	// Conditional decrement: the WHERE guard plus the affected-row
	// check is what keeps stock from going negative under concurrent
	// checkouts. No row means someone else won the remaining stock.
	decrementStockSQL = `UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`

	restoreStockSQL = `UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`

	lockCouponSQL = `SELECT usage_limit_global, usage_limit_per_user
		FROM coupons WHERE id = $1 FOR UPDATE`

	insertCouponUsageSQL = `INSERT INTO coupon_usages (coupon_id, user_id, order_id)
		VALUES ($1, $2, $3)`

	// Compare-and-set confirmation: exactly one of the racing
	// confirmation paths (client callback vs webhook retry) observes a
	// row here; the rest see zero rows and report "already processed".
	// A cancelled order is never resurrected.
	confirmPaidSQL = `UPDATE orders
		SET payment_status = 'Paid', order_status = 'Confirmed', updated_at = now()
		WHERE id = $1 AND payment_status <> 'Paid' AND order_status <> 'Cancelled'
		RETURNING stock_committed`

	markStockCommittedSQL = `UPDATE orders
		SET stock_committed = TRUE, updated_at = now() WHERE id = $1`

	lockOrderForCancelSQL = `SELECT order_status, stock_committed
		FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`

	cancelOrderSQL = `UPDATE orders
		SET order_status = 'Cancelled', stock_committed = FALSE, updated_at = now()
		WHERE id = $1`

	markPaymentFailedSQL = `UPDATE orders
		SET payment_status = 'Failed', updated_at = now()
		WHERE id = $1 AND payment_status = 'Pending'`

	orderColumns = `id, user_id, order_number, subtotal, discount_amount, shipping_charge, total_amount,
		payment_method, payment_status, order_status, coupon_id, coupon_code, stock_committed,
		shipping_name, shipping_phone, shipping_address, shipping_city, shipping_state, shipping_pincode,
		created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE id = $1 AND ($2 = 0 OR user_id = $2)`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE order_number = $1 AND ($2 = 0 OR user_id = $2)`

	countOrdersByUserSQL = `SELECT COUNT(*) FROM orders WHERE user_id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	orderItemsSQL = `SELECT id, order_id, product_id, product_name, price, quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

// numberAttempts bounds retries when the generated order number
// collides with an existing one.
const numberAttempts = 3

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Creation and lifecycle transitions each run in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateCommitted persists the order with stock decremented per item
// and the coupon redemption recorded, all in one transaction.
func (r *OrderRepository) CreateCommitted(ctx context.Context, o *order.Order, items []order.Item) error {
	return r.create(ctx, o, items, true)
}

// CreatePending persists the order and its items without touching stock.
func (r *OrderRepository) CreatePending(ctx context.Context, o *order.Order, items []order.Item) error {
	return r.create(ctx, o, items, false)
}

func (r *OrderRepository) create(ctx context.Context, o *order.Order, items []order.Item, commitStock bool) error {
	for attempt := 1; ; attempt++ {
		err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			return insertOrderTx(ctx, tx, o, items, commitStock)
		})
		if err == nil {
			return nil
		}
		if isUniqueViolation(err, "orders_order_number_key") && attempt < numberAttempts {
			o.Number = order.NewNumber(time.Now())
			continue
		}
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}
}

func insertOrderTx(ctx context.Context, tx pgx.Tx, o *order.Order, items []order.Item, commitStock bool) error {
	err := tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.Number, o.Subtotal, o.DiscountAmount, o.ShippingCharge, o.TotalAmount,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.CouponID, o.CouponCode, commitStock,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Address,
		o.Shipping.City, o.Shipping.State, o.Shipping.Pincode,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}
	o.StockCommitted = commitStock

	for i := range items {
		items[i].OrderID = o.ID
		if err := tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, items[i].ProductID, items[i].ProductName,
			items[i].Price, items[i].Quantity, items[i].Subtotal,
		).Scan(&items[i].ID); err != nil {
			return err
		}

		if commitStock {
			if err := decrementStockTx(ctx, tx, items[i].ProductID, items[i].Quantity); err != nil {
				return err
			}
		}
	}

	if o.CouponID != nil {
		if err := redeemCouponTx(ctx, tx, *o.CouponID, o.UserID, o.ID); err != nil {
			return err
		}
	}

	return nil
}

func decrementStockTx(ctx context.Context, tx pgx.Tx, productID int64, quantity int) error {
	ct, err := tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &order.InsufficientStockError{ProductID: productID}
	}
	return nil
}

// redeemCouponTx re-checks the usage caps under a lock on the coupon
// row and appends the redemption. The validator checked the caps
// earlier without a lock; this is the authoritative check, so two
// racing checkouts cannot both take the last allowed redemption.
func redeemCouponTx(ctx context.Context, tx pgx.Tx, couponID, userID, orderID int64) error {
	var limitGlobal, limitPerUser int
	if err := tx.QueryRow(ctx, lockCouponSQL, couponID).Scan(&limitGlobal, &limitPerUser); err != nil {
		return err
	}

	if limitGlobal > 0 {
		var used int
		if err := tx.QueryRow(ctx, globalUsageSQL, couponID).Scan(&used); err != nil {
			return err
		}
		if used >= limitGlobal {
			return coupon.ErrUsageLimitReached
		}
	}
	if limitPerUser > 0 {
		var used int
		if err := tx.QueryRow(ctx, userUsageSQL, couponID, userID).Scan(&used); err != nil {
			return err
		}
		if used >= limitPerUser {
			return coupon.ErrUsageLimitReached
		}
	}

	_, err := tx.Exec(ctx, insertCouponUsageSQL, couponID, userID, orderID)
	return err
}

// ConfirmPaid applies the Pending -> Paid transition and commits any
// deferred stock in the same transaction. Returns (false, nil) when
// another path already confirmed (or the order is gone/cancelled).
func (r *OrderRepository) ConfirmPaid(ctx context.Context, orderID int64) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var stockCommitted bool
		err := tx.QueryRow(ctx, confirmPaidSQL, orderID).Scan(&stockCommitted)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		applied = true

		if stockCommitted {
			return nil
		}
		items, err := itemsTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := decrementStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, markStockCommittedSQL, orderID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("confirming order %d: %w", orderID, err)
	}
	return applied, nil
}

// Cancel sets the order to Cancelled and restores committed stock.
// Non-cancellable or foreign orders yield (false, nil).
func (r *OrderRepository) Cancel(ctx context.Context, orderID, userID int64) (bool, error) {
	cancelled := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			status         string
			stockCommitted bool
		)
		err := tx.QueryRow(ctx, lockOrderForCancelSQL, orderID, userID).Scan(&status, &stockCommitted)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !order.Status(status).Cancellable() {
			return nil
		}

		if _, err := tx.Exec(ctx, cancelOrderSQL, orderID); err != nil {
			return err
		}

		if stockCommitted {
			items, err := itemsTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			for _, it := range items {
				if _, err := tx.Exec(ctx, restoreStockSQL, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}

		cancelled = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cancelling order %d: %w", orderID, err)
	}
	return cancelled, nil
}

// MarkPaymentFailed records a failed payment attempt; a Paid order is
// never downgraded.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	if _, err := r.pool.Exec(ctx, markPaymentFailedSQL, orderID); err != nil {
		return fmt.Errorf("marking payment failed for order %d: %w", orderID, err)
	}
	return nil
}

// GetByID returns an order by id, scoped to userID when non-zero.
func (r *OrderRepository) GetByID(ctx context.Context, id, userID int64) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id, userID)
}

// GetByNumber returns an order by its number, scoped to userID when non-zero.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string, userID int64) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number, userID)
}

func (r *OrderRepository) getOne(ctx context.Context, sql string, key any, userID int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, key, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &o, nil
}

// ListByUser returns one page of the user's order history, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, page, perPage int) (*order.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersByUserSQL, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders for user %d: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}

	return &order.Page{
		Orders:     orders,
		Total:      total,
		PerPage:    perPage,
		Page:       page,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// Items returns the immutable item snapshots of an order.
func (r *OrderRepository) Items(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, orderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %d: %w", orderID, err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %d: %w", orderID, err)
	}
	return items, nil
}

func itemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]order.Item, error) {
	rows, err := tx.Query(ctx, orderItemsSQL, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		method        string
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Number, &o.Subtotal, &o.DiscountAmount,
		&o.ShippingCharge, &o.TotalAmount, &method, &paymentStatus, &status,
		&o.CouponID, &o.CouponCode, &o.StockCommitted,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.Pincode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.Price, &it.Quantity, &it.Subtotal,
	)
	return it, err
}
