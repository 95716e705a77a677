package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/storefront/internal/payment"
)

const (
	appendPaymentLogSQL = `INSERT INTO payment_logs (order_id, payment_method, transaction_id, amount, status, response_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	// Latest row wins: a retried webhook appends a second row for the
	// same transaction id, and all of them point at the same order.
	orderByTransactionSQL = `SELECT order_id FROM payment_logs
		WHERE transaction_id = $1
		ORDER BY id DESC LIMIT 1`
)

var _ payment.LogRepository = (*PaymentLogRepository)(nil)

// PaymentLogRepository implements payment.LogRepository backed by
// PostgreSQL. The table is append-only.
type PaymentLogRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentLogRepository returns a PaymentLogRepository that uses the given pool.
func NewPaymentLogRepository(pool *pgxpool.Pool) *PaymentLogRepository {
	return &PaymentLogRepository{pool: pool}
}

// Append writes one audit row and fills in its ID and CreatedAt.
func (r *PaymentLogRepository) Append(ctx context.Context, e *payment.LogEntry) error {
	var response any
	if len(e.ResponseData) > 0 {
		response = e.ResponseData
	}
	err := r.pool.QueryRow(ctx, appendPaymentLogSQL,
		e.OrderID, e.Method, e.TransactionID, e.Amount, e.Status, response,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending payment log for order %d: %w", e.OrderID, err)
	}
	return nil
}

// OrderIDByTransaction resolves the order a gateway reference was
// logged against. Returns payment.ErrLogNotFound when the reference was
// never seen.
func (r *PaymentLogRepository) OrderIDByTransaction(ctx context.Context, transactionID string) (int64, error) {
	var orderID int64
	err := r.pool.QueryRow(ctx, orderByTransactionSQL, transactionID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, payment.ErrLogNotFound
		}
		return 0, fmt.Errorf("resolving transaction %q: %w", transactionID, err)
	}
	return orderID, nil
}
