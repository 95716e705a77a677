package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkart/storefront/internal/domain/coupon"
)

const (
	// The window and active checks live in the query: a coupon outside
	// them is simply not found, which callers read as invalid/expired.
	findCouponSQL = `SELECT id, code, type, value, min_order_amount, max_discount_amount,
		usage_limit_global, usage_limit_per_user, valid_from, valid_to, is_active
		FROM coupons
		WHERE UPPER(code) = UPPER($1)
		  AND is_active = TRUE
		  AND now() BETWEEN valid_from AND valid_to`

	globalUsageSQL = `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`

	userUsageSQL = `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindActiveByCode looks up an active, in-window coupon by its code
// (case-insensitive). Returns coupon.ErrInvalidCoupon when no matching
// coupon exists.
func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, findCouponSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// GlobalUsageCount returns the total number of redemptions of a coupon.
func (r *CouponRepository) GlobalUsageCount(ctx context.Context, couponID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, globalUsageSQL, couponID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usage for coupon %d: %w", couponID, err)
	}
	return n, nil
}

// UserUsageCount returns the number of redemptions of a coupon by one user.
func (r *CouponRepository) UserUsageCount(ctx context.Context, couponID, userID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, userUsageSQL, couponID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usage for coupon %d by user %d: %w", couponID, userID, err)
	}
	return n, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &discountType, &rule.Value,
		&rule.MinOrderAmount, &rule.MaxDiscountAmount,
		&rule.UsageLimitGlobal, &rule.UsageLimitPerUser,
		&rule.ValidFrom, &rule.ValidTo, &rule.IsActive,
	)
	rule.Type = coupon.DiscountType(discountType)
	return rule, err
}
