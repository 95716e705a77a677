package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the subtotal, optionally
	// capped by MaxDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
	// DiscountFixed subtracts a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "FIXED"
)

var (
	// ErrInvalidCoupon is returned when a code is not found, inactive,
	// or outside its validity window. The caller cannot distinguish
	// which; all three read as "invalid or expired".
	ErrInvalidCoupon = errors.New("invalid or expired coupon")
	// ErrUsageLimitReached is returned when the coupon's global or
	// per-user redemption cap is exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	ID                int64
	Code              string
	Type              DiscountType
	Value             decimal.Decimal
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount decimal.Decimal
	UsageLimitGlobal  int
	UsageLimitPerUser int
	ValidFrom         time.Time
	ValidTo           time.Time
	IsActive          bool
}

// Repository provides coupon lookup and the redemption ledger counts.
// FindActiveByCode must match case-insensitively and filter on the
// active flag and the validity window; anything else is not found.
type Repository interface {
	FindActiveByCode(ctx context.Context, code string) (*Rule, error)
	GlobalUsageCount(ctx context.Context, couponID int64) (int, error)
	UserUsageCount(ctx context.Context, couponID, userID int64) (int, error)
}
