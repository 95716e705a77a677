package coupon

import (
	"context"

	"github.com/go-faster/errors"
)

// Validator resolves a coupon code to a redeemable Rule for a user.
type Validator interface {
	Lookup(ctx context.Context, code string, userID int64) (*Rule, error)
}

// RepoValidator implements Validator against a Repository. The lookup
// itself filters on activity and the validity window; usage limits are
// checked here against the redemption ledger. The counts are re-checked
// inside the order-creation transaction when the redemption row is
// written, so a race between two checkouts cannot over-redeem.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Lookup finds an active, in-window coupon by code and enforces its
// global and per-user usage limits. It returns ErrInvalidCoupon when no
// such coupon exists and ErrUsageLimitReached when a cap is exhausted.
func (v *RepoValidator) Lookup(ctx context.Context, code string, userID int64) (*Rule, error) {
	rule, err := v.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if rule.UsageLimitGlobal > 0 {
		used, err := v.repo.GlobalUsageCount(ctx, rule.ID)
		if err != nil {
			return nil, errors.Wrap(err, "count global coupon usage")
		}
		if used >= rule.UsageLimitGlobal {
			return nil, ErrUsageLimitReached
		}
	}

	if rule.UsageLimitPerUser > 0 {
		used, err := v.repo.UserUsageCount(ctx, rule.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user coupon usage")
		}
		if used >= rule.UsageLimitPerUser {
			return nil, ErrUsageLimitReached
		}
	}

	return rule, nil
}
