package coupon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCouponRepo struct {
	rule       *Rule
	globalUsed int
	userUsed   int
}

func (f *fakeCouponRepo) FindActiveByCode(_ context.Context, code string) (*Rule, error) {
	if f.rule == nil {
		return nil, ErrInvalidCoupon
	}
	return f.rule, nil
}

func (f *fakeCouponRepo) GlobalUsageCount(context.Context, int64) (int, error) {
	return f.globalUsed, nil
}

func (f *fakeCouponRepo) UserUsageCount(context.Context, int64, int64) (int, error) {
	return f.userUsed, nil
}

func TestLookup_UnknownCode(t *testing.T) {
	v := NewRepoValidator(&fakeCouponRepo{})

	_, err := v.Lookup(context.Background(), "NOPE", 1)
	assert.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestLookup_NoLimits(t *testing.T) {
	rule := &Rule{ID: 7, Code: "WELCOME10"}
	v := NewRepoValidator(&fakeCouponRepo{rule: rule, globalUsed: 999, userUsed: 999})

	got, err := v.Lookup(context.Background(), "welcome10", 1)
	require.NoError(t, err)
	assert.Equal(t, rule, got)
}

func TestLookup_GlobalLimitReached(t *testing.T) {
	rule := &Rule{ID: 7, Code: "WELCOME10", UsageLimitGlobal: 100}
	v := NewRepoValidator(&fakeCouponRepo{rule: rule, globalUsed: 100})

	_, err := v.Lookup(context.Background(), "WELCOME10", 1)
	assert.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestLookup_PerUserLimitReached(t *testing.T) {
	rule := &Rule{ID: 7, Code: "WELCOME10", UsageLimitPerUser: 1}
	v := NewRepoValidator(&fakeCouponRepo{rule: rule, userUsed: 1})

	_, err := v.Lookup(context.Background(), "WELCOME10", 1)
	assert.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestLookup_UnderLimits(t *testing.T) {
	rule := &Rule{ID: 7, Code: "WELCOME10", UsageLimitGlobal: 100, UsageLimitPerUser: 2}
	v := NewRepoValidator(&fakeCouponRepo{rule: rule, globalUsed: 50, userUsed: 1})

	got, err := v.Lookup(context.Background(), "WELCOME10", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
}
