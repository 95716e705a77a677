package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart/storefront/internal/domain/address"
	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/coupon"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeCartRepo struct {
	items   []cart.Line
	cleared bool
}

func (f *fakeCartRepo) Items(context.Context, int64) ([]cart.Line, error) { return f.items, nil }
func (f *fakeCartRepo) Add(context.Context, int64, int64, int) error     { return nil }
func (f *fakeCartRepo) UpdateQuantity(context.Context, int64, int64, int) error {
	return nil
}
func (f *fakeCartRepo) Remove(context.Context, int64, int64) error { return nil }
func (f *fakeCartRepo) Clear(context.Context, int64) error {
	f.cleared = true
	return nil
}

type fakeValidator struct {
	rule *coupon.Rule
	err  error
}

func (f *fakeValidator) Lookup(context.Context, string, int64) (*coupon.Rule, error) {
	return f.rule, f.err
}

type fakeAddressRepo struct {
	addr *address.Address
}

func (f *fakeAddressRepo) Find(_ context.Context, id, userID int64) (*address.Address, error) {
	if f.addr == nil || f.addr.ID != id || f.addr.UserID != userID {
		return nil, address.ErrNotFound
	}
	return f.addr, nil
}

type fakeOrderRepo struct {
	committed *Order
	pending   *Order
	items     []Item

	confirmApplied bool
	cancelResult   bool
}

func (f *fakeOrderRepo) CreateCommitted(_ context.Context, o *Order, items []Item) error {
	o.ID = 1
	f.committed = o
	f.items = items
	return nil
}

func (f *fakeOrderRepo) CreatePending(_ context.Context, o *Order, items []Item) error {
	o.ID = 2
	f.pending = o
	f.items = items
	return nil
}

func (f *fakeOrderRepo) ConfirmPaid(context.Context, int64) (bool, error) {
	return f.confirmApplied, nil
}

func (f *fakeOrderRepo) Cancel(context.Context, int64, int64) (bool, error) {
	return f.cancelResult, nil
}

func (f *fakeOrderRepo) MarkPaymentFailed(context.Context, int64) error { return nil }

func (f *fakeOrderRepo) GetByID(context.Context, int64, int64) (*Order, error) {
	return nil, ErrNotFound
}

func (f *fakeOrderRepo) GetByNumber(context.Context, string, int64) (*Order, error) {
	return nil, ErrNotFound
}

func (f *fakeOrderRepo) ListByUser(context.Context, int64, int, int) (*Page, error) {
	return &Page{}, nil
}

func (f *fakeOrderRepo) Items(context.Context, int64) ([]Item, error) {
	return f.items, nil
}

func testLine(id int64, price string, qty int) cart.Line {
	return cart.Line{
		ProductID:     id,
		ProductName:   "product",
		UnitPrice:     d(price),
		Quantity:      qty,
		StockQuantity: 100,
		IsActive:      true,
	}
}

func testAddress() *address.Address {
	return &address.Address{
		ID:       10,
		UserID:   1,
		FullName: "Test Customer",
		Phone:    "9999999999",
		Line1:    "42 MG Road",
		Line2:    "Near Central Mall",
		City:     "Bengaluru",
		State:    "Karnataka",
		Pincode:  "560001",
	}
}

func newTestService(carts *fakeCartRepo, v coupon.Validator, orders Repository) *Service {
	return NewService(cart.NewService(carts), v, &fakeAddressRepo{addr: testAddress()}, orders)
}

func TestPlace_COD(t *testing.T) {
	carts := &fakeCartRepo{items: []cart.Line{
		testLine(1, "100.00", 2),
		testLine(2, "50.00", 1),
	}}
	repo := &fakeOrderRepo{}
	svc := newTestService(carts, &fakeValidator{}, repo)

	o, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10})
	require.NoError(t, err)
	require.NotNil(t, repo.committed)

	assert.Equal(t, PaymentCOD, o.PaymentMethod)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.StockCommitted)
	assert.True(t, o.Subtotal.Equal(d("250.00")), "subtotal %s", o.Subtotal)
	assert.True(t, o.TotalAmount.Equal(d("250.00")))
	assert.True(t, o.DiscountAmount.IsZero())
	assert.Nil(t, o.CouponID)
	assert.True(t, carts.cleared, "cart should be cleared after COD placement")

	require.Len(t, repo.items, 2)
	assert.Equal(t, "product", repo.items[0].ProductName)
	assert.True(t, repo.items[0].Subtotal.Equal(d("200.00")))

	assert.Equal(t, "Test Customer", o.Shipping.Name)
	assert.Equal(t, "42 MG Road, Near Central Mall", o.Shipping.Address)
}

func TestPlace_WithCoupon(t *testing.T) {
	carts := &fakeCartRepo{items: []cart.Line{testLine(1, "100.00", 2)}}
	rule := &coupon.Rule{
		ID:                7,
		Code:              "WELCOME10",
		Type:              coupon.DiscountPercent,
		Value:             d("10"),
		MinOrderAmount:    d("150"),
		MaxDiscountAmount: d("30"),
	}
	repo := &fakeOrderRepo{}
	svc := newTestService(carts, &fakeValidator{rule: rule}, repo)

	o, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10, CouponCode: "WELCOME10"})
	require.NoError(t, err)

	assert.True(t, o.DiscountAmount.Equal(d("20.00")), "discount %s", o.DiscountAmount)
	assert.True(t, o.TotalAmount.Equal(d("180.00")))
	require.NotNil(t, o.CouponID)
	assert.Equal(t, int64(7), *o.CouponID)
	assert.Equal(t, "WELCOME10", o.CouponCode)
}

func TestPlace_CouponNotApplicable(t *testing.T) {
	// Cart below the coupon's min order: placement proceeds with zero
	// discount and no redemption recorded.
	carts := &fakeCartRepo{items: []cart.Line{testLine(1, "50.00", 1)}}
	rule := &coupon.Rule{
		ID:             7,
		Code:           "WELCOME10",
		Type:           coupon.DiscountPercent,
		Value:          d("10"),
		MinOrderAmount: d("150"),
	}
	repo := &fakeOrderRepo{}
	svc := newTestService(carts, &fakeValidator{rule: rule}, repo)

	o, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10, CouponCode: "WELCOME10"})
	require.NoError(t, err)

	assert.True(t, o.DiscountAmount.IsZero())
	assert.Nil(t, o.CouponID)
	assert.Empty(t, o.CouponCode)
}

func TestPlace_InvalidCoupon(t *testing.T) {
	carts := &fakeCartRepo{items: []cart.Line{testLine(1, "100.00", 1)}}
	repo := &fakeOrderRepo{}
	svc := newTestService(carts, &fakeValidator{err: coupon.ErrInvalidCoupon}, repo)

	_, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10, CouponCode: "NOPE"})
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Nil(t, repo.committed)
}

func TestPlace_EmptyCart(t *testing.T) {
	svc := newTestService(&fakeCartRepo{}, &fakeValidator{}, &fakeOrderRepo{})

	_, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestPlace_InvalidCart(t *testing.T) {
	over := testLine(1, "100.00", 5)
	over.StockQuantity = 2

	svc := newTestService(&fakeCartRepo{items: []cart.Line{over}}, &fakeValidator{}, &fakeOrderRepo{})

	_, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 10})

	var cartErr *CartInvalidError
	require.ErrorAs(t, err, &cartErr)
	assert.Len(t, cartErr.Problems, 1)
}

func TestPlace_UnknownAddress(t *testing.T) {
	carts := &fakeCartRepo{items: []cart.Line{testLine(1, "100.00", 1)}}
	svc := newTestService(carts, &fakeValidator{}, &fakeOrderRepo{})

	_, err := svc.Place(context.Background(), PlaceRequest{UserID: 1, AddressID: 99})
	assert.ErrorIs(t, err, address.ErrNotFound)
}

func TestPlacePending(t *testing.T) {
	carts := &fakeCartRepo{items: []cart.Line{testLine(1, "100.00", 1)}}
	repo := &fakeOrderRepo{}
	svc := newTestService(carts, &fakeValidator{}, repo)

	o, err := svc.PlacePending(context.Background(), PlaceRequest{UserID: 1, AddressID: 10})
	require.NoError(t, err)
	require.NotNil(t, repo.pending)
	assert.Nil(t, repo.committed)

	assert.Equal(t, PaymentOnline, o.PaymentMethod)
	assert.False(t, o.StockCommitted)
	assert.False(t, carts.cleared, "cart must survive until payment verifies")
}

func TestConfirmPaidDelegates(t *testing.T) {
	repo := &fakeOrderRepo{confirmApplied: true}
	svc := newTestService(&fakeCartRepo{}, &fakeValidator{}, repo)

	applied, err := svc.ConfirmPaid(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestCancelDelegates(t *testing.T) {
	repo := &fakeOrderRepo{cancelResult: false}
	svc := newTestService(&fakeCartRepo{}, &fakeValidator{}, repo)

	cancelled, err := svc.Cancel(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestStatusCancellable(t *testing.T) {
	assert.True(t, StatusPending.Cancellable())
	assert.True(t, StatusConfirmed.Cancellable())
	assert.False(t, StatusProcessing.Cancellable())
	assert.False(t, StatusShipped.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}
