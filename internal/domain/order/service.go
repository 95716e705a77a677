package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopkart/storefront/internal/domain/address"
	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/coupon"
)

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	carts     *cart.Service
	coupons   coupon.Validator
	addresses address.Repository
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	carts *cart.Service,
	coupons coupon.Validator,
	addresses address.Repository,
	orders Repository,
) *Service {
	return &Service{
		carts:     carts,
		coupons:   coupons,
		addresses: addresses,
		orders:    orders,
		now:       time.Now,
	}
}

// PlaceRequest holds the input for placing an order from the caller's cart.
type PlaceRequest struct {
	UserID     int64
	AddressID  int64
	CouponCode string
}

// Place creates a cash-on-delivery order from the user's cart: address
// and cart are validated, the cart is priced with the optional coupon,
// and the order is persisted with stock committed in the same
// transaction. The cart is cleared on success.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	o, items, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	o.PaymentMethod = PaymentCOD
	o.StockCommitted = true
	if err := s.orders.CreateCommitted(ctx, o, items); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		// The order exists; a stale cart is an annoyance, not a failure.
		zctx.From(ctx).Warn("Clear cart after placement",
			zap.String("order_number", o.Number), zap.Error(err))
	}

	return o, nil
}

// PlacePending creates an order awaiting online payment. Stock is NOT
// decremented here: it is committed by ConfirmPaid once the gateway
// confirms the payment. The cart survives until the payment verifies,
// so an abandoned payment leaves the cart intact.
func (s *Service) PlacePending(ctx context.Context, req PlaceRequest) (*Order, error) {
	o, items, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	o.PaymentMethod = PaymentOnline
	if err := s.orders.CreatePending(ctx, o, items); err != nil {
		return nil, errors.Wrap(err, "create pending order")
	}

	return o, nil
}

// ConfirmPaid marks the order Paid/Confirmed and commits any deferred
// stock, all in one transaction. The transition is a compare-and-set on
// payment_status: when the order was already Paid (a retried webhook,
// or the webhook racing the client callback) it returns (false, nil)
// and mutates nothing.
func (s *Service) ConfirmPaid(ctx context.Context, orderID int64) (bool, error) {
	applied, err := s.orders.ConfirmPaid(ctx, orderID)
	if err != nil {
		return false, errors.Wrap(err, "confirm order")
	}
	return applied, nil
}

// Cancel cancels an order on behalf of its owner, restoring committed
// stock. Orders past Confirmed, or owned by someone else, are left
// untouched and Cancel reports false without an error.
func (s *Service) Cancel(ctx context.Context, orderID, userID int64) (bool, error) {
	cancelled, err := s.orders.Cancel(ctx, orderID, userID)
	if err != nil {
		return false, errors.Wrap(err, "cancel order")
	}
	return cancelled, nil
}

// prepare runs the shared placement pipeline: address ownership, cart
// validation, coupon pricing, and the order/item snapshot build.
func (s *Service) prepare(ctx context.Context, req PlaceRequest) (*Order, []Item, error) {
	addr, err := s.addresses.Find(ctx, req.AddressID, req.UserID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, nil, address.ErrNotFound
		}
		return nil, nil, errors.Wrap(err, "find address")
	}

	lines, err := s.carts.Items(ctx, req.UserID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load cart")
	}
	if len(lines) == 0 {
		return nil, nil, cart.ErrEmptyCart
	}
	if v := cart.ValidateLines(lines); !v.Valid {
		return nil, nil, &CartInvalidError{Problems: v.Errors}
	}

	totals := cart.SumLines(lines)

	var rule *coupon.Rule
	if req.CouponCode != "" {
		rule, err = s.coupons.Lookup(ctx, req.CouponCode, req.UserID)
		if err != nil {
			return nil, nil, err
		}
	}
	quote := coupon.Price(totals.Subtotal, rule)

	o := &Order{
		UserID:         req.UserID,
		Number:         NewNumber(s.now()),
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.Discount,
		ShippingCharge: totals.Shipping,
		TotalAmount:    quote.Total.Add(totals.Shipping),
		PaymentStatus:  PaymentPending,
		Status:         StatusPending,
		Shipping: ShippingInfo{
			Name:    addr.FullName,
			Phone:   addr.Phone,
			Address: addr.ShippingLine(),
			City:    addr.City,
			State:   addr.State,
			Pincode: addr.Pincode,
		},
	}
	// Link the coupon only when it actually discounted the order; a
	// found-but-not-applicable code is not a redemption.
	if rule != nil && quote.Applied() {
		o.CouponID = &rule.ID
		o.CouponCode = rule.Code
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
		}
	}

	return o, items, nil
}
