// Package payment orchestrates the online-payment checkout flow against
// the Razorpay gateway: pending order creation, client callback
// verification, and asynchronous webhook confirmation.
package payment

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/order"
	"github.com/shopkart/storefront/internal/payment/razorpay"
)

const gatewayMethod = "Razorpay"

// ErrSignatureMismatch is a security-relevant verification failure, not
// a transient error: the order is marked Failed (client path) or the
// request rejected outright (webhook path), and nothing is retried.
var ErrSignatureMismatch = errors.New("payment signature verification failed")

// Adapter drives an order through the online payment lifecycle. The
// gateway client may be nil when credentials are absent; every
// operation that would need it fails closed with ErrConfigMissing.
type Adapter struct {
	cfg     razorpay.Config
	gateway *razorpay.Client
	orders  *order.Service
	repo    order.Repository
	logs    LogRepository
	carts   *cart.Service
}

// NewAdapter constructs the payment Adapter.
func NewAdapter(
	cfg razorpay.Config,
	gateway *razorpay.Client,
	orders *order.Service,
	repo order.Repository,
	logs LogRepository,
	carts *cart.Service,
) *Adapter {
	return &Adapter{
		cfg:     cfg,
		gateway: gateway,
		orders:  orders,
		repo:    repo,
		logs:    logs,
		carts:   carts,
	}
}

// CheckoutSession is what the browser widget needs to collect a payment.
type CheckoutSession struct {
	KeyID         string
	RemoteOrderID string
	AmountMinor   int64
	Currency      string
	OrderNumber   string
}

// MinorUnits converts a major-unit amount to gateway minor units
// (total * 100, rounded to the nearest integer).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateRemoteOrder re-validates the address and cart, creates a local
// pending order (stock not yet committed), registers a matching order
// with the gateway, and logs the gateway reference. A gateway failure
// leaves the already-committed pending order behind; the caller treats
// that as retryable by re-initiating checkout.
func (a *Adapter) CreateRemoteOrder(ctx context.Context, userID, addressID int64, couponCode string) (*CheckoutSession, error) {
	if a.gateway == nil {
		return nil, razorpay.ErrConfigMissing
	}

	o, err := a.orders.PlacePending(ctx, order.PlaceRequest{
		UserID:     userID,
		AddressID:  addressID,
		CouponCode: couponCode,
	})
	if err != nil {
		return nil, err
	}

	amountMinor := MinorUnits(o.TotalAmount)
	remote, err := a.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:         amountMinor,
		Currency:       "INR",
		Receipt:        o.Number,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}

	if err := a.logs.Append(ctx, &LogEntry{
		OrderID:       o.ID,
		Method:        gatewayMethod,
		TransactionID: remote.ID,
		Amount:        o.TotalAmount,
		Status:        LogPending,
		ResponseData:  remote.Raw,
	}); err != nil {
		return nil, errors.Wrap(err, "log gateway order")
	}

	return &CheckoutSession{
		KeyID:         a.gateway.KeyID(),
		RemoteOrderID: remote.ID,
		AmountMinor:   amountMinor,
		Currency:      "INR",
		OrderNumber:   o.Number,
	}, nil
}

// Callback is the set of fields the browser widget posts back after the
// customer completes (or fakes) a payment.
type Callback struct {
	OrderNumber   string
	PaymentID     string
	RemoteOrderID string
	Signature     string
}

// VerifyClientCallback recomputes the expected payment signature and
// compares it in constant time, then checks that the remote order the
// signature covers is the one registered for this local order. Either
// failure marks the order's payment Failed and returns
// ErrSignatureMismatch; the order itself stays Pending and
// unconfirmed. On success the payment is logged, the order confirmed
// (committing stock), and the cart cleared.
func (a *Adapter) VerifyClientCallback(ctx context.Context, userID int64, cb Callback) (*order.Order, error) {
	if a.cfg.KeySecret == "" {
		return nil, razorpay.ErrConfigMissing
	}

	o, err := a.repo.GetByNumber(ctx, cb.OrderNumber, userID)
	if err != nil {
		return nil, err
	}

	if !razorpay.VerifyPaymentSignature(cb.RemoteOrderID, cb.PaymentID, cb.Signature, a.cfg.KeySecret) {
		return nil, a.failVerification(ctx, o, cb)
	}

	// The signature authenticates the remote order/payment pair but not
	// its relation to this order; the remote order must be the one
	// logged when the checkout session was created.
	boundTo, err := a.logs.OrderIDByTransaction(ctx, cb.RemoteOrderID)
	if err != nil && !errors.Is(err, ErrLogNotFound) {
		return nil, errors.Wrap(err, "resolve gateway order")
	}
	if err != nil || boundTo != o.ID {
		return nil, a.failVerification(ctx, o, cb)
	}

	a.appendLog(ctx, o.ID, cb.PaymentID, o.TotalAmount, LogSuccess, cb)

	if _, err := a.orders.ConfirmPaid(ctx, o.ID); err != nil {
		return nil, err
	}

	if err := a.carts.Clear(ctx, userID); err != nil {
		zctx.From(ctx).Warn("Clear cart after payment",
			zap.String("order_number", o.Number), zap.Error(err))
	}

	return o, nil
}

// HandleWebhook is the independent, asynchronous confirmation channel.
// The raw body is authenticated against the webhook secret; a mismatch
// rejects the delivery without processing anything. Deliveries for
// orders already marked Paid only append to the audit log, since the
// confirmation compare-and-set makes the retry a no-op.
func (a *Adapter) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if a.cfg.WebhookSecret == "" {
		return razorpay.ErrConfigMissing
	}
	if !razorpay.VerifyWebhookSignature(body, signature, a.cfg.WebhookSecret) {
		return ErrSignatureMismatch
	}

	ev, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return errors.Wrap(err, "parse webhook")
	}
	if ev.PaymentID == "" || ev.OrderRef == "" {
		// Authenticated but not a payment event we act on; ack it so
		// the gateway stops retrying.
		zctx.From(ctx).Info("Webhook ignored", zap.String("event", ev.Event))
		return nil
	}

	orderID, err := a.logs.OrderIDByTransaction(ctx, ev.OrderRef)
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			zctx.From(ctx).Warn("Webhook for unknown gateway order",
				zap.String("order_ref", ev.OrderRef))
			return nil
		}
		return errors.Wrap(err, "resolve webhook order")
	}

	o, err := a.repo.GetByID(ctx, orderID, 0)
	if err != nil {
		return errors.Wrap(err, "load webhook order")
	}

	if err := a.logs.Append(ctx, &LogEntry{
		OrderID:       o.ID,
		Method:        gatewayMethod,
		TransactionID: ev.PaymentID,
		Amount:        ev.Amount(),
		Status:        LogSuccess,
		ResponseData:  body,
	}); err != nil {
		return errors.Wrap(err, "log webhook")
	}

	if o.PaymentStatus == order.PaymentPaid {
		return nil
	}

	applied, err := a.orders.ConfirmPaid(ctx, o.ID)
	if err != nil {
		return err
	}
	if applied {
		if err := a.carts.Clear(ctx, o.UserID); err != nil {
			zctx.From(ctx).Warn("Clear cart after webhook confirmation",
				zap.String("order_number", o.Number), zap.Error(err))
		}
	}

	return nil
}

// failVerification records the rejected callback and marks the order's
// payment Failed. The order status itself is untouched so the customer
// can retry checkout.
func (a *Adapter) failVerification(ctx context.Context, o *order.Order, cb Callback) error {
	a.appendLog(ctx, o.ID, cb.PaymentID, o.TotalAmount, LogFailed, cb)
	if err := a.repo.MarkPaymentFailed(ctx, o.ID); err != nil {
		zctx.From(ctx).Error("Mark payment failed",
			zap.String("order_number", o.Number), zap.Error(err))
	}
	return ErrSignatureMismatch
}

// appendLog writes an audit row, logging rather than failing on error:
// the audit trail must never block the payment decision that follows.
func (a *Adapter) appendLog(ctx context.Context, orderID int64, txnID string, amount decimal.Decimal, status LogStatus, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	if err := a.logs.Append(ctx, &LogEntry{
		OrderID:       orderID,
		Method:        gatewayMethod,
		TransactionID: txnID,
		Amount:        amount,
		Status:        status,
		ResponseData:  raw,
	}); err != nil {
		zctx.From(ctx).Error("Append payment log",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}
