// Package handler exposes the storefront checkout API over JSON HTTP.
// Handlers decode requests, delegate to the domain services, and map
// domain errors to {code, message} responses.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopkart/storefront/internal/domain/address"
	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/coupon"
	"github.com/shopkart/storefront/internal/domain/order"
	"github.com/shopkart/storefront/internal/domain/product"
	"github.com/shopkart/storefront/internal/payment"
	"github.com/shopkart/storefront/internal/payment/razorpay"
)

// Handler serves the storefront API, delegating business logic to the
// domain services.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	coupons  coupon.Validator
	orders   *order.Service
	history  order.Repository
	payments *payment.Adapter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	coupons coupon.Validator,
	orders *order.Service,
	history order.Repository,
	payments *payment.Adapter,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		history:  history,
		payments: payments,
	}
}

// Routes registers all API routes on the mux. Every route under /api
// except the webhook must be wrapped with the API-key middleware by the
// caller; the webhook authenticates with its own signature.
func (h *Handler) Routes(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authn(fn))
	}

	api("GET /api/products", h.ListProducts)
	api("GET /api/products/{id}", h.GetProduct)

	api("GET /api/cart", h.GetCart)
	api("POST /api/cart/items", h.AddCartItem)
	api("PATCH /api/cart/items/{productID}", h.UpdateCartItem)
	api("DELETE /api/cart/items/{productID}", h.RemoveCartItem)
	api("DELETE /api/cart", h.ClearCart)
	api("POST /api/cart/quote", h.QuoteCart)

	api("POST /api/checkout", h.Checkout)

	api("POST /api/payment/razorpay/order", h.CreatePaymentOrder)
	api("POST /api/payment/razorpay/verify", h.VerifyPayment)
	// Signature is the authentication here; no API key.
	mux.HandleFunc("POST /api/payment/razorpay/webhook", h.PaymentWebhook)

	api("GET /api/orders", h.ListOrders)
	api("GET /api/orders/{number}", h.GetOrder)
	api("POST /api/orders/{number}/cancel", h.CancelOrder)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details ...string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message, Details: details})
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// respondError maps a domain error to its HTTP response. Unknown errors
// are logged with detail and answered generically.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, address.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "invalid shipping address")
	case errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusUnprocessableEntity, "invalid or expired coupon")
	case errors.Is(err, coupon.ErrUsageLimitReached):
		writeError(w, http.StatusConflict, "coupon usage limit reached")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, payment.ErrSignatureMismatch):
		writeError(w, http.StatusPaymentRequired, "payment verification failed")
	case errors.Is(err, razorpay.ErrConfigMissing):
		writeError(w, http.StatusServiceUnavailable, "online payments are not configured")
	default:
		var cartErr *order.CartInvalidError
		if errors.As(err, &cartErr) {
			writeError(w, http.StatusUnprocessableEntity, "cart is not valid", cartErr.Problems...)
			return
		}
		var stockErr *order.InsufficientStockError
		if errors.As(err, &stockErr) {
			writeError(w, http.StatusConflict, stockErr.Error())
			return
		}
		var gwErr *razorpay.GatewayError
		if errors.As(err, &gwErr) {
			zctx.From(r.Context()).Error("Gateway error",
				zap.Int("status", gwErr.StatusCode), zap.Error(err))
			writeError(w, http.StatusBadGateway, "payment gateway unavailable")
			return
		}
		zctx.From(r.Context()).Error("Unhandled error",
			zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
