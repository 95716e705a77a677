package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/shopkart/storefront/internal/payment"
)

// webhookBodyLimit caps webhook payload reads at 1 MiB.
const webhookBodyLimit = 1 << 20

// CreatePaymentOrder starts an online checkout: places a pending local
// order and registers a matching order with the gateway. The response
// carries what the browser widget needs.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddressID  int64  `json:"address_id"`
		CouponCode string `json:"coupon_code"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AddressID == 0 {
		writeError(w, http.StatusBadRequest, "address_id is required")
		return
	}

	session, err := h.payments.CreateRemoteOrder(r.Context(), UserID(r.Context()), req.AddressID, req.CouponCode)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"key_id":            session.KeyID,
		"razorpay_order_id": session.RemoteOrderID,
		"amount":            session.AmountMinor,
		"currency":          session.Currency,
		"order_number":      session.OrderNumber,
	})
}

// VerifyPayment handles the browser callback after the customer
// completes the payment widget. A bad signature marks the payment
// Failed and answers 402.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderNumber       string `json:"order_number"`
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpaySignature string `json:"razorpay_signature"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.payments.VerifyClientCallback(r.Context(), UserID(r.Context()), payment.Callback{
		OrderNumber:   req.OrderNumber,
		PaymentID:     req.RazorpayPaymentID,
		RemoteOrderID: req.RazorpayOrderID,
		Signature:     req.RazorpaySignature,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_number":   o.Number,
		"payment_status": "Paid",
		"status":         "Confirmed",
	})
}

// PaymentWebhook is the gateway's asynchronous confirmation channel.
// The raw body signature is the authentication; a mismatch answers 401
// and nothing is processed. Retried deliveries are acknowledged without
// re-applying the confirmation.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.payments.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			writeError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
