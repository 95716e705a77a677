package handler

import (
	"net/http"

	"github.com/shopkart/storefront/internal/domain/order"
)

// Checkout places a cash-on-delivery order from the caller's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
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

	o, err := h.orders.Place(r.Context(), order.PlaceRequest{
		UserID:     UserID(r.Context()),
		AddressID:  req.AddressID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o, nil))
}
