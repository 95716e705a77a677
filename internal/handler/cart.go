package handler

import (
	"net/http"
	"strconv"

	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/coupon"
)

type cartLineResponse struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	Subtotal   float64            `json:"subtotal"`
	Shipping   float64            `json:"shipping"`
	Total      float64            `json:"total"`
	TotalItems int                `json:"total_items"`
	Valid      bool               `json:"valid"`
	Problems   []string           `json:"problems,omitempty"`
}

// GetCart returns the cart lines, totals, and advisory validation.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	lines, err := h.carts.Items(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	totals := cart.SumLines(lines)
	validation := cart.ValidateLines(lines)

	resp := cartResponse{
		Items:      make([]cartLineResponse, len(lines)),
		Subtotal:   totals.Subtotal.InexactFloat64(),
		Shipping:   totals.Shipping.InexactFloat64(),
		Total:      totals.Total.InexactFloat64(),
		TotalItems: totals.TotalItems,
		Valid:      validation.Valid,
		Problems:   validation.Errors,
	}
	for i, l := range lines {
		resp.Items[i] = cartLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddCartItem upserts a line into the caller's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		return
	}

	// Reject unknown or inactive products up front.
	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !p.IsActive {
		writeError(w, http.StatusUnprocessableEntity, "product is no longer available")
		return
	}

	if err := h.carts.Add(r.Context(), UserID(r.Context()), req.ProductID, req.Quantity); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), UserID(r.Context()), productID, req.Quantity); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveCartItem deletes a line from the caller's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.Remove(r.Context(), UserID(r.Context()), productID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), UserID(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type quoteResponse struct {
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Shipping   float64 `json:"shipping"`
	Total      float64 `json:"total"`
	Applied    bool    `json:"applied"`
	CouponCode string  `json:"coupon_code,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// QuoteCart prices the cart against a coupon code without mutating
// anything. An unknown or expired code is an error; a known code that
// fails its minimum-order gate prices to zero discount with a message.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponCode string `json:"coupon_code"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := UserID(r.Context())
	totals, err := h.carts.Totals(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var rule *coupon.Rule
	if req.CouponCode != "" {
		rule, err = h.coupons.Lookup(r.Context(), req.CouponCode, userID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	quote := coupon.Price(totals.Subtotal, rule)
	resp := quoteResponse{
		Subtotal: quote.Subtotal.InexactFloat64(),
		Discount: quote.Discount.InexactFloat64(),
		Shipping: totals.Shipping.InexactFloat64(),
		Total:    quote.Total.Add(totals.Shipping).InexactFloat64(),
		Applied:  quote.Applied(),
	}
	if rule != nil {
		if quote.Applied() {
			resp.CouponCode = rule.Code
		} else {
			resp.Message = "coupon is not applicable to this order"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
