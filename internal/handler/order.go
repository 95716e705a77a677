package handler

import (
	"net/http"
	"strconv"

	"github.com/shopkart/storefront/internal/domain/order"
)

type orderItemResponse struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type shippingResponse struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type orderResponse struct {
	OrderNumber    string              `json:"order_number"`
	Subtotal       float64             `json:"subtotal"`
	Discount       float64             `json:"discount"`
	Shipping       float64             `json:"shipping"`
	Total          float64             `json:"total"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentStatus  string              `json:"payment_status"`
	Status         string              `json:"status"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	ShippingInfo   shippingResponse    `json:"shipping_info"`
	Items          []orderItemResponse `json:"items,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

func toOrderResponse(o *order.Order, items []order.Item) orderResponse {
	resp := orderResponse{
		OrderNumber:   o.Number,
		Subtotal:      o.Subtotal.InexactFloat64(),
		Discount:      o.DiscountAmount.InexactFloat64(),
		Shipping:      o.ShippingCharge.InexactFloat64(),
		Total:         o.TotalAmount.InexactFloat64(),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Status:        string(o.Status),
		CouponCode:    o.CouponCode,
		ShippingInfo: shippingResponse{
			Name:    o.Shipping.Name,
			Phone:   o.Shipping.Phone,
			Address: o.Shipping.Address,
			City:    o.Shipping.City,
			State:   o.Shipping.State,
			Pincode: o.Shipping.Pincode,
		},
		CreatedAt: o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.InexactFloat64(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.InexactFloat64(),
		})
	}
	return resp
}

// ListOrders returns one page of the caller's order history.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.history.ListByUser(r.Context(), UserID(r.Context()), page, perPage)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	orders := make([]orderResponse, len(result.Orders))
	for i := range result.Orders {
		orders[i] = toOrderResponse(&result.Orders[i], nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      orders,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GetOrder returns one of the caller's orders, with items, by number.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	o, err := h.history.GetByNumber(r.Context(), r.PathValue("number"), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	items, err := h.history.Items(r.Context(), o.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o, items))
}

// CancelOrder cancels one of the caller's orders. Orders past
// Confirmed answer 409.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	o, err := h.history.GetByNumber(r.Context(), r.PathValue("number"), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), o.ID, userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !cancelled {
		writeError(w, http.StatusConflict, "order can no longer be cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_number": o.Number,
		"status":       string(order.StatusCancelled),
	})
}
