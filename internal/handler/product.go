package handler

import (
	"net/http"
	"strconv"

	"github.com/shopkart/storefront/internal/domain/product"
)

type productResponse struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Price         float64  `json:"price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	StockQuantity int      `json:"stock_quantity"`
	InStock       bool     `json:"in_stock"`
}

func toProductResponse(p product.Product) productResponse {
	resp := productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Price:         p.Price.InexactFloat64(),
		StockQuantity: p.StockQuantity,
		InStock:       p.StockQuantity > 0,
	}
	if p.SalePrice != nil {
		sale := p.SalePrice.InexactFloat64()
		resp.SalePrice = &sale
	}
	return resp
}

// ListProducts returns all active products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

// GetProduct returns a single product by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}
