package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts   cartstore.Backend
	metrics *metrics.Registry
	timeout time.Duration
}

func NewCartHandler(carts cartstore.Backend, m *metrics.Registry, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		metrics: m,
		timeout: timeout,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	service.CartSnapshot
	FormattedTotal string `json:"formatted_total"`
}

func toCartResponse(s service.CartSnapshot) CartResponse {
	return CartResponse{CartSnapshot: s, FormattedTotal: domain.FormatNaira(s.Total)}
}

func (h *CartHandler) view(ctx context.Context, r *http.Request) (*service.CartView, error) {
	v := service.NewCartView(h.carts.Profile(getProfileID(r.Context())), h.metrics)
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	v, err := h.view(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartResponse(v.Snapshot()))
}

// PUT /cart/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	v, err := h.view(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := v.UpdateQuantity(ctx, chi.URLParam(r, "productId"), req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartResponse(v.Snapshot()))
}

// DELETE /cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	v, err := h.view(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := v.Remove(ctx, chi.URLParam(r, "productId")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartResponse(v.Snapshot()))
}
