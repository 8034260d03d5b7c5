package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	confirmation *service.ConfirmationService
	timeout      time.Duration
}

func NewOrderHandler(confirmation *service.ConfirmationService, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		confirmation: confirmation,
		timeout:      timeout,
	}
}

// GET /order-summary/{id}
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	conf, err := h.confirmation.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		redirect(w, r, "/cart")
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, conf)
}

// GET /order-summary/{id}/copy/{target}
func (h *OrderHandler) Copy(w http.ResponseWriter, r *http.Request) {
	value, err := h.confirmation.CopyValue(chi.URLParam(r, "id"), chi.URLParam(r, "target"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(value))
}
