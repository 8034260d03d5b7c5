package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkout *service.CheckoutService
	carts    cartstore.Backend
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *service.CheckoutService, carts cartstore.Backend, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		carts:    carts,
		timeout:  timeout,
	}
}

type PlaceOrderRequestDTO struct {
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

type CheckoutResponseDTO struct {
	Status         string            `json:"status"`
	Items          []domain.CartLine `json:"items"`
	Total          float64           `json:"total"`
	FormattedTotal string            `json:"formatted_total"`
	RequiredFields []string          `json:"required_fields"`
}

var requiredFields = []string{"full_name", "phone", "email", "address"}

func (h *CheckoutHandler) begin(ctx context.Context, r *http.Request) (*service.Checkout, error) {
	profileID := getProfileID(r.Context())
	return h.checkout.Begin(ctx, profileID, h.carts.Profile(profileID))
}

// GET /checkout
func (h *CheckoutHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.begin(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if c.Status == domain.CheckoutStatusRedirectCart {
		redirect(w, r, "/cart")
		return
	}

	respondJSON(w, r, http.StatusOK, CheckoutResponseDTO{
		Status:         c.Status.String(),
		Items:          c.Lines(),
		Total:          c.Total(),
		FormattedTotal: domain.FormatNaira(c.Total()),
		RequiredFields: requiredFields,
	})
}

// POST /checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := r.Header.Get(IdempotencyKeyHeader)
	if orderID, ok := h.checkout.Replay(ctx, getProfileID(r.Context()), key); ok {
		redirect(w, r, "/order-summary/"+orderID)
		return
	}

	c, err := h.begin(ctx, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if c.Status == domain.CheckoutStatusRedirectCart {
		redirect(w, r, "/cart")
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	form := service.CheckoutForm{
		Customer: domain.Customer{
			FullName:    req.FullName,
			CompanyName: req.CompanyName,
			Phone:       req.Phone,
			Email:       req.Email,
			Address:     req.Address,
		},
		Notes: req.Notes,
	}
	err = h.checkout.Submit(ctx, c, form, key)
	if err != nil && c.Message == service.MsgOrderFailed {
		// the cart is intact and the user may retry
		status, _ := classify(err)
		respondJSON(w, r, status, ErrorResponse{
			Error: c.Message,
			Code:  "order_failed",
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	redirect(w, r, "/order-summary/"+c.OrderID)
}
