package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromCtx(r.Context()).Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// redirect sends the browser to another page with 303 See Other.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// handleServiceError converts service and domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  service.MsgFillRequired,
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
		return
	}

	httpStatus, code := classify(err)
	if httpStatus >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed", "code", code, "error", err)
		respondError(w, r, httpStatus, code, http.StatusText(httpStatus))
		return
	}
	respondError(w, r, httpStatus, code, err.Error())
}

// classify maps an error to an HTTP status and a machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrUnknownVariant):
		return http.StatusUnprocessableEntity, "invalid_argument"
	case errors.Is(err, service.ErrUnknownCopyTarget):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout_in_progress"
	case errors.Is(err, service.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrNetworkFailure):
		return http.StatusBadGateway, "network_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
