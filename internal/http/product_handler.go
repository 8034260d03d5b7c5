package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	catalog *service.CatalogService
	carts   cartstore.Backend
	timeout time.Duration
}

func NewProductHandler(catalog *service.CatalogService, carts cartstore.Backend, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		carts:   carts,
		timeout: timeout,
	}
}

type ProductResponse struct {
	domain.Product
	CoverImage     string `json:"cover_image"`
	FormattedPrice string `json:"formatted_price"`
}

type ProductsResponse struct {
	Query    string            `json:"query,omitempty"`
	Products []ProductResponse `json:"products"`
}

type AddToCartRequestDTO struct {
	Quantity int             `json:"quantity"`
	Variant  *domain.Variant `json:"variant,omitempty"`
}

type AddToCartResponseDTO struct {
	Item      domain.CartLine `json:"item"`
	ItemCount int             `json:"cart_item_count"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		Product:        p,
		CoverImage:     p.CoverImage(),
		FormattedPrice: domain.FormatNaira(p.UnitPrice),
	}
}

// GET /product?q=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	query := r.URL.Query().Get("q")
	products, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := ProductsResponse{Query: query, Products: make([]ProductResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = toProductResponse(p)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GET /product/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		redirect(w, r, "/product")
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toProductResponse(*p))
}

// POST /product/{id}/cart
func (h *ProductHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req := AddToCartRequestDTO{Quantity: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	store := h.carts.Profile(getProfileID(r.Context()))
	line, err := h.catalog.AddToCart(ctx, store, chi.URLParam(r, "id"), req.Quantity, req.Variant)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	lines, err := store.ListAll(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, AddToCartResponseDTO{
		Item:      line,
		ItemCount: domain.ItemCount(lines),
	})
}
