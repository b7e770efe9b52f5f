// Package handler exposes the catalog and order services over HTTP with
// jx-encoded JSON bodies.
package handler

import (
	"net/http"

	"github.com/notrya/storefront/internal/domain/auth"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// APIKeyPepper keys the HMAC of admin API keys.
	APIKeyPepper []byte
	// DefaultPageSize applies to listings without a size parameter.
	DefaultPageSize int
}

// Handler serves the /api routes, delegating business logic to the domain
// services.
type Handler struct {
	catalog *product.Service
	admin   *product.Admin
	orders  *order.Service
	apikeys auth.Repository

	imageBaseURL string
	pepper       []byte
	pageSize     int
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	catalog *product.Service,
	admin *product.Admin,
	orders *order.Service,
	apikeys auth.Repository,
) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = product.DefaultPageSize
	}
	return &Handler{
		catalog:      catalog,
		admin:        admin,
		orders:       orders,
		apikeys:      apikeys,
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       cfg.APIKeyPepper,
		pageSize:     cfg.DefaultPageSize,
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/products/{segment}/{value}", h.browse)
	mux.HandleFunc("GET /api/products/promotions", h.promotions)
	mux.HandleFunc("GET /api/products/newest", h.newest)
	mux.HandleFunc("GET /api/products/best-sellers", h.bestSellers)
	mux.HandleFunc("GET /api/products/sizes", h.sizes)
	mux.HandleFunc("GET /api/products/colors", h.colors)
	mux.HandleFunc("GET /api/products/categories", h.categories)
	mux.HandleFunc("GET /api/products/genders", h.genders)
	mux.HandleFunc("GET /api/products/all-colors", h.allColors)
	mux.HandleFunc("GET /api/products/all-sizes", h.allSizes)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("POST /api/orders/check", h.checkStock)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)

	guard := h.RequireAPIKey(auth.ScopeCatalogWrite)
	mux.Handle("POST /api/admin/products", guard(http.HandlerFunc(h.createProduct)))
	mux.Handle("PUT /api/admin/products/{id}", guard(http.HandlerFunc(h.updateProduct)))
	mux.Handle("DELETE /api/admin/products/{id}", guard(http.HandlerFunc(h.deleteProduct)))
}
