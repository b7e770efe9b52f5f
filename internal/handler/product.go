package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/product"
)

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, pg product.Page[product.Product], err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodePage(e, pg) })
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	p, err := pageable(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	pg, err := h.catalog.Search(r.Context(), product.SearchQuery{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Gender:   q.Get("gender"),
		Color:    q.Get("color"),
		Size:     q.Get("size_"),
		Brand:    q.Get("brand"),
	}, p)
	h.writePage(w, r, pg, err)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, product.ErrNotFound)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}

type browseFunc func(ctx context.Context, raw string, p product.Pageable) (product.Page[product.Product], error)

// browse serves /api/products/{segment}/{value}: the fixed-dimension listings
// and /api/products/{id}/related.
func (h *Handler) browse(w http.ResponseWriter, r *http.Request) {
	segment, value := r.PathValue("segment"), r.PathValue("value")

	if value == "related" {
		h.related(w, r)
		return
	}

	var fn browseFunc
	switch segment {
	case "category":
		fn = h.catalog.ByCategory
	case "gender":
		fn = h.catalog.ByGender
	case "color":
		fn = h.catalog.ByColor
	case "size":
		fn = h.catalog.BySize
	default:
		http.NotFound(w, r)
		return
	}

	p, err := pageable(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pg, err := fn(r.Context(), value, p)
	h.writePage(w, r, pg, err)
}

func (h *Handler) related(w http.ResponseWriter, r *http.Request) {
	p, err := pageable(r, product.DefaultRelatedPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, ok := pathID(r, "segment")
	if !ok {
		h.writePage(w, r, product.EmptyPage[product.Product](p.Size), p.Validate(product.MaxPageSize))
		return
	}
	pg, err := h.catalog.Related(r.Context(), id, p)
	h.writePage(w, r, pg, err)
}

func (h *Handler) promotions(w http.ResponseWriter, r *http.Request) {
	p, err := pageable(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pg, err := h.catalog.Promotions(r.Context(), p)
	h.writePage(w, r, pg, err)
}

func (h *Handler) newest(w http.ResponseWriter, r *http.Request) {
	p, err := pageable(r, h.pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pg, err := h.catalog.Newest(r.Context(), p)
	h.writePage(w, r, pg, err)
}

func (h *Handler) bestSellers(w http.ResponseWriter, r *http.Request) {
	ps, err := h.catalog.BestSellers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProducts(e, ps) })
}

func (h *Handler) sizes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.catalog.AvailableSizes(r.Context(), q.Get("name"), q.Get("color"), q.Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStrings(e, out) })
}

func (h *Handler) colors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.catalog.AvailableColors(r.Context(), q.Get("name"), q.Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStrings(e, out) })
}

func (h *Handler) categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTerms(e, catalog.Categories) })
}

func (h *Handler) genders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTerms(e, catalog.Genders) })
}

func (h *Handler) allColors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTerms(e, catalog.Colors) })
}

func (h *Handler) allSizes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTerms(e, catalog.Sizes) })
}
