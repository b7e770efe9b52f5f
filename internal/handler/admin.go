package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/notrya/storefront/internal/domain/product"
)

func readInput(r *http.Request) (product.Input, error) {
	var in product.Input
	err := decodeBody(r, func(d *jx.Decoder) error {
		var err error
		in, err = decodeInput(d)
		return err
	})
	return in, err
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.admin.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Product created", zap.Int64("product_id", p.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, product.ErrNotFound)
		return
	}
	in, err := readInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.admin.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, product.ErrNotFound)
		return
	}
	if err := h.admin.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Product deactivated", zap.Int64("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}
