package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/events"
)

func (h *Handler) readLines(r *http.Request) ([]order.Line, error) {
	var lines []order.Line
	err := decodeBody(r, func(d *jx.Decoder) error {
		var err error
		lines, err = decodeLines(d)
		return err
	})
	return lines, err
}

// placeOrder validates stock, decrements it and stores the order in one
// transaction, answering 201 with the priced order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	lines, err := h.readLines(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.PlaceOrder(r.Context(), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { events.EncodeOrder(e, o) })
}

// checkStock reports the lines that could not be fulfilled right now.
func (h *Handler) checkStock(w http.ResponseWriter, r *http.Request) {
	lines, err := h.readLines(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	errs, err := h.orders.CheckStock(r.Context(), lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("available")
		e.Bool(len(errs) == 0)
		e.FieldStart("stockErrors")
		encodeStockErrors(e, errs)
		e.ObjEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { events.EncodeOrder(e, o) })
}
