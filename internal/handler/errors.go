package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

// writeError maps domain errors to HTTP responses. Anything unclassified is
// logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *apperr.ValidationError
		stock      *order.InsufficientStockError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.ObjStart()
			errorFields(e, http.StatusBadRequest, validation.Error())
			e.FieldStart("field")
			e.Str(validation.Field)
			e.ObjEnd()
		})
	case errors.As(err, &stock):
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.ObjStart()
			errorFields(e, http.StatusUnprocessableEntity, "insufficient stock")
			e.FieldStart("stockErrors")
			encodeStockErrors(e, stock.Errors)
			e.ObjEnd()
		})
	case errors.Is(err, product.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "product not found")
	case errors.Is(err, order.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "order not found")
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrConflict):
		writeMessage(w, http.StatusConflict, "conflicting concurrent update, retry the request")
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		errorFields(e, status, msg)
		e.ObjEnd()
	})
}

func errorFields(e *jx.Encoder, status int, msg string) {
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
}
