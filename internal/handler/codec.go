package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
	"github.com/notrya/storefront/internal/events"
)

const maxBodyBytes = 1 << 20

var errBadBody = &apperr.ValidationError{Field: "body", Message: "malformed JSON"}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	events.Money(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(catalog.Categories.Label(p.Category))
	e.FieldStart("categoryCode")
	e.Str(string(p.Category))
	e.FieldStart("size")
	e.Str(catalog.Sizes.Label(p.Size))
	e.FieldStart("sizeCode")
	e.Str(string(p.Size))
	e.FieldStart("color")
	e.Str(catalog.Colors.Label(p.Color))
	e.FieldStart("colorCode")
	e.Str(string(p.Color))
	e.FieldStart("gender")
	e.Str(catalog.Genders.Label(p.Gender))
	e.FieldStart("genderCode")
	e.Str(string(p.Gender))
	e.FieldStart("brand")
	e.Str(p.Brand)
	e.FieldStart("material")
	e.Str(p.Material)
	e.FieldStart("imageUrl")
	e.Str(h.imageURL(p.ImageURL))
	e.FieldStart("active")
	e.Bool(p.Active)
	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) encodeProducts(e *jx.Encoder, ps []product.Product) {
	e.ArrStart()
	for _, p := range ps {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
}

func (h *Handler) encodePage(e *jx.Encoder, pg product.Page[product.Product]) {
	e.ObjStart()
	e.FieldStart("items")
	h.encodeProducts(e, pg.Items)
	e.FieldStart("page")
	e.Int(pg.Page)
	e.FieldStart("pageSize")
	e.Int(pg.Size)
	e.FieldStart("totalElements")
	e.Int64(pg.TotalElements)
	e.FieldStart("totalPages")
	e.Int(pg.TotalPages)
	e.FieldStart("isFirst")
	e.Bool(pg.First)
	e.FieldStart("isLast")
	e.Bool(pg.Last)
	e.ObjEnd()
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

func encodeTerms[T ~string](e *jx.Encoder, v *catalog.Vocabulary[T]) {
	e.ArrStart()
	for _, t := range v.Terms() {
		e.ObjStart()
		e.FieldStart("value")
		e.Str(string(t.Code))
		e.FieldStart("label")
		e.Str(t.Label)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeStockErrors(e *jx.Encoder, errs []order.StockError) {
	e.ArrStart()
	for _, se := range errs {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(se.ProductID)
		e.FieldStart("availableStock")
		e.Int(se.Available)
		e.FieldStart("productName")
		if se.Missing {
			e.Null()
		} else {
			e.Str(se.ProductName)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
}

// decodeBody runs fn over the request body limited to maxBodyBytes. Syntax
// errors become a validation error on "body".
func decodeBody(r *http.Request, fn func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := fn(jx.DecodeBytes(data)); err != nil {
		if apperr.IsValidation(err) {
			return err
		}
		return errBadBody
	}
	return nil
}

func decodeLines(d *jx.Decoder) ([]order.Line, error) {
	var lines []order.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var l order.Line
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "productId":
					l.ProductID, err = d.Int64()
				case "quantity":
					l.Quantity, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	return lines, err
}

func decodeInput(d *jx.Decoder) (product.Input, error) {
	var in product.Input
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = optStr(d)
		case "description":
			in.Description, err = optStr(d)
		case "price":
			in.Price, err = decodeDecimal(d)
		case "stock":
			in.Stock, err = d.Int()
		case "category":
			in.Category, err = optStr(d)
		case "size":
			in.Size, err = optStr(d)
		case "color":
			in.Color, err = optStr(d)
		case "gender":
			in.Gender, err = optStr(d)
		case "brand":
			in.Brand, err = optStr(d)
		case "material":
			in.Material, err = optStr(d)
		case "imageUrl":
			in.ImageURL, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, apperr.Invalid("price", "must be a decimal number")
		}
		return v, nil
	default:
		return decimal.Zero, apperr.Invalid("price", "must be a decimal number")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// pageable reads page and size query parameters, falling back to page 0 and
// defaultSize. Bounds are checked by the catalog service.
func pageable(r *http.Request, defaultSize int) (product.Pageable, error) {
	q := r.URL.Query()
	p := product.Pageable{Size: defaultSize}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.Invalid("page", "must be an integer")
		}
		p.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, apperr.Invalid("size", "must be an integer")
		}
		p.Size = n
	}
	return p, nil
}
