// Package seed reads catalog fixtures: a JSON array of products, optionally
// gzip-compressed.
package seed

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/product"
)

// ReadFile decodes the products in path. Files ending in .gz are
// decompressed.
func ReadFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	products, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}

// Decode reads a JSON array of products. Enumeration fields must hold
// known codes. Products are active unless "active" is false.
func Decode(r io.Reader) ([]product.Product, error) {
	var out []product.Product
	err := jx.Decode(r, 64*1024).Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type rawProduct struct {
	category, size, color, gender string
	createdAt                     string
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{Active: true}
	var raw rawProduct
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "stock":
			p.Stock, err = d.Int()
		case "category":
			raw.category, err = d.Str()
		case "size":
			raw.size, err = d.Str()
		case "color":
			raw.color, err = d.Str()
		case "gender":
			raw.gender, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "material":
			p.Material, err = d.Str()
		case "imageUrl":
			p.ImageURL, err = d.Str()
		case "active":
			p.Active, err = d.Bool()
		case "createdAt":
			raw.createdAt, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	return p, raw.apply(&p)
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func (raw rawProduct) apply(p *product.Product) error {
	var err error
	if p.ID <= 0 {
		return errors.New("id must be positive")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if !p.Price.IsPositive() {
		return errors.New("price must be positive")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	p.Price = p.Price.RoundBank(2)
	if p.Category, err = catalog.Categories.Require("category", raw.category); err != nil {
		return err
	}
	if p.Size, err = catalog.Sizes.Require("size", raw.size); err != nil {
		return err
	}
	if p.Color, err = catalog.Colors.Require("color", raw.color); err != nil {
		return err
	}
	if p.Gender, err = catalog.Genders.Require("gender", raw.gender); err != nil {
		return err
	}
	p.CreatedAt = time.Now().UTC()
	if raw.createdAt != "" {
		if p.CreatedAt, err = time.Parse(time.RFC3339, raw.createdAt); err != nil {
			return errors.Wrap(err, "createdAt")
		}
	}
	p.UpdatedAt = p.CreatedAt
	p.Version = 1
	return nil
}
