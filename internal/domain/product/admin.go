package product

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/catalog"
)

var minPrice = decimal.RequireFromString("0.01")

// Input is the writable part of a product as submitted by an administrator.
// Enumeration fields hold raw codes and are parsed strictly.
type Input struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
	Category    string          `json:"category" validate:"required"`
	Size        string          `json:"size" validate:"required"`
	Color       string          `json:"color" validate:"required"`
	Gender      string          `json:"gender" validate:"required"`
	Brand       string          `json:"brand" validate:"max=80"`
	Material    string          `json:"material" validate:"max=100"`
	ImageURL    string          `json:"imageUrl" validate:"max=500"`
}

// Admin performs validated catalog writes.
type Admin struct {
	products Repository
	writer   Writer
	validate *validator.Validate
}

// NewAdmin creates an Admin over the given repository pair.
func NewAdmin(products Repository, writer Writer) *Admin {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Admin{products: products, writer: writer, validate: v}
}

// Create validates in and stores a new active product.
func (a *Admin) Create(ctx context.Context, in Input) (*Product, error) {
	p, err := a.build(in)
	if err != nil {
		return nil, err
	}
	p.Active = true
	if err := a.writer.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update replaces the writable fields of an active product.
func (a *Admin) Update(ctx context.Context, id int64, in Input) (*Product, error) {
	p, err := a.build(in)
	if err != nil {
		return nil, err
	}
	current, err := a.products.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	p.ID = current.ID
	p.Active = current.Active
	p.CreatedAt = current.CreatedAt
	p.Version = current.Version
	if err := a.writer.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update product %d", id)
	}
	return p, nil
}

// Deactivate hides a product from every read path. Order history keeps
// referencing it.
func (a *Admin) Deactivate(ctx context.Context, id int64) error {
	if err := a.writer.Deactivate(ctx, id); err != nil {
		return errors.Wrapf(err, "deactivate product %d", id)
	}
	return nil
}

func (a *Admin) build(in Input) (*Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.Price.LessThan(minPrice) {
		return nil, apperr.Invalid("price", "must be at least %s", minPrice)
	}
	category, err := catalog.Categories.Require("category", in.Category)
	if err != nil {
		return nil, err
	}
	size, err := catalog.Sizes.Require("size", in.Size)
	if err != nil {
		return nil, err
	}
	color, err := catalog.Colors.Require("color", in.Color)
	if err != nil {
		return nil, err
	}
	gender, err := catalog.Genders.Require("gender", in.Gender)
	if err != nil {
		return nil, err
	}
	return &Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.RoundBank(2),
		Stock:       in.Stock,
		Category:    category,
		Size:        size,
		Color:       color,
		Gender:      gender,
		Brand:       in.Brand,
		Material:    in.Material,
		ImageURL:    in.ImageURL,
	}, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &apperr.ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Invalid(fe.Field(), "is required")
	case "max":
		return apperr.Invalid(fe.Field(), "must be at most %s characters", fe.Param())
	case "min":
		return apperr.Invalid(fe.Field(), "must be at least %s", fe.Param())
	default:
		return apperr.Invalid(fe.Field(), "failed %s validation", fe.Tag())
	}
}
