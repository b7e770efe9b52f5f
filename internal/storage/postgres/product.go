package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

const productColumns = `id, name, description, price, stock, category, size, color, gender,
	brand, material, image_url, active, created_at, updated_at, version`

// ProductRepository implements product.Repository and product.Writer backed
// by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p                             product.Product
		category, size, color, gender string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&category, &size, &color, &gender,
		&p.Brand, &p.Material, &p.ImageURL, &p.Active,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	)
	p.Category = catalog.Category(category)
	p.Size = catalog.Size(size)
	p.Color = catalog.Color(color)
	p.Gender = catalog.Gender(gender)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]product.Product, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		return scanProduct(row)
	})
}

// GetByID returns an active product.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// GetByIDs returns the active products among ids ordered by id. Unknown ids
// are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND active ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query products by ids")
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return ps, nil
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends a condition. format receives the placeholder index of arg as
// its only verb argument.
func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	return "WHERE " + strings.Join(w.conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func criteriaWhere(c product.Criteria) *where {
	w := &where{conds: []string{"active"}}
	if c.Search != "" {
		w.add("(name ILIKE $%[1]d OR brand ILIKE $%[1]d OR description ILIKE $%[1]d)", likePattern(c.Search))
	}
	if c.Brand != "" {
		w.add("brand ILIKE $%d", likePattern(c.Brand))
	}
	if c.Category != nil {
		w.add("category = $%d", string(*c.Category))
	}
	if c.Gender != nil {
		w.add("gender = $%d", string(*c.Gender))
	}
	if c.Color != nil {
		w.add("color = $%d", string(*c.Color))
	}
	if c.Size != nil {
		w.add("size = $%d", string(*c.Size))
	}
	if c.MaxStock != nil {
		w.add("stock <= $%d", *c.MaxStock)
	}
	if c.ExcludeID != 0 {
		w.add("id <> $%d", c.ExcludeID)
	}
	return w
}

func orderBy(s product.Sort) string {
	switch s {
	case product.SortByStock:
		return "ORDER BY stock ASC, id ASC"
	case product.SortByNewest:
		return "ORDER BY created_at DESC, id DESC"
	default:
		return `ORDER BY name COLLATE "C" ASC, id ASC`
	}
}

// Find returns one page of active products matching c and the total number
// of matches. The count and the page are fetched concurrently.
func (r *ProductRepository) Find(ctx context.Context, c product.Criteria, p product.Pageable) ([]product.Product, int64, error) {
	w := criteriaWhere(c)

	var (
		items []product.Product
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, `SELECT count(*) FROM products `+w.String(), w.args...).Scan(&total); err != nil {
			return errors.Wrap(err, "count products")
		}
		return nil
	})
	g.Go(func() error {
		n := len(w.args)
		q := fmt.Sprintf(`SELECT %s FROM products %s %s LIMIT $%d OFFSET $%d`,
			productColumns, w, orderBy(c.Sort), n+1, n+2)
		rows, err := r.pool.Query(gctx, q, slices.Concat(w.args, []any{p.Size, p.Offset()})...)
		if err != nil {
			return errors.Wrap(err, "query products")
		}
		if items, err = collectProducts(rows); err != nil {
			return errors.Wrap(err, "scan products")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func dimensionWhere(f product.DimensionFilter) *where {
	w := &where{conds: []string{"active"}}
	w.add("name = $%d", f.Name)
	w.add("category = $%d", string(f.Category))
	return w
}

// DistinctSizes returns the sizes of active variants matching f.
func (r *ProductRepository) DistinctSizes(ctx context.Context, f product.DimensionFilter) ([]catalog.Size, error) {
	w := dimensionWhere(f)
	if f.Color != nil {
		w.add("color = $%d", string(*f.Color))
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT size FROM products `+w.String(), w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "query sizes")
	}
	sizes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan sizes")
	}
	out := make([]catalog.Size, len(sizes))
	for i, s := range sizes {
		out[i] = catalog.Size(s)
	}
	return out, nil
}

// DistinctColors returns the colors of active variants matching f.
func (r *ProductRepository) DistinctColors(ctx context.Context, f product.DimensionFilter) ([]catalog.Color, error) {
	w := dimensionWhere(f)
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT color FROM products `+w.String(), w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "query colors")
	}
	colors, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan colors")
	}
	out := make([]catalog.Color, len(colors))
	for i, c := range colors {
		out[i] = catalog.Color(c)
	}
	return out, nil
}

// BestSellers ranks active products by the quantity sold over all orders.
func (r *ProductRepository) BestSellers(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("p", productColumns)+`
		FROM products p
		LEFT JOIN (
			SELECT product_id, sum(quantity) AS sold
			FROM order_items
			GROUP BY product_id
		) s ON s.product_id = p.id
		WHERE p.active
		ORDER BY COALESCE(s.sold, 0) DESC, p.id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query best sellers")
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan best sellers")
	}
	return ps, nil
}

func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

// Create inserts p and fills in its id, timestamps and version.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, category, size, color, gender,
			brand, material, image_url, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at, version`,
		p.Name, p.Description, p.Price, p.Stock,
		string(p.Category), string(p.Size), string(p.Color), string(p.Gender),
		p.Brand, p.Material, p.ImageURL, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

// Update replaces the mutable fields of an active product when its stored
// version equals p.Version.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $3, description = $4, price = $5, stock = $6, category = $7, size = $8,
			color = $9, gender = $10, brand = $11, material = $12, image_url = $13,
			updated_at = now(), version = version + 1
		WHERE id = $1 AND version = $2 AND active
		RETURNING created_at, updated_at, version`,
		p.ID, p.Version,
		p.Name, p.Description, p.Price, p.Stock,
		string(p.Category), string(p.Size), string(p.Color), string(p.Gender),
		p.Brand, p.Material, p.ImageURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND active)`, p.ID,
		).Scan(&exists); err != nil {
			return errors.Wrapf(err, "check product %d", p.ID)
		}
		if !exists {
			return product.ErrNotFound
		}
		return product.ErrConflict
	}
	if err != nil {
		return errors.Wrapf(err, "update product %d", p.ID)
	}
	return nil
}

// Deactivate soft-deletes an active product.
func (r *ProductRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET active = FALSE, updated_at = now(), version = version + 1
		WHERE id = $1 AND active`, id)
	if err != nil {
		return errors.Wrapf(err, "deactivate product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert writes p with its explicit id, inserting or overwriting the stored
// row. It is meant for seeding and keeps the id sequence ahead of p.ID.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	var createdAt *time.Time
	if !p.CreatedAt.IsZero() {
		createdAt = &p.CreatedAt
	}
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, description, price, stock, category, size, color, gender,
				brand, material, image_url, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
				stock = EXCLUDED.stock, category = EXCLUDED.category, size = EXCLUDED.size,
				color = EXCLUDED.color, gender = EXCLUDED.gender, brand = EXCLUDED.brand,
				material = EXCLUDED.material, image_url = EXCLUDED.image_url, active = EXCLUDED.active,
				updated_at = now(), version = products.version + 1`,
			p.ID, p.Name, p.Description, p.Price, p.Stock,
			string(p.Category), string(p.Size), string(p.Color), string(p.Gender),
			p.Brand, p.Material, p.ImageURL, p.Active, createdAt,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %d", p.ID)
		}
		if _, err := tx.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('products', 'id'), GREATEST((SELECT max(id) FROM products), 1))`,
		); err != nil {
			return errors.Wrap(err, "advance product id sequence")
		}
		return nil
	})
}
