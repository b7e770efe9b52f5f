//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/notrya/storefront/internal/domain/auth"
	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())

	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	code := m.Run()

	testPool.Close()
	_ = ctr.Terminate(ctx)
	os.Exit(code)
}

func reset(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE order_items, orders, products, api_keys RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func newProduct(name, price string, stock int) *product.Product {
	return &product.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: catalog.CategoryCamiseta,
		Size:     catalog.SizeM,
		Color:    catalog.ColorPreto,
		Gender:   catalog.GenderUnissex,
		Brand:    "Notrya",
		Active:   true,
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), testPool))
}

func TestProductRepository(t *testing.T) {
	reset(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	tee := newProduct("Basic Tee", "49.90", 3)
	tee.Description = "100% cotton"
	require.NoError(t, repo.Create(ctx, tee))
	assert.NotZero(t, tee.ID)
	assert.Equal(t, int64(1), tee.Version)

	dress := newProduct("Summer Dress", "129.00", 8)
	dress.Category = catalog.CategoryVestido
	dress.Gender = catalog.GenderFeminino
	dress.Color = catalog.ColorAzul
	require.NoError(t, repo.Create(ctx, dress))

	got, err := repo.GetByID(ctx, tee.ID)
	require.NoError(t, err)
	assert.Equal(t, "49.90", got.Price.StringFixed(2))
	assert.Equal(t, catalog.CategoryCamiseta, got.Category)

	t.Run("find", func(t *testing.T) {
		tests := []struct {
			name string
			c    product.Criteria
			want []int64
		}{
			{name: "all", want: []int64{tee.ID, dress.ID}},
			{name: "percent is literal", c: product.Criteria{Search: "100%"}, want: []int64{tee.ID}},
			{name: "underscore is literal", c: product.Criteria{Search: "_"}, want: []int64{}},
			{name: "category", c: product.Criteria{Category: &dress.Category}, want: []int64{dress.ID}},
			{name: "stock order", c: product.Criteria{Sort: product.SortByStock}, want: []int64{tee.ID, dress.ID}},
			{name: "exclude", c: product.Criteria{ExcludeID: tee.ID}, want: []int64{dress.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				items, total, err := repo.Find(ctx, tt.c, product.Pageable{Size: 10})
				require.NoError(t, err)
				assert.Equal(t, int64(len(tt.want)), total)
				gotIDs := make([]int64, 0, len(items))
				for _, p := range items {
					gotIDs = append(gotIDs, p.ID)
				}
				assert.Equal(t, tt.want, gotIDs)
			})
		}
	})

	t.Run("update conflict", func(t *testing.T) {
		stale := *tee
		tee.Stock = 4
		require.NoError(t, repo.Update(ctx, tee))
		assert.Equal(t, int64(2), tee.Version)
		require.ErrorIs(t, repo.Update(ctx, &stale), product.ErrConflict)
	})

	t.Run("distinct colors", func(t *testing.T) {
		colors, err := repo.DistinctColors(ctx, product.DimensionFilter{Name: "Basic Tee", Category: catalog.CategoryCamiseta})
		require.NoError(t, err)
		assert.Equal(t, []catalog.Color{catalog.ColorPreto}, colors)
	})

	t.Run("deactivate", func(t *testing.T) {
		require.NoError(t, repo.Deactivate(ctx, dress.ID))
		_, err := repo.GetByID(ctx, dress.ID)
		require.ErrorIs(t, err, product.ErrNotFound)
		require.ErrorIs(t, repo.Deactivate(ctx, dress.ID), product.ErrNotFound)
		require.ErrorIs(t, repo.Update(ctx, dress), product.ErrNotFound)
	})
}

func TestProductRepository_NameOrderIsBytewise(t *testing.T) {
	reset(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	for _, name := range []string{"camisa", "Zebra", "Ávila", "avental"} {
		require.NoError(t, repo.Create(ctx, newProduct(name, "10.00", 1)))
	}

	items, _, err := repo.Find(ctx, product.Criteria{Sort: product.SortByName}, product.Pageable{Size: 10})
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, p := range items {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Zebra", "avental", "camisa", "Ávila"}, names)
}

func TestOrderStore_PlaceAndRead(t *testing.T) {
	reset(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	store := NewOrderStore(testPool)

	a := newProduct("A", "19.99", 10)
	b := newProduct("B", "10.00", 0)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	svc, err := order.NewService(repo, store)
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, []order.Line{{ProductID: a.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "59.97", placed.Total.StringFixed(2))

	got, err := svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "A", got.Items[0].ProductName)
	assert.Equal(t, "59.97", got.Items[0].LineTotal.StringFixed(2))

	after, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, after.Stock)

	_, err = svc.PlaceOrder(ctx, []order.Line{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}})
	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	after, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, after.Stock)

	top, err := repo.BestSellers(ctx, 3)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, a.ID, top[0].ID)
}

func TestOrderStore_ConcurrentLastUnit(t *testing.T) {
	reset(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	p := newProduct("Last", "10.00", 1)
	require.NoError(t, repo.Create(ctx, p))

	svc, err := order.NewService(repo, NewOrderStore(testPool), order.WithRetry(5, 5*time.Millisecond))
	require.NoError(t, err)

	const workers = 8
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, []order.Line{{ProductID: p.ID, Quantity: 1}})
			var stockErr *order.InsufficientStockError
			switch {
			case err == nil:
				mu.Lock()
				ok++
				mu.Unlock()
			case errors.As(err, &stockErr), errors.Is(err, order.ErrConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	after, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Stock)
}

func TestAPIKeyRepository(t *testing.T) {
	reset(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)

	hash := auth.HashKey("secret", []byte("pepper"))
	require.NoError(t, repo.Save(ctx, auth.APIKeyInfo{
		ID: "admin", KeyHash: hash, Name: "Admin", Scopes: []string{auth.ScopeCatalogWrite},
	}))

	k, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, k.HasScope(auth.ScopeCatalogWrite))

	_, err = repo.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrUnknownKey)
}
