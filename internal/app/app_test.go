package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

const (
	seedFile   = "../../db/seed/products.json"
	seedCount  = 16
	testAPIKey = "integration-test-key"
	testPepper = "test-pepper"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func testConfig() *Config {
	return &Config{
		Storage:      DriverMemory,
		APIKeyPepper: testPepper,
		Memory:       MemoryConfig{SeedFile: seedFile, AdminAPIKey: testAPIKey},
		Catalog:      CatalogConfig{LowStockThreshold: 5, DefaultPageSize: 12, MaxPageSize: 100},
		Order:        OrderConfig{MaxAttempts: 3, RetryInitialInterval: time.Millisecond},
		RateLimit:    RateLimitConfig{RPS: 1000, Burst: 1000},
		CORS:         CORSConfig{Origins: []string{"*"}},
	}
}

// client talks to a running server.
type client struct {
	t    *testing.T
	base string
}

func (c client) do(method, path, body string, header ...string) (*http.Response, string) {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(data)
}

func (c client) get(path string) (*http.Response, string) {
	c.t.Helper()
	return c.do(http.MethodGet, path, "")
}

// field extracts a top-level raw JSON value.
func field(t *testing.T, body, name string) string {
	t.Helper()
	var raw string
	require.NoError(t, jx.DecodeStr(body).Obj(func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		v, err := d.Raw()
		raw = v.String()
		return err
	}))
	return raw
}

// exercise drives the public API of a server seeded with db/seed/products.json.
func exercise(t *testing.T, base string) {
	t.Run("health", func(t *testing.T) {
		c := client{t: t, base: base}
		for _, path := range []string{"/livez", "/readyz"} {
			resp, body := c.get(path)
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.Equal(t, `"ok"`, field(t, body, "status"), path)
		}
	})

	t.Run("middleware", func(t *testing.T) {
		c := client{t: t, base: base}
		resp, _ := c.get("/livez")
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		resp, _ = c.do(http.MethodGet, "/livez", "", "X-Request-ID", "custom-request-id-12345")
		assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))

		resp, _ = c.do(http.MethodOptions, "/api/products", "",
			"Origin", "http://example.com",
			"Access-Control-Request-Method", "POST",
		)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-API-Key")

		resp, _ = c.get("/api/products")
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	})

	t.Run("catalog", func(t *testing.T) {
		c := client{t: t, base: base}
		resp, body := c.get("/api/products?size=100")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "16", field(t, body, "totalElements"))

		resp, body = c.get("/api/products/category/CAMISETA")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "3", field(t, body, "totalElements"))

		resp, body = c.get("/api/products/1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `"Camiseta"`, field(t, body, "category"))

		resp, body = c.get("/api/products/colors?name=Camiseta%20B%C3%A1sica%20Algod%C3%A3o&category=CAMISETA")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `["Preto","Branco"]`, body)

		resp, _ = c.get("/api/products/shoes/x")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("orders", func(t *testing.T) {
		c := client{t: t, base: base}
		resp, body := c.do(http.MethodPost, "/api/orders/check",
			`{"items":[{"productId":11,"quantity":1}]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "false", field(t, body, "available"))

		resp, body = c.do(http.MethodPost, "/api/orders",
			`{"items":[{"productId":3,"quantity":2},{"productId":13,"quantity":1}]}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.Equal(t, "199.70", field(t, body, "total"))
		location := resp.Header.Get("Location")
		require.NotEmpty(t, location)

		resp, fetched := c.get(location)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, field(t, body, "orderId"), field(t, fetched, "orderId"))

		resp, body = c.do(http.MethodPost, "/api/orders",
			`{"items":[{"productId":3,"quantity":2}]}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.JSONEq(t, `[{"productId":3,"availableStock":1,"productName":"Camiseta Básica Algodão"}]`,
			field(t, body, "stockErrors"))

		resp, body = c.get("/api/products/best-sellers")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var first string
		require.NoError(t, jx.DecodeStr(body).Arr(func(d *jx.Decoder) error {
			if first != "" {
				return d.Skip()
			}
			v, err := d.Raw()
			first = v.String()
			return err
		}))
		assert.Equal(t, "3", field(t, first, "id"))
	})

	t.Run("admin", func(t *testing.T) {
		c := client{t: t, base: base}
		const payload = `{"name":"Chapéu Panamá","price":"149.90","stock":4,
			"category":"CHAPEU","size":"UNICO","color":"BEGE","gender":"UNISSEX"}`

		resp, _ := c.do(http.MethodPost, "/api/admin/products", payload)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, body := c.do(http.MethodPost, "/api/admin/products", payload, "X-API-Key", testAPIKey)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		id := field(t, body, "id")

		resp, _ = c.do(http.MethodDelete, "/api/admin/products/"+id, "", "X-API-Key", testAPIKey)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = c.get("/api/products/" + id)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Build(ctx, zaptest.NewLogger(t), noopTelemetry{}, testConfig())
	require.NoError(t, err)
	defer s.Close()

	srv := httptest.NewServer(s.Handler)
	defer srv.Close()

	exercise(t, srv.URL)
}

func TestBuild_BadSeedFile(t *testing.T) {
	cfg := testConfig()
	cfg.Memory.SeedFile = "testdata/missing.json"
	_, err := Build(context.Background(), zaptest.NewLogger(t), noopTelemetry{}, cfg)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory", mutate: func(*Config) {}},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage = DriverPostgres },
			wantErr: "database URL is required",
		},
		{
			name:   "postgres with url",
			mutate: func(c *Config) { c.Storage, c.DatabaseURL = DriverPostgres, "postgres://localhost/store" },
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage = "sqlite" },
			wantErr: "unknown storage driver",
		},
		{
			name:    "default page above max",
			mutate:  func(c *Config) { c.Catalog.DefaultPageSize = 200 },
			wantErr: "exceeds max",
		},
		{
			name:    "brokers without topic",
			mutate:  func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} },
			wantErr: "kafka topic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg := &Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	cfg = &Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}
