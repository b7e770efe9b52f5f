package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/notrya/storefront/internal/domain/auth"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
	"github.com/notrya/storefront/internal/events"
	"github.com/notrya/storefront/internal/handler"
	"github.com/notrya/storefront/internal/seed"
	"github.com/notrya/storefront/internal/storage/memory"
	"github.com/notrya/storefront/internal/storage/postgres"
	"github.com/notrya/storefront/pkg/health"
	"github.com/notrya/storefront/pkg/httpmiddleware"
)

// storage is the set of repositories a driver provides.
type storage struct {
	products product.Repository
	writer   product.Writer
	orders   order.Store
	apikeys  auth.Repository
	close    func()
}

func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (*storage, error) {
	if cfg.Storage == DriverMemory {
		lg.Warn("Using in-memory storage, data is lost on exit")
		s := memory.New()
		if cfg.Memory.SeedFile != "" {
			products, err := seed.ReadFile(cfg.Memory.SeedFile)
			if err != nil {
				return nil, errors.Wrap(err, "seed memory storage")
			}
			for _, p := range products {
				s.Put(p)
			}
			lg.Info("Seeded memory storage", zap.Int("products", len(products)))
		}
		if cfg.Memory.AdminAPIKey != "" {
			s.PutAPIKey(auth.APIKeyInfo{
				ID:      "admin",
				KeyHash: auth.HashKey(cfg.Memory.AdminAPIKey, []byte(cfg.APIKeyPepper)),
				Name:    "Memory admin key",
				Scopes:  []string{auth.ScopeCatalogWrite},
			})
		}
		return &storage{
			products: s,
			writer:   s,
			orders:   s.Orders(),
			apikeys:  s,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	products := postgres.NewProductRepository(pool)
	return &storage{
		products: products,
		writer:   products,
		orders:   postgres.NewOrderStore(pool),
		apikeys:  postgres.NewAPIKeyRepository(pool),
		close:    pool.Close,
	}, nil
}

// Server is the assembled HTTP application: routes, middleware and the
// resources behind them.
type Server struct {
	Handler http.Handler

	health  *health.Health
	closers []func()
}

// Close releases the storage and event publisher, in reverse order of
// creation.
func (s *Server) Close() {
	s.health.Stop()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build creates all dependencies and the middleware-wrapped handler. Health
// checks run until ctx is done or Close is called.
func Build(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) (_ *Server, rerr error) {
	s := &Server{health: health.New()}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()
	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	s.health.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	store, err := openStorage(ctx, lg, cfg, s.health)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.close)

	orderOpts := []order.Option{
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithRetry(cfg.Order.MaxAttempts, cfg.Order.RetryInitialInterval),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, events.WithTracerProvider(m.TracerProvider()))
		s.closers = append(s.closers, func() {
			if err := pub.Close(); err != nil {
				lg.Error("Close event publisher", zap.Error(err))
			}
		})
		orderOpts = append(orderOpts, order.WithPublisher(pub))
		lg.Info("Publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Domain services.
	catalogService := product.NewService(store.products, product.ServiceConfig{
		LowStockThreshold: cfg.Catalog.LowStockThreshold,
		MaxPageSize:       cfg.Catalog.MaxPageSize,
	})
	adminService := product.NewAdmin(store.products, store.writer)
	orderService, err := order.NewService(store.products, store.orders, orderOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.New(
		handler.Config{
			ImageBaseURL:    cfg.ImageBaseURL,
			APIKeyPepper:    []byte(cfg.APIKeyPepper),
			DefaultPageSize: cfg.Catalog.DefaultPageSize,
		},
		catalogService,
		adminService,
		orderService,
		store.apikeys,
	)

	mux := http.NewServeMux()
	s.health.Register(mux)
	h.Register(mux)

	s.Handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
			ExposeHeaders:    []string{"Location", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("storefront", m),
		httpmiddleware.LogRequests(),
	)

	s.health.Start(ctx, 10*time.Second)
	s.health.SetReady(true)
	return s, nil
}

// Run builds the application, serves it on cfg.Addr, and handles graceful
// shutdown once ctx is done.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	s, err := Build(ctx, zctx.From(ctx), m, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           s.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
