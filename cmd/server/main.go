// Command server runs the retailcore API: business verticals for customers,
// products, and orders, with every mutation captured in the audit trail.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"retailcore/internal/audit"
	auditHandler "retailcore/internal/audit/handler"
	auditMetrics "retailcore/internal/audit/metrics"
	"retailcore/internal/customer"
	customerHandler "retailcore/internal/customer/handler"
	customerService "retailcore/internal/customer/service"
	"retailcore/internal/inventory"
	inventoryHandler "retailcore/internal/inventory/handler"
	inventoryService "retailcore/internal/inventory/service"
	"retailcore/internal/platform/config"
	"retailcore/internal/platform/httpserver"
	"retailcore/internal/platform/kafka"
	"retailcore/internal/platform/logger"
	"retailcore/internal/platform/metrics"
	"retailcore/internal/platform/middleware"
	"retailcore/internal/platform/redis"
	"retailcore/internal/platform/token"
	"retailcore/internal/sales"
	salesHandler "retailcore/internal/sales/handler"
	salesService "retailcore/internal/sales/service"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	httpMetrics := metrics.New()
	engineMetrics := auditMetrics.New()

	jwtService := token.NewJWTService(cfg.JWTSigningKey, "retailcore", "retailcore-api")

	// Audit store: its own pgx pool so audit writes never ride a business
	// transaction. Dev mode falls back to memory when Postgres is unreachable.
	var auditStore audit.Store
	pgAuditStore, err := audit.NewPostgresStore(ctx, cfg.AuditDatabaseURL)
	if err != nil {
		log.Warn("audit database unavailable, using in-memory audit store", "error", err)
		auditStore = audit.NewInMemoryStore()
	} else {
		auditStore = pgAuditStore
		defer pgAuditStore.Close()
	}

	// Original-state cache: Redis when configured (shared across instances),
	// otherwise the in-process TTL cache.
	var (
		cache    audit.OriginalStateCache
		memCache *audit.MemoryCache
	)
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = audit.NewRedisCache(redisClient.Client, cfg.OriginalStateTTL)
		log.Info("using redis original-state cache")
	} else {
		memCache = audit.NewMemoryCache(cfg.OriginalStateTTL, log, engineMetrics)
		cache = memCache
	}

	var publisher audit.RecordPublisher
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		publisher = producer
		log.Info("audit record fan-out enabled", "topic", cfg.Kafka.AuditTopic)
	}

	writer := audit.NewWriter(auditStore, publisher, log, engineMetrics)
	resolver := audit.NewMetadataResolver(log)
	listener := audit.NewListener(cache, writer, resolver, log, engineMetrics)

	// Business stores share one database/sql handle; dev mode falls back to
	// memory when Postgres is unreachable.
	var (
		customerStore  customer.Store
		inventoryStore inventory.Store
		salesStore     sales.Store
	)
	db, err := openBusinessDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn("business database unavailable, using in-memory stores", "error", err)
		customerStore = customer.NewInMemory(listener)
		inventoryStore = inventory.NewInMemory(listener)
		salesStore = sales.NewInMemory(listener)
	} else {
		defer db.Close()
		customerStore = customer.NewPostgres(db, listener)
		inventoryStore = inventory.NewPostgres(db, listener)
		salesStore = sales.NewPostgres(db, listener)
	}

	customers := customerService.New(customerStore, log)
	products := inventoryService.New(inventoryStore, log)
	orders := salesService.New(salesStore, products, customers, log)
	auditQueries := audit.NewService(auditStore)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Latency(httpMetrics))
	r.Use(audit.Correlation(cfg.CorrelationSkipPrefixes))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	customerHandler.New(customers, log, jwtService).Register(r)
	inventoryHandler.New(products, log, jwtService).Register(r)
	salesHandler.New(orders, log, jwtService).Register(r)
	auditHandler.New(auditQueries, log, jwtService).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if memCache != nil {
		g.Go(func() error {
			err := memCache.Sweep(gctx, cfg.CacheSweepInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openBusinessDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
