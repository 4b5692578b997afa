package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/config"
	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/handler"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/memstore"
	"github.com/josh-kwaku/recipe-wallet/internal/middleware"
	"github.com/josh-kwaku/recipe-wallet/internal/notify"
	"github.com/josh-kwaku/recipe-wallet/internal/repository"
	"github.com/josh-kwaku/recipe-wallet/internal/service/payment"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

const (
	dbConnectTimeout = 30 * time.Second
	requestTimeout   = 30 * time.Second
)

type walletBackend interface {
	wallet.Store
	Create(ctx context.Context, account *domain.Account) (bool, error)
	Ping(ctx context.Context) error
}

type itemCatalog interface {
	GetPricedItem(ctx context.Context, itemID uuid.UUID) (*domain.PricedItem, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("recipe-wallet", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, items, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sink, closeSink, err := openSink(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open notification sink", "sink", cfg.NotifySink, "error", err)
		os.Exit(1)
	}
	defer closeSink()

	dispatcher := notify.NewDispatcher(sink, logger.With("component", "notify"), notify.DispatcherConfig{
		Buffer:     cfg.NotifyBuffer,
		Workers:    cfg.NotifyWorkers,
		MaxElapsed: cfg.NotifyMaxElapsed(),
	})
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Start(dispatchCtx)
	}()

	svc := payment.NewService(store, items, dispatcher, cfg)
	slog.Info("wallet service ready",
		"driver", cfg.StoreDriver,
		"transactional", svc.Transactional(),
		"notify_sink", cfg.NotifySink,
	)

	router := newRouter(cfg, handler.NewWalletHandler(svc), handler.NewHealthHandler(store))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	stopDispatch()
	<-dispatchDone
	slog.Info("server stopped")
}

func newRouter(cfg *config.Config, wallet *handler.WalletHandler, health *handler.HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Tracing)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Post("/wallet", wallet.Open)
		r.Get("/wallet/balance", wallet.Balance)
		r.With(middleware.Idempotency(true)).Post("/wallet/deposits", wallet.Deposit)
		r.With(middleware.Idempotency(false)).Post("/wallet/purchases/{item_id}", wallet.Purchase)
		r.Get("/wallet/purchases/{item_id}", wallet.PurchaseStatus)
		r.Get("/wallet/transactions", wallet.Transactions)
	})

	return r
}

func openStore(ctx context.Context, cfg *config.Config) (walletBackend, itemCatalog, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store, balances are lost on restart")
		return memstore.New(), memstore.NewCatalog(), func() {}, nil
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}, dbConnectTimeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("openStore: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	return repository.NewStore(db), repository.NewItemRepository(db), closeDB, nil
}

func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Sink, func(), error) {
	switch cfg.NotifySink {
	case config.NotifySinkRedis:
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("openSink: %w", err)
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}
		return notify.NewRedisSink(client, cfg.NotifyQueueKey), closeClient, nil
	case config.NotifySinkHTTP:
		return notify.NewHTTPSink(cfg.NotifyWebhookURL), func() {}, nil
	default:
		return notify.NewLogSink(logger.With("component", "notify")), func() {}, nil
	}
}
