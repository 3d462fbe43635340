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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zigstake/event-ledger/internal/config"
	"github.com/zigstake/event-ledger/internal/ledger"
	"github.com/zigstake/event-ledger/internal/metrics"
	"github.com/zigstake/event-ledger/internal/model"
	"github.com/zigstake/event-ledger/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	hub := ledger.NewHub()
	go hub.Run()

	// --- Command engine ---
	engine := ledger.NewEngine(st, cfg.StakeDenom, hub)

	// Seed the ledger config on first boot; an already-initialized ledger
	// keeps its stored admin and fee (UpdateFee is the only mutator).
	if _, err := st.GetConfig(context.Background()); errors.Is(err, model.ErrNotFound) {
		if _, err := engine.Initialize(context.Background(), cfg.AdminID, cfg.TreasuryFeeBps, cfg.TreasuryID); err != nil {
			slog.Error("ledger initialization failed", "err", err)
			os.Exit(1)
		}
	} else if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"event-ledger"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time bet and lifecycle updates.
		r.Get("/ws", hub.HandleWS)

		// Admin commands.
		r.Post("/events", engine.HandleAddEvent)
		r.Post("/events/{eventID}/start", engine.HandleStartEvent)
		r.Post("/events/{eventID}/resolve", engine.HandleEndEvent)
		r.Post("/config/fee", engine.HandleUpdateFee)

		// Bet placement.
		r.Post("/bets", engine.HandlePlaceBet)

		// Queries.
		r.Get("/events", engine.HandleListEvents)
		r.Get("/events/{eventID}", engine.HandleGetEvent)
		r.Get("/events/{eventID}/bets/{user}", engine.HandleGetBet)
		r.Get("/users/{user}/bets", engine.HandleGetUserBets)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("event-ledger listening", "port", cfg.Port, "stake_denom", cfg.StakeDenom)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down event-ledger...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("event-ledger stopped")
}
