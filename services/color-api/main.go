package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/summmmi/socket.ooo/internal/store"
)

func main() {
	// 1. Logování na JSON (standard pro kontejnery)
	cfg := LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	logger.Info("Startuji Color API", "port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Valkey je jen zrychlení, bez něj se čte z DB.
	var cache store.LastColorCache
	if cfg.ValkeyAddr != "" {
		c, err := store.NewCache(ctx, cfg.ValkeyAddr, cfg.CacheTTL)
		if err != nil {
			logger.Warn("Valkey nedostupné, čtu jen z DB", "error", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	// 3. Bez databáze nemá API co vracet.
	repo, err := store.Connect(ctx, cfg.PostgresURL, cache, logger)
	if err != nil {
		logger.Error("Kritická chyba: Nelze se připojit k DB", store.ErrorAttrs(err)...)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Instrument(prometheus.DefaultRegisterer); err != nil {
		logger.Error("Kritická chyba: Nelze zaregistrovat metriky úložiště", "error", err)
		os.Exit(1)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("Kritická chyba: Nelze vytvořit tabulku led_colors", store.ErrorAttrs(err)...)
		os.Exit(1)
	}

	// 4. Wiring
	svc := NewService(repo)
	api := NewAPIHandler(svc, NewMetrics(prometheus.DefaultRegisterer), logger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: CorsMiddleware(mux),
	}

	go func() {
		logger.Info("HTTP server naslouchá", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server spadl", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Vypínám Color API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Chyba při vypínání HTTP serveru", "error", err)
	}
}
