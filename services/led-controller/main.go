package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/summmmi/socket.ooo/internal/noise"
	"github.com/summmmi/socket.ooo/internal/profile"
	"github.com/summmmi/socket.ooo/internal/store"
)

const serviceName = "led-controller"

func main() {
	cfg := LoadConfig()
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))

	// 1. Profil (šum, korekce, formát payloadu). Chyba profilu je fatální.
	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		logger.Error("Kritická chyba: Nelze načíst profil", "path", cfg.ProfilePath, "error", err)
		os.Exit(1)
	}

	// 2. MQTT klient. Handlery jen posílají události do smyčky ovladače,
	// která vznikne níž (dřív, než se klient poprvé připojí).
	var ctrl *Controller

	clientID := cfg.MQTTClientID + "-" + uuid.New().String()[:8]
	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTTBroker).SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectionAttemptHandler(func(broker *url.URL, tlsCfg *tls.Config) *tls.Config {
		ctrl.ConnEvent(EventAttempt)
		return tlsCfg
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		ctrl.ConnEvent(EventConnected)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Warn("Spojení s MQTT brokerem ztraceno", "error", err)
		ctrl.ConnEvent(EventLost)
	})
	opts.SetReconnectingHandler(func(c mqtt.Client, o *mqtt.ClientOptions) {
		ctrl.ConnEvent(EventReconnecting)
	})
	client := mqtt.NewClient(opts)

	// Logy volitelně i do MQTT (logs/led-controller) pro log-collector.
	if cfg.MQTTLogs {
		w := io.MultiWriter(os.Stdout, NewMqttLogWriter(client, serviceName))
		logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	logger.Info("Startuji LED Controller", "broker", cfg.MQTTBroker, "client_id", clientID, "topic", cfg.LEDTopic)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Databáze jsou volitelné. Nedostupná DB při startu jen vypne ukládání.
	var cache store.LastColorCache
	if cfg.ValkeyAddr != "" {
		c, err := store.NewCache(ctx, cfg.ValkeyAddr, cfg.CacheTTL)
		if err != nil {
			logger.Error("Nelze se připojit k Valkey, pokračuji bez cache", "error", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	var rec Recorder
	if cfg.PostgresURL != "" {
		repo, err := store.Connect(ctx, cfg.PostgresURL, cache, logger)
		if err != nil {
			logger.Error("Nelze se připojit k DB, barvy se nebudou ukládat", store.ErrorAttrs(err)...)
		} else if err := repo.Instrument(prometheus.DefaultRegisterer); err != nil {
			logger.Error("Nelze zaregistrovat metriky úložiště", "error", err)
			repo.Close()
		} else if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("Nelze vytvořit tabulku led_colors", store.ErrorAttrs(err)...)
			repo.Close()
		} else {
			defer repo.Close()
			rec = repo
		}
	} else {
		logger.Info("POSTGRES_URL není nastaveno, barvy se neukládají")
	}

	// 4. Wiring
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	sampler := noise.NewSampler(prof.Noise)
	dispatcher := NewDispatcher(client, rec, DispatchConfig{
		Topic:         cfg.LEDTopic,
		Mode:          prof.Payload,
		Correction:    prof.Correction,
		InsertTimeout: cfg.InsertTimeout,
	}, logger, metrics)
	hub := NewHub(logger)
	ctrl = NewController(sampler, dispatcher, hub, cfg.SampleInterval, logger, metrics)

	go hub.Run(ctx)
	go ctrl.Run(ctx)

	// 5. Připojení k brokeru. S ConnectRetry se token dokončí až po úspěchu,
	// proto se na něj čeká mimo main.
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logger.Error("MQTT Connection failed", "error", token.Error())
			ctrl.ConnEvent(EventError)
		}
	}()

	// 6. HTTP
	mux := http.NewServeMux()
	NewAPIHandler(ctrl, sampler, logger).RegisterRoutes(mux)
	mux.Handle("GET /ws", NewStreamHandler(hub, ctrl, logger))
	mux.Handle("GET /health", NewHealthHandler(ctrl, logger))
	mux.Handle("GET /metrics", promhttp.Handler())

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

	// 7. Čekání na signál a úklid
	<-ctx.Done()
	logger.Info("Vypínám LED Controller...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Chyba při vypínání HTTP serveru", "error", err)
	}

	// Rozběhnuté publish/insert doběhnou, ale nejdéle do timeoutu.
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Nedokončené odesílání při vypnutí")
	}

	client.Disconnect(250)
	logger.Info("LED Controller ukončen")
}
