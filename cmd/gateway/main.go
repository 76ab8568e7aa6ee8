// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdobak/go-xerrors"

	"github.com/pateldhruv64/cow-belt-final/internal/alerting"
	"github.com/pateldhruv64/cow-belt-final/internal/analytics"
	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/api"
	"github.com/pateldhruv64/cow-belt-final/internal/auth"
	"github.com/pateldhruv64/cow-belt-final/internal/config"
	"github.com/pateldhruv64/cow-belt-final/internal/event"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/ingest"
	"github.com/pateldhruv64/cow-belt-final/internal/logging"
	"github.com/pateldhruv64/cow-belt-final/internal/retention"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
	"github.com/pateldhruv64/cow-belt-final/internal/websocket"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway stopped", slog.Any("error", xerrors.New(err)))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	webDir := flag.String("webdir", "", "Path to the web assets directory (overrides server.web_dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *webDir != "" {
		cfg.Server.WebDir = *webDir
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("failed to close store", slog.Any("error", xerrors.New(err)))
		}
	}()

	// --- Alerting and live push ---
	hub := websocket.NewHub()
	go hub.Run(ctx)

	alerter := alerting.NewAlerter(store, hub)

	if cfg.RabbitMQ.Enabled {
		rabbit, err := event.ConnectRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		alerter.AddSink(event.NewAlertPublisher(rabbit.Channel, cfg.RabbitMQ.Queue))
	}
	// Runs before the sinks' connections are closed.
	defer alerter.Wait()

	// --- Pipeline ---
	detector := anomaly.NewDetector(cfg.Anomaly)
	processor := ingest.NewProcessor(
		health.NewPredictor(),
		detector,
		store,
		alerter,
		hub,
	)

	if cfg.MQTT.Enabled {
		sub := ingest.NewSubscriber(ingest.SubscriberConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, processor)
		if err := sub.Start(); err != nil {
			return err
		}
		defer sub.Stop()
	}

	if cfg.Retention.Enabled {
		janitor := retention.NewJanitor(store, cfg.Retention.Policy)
		if err := janitor.Start(); err != nil {
			return err
		}
		defer janitor.Stop()
	}

	// --- HTTP ---
	apiHandler, err := api.NewAPIHandler(api.Deps{
		Processor: processor,
		Store:     store,
		Alerter:   alerter,
		Analyzer:  analytics.NewAnalyzer(store, detector),
		Hub:       hub,
		Auth:      auth.NewManager(cfg.Auth),
		WebDir:    cfg.Server.WebDir,
	})
	if err != nil {
		return err
	}

	dataServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.DataPort),
		Handler:           api.SetupDataRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	uiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.UIPort),
		Handler:           api.SetupUIRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		slog.Info("Starting data API server", slog.Int("port", cfg.Server.DataPort))
		serveErr <- listen(dataServer)
	}()
	go func() {
		slog.Info("Starting web UI and websocket server", slog.Int("port", cfg.Server.UIPort))
		serveErr <- listen(uiServer)
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers...")
	case err = <-serveErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := errors.Join(dataServer.Shutdown(shutdownCtx), uiServer.Shutdown(shutdownCtx))
	if err == nil && shutdownErr == nil {
		slog.Info("Servers gracefully stopped")
	}
	return errors.Join(err, shutdownErr)
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}

// openStore picks the configured backend and puts the Redis cache in front when enabled.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var (
		store storage.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case "mongo":
		store, err = storage.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case "postgres":
		store, err = storage.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
	default:
		store = storage.NewMemoryStore(cfg.Storage.MemoryCapacity)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("Storage ready", slog.String("driver", cfg.Storage.Driver))

	if !cfg.Redis.Enabled {
		return store, nil
	}
	rdb, err := storage.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return storage.NewCachedStore(store, rdb, cfg.Redis.TTL), nil
}
