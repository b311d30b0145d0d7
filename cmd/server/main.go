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

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/mamachef/internal/api"
	"github.com/mmynk/mamachef/internal/auth"
	"github.com/mmynk/mamachef/internal/config"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/mcptools"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/service"
	"github.com/mmynk/mamachef/internal/session"
	"github.com/mmynk/mamachef/internal/storage"
	"github.com/mmynk/mamachef/internal/storage/postgres"
	"github.com/mmynk/mamachef/internal/storage/sqlite"
	"github.com/mmynk/mamachef/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWith(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := gateway.New(ctx, gateway.Config{
		APIKey:            cfg.GeminiAPIKey,
		BaseURL:           cfg.GeminiBaseURL,
		VideoPollInterval: cfg.VideoPollInterval,
	})
	if err != nil {
		return err
	}
	if !client.Configured() {
		slog.Warn("GEMINI_API_KEY is not set; model calls will fail until it is configured")
	}
	gen := gateway.Instrument(client)
	studio := gateway.InstrumentStudio(client)

	sessions := session.NewManager()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	tracker := nutrition.NewTracker(store, cfg.MealRetention)
	opts := service.OptionsFromConfig(cfg)

	router := api.NewRouter(api.Deps{
		Generator:          gen,
		CredentialPresent:  client.Configured(),
		DefaultModel:       cfg.ChatModel,
		DefaultTemperature: cfg.Temperature,
		Store:              store,
		JWT:                jwtManager,
		MCP:                mcptools.NewHandler(tracker),
	})

	// Logging runs inside auth so every log line carries the session id.
	interceptors := connect.WithInterceptors(
		middleware.RequireSession(jwtManager, service.ChatServiceStartSessionProcedure),
		middleware.LoggingInterceptor(),
	)
	chatPath, chatHandler := service.NewChatServiceHandler(
		service.NewChatService(sessions, jwtManager, gen, studio, opts), interceptors)
	router.PathPrefix(chatPath).Handler(chatHandler)
	trackerPath, trackerHandler := service.NewTrackerServiceHandler(
		service.NewTrackerService(sessions, tracker, gen, opts), interceptors)
	router.PathPrefix(trackerPath).Handler(trackerHandler)

	handler := middleware.Recover(middleware.RequestLogger(middleware.CORS(router)))

	srv := &http.Server{
		Addr: cfg.HTTPAddr(),
		// h2c serves HTTP/2 without TLS for Connect clients.
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, cfg.SessionSweepPeriod, cfg.SessionTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)
		return store, nil
	}
}
