package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/todd-reagan/nile-collector/internal/config"
	"github.com/todd-reagan/nile-collector/internal/handlers"
	"github.com/todd-reagan/nile-collector/internal/hecauth"
	"github.com/todd-reagan/nile-collector/internal/indexer"
	"github.com/todd-reagan/nile-collector/internal/middleware"
	"github.com/todd-reagan/nile-collector/internal/normalizer"
	"github.com/todd-reagan/nile-collector/internal/notify"
	"github.com/todd-reagan/nile-collector/internal/ratelimit"
	"github.com/todd-reagan/nile-collector/internal/repository"
	"github.com/todd-reagan/nile-collector/internal/schema"
	"github.com/todd-reagan/nile-collector/internal/server"
	"github.com/todd-reagan/nile-collector/internal/service"
	"github.com/todd-reagan/nile-collector/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collector HTTP service",
	RunE:  runServe,
}

var serveInMemory bool

func init() {
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "use the in-memory repository (development only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("collector"))
	logging.SetDefault(logger)

	slog.Info("Starting collector service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if cfgFile != "" {
		slog.Info("Loaded configuration", slog.String("config_path", cfgFile))
	}

	// Repository
	var repo repository.Repository
	if serveInMemory {
		slog.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	} else {
		connString := cfg.Database.ConnString()

		slog.Info("Connecting to PostgreSQL",
			slog.String("host", cfg.Database.Host),
			slog.Int("port", cfg.Database.Port),
			slog.String("database", cfg.Database.Database),
		)

		pgRepo, err := repository.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgRepo.Close()
		repo = pgRepo
		slog.Info("Connected to PostgreSQL")

		if cfg.Database.AutoMigrate {
			if err := runMigrations(connString); err != nil {
				return err
			}
		}
	}

	// Core pipeline
	registry, err := schema.Load()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	norm := normalizer.New(registry)

	ingestSvc := service.NewIngestService(repo, norm)
	querySvc := service.NewQueryService(repo)
	configSvc := service.NewConfigService(repo)

	// Optional rate limiting
	var limiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Ingestion.RateLimitEnabled && cfg.Redis.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		slog.Info("Rate limiting enabled",
			slog.Int("requests", cfg.Ingestion.RateLimitRequests),
			slog.Duration("window", cfg.Ingestion.RateLimitWindow),
		)
	}

	// Optional OpenSearch mirror
	if cfg.OpenSearch.Enabled {
		osClient, err := indexer.NewClient(indexer.Config{
			URL:           cfg.OpenSearch.URL,
			Username:      cfg.OpenSearch.Username,
			Password:      cfg.OpenSearch.Password,
			TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
			IndexPrefix:   cfg.OpenSearch.IndexPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to create opensearch client: %w", err)
		}
		if err := osClient.Ping(context.Background()); err != nil {
			slog.Warn("OpenSearch not reachable, mirroring may fail", slog.String("error", err.Error()))
		}
		ingestSvc.SetIndexer(osClient)
		slog.Info("OpenSearch mirroring enabled", slog.String("url", cfg.OpenSearch.URL))
	}

	// Optional NATS notifications
	if cfg.NATS.Enabled {
		notifier, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer notifier.Close()
		ingestSvc.SetNotifier(notifier)
		slog.Info("NATS notifications enabled", slog.String("subject", cfg.NATS.Subject))
	}

	// HTTP surface
	hecHandler := handlers.NewHECHandler(hecauth.New(repo), ingestSvc, limiter)
	eventsHandler := handlers.NewEventsHandler(querySvc)
	configHandler := handlers.NewConfigHandler(configSvc)
	authMW := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	router := server.NewRouter(hecHandler, eventsHandler, configHandler, authMW)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Collector listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped gracefully")
	return nil
}

func runMigrations(connString string) error {
	slog.Info("Running database migrations")
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("Could not get migration version", slog.String("error", err.Error()))
	} else {
		slog.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}
