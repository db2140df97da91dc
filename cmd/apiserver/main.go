// apiserver serves the ContractKeeper REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ContractKeeper/internal/bootstrap"
	"github.com/turtacn/ContractKeeper/internal/config"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/ContractKeeper/internal/interfaces/http"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/middleware"
)

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment only when empty)")
	migrate := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	load := config.Load
	if path == "" {
		load = func(string) (*config.Config, error) { return config.LoadFromEnv() }
	}
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Postgres.ApplicationName == "" {
		cfg.Database.Postgres.ApplicationName = "contractkeeper-apiserver"
	}
	return cfg, nil
}

func run(configPath string, migrate bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Monitoring.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.Named("apiserver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	if migrate {
		if err := infra.DB.RunMigrations(); err != nil {
			return err
		}
	}

	svc, err := infra.Services()
	if err != nil {
		return err
	}

	metricsPath := cfg.Monitoring.Prometheus.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	routerCfg := httpserver.RouterConfig{
		ContractHandler: handlers.NewContractHandler(svc.Contracts, svc.Trash, logger),
		TrashHandler:    handlers.NewTrashHandler(svc.Trash, logger),
		CategoryHandler: handlers.NewCategoryHandler(svc.Categories, logger),
		SettingsHandler: handlers.NewSettingsHandler(svc.Settings, logger),
		HealthHandler:   handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		AuthMiddleware: keycloak.NewAuthMiddleware(infra.Keycloak, logger, keycloak.AuthMiddlewareConfig{
			SkipPaths: []string{"/healthz", "/readyz", metricsPath},
		}),
		SubjectResolver: svc.Evaluator,
		Logger:          logger,
		Metrics:         infra.Metrics,
		MetricsPath:     metricsPath,
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.AllowedOrigins
		routerCfg.CORS = &cors
	}
	if cfg.Monitoring.Prometheus.Enabled {
		routerCfg.MetricsCollector = infra.Collector
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(routerCfg), logger)

	logger.Info("Starting ContractKeeper API server",
		logging.String("version", version),
		logging.String("addr", server.Addr()),
	)
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("API server stopped")
	return nil
}

//Personal.AI order the ending
