package main

import (
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/config"
	"github.com/kindredhq/kindred-engine/pkg/handlers"
	"github.com/kindredhq/kindred-engine/pkg/services"

	// Provider adapters register themselves on import.
	_ "github.com/kindredhq/kindred-engine/pkg/providers/hubspot"
	_ "github.com/kindredhq/kindred-engine/pkg/providers/mssql"
	_ "github.com/kindredhq/kindred-engine/pkg/providers/postgres"
	_ "github.com/kindredhq/kindred-engine/pkg/providers/salesforce"
	_ "github.com/kindredhq/kindred-engine/pkg/providers/shopify"
	_ "github.com/kindredhq/kindred-engine/pkg/providers/zendesk"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("business", cfg.Business.BusinessName),
		zap.String("industry", cfg.Business.Industry),
		zap.Int("providers", len(cfg.Business.EnabledProviders())))

	service, err := services.NewCustomerDataService(cfg.Business, logger)
	if err != nil {
		logger.Fatal("Failed to initialize customer data service", zap.Error(err))
	}
	defer func() { _ = service.Close() }()

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewCustomersHandler(service, logger).RegisterRoutes(mux)
	handlers.NewProvidersHandler(service, logger).RegisterRoutes(mux)

	logger.Info("Starting kindred-engine",
		zap.String("addr", cfg.Addr()),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(cfg.Addr(), mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a human-readable development
// logger when running locally.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
