package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/analysis"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/config"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/server"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zc zap.Config
	switch format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		zc.OutputPaths = []string{loggingConfig.OutputFile}
		zc.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zc.Build()
}

// loadConfiguration reads the config file. A missing file at the default
// location is not an error; defaults and environment are used instead.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	conf, err := config.LoadConfiguration(path)
	if err != nil && !explicit && config.IsNotExist(err) {
		return config.LoadConfiguration("")
	}
	return conf, err
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	addr := flag.String("addr", "", "listen address override, e.g. :8080")
	flag.Parse()

	// .env only seeds the environment; real variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
	}

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	conf, err := loadConfiguration(*configLocation, explicit)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if *addr != "" {
		conf.Server.Address = *addr
	}
	serverConfig, err := server.NewConfig(conf.Server)
	if err != nil {
		logger.Fatal("invalid server configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := run(conf, serverConfig, logger); err != nil {
		logger.Fatal("server stopped with error",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func run(conf *config.Configuration, serverConfig *server.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := conf.Database.Path
	if dbPath == "" {
		dbPath = constants.DefaultDatabasePath
	}
	db, err := store.New(store.Config{Path: dbPath}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database",
				zap.String("op", "main.run"),
				zap.Error(err),
			)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	methodologies := store.NewMethodologyRepository(db)
	indices := store.NewIndexRepository(db)
	if err := indices.Seed(ctx, market.DefaultIndices()); err != nil {
		return err
	}

	var quotes fund.Provider
	if conf.Quotes.Enabled {
		timeout := time.Duration(conf.Quotes.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = constants.DefaultQuoteTimeoutSeconds * time.Second
		}
		quotes = fund.NewHTTPProvider(conf.Quotes.Endpoint, timeout, logger)
	}

	service := analysis.NewService(methodologies, indices, store.NewAnalysisRepository(db), quotes,
		analysis.Defaults{IPCA: conf.Valuation.IPCA, Premium: conf.Valuation.Premium}, logger)

	handler := server.NewHandler(server.Dependencies{
		DB:              db,
		Methodologies:   methodologies,
		Pillars:         store.NewPillarRepository(db),
		Criteria:        store.NewCriterionRepository(db),
		Ranges:          store.NewRangeRepository(db),
		Indices:         indices,
		Analyses:        service,
		ProjectionYears: conf.Valuation.ProjectionYears,
		TerminalGrowth:  conf.Valuation.TerminalGrowth,
	}, serverConfig, logger, version)

	srv := &http.Server{
		Addr:              serverConfig.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "main.run"),
			zap.String("address", serverConfig.Address),
			zap.String("database", db.Path()),
			zap.Bool("quotes", quotes != nil),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server",
		zap.String("op", "main.run"),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
