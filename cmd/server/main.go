package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/catalog/pgcatalog"
	"github.com/cardtable/cardtable-go/internal/config"
	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/server"
	"github.com/cardtable/cardtable-go/internal/table"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting table server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cat, closeCatalog, err := openCatalog(ctx, cfg.Catalog, logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}
	defer closeCatalog()

	opts, err := cfg.Rules.Options()
	if err != nil {
		logger.Fatal("invalid rules", zap.Error(err))
	}

	tableMgr := table.NewManager(logger, cat, opts)
	recorder := game.NewReplayRecorder(logger, cfg.Server.ReplayLimit)
	recorder.SetSaveDir(cfg.Server.ReplayDir)
	hub := server.NewHub(cfg.Server.WebSocket, tableMgr, recorder, logger)
	logger.Info("table hub initialized",
		zap.Int("resource_cap", opts.ResourceCap),
		zap.Int("opening_hand", opts.OpeningHand),
		zap.Bool("opponent_board", opts.OpponentBoard),
	)

	grpcServer, healthServer := server.NewGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.WebSocket.Address,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start WebSocket server
	go func() {
		logger.Info("starting WebSocket server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("path", cfg.Server.WebSocket.Path),
		)
		if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()
	healthServer.SetServingStatus(server.HealthService, healthpb.HealthCheckResponse_SERVING)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("table server stopped", zap.Int("open_tables", tableMgr.GetActiveTableCount()))
}

// openCatalog builds the configured card catalog and a function releasing it.
func openCatalog(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (catalog.Catalog, func(), error) {
	var (
		backend catalog.Catalog
		closeFn = func() {}
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		store, pool, err := pgcatalog.Connect(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if cfg.SeedFile != "" {
			entries, err := catalog.ReadCSVFile(cfg.SeedFile, logger)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			n, err := store.Import(ctx, entries, 500)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("catalog seeded", zap.Int("cards", n))
		}
		if count, err := store.Count(ctx); err == nil {
			logger.Info("postgres catalog ready", zap.Int64("cards", count))
		}
		backend = store
		closeFn = pool.Close

	default:
		mem := catalog.NewMemory()
		if cfg.SeedFile != "" {
			loaded, err := catalog.LoadCSVFile(cfg.SeedFile, logger)
			if err != nil {
				return nil, nil, err
			}
			mem = loaded
		}
		logger.Info("memory catalog ready", zap.Int("cards", mem.Len()))
		backend = mem
	}

	if cfg.Cache {
		return catalog.NewCached(backend), closeFn, nil
	}
	return backend, closeFn, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
