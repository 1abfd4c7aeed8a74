package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/teilomillet/parley/config"
	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server"
	"github.com/teilomillet/parley/server/generation"
	"github.com/teilomillet/parley/server/handlers"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/processing"
	"github.com/teilomillet/parley/server/routing"
	"go.uber.org/zap"
)

const defaultConfigFile = "parley.yaml"

var (
	configFile = flag.String("config", defaultConfigFile, "Path to configuration file")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("parley %s\n", Version)
		os.Exit(0)
	}

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, fromFile, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, level, closeLog, err := server.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer closeLog()
	defer logger.Sync()
	errors.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fromFile {
		watcher, err := config.NewConfigWatcher(*configFile, logger.Named("config"))
		if err != nil {
			logger.Warn("Config reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			go server.WatchLogLevel(ctx, watcher, level, logger)
		}
	}

	m := metrics.NewMetrics()

	adapter, err := generation.Load(ctx, cfg, logger, m)
	if err != nil {
		logger.Fatal("Failed to load generation model", zap.Error(err))
	}

	processor, err := processing.NewProcessor(adapter, nil, logger)
	if err != nil {
		logger.Fatal("Failed to create processor", zap.Error(err))
	}

	monitor := generation.NewHealthMonitor(adapter, cfg.Model.HealthCheckInterval, logger.Named("health"), m)
	go monitor.Run(ctx)

	chat := handlers.NewChatHandler(processor, m, logger)
	router := routing.NewRouter(cfg, chat, m, logger, routing.WithReadiness(monitor))
	srv := server.NewServer(cfg.Server, router, logger)

	logger.Info("Starting parley",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", cfg.Model.Backend),
	)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// loadConfig reads path, falling back to defaults when the default file is
// absent. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.LoadFile(path)
	if err == nil {
		return cfg, true, nil
	}
	if path == defaultConfigFile && stderrors.Is(err, fs.ErrNotExist) {
		cfg = config.DefaultConfig()
		return cfg, false, cfg.Validate()
	}
	return nil, false, err
}
