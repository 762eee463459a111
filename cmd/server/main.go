package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/harshcrop/crypto-ai/internal/api"
	"github.com/harshcrop/crypto-ai/internal/config"
	"github.com/harshcrop/crypto-ai/internal/logging"
	"github.com/harshcrop/crypto-ai/internal/scheduler"
	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

func main() {
	var configPath string
	var dataDir string
	var port int
	var host string
	var webDir string

	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (defaults to the per-user config)")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 0, "Port to run the server on (overrides config)")
	flag.StringVar(&host, "host", "", "Host to bind the server to (overrides config)")
	flag.StringVar(&webDir, "web-dir", "", "Directory for the chat widget bundle (optional)")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, host, port, dataDir, webDir)

	logDir, err := cfg.LogDir()
	if err != nil {
		slog.Error("failed to resolve log directory", "err", err)
		os.Exit(1)
	}
	logger, writer, err := logging.NewLoggerWithOptions(logDir, logging.Options{
		Level:         logging.ParseLevel(cfg.Logging.Level, slog.LevelInfo),
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
	})
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	dbPath, err := cfg.DBPath()
	if err != nil {
		logger.Error("failed to resolve db path", "err", err)
		os.Exit(1)
	}

	core, err := cryptochat.OpenWithOptions(cryptochat.Options{
		DBPath:             dbPath,
		Logger:             logger,
		CoinGeckoURL:       cfg.CoinGecko.BaseURL,
		CoinGeckoAPIKey:    cfg.CoinGecko.APIKey,
		PriceCacheTTL:      cfg.CoinGecko.CacheTTL(),
		PriceFailThreshold: cfg.CoinGecko.FailThreshold,
		PriceFailWindow:    cfg.CoinGecko.FailWindow(),
		PriceCooldown:      cfg.CoinGecko.Cooldown(),
		HTTPTimeout:        cfg.CoinGecko.HTTPTimeout(),
	})
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	sched := scheduler.New(logger)
	if spec := cfg.Scheduler.SnapshotSchedule; spec != "" {
		if err := sched.AddJob(spec, scheduler.NewSnapshotJob(core, logger)); err != nil {
			logger.Error("invalid snapshot schedule", "schedule", spec, "err", err)
			os.Exit(1)
		}
	} else {
		logger.Info("portfolio snapshot job disabled")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("CRYPTO_AI_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	addr := cfg.Addr()
	handler := api.NewRouterWithOptions(core, api.Options{
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if resolvedWebDir := resolveWebDir(cfg.Server.WebDir); resolvedWebDir != "" {
		logger.Info("serving chat widget", "web_dir", resolvedWebDir)
		handler = api.WithSPA(handler, resolvedWebDir)
	}
	handler = middleware.Compress(5)(handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr, "db_path", dbPath)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}

func resolveWebDir(input string) string {
	if input != "" {
		if dirExists(input) {
			return input
		}
		return ""
	}

	candidates := []string{"web", "../web"}
	for _, candidate := range candidates {
		if dirExists(candidate) {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, candidate := range candidates {
			path := filepath.Join(base, candidate)
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
