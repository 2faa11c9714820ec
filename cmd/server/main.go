package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/redis"
	"github.com/perimeterhq/corsgate/internal/server"
	"github.com/perimeterhq/corsgate/internal/version"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup logger
	logger := setupLogger()

	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load and validate configuration
	cfg, err := loadAndValidateConfig(logger, *configPath)
	if err != nil {
		logger.WithError(err).Fatal("Configuration error")
	}

	// Redis is only needed when a policy sources its origins from it.
	redisClient, err := setupRedis(ctx, logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Infrastructure setup failed")
	}

	// Start HTTP server
	srv, err := startServer(cfg, logger, redisClient)
	if err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Cancel application context to signal all services to stop
	cancel()

	// Perform graceful shutdown
	shutdownGracefully(logger, cfg, srv, redisClient)
}

// setupLogger creates and configures the application logger.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	logger.WithFields(logrus.Fields{
		"version":    version.Short(),
		"git_commit": version.GitCommit,
		"build_date": version.BuildDate,
	}).Info("Starting...")

	return logger
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(
	logger *logrus.Logger,
	configPath string,
) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Set log level from config
	level, parseErr := logrus.ParseLevel(cfg.Server.LogLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, using info")

		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"port":      cfg.Server.Port,
		"log_level": cfg.Server.LogLevel,
		"policies":  len(cfg.CORS.Policies),
	}).Info("Configuration loaded")

	return cfg, nil
}

// setupRedis initializes the Redis client when any CORS policy sources
// its origin allow-list from Redis. Returns nil otherwise.
func setupRedis(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
) (redis.Client, error) {
	if !cfg.NeedsRedis() {
		logger.Debug("No Redis-backed policies configured, skipping Redis client")

		return nil, nil
	}

	redisClient := redis.NewClient(logger, redis.Config{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})

	if err := redisClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start Redis client: %w", err)
	}

	return redisClient, nil
}

// startServer creates and starts the HTTP server.
func startServer(
	cfg *config.Config,
	logger *logrus.Logger,
	redisClient redis.Client,
) (*server.Server, error) {
	srv, err := server.New(logger, cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	// Start server in goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	return srv, nil
}

// shutdownGracefully performs graceful shutdown of all components.
// Shutdown order:
// 1. HTTP server (stop accepting requests).
// 2. Redis client (close connections).
func shutdownGracefully(
	logger *logrus.Logger,
	cfg *config.Config,
	srv *server.Server,
	redisClient redis.Client,
) {
	logger.Info("Initiating graceful shutdown...")

	// Create a timeout context for the shutdown process
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}

	// Stop Redis client (closes connections)
	if redisClient != nil {
		if err := redisClient.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping Redis client")
		}
	}

	logger.Info("Server stopped gracefully")
}
