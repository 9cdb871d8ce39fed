package main

import (
	"os"
	"strings"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/config"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	queue.RegisterMetrics(nil)

	opt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse queue redis url")
	}

	receipts := queue.ReceiptHandler{
		Mailer: common.LogMailer{Logger: logger},
		Logger: logger,
	}
	srv := queue.NewServer(opt, cfg.QueueName, cfg.QueueConcurrency, logger)

	logger.Info().Str("queue", cfg.QueueName).Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")
	// Run blocks until SIGINT or SIGTERM and then drains in-flight tasks.
	if err := srv.Run(queue.NewMux(receipts)); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
