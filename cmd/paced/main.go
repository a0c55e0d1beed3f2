// Command paced runs rate-limited jobs described by a YAML file and serves
// their metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vnykmshr/pace/internal/logging"
	"github.com/vnykmshr/pace/pkg/config"
)

func main() {
	configPath := flag.String("config", "paced.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "paced: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("paced starting",
		zap.String("config", configPath),
		zap.Strings("limiters", svc.limiters.Names()),
		zap.Int("jobs", len(cfg.Jobs)),
	)

	return svc.Run(ctx)
}
