package main

import (
	"context"
	"os/signal"
	"syscall"

	"tradeview/config"
	"tradeview/internal/trading/runtime"
	"tradeview/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run client
	if _, err := runtime.StartClient(ctx, cfg, log); err != nil {
		log.Fatal("client failed", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("shutting down")
}
