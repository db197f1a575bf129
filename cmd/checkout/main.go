package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-a-mahammad/shop-checkout/internal/app"
	"github.com/m-a-mahammad/shop-checkout/internal/config"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("checkout", cfg.LogLevel)

	a, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("application startup failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Error("application exited with error", "error", err.Error())
		os.Exit(1)
	}
}
