package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/artefactory/smartparks/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		application.Logger().Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
