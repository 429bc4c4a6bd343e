// Command annotate runs the pipeline once for an object already stored in
// the input bucket, for replays and backfills.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/artefactory/smartparks/internal/app"
	"github.com/artefactory/smartparks/internal/models"
)

func main() {
	name := flag.String("name", "", "object name, <camera>/<file>")
	contentType := flag.String("content-type", "", "object content type")
	size := flag.Int64("size", 0, "object size in bytes")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	outcome, err := application.Manager().HandleMediaEvent(ctx, models.MediaEvent{
		Name:        *name,
		ContentType: *contentType,
		Size:        models.ObjectSize(*size),
	})
	if err != nil {
		application.Logger().Error().Err(err).Str("name", *name).Msg("annotation failed")
		application.Close()
		os.Exit(1)
	}

	fmt.Printf("%s\t%s\t%s\n", outcome.Kind, *name, outcome.BestDetection)
}
