package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/config"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/repository"
	"github.com/artefactory/smartparks/internal/repository/bigquery"
	"github.com/artefactory/smartparks/internal/repository/gcs"
	"github.com/artefactory/smartparks/internal/repository/localfs"
	"github.com/artefactory/smartparks/internal/repository/sqlite"
	"github.com/artefactory/smartparks/internal/routes"
	"github.com/artefactory/smartparks/internal/services"
	"github.com/artefactory/smartparks/internal/services/annotator"
	"github.com/artefactory/smartparks/internal/services/dashboard"
	"github.com/artefactory/smartparks/internal/services/metadata"
	"github.com/artefactory/smartparks/internal/services/notify"
	"github.com/artefactory/smartparks/internal/services/provider"
	"github.com/artefactory/smartparks/internal/services/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	objects    repository.ObjectStore
	cameras    *metadata.Store
	hubService *websocket.HubService
	dashboard  *dashboard.Service
	manager    *services.Manager
	closers    []io.Closer
}

func NewApp(ctx context.Context) (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: log}

	if err := os.MkdirAll(cfg.WorkDirectory, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	if a.objects, err = a.openObjectStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	warehouse, err := a.openWarehouse(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	vision, err := provider.NewGCPVision(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, vision)
	video, err := provider.NewGCPVideo(ctx, cfg.VideoTimeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, video)

	a.cameras = metadata.NewStore(a.objects, cfg.OutputBucket, cfg.MetadataObject)
	a.hubService = websocket.NewHubService(log)
	a.dashboard = dashboard.NewService(warehouse, a.cameras, cfg.CameraNames, cfg.Project, cfg.InputBucket, log)

	videos := annotator.NewVideoAnnotator(
		cfg.ConfidenceThreshold,
		cfg.FrameTolerance,
		cfg.PreviewFrame,
		annotator.NewFFmpegTranscoder(cfg.FFmpegPath),
		log,
	)

	a.manager = services.NewManager(cfg, services.Dependencies{
		Objects:   a.objects,
		Warehouse: warehouse,
		Cameras:   a.cameras,
		Vision:    vision,
		Video:     video,
		Annotator: videos,
		Notifiers: []notify.Notifier{
			notify.NewWebhook(cfg.NodeRedURL, cfg.NotifyTimeout, log),
			a.hubService,
		},
	}, log)

	return a, nil
}

func (a *App) openObjectStore(ctx context.Context) (repository.ObjectStore, error) {
	switch a.config.StorageBackend {
	case config.BackendLocal:
		return localfs.NewStore(a.config.StorageDirectory)
	case config.BackendGCS:
		store, err := gcs.NewStore(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.config.StorageBackend)
}

func (a *App) openWarehouse(ctx context.Context) (repository.Warehouse, error) {
	switch a.config.WarehouseBackend {
	case config.BackendSQLite:
		db, err := sqlite.New(a.config.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return sqlite.NewWarehouse(db), nil
	case config.BackendBigQuery:
		wh, err := bigquery.NewWarehouse(ctx, a.config.Project)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, wh)
		return wh, nil
	}
	return nil, fmt.Errorf("unknown warehouse backend %q", a.config.WarehouseBackend)
}

// Manager exposes the ingestion pipeline for one-shot runs.
func (a *App) Manager() *services.Manager {
	return a.manager
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hubService.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRoutes(routes.Services{
		Processor:  a.manager,
		Classifier: a.manager,
		Views:      a.dashboard,
		Cameras:    a.cameras,
		Objects:    a.objects,
		Hub:        a.hubService,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	a.logger.Info().
		Int("port", a.config.Port).
		Str("storage", a.config.StorageBackend).
		Str("warehouse", a.config.WarehouseBackend).
		Str("input_bucket", a.config.InputBucket).
		Str("output_bucket", a.config.OutputBucket).
		Msg("smart parks annotation server starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return server.Shutdown(shutdownCtx)
}

// Close releases clients, the database and the log files.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
