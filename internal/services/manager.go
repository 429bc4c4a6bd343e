package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artefactory/smartparks/internal/config"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/repository"
	"github.com/artefactory/smartparks/internal/services/annotator"
	"github.com/artefactory/smartparks/internal/services/notify"
	"github.com/artefactory/smartparks/internal/services/provider"
	"github.com/artefactory/smartparks/internal/services/summary"
)

// ErrInvalidEvent reports a trigger whose object name has no camera trap prefix.
var ErrInvalidEvent = errors.New("invalid media event")

// CameraRegistry is the part of the metadata store the pipeline uses.
type CameraRegistry interface {
	Lookup(ctx context.Context, name string) (*models.CameraTrap, error)
	RecordDetection(ctx context.Context, name, detection string, at time.Time) error
}

// VideoAnnotator produces the annotated copy of a downloaded video.
type VideoAnnotator interface {
	Annotate(ctx context.Context, srcPath, workDir string, events []models.DetectionEvent) (*annotator.VideoResult, error)
}

// Dependencies are the collaborators of the Manager.
type Dependencies struct {
	Objects   repository.ObjectStore
	Warehouse repository.Warehouse
	Cameras   CameraRegistry
	Vision    provider.VisionProvider
	Video     provider.VideoProvider
	Annotator VideoAnnotator
	Notifiers []notify.Notifier
}

// Outcome describes a processed media event.
type Outcome struct {
	Kind          models.MediaKind
	BestDetection string
	Notification  models.Notification
}

// Manager runs the ingestion pipeline. Events are processed one at a time.
type Manager struct {
	deps Dependencies

	project      string
	inputBucket  string
	outputBucket string
	workDir      string
	imageExts    []string
	videoExts    []string

	logger *logger.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewManager(config *config.Config, deps Dependencies, logger *logger.Logger) *Manager {
	return &Manager{
		deps:         deps,
		project:      config.Project,
		inputBucket:  config.InputBucket,
		outputBucket: config.OutputBucket,
		workDir:      config.WorkDirectory,
		imageExts:    lower(config.ImageExtensions),
		videoExts:    lower(config.VideoExtensions),
		logger:       logger,
		now:          time.Now,
	}
}

func lower(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Classify decides which provider handles an object from its extension.
func (m *Manager) Classify(name string) models.MediaKind {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case ext == "":
		return models.MediaUnsupported
	case slices.Contains(m.imageExts, ext):
		return models.MediaImage
	case slices.Contains(m.videoExts, ext):
		return models.MediaVideo
	}
	return models.MediaUnsupported
}

// HandleMediaEvent annotates one uploaded object, stores the annotated copy,
// updates the camera trap table and notifies. Unsupported media is skipped
// without error. Warehouse, metadata and notification failures are logged
// and do not fail the event.
func (m *Manager) HandleMediaEvent(ctx context.Context, ev models.MediaEvent) (*Outcome, error) {
	camera, media, ok := strings.Cut(ev.Name, "/")
	if !ok || camera == "" || media == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, ev.Name)
	}

	kind := m.Classify(ev.Name)
	if kind == models.MediaUnsupported {
		m.logger.Warning().Str("name", ev.Name).Str("extension", path.Ext(ev.Name)).Msg("file extension not supported")
		return &Outcome{Kind: kind}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logger
	log.Info().Str("name", ev.Name).Str("camera", camera).Str("kind", string(kind)).Msg("processing media")

	timestamp := m.now()
	uri := fmt.Sprintf("gs://%s/%s", m.inputBucket, ev.Name)

	n := models.Notification{
		CameraTrapName: camera,
		Timestamp:      timestamp,
		MediaName:      media,
		Type:           ev.ContentType,
		Size:           int64(ev.Size),
		InputURL:       uri,
	}
	if trap, err := m.deps.Cameras.Lookup(ctx, camera); err != nil {
		log.Warning().Err(err).Str("camera", camera).Msg("camera trap coordinates unavailable")
	} else {
		n.Longitude, n.Latitude = trap.Longitude, trap.Latitude
	}

	var (
		best    string
		preview []byte
		err     error
	)
	switch kind {
	case models.MediaImage:
		best, n.Summary, preview, err = m.processImage(ctx, ev.Name, uri, camera, timestamp)
	case models.MediaVideo:
		best, n.Summary, preview, err = m.processVideo(ctx, ev.Name, uri, camera, timestamp)
	}
	if err != nil {
		return nil, err
	}
	if preview != nil {
		n.Image = base64.StdEncoding.EncodeToString(preview)
	}

	if err := m.deps.Cameras.RecordDetection(ctx, camera, best, timestamp); err != nil {
		log.Warning().Err(err).Str("camera", camera).Msg("failed to update camera trap metadata")
	}

	for _, notifier := range m.deps.Notifiers {
		notifier.Notify(ctx, n)
	}

	log.Info().Str("name", ev.Name).Str("best_detection", best).Msg("media processed")
	return &Outcome{Kind: kind, BestDetection: best, Notification: n}, nil
}

// store keeps the raw provider response. Failures are only logged.
func (m *Manager) store(ctx context.Context, dataset, camera, uri string, at time.Time, raw []byte) {
	tableID := repository.TableID(m.project, dataset, camera)
	row := models.WarehouseRow{Timestamp: at, URI: uri, Response: string(raw)}
	if err := m.deps.Warehouse.InsertRow(ctx, tableID, row); err != nil {
		m.logger.Error().Err(err).Str("table", tableID).Str("uri", uri).Msg("warehouse insert failed")
	}
}

func (m *Manager) processImage(ctx context.Context, name, uri, camera string, at time.Time) (string, string, []byte, error) {
	raw, err := m.deps.Vision.AnnotateImage(ctx, uri)
	if err != nil {
		return "", "", nil, err
	}
	m.store(ctx, repository.DatasetImages, camera, uri, at, raw)

	ann, err := annotator.ParseImageResponse(raw)
	if err != nil {
		return "", "", nil, err
	}
	out := summary.Image(ann)

	src, err := m.deps.Objects.Get(ctx, m.inputBucket, name)
	if err != nil {
		return "", "", nil, err
	}
	annotated, err := annotator.DrawBoxes(src, out.BoundingBoxes)
	if err != nil {
		return "", "", nil, err
	}
	if err := m.deps.Objects.Put(ctx, m.outputBucket, name, annotated, models.MediaImage.ContentType()); err != nil {
		return "", "", nil, err
	}
	return out.BestDetection, out.Summary, annotated, nil
}

func (m *Manager) processVideo(ctx context.Context, name, uri, camera string, at time.Time) (string, string, []byte, error) {
	raw, err := m.deps.Video.AnnotateVideo(ctx, uri)
	if err != nil {
		return "", "", nil, err
	}
	m.store(ctx, repository.DatasetVideos, camera, uri, at, raw)

	ann, err := annotator.ParseVideoResponse(raw)
	if err != nil {
		return "", "", nil, err
	}
	out := summary.Video(ann)

	workDir := filepath.Join(m.workDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", "", nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			m.logger.Error().Err(err).Str("dir", workDir).Msg("failed to remove work directory")
		}
	}()

	src, err := m.deps.Objects.Get(ctx, m.inputBucket, name)
	if err != nil {
		return "", "", nil, err
	}
	srcPath := filepath.Join(workDir, "source"+strings.ToLower(path.Ext(name)))
	if err := os.WriteFile(srcPath, src, 0644); err != nil {
		return "", "", nil, fmt.Errorf("failed to write source video: %w", err)
	}

	result, err := m.deps.Annotator.Annotate(ctx, srcPath, workDir, ann.Events)
	if err != nil {
		return "", "", nil, err
	}

	data, err := os.ReadFile(result.Path)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read annotated video: %w", err)
	}
	if err := m.deps.Objects.Put(ctx, m.outputBucket, name, data, models.MediaVideo.ContentType()); err != nil {
		return "", "", nil, err
	}
	return out.BestDetection, out.Summary, result.Preview, nil
}
