// Package dashboard renders the browsing views over the warehouse and the
// camera trap table. Views are registered by name and dispatched by Render.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/artefactory/smartparks/internal/dto"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/repository"
	"github.com/artefactory/smartparks/internal/services/annotator"
	"github.com/artefactory/smartparks/internal/services/summary"
)

var (
	ErrUnknownView   = errors.New("unknown view")
	ErrUnknownCamera = errors.New("unknown camera trap")
)

// MediaPrefix is the route annotated media is served from.
const MediaPrefix = "/api/media/"

// CameraSource lists the camera trap table.
type CameraSource interface {
	Load(ctx context.Context) ([]models.CameraTrap, error)
}

// Query selects what a view shows.
type Query struct {
	Camera string
	Filter Filter
}

type renderFunc func(ctx context.Context, q Query) (*dto.Page, error)

type Service struct {
	warehouse   repository.Warehouse
	cameras     CameraSource
	project     string
	inputBucket string
	cameraNames []string // fixed camera list, the trap table when empty
	logger      *logger.Logger

	order []dto.View
	views map[dto.View]renderFunc
}

func NewService(warehouse repository.Warehouse, cameras CameraSource, cameraNames []string, project, inputBucket string, logger *logger.Logger) *Service {
	s := &Service{
		warehouse:   warehouse,
		cameras:     cameras,
		cameraNames: cameraNames,
		project:     project,
		inputBucket: inputBucket,
		logger:      logger,
		views:       make(map[dto.View]renderFunc),
	}
	s.register(dto.ViewImages, s.renderImages)
	s.register(dto.ViewVideos, s.renderVideos)
	s.register(dto.ViewMap, s.renderMap)
	s.register(dto.ViewConfiguration, s.renderConfiguration)
	return s
}

func (s *Service) register(view dto.View, render renderFunc) {
	s.order = append(s.order, view)
	s.views[view] = render
}

// Views lists the registered views in menu order.
func (s *Service) Views() []dto.View {
	out := make([]dto.View, len(s.order))
	copy(out, s.order)
	return out
}

// Render dispatches to the named view.
func (s *Service) Render(ctx context.Context, view string, q Query) (*dto.Page, error) {
	render, ok := s.views[dto.View(view)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	return render(ctx, q)
}

// MediaURL maps an input URI to the route serving its annotated copy.
func (s *Service) MediaURL(uri string) string {
	return MediaPrefix + strings.TrimPrefix(uri, "gs://"+s.inputBucket+"/")
}

// Cameras lists the selectable camera traps: the configured names when set,
// otherwise the names of the trap table.
func (s *Service) Cameras(ctx context.Context) ([]string, error) {
	if len(s.cameraNames) > 0 {
		return slices.Clone(s.cameraNames), nil
	}
	traps, err := s.cameras.Load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(traps))
	for _, t := range traps {
		names = append(names, t.Name)
	}
	return names, nil
}

// selectCamera resolves the camera to show, defaulting to the first one.
// Only listed cameras can be selected.
func (s *Service) selectCamera(ctx context.Context, q Query) (string, []string, error) {
	names, err := s.Cameras(ctx)
	if err != nil {
		return "", nil, err
	}

	camera := q.Camera
	if camera == "" {
		if len(names) > 0 {
			camera = names[0]
		}
		return camera, names, nil
	}
	if !slices.Contains(names, camera) {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownCamera, camera)
	}
	return camera, names, nil
}

// rows loads the filtered warehouse rows of a camera, newest first.
func (s *Service) rows(ctx context.Context, dataset, camera string, f Filter) ([]models.WarehouseRow, error) {
	if camera == "" {
		return nil, nil
	}
	all, err := s.warehouse.Query(ctx, repository.TableID(s.project, dataset, camera))
	if err != nil {
		return nil, err
	}
	var out []models.WarehouseRow
	for _, r := range all {
		if f.Match(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) formatTimestamp(ts time.Time, f Filter) string {
	return ts.In(f.Location).Format(RowLayout)
}

func (s *Service) renderImages(ctx context.Context, q Query) (*dto.Page, error) {
	camera, names, err := s.selectCamera(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, repository.DatasetImages, camera, q.Filter)
	if err != nil {
		return nil, err
	}

	page := &dto.Page{View: dto.ViewImages, Camera: camera, Cameras: names, Filter: q.Filter.Echo()}
	for _, r := range rows {
		ann, err := annotator.ParseImageResponse([]byte(r.Response))
		if err != nil {
			s.logger.Warning().Err(err).Str("uri", r.URI).Msg("skipping unreadable image row")
			continue
		}
		page.Images = append(page.Images, dto.ImageRow{
			Timestamp: s.formatTimestamp(r.Timestamp, q.Filter),
			URI:       r.URI,
			MediaURL:  s.MediaURL(r.URI),
			Labels:    summary.Labels(ann.Objects),
			Faces:     summary.FaceCounts(ann.Faces),
		})
	}
	return page, nil
}

func (s *Service) renderVideos(ctx context.Context, q Query) (*dto.Page, error) {
	camera, names, err := s.selectCamera(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, repository.DatasetVideos, camera, q.Filter)
	if err != nil {
		return nil, err
	}

	page := &dto.Page{View: dto.ViewVideos, Camera: camera, Cameras: names, Filter: q.Filter.Echo()}
	for _, r := range rows {
		ann, err := annotator.ParseVideoResponse([]byte(r.Response))
		if err != nil {
			s.logger.Warning().Err(err).Str("uri", r.URI).Msg("skipping unreadable video row")
			continue
		}
		page.Videos = append(page.Videos, dto.VideoRow{
			Timestamp: s.formatTimestamp(r.Timestamp, q.Filter),
			URI:       r.URI,
			MediaURL:  s.MediaURL(r.URI),
			Labels:    summary.VideoLabels(ann.Events),
			People:    summary.NumberOfPeople(ann.PeopleTracks),
		})
	}
	return page, nil
}

func (s *Service) renderMap(ctx context.Context, _ Query) (*dto.Page, error) {
	traps, err := s.cameras.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.Page{View: dto.ViewMap, Traps: traps}, nil
}

func (s *Service) renderConfiguration(ctx context.Context, _ Query) (*dto.Page, error) {
	traps, err := s.cameras.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.Page{View: dto.ViewConfiguration, Traps: traps}, nil
}
