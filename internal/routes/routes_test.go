package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/config"
	"github.com/artefactory/smartparks/internal/dto"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/middleware"
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/services"
	"github.com/artefactory/smartparks/internal/services/dashboard"
	"github.com/artefactory/smartparks/internal/services/websocket"
)

type stubProcessor struct{ calls int }

func (p *stubProcessor) HandleMediaEvent(context.Context, models.MediaEvent) (*services.Outcome, error) {
	p.calls++
	return &services.Outcome{Kind: models.MediaImage}, nil
}

type stubViews struct{}

func (stubViews) Views() []dto.View { return []dto.View{dto.ViewMap} }

func (stubViews) Render(context.Context, string, dashboard.Query) (*dto.Page, error) {
	return &dto.Page{View: dto.ViewMap}, nil
}

type stubCameras struct{}

func (stubCameras) Save(context.Context, []models.CameraTrap) error { return nil }

func newTestRouter(processor *stubProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		IngestToken:  "s3cret",
		CORSOrigins:  []string{"*"},
		OutputBucket: "output",
		TimeZone:     "UTC",
	}
	return SetupRoutes(Services{
		Processor: processor,
		Views:     stubViews{},
		Cameras:   stubCameras{},
		Hub:       websocket.NewHubService(logger.Nop()),
	}, cfg, logger.Nop())
}

func TestSetupRoutes_Ingest(t *testing.T) {
	processor := &stubProcessor{}
	router := newTestRouter(processor)

	for _, header := range []string{"", "Bearer s3cret"} {
		req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"name": "cam1/a.jpg"}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		expected := http.StatusUnauthorized
		if header != "" {
			expected = http.StatusOK
		}
		if w.Code != expected {
			t.Errorf("Authorization %q: expected %d, got %d", header, expected, w.Code)
		}
	}

	if processor.calls != 1 {
		t.Errorf("Expected exactly one processed event, got %d", processor.calls)
	}
}

func TestSetupRoutes_DashboardRequiresLogin(t *testing.T) {
	router := newTestRouter(&stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/views/map", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without cookie, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/views/map", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "true"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with cookie, got %d", w.Code)
	}
}

func TestSetupRoutes_UnknownAPIPath(t *testing.T) {
	router := newTestRouter(&stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/nothing", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "true"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
