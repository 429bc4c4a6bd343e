package dto

import (
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/services/summary"
)

// View names a dashboard page.
type View string

const (
	ViewImages        View = "images"
	ViewVideos        View = "videos"
	ViewMap           View = "map"
	ViewConfiguration View = "configuration"
)

// FilterEcho reports the filter actually applied, defaults included.
type FilterEcho struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`
}

type ImageRow struct {
	Timestamp string                 `json:"timestamp"` // dd/mm/yyyy | HH:MM:SS
	URI       string                 `json:"uri"`
	MediaURL  string                 `json:"media_url"`
	Labels    []summary.LabelScore   `json:"labels"`
	Faces     *summary.EmotionCounts `json:"faces,omitempty"`
}

type VideoRow struct {
	Timestamp string               `json:"timestamp"`
	URI       string               `json:"uri"`
	MediaURL  string               `json:"media_url"`
	Labels    []summary.LabelScore `json:"labels"`
	People    string               `json:"people,omitempty"`
}

// Page is the payload of one rendered view. Only the fields of that view are set.
type Page struct {
	View    View                `json:"view"`
	Camera  string              `json:"camera,omitempty"`
	Cameras []string            `json:"cameras,omitempty"`
	Filter  *FilterEcho         `json:"filter,omitempty"`
	Images  []ImageRow          `json:"images,omitempty"`
	Videos  []VideoRow          `json:"videos,omitempty"`
	Traps   []models.CameraTrap `json:"traps,omitempty"`
}

// SaveCamerasRequest replaces the whole camera trap table.
type SaveCamerasRequest struct {
	Traps []models.CameraTrap `json:"traps" binding:"required"`
}
