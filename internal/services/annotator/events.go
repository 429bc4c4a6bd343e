package annotator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/artefactory/smartparks/internal/models"
)

type videoResponse struct {
	AnnotationResults []videoResult `json:"annotationResults"`
}

type videoResult struct {
	ObjectAnnotations          *[]objectTrack    `json:"objectAnnotations"`
	PersonDetectionAnnotations []json.RawMessage `json:"personDetectionAnnotations"`
}

type objectTrack struct {
	Entity struct {
		Description string `json:"description"`
	} `json:"entity"`
	Confidence float64      `json:"confidence"`
	Frames     []trackFrame `json:"frames"`
}

type trackFrame struct {
	NormalizedBoundingBox *models.NormalizedBox `json:"normalizedBoundingBox"`
	TimeOffset            *string               `json:"timeOffset"`
}

// ParseVideoResponse decodes a video intelligence response into detection
// events. Only the first annotation result is read. Events and their frames
// keep the provider order and nothing is filtered.
func ParseVideoResponse(raw []byte) (*models.VideoAnnotations, error) {
	var resp videoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(resp.AnnotationResults) == 0 {
		return nil, fmt.Errorf("%w: no annotation results", ErrParse)
	}

	result := resp.AnnotationResults[0]
	if result.ObjectAnnotations == nil {
		return nil, fmt.Errorf("%w: missing objectAnnotations", ErrParse)
	}

	out := &models.VideoAnnotations{
		Events:       make([]models.DetectionEvent, 0, len(*result.ObjectAnnotations)),
		PeopleTracks: len(result.PersonDetectionAnnotations),
	}
	for i, track := range *result.ObjectAnnotations {
		event := models.DetectionEvent{
			Label:      track.Entity.Description,
			Confidence: track.Confidence,
			Frames:     make([]models.FrameBox, 0, len(track.Frames)),
		}
		for j, frame := range track.Frames {
			if frame.TimeOffset == nil || frame.NormalizedBoundingBox == nil {
				return nil, fmt.Errorf("%w: object %d frame %d is incomplete", ErrParse, i, j)
			}
			offset, err := ParseTimeOffset(*frame.TimeOffset)
			if err != nil {
				return nil, err
			}
			event.Frames = append(event.Frames, models.FrameBox{
				TimeOffset: offset,
				Box:        *frame.NormalizedBoundingBox,
			})
		}
		out.Events = append(out.Events, event)
	}
	return out, nil
}

// ParseTimeOffset converts a duration of the form "<seconds>s" to seconds.
func ParseTimeOffset(s string) (float64, error) {
	value, ok := strings.CutSuffix(strings.TrimSpace(s), "s")
	if !ok {
		return 0, fmt.Errorf("%w: time offset %q has no unit", ErrParse, s)
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: time offset %q: %v", ErrParse, s, err)
	}
	return seconds, nil
}
