package annotator

import (
	"image"

	"github.com/artefactory/smartparks/internal/models"
)

// Match returns the pixel rectangles to draw on a frame played at frameTime.
// Events at or below threshold are ignored; a box matches when its offset lies
// within tolerance of frameTime, both ends inclusive. Rectangles come back in
// event order, then frame order.
func Match(frameTime float64, events []models.DetectionEvent, threshold, tolerance float64, width, height int) []image.Rectangle {
	var rects []image.Rectangle
	for _, event := range events {
		if event.Confidence <= threshold {
			continue
		}
		for _, frame := range event.Frames {
			if frameTime-tolerance <= frame.TimeOffset && frame.TimeOffset <= frameTime+tolerance {
				rects = append(rects, ToPixels(frame.Box, width, height))
			}
		}
	}
	return rects
}

// ToPixels scales a normalized box to a frame, truncating each edge.
func ToPixels(box models.NormalizedBox, width, height int) image.Rectangle {
	return image.Rect(
		int(box.Left*float64(width)),
		int(box.Top*float64(height)),
		int(box.Right*float64(width)),
		int(box.Bottom*float64(height)),
	)
}
