package annotator

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// HighlightColor is the outline colour of every detection box.
var HighlightColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Thickness of the box outline in pixels.
const Thickness = 2

// Composite draws rects onto frame in order. An empty list leaves the frame untouched.
func Composite(frame *gocv.Mat, rects []image.Rectangle) error {
	for _, rect := range rects {
		if err := gocv.Rectangle(frame, rect, HighlightColor, Thickness); err != nil {
			return fmt.Errorf("failed to draw rectangle %v: %w", rect, err)
		}
	}
	return nil
}
