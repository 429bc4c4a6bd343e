// Package annotator turns provider detections into annotated media: it parses
// provider responses, matches boxes to decoded frames, draws them and
// re-encodes the result.
package annotator

import "errors"

var (
	// ErrParse reports a provider response missing the keys the pipeline needs.
	ErrParse = errors.New("malformed provider response")
	// ErrOpen reports a source video that cannot be opened or has no usable header.
	ErrOpen = errors.New("cannot open video")
	// ErrEncode reports a failure writing frames or the sampled still.
	ErrEncode = errors.New("cannot encode video")
	// ErrTranscode reports a failure of the external transcoder.
	ErrTranscode = errors.New("cannot transcode video")
)

const (
	DefaultConfidenceThreshold = 0.6
	DefaultFrameTolerance      = 0.05 // seconds
	DefaultPreviewFrame        = 60
)
