// Package provider wraps the cloud vision services. Responses are returned as
// raw JSON so they can be stored verbatim and parsed by the annotator.
package provider

import (
	"context"
	"errors"
)

// ErrProvider reports an error returned inside an otherwise successful response.
var ErrProvider = errors.New("provider returned an error")

// VisionProvider annotates still images.
type VisionProvider interface {
	AnnotateImage(ctx context.Context, uri string) ([]byte, error)
}

// VideoProvider annotates videos. The call blocks until the long running
// operation completes or ctx expires.
type VideoProvider interface {
	AnnotateVideo(ctx context.Context, uri string) ([]byte, error)
}
