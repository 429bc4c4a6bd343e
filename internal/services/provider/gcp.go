package provider

import (
	"context"
	"fmt"
	"time"

	video "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Enum values are written as numbers so likelihoods compare numerically, and
// empty lists are kept so a response without detections still parses.
var marshaler = protojson.MarshalOptions{UseEnumNumbers: true, EmitUnpopulated: true}

var (
	imageFeatures = []visionpb.Feature_Type{
		visionpb.Feature_OBJECT_LOCALIZATION,
		visionpb.Feature_LABEL_DETECTION,
		visionpb.Feature_FACE_DETECTION,
	}
	videoFeatures = []videointelligencepb.Feature{
		videointelligencepb.Feature_OBJECT_TRACKING,
		videointelligencepb.Feature_LABEL_DETECTION,
		videointelligencepb.Feature_PERSON_DETECTION,
	}
)

func toJSON(m proto.Message) ([]byte, error) {
	raw, err := marshaler.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return raw, nil
}

// GCPVision calls the Cloud Vision API.
type GCPVision struct {
	client *vision.ImageAnnotatorClient
}

func NewGCPVision(ctx context.Context) (*GCPVision, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &GCPVision{client: client}, nil
}

func (v *GCPVision) AnnotateImage(ctx context.Context, uri string) ([]byte, error) {
	features := make([]*visionpb.Feature, 0, len(imageFeatures))
	for _, f := range imageFeatures {
		features = append(features, &visionpb.Feature{Type: f})
	}

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: uri}},
			Features: features,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision request for %s failed: %w", uri, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("%w: empty vision response for %s", ErrProvider, uri)
	}

	result := resp.GetResponses()[0]
	if status := result.GetError(); status != nil && status.GetCode() != 0 {
		return nil, fmt.Errorf("%w: %s", ErrProvider, status.GetMessage())
	}
	return toJSON(result)
}

func (v *GCPVision) Close() error {
	return v.client.Close()
}

// GCPVideo calls the Video Intelligence API and waits for the operation.
type GCPVideo struct {
	client  *video.Client
	timeout time.Duration
}

func NewGCPVideo(ctx context.Context, timeout time.Duration) (*GCPVideo, error) {
	client, err := video.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create video intelligence client: %w", err)
	}
	return &GCPVideo{client: client, timeout: timeout}, nil
}

func (v *GCPVideo) AnnotateVideo(ctx context.Context, uri string) ([]byte, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	op, err := v.client.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputUri: uri,
		Features: videoFeatures,
	})
	if err != nil {
		return nil, fmt.Errorf("video request for %s failed: %w", uri, err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("video annotation for %s failed: %w", uri, err)
	}
	for _, result := range resp.GetAnnotationResults() {
		if status := result.GetError(); status != nil && status.GetCode() != 0 {
			return nil, fmt.Errorf("%w: %s", ErrProvider, status.GetMessage())
		}
	}
	return toJSON(resp)
}

func (v *GCPVideo) Close() error {
	return v.client.Close()
}
