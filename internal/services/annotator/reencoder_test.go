package annotator

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
)

type fakeSource struct {
	frames int
	read   int
	width  int
	height int
	fps    float64
	closed bool
}

func (s *fakeSource) Read(frame *gocv.Mat) bool {
	if s.read >= s.frames {
		return false
	}
	s.read++
	blank := blankFrame(s.width, s.height)
	defer blank.Close()
	blank.CopyTo(frame)
	return true
}

func (s *fakeSource) FrameRate() float64 { return s.fps }
func (s *fakeSource) Size() (int, int)   { return s.width, s.height }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeSink struct {
	frames   []gocv.Mat
	failAt   int
	closed   bool
	writeErr error
}

func (s *fakeSink) Write(frame gocv.Mat) error {
	if s.writeErr != nil && len(s.frames) == s.failAt {
		return s.writeErr
	}
	s.frames = append(s.frames, frame.Clone())
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSink) release() {
	for _, f := range s.frames {
		f.Close()
	}
}

type fakeTranscoder struct {
	err   error
	calls int
}

func (f *fakeTranscoder) Transcode(_ context.Context, src, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("mp4"), 0644)
}

type harness struct {
	dir        string
	source     *fakeSource
	sink       *fakeSink
	transcoder *fakeTranscoder
	annotator  *VideoAnnotator
}

func newHarness(t *testing.T, frames int) (*harness, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "reencoder_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	h := &harness{
		dir:        dir,
		source:     &fakeSource{frames: frames, width: 640, height: 480, fps: 30},
		sink:       &fakeSink{},
		transcoder: &fakeTranscoder{},
	}
	h.annotator = NewVideoAnnotator(DefaultConfidenceThreshold, DefaultFrameTolerance, DefaultPreviewFrame, h.transcoder, logger.Nop())
	h.annotator.Open = func(string) (FrameSource, error) { return h.source, nil }
	h.annotator.Create = func(path string, _ float64, _, _ int) (FrameSink, error) {
		if err := os.WriteFile(path, []byte("avi"), 0644); err != nil {
			return nil, err
		}
		return h.sink, nil
	}

	cleanup := func() {
		h.sink.release()
		os.RemoveAll(dir)
	}
	return h, cleanup
}

func (h *harness) exists(name string) bool {
	_, err := os.Stat(filepath.Join(h.dir, name))
	return err == nil
}

func oneSecondEvent(confidence float64) []models.DetectionEvent {
	return []models.DetectionEvent{event(confidence, at(1.0, centre))}
}

func TestAnnotate_TwoSecondClip(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()

	result, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, oneSecondEvent(0.9))
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if result.Frames != 60 || len(h.sink.frames) != 60 {
		t.Fatalf("Expected 60 frames, got %d (sink saw %d)", result.Frames, len(h.sink.frames))
	}
	if result.AnnotatedFrames != 3 {
		t.Errorf("Expected 3 annotated frames, got %d", result.AnnotatedFrames)
	}

	for i, frame := range h.sink.frames {
		annotated := i >= 29 && i <= 31
		if annotated && !isGreen(frame, 160, 120) {
			t.Errorf("Frame %d should carry the rectangle", i)
		}
		if !annotated && !isBlack(frame, 160, 120) {
			t.Errorf("Frame %d should be clean", i)
		}
		if !isBlack(frame, 320, 240) {
			t.Errorf("Frame %d: rectangle interior should stay untouched", i)
		}
	}

	if result.Preview != nil {
		t.Error("A 60 frame clip has no frame 60, expected no preview")
	}
	if result.Path != filepath.Join(h.dir, OutputFile) || !h.exists(OutputFile) {
		t.Errorf("Expected final video at %s", result.Path)
	}
	if h.exists(IntermediateFile) {
		t.Error("Intermediate video should be removed after transcoding")
	}
	if !h.sink.closed || !h.source.closed {
		t.Error("Source and sink should be closed")
	}
}

func TestAnnotate_LowConfidence(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()

	result, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, oneSecondEvent(0.5))
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if result.AnnotatedFrames != 0 {
		t.Errorf("Expected no annotated frames, got %d", result.AnnotatedFrames)
	}
	for i, frame := range h.sink.frames {
		if !isBlack(frame, 160, 120) {
			t.Errorf("Frame %d should be clean", i)
		}
	}
}

// greenish tolerates JPEG chroma loss around a thin green line.
func greenish(frame gocv.Mat, x, y int) bool {
	bgr := frame.GetVecbAt(y, x)
	b, g, r := int(bgr[0]), int(bgr[1]), int(bgr[2])
	return g > 100 && g > b+40 && g > r+40
}

func decodePreview(t *testing.T, preview []byte) gocv.Mat {
	t.Helper()
	if len(preview) < 2 || preview[0] != 0xFF || preview[1] != 0xD8 {
		t.Fatal("Expected a JPEG preview")
	}
	still, err := gocv.IMDecode(preview, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	return still
}

func TestAnnotate_Preview(t *testing.T) {
	tests := []struct {
		name     string
		offset   float64
		expected bool
	}{
		{"box on the sampled frame", 2.0, true},
		{"box on another frame", 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, cleanup := newHarness(t, 90)
			defer cleanup()

			events := []models.DetectionEvent{event(0.9, at(tt.offset, centre))}
			result, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, events)
			if err != nil {
				t.Fatalf("Annotate failed: %v", err)
			}

			still := decodePreview(t, result.Preview)
			defer still.Close()

			if still.Cols() != 640 || still.Rows() != 480 {
				t.Fatalf("Expected 640x480 preview, got %dx%d", still.Cols(), still.Rows())
			}
			for _, p := range []image.Point{{160, 120}, {320, 120}, {480, 360}} {
				if got := greenish(still, p.X, p.Y); got != tt.expected {
					t.Errorf("Pixel %v: expected box drawn=%v, got %v", p, tt.expected, got)
				}
			}
			if greenish(still, 320, 240) {
				t.Error("Box interior should stay unannotated")
			}
		})
	}
}

func TestAnnotate_OpenError(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()
	h.annotator.Open = func(string) (FrameSource, error) { return nil, errors.New("moov atom not found") }

	_, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, nil)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got %v", err)
	}
	if h.transcoder.calls != 0 {
		t.Error("Transcoder should not run after an open error")
	}
}

func TestAnnotate_InvalidHeader(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()
	h.source.fps = 0

	_, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, nil)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got %v", err)
	}
}

func TestAnnotate_TranscodeFailureCleansUp(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()
	h.transcoder.err = errors.New("encoder crashed")

	_, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, oneSecondEvent(0.9))
	if !errors.Is(err, ErrTranscode) {
		t.Fatalf("Expected ErrTranscode, got %v", err)
	}
	if h.exists(IntermediateFile) || h.exists(OutputFile) {
		t.Error("Temp videos should be removed after a failed transcode")
	}
}

func TestAnnotate_WriteFailureCleansUp(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()
	h.sink.writeErr = errors.New("disk full")
	h.sink.failAt = 10

	_, err := h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, nil)
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("Expected ErrEncode, got %v", err)
	}
	if !h.sink.closed {
		t.Error("Sink should be closed after a write failure")
	}
	if h.exists(IntermediateFile) {
		t.Error("Intermediate video should be removed after a write failure")
	}
	if h.transcoder.calls != 0 {
		t.Error("Transcoder should not run after a write failure")
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateOpened, StateStreaming, true},
		{StateOpened, StateFailed, true},
		{StateOpened, StateFinalized, false},
		{StateStreaming, StateFinalized, true},
		{StateStreaming, StateFailed, true},
		{StateStreaming, StateOpened, false},
		{StateFinalized, StateFailed, false},
		{StateFailed, StateStreaming, false},
	}

	for _, tt := range tests {
		err := tt.from.next(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s should be allowed: %v", tt.from, tt.to, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s -> %s should be rejected", tt.from, tt.to)
		}
	}
}
