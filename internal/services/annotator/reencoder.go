package annotator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
)

// Intermediate and final file names inside the work directory.
const (
	IntermediateFile = "annotated.avi"
	OutputFile       = "annotated.mp4"
)

// State of one re-encoding run.
type State int

const (
	StateOpened State = iota
	StateStreaming
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateFailed
}

var errBadTransition = errors.New("invalid state transition")

// next validates a transition. Opened may only start streaming, streaming may
// only finalize, and every non-terminal state may fail.
func (s State) next(to State) error {
	switch {
	case s.Terminal():
	case to == StateFailed:
		return nil
	case s == StateOpened && to == StateStreaming:
		return nil
	case s == StateStreaming && to == StateFinalized:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", errBadTransition, s, to)
}

// FrameSource yields decoded frames in playback order.
type FrameSource interface {
	// Read decodes the next frame into frame and returns false at end of stream.
	Read(frame *gocv.Mat) bool
	FrameRate() float64
	Size() (width, height int)
	Close() error
}

// FrameSink receives the composited frames.
type FrameSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

type (
	SourceOpener func(path string) (FrameSource, error)
	SinkCreator  func(path string, fps float64, width, height int) (FrameSink, error)
)

// VideoResult describes a finalized annotated video.
type VideoResult struct {
	Path            string // final MP4 inside the work directory
	Frames          int
	AnnotatedFrames int
	Preview         []byte // JPEG of the sampled frame, nil for short videos
}

// VideoAnnotator streams a video through Match and Composite, writes an
// intraframe intermediate and hands it to the Transcoder.
type VideoAnnotator struct {
	Threshold   float64
	Tolerance   float64
	SampleFrame int

	Open       SourceOpener
	Create     SinkCreator
	Transcoder Transcoder

	logger *logger.Logger
}

func NewVideoAnnotator(threshold, tolerance float64, sampleFrame int, transcoder Transcoder, logger *logger.Logger) *VideoAnnotator {
	return &VideoAnnotator{
		Threshold:   threshold,
		Tolerance:   tolerance,
		SampleFrame: sampleFrame,
		Open:        OpenCapture,
		Create:      CreateMJPGWriter,
		Transcoder:  transcoder,
		logger:      logger,
	}
}

// run tracks the state of one Annotate call and owns its temp files.
type run struct {
	state  State
	source string
	files  []string
	sink   FrameSink
	logger *logger.Logger
}

func (r *run) transition(to State) {
	if err := r.state.next(to); err != nil {
		r.logger.Error().Err(err).Str("source", r.source).Msg("re-encoder state")
		return
	}
	r.logger.Info().Str("source", r.source).Str("from", r.state.String()).Str("to", to.String()).Msg("re-encoder state")
	r.state = to
}

// fail closes the sink, deletes every file the run created and wraps err.
func (r *run) fail(kind error, err error) error {
	if r.sink != nil {
		r.sink.Close()
		r.sink = nil
	}
	for _, f := range r.files {
		if rmErr := os.Remove(f); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warning().Err(rmErr).Str("file", f).Msg("failed to remove temp file")
		}
	}
	r.transition(StateFailed)
	return fmt.Errorf("%w: %v", kind, err)
}

// Annotate writes an annotated copy of srcPath to workDir/annotated.mp4.
// On error no file created by Annotate is left behind; srcPath is never touched.
func (a *VideoAnnotator) Annotate(ctx context.Context, srcPath, workDir string, events []models.DetectionEvent) (*VideoResult, error) {
	source, err := a.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	defer source.Close()

	width, height := source.Size()
	fps := source.FrameRate()
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("%w: invalid header %dx%d at %.2f fps", ErrOpen, width, height, fps)
	}

	intermediate := filepath.Join(workDir, IntermediateFile)
	final := filepath.Join(workDir, OutputFile)
	r := &run{
		state:  StateOpened,
		source: srcPath,
		files:  []string{intermediate, final},
		logger: a.logger,
	}

	sink, err := a.Create(intermediate, fps, width, height)
	if err != nil {
		return nil, r.fail(ErrEncode, err)
	}
	r.sink = sink
	r.transition(StateStreaming)

	result := &VideoResult{Path: final}
	sampler := &Sampler{Index: a.SampleFrame}

	frame := gocv.NewMat()
	defer frame.Close()

	for index := 0; source.Read(&frame); index++ {
		if frame.Empty() {
			continue
		}

		frameTime := float64(index) / fps
		rects := Match(frameTime, events, a.Threshold, a.Tolerance, width, height)
		if len(rects) > 0 {
			if err := Composite(&frame, rects); err != nil {
				return nil, r.fail(ErrEncode, err)
			}
			result.AnnotatedFrames++
		}

		if err := sampler.Offer(index, frame); err != nil {
			return nil, r.fail(ErrEncode, err)
		}
		if err := sink.Write(frame); err != nil {
			return nil, r.fail(ErrEncode, fmt.Errorf("frame %d: %w", index, err))
		}
		result.Frames++
	}

	r.sink = nil
	if err := sink.Close(); err != nil {
		return nil, r.fail(ErrEncode, err)
	}

	if err := a.Transcoder.Transcode(ctx, intermediate, final); err != nil {
		return nil, r.fail(ErrTranscode, err)
	}
	if err := os.Remove(intermediate); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warning().Err(err).Str("file", intermediate).Msg("failed to remove intermediate video")
	}

	r.transition(StateFinalized)
	result.Preview = sampler.Still()

	a.logger.Info().
		Str("source", srcPath).
		Int("frames", result.Frames).
		Int("annotated_frames", result.AnnotatedFrames).
		Bool("preview", result.Preview != nil).
		Msg("video annotated")
	return result, nil
}

type captureSource struct {
	capture *gocv.VideoCapture
	width   int
	height  int
	fps     float64
}

// OpenCapture opens a video file with OpenCV and reads its header.
func OpenCapture(path string) (FrameSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open %s", path)
	}
	return &captureSource{
		capture: capture,
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:     capture.Get(gocv.VideoCaptureFPS),
	}, nil
}

func (c *captureSource) Read(frame *gocv.Mat) bool { return c.capture.Read(frame) }
func (c *captureSource) FrameRate() float64        { return c.fps }
func (c *captureSource) Size() (int, int)          { return c.width, c.height }
func (c *captureSource) Close() error              { return c.capture.Close() }

type writerSink struct {
	writer *gocv.VideoWriter
}

// CreateMJPGWriter opens a Motion-JPEG AVI writer, an intraframe format every
// OpenCV build can produce.
func CreateMJPGWriter(path string, fps float64, width, height int) (FrameSink, error) {
	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("writer %s is not opened", path)
	}
	return &writerSink{writer: writer}, nil
}

func (w *writerSink) Write(frame gocv.Mat) error { return w.writer.Write(frame) }
func (w *writerSink) Close() error               { return w.writer.Close() }
