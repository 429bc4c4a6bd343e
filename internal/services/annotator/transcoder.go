package annotator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Transcoder converts the intermediate container into the distribution format.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFmpegTranscoder shells out to ffmpeg and produces H.264 MP4 files that
// browsers can start playing before the download finishes.
type FFmpegTranscoder struct {
	Binary string
}

func NewFFmpegTranscoder(binary string) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{Binary: binary}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.Binary,
		"-y",
		"-loglevel", "error",
		"-i", src,
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		dst,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
