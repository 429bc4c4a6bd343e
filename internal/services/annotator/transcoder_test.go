package annotator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeFFmpeg writes a shell script that prints to stderr and exits non-zero.
func fakeFFmpeg(t *testing.T, dir, message string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	script := filepath.Join(dir, "ffmpeg")
	body := "#!/bin/sh\necho '" + message + "' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return script
}

func TestNewFFmpegTranscoder_DefaultBinary(t *testing.T) {
	if got := NewFFmpegTranscoder("").Binary; got != "ffmpeg" {
		t.Errorf("Expected ffmpeg, got %q", got)
	}
	if got := NewFFmpegTranscoder("/opt/ffmpeg/bin/ffmpeg").Binary; got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Expected configured binary, got %q", got)
	}
}

func TestFFmpegTranscoder_ReportsOutput(t *testing.T) {
	dir, err := os.MkdirTemp("", "transcoder_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	transcoder := NewFFmpegTranscoder(fakeFFmpeg(t, dir, "Unknown encoder libx264"))
	err = transcoder.Transcode(context.Background(), filepath.Join(dir, "in.avi"), filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("Expected an error from a failing ffmpeg")
	}
	if !strings.Contains(err.Error(), "Unknown encoder libx264") {
		t.Errorf("Expected ffmpeg output in the error, got %v", err)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("Expected the exit error to be wrapped, got %T", errors.Unwrap(err))
	}
}

func TestFFmpegTranscoder_MissingBinary(t *testing.T) {
	dir, err := os.MkdirTemp("", "transcoder_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	transcoder := NewFFmpegTranscoder(filepath.Join(dir, "no-such-ffmpeg"))
	err = transcoder.Transcode(context.Background(), filepath.Join(dir, "in.avi"), filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("Expected an error for a missing binary")
	}
}

func TestAnnotate_FailingFFmpegLeavesNoFiles(t *testing.T) {
	h, cleanup := newHarness(t, 60)
	defer cleanup()

	bin, err := os.MkdirTemp("", "transcoder_bin")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(bin)

	h.annotator.Transcoder = NewFFmpegTranscoder(fakeFFmpeg(t, bin, "moov atom not found"))

	_, err = h.annotator.Annotate(context.Background(), "clip.mp4", h.dir, oneSecondEvent(0.9))
	if !errors.Is(err, ErrTranscode) {
		t.Fatalf("Expected ErrTranscode, got %v", err)
	}
	if !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("Expected ffmpeg output in the error, got %v", err)
	}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("Failed to read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty work dir, found %d entries", len(entries))
	}
}
