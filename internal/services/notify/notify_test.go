package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
)

func sample() models.Notification {
	return models.Notification{
		CameraTrapName: "cam1",
		Longitude:      36.8219,
		Latitude:       -1.2921,
		Timestamp:      time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.UTC),
		MediaName:      "IMG_0001.jpg",
		Type:           "image/jpeg",
		Size:           2048,
		InputURL:       "gs://camera-traps-media/cam1/IMG_0001.jpg",
		Summary:        "1 objects detected: Animal 90.0%     0 people detected: 0 joy, 0 sorrow, 0 anger, 0 surprise, 0 headwear",
	}
}

func TestForm(t *testing.T) {
	form := Form(sample())

	expected := map[string]string{
		"camera_trap_name": "cam1",
		"longitude":        "36.8219",
		"latitude":         "-1.2921",
		"timestamp":        "2024-05-01 09:30:00.123456",
		"media_name":       "IMG_0001.jpg",
		"type":             "image/jpeg",
		"size":             "2048",
		"input_url":        "gs://camera-traps-media/cam1/IMG_0001.jpg",
	}
	for key, want := range expected {
		if got := form.Get(key); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
	if form.Has("image") {
		t.Error("image should be omitted without a preview")
	}
}

func TestWebhook_Posts(t *testing.T) {
	received := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		received <- r
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := sample()
	n.Image = "aGVsbG8="
	NewWebhook(server.URL, time.Second, logger.Nop()).Notify(context.Background(), n)

	select {
	case r := <-received:
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.PostForm.Get("summary") != n.Summary {
			t.Errorf("Summary mismatch: %q", r.PostForm.Get("summary"))
		}
		if r.PostForm.Get("image") != "aGVsbG8=" {
			t.Errorf("Image mismatch: %q", r.PostForm.Get("image"))
		}
	default:
		t.Fatal("Webhook was not called")
	}
}

func TestWebhook_ErrorsAreSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	// Neither a timeout nor an unreachable host may panic or block the caller.
	NewWebhook(server.URL, 50*time.Millisecond, logger.Nop()).Notify(context.Background(), sample())
	NewWebhook("http://127.0.0.1:1/artefact", time.Second, logger.Nop()).Notify(context.Background(), sample())
}
