// Package notify delivers detection records to the outside world.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
)

// Notifier receives every processed media record. Delivery is fire-and-forget:
// implementations log their failures instead of returning them.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// TimestampLayout is how the webhook receives the invocation time.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Webhook posts each record as a form to a fixed URL.
type Webhook struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *logger.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Form flattens a notification into the webhook's form fields. The image
// field is omitted when there is no preview.
func Form(n models.Notification) url.Values {
	form := url.Values{}
	form.Set("camera_trap_name", n.CameraTrapName)
	form.Set("longitude", strconv.FormatFloat(n.Longitude, 'f', -1, 64))
	form.Set("latitude", strconv.FormatFloat(n.Latitude, 'f', -1, 64))
	form.Set("timestamp", n.Timestamp.Format(TimestampLayout))
	form.Set("media_name", n.MediaName)
	form.Set("type", n.Type)
	form.Set("size", strconv.FormatInt(n.Size, 10))
	form.Set("input_url", n.InputURL)
	form.Set("summary", n.Summary)
	if n.Image != "" {
		form.Set("image", n.Image)
	}
	return form
}

func (w *Webhook) Notify(ctx context.Context, n models.Notification) {
	if err := w.post(ctx, n); err != nil {
		w.logger.Error().Err(err).Str("camera", n.CameraTrapName).Str("media", n.MediaName).Msg("webhook delivery failed")
	}
}

func (w *Webhook) post(ctx context.Context, n models.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, strings.NewReader(Form(n).Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	w.logger.Info().Int("status", resp.StatusCode).Str("camera", n.CameraTrapName).Str("media", n.MediaName).Msg("webhook notified")
	return nil
}
