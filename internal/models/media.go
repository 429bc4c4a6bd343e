package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// MediaKind tells the orchestrator which provider handles an upload.
type MediaKind string

const (
	MediaImage       MediaKind = "image"
	MediaVideo       MediaKind = "video"
	MediaUnsupported MediaKind = "unsupported"
)

// ContentType is the type of the annotated copy of a media kind: images are
// re-encoded as JPEG and videos as MP4. Unsupported media has no copy.
func (k MediaKind) ContentType() string {
	switch k {
	case MediaImage:
		return "image/jpeg"
	case MediaVideo:
		return "video/mp4"
	}
	return ""
}

// MediaEvent identifies a newly stored media object. The first path segment
// of Name is the camera trap, the rest is the file name.
type MediaEvent struct {
	Name        string     `json:"name"`
	ContentType string     `json:"contentType"`
	Size        ObjectSize `json:"size"`
}

// ObjectSize is a byte count that storage events encode either as a JSON
// number or as a decimal string.
type ObjectSize int64

func (s *ObjectSize) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return err
	}
	*s = ObjectSize(v)
	return nil
}

// CameraTrap is one row of the metadata record store.
type CameraTrap struct {
	Name           string  `json:"name"`
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	LastDetection  string  `json:"last_detection"`
	LastActivation string  `json:"last_activation"`
	URL            string  `json:"url"`
}

// Notification is the flat record pushed to the webhook and to live viewers.
type Notification struct {
	CameraTrapName string    `json:"camera_trap_name"`
	Longitude      float64   `json:"longitude"`
	Latitude       float64   `json:"latitude"`
	Timestamp      time.Time `json:"timestamp"`
	MediaName      string    `json:"media_name"`
	Type           string    `json:"type"`
	Size           int64     `json:"size"`
	InputURL       string    `json:"input_url"`
	Summary        string    `json:"summary"`
	Image          string    `json:"image,omitempty"` // base64 JPEG preview, empty when absent
}

// WarehouseRow is one raw provider response stored for the dashboard.
type WarehouseRow struct {
	Timestamp time.Time `json:"timestamp"`
	URI       string    `json:"uri"`
	Response  string    `json:"response"`
}
