package models

// NormalizedBox is a bounding box expressed as fractions of the frame width and height.
type NormalizedBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// FrameBox is one timestamped sample on an object track.
type FrameBox struct {
	TimeOffset float64       `json:"time_offset"` // seconds from the start of the video
	Box        NormalizedBox `json:"box"`
}

// DetectionEvent is one tracked object instance from a video annotation response.
// Frames keep the provider order, which is ascending by time offset.
type DetectionEvent struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Frames     []FrameBox `json:"frames"`
}

// VideoAnnotations is the parsed subset of a video intelligence response.
type VideoAnnotations struct {
	Events       []DetectionEvent `json:"events"`
	PeopleTracks int              `json:"people_tracks"`
}
