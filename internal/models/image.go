package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Likelihood is the categorical confidence level the vision provider reports for face attributes.
type Likelihood int

const (
	LikelihoodUnknown Likelihood = iota
	LikelihoodVeryUnlikely
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
)

var likelihoodNames = map[string]Likelihood{
	"UNKNOWN":       LikelihoodUnknown,
	"VERY_UNLIKELY": LikelihoodVeryUnlikely,
	"UNLIKELY":      LikelihoodUnlikely,
	"POSSIBLE":      LikelihoodPossible,
	"LIKELY":        LikelihoodLikely,
	"VERY_LIKELY":   LikelihoodVeryLikely,
}

// UnmarshalJSON accepts both the numeric and the enum-name encodings.
func (l *Likelihood) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Likelihood(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("likelihood must be a number or a string: %s", data)
	}
	v, ok := likelihoodNames[strings.ToUpper(s)]
	if !ok {
		return fmt.Errorf("unknown likelihood %q", s)
	}
	*l = v
	return nil
}

// Vertex is a normalized polygon vertex.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ObjectAnnotation is one localized object from the vision provider.
type ObjectAnnotation struct {
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Vertices []Vertex `json:"vertices"`
}

// FaceAnnotation keeps the face attributes the summaries count.
type FaceAnnotation struct {
	Joy      Likelihood `json:"joy"`
	Sorrow   Likelihood `json:"sorrow"`
	Anger    Likelihood `json:"anger"`
	Surprise Likelihood `json:"surprise"`
	Headwear Likelihood `json:"headwear"`
}

// LabelAnnotation is a whole-image label.
type LabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ImageAnnotations is the parsed subset of a vision response.
type ImageAnnotations struct {
	Objects []ObjectAnnotation `json:"objects"`
	Faces   []FaceAnnotation   `json:"faces"`
	Labels  []LabelAnnotation  `json:"labels"`
}
