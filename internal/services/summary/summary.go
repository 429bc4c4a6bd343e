// Package summary derives the human readable detection summaries shown in
// notifications and on the dashboard.
package summary

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/artefactory/smartparks/internal/models"
)

// LabelScore pairs a detected label with its (possibly averaged) score.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// EmotionCounts counts faces whose attribute is at least POSSIBLE.
type EmotionCounts struct {
	Joy      int `json:"joy"`
	Sorrow   int `json:"sorrow"`
	Anger    int `json:"anger"`
	Surprise int `json:"surprise"`
	Headwear int `json:"headwear"`
}

func (c EmotionCounts) IsZero() bool {
	return c == EmotionCounts{}
}

func (c EmotionCounts) String() string {
	return fmt.Sprintf("%d joy, %d sorrow, %d anger, %d surprise, %d headwear",
		c.Joy, c.Sorrow, c.Anger, c.Surprise, c.Headwear)
}

// ImageOutputs is what the pipeline keeps from an image response.
type ImageOutputs struct {
	BestDetection string
	Predictions   []models.ObjectAnnotation // by score, highest first
	BoundingBoxes [][]models.Vertex
	Summary       string
}

// VideoOutputs is what the pipeline keeps from a video response.
type VideoOutputs struct {
	BestDetection string
	Averages      []LabelScore // first-seen order
	PeopleTracks  int
	Summary       string
}

// Image summarizes localized objects and faces:
// "<n> objects detected: <name> <pct>%     ...<m> people detected: <counts>".
func Image(ann *models.ImageAnnotations) ImageOutputs {
	predictions := make([]models.ObjectAnnotation, len(ann.Objects))
	copy(predictions, ann.Objects)
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})

	out := ImageOutputs{
		Predictions:   predictions,
		BoundingBoxes: make([][]models.Vertex, 0, len(predictions)),
	}
	if len(predictions) > 0 {
		out.BestDetection = predictions[0].Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d objects detected: ", len(predictions))
	for _, p := range predictions {
		fmt.Fprintf(&b, "%s %s%%     ", p.Name, Percent(p.Score))
		out.BoundingBoxes = append(out.BoundingBoxes, p.Vertices)
	}
	fmt.Fprintf(&b, "%d people detected: %s", len(ann.Faces), CountEmotions(ann.Faces))
	out.Summary = b.String()
	return out
}

// Video summarizes object tracks by average confidence per label:
// "<k> objects detected: <label> <pct>%     ...<n> people detected: ".
func Video(ann *models.VideoAnnotations) VideoOutputs {
	out := VideoOutputs{
		Averages:     AverageConfidence(ann.Events),
		PeopleTracks: ann.PeopleTracks,
	}
	if len(out.Averages) > 0 {
		out.BestDetection = out.Averages[0].Label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d objects detected: ", len(out.Averages))
	for _, avg := range out.Averages {
		fmt.Fprintf(&b, "%s %s%%     ", avg.Label, Percent(avg.Score))
	}
	if ann.PeopleTracks == 1 {
		b.WriteString("1 person detected: ")
	} else {
		fmt.Fprintf(&b, "%d people detected: ", ann.PeopleTracks)
	}
	out.Summary = b.String()
	return out
}

// AverageConfidence averages event confidence per label, in the order labels first appear.
func AverageConfidence(events []models.DetectionEvent) []LabelScore {
	type acc struct {
		sum   float64
		count int
	}
	var order []string
	sums := make(map[string]*acc)
	for _, e := range events {
		a, ok := sums[e.Label]
		if !ok {
			a = &acc{}
			sums[e.Label] = a
			order = append(order, e.Label)
		}
		a.sum += e.Confidence
		a.count++
	}

	out := make([]LabelScore, 0, len(order))
	for _, label := range order {
		a := sums[label]
		out = append(out, LabelScore{Label: label, Score: a.sum / float64(a.count)})
	}
	return out
}

// Labels returns one score per object name, highest first. A repeated name
// keeps the score of its last occurrence.
func Labels(objects []models.ObjectAnnotation) []LabelScore {
	index := make(map[string]int)
	var out []LabelScore
	for _, obj := range objects {
		if i, ok := index[obj.Name]; ok {
			out[i].Score = obj.Score
			continue
		}
		index[obj.Name] = len(out)
		out = append(out, LabelScore{Label: obj.Name, Score: obj.Score})
	}
	sortByScore(out)
	return out
}

// VideoLabels returns the average confidence per label, highest first.
func VideoLabels(events []models.DetectionEvent) []LabelScore {
	out := AverageConfidence(events)
	sortByScore(out)
	return out
}

func sortByScore(scores []LabelScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
}

// CountEmotions counts faces per attribute at LikelihoodPossible or above.
func CountEmotions(faces []models.FaceAnnotation) EmotionCounts {
	var c EmotionCounts
	for _, f := range faces {
		if f.Joy >= models.LikelihoodPossible {
			c.Joy++
		}
		if f.Sorrow >= models.LikelihoodPossible {
			c.Sorrow++
		}
		if f.Anger >= models.LikelihoodPossible {
			c.Anger++
		}
		if f.Surprise >= models.LikelihoodPossible {
			c.Surprise++
		}
		if f.Headwear >= models.LikelihoodPossible {
			c.Headwear++
		}
	}
	return c
}

// FaceCounts is CountEmotions for the dashboard: nil when nothing was detected.
func FaceCounts(faces []models.FaceAnnotation) *EmotionCounts {
	c := CountEmotions(faces)
	if c.IsZero() {
		return nil
	}
	return &c
}

// NumberOfPeople renders a person track count, or "" when there are none.
func NumberOfPeople(tracks int) string {
	switch {
	case tracks <= 0:
		return ""
	case tracks == 1:
		return "1 person detected"
	default:
		return fmt.Sprintf("%d people detected", tracks)
	}
}

// Percent formats a [0,1] score as a percentage rounded to two decimals,
// always with a fractional part: 0.9 -> "90.0", 0.87654 -> "87.65".
func Percent(score float64) string {
	pct := math.Round(score*100*100) / 100
	s := strconv.FormatFloat(pct, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
