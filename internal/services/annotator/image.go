package annotator

import (
	"encoding/json"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/artefactory/smartparks/internal/models"
)

type imageResponse struct {
	LocalizedObjectAnnotations *[]localizedObject `json:"localizedObjectAnnotations"`
	FaceAnnotations            *[]faceAttributes  `json:"faceAnnotations"`
	LabelAnnotations           []labelAnnotation  `json:"labelAnnotations"`
}

type localizedObject struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	BoundingPoly struct {
		NormalizedVertices []models.Vertex `json:"normalizedVertices"`
	} `json:"boundingPoly"`
}

type faceAttributes struct {
	JoyLikelihood      models.Likelihood `json:"joyLikelihood"`
	SorrowLikelihood   models.Likelihood `json:"sorrowLikelihood"`
	AngerLikelihood    models.Likelihood `json:"angerLikelihood"`
	SurpriseLikelihood models.Likelihood `json:"surpriseLikelihood"`
	HeadwearLikelihood models.Likelihood `json:"headwearLikelihood"`
}

type labelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ParseImageResponse decodes a vision response. Object and face annotations
// are required, labels are optional.
func ParseImageResponse(raw []byte) (*models.ImageAnnotations, error) {
	var resp imageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if resp.LocalizedObjectAnnotations == nil {
		return nil, fmt.Errorf("%w: missing localizedObjectAnnotations", ErrParse)
	}
	if resp.FaceAnnotations == nil {
		return nil, fmt.Errorf("%w: missing faceAnnotations", ErrParse)
	}

	out := &models.ImageAnnotations{
		Objects: make([]models.ObjectAnnotation, 0, len(*resp.LocalizedObjectAnnotations)),
		Faces:   make([]models.FaceAnnotation, 0, len(*resp.FaceAnnotations)),
		Labels:  make([]models.LabelAnnotation, 0, len(resp.LabelAnnotations)),
	}
	for _, obj := range *resp.LocalizedObjectAnnotations {
		out.Objects = append(out.Objects, models.ObjectAnnotation{
			Name:     obj.Name,
			Score:    obj.Score,
			Vertices: obj.BoundingPoly.NormalizedVertices,
		})
	}
	for _, face := range *resp.FaceAnnotations {
		out.Faces = append(out.Faces, models.FaceAnnotation{
			Joy:      face.JoyLikelihood,
			Sorrow:   face.SorrowLikelihood,
			Anger:    face.AngerLikelihood,
			Surprise: face.SurpriseLikelihood,
			Headwear: face.HeadwearLikelihood,
		})
	}
	for _, label := range resp.LabelAnnotations {
		out.Labels = append(out.Labels, models.LabelAnnotation{
			Description: label.Description,
			Score:       label.Score,
		})
	}
	return out, nil
}

// PolygonRect spans vertex 0 to vertex 2 of a normalized polygon, scaled to
// the image. Polygons with fewer than three vertices yield false.
func PolygonRect(vertices []models.Vertex, width, height int) (image.Rectangle, bool) {
	if len(vertices) < 3 {
		return image.Rectangle{}, false
	}
	return ToPixels(models.NormalizedBox{
		Left:   vertices[0].X,
		Top:    vertices[0].Y,
		Right:  vertices[2].X,
		Bottom: vertices[2].Y,
	}, width, height), true
}

// DrawBoxes decodes img, outlines every polygon and returns the result as JPEG.
func DrawBoxes(img []byte, polygons [][]models.Vertex) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrEncode, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", ErrEncode)
	}

	rects := make([]image.Rectangle, 0, len(polygons))
	for _, vertices := range polygons {
		if rect, ok := PolygonRect(vertices, mat.Cols(), mat.Rows()); ok {
			rects = append(rects, rect)
		}
	}
	if err := Composite(&mat, rects); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return EncodeJPEG(mat)
}

// EncodeJPEG encodes a frame as a JPEG still.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %v", ErrEncode, err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
