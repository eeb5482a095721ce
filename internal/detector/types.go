// Package detector talks to the face detection and embedding server.
package detector

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/similarity"
)

var (
	// ErrInvalidImage is returned when the payload is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrDetectorFailed wraps transport, status and response errors from the server.
	ErrDetectorFailed = errors.New("face detector failed")
)

// BBox is a face bounding box in pixel coordinates of the submitted image.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Face is one detected face with its embedding. Faces are returned in the
// detector's order, which is also their index.
type Face struct {
	Index      int
	BBox       BBox
	Confidence float64
	Embedding  similarity.Vector
}

// NoFaceDetectedError reports that an image contained no face.
type NoFaceDetectedError struct {
	Image string // label of the image, e.g. "image A"; empty for single-image calls
}

func (e *NoFaceDetectedError) Error() string {
	if e.Image == "" {
		return "no face detected"
	}
	return fmt.Sprintf("no face detected in %s", e.Image)
}
