package matching

import (
	"errors"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/detector"
	"github.com/kozaktomas/face-registry/internal/similarity"
)

// classify maps an error from the detector, engine or store to a result kind.
func classify(err error) ErrorKind {
	var noFace *detector.NoFaceDetectedError
	var validation *database.ValidationError
	var dimErr *similarity.DimensionMismatchError

	switch {
	case errors.As(err, &noFace):
		return KindNoFace
	case errors.Is(err, similarity.ErrDegenerateVector):
		return KindDegenerateVector
	case errors.As(err, &validation), errors.As(err, &dimErr), errors.Is(err, detector.ErrInvalidImage):
		return KindValidation
	case errors.Is(err, database.ErrNotFound):
		return KindNotFound
	case errors.Is(err, database.ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, detector.ErrDetectorFailed):
		return KindDetectorFailed
	default:
		return KindInternal
	}
}
