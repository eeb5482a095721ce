package matching

import (
	"time"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/detector"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	KindNoFace           ErrorKind = "no_face"
	KindDegenerateVector ErrorKind = "degenerate_vector"
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindDetectorFailed   ErrorKind = "detector_failed"
	KindInternal         ErrorKind = "internal"
)

// Outcome is embedded in every result. Kind is empty on success.
type Outcome struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Kind        ErrorKind `json:"error_kind,omitempty"`
	OperationID string    `json:"operation_id"`
}

// RecognizeStatus tells "nobody registered yet" apart from "nobody matched".
type RecognizeStatus string

const (
	StatusEmptyRegistry RecognizeStatus = "empty_registry"
	StatusMatched       RecognizeStatus = "matched"
	StatusNoMatch       RecognizeStatus = "no_match"
)

// UnknownName is reported for faces that match nobody.
const UnknownName = "Unknown"

type RegisterRequest struct {
	Image       []byte
	DisplayName string
	Description string
}

type RegisterResult struct {
	Outcome
	IdentityID  int64         `json:"identity_id,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	Confidence  float64       `json:"confidence,omitempty"`
	Dimension   int           `json:"dimension,omitempty"`
	FaceCount   int           `json:"face_count"`
	BBox        detector.BBox `json:"bbox"`
}

// RecognizeRequest carries an optional per-call threshold. Nil uses the
// service default.
type RecognizeRequest struct {
	Image     []byte
	Threshold *float64
}

// FaceMatch is the decision for one detected face.
type FaceMatch struct {
	FaceIndex      int           `json:"face_index"`
	BBox           detector.BBox `json:"bbox"`
	Confidence     float64       `json:"confidence"`
	Matched        bool          `json:"matched"`
	IdentityID     int64         `json:"identity_id"`
	DisplayName    string        `json:"display_name"`
	Description    string        `json:"description,omitempty"`
	BestSimilarity float64       `json:"best_similarity"`
	Margin         float64       `json:"margin"`
	Threshold      float64       `json:"threshold"`

	// Best-but-rejected candidate of an unmatched face, for threshold tuning.
	CandidateID   int64  `json:"candidate_id,omitempty"`
	CandidateName string `json:"candidate_name,omitempty"`
}

type RecognizeResult struct {
	Outcome
	Status     RecognizeStatus `json:"status,omitempty"`
	Threshold  float64         `json:"threshold"`
	FaceCount  int             `json:"face_count"`
	Candidates int             `json:"candidates"`
	Faces      []FaceMatch     `json:"faces"`
}

type CompareRequest struct {
	ImageA    []byte
	ImageB    []byte
	Threshold *float64
}

type CompareResult struct {
	Outcome
	Similarity   float64       `json:"similarity"`
	Threshold    float64       `json:"threshold"`
	IsSamePerson bool          `json:"is_same_person"`
	Margin       float64       `json:"margin"`
	FaceCountA   int           `json:"face_count_a"`
	FaceCountB   int           `json:"face_count_b"`
	ConfidenceA  float64       `json:"confidence_a"`
	ConfidenceB  float64       `json:"confidence_b"`
	BBoxA        detector.BBox `json:"bbox_a"`
	BBoxB        detector.BBox `json:"bbox_b"`
}

// IdentitySummary is a stored identity without its embedding.
type IdentitySummary struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Dimension   int       `json:"dimension"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func summarize(r *database.IdentityRecord) IdentitySummary {
	return IdentitySummary{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Dimension:   r.Embedding.Dim(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type ListResult struct {
	Outcome
	Count      int               `json:"count"`
	Identities []IdentitySummary `json:"identities"`
}

// IdentityResult is returned by Get and FindByName. When FindByName misses,
// Suggestions lists identities whose names differ only in case, diacritics
// or dashes.
type IdentityResult struct {
	Outcome
	Identity    *IdentitySummary  `json:"identity,omitempty"`
	Suggestions []IdentitySummary `json:"suggestions,omitempty"`
}

// UpdateRequest replaces name and description. With Image set, the embedding
// is replaced by face 0 of the image; otherwise the stored one is kept.
type UpdateRequest struct {
	ID          int64
	DisplayName string
	Description string
	Image       []byte
}

type MutationResult struct {
	Outcome
	IdentityID int64 `json:"identity_id"`
}

type StatsResult struct {
	Outcome
	IdentityCount int     `json:"identity_count"`
	Dimension     int     `json:"dimension"`
	Threshold     float64 `json:"threshold"`
	Ranker        string  `json:"ranker"`
}
