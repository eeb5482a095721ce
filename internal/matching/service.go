// Package matching registers, recognizes and compares faces against the
// identity store. Every operation returns a result value; failures are
// reported through the embedded Outcome instead of Go errors.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/detector"
	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/similarity"
)

// DefaultThreshold is the cosine similarity at which a face counts as a match.
const DefaultThreshold = 0.6

// Detector finds faces in an image and returns them in detector order.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]detector.Face, error)
}

// Options configures a Service.
type Options struct {
	Threshold float64
	Ranker    similarity.Ranker
	Logger    *slog.Logger
}

// Service holds no per-request state and is safe for concurrent use.
type Service struct {
	detector  Detector
	store     database.IdentityStore
	threshold float64
	ranker    similarity.Ranker
	logger    *slog.Logger
}

// New creates a matching service.
func New(d Detector, store database.IdentityStore, opts Options) *Service {
	if opts.Ranker == nil {
		opts.Ranker = similarity.Linear{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		detector:  d,
		store:     store,
		threshold: opts.Threshold,
		ranker:    opts.Ranker,
		logger:    opts.Logger,
	}
}

// Threshold returns the default threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

func (s *Service) begin(op string) (Outcome, *slog.Logger) {
	id := uuid.NewString()
	return Outcome{OperationID: id}, s.logger.With("op", op, "operation_id", id)
}

func succeeded(out Outcome, message string) Outcome {
	out.Success = true
	out.Message = message
	return out
}

// failed fills out from err and logs it. Upstream failures log at error level,
// caller mistakes at warn.
func failed(ctx context.Context, out Outcome, logger *slog.Logger, err error) Outcome {
	kind := classify(err)
	out.Success = false
	out.Kind = kind
	out.Message = err.Error()

	level := slog.LevelWarn
	switch kind {
	case KindInternal, KindStoreUnavailable, KindDetectorFailed:
		level = slog.LevelError
	}
	logger.Log(ctx, level, "operation failed", "kind", string(kind), "error", err)
	return out
}

// resolveThreshold returns the per-call threshold or the service default.
func (s *Service) resolveThreshold(t *float64) (float64, error) {
	if t == nil {
		return s.threshold, nil
	}
	if math.IsNaN(*t) || *t < 0 || *t > 1 {
		return 0, &database.ValidationError{Field: "threshold", Reason: "must be between 0 and 1"}
	}
	return *t, nil
}

// detectFaces runs the detector and requires at least one face. label names
// the image in the no-face error.
func (s *Service) detectFaces(ctx context.Context, image []byte, label string) ([]detector.Face, error) {
	faces, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, &detector.NoFaceDetectedError{Image: label}
	}
	return faces, nil
}

// usableEmbedding checks a detected embedding against the store dimension.
func (s *Service) usableEmbedding(face detector.Face) error {
	if err := similarity.CheckDim(face.Embedding, s.store.Dimension()); err != nil {
		return err
	}
	if face.Embedding.IsDegenerate() {
		return fmt.Errorf("face %d: %w", face.Index, similarity.ErrDegenerateVector)
	}
	return nil
}

// Register detects a face and stores it as a new identity. When the image
// holds several faces the first one is registered and FaceCount reports all.
func (s *Service) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	out, logger := s.begin("register")
	res := RegisterResult{}

	name := req.DisplayName
	if facematch.CanonicalName(name) == "" {
		res.Outcome = failed(ctx, out, logger, &database.ValidationError{Field: "display_name", Reason: "must not be empty"})
		return res
	}

	faces, err := s.detectFaces(ctx, req.Image, "")
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.FaceCount = len(faces)
	if len(faces) > 1 {
		logger.Warn("multiple faces detected, registering face 0", "faces", len(faces))
	}

	face := faces[0]
	if err := s.usableEmbedding(face); err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}

	id, err := s.store.Create(ctx, database.NewIdentity{
		DisplayName: name,
		Description: req.Description,
		Embedding:   face.Embedding,
	})
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}

	res.IdentityID = id
	res.DisplayName = name
	res.Confidence = face.Confidence
	res.Dimension = face.Embedding.Dim()
	res.BBox = face.BBox
	res.Outcome = succeeded(out, fmt.Sprintf("registered %s as identity %d", name, id))
	logger.Info("identity registered", "identity_id", id, "faces", len(faces), "confidence", face.Confidence)
	return res
}

// Recognize matches every detected face independently against the full
// registry. Two faces may claim the same identity.
func (s *Service) Recognize(ctx context.Context, req RecognizeRequest) RecognizeResult {
	out, logger := s.begin("recognize")
	res := RecognizeResult{Faces: []FaceMatch{}}

	threshold, err := s.resolveThreshold(req.Threshold)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.Threshold = threshold

	faces, err := s.detectFaces(ctx, req.Image, "")
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.FaceCount = len(faces)
	for _, face := range faces {
		if err := s.usableEmbedding(face); err != nil {
			res.Outcome = failed(ctx, out, logger, err)
			return res
		}
	}

	records, err := s.store.ReadAll(ctx)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.Candidates = len(records)

	if len(records) == 0 {
		for _, face := range faces {
			res.Faces = append(res.Faces, unmatchedFace(face, threshold))
		}
		res.Status = StatusEmptyRegistry
		res.Outcome = succeeded(out, "no identities registered")
		logger.Info("recognized against empty registry", "faces", len(faces))
		return res
	}

	byID := make(map[int64]*database.IdentityRecord, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	candidates := database.Candidates(records)

	matched := 0
	for _, face := range faces {
		decision, err := similarity.BestMatchWith(s.ranker, face.Embedding, candidates, threshold)
		if err != nil {
			res.Outcome = failed(ctx, out, logger, err)
			return res
		}

		fm := unmatchedFace(face, threshold)
		if decision.HasBest {
			best := byID[decision.BestID]
			fm.BestSimilarity = decision.BestSimilarity
			fm.Margin = decision.BestSimilarity - threshold
			if decision.Matched {
				fm.Matched = true
				fm.IdentityID = best.ID
				fm.DisplayName = best.DisplayName
				fm.Description = best.Description
				matched++
			} else {
				fm.CandidateID = best.ID
				fm.CandidateName = best.DisplayName
			}
		}
		res.Faces = append(res.Faces, fm)
	}

	if matched > 0 {
		res.Status = StatusMatched
		res.Outcome = succeeded(out, fmt.Sprintf("matched %d of %d faces", matched, len(faces)))
	} else {
		res.Status = StatusNoMatch
		res.Outcome = succeeded(out, "no matching identity")
	}
	logger.Info("faces recognized",
		"faces", len(faces), "matched", matched, "candidates", len(records),
		"threshold", threshold, "ranker", s.ranker.Name())
	return res
}

func unmatchedFace(face detector.Face, threshold float64) FaceMatch {
	return FaceMatch{
		FaceIndex:   face.Index,
		BBox:        face.BBox,
		Confidence:  face.Confidence,
		DisplayName: UnknownName,
		Threshold:   threshold,
	}
}

// Compare decides whether face 0 of each image shows the same person. The
// registry is not consulted.
func (s *Service) Compare(ctx context.Context, req CompareRequest) CompareResult {
	out, logger := s.begin("compare")
	res := CompareResult{}

	threshold, err := s.resolveThreshold(req.Threshold)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.Threshold = threshold

	facesA, err := s.detectFaces(ctx, req.ImageA, "image A")
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	facesB, err := s.detectFaces(ctx, req.ImageB, "image B")
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.FaceCountA, res.FaceCountB = len(facesA), len(facesB)

	a, b := facesA[0], facesB[0]
	sim, err := similarity.Cosine(a.Embedding, b.Embedding)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}

	res.Similarity = sim
	res.IsSamePerson = sim >= threshold
	res.Margin = math.Abs(sim - threshold)
	res.ConfidenceA, res.ConfidenceB = a.Confidence, b.Confidence
	res.BBoxA, res.BBoxB = a.BBox, b.BBox
	if res.IsSamePerson {
		res.Outcome = succeeded(out, "same person")
	} else {
		res.Outcome = succeeded(out, "different people")
	}
	logger.Info("faces compared", "similarity", sim, "threshold", threshold, "same_person", res.IsSamePerson)
	return res
}

// List returns all identities without their embeddings.
func (s *Service) List(ctx context.Context) ListResult {
	out, logger := s.begin("list")
	res := ListResult{Identities: []IdentitySummary{}}

	records, err := s.store.ReadAll(ctx)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	for i := range records {
		res.Identities = append(res.Identities, summarize(&records[i]))
	}
	res.Count = len(records)
	res.Outcome = succeeded(out, fmt.Sprintf("%d identities", len(records)))
	return res
}

// Get returns one identity by id.
func (s *Service) Get(ctx context.Context, id int64) IdentityResult {
	out, logger := s.begin("get")
	res := IdentityResult{}

	rec, err := s.store.ReadOne(ctx, id)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, fmt.Errorf("identity %d: %w", id, err))
		return res
	}
	summary := summarize(rec)
	res.Identity = &summary
	res.Outcome = succeeded(out, "found")
	return res
}

// FindByName returns the first identity with exactly the given display name.
func (s *Service) FindByName(ctx context.Context, name string) IdentityResult {
	out, logger := s.begin("find_by_name")
	res := IdentityResult{}

	rec, err := s.store.ReadByName(ctx, name)
	if err == nil {
		summary := summarize(rec)
		res.Identity = &summary
		res.Outcome = succeeded(out, "found")
		return res
	}
	if !errors.Is(err, database.ErrNotFound) {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}

	// Offer near-miss names, e.g. "jan-novak" for "Jan Novák".
	if records, listErr := s.store.ReadAll(ctx); listErr == nil {
		key := facematch.NameKey(name)
		for i := range records {
			if facematch.NameKey(records[i].DisplayName) == key {
				res.Suggestions = append(res.Suggestions, summarize(&records[i]))
			}
		}
	}
	res.Outcome = failed(ctx, out, logger, fmt.Errorf("identity %q: %w", name, err))
	return res
}

// Update replaces an identity's name and description, and its embedding when
// an image is supplied.
func (s *Service) Update(ctx context.Context, req UpdateRequest) MutationResult {
	out, logger := s.begin("update")
	res := MutationResult{IdentityID: req.ID}

	existing, err := s.store.ReadOne(ctx, req.ID)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, fmt.Errorf("identity %d: %w", req.ID, err))
		return res
	}

	embedding := existing.Embedding
	if len(req.Image) > 0 {
		faces, err := s.detectFaces(ctx, req.Image, "")
		if err != nil {
			res.Outcome = failed(ctx, out, logger, err)
			return res
		}
		if len(faces) > 1 {
			logger.Warn("multiple faces detected, using face 0", "faces", len(faces))
		}
		if err := s.usableEmbedding(faces[0]); err != nil {
			res.Outcome = failed(ctx, out, logger, err)
			return res
		}
		embedding = faces[0].Embedding
	}

	ok, err := s.store.Update(ctx, req.ID, database.NewIdentity{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Embedding:   embedding,
	})
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	if !ok {
		// Deleted between the read and the write.
		res.Outcome = failed(ctx, out, logger, fmt.Errorf("identity %d: %w", req.ID, database.ErrNotFound))
		return res
	}

	res.Outcome = succeeded(out, fmt.Sprintf("identity %d updated", req.ID))
	logger.Info("identity updated", "identity_id", req.ID, "embedding_replaced", len(req.Image) > 0)
	return res
}

// Delete removes an identity.
func (s *Service) Delete(ctx context.Context, id int64) MutationResult {
	out, logger := s.begin("delete")
	res := MutationResult{IdentityID: id}

	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	if !ok {
		res.Outcome = failed(ctx, out, logger, fmt.Errorf("identity %d: %w", id, database.ErrNotFound))
		return res
	}

	res.Outcome = succeeded(out, fmt.Sprintf("identity %d deleted", id))
	logger.Info("identity deleted", "identity_id", id)
	return res
}

// Stats reports the registry size and matching configuration.
func (s *Service) Stats(ctx context.Context) StatsResult {
	out, logger := s.begin("stats")
	res := StatsResult{
		Dimension: s.store.Dimension(),
		Threshold: s.threshold,
		Ranker:    s.ranker.Name(),
	}

	n, err := s.store.Count(ctx)
	if err != nil {
		res.Outcome = failed(ctx, out, logger, err)
		return res
	}
	res.IdentityCount = n
	res.Outcome = succeeded(out, "ok")
	return res
}
