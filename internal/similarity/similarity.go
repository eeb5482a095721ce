package similarity

import (
	"math"
	"sort"
)

// Candidate is one stored identity offered to the ranker.
// Version changes whenever the stored embedding changes (e.g. updated_at in
// unix nanoseconds) and lets caching rankers detect stale state.
type Candidate struct {
	ID        int64
	Version   int64
	Embedding Vector
}

// Scored is a candidate id with its similarity to the query.
type Scored struct {
	ID         int64
	Similarity float64
}

// MatchDecision is the outcome of matching one query against a candidate set.
type MatchDecision struct {
	BestID         int64
	HasBest        bool
	BestSimilarity float64
	Threshold      float64
	Matched        bool
}

// Ranker orders candidates by descending similarity to a query.
// Implementations must keep earlier candidates first on ties.
type Ranker interface {
	Name() string
	Rank(query Vector, candidates []Candidate) ([]Scored, error)
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Both inputs are normalized as part of the computation.
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	if a.IsDegenerate() || b.IsDegenerate() {
		return 0, ErrDegenerateVector
	}
	return cosine(a, b, a.sqNorm(), b.sqNorm()), nil
}

// cosine assumes equal lengths and non-zero norms. It takes squared norms so
// that a vector compared with itself yields exactly 1.
func cosine(a, b Vector, sqNormA, sqNormB float64) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	sim := dot / math.Sqrt(sqNormA*sqNormB)
	// Clamp to [-1, 1] to absorb floating point error.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}

// Linear is the exact full-scan ranker. It is O(N) per query.
type Linear struct{}

// Name implements Ranker.
func (Linear) Name() string { return "linear" }

// Rank implements Ranker.
func (Linear) Rank(query Vector, candidates []Candidate) ([]Scored, error) {
	return Rank(query, candidates)
}

// Rank scores every candidate against query and sorts by descending similarity.
// The sort is stable so candidates earlier in the snapshot win ties.
// Candidates with a different dimension or a degenerate embedding are skipped.
func Rank(query Vector, candidates []Candidate) ([]Scored, error) {
	if query.IsDegenerate() {
		return nil, ErrDegenerateVector
	}
	qn := query.sqNorm()

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(query) || c.Embedding.IsDegenerate() {
			continue
		}
		scored = append(scored, Scored{
			ID:         c.ID,
			Similarity: cosine(query, c.Embedding, qn, c.Embedding.sqNorm()),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	return scored, nil
}

// BestMatch ranks candidates linearly and applies threshold to the top result.
func BestMatch(query Vector, candidates []Candidate, threshold float64) (MatchDecision, error) {
	return BestMatchWith(Linear{}, query, candidates, threshold)
}

// BestMatchWith is BestMatch with an explicit ranker.
func BestMatchWith(r Ranker, query Vector, candidates []Candidate, threshold float64) (MatchDecision, error) {
	decision := MatchDecision{Threshold: threshold}
	if query.IsDegenerate() {
		return decision, ErrDegenerateVector
	}
	if len(candidates) == 0 {
		return decision, nil
	}

	ranked, err := r.Rank(query, candidates)
	if err != nil {
		return decision, err
	}
	if len(ranked) == 0 {
		return decision, nil
	}

	top := ranked[0]
	decision.BestID = top.ID
	decision.HasBest = true
	decision.BestSimilarity = top.Similarity
	decision.Matched = !math.IsNaN(top.Similarity) && top.Similarity >= threshold
	return decision, nil
}
