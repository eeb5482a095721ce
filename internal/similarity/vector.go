// Package similarity implements the embedding vector primitive and the cosine
// similarity engine used to rank stored identities against a query face.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrDegenerateVector is returned when a vector has zero, NaN or infinite L2 norm.
// Callers treat it as "no usable face".
var ErrDegenerateVector = errors.New("degenerate embedding vector")

// DimensionMismatchError is returned when two vectors of different length are compared.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Vector is a face embedding as produced by the embedder. It is stored as-is;
// normalization happens only at comparison time.
type Vector []float32

// Dim returns the vector dimension.
func (v Vector) Dim() int {
	return len(v)
}

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	return slices.Clone(v)
}

// sqNorm returns the squared L2 norm of v computed in float64.
func (v Vector) sqNorm() float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return sum
}

// norm returns the L2 norm of v computed in float64.
func (v Vector) norm() float64 {
	return math.Sqrt(v.sqNorm())
}

// IsDegenerate reports whether v cannot be normalized.
func (v Vector) IsDegenerate() bool {
	if len(v) == 0 {
		return true
	}
	n := v.norm()
	return n == 0 || math.IsNaN(n) || math.IsInf(n, 0)
}

// Normalize returns a unit-length copy of v.
func Normalize(v Vector) (Vector, error) {
	if v.IsDegenerate() {
		return nil, ErrDegenerateVector
	}
	n := v.norm()
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// CheckDim returns a DimensionMismatchError when v does not have dimension dim.
func CheckDim(v Vector, dim int) error {
	if len(v) != dim {
		return &DimensionMismatchError{Want: dim, Got: len(v)}
	}
	return nil
}
