package database

import (
	"time"

	"github.com/kozaktomas/face-registry/internal/similarity"
)

// IdentityRecord is a registered person: display name, optional description
// and the embedding of the face they were registered with.
type IdentityRecord struct {
	ID          int64
	DisplayName string
	Description string // empty when not set (NULL in SQL stores)
	Embedding   similarity.Vector
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Candidate converts the record for the similarity engine.
func (r *IdentityRecord) Candidate() similarity.Candidate {
	return similarity.Candidate{
		ID:        r.ID,
		Version:   r.UpdatedAt.UnixNano(),
		Embedding: r.Embedding,
	}
}

// NewIdentity holds the mutable fields of a record, used by Create and Update.
// Update replaces all of them wholesale.
type NewIdentity struct {
	DisplayName string
	Description string
	Embedding   similarity.Vector
}

// Candidates converts a snapshot into similarity candidates, preserving order.
func Candidates(records []IdentityRecord) []similarity.Candidate {
	out := make([]similarity.Candidate, len(records))
	for i := range records {
		out[i] = records[i].Candidate()
	}
	return out
}
