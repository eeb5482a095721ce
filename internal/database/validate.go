package database

import (
	"errors"
	"unicode/utf8"

	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/similarity"
)

// MaxDisplayNameLength matches the VARCHAR(255) column of the SQL stores.
const MaxDisplayNameLength = 255

// ValidateIdentity checks a record before it is written. The display name is
// kept verbatim; a name that is blank once canonicalized is rejected. The
// embedding is cloned so the store owns its copy.
func ValidateIdentity(dim int, identity NewIdentity) (NewIdentity, error) {
	name := identity.DisplayName
	if facematch.CanonicalName(name) == "" {
		return NewIdentity{}, &ValidationError{Field: "display_name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return NewIdentity{}, &ValidationError{Field: "display_name", Reason: "longer than 255 characters"}
	}

	if err := similarity.CheckDim(identity.Embedding, dim); err != nil {
		var dimErr *similarity.DimensionMismatchError
		if errors.As(err, &dimErr) {
			return NewIdentity{}, &ValidationError{Field: "embedding", Reason: dimErr.Error()}
		}
		return NewIdentity{}, err
	}

	return NewIdentity{
		DisplayName: name,
		Description: identity.Description,
		Embedding:   identity.Embedding.Clone(),
	}, nil
}
