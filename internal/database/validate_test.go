package database

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/similarity"
)

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name      string
		input     NewIdentity
		wantField string
		wantName  string
	}{
		{"valid", NewIdentity{DisplayName: "Alice", Embedding: similarity.Vector{1, 2, 3}}, "", "Alice"},
		{"kept verbatim", NewIdentity{DisplayName: "  Bob   Smith ", Embedding: similarity.Vector{1, 2, 3}}, "", "  Bob   Smith "},
		{"empty name", NewIdentity{DisplayName: "", Embedding: similarity.Vector{1, 2, 3}}, "display_name", ""},
		{"blank name", NewIdentity{DisplayName: " \t ", Embedding: similarity.Vector{1, 2, 3}}, "display_name", ""},
		{"long name", NewIdentity{DisplayName: strings.Repeat("x", 256), Embedding: similarity.Vector{1, 2, 3}}, "display_name", ""},
		{"short embedding", NewIdentity{DisplayName: "Alice", Embedding: similarity.Vector{1, 2}}, "embedding", ""},
		{"nil embedding", NewIdentity{DisplayName: "Alice"}, "embedding", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateIdentity(3, tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.DisplayName != tt.wantName {
					t.Errorf("expected name %q, got %q", tt.wantName, got.DisplayName)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, vErr.Field)
			}
		})
	}
}

func TestValidateIdentity_ClonesEmbedding(t *testing.T) {
	emb := similarity.Vector{1, 2, 3}
	got, err := ValidateIdentity(3, NewIdentity{DisplayName: "Alice", Embedding: emb})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emb[0] = 99
	if got.Embedding[0] != 1 {
		t.Error("validated identity shares the caller's embedding")
	}
}

func TestWrapStoreError(t *testing.T) {
	if WrapStoreError("noop", nil) != nil {
		t.Error("expected nil for nil error")
	}

	plain := WrapStoreError("scan identity", errors.New("bad column"))
	if errors.Is(plain, ErrStoreUnavailable) {
		t.Error("plain error must not be marked unavailable")
	}

	connErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	wrapped := WrapStoreError("query identities", connErr)
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable in chain, got %v", wrapped)
	}
	var opErr *net.OpError
	if !errors.As(wrapped, &opErr) {
		t.Error("original cause should stay reachable")
	}
	if !strings.Contains(wrapped.Error(), "query identities") {
		t.Errorf("expected op in message, got %q", wrapped.Error())
	}
}

func TestCandidates_PreservesOrderAndVersion(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []IdentityRecord{
		{ID: 3, UpdatedAt: now, Embedding: similarity.Vector{1}},
		{ID: 1, UpdatedAt: now.Add(time.Second), Embedding: similarity.Vector{2}},
	}
	got := Candidates(records)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].Version == got[1].Version {
		t.Error("expected versions derived from UpdatedAt to differ")
	}
}
