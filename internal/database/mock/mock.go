// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-registry/internal/database"
)

// MockIdentityStore is an in-memory implementation of database.IdentityStore.
// Ids are assigned from a monotonic counter, like an auto-increment column.
type MockIdentityStore struct {
	mu      sync.RWMutex
	dim     int
	nextID  int64
	records map[int64]*database.IdentityRecord
	now     func() time.Time

	// Error injection
	CreateError     error
	ReadAllError    error
	ReadOneError    error
	ReadByNameError error
	UpdateError     error
	DeleteError     error
	CountError      error
}

// NewMockIdentityStore creates a new mock identity store enforcing dim.
func NewMockIdentityStore(dim int) *MockIdentityStore {
	return &MockIdentityStore{
		dim:     dim,
		nextID:  1,
		records: make(map[int64]*database.IdentityRecord),
		now:     time.Now,
	}
}

// Dimension returns the enforced embedding dimension
func (m *MockIdentityStore) Dimension() int {
	return m.dim
}

// Create inserts a record
func (m *MockIdentityStore) Create(ctx context.Context, identity database.NewIdentity) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	valid, err := database.ValidateIdentity(m.dim, identity)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	now := m.now()
	m.records[id] = &database.IdentityRecord{
		ID:          id,
		DisplayName: valid.DisplayName,
		Description: valid.Description,
		Embedding:   valid.Embedding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return id, nil
}

// copyRecord returns a deep copy so callers never alias stored embeddings
func copyRecord(r *database.IdentityRecord) database.IdentityRecord {
	c := *r
	c.Embedding = r.Embedding.Clone()
	return c
}

// sortedIDs returns ids in ascending order. Caller must hold mu.
func (m *MockIdentityStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ReadAll returns all records ordered by id
func (m *MockIdentityStore) ReadAll(ctx context.Context) ([]database.IdentityRecord, error) {
	if m.ReadAllError != nil {
		return nil, m.ReadAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.IdentityRecord, 0, len(m.records))
	for _, id := range m.sortedIDs() {
		out = append(out, copyRecord(m.records[id]))
	}
	return out, nil
}

// ReadOne returns a record by id
func (m *MockIdentityStore) ReadOne(ctx context.Context, id int64) (*database.IdentityRecord, error) {
	if m.ReadOneError != nil {
		return nil, m.ReadOneError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := copyRecord(r)
	return &c, nil
}

// ReadByName returns the lowest-id record with the given display name
func (m *MockIdentityStore) ReadByName(ctx context.Context, displayName string) (*database.IdentityRecord, error) {
	if m.ReadByNameError != nil {
		return nil, m.ReadByNameError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.sortedIDs() {
		if m.records[id].DisplayName == displayName {
			c := copyRecord(m.records[id])
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

// Update replaces a record's fields, returning false if it does not exist
func (m *MockIdentityStore) Update(ctx context.Context, id int64, identity database.NewIdentity) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	valid, err := database.ValidateIdentity(m.dim, identity)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return false, nil
	}
	r.DisplayName = valid.DisplayName
	r.Description = valid.Description
	r.Embedding = valid.Embedding
	r.UpdatedAt = m.now()
	return true, nil
}

// Delete removes a record, returning false if it does not exist
func (m *MockIdentityStore) Delete(ctx context.Context, id int64) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

// Count returns the number of records
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// SetClock overrides the time source used for created_at/updated_at
func (m *MockIdentityStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
