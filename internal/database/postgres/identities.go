package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/similarity"
	"github.com/pgvector/pgvector-go"
)

const identityColumns = `id, display_name, description, embedding, created_at, updated_at`

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
	dim  int
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// Dimension returns the embedding dimension enforced on writes.
func (r *IdentityRepository) Dimension() int {
	return r.dim
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Create inserts a new identity and returns its id.
func (r *IdentityRepository) Create(ctx context.Context, identity database.NewIdentity) (int64, error) {
	valid, err := database.ValidateIdentity(r.dim, identity)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO identities (display_name, description, embedding, dim)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	vec := pgvector.NewVector(valid.Embedding)
	err = r.pool.QueryRow(ctx, query, valid.DisplayName, nullString(valid.Description), vec, r.dim).Scan(&id)
	if err != nil {
		return 0, database.WrapStoreError("insert identity", err)
	}
	return id, nil
}

// ReadAll returns every identity ordered by id.
func (r *IdentityRepository) ReadAll(ctx context.Context) ([]database.IdentityRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, database.WrapStoreError("query identities", err)
	}
	defer rows.Close()

	records := make([]database.IdentityRecord, 0)
	for rows.Next() {
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapStoreError("iterate identities", err)
	}
	return records, nil
}

// ReadOne returns the identity with the given id.
func (r *IdentityRepository) ReadOne(ctx context.Context, id int64) (*database.IdentityRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	rec, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReadByName returns the lowest-id identity with the given display name.
func (r *IdentityRepository) ReadByName(ctx context.Context, displayName string) (*database.IdentityRecord, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE display_name = $1 ORDER BY id LIMIT 1`
	row := r.pool.QueryRow(ctx, query, displayName)
	rec, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update replaces name, description and embedding. It returns false when the
// identity does not exist.
func (r *IdentityRepository) Update(ctx context.Context, id int64, identity database.NewIdentity) (bool, error) {
	valid, err := database.ValidateIdentity(r.dim, identity)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE identities
		SET display_name = $1, description = $2, embedding = $3, dim = $4, updated_at = NOW()
		WHERE id = $5
	`
	vec := pgvector.NewVector(valid.Embedding)
	result, err := r.pool.Exec(ctx, query, valid.DisplayName, nullString(valid.Description), vec, r.dim, id)
	if err != nil {
		return false, database.WrapStoreError("update identity", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, database.WrapStoreError("update identity", err)
	}
	return n > 0, nil
}

// Delete removes an identity. It returns false when the identity does not exist.
func (r *IdentityRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return false, database.WrapStoreError("delete identity", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, database.WrapStoreError("delete identity", err)
	}
	return n > 0, nil
}

// Count returns the number of registered identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, database.WrapStoreError("count identities", err)
	}
	return count, nil
}

func scanIdentity(scanner interface{ Scan(...any) error }) (database.IdentityRecord, error) {
	var rec database.IdentityRecord
	var vec pgvector.Vector
	var description sql.NullString

	err := scanner.Scan(&rec.ID, &rec.DisplayName, &description, &vec, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, database.ErrNotFound
	}
	if err != nil {
		return rec, database.WrapStoreError("scan identity", err)
	}

	rec.Description = description.String
	rec.Embedding = similarity.Vector(vec.Slice())
	return rec, nil
}

var _ database.IdentityStore = (*IdentityRepository)(nil)
