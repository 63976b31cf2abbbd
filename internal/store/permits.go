package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const permitColumns = `id, city, state, zip_codes, project_type, documents, created_at, updated_at`

// FindPermitSet returns the document set whose zip list contains zip.
func (s *PostgresStore) FindPermitSet(ctx context.Context, zip, projectType string) (PermitDocumentSet, error) {
	var set PermitDocumentSet
	err := s.x.GetContext(ctx, &set, `
		SELECT `+permitColumns+`
		FROM permit_document_sets
		WHERE project_type = $1 AND zip_codes ? $2
		ORDER BY city
		LIMIT 1
	`, projectType, zip)
	if err != nil {
		return PermitDocumentSet{}, err
	}
	return set, nil
}

// InsertPermitSetIfMissing reports whether a new row was written.
func (s *PostgresStore) InsertPermitSetIfMissing(ctx context.Context, set PermitDocumentSet) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO permit_document_sets (id, city, state, zip_codes, project_type, documents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (city, state, project_type) DO NOTHING
		RETURNING id
	`, set.ID, set.City, set.State, set.ZipCodes, set.ProjectType, set.Documents).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert permit set %s/%s: %w", set.City, set.ProjectType, err)
	}
	return true, nil
}
