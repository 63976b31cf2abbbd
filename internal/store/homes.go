package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"buildwise/api/internal/home"
)

// ErrNoChanges is returned by a mutation callback that wants to commit nothing.
var ErrNoChanges = errors.New("no changes")

const (
	setPatchSQL    = `UPDATE homes SET doc = jsonb_set(doc, $2::text[], $3::jsonb, true) WHERE id = $1`
	appendPatchSQL = `UPDATE homes SET doc = jsonb_set(doc, $2::text[],
		(CASE WHEN jsonb_typeof(doc #> $2::text[]) = 'array' THEN doc #> $2::text[] ELSE '[]'::jsonb END) || jsonb_build_array($3::jsonb),
		true) WHERE id = $1`
	removePatchSQL = `UPDATE homes SET doc = doc #- $2::text[] WHERE id = $1`
	bumpHomeSQL    = `UPDATE homes SET revision = revision + 1, updated_at = NOW() WHERE id = $1
		RETURNING doc, revision, created_at, updated_at`
)

// columnOwnedKeys live in homes columns and are merged back on read.
var columnOwnedKeys = []string{"revision", "createdAt", "updatedAt"}

// encodeHomeDoc marshals the aggregate without the column-owned fields so the
// stored document never carries stale copies of them.
func encodeHomeDoc(h home.Home) ([]byte, error) {
	raw, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for _, key := range columnOwnedKeys {
		delete(fields, key)
	}
	return json.Marshal(fields)
}

func (s *PostgresStore) CreateHome(ctx context.Context, h home.Home) (home.Home, error) {
	h.Normalize()
	doc, err := encodeHomeDoc(h)
	if err != nil {
		return home.Home{}, fmt.Errorf("encode home: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO homes (id, doc)
		VALUES ($1, $2::jsonb)
		RETURNING revision, created_at, updated_at
	`, h.ID, string(doc)).Scan(&h.Revision, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return home.Home{}, fmt.Errorf("insert home: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) GetHome(ctx context.Context, id string) (home.Home, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc, revision, created_at, updated_at FROM homes WHERE id = $1`, id)
	return scanHome(row)
}

// ListHomes returns the most recently updated homes first.
func (s *PostgresStore) ListHomes(ctx context.Context, limit int) ([]home.Home, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc, revision, created_at, updated_at
		FROM homes
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list homes: %w", err)
	}
	return collectHomes(rows)
}

// ListHomesForEmail returns homes where email is the client, builder, a monitor or a participant.
func (s *PostgresStore) ListHomesForEmail(ctx context.Context, email string, limit int) ([]home.Home, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	member, err := json.Marshal([]map[string]string{{"email": email}})
	if err != nil {
		return nil, fmt.Errorf("encode member filter: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc, revision, created_at, updated_at
		FROM homes
		WHERE doc->'client'->>'email' = $1
			OR doc->'builder'->>'email' = $1
			OR doc->'monitors' @> $2::jsonb
			OR doc->'participants' @> $2::jsonb
		ORDER BY updated_at DESC
		LIMIT $3
	`, email, string(member), limit)
	if err != nil {
		return nil, fmt.Errorf("list homes for member: %w", err)
	}
	return collectHomes(rows)
}

// MutateHome locks the home row, runs fn against the decoded aggregate and
// persists only the patches fn returns. Writers on one home are serialized
// by the row lock; sibling elements are never rewritten.
func (s *PostgresStore) MutateHome(ctx context.Context, id string, fn func(*home.Home) ([]home.Patch, error)) (home.Home, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return home.Home{}, fmt.Errorf("begin home tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	var revision int64
	var createdAt, updatedAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT doc, revision, created_at, updated_at FROM homes WHERE id = $1 FOR UPDATE
	`, id).Scan(&raw, &revision, &createdAt, &updatedAt)
	if err != nil {
		return home.Home{}, err
	}
	var h home.Home
	if err := json.Unmarshal(raw, &h); err != nil {
		return home.Home{}, fmt.Errorf("decode home %s: %w", id, err)
	}
	h.Normalize()
	h.Revision, h.CreatedAt, h.UpdatedAt = revision, createdAt, updatedAt

	patches, err := fn(&h)
	if errors.Is(err, ErrNoChanges) || (err == nil && len(patches) == 0) {
		return h, nil
	}
	if err != nil {
		return home.Home{}, err
	}

	for _, patch := range patches {
		if err := applyPatch(ctx, tx, id, patch); err != nil {
			return home.Home{}, err
		}
	}

	updated, err := scanHome(tx.QueryRowContext(ctx, bumpHomeSQL, id))
	if err != nil {
		return home.Home{}, fmt.Errorf("bump home revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return home.Home{}, fmt.Errorf("commit home tx: %w", err)
	}
	return updated, nil
}

func applyPatch(ctx context.Context, tx *sql.Tx, id string, patch home.Patch) error {
	path := textArray(patch.Path)
	var err error
	switch patch.Op {
	case home.OpSet, home.OpAppend:
		value, encErr := json.Marshal(patch.Value)
		if encErr != nil {
			return fmt.Errorf("encode patch %s: %w", patch, encErr)
		}
		query := setPatchSQL
		if patch.Op == home.OpAppend {
			query = appendPatchSQL
		}
		_, err = tx.ExecContext(ctx, query, id, path, string(value))
	case home.OpRemove:
		_, err = tx.ExecContext(ctx, removePatchSQL, id, path)
	default:
		return fmt.Errorf("unknown patch op %q", patch.Op)
	}
	if err != nil {
		return fmt.Errorf("apply patch %s: %w", patch, err)
	}
	return nil
}

// textArray renders a Postgres text[] literal.
func textArray(parts []string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		escaped := strings.ReplaceAll(part, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		quoted[i] = `"` + escaped + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHome(row rowScanner) (home.Home, error) {
	var raw []byte
	var h home.Home
	var revision int64
	var createdAt, updatedAt time.Time
	if err := row.Scan(&raw, &revision, &createdAt, &updatedAt); err != nil {
		return home.Home{}, err
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return home.Home{}, fmt.Errorf("decode home: %w", err)
	}
	h.Normalize()
	h.Revision, h.CreatedAt, h.UpdatedAt = revision, createdAt, updatedAt
	return h, nil
}

func collectHomes(rows *sql.Rows) ([]home.Home, error) {
	defer rows.Close()
	items := make([]home.Home, 0)
	for rows.Next() {
		h, err := scanHome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan home: %w", err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate homes: %w", err)
	}
	return items, nil
}
