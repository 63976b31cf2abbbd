package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"buildwise/api/internal/home"
)

// PgFTS implements search using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const (
	homeSubquery = `
			SELECT 'home'::text AS type, h.id::text AS id, coalesce(h.doc->>'name', '') AS title,
				ts_headline('english', coalesce(h.doc->>'address', ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
				h.id::text AS home_id, ''::text AS category, ''::text AS url,
				ts_rank(h.fts, plainto_tsquery('english', $1)) AS rank
			FROM homes h
			WHERE h.fts @@ plainto_tsquery('english', $1)`
	documentSubquery = `
			SELECT 'document'::text AS type, d->>'id' AS id, coalesce(d->>'title', '') AS title,
				coalesce(h.doc->>'name', '') AS snippet,
				h.id::text AS home_id, coalesce(d->>'category', '') AS category, coalesce(d->>'url', '') AS url,
				ts_rank(to_tsvector('english', coalesce(d->>'title', '') || ' ' || coalesce(d->>'fileName', '')), plainto_tsquery('english', $1)) AS rank
			FROM homes h
			CROSS JOIN LATERAL jsonb_array_elements(h.doc->'documents') AS d
			WHERE to_tsvector('english', coalesce(d->>'title', '') || ' ' || coalesce(d->>'fileName', '')) @@ plainto_tsquery('english', $1)`
)

// Search runs a UNION ALL over home text and document titles ranked by ts_rank.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultHome {
		subQueries = append(subQueries, homeSubquery)
	}
	if q.FilterType == "" || q.FilterType == ResultDocument {
		subQueries = append(subQueries, documentSubquery)
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}
	union := strings.Join(subQueries, " UNION ALL ")

	var total int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM (%s) sub", union), q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT type, id, title, snippet, home_id, category, url
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset), q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.HomeID, &r.Category, &r.URL); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every home and document for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]HomeRecord, []DocumentRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM homes`)
	if err != nil {
		return nil, nil, fmt.Errorf("load homes: %w", err)
	}
	defer rows.Close()

	homes := make([]HomeRecord, 0)
	docs := make([]DocumentRecord, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, nil, fmt.Errorf("scan home: %w", err)
		}
		var h home.Home
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, nil, fmt.Errorf("decode home: %w", err)
		}
		rec, homeDocs := RecordsFor(h)
		homes = append(homes, rec)
		docs = append(docs, homeDocs...)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate homes: %w", err)
	}
	return homes, docs, nil
}
