package search

import (
	"context"

	"github.com/rs/zerolog/log"

	"buildwise/api/internal/home"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Warn().Err(err).Msg("search: meilisearch error, falling back to pgfts")
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		log.Error().Err(err).Msg("search: pgfts error")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexHome indexes a home and its documents (fire-and-forget to Meilisearch).
func (s *Service) IndexHome(h home.Home) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	rec, docs := RecordsFor(h)
	go func() {
		if err := s.meili.IndexHome(rec, docs); err != nil {
			log.Warn().Err(err).Str("home_id", rec.ID).Msg("search: index home")
		}
	}()
}

// DeleteDocument removes a document from the search index (fire-and-forget).
func (s *Service) DeleteDocument(id string) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteDocument(id); err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("search: delete document")
		}
	}()
}

// ReindexAllFromPG pushes every home and document from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) error {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return nil
	}
	homes, docs, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		return err
	}
	if err := s.meili.IndexAll(homes, docs); err != nil {
		return err
	}
	log.Info().Int("homes", len(homes)).Int("documents", len(docs)).Msg("search: reindexed")
	return nil
}

// Close stops the Meilisearch health loop.
func (s *Service) Close() {
	if s != nil && s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
