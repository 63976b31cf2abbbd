package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertAILog(ctx context.Context, entry AILog) error {
	_, err := s.x.NamedExecContext(ctx, `
		INSERT INTO ai_logs (id, user_email, mode, prompt, urls, model, response_text, usage)
		VALUES (:id, :user_email, :mode, :prompt, :urls, :model, :response_text, :usage)
	`, entry)
	if err != nil {
		return fmt.Errorf("insert ai log: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeAILogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge ai logs: %w", err)
	}
	return res.RowsAffected()
}
