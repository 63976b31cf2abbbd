package store

import (
	"context"
	"fmt"
)

const messageColumns = `id, home_id, trade_id, task_id, author_email, author_name, text, attachments, created_at`

func (s *PostgresStore) InsertMessage(ctx context.Context, m Message) (Message, error) {
	var out Message
	err := s.x.GetContext(ctx, &out, `
		INSERT INTO messages (id, home_id, trade_id, task_id, author_email, author_name, text, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+messageColumns,
		m.ID, m.HomeID, m.TradeID, m.TaskID, m.AuthorEmail, m.AuthorName, m.Text, m.Attachments)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return out, nil
}

// ListMessages returns newest first.
func (s *PostgresStore) ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE home_id = $1`
	args := []any{filter.HomeID}
	if filter.TradeID != "" {
		args = append(args, filter.TradeID)
		query += fmt.Sprintf(` AND trade_id = $%d`, len(args))
	}
	if filter.TaskID != "" {
		args = append(args, filter.TaskID)
		query += fmt.Sprintf(` AND task_id = $%d`, len(args))
	}
	if filter.Before != nil {
		args = append(args, *filter.Before)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	items := make([]Message, 0)
	if err := s.x.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return items, nil
}
