package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateTemplate(ctx context.Context, t Template) (Template, error) {
	var out Template
	err := s.x.GetContext(ctx, &out, `
		INSERT INTO templates (id, name, description, trades, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, trades, created_by, created_at
	`, t.ID, t.Name, t.Description, t.Trades, t.CreatedBy)
	if err != nil {
		return Template{}, fmt.Errorf("insert template: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	var t Template
	err := s.x.GetContext(ctx, &t, `
		SELECT id, name, description, trades, created_by, created_at FROM templates WHERE id = $1
	`, id)
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]Template, error) {
	items := make([]Template, 0)
	err := s.x.SelectContext(ctx, &items, `
		SELECT id, name, description, trades, created_by, created_at FROM templates ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return items, nil
}
