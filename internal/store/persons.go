package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const personColumns = `email, full_name, phone, password_hash, roles, email_confirmed,
	email_confirm_token, email_confirm_expires, agreed_to_terms_at, agreed_to_terms_version,
	created_at, updated_at`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *PostgresStore) GetPerson(ctx context.Context, email string) (Person, error) {
	var p Person
	err := s.x.GetContext(ctx, &p, `SELECT `+personColumns+` FROM persons WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, filter PersonFilter) ([]Person, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	query := `SELECT ` + personColumns + ` FROM persons WHERE 1=1`
	args := []any{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(` AND roles ? $%d`, len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		query += fmt.Sprintf(` AND (email ILIKE $%d OR full_name ILIKE $%d)`, len(args), len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY full_name, email LIMIT $%d`, len(args))

	items := make([]Person, 0)
	if err := s.x.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return items, nil
}

// UpsertPersonRole creates the person if needed, adds addRole to the role set
// and removes dropRole. Non-empty name and phone overwrite stored values; a
// person without any name is named by their email.
func (s *PostgresStore) UpsertPersonRole(ctx context.Context, in PersonInput, addRole, dropRole string) (Person, error) {
	var p Person
	err := s.x.GetContext(ctx, &p, `
		INSERT INTO persons (email, full_name, phone, roles)
		VALUES ($1, COALESCE(NULLIF($2, ''), $1), $3, jsonb_build_array($4::text))
		ON CONFLICT (email) DO UPDATE SET
			full_name = COALESCE(NULLIF($2, ''), NULLIF(persons.full_name, ''), persons.email),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), persons.phone),
			roles = (CASE WHEN persons.roles ? $4 THEN persons.roles ELSE persons.roles || jsonb_build_array($4::text) END) - $5::text,
			updated_at = NOW()
		RETURNING `+personColumns,
		normalizeEmail(in.Email), strings.TrimSpace(in.FullName), strings.TrimSpace(in.Phone), addRole, dropRole)
	if err != nil {
		return Person{}, fmt.Errorf("upsert person: %w", err)
	}
	return p, nil
}

// SetPassword completes registration for an existing person.
func (s *PostgresStore) SetPassword(ctx context.Context, email, passwordHash, fullName, phone string) (Person, error) {
	var p Person
	err := s.x.GetContext(ctx, &p, `
		UPDATE persons SET
			password_hash = $2,
			full_name = COALESCE(NULLIF($3, ''), full_name),
			phone = COALESCE(NULLIF($4, ''), phone),
			updated_at = NOW()
		WHERE email = $1
		RETURNING `+personColumns,
		normalizeEmail(email), passwordHash, strings.TrimSpace(fullName), strings.TrimSpace(phone))
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

// SaveMarketingSignup stores a self-registered builder with a pending email confirmation.
func (s *PostgresStore) SaveMarketingSignup(ctx context.Context, in MarketingSignup) (Person, error) {
	var p Person
	err := s.x.GetContext(ctx, &p, `
		INSERT INTO persons (email, full_name, phone, password_hash, roles, email_confirmed,
			email_confirm_token, email_confirm_expires, agreed_to_terms_at, agreed_to_terms_version)
		VALUES ($1, $2, $3, $4, jsonb_build_array('builder'), FALSE, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), persons.full_name),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), persons.phone),
			password_hash = EXCLUDED.password_hash,
			roles = CASE WHEN persons.roles ? 'builder' THEN persons.roles ELSE persons.roles || jsonb_build_array('builder') END,
			email_confirmed = FALSE,
			email_confirm_token = EXCLUDED.email_confirm_token,
			email_confirm_expires = EXCLUDED.email_confirm_expires,
			agreed_to_terms_at = EXCLUDED.agreed_to_terms_at,
			agreed_to_terms_version = EXCLUDED.agreed_to_terms_version,
			updated_at = NOW()
		RETURNING `+personColumns,
		normalizeEmail(in.Email), strings.TrimSpace(in.FullName), strings.TrimSpace(in.Phone), in.PasswordHash,
		in.ConfirmToken, in.ConfirmExpiry, in.AgreedAt, in.TermsVersion)
	if err != nil {
		return Person{}, fmt.Errorf("save marketing signup: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ConfirmEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET email_confirmed = TRUE, email_confirm_token = NULL, email_confirm_expires = NULL, updated_at = NOW()
		WHERE email = $1
	`, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// PurgeExpiredConfirmTokens clears confirmation tokens that expired before now.
func (s *PostgresStore) PurgeExpiredConfirmTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET email_confirm_token = NULL, email_confirm_expires = NULL
		WHERE email_confirm_token IS NOT NULL AND email_confirm_expires < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("purge confirm tokens: %w", err)
	}
	return res.RowsAffected()
}
