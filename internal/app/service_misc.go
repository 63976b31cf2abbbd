package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildwise/api/internal/export"
	"buildwise/api/internal/home"
	"buildwise/api/internal/search"
	"buildwise/api/internal/store"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

func (s *Service) ListPeople(ctx context.Context, role, query string) ([]UserView, error) {
	persons, err := s.store.ListPersons(ctx, store.PersonFilter{
		Role:  strings.TrimSpace(role),
		Query: query,
		Limit: 200,
	})
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(persons))
	for _, p := range persons {
		out = append(out, userView(p))
	}
	return out, nil
}

// TemplateView is a stored template or a built-in blueprint.
type TemplateView struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Trades      []home.BlueprintTrade `json:"trades"`
	Builtin     bool                  `json:"builtin"`
	CreatedBy   string                `json:"createdBy,omitempty"`
	CreatedAt   *time.Time            `json:"createdAt,omitempty"`
}

func builtinView(bp home.Blueprint) TemplateView {
	trades := bp.Trades
	if trades == nil {
		trades = []home.BlueprintTrade{}
	}
	return TemplateView{ID: bp.ID, Name: bp.Name, Description: bp.Description, Trades: trades, Builtin: true}
}

func storedView(t store.Template) TemplateView {
	trades := t.Trades.V
	if trades == nil {
		trades = []home.BlueprintTrade{}
	}
	createdAt := t.CreatedAt
	return TemplateView{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Trades:      trades,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   &createdAt,
	}
}

// ListTemplates returns built-in blueprints first, then stored templates newest first.
func (s *Service) ListTemplates(ctx context.Context) ([]TemplateView, error) {
	stored, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	builtins := home.BuiltinBlueprints()
	out := make([]TemplateView, 0, len(builtins)+len(stored))
	for _, bp := range builtins {
		out = append(out, builtinView(bp))
	}
	for _, t := range stored {
		out = append(out, storedView(t))
	}
	return out, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (TemplateView, error) {
	if bp, ok := home.BuiltinBlueprint(id); ok {
		return builtinView(bp), nil
	}
	if !validID(id) {
		return TemplateView{}, notFound("TEMPLATE_NOT_FOUND", "Template not found")
	}
	t, err := s.store.GetTemplate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return TemplateView{}, notFound("TEMPLATE_NOT_FOUND", "Template not found")
	}
	if err != nil {
		return TemplateView{}, err
	}
	return storedView(t), nil
}

type TemplateInput struct {
	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description"`
	Trades      []home.BlueprintTrade `json:"trades" validate:"required,min=1"`
}

func (s *Service) CreateTemplate(ctx context.Context, input TemplateInput, actor home.Actor) (TemplateView, error) {
	if err := validateInput(input); err != nil {
		return TemplateView{}, err
	}
	bp := home.Blueprint{Name: input.Name, Description: input.Description, Trades: input.Trades}
	if err := bp.Validate(); err != nil {
		return TemplateView{}, invalid(err.Error(), nil)
	}
	created, err := s.store.CreateTemplate(ctx, store.Template{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Trades:      store.NewJSONB(input.Trades),
		CreatedBy:   actor.Label(),
	})
	if err != nil {
		return TemplateView{}, err
	}
	return storedView(created), nil
}

type MessageQuery struct {
	TradeID string
	TaskID  string
	Limit   int
	// Before is an RFC 3339 timestamp; only older messages are returned.
	Before string
}

func (s *Service) ListMessages(ctx context.Context, homeID string, q MessageQuery) ([]store.Message, error) {
	if _, err := s.GetHome(ctx, homeID); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	filter := store.MessageFilter{HomeID: homeID, TradeID: q.TradeID, TaskID: q.TaskID, Limit: limit}
	if q.Before != "" {
		before, err := time.Parse(time.RFC3339, q.Before)
		if err != nil {
			return nil, invalid("Validation failed", []FieldError{{Field: "before", Tag: "datetime", Message: "must be an RFC 3339 timestamp"}})
		}
		filter.Before = &before
	}
	return s.store.ListMessages(ctx, filter)
}

type MessageInput struct {
	Text        string                    `json:"text" validate:"required"`
	TradeID     string                    `json:"tradeId"`
	TaskID      string                    `json:"taskId"`
	Attachments []store.MessageAttachment `json:"attachments" validate:"omitempty,dive"`
}

func (s *Service) PostMessage(ctx context.Context, homeID string, input MessageInput, actor home.Actor) (store.Message, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := validateInput(input); err != nil {
		return store.Message{}, err
	}
	if _, err := s.GetHome(ctx, homeID); err != nil {
		return store.Message{}, err
	}
	attachments := input.Attachments
	if attachments == nil {
		attachments = []store.MessageAttachment{}
	}
	return s.store.InsertMessage(ctx, store.Message{
		ID:          uuid.NewString(),
		HomeID:      homeID,
		TradeID:     strings.TrimSpace(input.TradeID),
		TaskID:      strings.TrimSpace(input.TaskID),
		AuthorEmail: actor.Email,
		AuthorName:  actor.FullName,
		Text:        input.Text,
		Attachments: store.NewJSONB(attachments),
	})
}

func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
	}
	return s.search.Search(ctx, q), nil
}

// Report renders the budget and progress summary of one home.
func (s *Service) Report(ctx context.Context, homeID string, format export.Format) (*export.Result, error) {
	h, err := s.GetHome(ctx, homeID)
	if err != nil {
		return nil, err
	}
	if s.exports == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Report export not configured", nil)
	}
	return s.exports.Export(ctx, h, format)
}
