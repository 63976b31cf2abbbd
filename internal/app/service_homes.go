package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"buildwise/api/internal/home"
	"buildwise/api/internal/store"
)

const (
	ProjectTypeNewHome = "new_home"
	ProjectTypePool    = "pool"
)

type CreateHomeInput struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	ClientName string `json:"clientName"`
	// WithTemplates defaults to true.
	WithTemplates *bool  `json:"withTemplates"`
	TemplateID    string `json:"templateId"`
	// TemplateVersionID is the older name for TemplateID.
	TemplateVersionID string `json:"templateVersionId"`
	ProjectType       string `json:"projectType" validate:"omitempty,oneof=new_home pool"`
}

type PhaseInput struct {
	Key   home.PhaseKey `json:"key" validate:"required,phase"`
	Notes string        `json:"notes"`
}

type UpdateHomeInput struct {
	Name       *string       `json:"name" validate:"omitempty,min=1"`
	Address    *string       `json:"address"`
	ClientName *string       `json:"clientName"`
	Phases     *[]PhaseInput `json:"phases" validate:"omitempty,dive"`
}

type TradeInput struct {
	Name       string           `json:"name" validate:"required"`
	Category   string           `json:"category"`
	PhaseKeys  []home.PhaseKey  `json:"phaseKeys" validate:"required,min=1,dive,phase"`
	Vendor     *home.Vendor     `json:"vendor"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
	Notes      string           `json:"notes"`
}

type ContactInput struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	FullName  string `json:"fullName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"isPrimary"`
}

type TradeUpdateInput struct {
	Vendor     *home.Vendor     `json:"vendor"`
	Contacts   *[]ContactInput  `json:"contacts" validate:"omitempty,dive"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
	TotalPaid  *decimal.Decimal `json:"totalPaid"`
	Notes      *string          `json:"notes"`
}

type TaskInput struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	PhaseKey    home.PhaseKey     `json:"phaseKey" validate:"omitempty,phase"`
	DueDate     *time.Time        `json:"dueDate"`
	Assignee    string            `json:"assignee"`
	DependsOn   []home.Dependency `json:"dependsOn"`
}

type TaskUpdateInput struct {
	Status      *home.TaskStatus      `json:"status" validate:"omitempty,taskstatus"`
	Title       *string               `json:"title" validate:"omitempty,min=1"`
	Description *string               `json:"description"`
	CompletedBy *string               `json:"completedBy"`
	DueDate     *time.Time            `json:"dueDate"`
	Assignee    *string               `json:"assignee"`
	DependsOn   *[]home.Dependency    `json:"dependsOn"`
	Checklist   *[]home.ChecklistItem `json:"checklist"`
}

type QualityCheckInput struct {
	PhaseKey home.PhaseKey `json:"phaseKey" validate:"required,phase"`
	Title    string        `json:"title" validate:"required"`
	Notes    string        `json:"notes"`
}

type QualityCheckUpdateInput struct {
	Accepted   *bool  `json:"accepted" validate:"required"`
	AcceptedBy string `json:"acceptedBy"`
}

type InvoiceInput struct {
	Label   string           `json:"label" validate:"required"`
	Amount  *decimal.Decimal `json:"amount" validate:"required"`
	DueDate *time.Time       `json:"dueDate"`
}

type InvoiceUpdateInput struct {
	Paid    *bool            `json:"paid"`
	Label   *string          `json:"label" validate:"omitempty,min=1"`
	Amount  *decimal.Decimal `json:"amount"`
	DueDate *time.Time       `json:"dueDate"`
}

type CostInput struct {
	Label  string           `json:"label" validate:"required"`
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type PinnedToInput struct {
	Type home.PinType `json:"type" validate:"omitempty,oneof=home trade task"`
	ID   string       `json:"id"`
}

type DocumentInput struct {
	Title    string         `json:"title" validate:"required"`
	URL      string         `json:"url" validate:"required,url"`
	S3Key    string         `json:"s3Key"`
	FileName string         `json:"fileName"`
	Category home.Category  `json:"category" validate:"omitempty,category"`
	Version  *int           `json:"version" validate:"omitempty,gte=1"`
	IsFinal  bool           `json:"isFinal"`
	PinnedTo *PinnedToInput `json:"pinnedTo"`
}

type DocumentUpdateInput struct {
	Title    *string        `json:"title" validate:"omitempty,min=1"`
	Category *home.Category `json:"category" validate:"omitempty,category"`
	Version  *int           `json:"version" validate:"omitempty,gte=1"`
	IsFinal  *bool          `json:"isFinal"`
}

type ScheduleInput struct {
	Title    string     `json:"title" validate:"required"`
	StartsAt *time.Time `json:"startsAt" validate:"required"`
	EndsAt   *time.Time `json:"endsAt" validate:"required"`
	Location string     `json:"location"`
	BidID    string     `json:"bidId"`
	TaskID   string     `json:"taskId"`
}

type AssignPersonInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// CreateHome builds a home with the default phases, seeds its trades from a
// blueprint and attaches the permit documents of the address's zip code.
func (s *Service) CreateHome(ctx context.Context, input CreateHomeInput, actor home.Actor) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	h := home.New(input.Name, input.Address, input.ClientName, home.DefaultPhases())
	if input.WithTemplates == nil || *input.WithTemplates {
		templateID := input.TemplateID
		if templateID == "" {
			templateID = input.TemplateVersionID
		}
		h.Trades = s.buildTrades(ctx, templateID)
	}
	for _, doc := range s.permitDocuments(ctx, h.Address, input.ProjectType, actor) {
		h.AddDocument(doc)
	}

	created, err := s.store.CreateHome(ctx, h)
	if err != nil {
		return home.Home{}, err
	}
	s.reindex(created)
	return created, nil
}

// buildTrades prefers a stored template, then a built-in blueprint with the
// same id, then the default blueprint.
func (s *Service) buildTrades(ctx context.Context, templateID string) []home.Trade {
	templateID = strings.TrimSpace(templateID)
	if templateID != "" {
		if validID(templateID) {
			tpl, err := s.store.GetTemplate(ctx, templateID)
			if err == nil && len(tpl.Trades.V) > 0 {
				return home.BuildTrades(tpl.Trades.V)
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				log.Warn().Err(err).Str("template_id", templateID).Msg("template lookup failed")
			}
		}
		if bp, ok := home.BuiltinBlueprint(templateID); ok && len(bp.Trades) > 0 {
			return home.BuildTrades(bp.Trades)
		}
	}
	bp, ok := home.BuiltinBlueprint(home.DefaultBlueprintID)
	if !ok {
		return []home.Trade{}
	}
	return home.BuildTrades(bp.Trades)
}

// permitDocuments is best effort: any lookup failure yields no documents.
func (s *Service) permitDocuments(ctx context.Context, address, projectType string, actor home.Actor) []home.Document {
	zip := home.ExtractZip(address)
	if zip == "" {
		return nil
	}
	if projectType == "" {
		projectType = ProjectTypeNewHome
	}
	set, err := s.store.FindPermitSet(ctx, zip, projectType)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Debug().Err(err).Str("zip", zip).Msg("permit lookup skipped")
		}
		return nil
	}
	now := s.now().UTC()
	uploader := home.Uploader{Email: actor.Email, FullName: actor.FullName}
	docs := make([]home.Document, 0, len(set.Documents.V))
	for _, pd := range set.Documents.V {
		docs = append(docs, home.NewDocument(pd.Title, pd.URL, pd.FileName, home.CategoryPermit, home.PinnedTo{Type: home.PinHome}, uploader, now))
	}
	return docs
}

func (s *Service) UpdateHome(ctx context.Context, homeID string, input UpdateHomeInput) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	update := home.DetailsUpdate{Name: input.Name, Address: input.Address, ClientName: input.ClientName}
	if input.Phases != nil {
		phases := make([]home.Phase, 0, len(*input.Phases))
		for _, p := range *input.Phases {
			phases = append(phases, home.Phase{Key: p.Key, Notes: p.Notes})
		}
		update.Phases = &phases
	}
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.UpdateDetails(update), nil
	})
}

func (s *Service) AddTrade(ctx context.Context, homeID string, input TradeInput) (home.Home, home.Trade, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Trade{}, err
	}
	if err := nonNegative("totalPrice", input.TotalPrice); err != nil {
		return home.Home{}, home.Trade{}, err
	}
	price := decimal.Zero
	if input.TotalPrice != nil {
		price = *input.TotalPrice
	}
	var vendor home.Vendor
	if input.Vendor != nil {
		vendor = *input.Vendor
	}
	trade := home.NewTrade(input.Name, input.PhaseKeys, vendor, price, input.Notes)
	trade.Category = strings.TrimSpace(input.Category)

	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddTrade(trade), nil
	})
	return updated, trade, err
}

func (s *Service) UpdateTrade(ctx context.Context, homeID, tradeID string, input TradeUpdateInput, actor home.Actor) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	if err := nonNegative("totalPrice", input.TotalPrice); err != nil {
		return home.Home{}, err
	}
	if err := nonNegative("totalPaid", input.TotalPaid); err != nil {
		return home.Home{}, err
	}
	update := home.TradeUpdate{
		Vendor:     input.Vendor,
		TotalPrice: input.TotalPrice,
		TotalPaid:  input.TotalPaid,
		Notes:      input.Notes,
	}
	if input.Contacts != nil {
		contacts := make([]home.Contact, 0, len(*input.Contacts))
		for _, c := range *input.Contacts {
			contacts = append(contacts, home.Contact{
				ID:        c.ID,
				Company:   c.Company,
				FullName:  c.FullName,
				Email:     c.Email,
				Phone:     c.Phone,
				IsPrimary: c.IsPrimary,
			})
		}
		update.Contacts = &contacts
	}
	now := s.now().UTC()
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		_, patches, err := h.UpdateTrade(tradeID, update, actor, now)
		return patches, err
	})
}

func (s *Service) AddTask(ctx context.Context, homeID, tradeID string, input TaskInput) (home.Home, home.Task, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Task{}, err
	}
	task := home.NewTask(input.Title, input.Description, input.PhaseKey, input.DueDate, input.Assignee, input.DependsOn)
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddTask(tradeID, task)
	})
	return updated, task, err
}

func (s *Service) UpdateTask(ctx context.Context, homeID, tradeID, taskID string, input TaskUpdateInput, actor home.Actor) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	update := home.TaskUpdate{
		Status:      input.Status,
		Title:       input.Title,
		Description: input.Description,
		CompletedBy: input.CompletedBy,
		DueDate:     input.DueDate,
		Assignee:    input.Assignee,
		DependsOn:   input.DependsOn,
		Checklist:   input.Checklist,
	}
	now := s.now().UTC()
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		_, patches, err := h.UpdateTask(tradeID, taskID, update, actor, now)
		return patches, err
	})
}

func (s *Service) AddQualityCheck(ctx context.Context, homeID, tradeID string, input QualityCheckInput) (home.Home, home.QualityCheck, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.QualityCheck{}, err
	}
	qc := home.NewQualityCheck(input.PhaseKey, input.Title, input.Notes)
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddQualityCheck(tradeID, qc)
	})
	return updated, qc, err
}

func (s *Service) UpdateQualityCheck(ctx context.Context, homeID, tradeID, checkID string, input QualityCheckUpdateInput, actor home.Actor) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	now := s.now().UTC()
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		_, patches, err := h.SetQualityCheckAccepted(tradeID, checkID, *input.Accepted, input.AcceptedBy, actor, now)
		return patches, err
	})
}

func (s *Service) AddInvoice(ctx context.Context, homeID, tradeID string, input InvoiceInput) (home.Home, home.Invoice, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Invoice{}, err
	}
	if err := nonNegative("amount", input.Amount); err != nil {
		return home.Home{}, home.Invoice{}, err
	}
	inv := home.NewInvoice(input.Label, *input.Amount, input.DueDate, s.now().UTC())
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddInvoice(tradeID, inv)
	})
	return updated, inv, err
}

func (s *Service) UpdateInvoice(ctx context.Context, homeID, tradeID, invoiceID string, input InvoiceUpdateInput) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	if err := nonNegative("amount", input.Amount); err != nil {
		return home.Home{}, err
	}
	update := home.InvoiceUpdate{Paid: input.Paid, Label: input.Label, Amount: input.Amount, DueDate: input.DueDate}
	now := s.now().UTC()
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		_, patches, err := h.UpdateInvoice(tradeID, invoiceID, update, now)
		return patches, err
	})
}

func (s *Service) AddCost(ctx context.Context, homeID, tradeID string, input CostInput) (home.Home, home.Cost, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Cost{}, err
	}
	if err := nonNegative("amount", input.Amount); err != nil {
		return home.Home{}, home.Cost{}, err
	}
	cost := home.NewCost(input.Label, *input.Amount, s.now().UTC())
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddCost(tradeID, cost)
	})
	return updated, cost, err
}

func (s *Service) newDocument(input DocumentInput, actor home.Actor) home.Document {
	doc := home.NewDocument(input.Title, input.URL, input.FileName, input.Category, home.PinnedTo{},
		home.Uploader{Email: actor.Email, FullName: actor.FullName}, s.now().UTC())
	doc.S3Key = strings.TrimSpace(input.S3Key)
	doc.IsFinal = input.IsFinal
	if input.Version != nil {
		doc.Version = *input.Version
	}
	if input.PinnedTo != nil {
		doc.PinnedTo = home.PinnedTo{Type: input.PinnedTo.Type, ID: strings.TrimSpace(input.PinnedTo.ID)}
	}
	return doc
}

func (s *Service) AddTradeAttachment(ctx context.Context, homeID, tradeID string, input DocumentInput, actor home.Actor) (home.Home, home.Document, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Document{}, err
	}
	doc := s.newDocument(input, actor)
	var added home.Document
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		var patches []home.Patch
		var err error
		added, patches, err = h.AddTradeAttachment(tradeID, doc)
		return patches, err
	})
	return updated, added, err
}

func (s *Service) AddDocument(ctx context.Context, homeID string, input DocumentInput, actor home.Actor) (home.Home, home.Document, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Document{}, err
	}
	doc := s.newDocument(input, actor)
	var added home.Document
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		var patches []home.Patch
		added, patches = h.AddDocument(doc)
		return patches, nil
	})
	return updated, added, err
}

func (s *Service) UpdateDocument(ctx context.Context, homeID, docID string, input DocumentUpdateInput) (home.Home, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, err
	}
	update := home.DocumentUpdate{Title: input.Title, Category: input.Category, Version: input.Version, IsFinal: input.IsFinal}
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		_, patches, err := h.UpdateDocument(docID, update)
		return patches, err
	})
}

// DeleteDocument removes the document and, best effort, its stored object.
func (s *Service) DeleteDocument(ctx context.Context, homeID, docID string) (home.Home, error) {
	var removed home.Document
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		var patches []home.Patch
		var err error
		removed, patches, err = h.DeleteDocument(docID)
		return patches, err
	})
	if err != nil {
		return home.Home{}, err
	}
	if removed.S3Key != "" && s.files != nil {
		if err := s.files.Delete(ctx, removed.S3Key); err != nil {
			log.Warn().Err(err).Str("key", removed.S3Key).Msg("document object cleanup failed")
		}
	}
	if s.search != nil {
		s.search.DeleteDocument(removed.ID)
	}
	return updated, nil
}

func (s *Service) AddSchedule(ctx context.Context, homeID string, input ScheduleInput) (home.Home, home.Schedule, error) {
	if err := validateInput(input); err != nil {
		return home.Home{}, home.Schedule{}, err
	}
	if input.EndsAt.Before(*input.StartsAt) {
		return home.Home{}, home.Schedule{}, invalid("Validation failed", []FieldError{{Field: "endsAt", Tag: "gtefield", Message: "must not be before startsAt"}})
	}
	schedule := home.NewSchedule(input.Title, input.StartsAt.UTC(), input.EndsAt.UTC(), input.Location, input.BidID, input.TaskID)
	updated, err := s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddSchedule(schedule), nil
	})
	return updated, schedule, err
}

// AssignClient grants the client role (dropping monitor) and mirrors the person into the home.
func (s *Service) AssignClient(ctx context.Context, homeID string, input AssignPersonInput) (home.Home, error) {
	person, err := s.assignPerson(ctx, input, store.RoleClient, store.RoleMonitor)
	if err != nil {
		return home.Home{}, err
	}
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.SetClient(person), nil
	})
}

func (s *Service) AddMonitor(ctx context.Context, homeID string, input AssignPersonInput) (home.Home, error) {
	person, err := s.assignPerson(ctx, input, store.RoleMonitor, "")
	if err != nil {
		return home.Home{}, err
	}
	return s.mutate(ctx, homeID, func(h *home.Home) ([]home.Patch, error) {
		return h.AddMonitor(person), nil
	})
}

func (s *Service) assignPerson(ctx context.Context, input AssignPersonInput, addRole, dropRole string) (home.PersonLite, error) {
	if err := validateInput(input); err != nil {
		return home.PersonLite{}, err
	}
	person, err := s.store.UpsertPersonRole(ctx, store.PersonInput{
		Email:    input.Email,
		FullName: input.FullName,
		Phone:    input.Phone,
	}, addRole, dropRole)
	if err != nil {
		return home.PersonLite{}, err
	}
	return personLite(person), nil
}

func personLite(p store.Person) home.PersonLite {
	name := p.FullName
	if strings.TrimSpace(name) == "" {
		name = p.Email
	}
	return home.PersonLite{FullName: name, Email: p.Email, Phone: p.Phone}
}
