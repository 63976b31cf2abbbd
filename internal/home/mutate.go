package home

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTradeNotFound     = errors.New("trade not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrCheckNotFound     = errors.New("quality check not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidDependency = errors.New("invalid task dependency")
)

// DetailsUpdate carries the root attributes editable after creation.
type DetailsUpdate struct {
	Name       *string
	Address    *string
	ClientName *string
	Phases     *[]Phase
}

func (h *Home) UpdateDetails(u DetailsUpdate) []Patch {
	var patches []Patch
	if u.Name != nil {
		h.Name = strings.TrimSpace(*u.Name)
		patches = append(patches, Set(h.Name, "name"))
	}
	if u.Address != nil {
		h.Address = strings.TrimSpace(*u.Address)
		patches = append(patches, Set(h.Address, "address"))
	}
	if u.ClientName != nil {
		h.ClientName = strings.TrimSpace(*u.ClientName)
		patches = append(patches, Set(h.ClientName, "clientName"))
	}
	if u.Phases != nil {
		h.Phases = append([]Phase{}, (*u.Phases)...)
		patches = append(patches, Set(h.Phases, "phases"))
	}
	return patches
}

func (h *Home) AddTrade(t Trade) []Patch {
	t.normalize()
	h.Trades = append(h.Trades, t)
	return []Patch{Append(t, "trades")}
}

// TradeUpdate lists the editable trade fields. Nil means untouched.
type TradeUpdate struct {
	Vendor     *Vendor
	Contacts   *[]Contact
	TotalPrice *decimal.Decimal
	TotalPaid  *decimal.Decimal
	Notes      *string
}

// UpdateTrade applies u and appends one change entry per tracked field
// (totalPrice, vendor, contacts, notes) whose value actually changed.
func (h *Home) UpdateTrade(tradeID string, u TradeUpdate, actor Actor, now time.Time) (Trade, []Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return Trade{}, nil, ErrTradeNotFound
	}
	trade := &h.Trades[ti]
	changedBy := actor.Label()
	if changedBy == "" {
		changedBy = "unknown"
	}

	var patches []Patch
	var entries []ChangeEntry
	record := func(field string, oldValue, newValue any) {
		entries = append(entries, ChangeEntry{
			ID:        newID(),
			Field:     field,
			OldValue:  oldValue,
			NewValue:  newValue,
			ChangedBy: changedBy,
			ChangedAt: now,
		})
	}

	if u.TotalPrice != nil {
		if !u.TotalPrice.Equal(trade.TotalPrice) {
			record("totalPrice", trade.TotalPrice, *u.TotalPrice)
		}
		trade.TotalPrice = *u.TotalPrice
		patches = append(patches, Set(trade.TotalPrice, "trades", ti, "totalPrice"))
	}

	vendor := trade.Vendor
	if u.Vendor != nil {
		vendor = *u.Vendor
	}
	var contacts []Contact
	if u.Contacts != nil {
		contacts = NormalizeContacts(*u.Contacts)
		if primary, ok := PrimaryContact(contacts); ok {
			vendor = VendorFromContact(primary)
		}
	}
	if u.Vendor != nil || u.Contacts != nil {
		if differs(trade.Vendor, vendor) {
			record("vendor", trade.Vendor, vendor)
		}
		trade.Vendor = vendor
		patches = append(patches, Set(trade.Vendor, "trades", ti, "vendor"))
	}
	if u.Contacts != nil {
		if differs(trade.Contacts, contacts) {
			record("contacts", trade.Contacts, contacts)
		}
		trade.Contacts = contacts
		patches = append(patches, Set(trade.Contacts, "trades", ti, "contacts"))
	}

	if u.Notes != nil {
		if *u.Notes != trade.Notes {
			record("notes", trade.Notes, *u.Notes)
		}
		trade.Notes = *u.Notes
		patches = append(patches, Set(trade.Notes, "trades", ti, "notes"))
	}

	if u.TotalPaid != nil {
		trade.TotalPaid = *u.TotalPaid
		patches = append(patches, Set(trade.TotalPaid, "trades", ti, "totalPaid"))
	}

	for _, entry := range entries {
		trade.ChangeLog = append(trade.ChangeLog, entry)
		patches = append(patches, Append(entry, "trades", ti, "changeLog"))
	}
	return *trade, patches, nil
}

func (h *Home) AddTask(tradeID string, task Task) ([]Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return nil, ErrTradeNotFound
	}
	if err := h.ValidateDependencies(task.DependsOn, task.ID); err != nil {
		return nil, err
	}
	task.normalize()
	h.Trades[ti].Tasks = append(h.Trades[ti].Tasks, task)
	return []Patch{Append(task, "trades", ti, "tasks")}, nil
}

// TaskUpdate lists the editable task fields. Nil means untouched.
type TaskUpdate struct {
	Status      *TaskStatus
	Title       *string
	Description *string
	CompletedBy *string
	DueDate     *time.Time
	Assignee    *string
	DependsOn   *[]Dependency
	Checklist   *[]ChecklistItem
}

// UpdateTask keeps completedAt/completedBy set exactly while status is done.
func (h *Home) UpdateTask(tradeID, taskID string, u TaskUpdate, actor Actor, now time.Time) (Task, []Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return Task{}, nil, ErrTradeNotFound
	}
	ki := h.Trades[ti].TaskIndex(taskID)
	if ki < 0 {
		return Task{}, nil, ErrTaskNotFound
	}
	if u.DependsOn != nil {
		if err := h.ValidateDependencies(*u.DependsOn, taskID); err != nil {
			return Task{}, nil, err
		}
	}

	task := &h.Trades[ti].Tasks[ki]
	wasDone := task.Status == TaskDone
	if u.Status != nil {
		task.Status = *u.Status
	}
	if task.Status == TaskDone {
		if !wasDone || task.CompletedAt == nil {
			completedAt := now
			task.CompletedAt = &completedAt
		}
		switch {
		case u.CompletedBy != nil && strings.TrimSpace(*u.CompletedBy) != "":
			task.CompletedBy = strings.TrimSpace(*u.CompletedBy)
		case !wasDone || task.CompletedBy == "":
			task.CompletedBy = actor.Label()
		}
	} else {
		task.CompletedAt = nil
		task.CompletedBy = ""
	}
	if u.Title != nil {
		task.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.DueDate != nil {
		due := *u.DueDate
		task.DueDate = &due
	}
	if u.Assignee != nil {
		task.Assignee = *u.Assignee
	}
	if u.DependsOn != nil {
		task.DependsOn = DedupeDependencies(*u.DependsOn)
	}
	if u.Checklist != nil {
		items := make([]ChecklistItem, 0, len(*u.Checklist))
		for _, item := range *u.Checklist {
			if item.ID == "" {
				item.ID = newID()
			}
			item.Label = strings.TrimSpace(item.Label)
			items = append(items, item)
		}
		task.Checklist = items
	}
	task.normalize()
	return *task, []Patch{Set(*task, "trades", ti, "tasks", ki)}, nil
}

func (h *Home) AddQualityCheck(tradeID string, qc QualityCheck) ([]Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return nil, ErrTradeNotFound
	}
	h.Trades[ti].QualityChecks = append(h.Trades[ti].QualityChecks, qc)
	return []Patch{Append(qc, "trades", ti, "qualityChecks")}, nil
}

// SetQualityCheckAccepted keeps acceptedAt/acceptedBy set exactly while accepted.
// acceptedBy falls back to the actor's email, then full name.
func (h *Home) SetQualityCheckAccepted(tradeID, checkID string, accepted bool, acceptedBy string, actor Actor, now time.Time) (QualityCheck, []Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return QualityCheck{}, nil, ErrTradeNotFound
	}
	ci := h.Trades[ti].QualityCheckIndex(checkID)
	if ci < 0 {
		return QualityCheck{}, nil, ErrCheckNotFound
	}
	qc := &h.Trades[ti].QualityChecks[ci]
	qc.Accepted = accepted
	if accepted {
		by := strings.TrimSpace(acceptedBy)
		if by == "" {
			by = actor.Label()
		}
		acceptedAt := now
		qc.AcceptedBy = by
		qc.AcceptedAt = &acceptedAt
	} else {
		qc.AcceptedBy = ""
		qc.AcceptedAt = nil
	}
	return *qc, []Patch{Set(*qc, "trades", ti, "qualityChecks", ci)}, nil
}

func (h *Home) AddInvoice(tradeID string, inv Invoice) ([]Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return nil, ErrTradeNotFound
	}
	h.Trades[ti].Invoices = append(h.Trades[ti].Invoices, inv)
	return []Patch{Append(inv, "trades", ti, "invoices")}, nil
}

type InvoiceUpdate struct {
	Paid    *bool
	Label   *string
	Amount  *decimal.Decimal
	DueDate *time.Time
}

// UpdateInvoice keeps paidAt set exactly while paid. Re-marking a paid invoice
// as paid keeps its original paidAt.
func (h *Home) UpdateInvoice(tradeID, invoiceID string, u InvoiceUpdate, now time.Time) (Invoice, []Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return Invoice{}, nil, ErrTradeNotFound
	}
	ii := h.Trades[ti].InvoiceIndex(invoiceID)
	if ii < 0 {
		return Invoice{}, nil, ErrInvoiceNotFound
	}
	inv := &h.Trades[ti].Invoices[ii]
	if u.Paid != nil {
		if *u.Paid {
			if !inv.Paid || inv.PaidAt == nil {
				paidAt := now
				inv.PaidAt = &paidAt
			}
		} else {
			inv.PaidAt = nil
		}
		inv.Paid = *u.Paid
	}
	if u.Label != nil {
		inv.Label = strings.TrimSpace(*u.Label)
	}
	if u.Amount != nil {
		inv.Amount = *u.Amount
	}
	if u.DueDate != nil {
		due := *u.DueDate
		inv.DueDate = &due
	}
	return *inv, []Patch{Set(*inv, "trades", ti, "invoices", ii)}, nil
}

func (h *Home) AddCost(tradeID string, cost Cost) ([]Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return nil, ErrTradeNotFound
	}
	h.Trades[ti].AdditionalCosts = append(h.Trades[ti].AdditionalCosts, cost)
	return []Patch{Append(cost, "trades", ti, "additionalCosts")}, nil
}

func (h *Home) AddTradeAttachment(tradeID string, doc Document) (Document, []Patch, error) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return Document{}, nil, ErrTradeNotFound
	}
	if doc.Category == "" {
		doc.Category = CategoryOther
	}
	if doc.Version < 1 {
		doc.Version = 1
	}
	if doc.PinnedTo.Type == "" {
		doc.PinnedTo = PinnedTo{Type: PinTrade, ID: tradeID}
	}
	h.Trades[ti].Attachments = append(h.Trades[ti].Attachments, doc)
	return doc, []Patch{Append(doc, "trades", ti, "attachments")}, nil
}

func (h *Home) AddSchedule(s Schedule) []Patch {
	h.Schedules = append(h.Schedules, s)
	return []Patch{Append(s, "schedules")}
}

// AddDocument appends to the flat document list. Architecture documents
// without a version get max(version in category)+1, and a final document
// clears isFinal on every other document of its category.
func (h *Home) AddDocument(doc Document) (Document, []Patch) {
	if doc.Category == "" {
		doc.Category = CategoryOther
	}
	if doc.Category.IsArchitecture() && doc.Version < 1 {
		doc.Version = h.maxVersion(doc.Category, "") + 1
	}
	if doc.Version < 1 {
		doc.Version = 1
	}
	if doc.PinnedTo.Type == "" {
		doc.PinnedTo.Type = PinHome
	}

	var patches []Patch
	if doc.IsFinal {
		patches = h.clearFinal(doc.Category, doc.ID)
	}
	h.Documents = append(h.Documents, doc)
	patches = append(patches, Append(doc, "documents"))
	return doc, patches
}

type DocumentUpdate struct {
	Title    *string
	Category *Category
	Version  *int
	IsFinal  *bool
}

// UpdateDocument applies the same final-uniqueness rule as AddDocument,
// scoped to the document's category after the update.
func (h *Home) UpdateDocument(docID string, u DocumentUpdate) (Document, []Patch, error) {
	di := h.DocumentIndex(docID)
	if di < 0 {
		return Document{}, nil, ErrDocumentNotFound
	}
	doc := &h.Documents[di]
	if u.Title != nil {
		doc.Title = strings.TrimSpace(*u.Title)
	}
	if u.Category != nil && *u.Category != doc.Category {
		doc.Category = *u.Category
		if doc.Category.IsArchitecture() && u.Version == nil {
			doc.Version = h.maxVersion(doc.Category, doc.ID) + 1
		}
	}
	if u.Version != nil {
		doc.Version = *u.Version
	}
	if u.IsFinal != nil {
		doc.IsFinal = *u.IsFinal
	}

	var patches []Patch
	if doc.IsFinal {
		patches = h.clearFinal(doc.Category, doc.ID)
	}
	patches = append(patches, Set(h.Documents[di], "documents", di))
	return h.Documents[di], patches, nil
}

func (h *Home) DeleteDocument(docID string) (Document, []Patch, error) {
	di := h.DocumentIndex(docID)
	if di < 0 {
		return Document{}, nil, ErrDocumentNotFound
	}
	removed := h.Documents[di]
	h.Documents = append(h.Documents[:di:di], h.Documents[di+1:]...)
	return removed, []Patch{Remove("documents", di)}, nil
}

func (h *Home) maxVersion(category Category, exceptID string) int {
	highest := 0
	for _, d := range h.Documents {
		if d.Category == category && d.ID != exceptID && d.Version > highest {
			highest = d.Version
		}
	}
	return highest
}

func (h *Home) clearFinal(category Category, keepID string) []Patch {
	var patches []Patch
	for i := range h.Documents {
		d := &h.Documents[i]
		if d.Category == category && d.ID != keepID && d.IsFinal {
			d.IsFinal = false
			patches = append(patches, Set(false, "documents", i, "isFinal"))
		}
	}
	return patches
}

// SetClient mirrors a person into the client snapshot and clientName.
func (h *Home) SetClient(p PersonLite) []Patch {
	client := p
	h.Client = &client
	h.ClientName = p.FullName
	return []Patch{
		Set(h.ClientName, "clientName"),
		Set(client, "client"),
	}
}

func (h *Home) SetBuilder(p PersonLite) []Patch {
	builder := p
	h.Builder = &builder
	return []Patch{Set(builder, "builder")}
}

// AddMonitor adds p to monitors, replacing an existing entry with the same email.
func (h *Home) AddMonitor(p PersonLite) []Patch {
	for i := range h.Monitors {
		if strings.EqualFold(h.Monitors[i].Email, p.Email) {
			h.Monitors[i] = p
			return []Patch{Set(p, "monitors", i)}
		}
	}
	h.Monitors = append(h.Monitors, p)
	return []Patch{Append(p, "monitors")}
}

// ValidateDependencies checks that every dependency names an existing task
// and that a task does not depend on itself.
func (h *Home) ValidateDependencies(deps []Dependency, selfTaskID string) error {
	for _, dep := range deps {
		if dep.TradeID == "" || dep.TaskID == "" {
			return fmt.Errorf("%w: tradeId and taskId are required", ErrInvalidDependency)
		}
		if selfTaskID != "" && dep.TaskID == selfTaskID {
			return fmt.Errorf("%w: task cannot depend on itself", ErrInvalidDependency)
		}
		if _, task := h.FindTask(dep.TradeID, dep.TaskID); task == nil {
			return fmt.Errorf("%w: %s/%s does not exist", ErrInvalidDependency, dep.TradeID, dep.TaskID)
		}
	}
	return nil
}

// DedupeDependencies drops repeated (tradeId, taskId) pairs, keeping first order.
func DedupeDependencies(deps []Dependency) []Dependency {
	out := make([]Dependency, 0, len(deps))
	seen := make(map[Dependency]struct{}, len(deps))
	for _, dep := range deps {
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out
}

// differs compares two values by their serialized form.
func differs(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return true
	}
	return string(left) != string(right)
}
