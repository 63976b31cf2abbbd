// Package home holds the project aggregate and the update protocol applied to
// it. Every mutation edits the in-memory aggregate and returns the positional
// patches a store needs to persist exactly the touched elements.
package home

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var newID = uuid.NewString

type PhaseKey string

const (
	PhasePlanning        PhaseKey = "planning"
	PhasePreconstruction PhaseKey = "preconstruction"
	PhaseExterior        PhaseKey = "exterior"
	PhaseInterior        PhaseKey = "interior"
)

// PhaseKeys is ordered.
var PhaseKeys = []PhaseKey{PhasePlanning, PhasePreconstruction, PhaseExterior, PhaseInterior}

func ValidPhase(key PhaseKey) bool {
	for _, candidate := range PhaseKeys {
		if candidate == key {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

type Category string

const (
	CategoryContract               Category = "contract"
	CategoryBid                    Category = "bid"
	CategoryInvoice                Category = "invoice"
	CategoryPicture                Category = "picture"
	CategoryPermit                 Category = "permit"
	CategoryOther                  Category = "other"
	CategoryArchitectureBase       Category = "architecture_base"
	CategoryArchitectureStructural Category = "architecture_structural"
	CategoryArchitectureFoundation Category = "architecture_foundation"
	CategoryArchitectureMEP        Category = "architecture_mep"
)

var Categories = []Category{
	CategoryContract, CategoryBid, CategoryInvoice, CategoryPicture, CategoryPermit, CategoryOther,
	CategoryArchitectureBase, CategoryArchitectureStructural, CategoryArchitectureFoundation, CategoryArchitectureMEP,
}

func (c Category) IsArchitecture() bool {
	return strings.HasPrefix(string(c), "architecture_")
}

type PinType string

const (
	PinHome  PinType = "home"
	PinTrade PinType = "trade"
	PinTask  PinType = "task"
)

// Actor is the authenticated user performing a mutation.
type Actor struct {
	Email    string
	FullName string
}

// Label is the value recorded in audit fields: email first, then name.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.FullName
}

type PersonLite struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Participant struct {
	PersonLite
	Role string `json:"role"`
}

type Phase struct {
	Key   PhaseKey `json:"key"`
	Notes string   `json:"notes"`
}

type Vendor struct {
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

type Contact struct {
	ID        string `json:"id"`
	Company   string `json:"company"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"isPrimary"`
}

type Cost struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

type QualityCheck struct {
	ID         string     `json:"id"`
	PhaseKey   PhaseKey   `json:"phaseKey"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	Accepted   bool       `json:"accepted"`
	AcceptedBy string     `json:"acceptedBy"`
	AcceptedAt *time.Time `json:"acceptedAt"`
}

type Invoice struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   *time.Time      `json:"dueDate"`
	Paid      bool            `json:"paid"`
	PaidAt    *time.Time      `json:"paidAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dependency points at a task anywhere in the aggregate.
type Dependency struct {
	TradeID string `json:"tradeId"`
	TaskID  string `json:"taskId"`
}

type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PhaseKey    PhaseKey        `json:"phaseKey"`
	Status      TaskStatus      `json:"status"`
	CompletedBy string          `json:"completedBy"`
	CompletedAt *time.Time      `json:"completedAt"`
	DueDate     *time.Time      `json:"dueDate"`
	Assignee    string          `json:"assignee"`
	DependsOn   []Dependency    `json:"dependsOn"`
	Checklist   []ChecklistItem `json:"checklist"`
	Comments    []Comment       `json:"comments"`
}

// ChangeEntry is append-only.
type ChangeEntry struct {
	ID        string    `json:"id"`
	Field     string    `json:"field"`
	OldValue  any       `json:"oldValue"`
	NewValue  any       `json:"newValue"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
}

type PinnedTo struct {
	Type PinType `json:"type"`
	ID   string  `json:"id,omitempty"`
}

type Uploader struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	S3Key      string    `json:"s3Key,omitempty"`
	FileName   string    `json:"fileName"`
	Category   Category  `json:"category"`
	Version    int       `json:"version"`
	IsFinal    bool      `json:"isFinal"`
	PinnedTo   PinnedTo  `json:"pinnedTo"`
	UploadedBy Uploader  `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Trade struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	PhaseKeys       []PhaseKey      `json:"phaseKeys"`
	Vendor          Vendor          `json:"vendor"`
	Contacts        []Contact       `json:"contacts"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	TotalPaid       decimal.Decimal `json:"totalPaid"`
	AdditionalCosts []Cost          `json:"additionalCosts"`
	QualityChecks   []QualityCheck  `json:"qualityChecks"`
	Invoices        []Invoice       `json:"invoices"`
	Tasks           []Task          `json:"tasks"`
	Notes           string          `json:"notes"`
	Attachments     []Document      `json:"attachments"`
	ChangeLog       []ChangeEntry   `json:"changeLog"`
}

type Schedule struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Location string    `json:"location"`
	BidID    string    `json:"bidId,omitempty"`
	TaskID   string    `json:"taskId,omitempty"`
}

// Home is the aggregate root. Revision and timestamps are owned by the store.
type Home struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	ClientName   string        `json:"clientName"`
	Client       *PersonLite   `json:"client,omitempty"`
	Builder      *PersonLite   `json:"builder,omitempty"`
	Monitors     []PersonLite  `json:"monitors"`
	Participants []Participant `json:"participants"`
	Phases       []Phase       `json:"phases"`
	Trades       []Trade       `json:"trades"`
	Schedules    []Schedule    `json:"schedules"`
	Documents    []Document    `json:"documents"`
	Revision     int64         `json:"revision"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// DefaultPhases is used by plain project creation.
func DefaultPhases() []Phase {
	return []Phase{
		{Key: PhasePreconstruction},
		{Key: PhaseExterior},
		{Key: PhaseInterior},
	}
}

// OnboardingPhases adds planning ahead of the default phases.
func OnboardingPhases() []Phase {
	return append([]Phase{{Key: PhasePlanning}}, DefaultPhases()...)
}

// New builds a fresh aggregate with empty collections.
func New(name, address, clientName string, phases []Phase) Home {
	if len(phases) == 0 {
		phases = DefaultPhases()
	}
	h := Home{
		ID:         newID(),
		Name:       strings.TrimSpace(name),
		Address:    strings.TrimSpace(address),
		ClientName: strings.TrimSpace(clientName),
		Phases:     phases,
	}
	h.Normalize()
	return h
}

// NewTrade returns a trade with empty nested collections.
func NewTrade(name string, phaseKeys []PhaseKey, vendor Vendor, totalPrice decimal.Decimal, notes string) Trade {
	t := Trade{
		ID:         newID(),
		Name:       strings.TrimSpace(name),
		PhaseKeys:  phaseKeys,
		Vendor:     vendor,
		TotalPrice: totalPrice,
		Notes:      notes,
	}
	t.normalize()
	return t
}

// NewTask returns a todo task. An empty phase falls back to preconstruction.
func NewTask(title, description string, phaseKey PhaseKey, dueDate *time.Time, assignee string, dependsOn []Dependency) Task {
	if phaseKey == "" {
		phaseKey = PhasePreconstruction
	}
	t := Task{
		ID:          newID(),
		Title:       strings.TrimSpace(title),
		Description: description,
		PhaseKey:    phaseKey,
		Status:      TaskTodo,
		DueDate:     dueDate,
		Assignee:    assignee,
		DependsOn:   DedupeDependencies(dependsOn),
	}
	t.normalize()
	return t
}

func NewQualityCheck(phaseKey PhaseKey, title, notes string) QualityCheck {
	return QualityCheck{
		ID:       newID(),
		PhaseKey: phaseKey,
		Title:    strings.TrimSpace(title),
		Notes:    notes,
	}
}

func NewInvoice(label string, amount decimal.Decimal, dueDate *time.Time, now time.Time) Invoice {
	return Invoice{
		ID:        newID(),
		Label:     strings.TrimSpace(label),
		Amount:    amount,
		DueDate:   dueDate,
		CreatedAt: now,
	}
}

func NewCost(label string, amount decimal.Decimal, now time.Time) Cost {
	return Cost{ID: newID(), Label: strings.TrimSpace(label), Amount: amount, CreatedAt: now}
}

func NewSchedule(title string, startsAt, endsAt time.Time, location, bidID, taskID string) Schedule {
	return Schedule{
		ID:       newID(),
		Title:    strings.TrimSpace(title),
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Location: location,
		BidID:    bidID,
		TaskID:   taskID,
	}
}

// NewDocument leaves version and pin defaults to AddDocument/AddTradeAttachment.
func NewDocument(title, rawURL, fileName string, category Category, pinned PinnedTo, uploader Uploader, now time.Time) Document {
	return Document{
		ID:         newID(),
		Title:      strings.TrimSpace(title),
		URL:        strings.TrimSpace(rawURL),
		FileName:   DeriveFileName(fileName, rawURL, title),
		Category:   category,
		PinnedTo:   pinned,
		UploadedBy: uploader,
		CreatedAt:  now,
	}
}

// Normalize replaces nil collections with empty ones so stored documents
// always carry arrays at every collection path.
func (h *Home) Normalize() {
	if h.Monitors == nil {
		h.Monitors = []PersonLite{}
	}
	if h.Participants == nil {
		h.Participants = []Participant{}
	}
	if h.Phases == nil {
		h.Phases = []Phase{}
	}
	if h.Trades == nil {
		h.Trades = []Trade{}
	}
	if h.Schedules == nil {
		h.Schedules = []Schedule{}
	}
	if h.Documents == nil {
		h.Documents = []Document{}
	}
	for i := range h.Trades {
		h.Trades[i].normalize()
	}
}

func (t *Trade) normalize() {
	if t.PhaseKeys == nil {
		t.PhaseKeys = []PhaseKey{}
	}
	if t.Contacts == nil {
		t.Contacts = []Contact{}
	}
	if t.AdditionalCosts == nil {
		t.AdditionalCosts = []Cost{}
	}
	if t.QualityChecks == nil {
		t.QualityChecks = []QualityCheck{}
	}
	if t.Invoices == nil {
		t.Invoices = []Invoice{}
	}
	if t.Tasks == nil {
		t.Tasks = []Task{}
	}
	if t.Attachments == nil {
		t.Attachments = []Document{}
	}
	if t.ChangeLog == nil {
		t.ChangeLog = []ChangeEntry{}
	}
	for i := range t.Tasks {
		t.Tasks[i].normalize()
	}
}

func (t *Task) normalize() {
	if t.DependsOn == nil {
		t.DependsOn = []Dependency{}
	}
	if t.Checklist == nil {
		t.Checklist = []ChecklistItem{}
	}
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
}

func (h *Home) TradeIndex(tradeID string) int {
	for i := range h.Trades {
		if h.Trades[i].ID == tradeID {
			return i
		}
	}
	return -1
}

func (h *Home) DocumentIndex(docID string) int {
	for i := range h.Documents {
		if h.Documents[i].ID == docID {
			return i
		}
	}
	return -1
}

func (t *Trade) TaskIndex(taskID string) int {
	for i := range t.Tasks {
		if t.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (t *Trade) QualityCheckIndex(checkID string) int {
	for i := range t.QualityChecks {
		if t.QualityChecks[i].ID == checkID {
			return i
		}
	}
	return -1
}

func (t *Trade) InvoiceIndex(invoiceID string) int {
	for i := range t.Invoices {
		if t.Invoices[i].ID == invoiceID {
			return i
		}
	}
	return -1
}

// FindTask locates a task anywhere in the aggregate.
func (h *Home) FindTask(tradeID, taskID string) (*Trade, *Task) {
	ti := h.TradeIndex(tradeID)
	if ti < 0 {
		return nil, nil
	}
	trade := &h.Trades[ti]
	ki := trade.TaskIndex(taskID)
	if ki < 0 {
		return trade, nil
	}
	return trade, &trade.Tasks[ki]
}

// HasParticipant reports whether email is the client, builder, a monitor or a participant.
func (h *Home) HasParticipant(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if h.Client != nil && strings.EqualFold(h.Client.Email, email) {
		return true
	}
	if h.Builder != nil && strings.EqualFold(h.Builder.Email, email) {
		return true
	}
	for _, m := range h.Monitors {
		if strings.EqualFold(m.Email, email) {
			return true
		}
	}
	for _, p := range h.Participants {
		if strings.EqualFold(p.Email, email) {
			return true
		}
	}
	return false
}
