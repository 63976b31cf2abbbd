package home

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// requirePatchesMatch replays patches against before and checks the result
// equals the mutated aggregate, so stores applying only the patches end up
// with exactly the same document.
func requirePatchesMatch(t *testing.T, before []byte, after Home, patches []Patch) {
	t.Helper()
	got, err := ApplyPatches(before, patches)
	require.NoError(t, err)
	want, err := json.Marshal(after)
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
}

func snapshot(t *testing.T, h Home) []byte {
	t.Helper()
	raw, err := json.Marshal(h)
	require.NoError(t, err)
	return raw
}

func seededHome(t *testing.T) Home {
	t.Helper()
	bp, ok := BuiltinBlueprint(DefaultBlueprintID)
	require.True(t, ok)
	h := New("Smith Home", "12 Elm St, Dallas TX 75201", "Pat Smith", nil)
	h.Trades = BuildTrades(bp.Trades)
	h.Normalize()
	return h
}

func TestSmithHomeScenario(t *testing.T) {
	h := seededHome(t)

	trade := NewTrade("Electrical", []PhaseKey{PhaseExterior}, Vendor{}, decimal.Zero, "")
	before := snapshot(t, h)
	patches := h.AddTrade(trade)
	requirePatchesMatch(t, before, h, patches)

	task := NewTask("Rough-in", "", "", nil, "", nil)
	before = snapshot(t, h)
	patches, err := h.AddTask(trade.ID, task)
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)

	done := TaskDone
	by := "alice@example.com"
	before = snapshot(t, h)
	updated, patches, err := h.UpdateTask(trade.ID, task.ID, TaskUpdate{Status: &done, CompletedBy: &by}, Actor{Email: "bob@example.com"}, testNow)
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)

	assert.Equal(t, PhasePreconstruction, updated.PhaseKey)
	assert.Equal(t, TaskDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "alice@example.com", updated.CompletedBy)
}

func TestUpdateTaskCompletionInvariant(t *testing.T) {
	h := seededHome(t)
	trade := h.Trades[0]
	task := trade.Tasks[0]
	actor := Actor{Email: "builder@example.com", FullName: "Builder"}

	done := TaskDone
	got, _, err := h.UpdateTask(trade.ID, task.ID, TaskUpdate{Status: &done}, actor, testNow)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "builder@example.com", got.CompletedBy)

	// staying done keeps the first completion time
	title := "Renamed"
	got, _, err = h.UpdateTask(trade.ID, task.ID, TaskUpdate{Status: &done, Title: &title}, actor, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.CompletedAt.Equal(testNow))
	assert.Equal(t, "Renamed", got.Title)

	inProgress := TaskInProgress
	before := snapshot(t, h)
	got, patches, err := h.UpdateTask(trade.ID, task.ID, TaskUpdate{Status: &inProgress}, actor, testNow)
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.CompletedBy)
}

func TestUpdateTaskNotFound(t *testing.T) {
	h := seededHome(t)
	done := TaskDone
	_, _, err := h.UpdateTask("missing", "x", TaskUpdate{Status: &done}, Actor{}, testNow)
	assert.ErrorIs(t, err, ErrTradeNotFound)
	_, _, err = h.UpdateTask(h.Trades[0].ID, "missing", TaskUpdate{Status: &done}, Actor{}, testNow)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTaskDependencies(t *testing.T) {
	h := seededHome(t)
	a := h.Trades[0].Tasks[0]
	b := h.Trades[1].Tasks[0]

	deps := []Dependency{
		{TradeID: h.Trades[1].ID, TaskID: b.ID},
		{TradeID: h.Trades[1].ID, TaskID: b.ID},
	}
	got, _, err := h.UpdateTask(h.Trades[0].ID, a.ID, TaskUpdate{DependsOn: &deps}, Actor{}, testNow)
	require.NoError(t, err)
	assert.Len(t, got.DependsOn, 1)

	self := []Dependency{{TradeID: h.Trades[0].ID, TaskID: a.ID}}
	_, _, err = h.UpdateTask(h.Trades[0].ID, a.ID, TaskUpdate{DependsOn: &self}, Actor{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidDependency)

	dangling := []Dependency{{TradeID: h.Trades[0].ID, TaskID: "nope"}}
	_, _, err = h.UpdateTask(h.Trades[0].ID, a.ID, TaskUpdate{DependsOn: &dangling}, Actor{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidDependency)
}

func TestQualityCheckAcceptance(t *testing.T) {
	h := seededHome(t)
	var tradeIdx int
	for i, trade := range h.Trades {
		if len(trade.QualityChecks) > 0 {
			tradeIdx = i
			break
		}
	}
	trade := h.Trades[tradeIdx]
	check := trade.QualityChecks[0]

	before := snapshot(t, h)
	got, patches, err := h.SetQualityCheckAccepted(trade.ID, check.ID, true, "", Actor{FullName: "Only Name"}, testNow)
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)
	require.NotNil(t, got.AcceptedAt)
	assert.Equal(t, "Only Name", got.AcceptedBy)

	got, _, err = h.SetQualityCheckAccepted(trade.ID, check.ID, false, "someone", Actor{}, testNow)
	require.NoError(t, err)
	assert.Nil(t, got.AcceptedAt)
	assert.Empty(t, got.AcceptedBy)

	_, _, err = h.SetQualityCheckAccepted(trade.ID, "missing", true, "", Actor{}, testNow)
	assert.ErrorIs(t, err, ErrCheckNotFound)
}

func TestInvoicePaidInvariant(t *testing.T) {
	h := seededHome(t)
	trade := h.Trades[0]
	inv := NewInvoice("Deposit", decimal.NewFromInt(1500), nil, testNow)
	_, err := h.AddInvoice(trade.ID, inv)
	require.NoError(t, err)

	paid := true
	got, _, err := h.UpdateInvoice(trade.ID, inv.ID, InvoiceUpdate{Paid: &paid}, testNow)
	require.NoError(t, err)
	require.NotNil(t, got.PaidAt)

	got, _, err = h.UpdateInvoice(trade.ID, inv.ID, InvoiceUpdate{Paid: &paid}, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.PaidAt.Equal(testNow))

	unpaid := false
	got, _, err = h.UpdateInvoice(trade.ID, inv.ID, InvoiceUpdate{Paid: &unpaid}, testNow)
	require.NoError(t, err)
	assert.Nil(t, got.PaidAt)
}

func TestUpdateTradeChangeLog(t *testing.T) {
	h := seededHome(t)
	trade := h.Trades[0]
	actor := Actor{Email: "b@example.com"}

	same := trade.TotalPrice
	got, _, err := h.UpdateTrade(trade.ID, TradeUpdate{TotalPrice: &same}, actor, testNow)
	require.NoError(t, err)
	assert.Empty(t, got.ChangeLog)

	price := decimal.NewFromInt(12000)
	before := snapshot(t, h)
	got, patches, err := h.UpdateTrade(trade.ID, TradeUpdate{TotalPrice: &price}, actor, testNow)
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)
	require.Len(t, got.ChangeLog, 1)
	entry := got.ChangeLog[0]
	assert.Equal(t, "totalPrice", entry.Field)
	assert.Equal(t, "b@example.com", entry.ChangedBy)
	assert.True(t, entry.OldValue.(decimal.Decimal).IsZero())
	assert.True(t, entry.NewValue.(decimal.Decimal).Equal(price))

	got, _, err = h.UpdateTrade(trade.ID, TradeUpdate{}, Actor{}, testNow)
	require.NoError(t, err)
	assert.Len(t, got.ChangeLog, 1)
}

func TestUpdateTradeContactsMirrorVendor(t *testing.T) {
	h := seededHome(t)
	trade := h.Trades[0]
	contacts := []Contact{
		{Company: "Volt Co", FullName: "Ann Lee", Email: "ANN@VOLT.TEST"},
		{FullName: "Sam Ray", IsPrimary: true, Phone: "555"},
	}
	notes := "call before noon"
	got, _, err := h.UpdateTrade(trade.ID, TradeUpdate{Contacts: &contacts, Notes: &notes}, Actor{}, testNow)
	require.NoError(t, err)

	primaries := 0
	for _, c := range got.Contacts {
		if c.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
	assert.Equal(t, Vendor{Name: "Sam Ray", ContactName: "Sam Ray", Phone: "555"}, got.Vendor)

	fields := []string{}
	for _, e := range got.ChangeLog {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"vendor", "contacts", "notes"}, fields)
	for _, e := range got.ChangeLog {
		assert.Equal(t, "unknown", e.ChangedBy)
	}
}

func TestArchitectureVersionsAndFinal(t *testing.T) {
	h := New("Lake House", "", "", nil)
	var ids []string
	for i := 0; i < 3; i++ {
		doc, _ := h.AddDocument(Document{ID: newID(), Title: "Base plan", URL: "https://files.test/base.pdf", Category: CategoryArchitectureBase})
		assert.Equal(t, i+1, doc.Version)
		ids = append(ids, doc.ID)
	}

	other, _ := h.AddDocument(Document{ID: newID(), Title: "MEP", Category: CategoryArchitectureMEP, IsFinal: true})
	assert.Equal(t, 1, other.Version)

	first, _ := h.AddDocument(Document{ID: newID(), Title: "Final A", Category: CategoryArchitectureBase, IsFinal: true})
	before := snapshot(t, h)
	second, patches := h.AddDocument(Document{ID: newID(), Title: "Final B", Category: CategoryArchitectureBase, IsFinal: true})
	requirePatchesMatch(t, before, h, patches)

	for _, d := range h.Documents {
		switch d.ID {
		case first.ID:
			assert.False(t, d.IsFinal)
		case second.ID, other.ID:
			assert.True(t, d.IsFinal)
		}
	}
	assert.Equal(t, 5, second.Version)
	assert.Len(t, ids, 3)
}

func TestUpdateDocumentMovesCategory(t *testing.T) {
	h := New("Lake House", "", "", nil)
	h.AddDocument(Document{ID: "s1", Category: CategoryArchitectureStructural, IsFinal: true})
	h.AddDocument(Document{ID: "o1", Category: CategoryOther})

	category := CategoryArchitectureStructural
	final := true
	before := snapshot(t, h)
	got, patches, err := h.UpdateDocument("o1", DocumentUpdate{Category: &category, IsFinal: &final})
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)
	assert.Equal(t, 2, got.Version)
	assert.False(t, h.Documents[0].IsFinal)

	_, _, err = h.UpdateDocument("missing", DocumentUpdate{})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteDocument(t *testing.T) {
	h := New("Lake House", "", "", nil)
	h.AddDocument(Document{ID: "a", Title: "A"})
	h.AddDocument(Document{ID: "b", Title: "B"})
	h.AddDocument(Document{ID: "c", Title: "C"})

	before := snapshot(t, h)
	removed, patches, err := h.DeleteDocument("b")
	require.NoError(t, err)
	requirePatchesMatch(t, before, h, patches)
	assert.Equal(t, "B", removed.Title)
	require.Len(t, h.Documents, 2)
	assert.Equal(t, "a", h.Documents[0].ID)
	assert.Equal(t, "c", h.Documents[1].ID)

	_, _, err = h.DeleteDocument("b")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestClientAndMonitors(t *testing.T) {
	h := New("Lake House", "", "", nil)
	before := snapshot(t, h)
	patches := h.SetClient(PersonLite{FullName: "Pat", Email: "pat@example.com"})
	patches = append(patches, h.AddMonitor(PersonLite{FullName: "Mo", Email: "mo@example.com"})...)
	patches = append(patches, h.AddMonitor(PersonLite{FullName: "Mo Two", Email: "MO@example.com", Phone: "1"})...)
	requirePatchesMatch(t, before, h, patches)

	assert.Equal(t, "Pat", h.ClientName)
	require.Len(t, h.Monitors, 1)
	assert.Equal(t, "Mo Two", h.Monitors[0].FullName)
	assert.True(t, h.HasParticipant("pat@example.com"))
	assert.True(t, h.HasParticipant("mo@example.com"))
	assert.False(t, h.HasParticipant("nobody@example.com"))
}

func TestNestedPatchesLeaveSiblingsUntouched(t *testing.T) {
	h := seededHome(t)
	trade := h.Trades[0]
	require.GreaterOrEqual(t, len(trade.Tasks), 2)

	before := snapshot(t, h)
	done := TaskDone
	_, patches, err := h.UpdateTask(trade.ID, trade.Tasks[1].ID, TaskUpdate{Status: &done}, Actor{Email: "x@example.com"}, testNow)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, []string{"trades", "0", "tasks", "1"}, patches[0].Path)

	var prior, next Home
	require.NoError(t, json.Unmarshal(before, &prior))
	after, err := ApplyPatches(before, patches)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(after, &next))
	assert.Equal(t, prior.Trades[0].Tasks[0], next.Trades[0].Tasks[0])
	assert.Equal(t, prior.Trades[1:], next.Trades[1:])
}
