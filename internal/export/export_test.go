package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"buildwise/api/internal/home"
)

func fixtureHome() home.Home {
	paidAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return home.Home{
		ID:         "h1",
		Name:       "Smith Home",
		Address:    "12 Elm St, Frisco TX 75034",
		ClientName: "Sam Smith",
		Builder:    &home.PersonLite{FullName: "Bea Builder", Email: "bea@example.com"},
		Phases:     home.DefaultPhases(),
		Trades: []home.Trade{
			{
				Name:            "Framing",
				Vendor:          home.Vendor{Name: "Acme Framing"},
				TotalPrice:      decimal.NewFromInt(40000),
				TotalPaid:       decimal.NewFromInt(10000),
				AdditionalCosts: []home.Cost{{Label: "Extra lumber", Amount: decimal.NewFromInt(2500)}},
				Invoices: []home.Invoice{
					{Label: "Deposit", Amount: decimal.NewFromInt(10000), Paid: true, PaidAt: &paidAt},
					{Label: "Draw 1", Amount: decimal.NewFromInt(15000)},
				},
				Tasks: []home.Task{
					{Title: "Layout", PhaseKey: home.PhasePreconstruction, Status: home.TaskDone},
					{Title: "Walls", PhaseKey: home.PhaseExterior, Status: home.TaskInProgress},
					{Title: "Trusses", PhaseKey: home.PhaseExterior, Status: home.TaskBlocked},
					{Title: "Punch <list>", PhaseKey: home.PhaseInterior, Status: home.TaskTodo},
				},
				QualityChecks: []home.QualityCheck{
					{Title: "Walls plumb", PhaseKey: home.PhaseExterior, Accepted: true},
					{Title: "Sheathing nailed", PhaseKey: home.PhaseExterior},
				},
			},
		},
		Documents: []home.Document{{Title: "Plans"}},
	}
}

func TestBuildReport(t *testing.T) {
	data := BuildReport(fixtureHome(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	if !data.Committed.Equal(decimal.NewFromInt(42500)) {
		t.Errorf("committed = %s, want 42500", data.Committed)
	}
	if !data.Remaining.Equal(decimal.NewFromInt(32500)) {
		t.Errorf("remaining = %s, want 32500", data.Remaining)
	}
	if got := data.Trades[0].InvoicedPaid; !got.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("invoiced paid = %s, want 10000", got)
	}
	if data.TasksTotal != 4 || data.TasksDone != 1 || data.Percent != 25 {
		t.Errorf("progress = %d/%d (%d%%)", data.TasksDone, data.TasksTotal, data.Percent)
	}
	if len(data.Phases) != 3 {
		t.Fatalf("phases = %d, want 3", len(data.Phases))
	}
	ext := data.Phases[1]
	if ext.Phase != home.PhaseExterior || ext.Total != 2 || ext.InProgress != 1 || ext.Blocked != 1 {
		t.Errorf("exterior progress = %+v", ext)
	}
	if data.ChecksTotal != 2 || data.ChecksDone != 1 || len(data.PendingChecks) != 1 {
		t.Errorf("quality = %d/%d pending %v", data.ChecksDone, data.ChecksTotal, data.PendingChecks)
	}
	if data.Builder != "Bea Builder" {
		t.Errorf("builder = %q", data.Builder)
	}
}

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML(BuildReport(fixtureHome(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}
	for _, want := range []string{
		"Smith Home",
		"Acme Framing",
		"$42500.00",
		"1 of 4 tasks done (25%)",
		"1 of 2 quality checks accepted",
		"Sheathing nailed",
		"Apr 1, 2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestExportHTMLAndDelegates(t *testing.T) {
	svc := NewService()
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }

	res, err := svc.Export(context.Background(), fixtureHome(), FormatHTML)
	if err != nil {
		t.Fatalf("Export(html) error = %v", err)
	}
	if res.Filename != "Smith-Home-report.html" || !strings.HasPrefix(res.MimeType, "text/html") {
		t.Errorf("unexpected result %s %s", res.Filename, res.MimeType)
	}

	svc.pdf = func(context.Context, string, string) (*Result, error) {
		return nil, ErrPDFDependencyMissing
	}
	if _, err := svc.Export(context.Background(), fixtureHome(), FormatPDF); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Errorf("Export(pdf) error = %v, want ErrPDFDependencyMissing", err)
	}

	var gotTitle string
	svc.docx = func(_ context.Context, html, title string) (*Result, error) {
		gotTitle = title
		return &Result{Data: []byte(html)}, nil
	}
	if _, err := svc.Export(context.Background(), fixtureHome(), FormatDOCX); err != nil {
		t.Fatalf("Export(docx) error = %v", err)
	}
	if gotTitle != "Smith Home report" {
		t.Errorf("docx title = %q", gotTitle)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatHTML, true},
		{"pdf", FormatPDF, true},
		{"docx", FormatDOCX, true},
		{"xlsx", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Smith Home v1.2", "Smith-Home-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "report"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDataURLEncode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := dataURLEncode(tt.input)
			if result != tt.expected {
				t.Errorf("dataURLEncode(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
