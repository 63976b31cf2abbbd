package export

import (
	"time"

	"github.com/shopspring/decimal"

	"buildwise/api/internal/home"
)

type TradeBudget struct {
	Name         string
	Vendor       string
	TotalPrice   decimal.Decimal
	Additional   decimal.Decimal
	Committed    decimal.Decimal
	TotalPaid    decimal.Decimal
	Invoiced     decimal.Decimal
	InvoicedPaid decimal.Decimal
	Remaining    decimal.Decimal
}

type PhaseProgress struct {
	Phase      home.PhaseKey
	Total      int
	Done       int
	InProgress int
	Blocked    int
	Percent    int
}

type PendingCheck struct {
	Trade string
	Title string
	Phase home.PhaseKey
}

// ReportData is the view model for the home report template.
type ReportData struct {
	Name          string
	Address       string
	ClientName    string
	Builder       string
	GeneratedAt   time.Time
	Trades        []TradeBudget
	Committed     decimal.Decimal
	Paid          decimal.Decimal
	Remaining     decimal.Decimal
	Phases        []PhaseProgress
	TasksTotal    int
	TasksDone     int
	Percent       int
	ChecksTotal   int
	ChecksDone    int
	PendingChecks []PendingCheck
	Documents     int
}

// BuildReport summarizes budget, progress and quality for one home.
func BuildReport(h home.Home, now time.Time) ReportData {
	data := ReportData{
		Name:        h.Name,
		Address:     h.Address,
		ClientName:  h.ClientName,
		GeneratedAt: now,
		Committed:   decimal.Zero,
		Paid:        decimal.Zero,
		Documents:   len(h.Documents),
	}
	if h.Builder != nil {
		data.Builder = h.Builder.FullName
		if data.Builder == "" {
			data.Builder = h.Builder.Email
		}
	}

	byPhase := map[home.PhaseKey]*PhaseProgress{}
	var order []home.PhaseKey
	for _, p := range h.Phases {
		if _, ok := byPhase[p.Key]; !ok {
			byPhase[p.Key] = &PhaseProgress{Phase: p.Key}
			order = append(order, p.Key)
		}
	}

	for _, t := range h.Trades {
		b := TradeBudget{
			Name:         t.Name,
			Vendor:       t.Vendor.Name,
			TotalPrice:   t.TotalPrice,
			Additional:   decimal.Zero,
			TotalPaid:    t.TotalPaid,
			Invoiced:     decimal.Zero,
			InvoicedPaid: decimal.Zero,
		}
		for _, c := range t.AdditionalCosts {
			b.Additional = b.Additional.Add(c.Amount)
		}
		for _, inv := range t.Invoices {
			b.Invoiced = b.Invoiced.Add(inv.Amount)
			if inv.Paid {
				b.InvoicedPaid = b.InvoicedPaid.Add(inv.Amount)
			}
		}
		b.Committed = b.TotalPrice.Add(b.Additional)
		b.Remaining = b.Committed.Sub(b.TotalPaid)
		data.Trades = append(data.Trades, b)
		data.Committed = data.Committed.Add(b.Committed)
		data.Paid = data.Paid.Add(b.TotalPaid)

		for _, task := range t.Tasks {
			p, ok := byPhase[task.PhaseKey]
			if !ok {
				p = &PhaseProgress{Phase: task.PhaseKey}
				byPhase[task.PhaseKey] = p
				order = append(order, task.PhaseKey)
			}
			p.Total++
			data.TasksTotal++
			switch task.Status {
			case home.TaskDone:
				p.Done++
				data.TasksDone++
			case home.TaskInProgress:
				p.InProgress++
			case home.TaskBlocked:
				p.Blocked++
			}
		}

		for _, qc := range t.QualityChecks {
			data.ChecksTotal++
			if qc.Accepted {
				data.ChecksDone++
				continue
			}
			data.PendingChecks = append(data.PendingChecks, PendingCheck{Trade: t.Name, Title: qc.Title, Phase: qc.PhaseKey})
		}
	}
	data.Remaining = data.Committed.Sub(data.Paid)
	data.Percent = percent(data.TasksDone, data.TasksTotal)
	for _, key := range order {
		p := byPhase[key]
		p.Percent = percent(p.Done, p.Total)
		data.Phases = append(data.Phases, *p)
	}
	return data
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}
