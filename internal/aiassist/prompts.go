package aiassist

import (
	"fmt"
	"strings"

	"buildwise/api/internal/home"
)

const defaultTradePrompt = "Summarize the key risks, assumptions, scope gaps, and any missing information across these trade documents. " +
	"Highlight potential cost or schedule impacts and suggest follow-ups."

// TradeGuidance builds the default prompt for a trade or one of its tasks.
func TradeGuidance(trade home.Trade, task *home.Task) string {
	var b strings.Builder
	b.WriteString(defaultTradePrompt)
	fmt.Fprintf(&b, "\n\nTrade: %s", trade.Name)
	if len(trade.PhaseKeys) > 0 {
		keys := make([]string, len(trade.PhaseKeys))
		for i, k := range trade.PhaseKeys {
			keys[i] = string(k)
		}
		fmt.Fprintf(&b, "\nPhases: %s", strings.Join(keys, ", "))
	}
	if trade.Vendor.Name != "" {
		fmt.Fprintf(&b, "\nVendor: %s", trade.Vendor.Name)
	}
	if !trade.TotalPrice.IsZero() {
		fmt.Fprintf(&b, "\nQuoted total: %s", trade.TotalPrice.StringFixed(2))
	}
	if trade.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", trade.Notes)
	}
	if task != nil {
		fmt.Fprintf(&b, "\nFocus task: %s (status %s)", task.Title, task.Status)
		if task.Description != "" {
			fmt.Fprintf(&b, "\nTask description: %s", task.Description)
		}
	}
	return b.String()
}

// TradeDocumentURLs lists the trade's attachments followed by home documents
// pinned to the trade or, when taskID is set, to that task.
func TradeDocumentURLs(h home.Home, tradeID, taskID string) []string {
	var urls []string
	seen := map[string]bool{}
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	if idx := h.TradeIndex(tradeID); idx >= 0 {
		for _, doc := range h.Trades[idx].Attachments {
			add(doc.URL)
		}
	}
	for _, doc := range h.Documents {
		switch {
		case doc.PinnedTo.Type == home.PinTrade && doc.PinnedTo.ID == tradeID:
			add(doc.URL)
		case taskID != "" && doc.PinnedTo.Type == home.PinTask && doc.PinnedTo.ID == taskID:
			add(doc.URL)
		}
	}
	return urls
}
