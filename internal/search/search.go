package search

import (
	"buildwise/api/internal/home"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultHome     ResultType = "home"
	ResultDocument ResultType = "document"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	HomeID   string     `json:"homeId"`
	Category string     `json:"category,omitempty"`
	URL      string     `json:"url,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// HomeRecord is the data we index for a home.
type HomeRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	ClientName string `json:"clientName"`
	Trades     string `json:"trades"`
}

// DocumentRecord is the data we index for a home document.
type DocumentRecord struct {
	ID       string `json:"id"`
	HomeID   string `json:"homeId"`
	HomeName string `json:"homeName"`
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// RecordsFor flattens a home into its search records.
func RecordsFor(h home.Home) (HomeRecord, []DocumentRecord) {
	names := make([]byte, 0, 16*len(h.Trades))
	for i, t := range h.Trades {
		if i > 0 {
			names = append(names, ", "...)
		}
		names = append(names, t.Name...)
	}
	rec := HomeRecord{
		ID:         h.ID,
		Name:       h.Name,
		Address:    h.Address,
		ClientName: h.ClientName,
		Trades:     string(names),
	}
	docs := make([]DocumentRecord, 0, len(h.Documents))
	for _, d := range h.Documents {
		docs = append(docs, DocumentRecord{
			ID:       d.ID,
			HomeID:   h.ID,
			HomeName: h.Name,
			Title:    d.Title,
			FileName: d.FileName,
			Category: string(d.Category),
			URL:      d.URL,
		})
	}
	return rec, docs
}
