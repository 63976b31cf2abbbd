package search

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildwise/api/internal/home"
)

func TestRecordsFor(t *testing.T) {
	h := home.Home{
		ID:         "h1",
		Name:       "Smith Home",
		Address:    "12 Elm St, Frisco TX 75034",
		ClientName: "Sam Smith",
		Trades:     []home.Trade{{Name: "Framing"}, {Name: "Roofing"}},
		Documents: []home.Document{
			{ID: "d1", Title: "Plan set", FileName: "plans.pdf", Category: home.CategoryArchitectureBase, URL: "https://f/plans.pdf"},
		},
	}
	rec, docs := RecordsFor(h)
	assert.Equal(t, HomeRecord{ID: "h1", Name: "Smith Home", Address: h.Address, ClientName: "Sam Smith", Trades: "Framing, Roofing"}, rec)
	require.Len(t, docs, 1)
	assert.Equal(t, DocumentRecord{
		ID: "d1", HomeID: "h1", HomeName: "Smith Home", Title: "Plan set",
		FileName: "plans.pdf", Category: "architecture_base", URL: "https://f/plans.pdf",
	}, docs[0])
}

func TestServiceFallsBackToPgFTS(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM (")).
		WithArgs("framing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, id, title, snippet, home_id, category, url")).
		WithArgs("framing").
		WillReturnRows(sqlmock.NewRows([]string{"type", "id", "title", "snippet", "home_id", "category", "url"}).
			AddRow("document", "d1", "Framing bid", "Smith Home", "h1", "bid", "https://f/bid.pdf"))

	svc := NewService(nil, NewPgFTS(db))
	resp := svc.Search(context.Background(), Query{Text: "framing", FilterType: ResultDocument, Limit: 5})

	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, Result{Type: ResultDocument, ID: "d1", Title: "Framing bid", Snippet: "Smith Home", HomeID: "h1", Category: "bid", URL: "https://f/bid.pdf"}, resp.Results[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFTSBlankQueryReturnsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	resp := NewService(nil, NewPgFTS(db)).Search(context.Background(), Query{Text: "   "})
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAllRecordsDecodesHomes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	doc, err := json.Marshal(home.Home{ID: "h1", Name: "Lake House", Documents: []home.Document{{ID: "d1", Title: "Survey"}}})
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM homes")).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	homes, docs, err := NewPgFTS(db).LoadAllRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, homes, 1)
	assert.Equal(t, "Lake House", homes[0].Name)
	require.Len(t, docs, 1)
	assert.Equal(t, "h1", docs[0].HomeID)
}
