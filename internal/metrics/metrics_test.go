package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/homes/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/homes/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	RecordAIRequest("analyze", "gpt-4o-mini", true, 10, 5)
	RecordAILogDrop()
	RecordUpload(false)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	assert.True(t, strings.Contains(out, `buildwise_http_requests_total{method="GET",route="/api/homes/{id}",status="418"} 1`), out)
	assert.Contains(t, out, `buildwise_ai_requests_total{endpoint="analyze",model="gpt-4o-mini",outcome="ok"} 1`)
	assert.Contains(t, out, `buildwise_ai_tokens_total{kind="prompt",model="gpt-4o-mini"} 10`)
	assert.Contains(t, out, "buildwise_ai_log_dropped_total 1")
	assert.Contains(t, out, `buildwise_storage_uploads_total{outcome="error"} 1`)
}
