package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"buildwise/api/internal/home"
)

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeHome(t *testing.T, raw []byte) home.Home {
	t.Helper()
	var h home.Home
	if err := json.Unmarshal(raw, &h); err != nil {
		t.Fatalf("parse home: %v body=%s", err, raw)
	}
	return h
}

func TestCreateHomeEndpoint(t *testing.T) {
	server := newTestServer(newTestService(newFakeStore()))
	builder := tokenFor(t, "bob@builder.test", "builder")

	rr := doJSON(t, server, http.MethodPost, "/api/homes", builder, `{"name":"Lakeview","address":"12 Elm St"}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	h := decodeHome(t, rr.Body.Bytes())
	if h.ID == "" || h.Name != "Lakeview" || len(h.Trades) == 0 {
		t.Fatalf("unexpected home %+v", h)
	}

	get := doJSON(t, server, http.MethodGet, "/api/homes/"+h.ID, builder, "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", get.Code)
	}
}

func TestStructureActionsForbiddenForMonitor(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	server := newTestServer(svc)
	h := mustCreateHome(t, svc, CreateHomeInput{Name: "Guarded"})
	monitor := tokenFor(t, "mona@example.com", "monitor")

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "create home", method: http.MethodPost, path: "/api/homes", body: `{"name":"Nope"}`},
		{name: "update home", method: http.MethodPut, path: "/api/homes/" + h.ID, body: `{"name":"Renamed"}`},
		{name: "add trade", method: http.MethodPost, path: "/api/homes/" + h.ID + "/trades", body: `{"name":"Pool","phaseKeys":["exterior"]}`},
		{name: "assign client", method: http.MethodPost, path: "/api/homes/" + h.ID + "/assign-client", body: `{"email":"c@example.com"}`},
		{name: "create template", method: http.MethodPost, path: "/api/templates", body: `{"name":"T","trades":[]}`},
		{name: "onboarding", method: http.MethodPost, path: "/api/onboarding", body: `{"home":{"name":"X"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, server, tc.method, tc.path, monitor, tc.body)
			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
			}
			if code := decodeMap(t, rr)["code"]; code != "FORBIDDEN" {
				t.Fatalf("expected FORBIDDEN, got %v", code)
			}
		})
	}

	stored, _ := fs.GetHome(context.Background(), h.ID)
	if stored.Name != "Guarded" || stored.Revision != h.Revision {
		t.Fatalf("expected home unchanged, got name=%q revision=%d", stored.Name, stored.Revision)
	}
}

func TestClientCanCompleteTask(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	server := newTestServer(svc)
	h := mustCreateHome(t, svc, CreateHomeInput{Name: "Workflow"})
	tradeID := h.Trades[0].ID
	client := tokenFor(t, "cleo@example.com", "client")

	add := doJSON(t, server, http.MethodPost, "/api/homes/"+h.ID+"/trades/"+tradeID+"/tasks", client, `{"title":"Walkthrough"}`)
	if add.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", add.Code, add.Body.String())
	}
	var added struct {
		Task home.Task `json:"task"`
	}
	if err := json.Unmarshal(add.Body.Bytes(), &added); err != nil {
		t.Fatalf("parse: %v", err)
	}

	patch := doJSON(t, server, http.MethodPatch, "/api/homes/"+h.ID+"/trades/"+tradeID+"/tasks/"+added.Task.ID, client, `{"status":"done"}`)
	if patch.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", patch.Code, patch.Body.String())
	}
	updated := decodeHome(t, patch.Body.Bytes())
	_, task := updated.FindTask(tradeID, added.Task.ID)
	if task == nil || task.Status != home.TaskDone || task.CompletedBy != "cleo@example.com" {
		t.Fatalf("unexpected task %+v", task)
	}

	bad := doJSON(t, server, http.MethodPatch, "/api/homes/"+h.ID+"/trades/"+tradeID+"/tasks/"+added.Task.ID, client, `{"status":"finished"}`)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown status, got %d", bad.Code)
	}
}

func TestUnknownHomeIs404(t *testing.T) {
	server := newTestServer(newTestService(newFakeStore()))
	builder := tokenFor(t, "bob@builder.test", "builder")

	for _, id := range []string{"not-a-uuid", "5b0c3a3e-8f7e-4a53-9d3f-2f6f0c1d9a11"} {
		rr := doJSON(t, server, http.MethodGet, "/api/homes/"+id, builder, "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", id, rr.Code)
		}
		if code := decodeMap(t, rr)["code"]; code != "HOME_NOT_FOUND" {
			t.Fatalf("%s: expected HOME_NOT_FOUND, got %v", id, code)
		}
	}
}

func TestDocumentDeleteRequiresBuilder(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	server := newTestServer(svc)
	off := false
	h := mustCreateHome(t, svc, CreateHomeInput{Name: "Docs", WithTemplates: &off})
	client := tokenFor(t, "cleo@example.com", "client")
	builder := tokenFor(t, "bob@builder.test", "builder")

	add := doJSON(t, server, http.MethodPost, "/api/homes/"+h.ID+"/documents", client,
		`{"title":"Survey","url":"https://files.example.com/survey.pdf","category":"other"}`)
	if add.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", add.Code, add.Body.String())
	}
	var added struct {
		Document home.Document `json:"document"`
	}
	if err := json.Unmarshal(add.Body.Bytes(), &added); err != nil {
		t.Fatalf("parse: %v", err)
	}

	path := "/api/homes/" + h.ID + "/documents/" + added.Document.ID
	if rr := doJSON(t, server, http.MethodDelete, path, client, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for client, got %d", rr.Code)
	}
	if rr := doJSON(t, server, http.MethodDelete, path, builder, ""); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for builder, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMessagesEndpoints(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	server := newTestServer(svc)
	h := mustCreateHome(t, svc, CreateHomeInput{Name: "Chat"})
	monitor := tokenFor(t, "mona@example.com", "monitor")

	post := doJSON(t, server, http.MethodPost, "/api/homes/"+h.ID+"/messages", monitor, `{"text":"Looks good"}`)
	if post.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", post.Code, post.Body.String())
	}

	list := doJSON(t, server, http.MethodGet, "/api/homes/"+h.ID+"/messages?limit=10", monitor, "")
	if list.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", list.Code)
	}
	messages, _ := decodeMap(t, list)["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
}

func TestUploadWithoutStorageIs503(t *testing.T) {
	server := newTestServer(newTestService(newFakeStore()))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "plan.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = writer.WriteField("folderName", "plans")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/file-storage/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "bob@builder.test", "builder"))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeMap(t, rr)["code"]; code != "STORAGE_UNAVAILABLE" {
		t.Fatalf("expected STORAGE_UNAVAILABLE, got %v", code)
	}
}

func TestAnalyzeFilesEndpointWithoutKey(t *testing.T) {
	server := newTestServer(newTestService(newFakeStore()))

	rr := doJSON(t, server, http.MethodPost, "/api/ai/analyze-files", tokenFor(t, "bob@builder.test", "builder"),
		`{"urls":["https://files.example.com/a.pdf"],"prompt":"summarize"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d body=%s", rr.Code, rr.Body.String())
	}
	if msg := decodeMap(t, rr)["error"]; msg != "Missing OPENAI_API_KEY" {
		t.Fatalf("expected missing key message, got %v", msg)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	server := newTestServer(newTestService(newFakeStore()))

	rr := doJSON(t, server, http.MethodGet, "/api/search?q=deck&type=invoice", tokenFor(t, "bob@builder.test", "builder"), "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestMyHomesListsParticipation(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	server := newTestServer(svc)
	h := mustCreateHome(t, svc, CreateHomeInput{Name: "Mine"})
	mustCreateHome(t, svc, CreateHomeInput{Name: "Other"})
	if _, err := svc.AddMonitor(context.Background(), h.ID, AssignPersonInput{Email: "mona@example.com"}); err != nil {
		t.Fatalf("add monitor: %v", err)
	}

	rr := doJSON(t, server, http.MethodGet, "/api/my/homes", tokenFor(t, "mona@example.com", "monitor"), "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var homes []home.Home
	if err := json.Unmarshal(rr.Body.Bytes(), &homes); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(homes) != 1 || homes[0].ID != h.ID {
		t.Fatalf("expected only the monitored home, got %d", len(homes))
	}
}
