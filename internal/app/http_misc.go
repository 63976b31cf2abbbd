package app

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"buildwise/api/internal/rbac"
	"buildwise/api/internal/search"
)

func (s *HTTPServer) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionStructure); !ok {
		return
	}
	var body OnboardingInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	h, err := s.service.Onboard(r.Context(), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"home": h})
}

func (s *HTTPServer) handleMyHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := s.service.MyHomes(r.Context(), sessionFrom(r).Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, homes)
}

func (s *HTTPServer) handlePeople(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.allow(w, r, rbac.ActionRead); !ok {
		return
	}
	query := r.URL.Query()
	people, err := s.service.ListPeople(r.Context(), query.Get("role"), query.Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *HTTPServer) templateRoutes(r chi.Router) {
	r.Use(s.withSession)
	r.Get("/", s.handleListTemplates)
	r.Post("/", s.handleCreateTemplate)
	r.Get("/{templateId}", s.handleGetTemplate)
}

func (s *HTTPServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *HTTPServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, template)
}

func (s *HTTPServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionStructure)
	if !ok {
		return
	}
	var body TemplateInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	template, err := s.service.CreateTemplate(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, template)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filterType := search.ResultType(query.Get("type"))
	switch filterType {
	case "", search.ResultHome, search.ResultDocument:
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "type must be one of: home document", nil)
		return
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	response, err := s.service.Search(r.Context(), search.Query{
		Text:       query.Get("q"),
		FilterType: filterType,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}
