package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"buildwise/api/internal/rbac"
)

func (s *HTTPServer) aiRoutes(r chi.Router) {
	r.Use(s.withSession)
	if s.aiLimiter != nil {
		r.Use(s.aiLimiter.Middleware(func(r *http.Request) string {
			return sessionFrom(r).Email
		}, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many AI requests, slow down", nil)
		}))
	}
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze-files", s.handleAnalyzeFiles)
	r.Post("/analyze-trade", s.handleAnalyzeTrade)
	r.Post("/analyze-architecture", s.handleAnalyzeArchitecture)
}

func (s *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionRead)
	if !ok {
		return
	}
	var body AnalyzeInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	result, err := s.service.Analyze(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAnalyzeFiles(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionRead)
	if !ok {
		return
	}
	var body AnalyzeFilesInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	result, err := s.service.AnalyzeFiles(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAnalyzeTrade(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionRead)
	if !ok {
		return
	}
	var body AnalyzeTradeInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	result, err := s.service.AnalyzeTrade(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAnalyzeArchitecture(w http.ResponseWriter, r *http.Request) {
	session, ok := s.allow(w, r, rbac.ActionRead)
	if !ok {
		return
	}
	var body AnalyzeArchitectureInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	result, err := s.service.AnalyzeArchitecture(r.Context(), body, session.Actor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
