package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) authRoutes(r chi.Router) {
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/register-marketing", s.handleRegisterMarketing)
	r.Get("/confirm-email", s.handleConfirmEmail)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/logout", s.handleLogout)
	r.With(s.withSession).Get("/me", s.handleMe)
}

func sessionResponse(session Session, user UserView) map[string]any {
	response := map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      user,
	}
	if session.RefreshToken != "" {
		response["refreshToken"] = session.RefreshToken
	}
	return response
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body RegisterInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	session, person, err := s.service.Register(r.Context(), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session, userView(person)))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body LoginInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	session, person, err := s.service.Login(r.Context(), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session, userView(person)))
}

func (s *HTTPServer) handleRegisterMarketing(w http.ResponseWriter, r *http.Request) {
	var body MarketingInput
	if !decodeOrReject(w, r, &body) {
		return
	}
	token, err := s.service.RegisterMarketing(r.Context(), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response := map[string]any{
		"message": "Registered. Please check your email to confirm your account.",
	}
	// Dev bypass: without SMTP the confirmation link can't be delivered.
	if !s.service.SMTPConfigured() {
		response["devConfirmToken"] = token
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := s.service.ConfirmEmail(r.Context(), query.Get("email"), query.Get("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Email confirmed. You can now log in."})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	person, err := s.service.Me(r.Context(), sessionFrom(r).Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView(person))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeOrReject(w, r, &body) {
		return
	}
	if body.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
		return
	}
	session, person, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session, userView(person)))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := Session{}
	if token := bearerToken(r); token != "" {
		if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
			session = parsed
		}
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = decodeBody(r, &body)
	_ = s.service.Logout(r.Context(), session, body.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
