package app

import (
	"net/http"

	"buildwise/api/internal/rbac"
)

// allow returns the session when its roles permit action, writing a 403 otherwise.
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request, action rbac.Action) (Session, bool) {
	session := sessionFrom(r)
	if !rbac.CanAny(session.Roles, action) {
		s.forbid(w, r, session, action)
		return Session{}, false
	}
	return session, true
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) {
	requestLogger(r).Info().
		Str("email", session.Email).
		Strs("roles", session.Roles).
		Str("action", string(action)).
		Msg("permission denied")
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}
