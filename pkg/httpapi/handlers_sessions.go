package httpapi

import (
	"net/http"

	"github.com/tracelens/tracelens/pkg/errors"
)

// loginRequest starts a session for the named user.
type loginRequest struct {
	User string `json:"user"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.login(w, r)
	case len(rest) == 0 && r.Method == http.MethodDelete:
		s.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login bootstraps with the admin token; an existing session token is also
// accepted so a logged-in user can open further sessions.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		s.fail(w, r, err)
		return
	}
	body := decodeBody[loginRequest](r)
	if body.IsErr() {
		s.fail(w, r, body.Err())
		return
	}
	sess, err := s.sessions.Begin(body.Value().User)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordActiveSessions(r.Context(), int64(s.sessions.Count()))
	writeJSON(w, http.StatusCreated, sess)
}

// logout ends the session named by the bearer token.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header)
	if token == "" {
		s.fail(w, r, errors.Unauthorized("missing bearer token"))
		return
	}
	if err := s.sessions.End(token); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordActiveSessions(r.Context(), int64(s.sessions.Count()))
	w.WriteHeader(http.StatusNoContent)
}

// resetSessions clears every session. Admin token only.
func (s *Server) resetSessions(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header)
	if s.adminToken == "" || token != s.adminToken {
		s.fail(w, r, errors.Unauthorized("admin token required"))
		return
	}
	s.sessions.Reset()
	s.metrics.RecordActiveSessions(r.Context(), 0)
	w.WriteHeader(http.StatusNoContent)
}
