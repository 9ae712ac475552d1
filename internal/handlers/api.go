// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wordrelay/relay/internal/auth"
	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/session"
)

// PingHandler is a trivial liveness endpoint.
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps the session error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type createSessionRequest struct {
	OwnerName       string      `json:"ownerName"`
	Mode            models.Mode `json:"mode"`
	SourceText      string      `json:"sourceText"`
	DurationMinutes int         `json:"durationMinutes"`
}

type createSessionResponse struct {
	Code       string          `json:"code"`
	OwnerToken string          `json:"ownerToken"`
	Session    *models.Session `json:"session"`
}

// CreateSessionHandler builds a new session from owner input and returns the
// claimed code together with the owner token gating owner-only commands.
func CreateSessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		sess, err := s.Manager.CreateSession(r.Context(), req.OwnerName, req.Mode, req.SourceText, req.DurationMinutes)
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}
		token, err := auth.CreateOwnerToken(sess.Code)
		if err != nil {
			s.Logger.Errorf("owner token for %s: %v", sess.Code, err)
			http.Error(w, "failed to issue owner token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, createSessionResponse{
			Code:       sess.Code,
			OwnerToken: token,
			Session:    sess,
		})
	}
}

type joinSessionRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type joinSessionResponse struct {
	ParticipantID string          `json:"participantId"`
	Session       *models.Session `json:"session"`
}

// JoinSessionHandler adds a participant to an existing session. The returned
// participant id resumes the record on the session WebSocket.
func JoinSessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req joinSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		sctx, snap, err := s.Manager.JoinSession(r.Context(), req.Name, req.Code)
		if err != nil {
			http.Error(w, err.Error(), errorStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, joinSessionResponse{
			ParticipantID: sctx.ParticipantID(),
			Session:       snap,
		})
	}
}

// StandingsHandler exposes archived final standings for an ended session.
// Wired only when the archive database is connected.
func StandingsHandler(s *Server, fetch func(r *http.Request, code string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		out, err := fetch(r, code)
		if err != nil {
			s.Logger.Warnf("standings for %s: %v", code, err)
			http.Error(w, "standings unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
