package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/armanbance/TwinMind/internal/auth"
	"github.com/armanbance/TwinMind/internal/session"
	"github.com/armanbance/TwinMind/internal/store"
)

// ownerFrom returns the owner set by requireAuth. Handlers behind the
// middleware can rely on it being present.
func ownerFrom(ctx context.Context) string {
	return auth.OwnerFrom(ctx)
}

// requireAuth resolves the bearer token and stores the owner in the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		owner, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}
		next(w, r.WithContext(auth.WithOwner(r.Context(), owner)))
	})
}

// errorBody is the JSON error envelope for all non-2xx responses.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeSessionError maps the session error taxonomy onto HTTP status codes.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	var serr *session.Error
	if !errors.As(err, &serr) {
		s.logger.Error("unclassified handler error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeError(w, statusForCode(serr.Code), string(serr.Code), serr.Message)
}

func statusForCode(code session.Code) int {
	switch code {
	case session.CodeNotFound:
		return http.StatusNotFound
	case session.CodeForbidden:
		return http.StatusForbidden
	case session.CodeNotActive, session.CodeAlreadyCompleted, session.CodeNotCompleted:
		return http.StatusConflict
	case session.CodeEmptyTranscript, session.CodeInvalidAudio:
		return http.StatusUnprocessableEntity
	case session.CodeProcessingFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionJSON is the wire shape of a session.
type sessionJSON struct {
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func toSessionJSON(sess *store.Session) sessionJSON {
	out := sessionJSON{
		ID:         sess.ID,
		Title:      sess.Title,
		Status:     string(sess.Status),
		CreatedAt:  sess.CreatedAt,
		Transcript: sess.Transcript,
		Summary:    sess.Summary,
		Error:      sess.ErrorMessage,
	}
	if !sess.EndedAt.IsZero() {
		ended := sess.EndedAt
		out.EndedAt = &ended
	}
	return out
}
