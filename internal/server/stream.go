package server

import (
	"encoding/json"
	"net/http"

	"github.com/armanbance/TwinMind/internal/answer"
)

// handleAsk streams an answer over server-sent events. Failures before the
// first token are reported as a regular HTTP error; failures after streaming
// started arrive in-band as an "error" event.
func (s *Server) handleAsk(mode answer.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "body must contain a question")
			return
		}

		events, err := s.answers.Ask(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), req.Question, mode)
		if err != nil {
			s.writeSessionError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for ev := range events {
			switch {
			case ev.Err != "":
				writeSSE(w, "error", map[string]string{"message": ev.Err})
			case ev.Done:
				writeSSE(w, "done", map[string]string{})
			default:
				writeSSE(w, "delta", map[string]string{"text": ev.Delta})
			}
			flusher.Flush()
		}
	}
}

// writeSSE writes a single named server-sent event with a JSON payload.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n"))
}
