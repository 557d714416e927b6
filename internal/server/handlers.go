package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/armanbance/TwinMind/internal/blob"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}
	}

	sess, err := s.controller.Create(r.Context(), ownerFrom(r.Context()), req.Title)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.controller.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionJSON(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controller.Get(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

// handleSubmitSegment accepts one audio segment for transcription. The body
// is either the raw audio, a multipart form with an "audio" part, or a JSON
// reference to a previously uploaded blob.
func (s *Server) handleSubmitSegment(w http.ResponseWriter, r *http.Request) {
	audio, err := s.readSegment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "empty audio segment")
		return
	}

	order, text, err := s.controller.SubmitSegment(r.Context(), ownerFrom(r.Context()), r.PathValue("id"), audio)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "text": text})
}

// readSegment extracts the audio bytes from the request body.
func (s *Server) readSegment(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxSegmentBytes); err != nil {
			return nil, errors.New("invalid multipart body")
		}
		f, _, err := r.FormFile("audio")
		if err != nil {
			return nil, errors.New(`multipart body is missing an "audio" part`)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxSegmentBytes))

	case "application/json":
		var req struct {
			BlobKey string `json:"blob_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BlobKey == "" {
			return nil, errors.New("JSON body must contain a blob_key")
		}
		if s.blobs == nil {
			return nil, errors.New("blob uploads are not enabled")
		}
		data, err := s.blobs.Get(r.Context(), req.BlobKey)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return nil, errors.New("unknown blob_key")
			}
			return nil, err
		}
		// One-shot staging: the blob is consumed by submission.
		if err := s.blobs.Delete(r.Context(), req.BlobKey); err != nil {
			s.logger.Warn("staged blob cleanup failed", "key", req.BlobKey, "error", err)
		}
		return data, nil

	default:
		return io.ReadAll(io.LimitReader(r.Body, maxSegmentBytes))
	}
}

// handleUploadBlob stages an audio segment for later submission.
func (s *Server) handleUploadBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSegmentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "could not read body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "empty body")
		return
	}
	key, err := s.blobs.Put(r.Context(), data)
	if err != nil {
		s.logger.Error("blob store write failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not store blob")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"blob_key": key})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controller.RequestEnd(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	transcript, status, err := s.controller.TranscriptNow(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transcript": transcript,
		"status":     string(status),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", `missing query parameter "q"`)
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	results, err := s.searcher.Search(r.Context(), ownerFrom(r.Context()), query, limit)
	if err != nil {
		s.logger.Error("transcript search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "search failed")
		return
	}

	type hit struct {
		SessionID string  `json:"session_id"`
		Title     string  `json:"title,omitempty"`
		Snippet   string  `json:"snippet"`
		Score     float64 `json:"score"`
	}
	hits := make([]hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, hit{SessionID: res.SessionID, Title: res.Title, Snippet: res.Snippet, Score: res.Score})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}
