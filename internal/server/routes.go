package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/zsiec/blend/internal/compositor"
	"github.com/zsiec/blend/internal/errors"
	"github.com/zsiec/blend/pkg/version"
)

// handleVersion handles the /version endpoint
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.GetInfo()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(versionInfo); err != nil {
		s.logger.WithError(err).Error("Failed to encode version response")
		s.errorHandler.HandleError(w, r, err)
	}
}

// handleSessionStats returns the current compositing session snapshot.
func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, r, errors.NewNotFoundError("session"))
		return
	}

	if err := s.writeJSON(w, http.StatusOK, s.stats()); err != nil {
		s.logger.WithError(err).Error("Failed to encode session response")
	}
}

// handleStreamStats returns per-stream counters only.
func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, r, errors.NewNotFoundError("session"))
		return
	}

	stats := s.stats()
	response := struct {
		SessionID string      `json:"session_id"`
		Streams   interface{} `json:"streams"`
	}{
		SessionID: stats.SessionID,
		Streams:   stats.Streams,
	}

	if err := s.writeJSON(w, http.StatusOK, response); err != nil {
		s.logger.WithError(err).Error("Failed to encode streams response")
	}
}

// handleStreamStat returns a single stream's counters. Unknown stream
// identifiers surface as the compositor's stream error kind.
func (s *Server) handleStreamStat(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, r, errors.NewNotFoundError("session"))
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, errors.NewValidationError("stream id must be an integer"))
		return
	}

	stats := s.stats()
	for _, stream := range stats.Streams {
		if stream.ID == id {
			if err := s.writeJSON(w, http.StatusOK, stream); err != nil {
				s.logger.WithError(err).Error("Failed to encode stream response")
			}
			return
		}
	}

	s.writeError(w, r, &compositor.StreamError{Op: "get stream stats", StreamID: id})
}

// writeJSON is a helper to write JSON responses
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// writeError is a helper to write error responses
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler.HandleError(w, r, err)
}
