package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// handleIntent runs one request through the engine and returns the full
// reply, including the stage trail and per-device results.
//
// The request ID defaults to the HTTP request ID so logs line up.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req climate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(string(req.Verb)) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "verb is required")
		return
	}
	if req.ID == "" {
		req.ID = requestIDFrom(r.Context())
	}

	reply, err := s.handler.Handle(r.Context(), req)
	if errors.Is(err, climate.ErrRegistryUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, reply)
		return
	}
	if err != nil {
		s.logger.Error("intent failed", "request_id", req.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, reply)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// handleRegistryStats returns the size of the loaded registry.
func (s *Server) handleRegistryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// handleRegistryRefresh reloads the registry from storage. On failure the
// previous snapshot stays in place.
func (s *Server) handleRegistryRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Refresh(r.Context()); err != nil {
		s.logger.Error("registry refresh failed", "error", err)
		writeUnavailable(w, "registry refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// handleListCommands returns paginated command audit entries.
//
// Query parameters:
//   - device_id: filter by device
//   - request_id: filter by voice request
//   - status: ok, timeout or failed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, "command audit not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID:  q.Get("device_id"),
		RequestID: q.Get("request_id"),
		Status:    q.Get("status"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.commands.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
