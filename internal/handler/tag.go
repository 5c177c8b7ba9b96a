package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// tagOperationRequest is the body of POST /calibrations/{id}/tags.
// Timestamp is optional; empty means "now".
type tagOperationRequest struct {
	Tag       string `json:"tag"`
	Timestamp string `json:"timestamp,omitempty"`
}

// bulkTagRequest is the body of POST /calibrations/{id}/tags/bulk.
type bulkTagRequest struct {
	Tags      []string `json:"tags"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// GetTagsForCalibration handles GET /calibrations/{calibrationID}/tags.
// The optional ?timestamp= query param asks for the tag set as of a past
// instant; it defaults to now so the route doubles as "current tags".
func (s *Server) GetTagsForCalibration(w http.ResponseWriter, r *http.Request) {
	calID, ok := pathUUID(w, r, "calibrationID")
	if !ok {
		return
	}
	at, ok := queryTime(w, r, "timestamp")
	if !ok {
		return
	}

	tags, err := s.tagging.TagsForCalibration(r.Context(), calID, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// AddTagToCalibration handles POST /calibrations/{calibrationID}/tags.
func (s *Server) AddTagToCalibration(w http.ResponseWriter, r *http.Request) {
	calID, ok := pathUUID(w, r, "calibrationID")
	if !ok {
		return
	}

	var req tagOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	occurredAt, ok := parseOptionalTime(w, req.Timestamp)
	if !ok {
		return
	}

	ev, err := s.tagging.AddTag(r.Context(), calID, req.Tag, occurredAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// AddTagsToCalibration handles POST /calibrations/{calibrationID}/tags/bulk.
// Already-active tags are reported in "skipped" rather than failing the batch.
func (s *Server) AddTagsToCalibration(w http.ResponseWriter, r *http.Request) {
	calID, ok := pathUUID(w, r, "calibrationID")
	if !ok {
		return
	}

	var req bulkTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Tags) == 0 {
		writeBadRequest(w, "tags must not be empty")
		return
	}
	occurredAt, ok := parseOptionalTime(w, req.Timestamp)
	if !ok {
		return
	}

	added, skipped, err := s.tagging.AddTags(r.Context(), calID, req.Tags, occurredAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"added": added, "skipped": skipped})
}

// RemoveTagFromCalibration handles DELETE /calibrations/{calibrationID}/tags/{tag}.
// The optional ?timestamp= query param backdates the removal.
func (s *Server) RemoveTagFromCalibration(w http.ResponseWriter, r *http.Request) {
	calID, ok := pathUUID(w, r, "calibrationID")
	if !ok {
		return
	}
	occurredAt, ok := parseOptionalTime(w, r.URL.Query().Get("timestamp"))
	if !ok {
		return
	}

	ev, err := s.tagging.RemoveTag(r.Context(), calID, chi.URLParam(r, "tag"), occurredAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// GetCalibrationsByTag handles GET /tags/{tag}/calibrations.
// Optional query params: timestamp (defaults to now), username.
func (s *Server) GetCalibrationsByTag(w http.ResponseWriter, r *http.Request) {
	at, ok := queryTime(w, r, "timestamp")
	if !ok {
		return
	}

	cals, err := s.tagging.CalibrationsByTag(r.Context(), chi.URLParam(r, "tag"), at, r.URL.Query().Get("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"calibrations": cals})
}

// ---- request parsing helpers -----------------------------------------------

// pathUUID parses a UUID path param, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryTime parses an RFC 3339 query param, defaulting to now (UTC) when
// absent. Writes a 400 on parse failure.
func queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Now().UTC(), true
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeBadRequest(w, name+" must be a valid ISO 8601 instant")
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// parseOptionalTime parses an RFC 3339 body field; empty means the zero time,
// which the service interprets as "now". Writes a 400 on parse failure.
func parseOptionalTime(w http.ResponseWriter, v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, true
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeBadRequest(w, "timestamp must be a valid ISO 8601 instant")
		return time.Time{}, false
	}
	return ts.UTC(), true
}
