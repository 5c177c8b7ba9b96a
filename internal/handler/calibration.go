package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benchside/calibration-api/internal/domain"
)

// calibrationCreateRequest is the body of POST /calibrations.
// Timestamp is the ISO 8601 instant the measurement was taken.
type calibrationCreateRequest struct {
	CalibrationType string  `json:"calibration_type"`
	Value           float64 `json:"value"`
	Timestamp       string  `json:"timestamp"`
	Username        string  `json:"username"`
}

// CreateCalibration handles POST /calibrations.
func (s *Server) CreateCalibration(w http.ResponseWriter, r *http.Request) {
	var req calibrationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeBadRequest(w, "timestamp must be a valid ISO 8601 instant")
		return
	}

	created, err := s.calibrations.Create(r.Context(), domain.Calibration{
		Type:      domain.CalibrationType(req.CalibrationType),
		Value:     req.Value,
		Timestamp: ts.UTC(),
		Username:  req.Username,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetCalibration handles GET /calibrations/{calibrationID}.
func (s *Server) GetCalibration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "calibrationID")
	if !ok {
		return
	}

	cal, err := s.calibrations.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cal)
}

// ListCalibrations handles GET /calibrations.
// Optional query params: username, calibration_type, timestamp (exact match).
func (s *Server) ListCalibrations(w http.ResponseWriter, r *http.Request) {
	var f domain.CalibrationFilter

	if v := r.URL.Query().Get("username"); v != "" {
		f.Username = &v
	}
	if v := r.URL.Query().Get("calibration_type"); v != "" {
		ct := domain.CalibrationType(v)
		f.Type = &ct
	}
	if v := r.URL.Query().Get("timestamp"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "timestamp must be a valid ISO 8601 instant")
			return
		}
		utc := ts.UTC()
		f.Timestamp = &utc
	}

	cals, err := s.calibrations.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"calibrations": cals})
}
