// Package domain contains the core data types for the Calibration API.
// It depends on nothing else in internal/ and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CalibrationType enumerates the kinds of calibration the device supports.
type CalibrationType string

const (
	TypeGain        CalibrationType = "gain"
	TypeOffset      CalibrationType = "offset"
	TypePressure    CalibrationType = "pressure"
	TypeTemperature CalibrationType = "temperature"
)

// ParseCalibrationType converts a raw string into a CalibrationType.
// Returns ErrValidation (wrapped) for unknown values.
func ParseCalibrationType(s string) (CalibrationType, error) {
	switch CalibrationType(s) {
	case TypeGain, TypeOffset, TypePressure, TypeTemperature:
		return CalibrationType(s), nil
	}
	return "", fmt.Errorf("unknown calibration type %q: %w", s, ErrValidation)
}

// Calibration represents a single measurement taken against the device.
// Timestamp is when the measurement was performed (caller-supplied);
// CreatedAt is when the record was persisted.
type Calibration struct {
	ID        uuid.UUID       `json:"id"`
	Type      CalibrationType `json:"calibration_type"`
	Value     float64         `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
	Username  string          `json:"username"`
	CreatedAt time.Time       `json:"created_at"`
}

// CalibrationFilter narrows List queries. Nil fields mean "no constraint".
type CalibrationFilter struct {
	// Username filters to calibrations recorded by this user.
	Username *string
	// Type filters to a single calibration type.
	Type *CalibrationType
	// Timestamp filters to calibrations measured at this exact instant.
	Timestamp *time.Time
}
