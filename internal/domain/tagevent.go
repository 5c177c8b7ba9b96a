package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the action a TagEvent records.
type EventKind string

const (
	KindAdd    EventKind = "add"
	KindRemove EventKind = "remove"
)

// TagEvent is one immutable entry in the tag ledger: a tag was added to or
// removed from a calibration at a point in time. Events are never updated or
// deleted — removing a tag appends a remove event, it does not touch the
// earlier add event. The full history stays queryable forever.
//
// OccurredAt is when the action took effect (caller-supplied or defaulted to
// now by the service). RecordedAt is when the ledger accepted the event; it is
// always stamped by the store and breaks ties between events that share the
// same OccurredAt.
type TagEvent struct {
	ID            uuid.UUID `json:"id"`
	CalibrationID uuid.UUID `json:"calibration_id"`
	Tag           string    `json:"tag"`
	Kind          EventKind `json:"kind"`
	OccurredAt    time.Time `json:"occurred_at"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// pairKey identifies the (tag, calibration) pair an event belongs to.
// The alternation invariant is scoped to this key.
type pairKey struct {
	calibrationID uuid.UUID
	tag           string
}

func (e TagEvent) pair() pairKey {
	return pairKey{calibrationID: e.CalibrationID, tag: e.Tag}
}
