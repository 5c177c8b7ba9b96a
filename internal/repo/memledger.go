package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benchside/calibration-api/internal/domain"
)

// MemoryLedger is an in-memory LedgerRepo. It backs the service unit tests
// and works as a real storage choice for single-process deployments; the
// ledger contract deliberately fits both a database and a map.
//
// A single mutex guards the slice. Appends hold it for the duration of the
// alternation check plus insert, which gives the same per-pair serialization
// the Postgres implementation gets from its advisory lock. Queries copy the
// matching events out under the lock so callers can sort and mutate freely.
type MemoryLedger struct {
	mu     sync.Mutex
	events []domain.TagEvent
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// compile-time check: MemoryLedger must satisfy LedgerRepo.
var _ LedgerRepo = (*MemoryLedger)(nil)

// Append stamps RecordedAt, validates the alternation invariant for the
// event's (tag, calibration) pair, and stores the event.
func (l *MemoryLedger) Append(ctx context.Context, ev domain.TagEvent) (domain.TagEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.MemoryLedger.Append: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev.ID = uuid.New()
	ev.RecordedAt = time.Now().UTC()
	if err := domain.CheckAlternation(l.events, ev); err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.MemoryLedger.Append: %w", err)
	}

	l.events = append(l.events, ev)
	return ev, nil
}

// EventsForCalibration returns a copy of all events for a calibration.
func (l *MemoryLedger) EventsForCalibration(ctx context.Context, calibrationID uuid.UUID) ([]domain.TagEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemoryLedger.EventsForCalibration: %w", err)
	}
	return l.filter(func(e domain.TagEvent) bool { return e.CalibrationID == calibrationID }), nil
}

// EventsForTag returns a copy of all events for a tag.
func (l *MemoryLedger) EventsForTag(ctx context.Context, tag string) ([]domain.TagEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemoryLedger.EventsForTag: %w", err)
	}
	return l.filter(func(e domain.TagEvent) bool { return e.Tag == tag }), nil
}

func (l *MemoryLedger) filter(keep func(domain.TagEvent) bool) []domain.TagEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []domain.TagEvent{}
	for _, e := range l.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
