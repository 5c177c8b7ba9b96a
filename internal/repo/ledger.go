package repo

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/benchside/calibration-api/internal/domain"
)

// LedgerRepo defines the persistence operations for the tag event ledger.
// The ledger is append-only: there is deliberately no update or delete method,
// so tag history can never be rewritten through this interface.
//
// Ownership of the append-serialization discipline lives here, not in the
// service layer — a caller cannot bypass the alternation invariant by racing
// two appends for the same (tag, calibration) pair.
type LedgerRepo interface {
	// Append stamps RecordedAt, verifies the ADD/REMOVE alternation for the
	// event's (tag, calibration) pair, and durably stores the event. Returns
	// the stored event, or domain.ErrIntegrity (wrapped) if the append would
	// corrupt the pair's history. Concurrent appends for the same pair are
	// serialized; appends for different pairs do not block each other.
	Append(ctx context.Context, ev domain.TagEvent) (domain.TagEvent, error)

	// EventsForCalibration returns all events for a calibration, any tag.
	// No ordering is guaranteed — callers sort via domain.SortEvents.
	EventsForCalibration(ctx context.Context, calibrationID uuid.UUID) ([]domain.TagEvent, error)

	// EventsForTag returns all events for a tag, any calibration.
	EventsForTag(ctx context.Context, tag string) ([]domain.TagEvent, error)
}

// txdb extends db with the ability to open a transaction. *pgxpool.Pool and
// pgx.Tx both satisfy it (a Tx begins a nested transaction via savepoint,
// which keeps the rollback isolation used by integration tests intact).
type txdb interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgLedgerRepo is the Postgres implementation of LedgerRepo.
type pgLedgerRepo struct {
	db txdb
}

// NewLedgerRepo constructs a LedgerRepo backed by the provided db connection.
func NewLedgerRepo(db txdb) LedgerRepo {
	return &pgLedgerRepo{db: db}
}

// Append inserts one event inside a transaction that holds an advisory lock
// on the (tag, calibration) pair. The lock serializes concurrent appends for
// the pair; the pair history is then re-read and the candidate validated
// against it, so the alternation check and the insert are atomic. Reads never
// take the lock.
func (r *pgLedgerRepo) Append(ctx context.Context, ev domain.TagEvent) (domain.TagEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(@key)`,
		pgx.NamedArgs{"key": pairLockKey(ev.CalibrationID, ev.Tag)}); err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: lock: %w", err)
	}

	history, err := eventsForPair(ctx, tx, ev.CalibrationID, ev.Tag)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: %w", err)
	}

	// RecordedAt is stamped here, before the check, so the candidate sorts
	// against the history with its real tie-break value.
	ev.RecordedAt = time.Now().UTC()
	if err := domain.CheckAlternation(history, ev); err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: %w", err)
	}

	const q = `
		INSERT INTO tag_events (calibration_id, tag, kind, occurred_at, recorded_at)
		VALUES (@calibration_id, @tag, @kind, @occurred_at, @recorded_at)
		RETURNING id, calibration_id, tag, kind, occurred_at, recorded_at`

	args := pgx.NamedArgs{
		"calibration_id": ev.CalibrationID,
		"tag":            ev.Tag,
		"kind":           string(ev.Kind),
		"occurred_at":    ev.OccurredAt,
		"recorded_at":    ev.RecordedAt,
	}

	stored, err := scanTagEvent(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.TagEvent{}, fmt.Errorf("repo.LedgerRepo.Append: commit: %w", err)
	}
	return stored, nil
}

// EventsForCalibration returns every ledger event for a calibration.
func (r *pgLedgerRepo) EventsForCalibration(ctx context.Context, calibrationID uuid.UUID) ([]domain.TagEvent, error) {
	const q = `
		SELECT id, calibration_id, tag, kind, occurred_at, recorded_at
		FROM tag_events
		WHERE calibration_id = @calibration_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"calibration_id": calibrationID})
	if err != nil {
		return nil, fmt.Errorf("repo.LedgerRepo.EventsForCalibration: %w", err)
	}
	defer rows.Close()

	return collectTagEvents(rows, "repo.LedgerRepo.EventsForCalibration")
}

// EventsForTag returns every ledger event for a tag.
func (r *pgLedgerRepo) EventsForTag(ctx context.Context, tag string) ([]domain.TagEvent, error) {
	const q = `
		SELECT id, calibration_id, tag, kind, occurred_at, recorded_at
		FROM tag_events
		WHERE tag = @tag`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tag": tag})
	if err != nil {
		return nil, fmt.Errorf("repo.LedgerRepo.EventsForTag: %w", err)
	}
	defer rows.Close()

	return collectTagEvents(rows, "repo.LedgerRepo.EventsForTag")
}

// eventsForPair reads the history of one (tag, calibration) pair within the
// append transaction.
func eventsForPair(ctx context.Context, q db, calibrationID uuid.UUID, tag string) ([]domain.TagEvent, error) {
	const sql = `
		SELECT id, calibration_id, tag, kind, occurred_at, recorded_at
		FROM tag_events
		WHERE calibration_id = @calibration_id AND tag = @tag`

	rows, err := q.Query(ctx, sql, pgx.NamedArgs{"calibration_id": calibrationID, "tag": tag})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTagEvents(rows, "pair history")
}

// pairLockKey derives the advisory lock key for a (tag, calibration) pair.
// FNV-64a over the calibration ID bytes and the tag, NUL-separated. A hash
// collision only over-serializes two unrelated pairs; it cannot corrupt data.
func pairLockKey(calibrationID uuid.UUID, tag string) int64 {
	h := fnv.New64a()
	h.Write(calibrationID[:])
	h.Write([]byte{0})
	h.Write([]byte(tag))
	return int64(h.Sum64())
}

// collectTagEvents drains rows into a slice, wrapping errors with op.
func collectTagEvents(rows pgx.Rows, op string) ([]domain.TagEvent, error) {
	events := []domain.TagEvent{}
	for rows.Next() {
		e, err := scanTagEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return events, nil
}

// scanTagEvent maps a single database row into a domain.TagEvent.
func scanTagEvent(s scanner) (domain.TagEvent, error) {
	var (
		e     domain.TagEvent
		id    pgtype.UUID
		calID pgtype.UUID
		kind  string
	)

	err := s.Scan(&id, &calID, &e.Tag, &kind, &e.OccurredAt, &e.RecordedAt)
	if err != nil {
		return domain.TagEvent{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.CalibrationID = uuid.UUID(calID.Bytes)
	e.Kind = domain.EventKind(kind)
	return e, nil
}
