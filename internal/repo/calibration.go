// Package repo contains all database access logic for the Calibration API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/benchside/calibration-api/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CalibrationRepo defines the persistence operations for Calibrations.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type CalibrationRepo interface {
	// Create inserts a new calibration and returns the persisted record
	// (with DB-generated id and created_at populated).
	Create(ctx context.Context, cal domain.Calibration) (domain.Calibration, error)

	// GetByID retrieves a single calibration by its UUID primary key.
	// Returns domain.ErrNotFound if no calibration with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Calibration, error)

	// List returns calibrations matching the filter, ordered by timestamp
	// descending. An empty filter returns everything.
	List(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error)

	// ListByIDs returns the calibrations whose IDs appear in ids, optionally
	// restricted to a username. IDs with no matching row are silently absent
	// from the result. Ordered by timestamp descending.
	ListByIDs(ctx context.Context, ids []uuid.UUID, username string) ([]domain.Calibration, error)
}

// pgCalibrationRepo is the Postgres implementation of CalibrationRepo.
type pgCalibrationRepo struct {
	db db
}

// NewCalibrationRepo constructs a CalibrationRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewCalibrationRepo(db db) CalibrationRepo {
	return &pgCalibrationRepo{db: db}
}

// Create inserts a new calibration row and returns the full persisted record.
func (r *pgCalibrationRepo) Create(ctx context.Context, cal domain.Calibration) (domain.Calibration, error) {
	const q = `
		INSERT INTO calibrations (calibration_type, value, measured_at, username)
		VALUES (@calibration_type, @value, @measured_at, @username)
		RETURNING id, calibration_type, value, measured_at, username, created_at`

	args := pgx.NamedArgs{
		"calibration_type": string(cal.Type),
		"value":            cal.Value,
		"measured_at":      cal.Timestamp,
		"username":         cal.Username,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanCalibration(row)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("repo.CalibrationRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a calibration by primary key.
func (r *pgCalibrationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Calibration, error) {
	const q = `
		SELECT id, calibration_type, value, measured_at, username, created_at
		FROM calibrations
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanCalibration(row)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("repo.CalibrationRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns calibrations matching the filter, most recent measurement first.
// Each filter clause collapses to TRUE when its parameter is NULL, so a single
// statement serves every filter combination.
func (r *pgCalibrationRepo) List(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error) {
	const q = `
		SELECT id, calibration_type, value, measured_at, username, created_at
		FROM calibrations
		WHERE (@username::text IS NULL OR username = @username)
		  AND (@calibration_type::text IS NULL OR calibration_type = @calibration_type)
		  AND (@measured_at::timestamptz IS NULL OR measured_at = @measured_at)
		ORDER BY measured_at DESC`

	args := pgx.NamedArgs{
		"username":         f.Username,
		"calibration_type": (*string)(f.Type),
		"measured_at":      f.Timestamp,
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.CalibrationRepo.List: %w", err)
	}
	defer rows.Close()

	return collectCalibrations(rows, "repo.CalibrationRepo.List")
}

// ListByIDs returns the calibrations for the given IDs, optionally filtered
// by username. Used by the by-tag query to resolve ledger reconstruction
// results into full calibration records.
func (r *pgCalibrationRepo) ListByIDs(ctx context.Context, ids []uuid.UUID, username string) ([]domain.Calibration, error) {
	if len(ids) == 0 {
		return []domain.Calibration{}, nil
	}

	const q = `
		SELECT id, calibration_type, value, measured_at, username, created_at
		FROM calibrations
		WHERE id = ANY(@ids)
		  AND (@username = '' OR username = @username)
		ORDER BY measured_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids, "username": username})
	if err != nil {
		return nil, fmt.Errorf("repo.CalibrationRepo.ListByIDs: %w", err)
	}
	defer rows.Close()

	return collectCalibrations(rows, "repo.CalibrationRepo.ListByIDs")
}

// collectCalibrations drains rows into a slice, wrapping errors with op.
func collectCalibrations(rows pgx.Rows, op string) ([]domain.Calibration, error) {
	cals := []domain.Calibration{}
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		cals = append(cals, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return cals, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan helpers
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanCalibration maps a single database row into a domain.Calibration.
func scanCalibration(s scanner) (domain.Calibration, error) {
	var (
		c       domain.Calibration
		id      pgtype.UUID
		calType string
	)

	err := s.Scan(&id, &calType, &c.Value, &c.Timestamp, &c.Username, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Calibration{}, domain.ErrNotFound
		}
		return domain.Calibration{}, err
	}

	c.ID = uuid.UUID(id.Bytes)
	c.Type = domain.CalibrationType(calType)
	return c, nil
}
