// Package service contains the business logic for the Calibration API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here — services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/benchside/calibration-api/internal/domain"
	"github.com/benchside/calibration-api/internal/repo"
)

// TaggingService implements the tag use cases on top of the event ledger.
// Current and historical tag state is always reconstructed from ledger events
// at call time; there is no cached association table to fall out of sync.
type TaggingService struct {
	ledger       repo.LedgerRepo
	calibrations repo.CalibrationRepo
}

// NewTaggingService constructs a TaggingService backed by the provided repos.
func NewTaggingService(ledger repo.LedgerRepo, calibrations repo.CalibrationRepo) *TaggingService {
	return &TaggingService{ledger: ledger, calibrations: calibrations}
}

// AddTag records that tag was applied to the calibration at occurredAt
// (zero value means now). Returns domain.ErrNotFound if the calibration does
// not exist, domain.ErrValidation if the tag is empty after trimming, and
// domain.ErrAlreadyTagged if the tag is already active at that instant —
// re-adding an active tag is surfaced, never silently absorbed.
func (s *TaggingService) AddTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error) {
	tag, occurredAt, err := s.checkTagInput(ctx, calibrationID, tag, occurredAt)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.AddTag: %w", err)
	}

	active, err := s.activeTags(ctx, calibrationID, occurredAt)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.AddTag: %w", err)
	}
	if contains(active, tag) {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.AddTag: tag %q: %w", tag, domain.ErrAlreadyTagged)
	}

	stored, err := s.ledger.Append(ctx, domain.TagEvent{
		CalibrationID: calibrationID,
		Tag:           tag,
		Kind:          domain.KindAdd,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.AddTag: %w", err)
	}
	return stored, nil
}

// RemoveTag records that tag was removed from the calibration at occurredAt
// (zero value means now). Returns domain.ErrNotTagged if the tag is not
// active at that instant — removing a tag that was never added is a caller
// mistake and is reported as such.
func (s *TaggingService) RemoveTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error) {
	tag, occurredAt, err := s.checkTagInput(ctx, calibrationID, tag, occurredAt)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.RemoveTag: %w", err)
	}

	active, err := s.activeTags(ctx, calibrationID, occurredAt)
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.RemoveTag: %w", err)
	}
	if !contains(active, tag) {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.RemoveTag: tag %q: %w", tag, domain.ErrNotTagged)
	}

	stored, err := s.ledger.Append(ctx, domain.TagEvent{
		CalibrationID: calibrationID,
		Tag:           tag,
		Kind:          domain.KindRemove,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		return domain.TagEvent{}, fmt.Errorf("service.TaggingService.RemoveTag: %w", err)
	}
	return stored, nil
}

// AddTags applies a batch of tags to a calibration at occurredAt. Tags that
// are already active are skipped and reported rather than failing the batch,
// matching the bulk endpoint's forgiving contract. Empty tags (after
// trimming) still fail the whole batch with domain.ErrValidation.
func (s *TaggingService) AddTags(ctx context.Context, calibrationID uuid.UUID, tags []string, occurredAt time.Time) (added []domain.TagEvent, skipped []string, err error) {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if _, err := s.calibrations.GetByID(ctx, calibrationID); err != nil {
		return nil, nil, fmt.Errorf("service.TaggingService.AddTags: calibration %s: %w", calibrationID, err)
	}

	added = []domain.TagEvent{}
	skipped = []string{}
	seen := map[string]bool{}
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			return nil, nil, fmt.Errorf("service.TaggingService.AddTags: empty tag in batch: %w", domain.ErrValidation)
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true

		active, err := s.activeTags(ctx, calibrationID, occurredAt)
		if err != nil {
			return nil, nil, fmt.Errorf("service.TaggingService.AddTags: %w", err)
		}
		if contains(active, tag) {
			skipped = append(skipped, tag)
			continue
		}

		stored, err := s.ledger.Append(ctx, domain.TagEvent{
			CalibrationID: calibrationID,
			Tag:           tag,
			Kind:          domain.KindAdd,
			OccurredAt:    occurredAt,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("service.TaggingService.AddTags: tag %q: %w", tag, err)
		}
		added = append(added, stored)
	}
	return added, skipped, nil
}

// TagsForCalibration answers "which tags did this calibration carry at
// instant at". The answer is reconstructed from the ledger, so querying a
// past instant keeps returning the historical truth even after later
// removals. Returns a sorted slice; empty (not an error) when no tags were
// active. Returns domain.ErrNotFound if the calibration does not exist.
func (s *TaggingService) TagsForCalibration(ctx context.Context, calibrationID uuid.UUID, at time.Time) ([]string, error) {
	if _, err := s.calibrations.GetByID(ctx, calibrationID); err != nil {
		return nil, fmt.Errorf("service.TaggingService.TagsForCalibration: calibration %s: %w", calibrationID, err)
	}

	tags, err := s.activeTags(ctx, calibrationID, at)
	if err != nil {
		return nil, fmt.Errorf("service.TaggingService.TagsForCalibration: %w", err)
	}
	return tags, nil
}

// CalibrationsByTag answers "which calibrations carried this tag at instant
// at", optionally filtered by username. The ledger yields the active
// calibration IDs; the calibration repo resolves them into records and
// applies the username filter.
func (s *TaggingService) CalibrationsByTag(ctx context.Context, tag string, at time.Time, username string) ([]domain.Calibration, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("service.TaggingService.CalibrationsByTag: tag is required: %w", domain.ErrValidation)
	}

	events, err := s.ledger.EventsForTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("service.TaggingService.CalibrationsByTag: %w", err)
	}

	ids := domain.ActiveCalibrationsAt(events, at)
	cals, err := s.calibrations.ListByIDs(ctx, ids, username)
	if err != nil {
		return nil, fmt.Errorf("service.TaggingService.CalibrationsByTag: %w", err)
	}
	return cals, nil
}

// checkTagInput runs the shared AddTag/RemoveTag preconditions: trim and
// require the tag, default occurredAt to now, and require the calibration to
// exist.
func (s *TaggingService) checkTagInput(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (string, time.Time, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", time.Time{}, fmt.Errorf("tag is required: %w", domain.ErrValidation)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if _, err := s.calibrations.GetByID(ctx, calibrationID); err != nil {
		return "", time.Time{}, fmt.Errorf("calibration %s: %w", calibrationID, err)
	}
	return tag, occurredAt, nil
}

// activeTags reconstructs the active tag set for a calibration at instant at.
func (s *TaggingService) activeTags(ctx context.Context, calibrationID uuid.UUID, at time.Time) ([]string, error) {
	events, err := s.ledger.EventsForCalibration(ctx, calibrationID)
	if err != nil {
		return nil, err
	}
	return domain.ActiveTagsAt(events, at), nil
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
