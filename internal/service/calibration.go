package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/benchside/calibration-api/internal/domain"
	"github.com/benchside/calibration-api/internal/repo"
)

// CalibrationService implements business logic for Calibration records.
type CalibrationService struct {
	repo repo.CalibrationRepo
}

// NewCalibrationService constructs a CalibrationService backed by the provided repo.
func NewCalibrationService(r repo.CalibrationRepo) *CalibrationService {
	return &CalibrationService{repo: r}
}

// Create validates and persists a new calibration.
func (s *CalibrationService) Create(ctx context.Context, cal domain.Calibration) (domain.Calibration, error) {
	if _, err := domain.ParseCalibrationType(string(cal.Type)); err != nil {
		return domain.Calibration{}, fmt.Errorf("service.CalibrationService.Create: %w", err)
	}
	if cal.Username == "" {
		return domain.Calibration{}, fmt.Errorf("service.CalibrationService.Create: username is required: %w", domain.ErrValidation)
	}
	if cal.Timestamp.IsZero() {
		return domain.Calibration{}, fmt.Errorf("service.CalibrationService.Create: timestamp is required: %w", domain.ErrValidation)
	}

	created, err := s.repo.Create(ctx, cal)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("service.CalibrationService.Create: %w", err)
	}
	return created, nil
}

// GetByID returns a single calibration by ID.
func (s *CalibrationService) GetByID(ctx context.Context, id uuid.UUID) (domain.Calibration, error) {
	cal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Calibration{}, fmt.Errorf("service.CalibrationService.GetByID: %w", err)
	}
	return cal, nil
}

// List returns calibrations matching the filter.
func (s *CalibrationService) List(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error) {
	if f.Type != nil {
		if _, err := domain.ParseCalibrationType(string(*f.Type)); err != nil {
			return nil, fmt.Errorf("service.CalibrationService.List: %w", err)
		}
	}

	cals, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service.CalibrationService.List: %w", err)
	}
	return cals, nil
}
