package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/benchside/calibration-api/internal/domain"
	"github.com/benchside/calibration-api/internal/handler"
)

// mockCalibrationServicer is a test double for handler.CalibrationServicer.
// Set only the method fields your test needs.
type mockCalibrationServicer struct {
	create  func(ctx context.Context, cal domain.Calibration) (domain.Calibration, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Calibration, error)
	list    func(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error)
}

func (m *mockCalibrationServicer) Create(ctx context.Context, cal domain.Calibration) (domain.Calibration, error) {
	return m.create(ctx, cal)
}
func (m *mockCalibrationServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Calibration, error) {
	return m.getByID(ctx, id)
}
func (m *mockCalibrationServicer) List(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error) {
	return m.list(ctx, f)
}

// compile-time check: mockCalibrationServicer must satisfy handler.CalibrationServicer.
var _ handler.CalibrationServicer = (*mockCalibrationServicer)(nil)

// mockTaggingServicer is a test double for handler.TaggingServicer.
type mockTaggingServicer struct {
	addTag             func(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error)
	removeTag          func(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error)
	addTags            func(ctx context.Context, calibrationID uuid.UUID, tags []string, occurredAt time.Time) ([]domain.TagEvent, []string, error)
	tagsForCalibration func(ctx context.Context, calibrationID uuid.UUID, at time.Time) ([]string, error)
	calibrationsByTag  func(ctx context.Context, tag string, at time.Time, username string) ([]domain.Calibration, error)
}

func (m *mockTaggingServicer) AddTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error) {
	return m.addTag(ctx, calibrationID, tag, occurredAt)
}
func (m *mockTaggingServicer) RemoveTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error) {
	return m.removeTag(ctx, calibrationID, tag, occurredAt)
}
func (m *mockTaggingServicer) AddTags(ctx context.Context, calibrationID uuid.UUID, tags []string, occurredAt time.Time) ([]domain.TagEvent, []string, error) {
	return m.addTags(ctx, calibrationID, tags, occurredAt)
}
func (m *mockTaggingServicer) TagsForCalibration(ctx context.Context, calibrationID uuid.UUID, at time.Time) ([]string, error) {
	return m.tagsForCalibration(ctx, calibrationID, at)
}
func (m *mockTaggingServicer) CalibrationsByTag(ctx context.Context, tag string, at time.Time, username string) ([]domain.Calibration, error) {
	return m.calibrationsByTag(ctx, tag, at, username)
}

// compile-time check: mockTaggingServicer must satisfy handler.TaggingServicer.
var _ handler.TaggingServicer = (*mockTaggingServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into its chi router.
// This mirrors exactly how main.go wires it in production.
func newHTTPHandler(cal handler.CalibrationServicer, tagging handler.TaggingServicer) http.Handler {
	return handler.NewServer(cal, tagging).Routes()
}

func calibrationFixture() domain.Calibration {
	return domain.Calibration{
		ID:        uuid.New(),
		Type:      domain.TypeGain,
		Value:     1.25,
		Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Username:  "mara",
		CreatedAt: time.Now().UTC(),
	}
}

func eventFixture(calID uuid.UUID, tag string, kind domain.EventKind) domain.TagEvent {
	occurred := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.TagEvent{
		ID:            uuid.New(),
		CalibrationID: calID,
		Tag:           tag,
		Kind:          kind,
		OccurredAt:    occurred,
		RecordedAt:    occurred.Add(time.Second),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// decodeError parses the JSON error envelope and returns the code.
func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}
