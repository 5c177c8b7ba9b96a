package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchside/calibration-api/internal/domain"
)

// ---- GET /calibrations/{id}/tags ---------------------------------------------

func TestGetTagsForCalibration_200(t *testing.T) {
	calID := uuid.New()
	svc := &mockTaggingServicer{
		tagsForCalibration: func(_ context.Context, id uuid.UUID, at time.Time) ([]string, error) {
			assert.Equal(t, calID, id)
			assert.True(t, at.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
			return []string{"baseline", "verified"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/calibrations/"+calID.String()+"/tags?timestamp=2025-03-01T10:00:00Z", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var tags []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	assert.Equal(t, []string{"baseline", "verified"}, tags)
}

func TestGetTagsForCalibration_200_DefaultsToNow(t *testing.T) {
	var gotAt time.Time
	svc := &mockTaggingServicer{
		tagsForCalibration: func(_ context.Context, _ uuid.UUID, at time.Time) ([]string, error) {
			gotAt = at
			return []string{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/calibrations/"+uuid.NewString()+"/tags", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, time.Now().UTC(), gotAt, time.Minute)
}

func TestGetTagsForCalibration_404(t *testing.T) {
	svc := &mockTaggingServicer{
		tagsForCalibration: func(_ context.Context, _ uuid.UUID, _ time.Time) ([]string, error) {
			return nil, domain.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/calibrations/"+uuid.NewString()+"/tags", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec.Body.Bytes()))
}

func TestGetTagsForCalibration_400_BadUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/calibrations/not-a-uuid/tags", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, &mockTaggingServicer{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- POST /calibrations/{id}/tags --------------------------------------------

func TestAddTagToCalibration_201(t *testing.T) {
	calID := uuid.New()
	fixture := eventFixture(calID, "baseline", domain.KindAdd)
	svc := &mockTaggingServicer{
		addTag: func(_ context.Context, id uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error) {
			assert.Equal(t, calID, id)
			assert.Equal(t, "baseline", tag)
			assert.True(t, occurredAt.IsZero(), "no timestamp in body means zero time (service defaults to now)")
			return fixture, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+calID.String()+"/tags",
		jsonBody(t, map[string]any{"tag": "baseline"}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.TagEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, fixture.ID, got.ID)
	assert.Equal(t, domain.KindAdd, got.Kind)
}

func TestAddTagToCalibration_201_WithTimestamp(t *testing.T) {
	calID := uuid.New()
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &mockTaggingServicer{
		addTag: func(_ context.Context, _ uuid.UUID, _ string, occurredAt time.Time) (domain.TagEvent, error) {
			assert.True(t, occurredAt.Equal(want))
			return eventFixture(calID, "baseline", domain.KindAdd), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+calID.String()+"/tags",
		jsonBody(t, map[string]any{"tag": "baseline", "timestamp": "2025-03-01T10:00:00Z"}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAddTagToCalibration_409_AlreadyTagged(t *testing.T) {
	svc := &mockTaggingServicer{
		addTag: func(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (domain.TagEvent, error) {
			return domain.TagEvent{}, domain.ErrAlreadyTagged
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+uuid.NewString()+"/tags",
		jsonBody(t, map[string]any{"tag": "baseline"}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_tagged", decodeError(t, rec.Body.Bytes()))
}

func TestAddTagToCalibration_422_EmptyTag(t *testing.T) {
	svc := &mockTaggingServicer{
		addTag: func(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (domain.TagEvent, error) {
			return domain.TagEvent{}, domain.ErrValidation
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+uuid.NewString()+"/tags",
		jsonBody(t, map[string]any{"tag": " "}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- POST /calibrations/{id}/tags/bulk -----------------------------------------

func TestAddTagsToCalibration_200(t *testing.T) {
	calID := uuid.New()
	svc := &mockTaggingServicer{
		addTags: func(_ context.Context, _ uuid.UUID, tags []string, _ time.Time) ([]domain.TagEvent, []string, error) {
			assert.Equal(t, []string{"baseline", "verified"}, tags)
			return []domain.TagEvent{eventFixture(calID, "verified", domain.KindAdd)}, []string{"baseline"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+calID.String()+"/tags/bulk",
		jsonBody(t, map[string]any{"tags": []string{"baseline", "verified"}}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Added   []domain.TagEvent `json:"added"`
		Skipped []string          `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Added, 1)
	assert.Equal(t, []string{"baseline"}, resp.Skipped)
}

func TestAddTagsToCalibration_400_NoTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/calibrations/"+uuid.NewString()+"/tags/bulk",
		jsonBody(t, map[string]any{"tags": []string{}}))
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, &mockTaggingServicer{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- DELETE /calibrations/{id}/tags/{tag} --------------------------------------

func TestRemoveTagFromCalibration_200(t *testing.T) {
	calID := uuid.New()
	fixture := eventFixture(calID, "baseline", domain.KindRemove)
	svc := &mockTaggingServicer{
		removeTag: func(_ context.Context, id uuid.UUID, tag string, _ time.Time) (domain.TagEvent, error) {
			assert.Equal(t, calID, id)
			assert.Equal(t, "baseline", tag)
			return fixture, nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/calibrations/"+calID.String()+"/tags/baseline", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.TagEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.KindRemove, got.Kind)
}

func TestRemoveTagFromCalibration_409_NotTagged(t *testing.T) {
	svc := &mockTaggingServicer{
		removeTag: func(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (domain.TagEvent, error) {
			return domain.TagEvent{}, domain.ErrNotTagged
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/calibrations/"+uuid.NewString()+"/tags/baseline", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_tagged", decodeError(t, rec.Body.Bytes()))
}

func TestRemoveTagFromCalibration_400_BadTimestamp(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete,
		"/calibrations/"+uuid.NewString()+"/tags/baseline?timestamp=midnight", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, &mockTaggingServicer{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- GET /tags/{tag}/calibrations ----------------------------------------------

func TestGetCalibrationsByTag_200(t *testing.T) {
	fixture := calibrationFixture()
	svc := &mockTaggingServicer{
		calibrationsByTag: func(_ context.Context, tag string, _ time.Time, username string) ([]domain.Calibration, error) {
			assert.Equal(t, "baseline", tag)
			assert.Equal(t, "mara", username)
			return []domain.Calibration{fixture}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/tags/baseline/calibrations?username=mara", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Calibrations []domain.Calibration `json:"calibrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calibrations, 1)
	assert.Equal(t, fixture.ID, resp.Calibrations[0].ID)
}

func TestGetCalibrationsByTag_409_Integrity(t *testing.T) {
	svc := &mockTaggingServicer{
		calibrationsByTag: func(_ context.Context, _ string, _ time.Time, _ string) ([]domain.Calibration, error) {
			return nil, domain.ErrIntegrity
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/tags/baseline/calibrations", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(nil, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "integrity_violation", decodeError(t, rec.Body.Bytes()))
}
