// Package handler implements the HTTP handlers for the Calibration API.
// All handlers are methods on Server. Methods are split into resource-specific
// files (health.go, calibration.go, tag.go) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/benchside/calibration-api/internal/domain"
	"github.com/benchside/calibration-api/spec"
)

// CalibrationServicer defines the business operations the calibration
// handlers depend on. Defining the interface here (in the consumer package)
// follows the Go convention: "accept interfaces, return concrete types".
// It lets handler tests inject a mock without touching the database or
// service layer.
type CalibrationServicer interface {
	Create(ctx context.Context, cal domain.Calibration) (domain.Calibration, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Calibration, error)
	List(ctx context.Context, f domain.CalibrationFilter) ([]domain.Calibration, error)
}

// TaggingServicer defines the business operations the tagging handlers depend on.
type TaggingServicer interface {
	AddTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error)
	RemoveTag(ctx context.Context, calibrationID uuid.UUID, tag string, occurredAt time.Time) (domain.TagEvent, error)
	AddTags(ctx context.Context, calibrationID uuid.UUID, tags []string, occurredAt time.Time) ([]domain.TagEvent, []string, error)
	TagsForCalibration(ctx context.Context, calibrationID uuid.UUID, at time.Time) ([]string, error)
	CalibrationsByTag(ctx context.Context, tag string, at time.Time, username string) ([]domain.Calibration, error)
}

// Server holds the handler dependencies for all API endpoints.
// Methods are in resource-specific files but all operate on this struct.
type Server struct {
	calibrations CalibrationServicer
	tagging      TaggingServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(calibrations CalibrationServicer, tagging TaggingServicer) *Server {
	return &Server{calibrations: calibrations, tagging: tagging}
}

// Routes returns the chi router for the full API surface.
// Mount it at "/" in main.go after the middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})

	r.Route("/calibrations", func(r chi.Router) {
		r.Post("/", s.CreateCalibration)
		r.Get("/", s.ListCalibrations)
		r.Route("/{calibrationID}", func(r chi.Router) {
			r.Get("/", s.GetCalibration)
			r.Get("/tags", s.GetTagsForCalibration)
			r.Post("/tags", s.AddTagToCalibration)
			r.Post("/tags/bulk", s.AddTagsToCalibration)
			r.Delete("/tags/{tag}", s.RemoveTagFromCalibration)
		})
	})

	r.Get("/tags/{tag}/calibrations", s.GetCalibrationsByTag)

	return r
}
