// Package handlers contains the HTTP handler implementations for the fishwatch API.
//
// This file implements the assessment endpoints:
//   - Single assessment (POST /v1/assessments)
//   - Form-encoded assessment (POST /v1/assessments/form)
//   - Batch assessment (POST /v1/assessments/batch)
//   - History (GET /v1/assessments, GET /v1/assessments/{id})
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fishwatch/internal/core"
	"fishwatch/internal/types"
)

// maxFormBodySize bounds form-encoded submissions.
const maxFormBodySize = 64 << 10

// AssessmentServiceInterface defines the service contract for the assessment
// handler. Satisfied by *assess.Service.
type AssessmentServiceInterface interface {
	Assess(ctx context.Context, obs types.Observation) (*types.Assessment, error)
	AssessBatch(ctx context.Context, observations []types.Observation) (*types.BatchAssessmentResult, error)
}

// AssessmentHistory reads recorded assessments. Satisfied by
// *db.AssessmentRepository.
type AssessmentHistory interface {
	GetByID(ctx context.Context, id string) (*types.Assessment, error)
	ListRecent(ctx context.Context, limit int) ([]*types.Assessment, error)
}

// AssessmentHandler maps HTTP requests to the assessment service.
type AssessmentHandler struct {
	service      AssessmentServiceInterface
	history      AssessmentHistory
	validator    *core.Validator
	logger       *slog.Logger
	maxBatchSize int
}

// NewAssessmentHandler creates a new AssessmentHandler. history may be nil when
// no database is configured; the history routes are then not mounted.
func NewAssessmentHandler(
	svc AssessmentServiceInterface,
	history AssessmentHistory,
	val *core.Validator,
	logger *slog.Logger,
	maxBatchSize int,
) *AssessmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBatchSize <= 0 {
		maxBatchSize = types.DefaultMaxBatchSize
	}
	return &AssessmentHandler{
		service:      svc,
		history:      history,
		validator:    val,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}
}

// RegisterRoutes mounts the assessment endpoints onto the mux.
func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleAssess)
	r.Post("/form", h.HandleAssessForm)
	r.Post("/batch", h.HandleAssessBatch)

	if h.history != nil {
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
	}
}

// HandleAssess handles POST /v1/assessments with a JSON observation body.
func (h *AssessmentHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var in types.ObservationInput
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		core.Error(w, r, err)
		return
	}

	h.assessAndRespond(w, r, in.Observation())
}

// HandleAssessForm handles POST /v1/assessments/form. It accepts the same four
// fields as form values so plain HTML forms can submit observations.
func (h *AssessmentHandler) HandleAssessForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	if err := r.ParseForm(); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"request body must be form-encoded",
			err,
		))
		return
	}

	var obs types.Observation
	fields := []struct {
		name string
		code types.ErrorCode
		dst  *float64
	}{
		{"latitude", types.ErrCodeValidationInvalidLat, &obs.Latitude},
		{"longitude", types.ErrCodeValidationInvalidLon, &obs.Longitude},
		{"speed", types.ErrCodeValidationInvalidSpeed, &obs.Speed},
		{"proximity", types.ErrCodeValidationInvalidProximity, &obs.Proximity},
	}

	for _, f := range fields {
		raw := r.PostForm.Get(f.name)
		if raw == "" {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationMissingField,
				f.name+" is required",
				nil,
			))
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				f.code,
				f.name+" must be a valid number",
				nil,
			))
			return
		}
		*f.dst = v
	}

	if err := h.validator.ValidateStruct(obs); err != nil {
		core.Error(w, r, err)
		return
	}

	h.assessAndRespond(w, r, obs)
}

func (h *AssessmentHandler) assessAndRespond(w http.ResponseWriter, r *http.Request, obs types.Observation) {
	assessment, err := h.service.Assess(r.Context(), obs)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: assessment})
}

// HandleAssessBatch handles POST /v1/assessments/batch.
func (h *AssessmentHandler) HandleAssessBatch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchAssessmentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	// Size is checked before field validation so an oversized batch is not
	// walked element by element.
	if len(req.Observations) > h.maxBatchSize {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationBatchSize,
			"too many observations in batch",
			nil,
			map[string]any{
				"max":      h.maxBatchSize,
				"received": len(req.Observations),
			},
		))
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.service.AssessBatch(r.Context(), req.ObservationList())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	flagged := result.Flagged
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: result.Assessments,
		Meta: &core.ResponseMeta{
			Count:   len(result.Assessments),
			Flagged: &flagged,
		},
	})
}

// HandleList handles GET /v1/assessments?limit=N.
func (h *AssessmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := types.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > types.MaxHistoryLimit {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidLimit,
				fmt.Sprintf("limit must be an integer between 1 and %d", types.MaxHistoryLimit),
				nil,
				map[string]any{"limit": raw},
			))
			return
		}
		limit = n
	}

	items, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: items,
		Meta: &core.ResponseMeta{Count: len(items)},
	})
}

// HandleGet handles GET /v1/assessments/{id}. Malformed IDs are reported as
// not found without touching the database.
func (h *AssessmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundAssessment,
			"assessment not found",
			nil,
		))
		return
	}

	assessment, err := h.history.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: assessment})
}
