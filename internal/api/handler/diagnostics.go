package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

// DiagnosticsHandler serves the probe and listing endpoints.
// Probe failures are part of the payload; these endpoints answer 200 unless
// the request itself names unknown media.
type DiagnosticsHandler struct {
	svc usecase.DiagnosticsService
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(svc usecase.DiagnosticsService) *DiagnosticsHandler {
	return &DiagnosticsHandler{svc: svc}
}

// Test handles GET /test/{kind}/{id}
func (h *DiagnosticsHandler) Test(w http.ResponseWriter, r *http.Request) {
	segment, id := chi.URLParam(r, "kind"), chi.URLParam(r, "id")
	kind, err := model.ParseKind(segment)
	if err != nil {
		JSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Unknown media kind " + segment,
			Kind:  segment,
			ID:    id,
		})
		return
	}

	result, err := h.svc.CheckOne(r.Context(), model.MediaRef{Kind: kind, ShortID: id})
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			writeNotFound(w, kind, id)
			return
		}
		Error(w, http.StatusInternalServerError, "Probe failed", "")
		return
	}

	JSON(w, http.StatusOK, result)
}

// Files handles GET /files
func (h *DiagnosticsHandler) Files(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.ListFiles())
}

// Health handles GET /health
func (h *DiagnosticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.CheckSample(r.Context()))
}

// TestAll handles GET /test-all
func (h *DiagnosticsHandler) TestAll(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.CheckAll(r.Context()))
}

// SweepResponse is the JSON view of a stored sweep.
type SweepResponse struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Report    *model.SweepReport `json:"report,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

// SweepHandler serves asynchronous sweeps. A nil service disables them.
type SweepHandler struct {
	svc usecase.SweepService
}

// NewSweepHandler creates a new SweepHandler. svc may be nil.
func NewSweepHandler(svc usecase.SweepService) *SweepHandler {
	return &SweepHandler{svc: svc}
}

// Create handles POST /sweeps
func (h *SweepHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		h.handleServiceError(w, usecase.ErrSweepsDisabled)
		return
	}

	sweep, err := h.svc.RequestSweep(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, toSweepResponse(sweep))
}

// Get handles GET /sweeps/{id}
func (h *SweepHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		h.handleServiceError(w, usecase.ErrSweepsDisabled)
		return
	}

	sweepID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_sweep_id", "Sweep ID must be a valid UUID")
		return
	}

	sweep, err := h.svc.GetSweep(r.Context(), sweepID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toSweepResponse(sweep))
}

func (h *SweepHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrSweepsDisabled):
		Error(w, http.StatusServiceUnavailable, "sweeps_disabled", "Asynchronous sweeps are not configured")
	case errors.Is(err, repository.ErrSweepNotFound):
		Error(w, http.StatusNotFound, "sweep_not_found", "Sweep not found")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toSweepResponse(s *model.Sweep) SweepResponse {
	return SweepResponse{
		ID:        s.ID.String(),
		Status:    s.Status.String(),
		Report:    s.Report,
		Error:     s.Error,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}
