// Package handler internal/infrastructure/handler/run_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// PipelineRunner runs the pipeline for a rate window
type PipelineRunner interface {
	Run(ctx context.Context, start, end time.Time) (*entity.PipelineRun, error)
}

// RunHandler handles HTTP requests for pipeline runs
type RunHandler struct {
	pipeline     PipelineRunner
	runs         repository.RunRepository
	defaultStart time.Time
	defaultEnd   time.Time
	logger       logger.Logger
}

// NewRunHandler creates a new run handler. Runs triggered without a window use
// [defaultStart, defaultEnd].
func NewRunHandler(pipeline PipelineRunner, runs repository.RunRepository, defaultStart, defaultEnd time.Time, log logger.Logger) *RunHandler {
	if log == nil {
		log = logger.Nop()
	}

	return &RunHandler{
		pipeline:     pipeline,
		runs:         runs,
		defaultStart: defaultStart,
		defaultEnd:   defaultEnd,
		logger:       log,
	}
}

// TriggerRun runs the pipeline and returns the run summary
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	start, err := parseDate(r.URL.Query().Get("start"), h.defaultStart)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid start date",
			"The 'start' query parameter must be formatted as YYYY-MM-DD", http.StatusBadRequest, requestID)
		return
	}

	end, err := parseDate(r.URL.Query().Get("end"), h.defaultEnd)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid end date",
			"The 'end' query parameter must be formatted as YYYY-MM-DD", http.StatusBadRequest, requestID)
		return
	}

	if start.After(end) {
		sendErrorResponse(w, h.logger, "Invalid date range",
			"The start date must not be after the end date", http.StatusBadRequest, requestID)
		return
	}

	h.logger.Info("Handling trigger run request", map[string]interface{}{
		"request_id": requestID,
		"start":      start.Format(dateLayout),
		"end":        end.Format(dateLayout),
	})

	run, err := h.pipeline.Run(r.Context(), start, end)
	if err != nil && run == nil {
		h.logger.Error("Pipeline run failed", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Pipeline run failed",
			"The pipeline could not be run. Please try again later.", http.StatusInternalServerError, requestID)
		return
	}
	if err != nil {
		// The run completed; only archiving failed
		h.logger.Warn("Pipeline run was not archived", map[string]interface{}{
			"request_id": requestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		})
	}

	sendJSON(w, h.logger, http.StatusCreated, toSummary(run))
}

// GetLatestRun returns the summary of the most recent run
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r, func(ctx context.Context) (*entity.PipelineRun, error) {
		return h.runs.Latest(ctx)
	})
	if ok {
		sendJSON(w, h.logger, http.StatusOK, toSummary(run))
	}
}

// GetRun returns the summary of a run
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, ok := h.lookup(w, r, func(ctx context.Context) (*entity.PipelineRun, error) {
		return h.runs.FindByID(ctx, id)
	})
	if ok {
		sendJSON(w, h.logger, http.StatusOK, toSummary(run))
	}
}

// GetMergedRows returns the converted prices of a run
func (h *RunHandler) GetMergedRows(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, ok := h.lookup(w, r, func(ctx context.Context) (*entity.PipelineRun, error) {
		return h.runs.FindByID(ctx, id)
	})
	if ok {
		sendJSON(w, h.logger, http.StatusOK, toMergedRows(run.Merged))
	}
}

func (h *RunHandler) lookup(w http.ResponseWriter, r *http.Request, find func(context.Context) (*entity.PipelineRun, error)) (*entity.PipelineRun, bool) {
	requestID := middleware.GetRequestID(r.Context())

	run, err := find(r.Context())
	switch {
	case errors.Is(err, repository.ErrRunNotFound):
		h.logger.Warn("Run not found", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Run not found",
			"The requested run could not be found", http.StatusNotFound, requestID)
		return nil, false
	case err != nil:
		h.logger.Error("Failed to read run archive", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"An unexpected error occurred. Please try again later.", http.StatusInternalServerError, requestID)
		return nil, false
	}

	return run, true
}

// RegisterRoutes registers the run handler routes
func (h *RunHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/runs", h.TriggerRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/latest", h.GetLatestRun).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}", h.GetRun).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/merged", h.GetMergedRows).Methods(http.MethodGet)

	h.logger.Info("Run routes registered", map[string]interface{}{
		"routes": []string{
			"POST /runs",
			"GET /runs/latest",
			"GET /runs/{id}",
			"GET /runs/{id}/merged",
		},
	})
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(dateLayout, value)
}

func sendJSON(w http.ResponseWriter, log logger.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func sendErrorResponse(w http.ResponseWriter, log logger.Logger, msg, description string, status int, requestID string) {
	sendJSON(w, log, status, ErrorResponse{
		Error:       msg,
		Status:      status,
		Description: description,
		RequestID:   requestID,
	})
}
