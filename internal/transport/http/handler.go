package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/repository/postgresql"
	"lab-production-engine/internal/service"
)

type Handler struct {
	engine *service.Dispatcher
	runs   *service.RunService
}

func NewHandler(engine *service.Dispatcher, runs *service.RunService) *Handler {
	return &Handler{engine: engine, runs: runs}
}

type forecastDTO struct {
	HorizonDays int `json:"horizon_days"`
}

type createRunDTO struct {
	Kind     string          `json:"kind"`
	Priority *int            `json:"priority,omitempty"` // 0=low,1=normal,2=high (nil => default 1)
	Input    json.RawMessage `json:"input,omitempty"`
}

type createRunResp struct {
	ID string `json:"id"`
}

type runResp struct {
	ID        string           `json:"id"`
	Kind      entity.RunKind   `json:"kind"`
	Status    entity.RunStatus `json:"status"`
	Priority  int              `json:"priority"`
	Input     json.RawMessage  `json:"input,omitempty"`
	Output    json.RawMessage  `json:"output,omitempty"`
	Error     *string          `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// Optimize godoc
// @Summary Optimize the production schedule
// @Description Scores every pending job, persists the scores and returns jobs in execution order.
// @Tags engine
// @Produce json
// @Success 200 {object} entity.ScheduleResult
// @Failure 503 {object} apiError
// @Failure 500 {object} apiError
// @Router /engine/optimize [post]
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Optimize(r.Context())
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze godoc
// @Summary Run the reactive monitor
// @Description Runs all rule checks and returns ranked alerts, system metrics and recommendations.
// @Tags engine
// @Produce json
// @Success 200 {object} entity.MonitorReport
// @Router /engine/monitor [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Analyze(r.Context()))
}

// Forecast godoc
// @Summary Forecast material depletion
// @Tags engine
// @Accept json
// @Produce json
// @Param request body forecastDTO false "horizon_days: 1..365, default 30"
// @Success 200 {object} entity.ForecastReport
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /engine/forecast [post]
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	var dto forecastDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := h.engine.Forecast(r.Context(), service.ForecastRequest{HorizonDays: dto.HorizonDays})
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateRun godoc
// @Summary Queue an engine run
// @Description Stores the run (pending) and enqueues it for the worker.
// @Tags runs
// @Accept json
// @Produce json
// @Param request body createRunDTO true "kind: optimize|monitor|forecast, priority: 0=low,1=normal,2=high"
// @Success 201 {object} createRunResp
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var dto createRunDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	priority := service.LanePriorityNormal
	if dto.Priority != nil {
		priority = *dto.Priority
	}

	id, err := h.runs.CreateRun(r.Context(), service.CreateRunRequest{
		Kind:     entity.RunKind(dto.Kind),
		Priority: priority,
		Input:    dto.Input,
	})
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRunResp{ID: id.String()})
}

// GetRun godoc
// @Summary Get run by id
// @Tags runs
// @Produce json
// @Param id path string true "run id (uuid)"
// @Success 200 {object} runResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	resp := runResp{
		ID:        run.ID.String(),
		Kind:      run.Kind,
		Status:    run.Status,
		Priority:  run.Priority,
		Input:     run.Input,
		Error:     run.Error,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		UpdatedAt: run.UpdatedAt.Format(time.RFC3339),
	}
	if run.Status == entity.RunDone {
		resp.Output = run.Output
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRunResult godoc
// @Summary Get run result
// @Tags runs
// @Produce json
// @Param id path string true "run id (uuid)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /runs/{id}/result [get]
func (h *Handler) GetRunResult(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	if run.Status != entity.RunDone {
		writeErr(w, http.StatusConflict, "run not done")
		return
	}

	// raw json, no trailing newline
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(run.Output)
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*entity.EngineRun, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, postgresql.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return run, true
}
