package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/veranemoloko/course-archive/internal/progress"
)

// StatusSource exposes the live state of a run.
type StatusSource interface {
	Snapshot() progress.Snapshot
	Tasks() []progress.TaskState
	Task(index int) (progress.TaskState, bool)
}

// StatusHandler serves read-only run status.
type StatusHandler struct {
	source StatusSource
	runID  string
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler for the run identified by runID.
func NewStatusHandler(source StatusSource, runID string, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		source: source,
		runID:  runID,
		logger: logger,
	}
}

type statusResponse struct {
	RunID string `json:"run_id"`
	progress.Snapshot
}

// GetStatus handles GET /status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{RunID: h.runID, Snapshot: h.source.Snapshot()})
}

// ListTasks handles GET /status/tasks.
func (h *StatusHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Tasks())
}

// GetTask handles GET /status/tasks/{index}.
func (h *StatusHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	indexStr := chi.URLParam(r, "index")
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid task index")
		return
	}

	task, ok := h.source.Task(index)
	if !ok {
		h.logger.Debug("task not found", "index", index)
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
