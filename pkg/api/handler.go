// Package api exposes the workflow control surface over HTTP: start a
// durable run, poll its status, and resume it with a human selection.
// Every thread operation authorizes the caller against the user id
// embedded in the thread's state; the checkpoint store itself is not
// access-controlled.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskweave/taskweave/pkg/planner"
)

// Handler serves the workflow endpoints.
type Handler struct {
	controller *planner.Controller
	logger     *slog.Logger
}

// NewHandler creates the workflow HTTP handler.
func NewHandler(controller *planner.Controller, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{controller: controller, logger: logger}
}

// processTaskRequest is the start payload. The caller supplies either an
// existing task id or enough context to synthesize one.
type processTaskRequest struct {
	TaskID         string                  `json:"task_id,omitempty"`
	Title          string                  `json:"title,omitempty"`
	Description    string                  `json:"description,omitempty"`
	ContextNotes   string                  `json:"context_notes,omitempty"`
	Priority       string                  `json:"priority,omitempty"`
	Deadline       string                  `json:"deadline,omitempty"`
	CalendarEvents []planner.CalendarEvent `json:"calendar_events,omitempty"`
}

// processTaskResponse acknowledges an accepted start.
type processTaskResponse struct {
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

// resumeTaskRequest carries the human selection for a paused thread.
type resumeTaskRequest struct {
	ThreadID         string `json:"thread_id"`
	SelectedOptionID string `json:"selected_option_id"`
}

// ProcessTask starts a durable workflow run for the authenticated caller
// and returns the thread id immediately. The run proceeds in the
// background; poll TaskStatus to observe it.
func (h *Handler) ProcessTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req processTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskID == "" && req.Title == "" {
		respondError(w, http.StatusBadRequest, "task_id or title is required")
		return
	}

	threadID := h.controller.Start(planner.TaskContext{
		TaskID:         req.TaskID,
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		ContextNotes:   req.ContextNotes,
		Priority:       req.Priority,
		Deadline:       req.Deadline,
		CalendarEvents: req.CalendarEvents,
	})

	h.logger.Info("workflow started", "thread_id", threadID, "user_id", userID)
	respondJSON(w, http.StatusAccepted, processTaskResponse{
		ThreadID: threadID,
		Status:   string(planner.StatusProcessing),
	})
}

// TaskStatus reports the lifecycle state and scheduling options of a
// thread owned by the caller.
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	threadID := chi.URLParam(r, "threadID")
	if !h.authorizeThread(w, threadID, userID) {
		return
	}

	respondJSON(w, http.StatusOK, h.controller.Status(threadID))
}

// ResumeTask applies the caller's selection to a paused thread and
// re-invokes the workflow in the background.
func (h *Handler) ResumeTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req resumeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ThreadID == "" {
		respondError(w, http.StatusBadRequest, "thread_id is required")
		return
	}
	if !h.authorizeThread(w, req.ThreadID, userID) {
		return
	}

	switch err := h.controller.Resume(req.ThreadID, req.SelectedOptionID); {
	case err == nil:
	case errors.Is(err, planner.ErrSelectionRequired):
		respondError(w, http.StatusBadRequest, "selected_option_id is required")
		return
	case errors.Is(err, planner.ErrThreadNotFound):
		respondError(w, http.StatusNotFound, "Thread not found")
		return
	case errors.Is(err, planner.ErrNotAwaitingInput):
		respondError(w, http.StatusConflict, "Thread is not awaiting input")
		return
	default:
		h.logger.Error("resume failed", "thread_id", req.ThreadID, "error", err)
		respondError(w, http.StatusInternalServerError, "Resume failed")
		return
	}

	h.logger.Info("workflow resumed", "thread_id", req.ThreadID, "user_id", userID)
	respondJSON(w, http.StatusAccepted, processTaskResponse{
		ThreadID: req.ThreadID,
		Status:   string(planner.StatusProcessing),
	})
}

// authorizeThread checks that the thread exists and belongs to the
// caller, writing the error response itself when it does not. A foreign
// thread is a 403, not a 404: its existence is not secret, its contents
// are.
func (h *Handler) authorizeThread(w http.ResponseWriter, threadID, userID string) bool {
	owner, err := h.controller.Owner(threadID)
	switch {
	case errors.Is(err, planner.ErrThreadNotFound):
		respondError(w, http.StatusNotFound, "Thread not found")
		return false
	case err != nil:
		h.logger.Error("owner lookup failed", "thread_id", threadID, "error", err)
		respondError(w, http.StatusInternalServerError, "Status lookup failed")
		return false
	case owner != userID:
		respondError(w, http.StatusForbidden, "Thread belongs to another user")
		return false
	}
	return true
}
