package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/studyhall/homework-service/internal/models"
)

func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req models.CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := models.Validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	feedback, err := h.feedbackService.Grade(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, feedback)
}

func (h *Handler) AmendFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	feedbackID := urlParam(r, "id")
	if feedbackID == "" {
		writeError(w, http.StatusBadRequest, "Feedback ID is required")
		return
	}

	var req models.AmendFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	feedback, err := h.feedbackService.Amend(r.Context(), actor, feedbackID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, feedback)
}

func (h *Handler) GetFeedbackByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	feedbackID := urlParam(r, "id")
	if feedbackID == "" {
		writeError(w, http.StatusBadRequest, "Feedback ID is required")
		return
	}

	feedback, err := h.feedbackService.GetByID(r.Context(), actor, feedbackID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, feedback)
}

// GetAuthoritativeFeedback returns the record that currently determines the
// submission status, or a null payload when nothing has been graded yet.
func (h *Handler) GetAuthoritativeFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	submissionID := urlParam(r, "id")
	if submissionID == "" {
		writeError(w, http.StatusBadRequest, "Submission ID is required")
		return
	}

	feedback, err := h.feedbackService.AuthoritativeFor(r.Context(), actor, submissionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, feedback)
}

func (h *Handler) GetFeedbackHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	submissionID := urlParam(r, "id")
	if submissionID == "" {
		writeError(w, http.StatusBadRequest, "Submission ID is required")
		return
	}

	history, err := h.feedbackService.History(r.Context(), actor, submissionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, history)
}

func (h *Handler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	feedbackID := urlParam(r, "id")
	if feedbackID == "" {
		writeError(w, http.StatusBadRequest, "Feedback ID is required")
		return
	}

	if err := h.feedbackService.Delete(r.Context(), actor, feedbackID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Feedback deleted"})
}
