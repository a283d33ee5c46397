package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/service"
	"github.com/studyhall/homework-service/internal/storage"
)

// Pinger reports whether the backing store is reachable; the health
// endpoint uses it to tell a live process from a serving one.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	submissionService service.SubmissionService
	feedbackService   service.FeedbackService
	assignmentService service.AssignmentService
	courseService     service.CourseService
	userService       service.UserService
	fileStore         storage.FileStore
	pinger            Pinger
	logger            zerolog.Logger
}

func NewHandler(
	submissionService service.SubmissionService,
	feedbackService service.FeedbackService,
	assignmentService service.AssignmentService,
	courseService service.CourseService,
	userService service.UserService,
	fileStore storage.FileStore,
	pinger Pinger,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		submissionService: submissionService,
		feedbackService:   feedbackService,
		assignmentService: assignmentService,
		courseService:     courseService,
		userService:       userService,
		fileStore:         fileStore,
		pinger:            pinger,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.CreateSubmission)
			r.Get("/", h.ListSubmissions)
			r.Get("/{id}", h.GetSubmissionByID)
			r.Put("/{id}", h.ReviseSubmission)
			r.Delete("/{id}", h.DeleteSubmission)
			r.Get("/{id}/feedback", h.GetAuthoritativeFeedback)
			r.Get("/{id}/feedback/history", h.GetFeedbackHistory)
		})

		api.Route("/feedback", func(r chi.Router) {
			r.Post("/", h.CreateFeedback)
			r.Get("/{id}", h.GetFeedbackByID)
			r.Patch("/{id}", h.AmendFeedback)
			r.Delete("/{id}", h.DeleteFeedback)
		})

		api.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Get("/{id}", h.GetAssignmentByID)
			r.Put("/{id}", h.UpdateAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
			r.Get("/{id}/statistics", h.GetAssignmentStatistics)
			r.Get("/{id}/submissions/latest", h.GetLatestSubmission)
			r.Get("/{id}/submissions/history", h.GetSubmissionHistory)
		})

		api.Route("/courses", func(r chi.Router) {
			r.Post("/", h.CreateCourse)
			r.Get("/{id}", h.GetCourseByID)
			r.Get("/{id}/assignments", h.GetCourseAssignments)
			r.Get("/{id}/roster", h.GetRoster)
			r.Post("/{id}/enrollments", h.EnrollStudent)
			r.Delete("/{id}/enrollments/{studentID}", h.UnenrollStudent)
		})

		api.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUserByID)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "homework-service",
		"timestamp": time.Now().UTC(),
	}

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Error().Err(err).Msg("Health check cannot reach the database")
			response["status"] = "unhealthy"
			response["database"] = "down"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["database"] = "up"
	}

	writeJSON(w, http.StatusOK, response)
}

// actorFrom resolves the acting identity from the gateway-injected headers.
// The gateway authenticates upstream; this service only authorizes.
func actorFrom(r *http.Request) (models.Actor, bool) {
	id := r.Header.Get("X-User-ID")
	role := r.Header.Get("X-User-Role")
	if id == "" || !models.IsValidRole(role) {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: models.Role(role)}, true
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-User-ID and X-User-Role headers are required")
	}
	return actor, ok
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrIncompatibleContentKind),
		errors.Is(err, service.ErrScoreOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStorage):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Internal service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusCreated, response)
}
