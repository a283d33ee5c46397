package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/studyhall/homework-service/internal/models"
)

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req models.CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := models.Validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.Create(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, course)
}

func (h *Handler) GetCourseByID(w http.ResponseWriter, r *http.Request) {
	courseID := urlParam(r, "id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	course, err := h.courseService.GetByID(r.Context(), courseID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, course)
}

func (h *Handler) GetCourseAssignments(w http.ResponseWriter, r *http.Request) {
	courseID := urlParam(r, "id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	assignments, err := h.assignmentService.GetByCourseID(r.Context(), courseID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, assignments)
}

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	courseID := urlParam(r, "id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	roster, err := h.courseService.Roster(r.Context(), actor, courseID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, roster)
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	courseID := urlParam(r, "id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "Course ID is required")
		return
	}

	var body struct {
		StudentID string `json:"student_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	if err := h.courseService.Enroll(r.Context(), actor, courseID, body.StudentID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, map[string]string{
		"course_id":  courseID,
		"student_id": body.StudentID,
	})
}

func (h *Handler) UnenrollStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	courseID := urlParam(r, "id")
	studentID := urlParam(r, "studentID")
	if courseID == "" || studentID == "" {
		writeError(w, http.StatusBadRequest, "Course ID and student ID are required")
		return
	}

	if err := h.courseService.Unenroll(r.Context(), actor, courseID, studentID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Student unenrolled"})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := models.Validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Create(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, user)
}

func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID := urlParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, user)
}
