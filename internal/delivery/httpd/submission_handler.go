package httpd

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
	"github.com/studyhall/homework-service/internal/storage"
)

const maxUploadMemory = 32 << 20 // 32MB

func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.UploadSubmission(w, r)
		return
	}

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req models.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := models.Validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.submissionService.Create(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, response)
}

// UploadSubmission accepts a multipart form carrying the attachments
// themselves. Files are persisted to the object store first; a store
// failure aborts the request before anything reaches the ledger.
func (h *Handler) UploadSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	req := models.CreateSubmissionRequest{
		AssignmentID: r.FormValue("assignment_id"),
		StudentID:    r.FormValue("student_id"),
		Comment:      r.FormValue("comment"),
	}
	if err := models.Validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, saved, err := h.storeFormFiles(w, r)
	if err != nil {
		return
	}
	if text := r.FormValue("text"); text != "" {
		content["text"] = text
	}
	req.Content = content

	response, err := h.submissionService.Create(r.Context(), actor, &req)
	if err != nil {
		h.discardUploads(r.Context(), saved)
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, response)
}

// storeFormFiles uploads every image and audio part of the parsed form and
// returns the resulting content mapping alongside the stored descriptors.
// On failure it removes what it already pushed, writes the error response
// itself and returns a non-nil error.
func (h *Handler) storeFormFiles(w http.ResponseWriter, r *http.Request) (map[string]interface{}, []payload.FileDescriptor, error) {
	content := make(map[string]interface{})
	var saved []payload.FileDescriptor

	if r.MultipartForm != nil {
		var images []payload.FileDescriptor
		for _, header := range r.MultipartForm.File["essay_images"] {
			descriptor, err := h.storeFile(r, storage.FileKindImage, header)
			if err != nil {
				h.discardUploads(r.Context(), saved)
				h.handleServiceError(w, err)
				return nil, nil, err
			}
			images = append(images, descriptor)
			saved = append(saved, descriptor)
		}
		if len(images) > 0 {
			content["images"] = images
		}
	}

	if file, header, err := r.FormFile("oral_audio"); err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.discardUploads(r.Context(), saved)
			writeError(w, http.StatusBadRequest, "Failed to read audio file")
			return nil, nil, err
		}
		descriptor, err := h.fileStore.Save(r.Context(), storage.Upload{
			Filename: header.Filename,
			Kind:     storage.FileKindAudio,
			Content:  data,
		})
		if err != nil {
			h.discardUploads(r.Context(), saved)
			h.handleServiceError(w, err)
			return nil, nil, err
		}
		content["audio"] = descriptor
		saved = append(saved, descriptor)
	}

	return content, saved, nil
}

// discardUploads removes files pushed to the object store for a request
// that did not reach the ledger. Cleanup is best effort.
func (h *Handler) discardUploads(ctx context.Context, saved []payload.FileDescriptor) {
	for _, descriptor := range saved {
		if err := h.fileStore.Delete(ctx, descriptor.Path); err != nil {
			h.logger.Warn().
				Err(err).
				Str("path", descriptor.Path).
				Msg("Failed to remove orphaned upload")
		}
	}
}

func (h *Handler) storeFile(r *http.Request, kind storage.FileKind, header *multipart.FileHeader) (payload.FileDescriptor, error) {
	file, err := header.Open()
	if err != nil {
		return payload.FileDescriptor{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return payload.FileDescriptor{}, err
	}

	return h.fileStore.Save(r.Context(), storage.Upload{
		Filename: header.Filename,
		Kind:     kind,
		Content:  data,
	})
}

func (h *Handler) ReviseSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	submissionID := urlParam(r, "id")
	if submissionID == "" {
		writeError(w, http.StatusBadRequest, "Submission ID is required")
		return
	}

	var req models.ReviseSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	submission, err := h.submissionService.Revise(r.Context(), actor, submissionID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) GetSubmissionByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	submissionID := urlParam(r, "id")
	if submissionID == "" {
		writeError(w, http.StatusBadRequest, "Submission ID is required")
		return
	}

	submission, err := h.submissionService.GetByID(r.Context(), actor, submissionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) GetLatestSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	assignmentID := urlParam(r, "id")
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		studentID = actor.ID
	}

	submission, err := h.submissionService.Latest(r.Context(), actor, assignmentID, studentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) GetSubmissionHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	assignmentID := urlParam(r, "id")
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		studentID = actor.ID
	}

	history, err := h.submissionService.History(r.Context(), actor, assignmentID, studentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, history)
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	filter := models.SubmissionFilter{
		AssignmentID: r.URL.Query().Get("assignment_id"),
		StudentID:    r.URL.Query().Get("student_id"),
		CourseID:     r.URL.Query().Get("course_id"),
		Status:       r.URL.Query().Get("status"),
	}

	response, err := h.submissionService.List(r.Context(), actor, filter, page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	submissionID := urlParam(r, "id")
	if submissionID == "" {
		writeError(w, http.StatusBadRequest, "Submission ID is required")
		return
	}

	if err := h.submissionService.Delete(r.Context(), actor, submissionID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Submission deleted"})
}
