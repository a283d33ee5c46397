package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
	"github.com/studyhall/homework-service/internal/repository/inmem"
	"github.com/studyhall/homework-service/internal/service"
	"github.com/studyhall/homework-service/internal/storage"
)

type nopFileStore struct{}

func (nopFileStore) Save(_ context.Context, upload storage.Upload) (payload.FileDescriptor, error) {
	return payload.FileDescriptor{Filename: upload.Filename, Path: string(upload.Kind) + "/" + upload.Filename}, nil
}

func (nopFileStore) Delete(context.Context, string) error { return nil }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// flakyFileStore accepts a fixed number of saves and fails afterwards,
// recording every delete it is asked for.
type flakyFileStore struct {
	mu       sync.Mutex
	capacity int
	saved    []string
	deleted  []string
}

func (f *flakyFileStore) Save(_ context.Context, upload storage.Upload) (payload.FileDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.saved) >= f.capacity {
		return payload.FileDescriptor{}, fmt.Errorf("%w: bucket rejected %s", storage.ErrStorage, upload.Filename)
	}
	path := string(upload.Kind) + "/" + upload.Filename
	f.saved = append(f.saved, path)
	return payload.FileDescriptor{Filename: upload.Filename, Path: path}, nil
}

func (f *flakyFileStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, path)
	return nil
}

type testEnv struct {
	router  chi.Router
	teacher models.Actor
	student models.Actor

	essayID      string
	submissionID string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nopFileStore{}, stubPinger{})
}

func newTestEnvWith(t *testing.T, fileStore storage.FileStore, pinger Pinger) *testEnv {
	t.Helper()

	db := inmem.Open()
	log := zerolog.Nop()

	userRepo := inmem.NewUserRepository(db)
	courseRepo := inmem.NewCourseRepository(db)
	assignmentRepo := inmem.NewAssignmentRepository(db)
	submissionRepo := inmem.NewSubmissionRepository(db)
	feedbackRepo := inmem.NewFeedbackRepository(db)

	submissionService := service.NewSubmissionService(
		submissionRepo, assignmentRepo, courseRepo, userRepo, fileStore, nil, log)
	feedbackService := service.NewFeedbackService(
		feedbackRepo, submissionRepo, assignmentRepo, courseRepo, nil, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, courseRepo, log)
	courseService := service.NewCourseService(courseRepo, userRepo, log)
	userService := service.NewUserService(userRepo, log)

	handler := NewHandler(
		submissionService, feedbackService, assignmentService,
		courseService, userService, fileStore, pinger, log)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	ctx := context.Background()
	now := time.Now().UTC()

	env := &testEnv{
		router:  router,
		teacher: models.Actor{ID: "22222222-2222-4222-8222-222222222222", Role: models.RoleTeacher},
		student: models.Actor{ID: "11111111-1111-4111-8111-111111111111", Role: models.RoleStudent},
	}

	require.NoError(t, userRepo.Create(ctx, &models.User{
		ID: env.teacher.ID, Name: "Tamara Grading", Email: "tamara@school.test",
		Role: models.RoleTeacher, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, userRepo.Create(ctx, &models.User{
		ID: env.student.ID, Name: "Sasha Writing", Email: "sasha@school.test",
		Role: models.RoleStudent, CreatedAt: now, UpdatedAt: now,
	}))

	course := &models.Course{
		ID: "33333333-3333-4333-8333-333333333333", Title: "Composition 101",
		TeacherID: env.teacher.ID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, courseRepo.Create(ctx, course))
	require.NoError(t, courseRepo.Enroll(ctx, &models.Enrollment{
		CourseID: course.ID, StudentID: env.student.ID, EnrolledAt: now,
	}))

	env.essayID = "44444444-4444-4444-8444-444444444444"
	require.NoError(t, assignmentRepo.Create(ctx, &models.Assignment{
		ID: env.essayID, CourseID: course.ID, Title: "Essay on rivers",
		Kind: models.KindEssay, CreatedAt: now, UpdatedAt: now,
	}))

	resp, err := submissionService.Create(ctx, env.student, &models.CreateSubmissionRequest{
		AssignmentID: env.essayID,
		StudentID:    env.student.ID,
		Content:      map[string]interface{}{"text": "seed submission"},
	})
	require.NoError(t, err)
	env.submissionID = resp.ID

	return env
}

func (e *testEnv) do(method, path string, actor *models.Actor, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-User-ID", actor.ID)
		req.Header.Set("X-User-Role", actor.Role.String())
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doMultipart(t *testing.T, actor models.Actor, fields map[string]string, files map[string][]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := mw.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("file body"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", actor.ID)
	req.Header.Set("X-User-Role", actor.Role.String())

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandler_HealthCheck_DatabaseDown(t *testing.T) {
	env := newTestEnvWith(t, nopFileStore{}, stubPinger{err: errors.New("connection refused")})

	rec := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestHandler_UploadSubmission_FailedStoreRemovesEarlierFiles(t *testing.T) {
	store := &flakyFileStore{capacity: 1}
	env := newTestEnvWith(t, store, stubPinger{})

	rec := env.doMultipart(t, env.student, map[string]string{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
	}, map[string][]string{
		"essay_images": {"page1.png", "page2.png"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"image/page1.png"}, store.deleted, "the first upload does not stay behind")
}

func TestHandler_UploadSubmission_RejectedRequestRemovesFiles(t *testing.T) {
	store := &flakyFileStore{capacity: 4}
	env := newTestEnvWith(t, store, stubPinger{})

	// Audio on an essay assignment is rejected only after the file is
	// already in the object store.
	rec := env.doMultipart(t, env.student, map[string]string{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
	}, map[string][]string{
		"oral_audio": {"take1.ogg"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"audio/take1.ogg"}, store.deleted)
}

func TestHandler_MissingActorHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/submissions/"+env.submissionID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bogus := models.Actor{ID: "someone", Role: models.Role("superuser")}
	rec = env.do(http.MethodGet, "/api/v1/submissions/"+env.submissionID, &bogus, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_CreateSubmission_StatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/submissions/", &env.student, map[string]interface{}{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
		"content":       map[string]interface{}{"text": "version two"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Unknown payload key.
	rec = env.do(http.MethodPost, "/api/v1/submissions/", &env.student, map[string]interface{}{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
		"content":       map[string]interface{}{"video": "clip.mp4"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Audio on an essay assignment.
	rec = env.do(http.MethodPost, "/api/v1/submissions/", &env.student, map[string]interface{}{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
		"content": map[string]interface{}{
			"audio": map[string]interface{}{"path": "audio/a.ogg", "url": "u", "size": 1, "mime_type": "audio/ogg"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Submitting as somebody else.
	rec = env.do(http.MethodPost, "/api/v1/submissions/", &env.teacher, map[string]interface{}{
		"assignment_id": env.essayID,
		"student_id":    env.student.ID,
		"content":       map[string]interface{}{"text": "impostor"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_Feedback_StatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/feedback/", &env.teacher, map[string]interface{}{
		"submission_id": env.submissionID,
		"score":         150.0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/feedback/", &env.teacher, map[string]interface{}{
		"submission_id": env.submissionID,
		"score":         88.0,
		"comments":      "nice",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A graded submission can no longer be revised.
	rec = env.do(http.MethodPut, "/api/v1/submissions/"+env.submissionID, &env.student, map[string]interface{}{
		"content": map[string]interface{}{"text": "too late"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/feedback/00000000-0000-4000-8000-000000000000", &env.teacher, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_DeleteSubmission_StatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/api/v1/submissions/"+env.submissionID, &env.student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := models.Actor{ID: "99999999-9999-4999-8999-999999999999", Role: models.RoleAdmin}
	rec = env.do(http.MethodDelete, "/api/v1/submissions/"+env.submissionID, &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/submissions/"+env.submissionID, &admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
