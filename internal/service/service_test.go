package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
	"github.com/studyhall/homework-service/internal/repository"
	"github.com/studyhall/homework-service/internal/repository/inmem"
	"github.com/studyhall/homework-service/internal/storage"
)

// fakeFileStore records saves and deletes without any backing store.
type fakeFileStore struct {
	mutex   sync.Mutex
	saved   []string
	deleted []string
}

func (f *fakeFileStore) Save(_ context.Context, upload storage.Upload) (payload.FileDescriptor, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	path := string(upload.Kind) + "/" + upload.Filename
	f.saved = append(f.saved, path)
	return payload.FileDescriptor{
		Filename: upload.Filename,
		Path:     path,
		URL:      "http://store/" + path,
		Size:     int64(len(upload.Content)),
	}, nil
}

func (f *fakeFileStore) Delete(_ context.Context, path string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.deleted = append(f.deleted, path)
	return nil
}

type fixture struct {
	userRepo       repository.UserRepository
	courseRepo     repository.CourseRepository
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	feedbackRepo   repository.FeedbackRepository

	fileStore *fakeFileStore

	submissions SubmissionService
	feedback    FeedbackService
	assignments AssignmentService
	courses     CourseService
	users       UserService

	teacher models.Actor
	student models.Actor
	admin   models.Actor

	course *models.Course
	essay  *models.Assignment
	oral   *models.Assignment
}

func newFixture() *fixture {
	db := inmem.Open()
	log := zerolog.Nop()

	f := &fixture{
		userRepo:       inmem.NewUserRepository(db),
		courseRepo:     inmem.NewCourseRepository(db),
		assignmentRepo: inmem.NewAssignmentRepository(db),
		submissionRepo: inmem.NewSubmissionRepository(db),
		feedbackRepo:   inmem.NewFeedbackRepository(db),
		fileStore:      &fakeFileStore{},
	}

	f.submissions = NewSubmissionService(
		f.submissionRepo, f.assignmentRepo, f.courseRepo, f.userRepo,
		f.fileStore, nil, log,
	)
	f.feedback = NewFeedbackService(
		f.feedbackRepo, f.submissionRepo, f.assignmentRepo, f.courseRepo,
		nil, log,
	)
	f.assignments = NewAssignmentService(f.assignmentRepo, f.submissionRepo, f.courseRepo, log)
	f.courses = NewCourseService(f.courseRepo, f.userRepo, log)
	f.users = NewUserService(f.userRepo, log)

	ctx := context.Background()
	now := time.Now().UTC()

	teacher := f.addUser(ctx, "Tamara Grading", "tamara@school.test", models.RoleTeacher)
	student := f.addUser(ctx, "Sasha Writing", "sasha@school.test", models.RoleStudent)
	f.addUserWithID(ctx, "admin-1", "Root Admin", "admin@school.test", models.RoleAdmin)

	f.teacher = models.Actor{ID: teacher, Role: models.RoleTeacher}
	f.student = models.Actor{ID: student, Role: models.RoleStudent}
	f.admin = models.Actor{ID: "admin-1", Role: models.RoleAdmin}

	f.course = &models.Course{
		ID:        uuid.New().String(),
		Title:     "Composition 101",
		TeacherID: teacher,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.courseRepo.Create(ctx, f.course); err != nil {
		panic(err)
	}
	f.enroll(ctx, student)

	f.essay = f.addAssignment(ctx, "Essay on rivers", models.KindEssay, nil)
	f.oral = f.addAssignment(ctx, "Recite a poem", models.KindOral, nil)

	return f
}

func (f *fixture) addUser(ctx context.Context, name, email string, role models.Role) string {
	id := uuid.New().String()
	f.addUserWithID(ctx, id, name, email, role)
	return id
}

func (f *fixture) addUserWithID(ctx context.Context, id, name, email string, role models.Role) {
	now := time.Now().UTC()
	if err := f.userRepo.Create(ctx, &models.User{
		ID: id, Name: name, Email: email, Role: role,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		panic(err)
	}
}

func (f *fixture) enroll(ctx context.Context, studentID string) {
	if err := f.courseRepo.Enroll(ctx, &models.Enrollment{
		CourseID:   f.course.ID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	}); err != nil {
		panic(err)
	}
}

func (f *fixture) addStudent(ctx context.Context, name, email string) models.Actor {
	id := f.addUser(ctx, name, email, models.RoleStudent)
	f.enroll(ctx, id)
	return models.Actor{ID: id, Role: models.RoleStudent}
}

func (f *fixture) addAssignment(ctx context.Context, title string, kind models.AssignmentKind, dueAt *time.Time) *models.Assignment {
	now := time.Now().UTC()
	assignment := &models.Assignment{
		ID:        uuid.New().String(),
		CourseID:  f.course.ID,
		Title:     title,
		Kind:      kind,
		DueAt:     dueAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.assignmentRepo.Create(ctx, assignment); err != nil {
		panic(err)
	}
	return assignment
}

func textContent(text string) map[string]interface{} {
	return map[string]interface{}{"text": text}
}

func audioContent(path string) map[string]interface{} {
	return map[string]interface{}{
		"audio": map[string]interface{}{
			"path":      path,
			"url":       "http://store/" + path,
			"size":      100,
			"mime_type": "audio/ogg",
		},
	}
}
