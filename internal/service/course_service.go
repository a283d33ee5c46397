package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/policy"
	"github.com/studyhall/homework-service/internal/repository"
)

// CourseService manages courses and roster membership.
type CourseService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateCourseRequest) (*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Roster(ctx context.Context, actor models.Actor, courseID string) (*models.Roster, error)
	Enroll(ctx context.Context, actor models.Actor, courseID, studentID string) error
	Unenroll(ctx context.Context, actor models.Actor, courseID, studentID string) error
}

type courseService struct {
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	logger     zerolog.Logger
}

func NewCourseService(courseRepo repository.CourseRepository, userRepo repository.UserRepository, logger zerolog.Logger) CourseService {
	return &courseService{
		courseRepo: courseRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

func (s *courseService) Create(ctx context.Context, actor models.Actor, req *models.CreateCourseRequest) (*models.Course, error) {
	if !actor.IsAdmin() && !(actor.IsTeacher() && actor.ID == req.TeacherID) {
		return nil, ErrForbidden
	}

	teacher, err := s.userRepo.GetByID(ctx, req.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil || !teacher.IsTeacher() {
		return nil, fmt.Errorf("%w: teacher %s", ErrNotFound, req.TeacherID)
	}

	now := time.Now().UTC()
	course := &models.Course{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   req.TeacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info().
		Str("course_id", course.ID).
		Str("teacher_id", course.TeacherID).
		Msg("Course created")

	return course, nil
}

func (s *courseService) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %s", ErrNotFound, id)
	}
	return course, nil
}

func (s *courseService) Roster(ctx context.Context, actor models.Actor, courseID string) (*models.Roster, error) {
	roster, err := s.courseRepo.Roster(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	if roster == nil {
		return nil, fmt.Errorf("%w: course %s", ErrNotFound, courseID)
	}

	if !policy.CanAct(actor, policy.ActionManageRoster, policy.Target{Roster: roster}) {
		return nil, ErrForbidden
	}
	return roster, nil
}

func (s *courseService) Enroll(ctx context.Context, actor models.Actor, courseID, studentID string) error {
	roster, err := s.courseRepo.Roster(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	if roster == nil {
		return fmt.Errorf("%w: course %s", ErrNotFound, courseID)
	}

	if !policy.CanAct(actor, policy.ActionManageRoster, policy.Target{Roster: roster}) {
		return ErrForbidden
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil || !student.IsStudent() {
		return fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}

	enrollment := &models.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.courseRepo.Enroll(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	s.logger.Info().
		Str("course_id", courseID).
		Str("student_id", studentID).
		Msg("Student enrolled")

	return nil
}

func (s *courseService) Unenroll(ctx context.Context, actor models.Actor, courseID, studentID string) error {
	roster, err := s.courseRepo.Roster(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	if roster == nil {
		return fmt.Errorf("%w: course %s", ErrNotFound, courseID)
	}

	if !policy.CanAct(actor, policy.ActionManageRoster, policy.Target{Roster: roster}) {
		return ErrForbidden
	}

	if err := s.courseRepo.Unenroll(ctx, courseID, studentID); err != nil {
		return fmt.Errorf("failed to unenroll student: %w", err)
	}
	return nil
}
