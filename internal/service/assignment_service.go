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

// AssignmentService owns assignment CRUD and the per-assignment statistics
// aggregation over the roster and the submission ledger.
type AssignmentService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (*models.Assignment, error)
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	GetByCourseID(ctx context.Context, courseID string) ([]models.Assignment, error)
	Update(ctx context.Context, actor models.Actor, id string, req *models.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Statistics(ctx context.Context, actor models.Actor, id string) (*models.AssignmentStatistics, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	courseRepo     repository.CourseRepository
	logger         zerolog.Logger
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	courseRepo repository.CourseRepository,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		courseRepo:     courseRepo,
		logger:         logger,
	}
}

func (s *assignmentService) Create(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (*models.Assignment, error) {
	course, err := s.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %s", ErrNotFound, req.CourseID)
	}

	if !policy.CanAct(actor, policy.ActionManageAssignment, policy.Target{Course: course}) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	assignment := &models.Assignment{
		ID:          uuid.New().String(),
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Kind:        models.AssignmentKind(req.Kind),
		DueAt:       req.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("course_id", assignment.CourseID).
		Str("kind", assignment.Kind.String()).
		Msg("Assignment created")

	return assignment, nil
}

func (s *assignmentService) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}
	return assignment, nil
}

func (s *assignmentService) GetByCourseID(ctx context.Context, courseID string) ([]models.Assignment, error) {
	return s.assignmentRepo.GetByCourseID(ctx, courseID)
}

// Update modifies title, description and due instant. The kind is fixed at
// creation and has no update path.
func (s *assignmentService) Update(ctx context.Context, actor models.Actor, id string, req *models.UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}

	course, err := s.courseRepo.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if !policy.CanAct(actor, policy.ActionManageAssignment, policy.Target{Course: course}) {
		return nil, ErrForbidden
	}

	if req.Title != "" {
		assignment.Title = req.Title
	}
	if req.Description != nil {
		assignment.Description = *req.Description
	}
	if req.DueAt != nil {
		assignment.DueAt = req.DueAt
	}
	assignment.UpdatedAt = time.Now().UTC()

	if err := s.assignmentRepo.Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}

	course, err := s.courseRepo.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}
	if !policy.CanAct(actor, policy.ActionManageAssignment, policy.Target{Course: course}) {
		return ErrForbidden
	}

	// Referential guard: an assignment with ledger entries cannot be
	// deleted.
	count, err := s.submissionRepo.CountByAssignment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: assignment %s has %d submissions", ErrIllegalTransition, id, count)
	}

	if err := s.assignmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", id).
		Msg("Assignment deleted")

	return nil
}

func (s *assignmentService) Statistics(ctx context.Context, actor models.Actor, id string) (*models.AssignmentStatistics, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}

	roster, err := s.courseRepo.Roster(ctx, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	if roster == nil {
		return nil, fmt.Errorf("%w: course %s", ErrNotFound, assignment.CourseID)
	}

	if !policy.CanAct(actor, policy.ActionReadStatistics, policy.Target{Roster: roster, Assignment: assignment}) {
		return nil, ErrForbidden
	}

	// Only each student's current (max-version) row counts; historical
	// versions never inflate the numbers.
	current, err := s.submissionRepo.CurrentByAssignment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load current submissions: %w", err)
	}

	stats := &models.AssignmentStatistics{
		TotalRoster:    len(roster.StudentIDs),
		SubmittedCount: len(current),
		StatusCounts: map[string]int{
			models.StatusSubmitted.String():     0,
			models.StatusGraded.String():        0,
			models.StatusNeedsRevision.String(): 0,
			models.StatusRevised.String():       0,
		},
	}
	for _, sub := range current {
		stats.StatusCounts[sub.Status.String()]++
	}
	stats.StatusCounts[models.StatusNotSubmitted.String()] = stats.TotalRoster - stats.SubmittedCount

	if stats.TotalRoster > 0 {
		stats.SubmissionRate = float64(stats.SubmittedCount) / float64(stats.TotalRoster)
	}

	return stats, nil
}
