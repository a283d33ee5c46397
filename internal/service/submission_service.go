package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
	"github.com/studyhall/homework-service/internal/policy"
	"github.com/studyhall/homework-service/internal/repository"
	"github.com/studyhall/homework-service/internal/service/integration"
	"github.com/studyhall/homework-service/internal/storage"
)

// SubmissionService owns the ledger of submission versions: creation of new
// versions, in-place revision, history, and administrative deletion.
type SubmissionService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateSubmissionRequest) (*models.SubmissionResponse, error)
	Revise(ctx context.Context, actor models.Actor, submissionID string, req *models.ReviseSubmissionRequest) (*models.Submission, error)
	GetByID(ctx context.Context, actor models.Actor, submissionID string) (*models.Submission, error)
	Latest(ctx context.Context, actor models.Actor, assignmentID, studentID string) (*models.Submission, error)
	History(ctx context.Context, actor models.Actor, assignmentID, studentID string) ([]models.Submission, error)
	List(ctx context.Context, actor models.Actor, filter models.SubmissionFilter, page, limit int) (*models.SubmissionsResponse, error)
	Delete(ctx context.Context, actor models.Actor, submissionID string) error
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	courseRepo     repository.CourseRepository
	userRepo       repository.UserRepository
	fileStore      storage.FileStore
	publisher      integration.EventPublisher
	logger         zerolog.Logger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	courseRepo repository.CourseRepository,
	userRepo repository.UserRepository,
	fileStore storage.FileStore,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		courseRepo:     courseRepo,
		userRepo:       userRepo,
		fileStore:      fileStore,
		publisher:      publisher,
		logger:         logger,
	}
}

// checkKind enforces the key-set-to-kind compatibility rule: essay work may
// not carry audio, oral work may not carry text or images.
func checkKind(kind models.AssignmentKind, bundle payload.Bundle) error {
	switch kind {
	case models.KindEssay:
		if bundle.HasAudio() {
			return fmt.Errorf("%w: audio content on an essay assignment", ErrIncompatibleContentKind)
		}
	case models.KindOral:
		if bundle.HasVisual() {
			return fmt.Errorf("%w: text or image content on an oral assignment", ErrIncompatibleContentKind)
		}
	}
	return nil
}

func (s *submissionService) Create(ctx context.Context, actor models.Actor, req *models.CreateSubmissionRequest) (*models.SubmissionResponse, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, req.AssignmentID)
	}

	studentExists, err := s.userRepo.Exists(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student existence: %w", err)
	}
	if !studentExists {
		return nil, fmt.Errorf("%w: student %s", ErrNotFound, req.StudentID)
	}

	bundle, err := payload.FromMap(req.Content)
	if err != nil {
		return nil, err
	}
	if err := checkKind(assignment.Kind, bundle); err != nil {
		return nil, err
	}

	roster, err := s.courseRepo.Roster(ctx, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	if roster == nil {
		return nil, fmt.Errorf("%w: course %s", ErrNotFound, assignment.CourseID)
	}

	now := time.Now().UTC()
	submission := &models.Submission{
		ID:           uuid.New().String(),
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Status:       models.StatusSubmitted,
		Comment:      req.Comment,
		Content:      bundle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if !policy.CanAct(actor, policy.ActionCreateSubmission, policy.Target{
		Assignment: assignment,
		Roster:     roster,
		Submission: submission,
	}) {
		return nil, ErrForbidden
	}

	// Version numbering happens inside the repository's serialized critical
	// section; the submission comes back with its final version.
	if err := s.submissionRepo.CreateVersion(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to create submission version: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", submission.AssignmentID).
		Str("student_id", submission.StudentID).
		Int("version", submission.Version).
		Msg("Submission created")

	s.publishSubmissionEvent(ctx, integration.KeySubmissionCreated, submission)

	return &models.SubmissionResponse{
		Submission: *submission,
		Late:       assignment.IsPastDue(now),
	}, nil
}

func (s *submissionService) Revise(ctx context.Context, actor models.Actor, submissionID string, req *models.ReviseSubmissionRequest) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	if !policy.CanAct(actor, policy.ActionReviseSubmission, policy.Target{Submission: submission}) {
		return nil, ErrForbidden
	}
	if !submission.Status.Revisable() {
		return nil, fmt.Errorf("%w: cannot revise a %s submission", ErrIllegalTransition, submission.Status)
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, submission.AssignmentID)
	}

	patch, err := payload.FromMap(req.Content)
	if err != nil {
		return nil, err
	}
	if err := checkKind(assignment.Kind, patch); err != nil {
		return nil, err
	}

	// Deliberate exception to the append-only ledger: revision merges into
	// the same row instead of minting a new version.
	submission.Content = payload.Merge(submission.Content, patch)
	if req.Comment != nil {
		submission.Comment = *req.Comment
	}
	if submission.Status == models.StatusNeedsRevision {
		submission.Status = models.StatusRevised
	}
	submission.UpdatedAt = time.Now().UTC()

	if err := s.submissionRepo.Update(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("status", submission.Status.String()).
		Msg("Submission revised")

	s.publishSubmissionEvent(ctx, integration.KeySubmissionRevised, submission)

	return submission, nil
}

func (s *submissionService) GetByID(ctx context.Context, actor models.Actor, submissionID string) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	course, err := s.courseForAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAct(actor, policy.ActionReadSubmission, policy.Target{Submission: submission, Course: course}) {
		return nil, ErrForbidden
	}
	return submission, nil
}

func (s *submissionService) Latest(ctx context.Context, actor models.Actor, assignmentID, studentID string) (*models.Submission, error) {
	if err := s.checkReadScope(ctx, actor, assignmentID, studentID); err != nil {
		return nil, err
	}
	return s.submissionRepo.Latest(ctx, assignmentID, studentID)
}

func (s *submissionService) History(ctx context.Context, actor models.Actor, assignmentID, studentID string) ([]models.Submission, error) {
	if err := s.checkReadScope(ctx, actor, assignmentID, studentID); err != nil {
		return nil, err
	}
	return s.submissionRepo.History(ctx, assignmentID, studentID)
}

func (s *submissionService) List(ctx context.Context, actor models.Actor, filter models.SubmissionFilter, page, limit int) (*models.SubmissionsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	// Scope the query by role: students see only themselves, teachers only
	// their own courses.
	switch {
	case actor.IsStudent():
		filter.StudentID = actor.ID
	case actor.IsTeacher():
		if filter.CourseID != "" {
			course, err := s.courseRepo.GetByID(ctx, filter.CourseID)
			if err != nil {
				return nil, fmt.Errorf("failed to get course: %w", err)
			}
			if course == nil {
				return nil, fmt.Errorf("%w: course %s", ErrNotFound, filter.CourseID)
			}
			if course.TeacherID != actor.ID {
				return nil, ErrForbidden
			}
		} else {
			filter.CourseTeacherID = actor.ID
		}
	}

	offset := (page - 1) * limit
	submissions, total, err := s.submissionRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return &models.SubmissionsResponse{
		Submissions: submissions,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *submissionService) Delete(ctx context.Context, actor models.Actor, submissionID string) error {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	if !policy.CanAct(actor, policy.ActionDeleteSubmission, policy.Target{Submission: submission}) {
		return ErrForbidden
	}

	// Stored files go best-effort; the ledger row and its feedback cascade
	// are the authoritative deletion.
	for _, desc := range submission.Content.Files() {
		if desc.Path == "" {
			continue
		}
		if err := s.fileStore.Delete(ctx, desc.Path); err != nil {
			s.logger.Error().Err(err).Str("path", desc.Path).Msg("Failed to delete stored file")
		}
	}

	if err := s.submissionRepo.Delete(ctx, submissionID); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	s.logger.Info().
		Str("submission_id", submissionID).
		Str("actor_id", actor.ID).
		Msg("Submission deleted")

	return nil
}

func (s *submissionService) checkReadScope(ctx context.Context, actor models.Actor, assignmentID, studentID string) error {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}

	course, err := s.courseRepo.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}

	scope := &models.Submission{AssignmentID: assignmentID, StudentID: studentID}
	if !policy.CanAct(actor, policy.ActionReadSubmission, policy.Target{Submission: scope, Course: course}) {
		return ErrForbidden
	}
	return nil
}

func (s *submissionService) courseForAssignment(ctx context.Context, assignmentID string) (*models.Course, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, nil
	}
	return s.courseRepo.GetByID(ctx, assignment.CourseID)
}

func (s *submissionService) publishSubmissionEvent(ctx context.Context, routingKey string, submission *models.Submission) {
	if s.publisher == nil {
		return
	}
	event := &models.SubmissionEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Version:      submission.Version,
		Status:       submission.Status.String(),
		Timestamp:    time.Now().Unix(),
	}
	if err := s.publisher.PublishSubmissionEvent(ctx, routingKey, event); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish submission event")
	}
}
