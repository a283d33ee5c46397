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
)

// FeedbackService binds grading records to submission versions and derives
// the submission status from the authoritative (most recently created)
// record. Grading is the only status-mutating path besides creation and
// revision.
type FeedbackService interface {
	Grade(ctx context.Context, actor models.Actor, req *models.CreateFeedbackRequest) (*models.Feedback, error)
	Amend(ctx context.Context, actor models.Actor, feedbackID string, req *models.AmendFeedbackRequest) (*models.Feedback, error)
	GetByID(ctx context.Context, actor models.Actor, feedbackID string) (*models.Feedback, error)
	AuthoritativeFor(ctx context.Context, actor models.Actor, submissionID string) (*models.Feedback, error)
	History(ctx context.Context, actor models.Actor, submissionID string) ([]models.Feedback, error)
	Delete(ctx context.Context, actor models.Actor, feedbackID string) error
}

type feedbackService struct {
	feedbackRepo   repository.FeedbackRepository
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	courseRepo     repository.CourseRepository
	publisher      integration.EventPublisher
	logger         zerolog.Logger
}

func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	courseRepo repository.CourseRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) FeedbackService {
	return &feedbackService{
		feedbackRepo:   feedbackRepo,
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		courseRepo:     courseRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *feedbackService) Grade(ctx context.Context, actor models.Actor, req *models.CreateFeedbackRequest) (*models.Feedback, error) {
	submission, err := s.submissionRepo.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, req.SubmissionID)
	}

	course, err := s.courseForSubmission(ctx, submission)
	if err != nil {
		return nil, err
	}
	if !policy.CanAct(actor, policy.ActionGradeSubmission, policy.Target{Submission: submission, Course: course}) {
		return nil, ErrForbidden
	}

	if req.Score != nil && !models.IsValidScore(*req.Score) {
		return nil, fmt.Errorf("%w: %.1f not in [%d,%d]", ErrScoreOutOfRange, *req.Score, models.MinScore, models.MaxScore)
	}

	bundle, err := payload.FromMap(req.Content)
	if err != nil {
		return nil, err
	}

	feedback := &models.Feedback{
		ID:               uuid.New().String(),
		SubmissionID:     req.SubmissionID,
		TeacherID:        actor.ID,
		Score:            req.Score,
		Comments:         req.Comments,
		RequiresRevision: req.RequiresRevision,
		Content:          bundle,
	}

	// The repository assigns the creation instant and derives the status
	// inside one transaction under the submission row lock; the submission
	// can never be observed with a status reflecting a superseded record.
	if err := s.feedbackRepo.CreateWithStatus(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}

	s.logger.Info().
		Str("feedback_id", feedback.ID).
		Str("submission_id", feedback.SubmissionID).
		Bool("requires_revision", feedback.RequiresRevision).
		Msg("Feedback created")

	s.publishFeedbackEvent(ctx, feedback)

	return feedback, nil
}

func (s *feedbackService) Amend(ctx context.Context, actor models.Actor, feedbackID string, req *models.AmendFeedbackRequest) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	if feedback == nil {
		return nil, fmt.Errorf("%w: feedback %s", ErrNotFound, feedbackID)
	}

	if !policy.CanAct(actor, policy.ActionAmendFeedback, policy.Target{Feedback: feedback}) {
		return nil, ErrForbidden
	}

	if req.Score != nil {
		if !models.IsValidScore(*req.Score) {
			return nil, fmt.Errorf("%w: %.1f not in [%d,%d]", ErrScoreOutOfRange, *req.Score, models.MinScore, models.MaxScore)
		}
		feedback.Score = req.Score
	}
	if req.Comments != nil {
		feedback.Comments = *req.Comments
	}

	revisionChanged := false
	if req.RequiresRevision != nil && *req.RequiresRevision != feedback.RequiresRevision {
		feedback.RequiresRevision = *req.RequiresRevision
		revisionChanged = true
	}

	if req.Content != nil {
		bundle, err := payload.FromMap(req.Content)
		if err != nil {
			return nil, err
		}
		feedback.Content = bundle
	}
	feedback.UpdatedAt = time.Now().UTC()

	// The repository re-derives the status from the authoritative record in
	// the same transaction as the update, so amending a superseded record
	// never rewrites the present.
	if err := s.feedbackRepo.UpdateWithStatus(ctx, feedback, revisionChanged); err != nil {
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}

	s.logger.Info().
		Str("feedback_id", feedback.ID).
		Bool("status_recomputed", revisionChanged).
		Msg("Feedback amended")

	return feedback, nil
}

func (s *feedbackService) GetByID(ctx context.Context, actor models.Actor, feedbackID string) (*models.Feedback, error) {
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	if feedback == nil {
		return nil, fmt.Errorf("%w: feedback %s", ErrNotFound, feedbackID)
	}

	if err := s.checkReadScope(ctx, actor, feedback.SubmissionID); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (s *feedbackService) AuthoritativeFor(ctx context.Context, actor models.Actor, submissionID string) (*models.Feedback, error) {
	if err := s.checkReadScope(ctx, actor, submissionID); err != nil {
		return nil, err
	}
	return s.feedbackRepo.Latest(ctx, submissionID)
}

func (s *feedbackService) History(ctx context.Context, actor models.Actor, submissionID string) ([]models.Feedback, error) {
	if err := s.checkReadScope(ctx, actor, submissionID); err != nil {
		return nil, err
	}
	return s.feedbackRepo.History(ctx, submissionID)
}

func (s *feedbackService) Delete(ctx context.Context, actor models.Actor, feedbackID string) error {
	feedback, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		return fmt.Errorf("failed to get feedback: %w", err)
	}
	if feedback == nil {
		return fmt.Errorf("%w: feedback %s", ErrNotFound, feedbackID)
	}

	if !policy.CanAct(actor, policy.ActionDeleteFeedback, policy.Target{Feedback: feedback}) {
		return ErrForbidden
	}

	// The submission status is left as-is; only creating or amending a
	// record recomputes it.
	if err := s.feedbackRepo.Delete(ctx, feedbackID); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	s.logger.Info().
		Str("feedback_id", feedbackID).
		Str("actor_id", actor.ID).
		Msg("Feedback deleted")

	return nil
}

func (s *feedbackService) checkReadScope(ctx context.Context, actor models.Actor, submissionID string) error {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}

	course, err := s.courseForSubmission(ctx, submission)
	if err != nil {
		return err
	}
	if !policy.CanAct(actor, policy.ActionReadFeedback, policy.Target{Submission: submission, Course: course}) {
		return ErrForbidden
	}
	return nil
}

func (s *feedbackService) courseForSubmission(ctx context.Context, submission *models.Submission) (*models.Course, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, submission.AssignmentID)
	}
	return s.courseRepo.GetByID(ctx, assignment.CourseID)
}

func (s *feedbackService) publishFeedbackEvent(ctx context.Context, feedback *models.Feedback) {
	if s.publisher == nil {
		return
	}
	event := &models.FeedbackEvent{
		FeedbackID:   feedback.ID,
		SubmissionID: feedback.SubmissionID,
		TeacherID:    feedback.TeacherID,
		Score:        feedback.Score,
		Status:       feedback.StatusEffect().String(),
		Timestamp:    time.Now().Unix(),
	}
	if err := s.publisher.PublishFeedbackEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish feedback event")
	}
}
