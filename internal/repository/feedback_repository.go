package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
)

// FeedbackRepository binds grading records to submission versions. The
// write paths that change which record is authoritative lock the owning
// submission row, so competing grades serialize and the status always
// lands on the side of the most recently created record.
type FeedbackRepository interface {
	// CreateWithStatus inserts the record, assigning its creation instant
	// under the submission row lock, and repoints the submission status at
	// the authoritative record in the same transaction.
	CreateWithStatus(ctx context.Context, feedback *models.Feedback) error
	// UpdateWithStatus updates the record and, when recomputeStatus is set,
	// re-derives the submission status from the authoritative record in the
	// same transaction.
	UpdateWithStatus(ctx context.Context, feedback *models.Feedback, recomputeStatus bool) error
	GetByID(ctx context.Context, id string) (*models.Feedback, error)
	Latest(ctx context.Context, submissionID string) (*models.Feedback, error)
	History(ctx context.Context, submissionID string) ([]models.Feedback, error)
	Delete(ctx context.Context, id string) error
}

type feedbackRepository struct {
	*PostgresRepository
}

func NewFeedbackRepository(db *sql.DB, logger zerolog.Logger) FeedbackRepository {
	return &feedbackRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const feedbackColumns = `id, submission_id, teacher_id, score, comments, requires_revision, content, created_at, updated_at`

func scanFeedback(row interface {
	Scan(dest ...interface{}) error
}) (*models.Feedback, error) {
	fb := &models.Feedback{}
	var blob []byte

	err := row.Scan(
		&fb.ID,
		&fb.SubmissionID,
		&fb.TeacherID,
		&fb.Score,
		&fb.Comments,
		&fb.RequiresRevision,
		&blob,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Content, err = payload.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding feedback %s content: %w", fb.ID, err)
	}
	return fb, nil
}

func (r *feedbackRepository) CreateWithStatus(ctx context.Context, feedback *models.Feedback) error {
	blob, err := payload.Encode(feedback.Content)
	if err != nil {
		return err
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.lockSubmission(ctx, tx, feedback.SubmissionID); err != nil {
		return err
	}

	// clock_timestamp() under the row lock keeps the created_at order equal
	// to the commit order, so the last grade to land is also the newest.
	insertQuery := `
		INSERT INTO feedbacks (id, submission_id, teacher_id, score, comments, requires_revision, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, insertQuery,
		feedback.ID,
		feedback.SubmissionID,
		feedback.TeacherID,
		feedback.Score,
		feedback.Comments,
		feedback.RequiresRevision,
		blob,
	).Scan(&feedback.CreatedAt, &feedback.UpdatedAt)
	if err != nil {
		return err
	}

	if err := r.applyAuthoritativeStatus(ctx, tx, feedback.SubmissionID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *feedbackRepository) UpdateWithStatus(ctx context.Context, feedback *models.Feedback, recomputeStatus bool) error {
	blob, err := payload.Encode(feedback.Content)
	if err != nil {
		return err
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if recomputeStatus {
		if err := r.lockSubmission(ctx, tx, feedback.SubmissionID); err != nil {
			return err
		}
	}

	updateQuery := `
		UPDATE feedbacks
		SET score = $1, comments = $2, requires_revision = $3, content = $4, updated_at = $5
		WHERE id = $6
	`
	_, err = tx.ExecContext(ctx, updateQuery,
		feedback.Score,
		feedback.Comments,
		feedback.RequiresRevision,
		blob,
		feedback.UpdatedAt,
		feedback.ID,
	)
	if err != nil {
		return err
	}

	if recomputeStatus {
		if err := r.applyAuthoritativeStatus(ctx, tx, feedback.SubmissionID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *feedbackRepository) lockSubmission(ctx context.Context, tx *sql.Tx, submissionID string) error {
	var id string
	query := `SELECT id FROM submissions WHERE id = $1 FOR UPDATE`
	return tx.QueryRowContext(ctx, query, submissionID).Scan(&id)
}

// applyAuthoritativeStatus repoints the submission status at its most
// recently created feedback record. Callers must hold the submission row
// lock in tx.
func (r *feedbackRepository) applyAuthoritativeStatus(ctx context.Context, tx *sql.Tx, submissionID string) error {
	query := `
		SELECT requires_revision
		FROM feedbacks
		WHERE submission_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var requiresRevision bool
	if err := tx.QueryRowContext(ctx, query, submissionID).Scan(&requiresRevision); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	status := models.StatusGraded
	if requiresRevision {
		status = models.StatusNeedsRevision
	}

	statusQuery := `UPDATE submissions SET status = $1, updated_at = clock_timestamp() WHERE id = $2`
	_, err := tx.ExecContext(ctx, statusQuery, status, submissionID)
	return err
}

func (r *feedbackRepository) GetByID(ctx context.Context, id string) (*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedbacks WHERE id = $1`

	fb, err := scanFeedback(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return fb, err
}

func (r *feedbackRepository) Latest(ctx context.Context, submissionID string) (*models.Feedback, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedbacks
		WHERE submission_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	fb, err := scanFeedback(r.db.QueryRowContext(ctx, query, submissionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return fb, err
}

func (r *feedbackRepository) History(ctx context.Context, submissionID string) ([]models.Feedback, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedbacks
		WHERE submission_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedbacks []models.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		feedbacks = append(feedbacks, *fb)
	}

	return feedbacks, rows.Err()
}

func (r *feedbackRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM feedbacks WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
