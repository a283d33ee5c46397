package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/payload"
)

// SubmissionRepository owns the ledger of submission versions. CreateVersion
// is the serialized critical section: read max version, insert max+1, all
// inside one transaction keyed on the (assignment, student) pair.
type SubmissionRepository interface {
	CreateVersion(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Latest(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	History(ctx context.Context, assignmentID, studentID string) ([]models.Submission, error)
	// Update mutates content, comment, status and updated_at of an existing
	// ledger row in place (the revise path). Version never changes.
	Update(ctx context.Context, submission *models.Submission) error
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error
	Delete(ctx context.Context, id string) error
	// CurrentByAssignment returns each student's max-version row for the
	// assignment, the only rows the aggregator may count.
	CurrentByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	CountByAssignment(ctx context.Context, assignmentID string) (int, error)
	List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error)
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const submissionColumns = `id, assignment_id, student_id, version, status, comment, content, created_at, updated_at`

func scanSubmission(row interface {
	Scan(dest ...interface{}) error
}) (*models.Submission, error) {
	sub := &models.Submission{}
	var blob []byte

	err := row.Scan(
		&sub.ID,
		&sub.AssignmentID,
		&sub.StudentID,
		&sub.Version,
		&sub.Status,
		&sub.Comment,
		&blob,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Content, err = payload.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding submission %s content: %w", sub.ID, err)
	}
	return sub, nil
}

func (r *submissionRepository) CreateVersion(ctx context.Context, submission *models.Submission) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize concurrent submissions for the same (assignment, student)
	// pair; the unique index on (assignment_id, student_id, version) is the
	// storage backstop.
	lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`
	if _, err := tx.ExecContext(ctx, lockQuery, submission.AssignmentID, submission.StudentID); err != nil {
		return err
	}

	var maxVersion int
	maxQuery := `
		SELECT COALESCE(MAX(version), 0)
		FROM submissions
		WHERE assignment_id = $1 AND student_id = $2
	`
	if err := tx.QueryRowContext(ctx, maxQuery, submission.AssignmentID, submission.StudentID).Scan(&maxVersion); err != nil {
		return err
	}
	submission.Version = maxVersion + 1

	blob, err := payload.Encode(submission.Content)
	if err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO submissions (id, assignment_id, student_id, version, status, comment, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		submission.ID,
		submission.AssignmentID,
		submission.StudentID,
		submission.Version,
		submission.Status,
		submission.Comment,
		blob,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func (r *submissionRepository) Latest(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE assignment_id = $1 AND student_id = $2
		ORDER BY version DESC
		LIMIT 1
	`

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, assignmentID, studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func (r *submissionRepository) History(ctx context.Context, assignmentID, studentID string) ([]models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE assignment_id = $1 AND student_id = $2
		ORDER BY version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *sub)
	}

	return submissions, rows.Err()
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	blob, err := payload.Encode(submission.Content)
	if err != nil {
		return err
	}

	query := `
		UPDATE submissions
		SET comment = $1, content = $2, status = $3, updated_at = $4
		WHERE id = $5
	`

	_, err = r.db.ExecContext(ctx, query,
		submission.Comment,
		blob,
		submission.Status,
		submission.UpdatedAt,
		submission.ID,
	)
	return err
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	query := `
		UPDATE submissions
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	return err
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	// Feedback rows go with it via ON DELETE CASCADE.
	query := `DELETE FROM submissions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *submissionRepository) CurrentByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	query := `
		SELECT DISTINCT ON (student_id) ` + submissionColumns + `
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY student_id, version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *sub)
	}

	return submissions, rows.Err()
}

func (r *submissionRepository) CountByAssignment(ctx context.Context, assignmentID string) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE assignment_id = $1`

	var count int
	err := r.db.QueryRowContext(ctx, query, assignmentID).Scan(&count)
	return count, err
}

func (r *submissionRepository) List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.AssignmentID != "" {
		addArg(" AND s.assignment_id = $%d", filter.AssignmentID)
	}
	if filter.StudentID != "" {
		addArg(" AND s.student_id = $%d", filter.StudentID)
	}
	if filter.CourseID != "" {
		addArg(" AND a.course_id = $%d", filter.CourseID)
	}
	if filter.CourseTeacherID != "" {
		addArg(" AND a.course_id IN (SELECT id FROM courses WHERE teacher_id = $%d)", filter.CourseTeacherID)
	}
	if filter.Status != "" {
		addArg(" AND s.status = $%d", filter.Status)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM submissions s
		JOIN assignments a ON s.assignment_id = a.id` + where

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			s.id, s.assignment_id, s.student_id, s.version, s.status, s.comment, s.content, s.created_at, s.updated_at,
			u.name as student_name, u.email as student_email,
			a.title as assignment_title
		FROM submissions s
		JOIN users u ON s.student_id = u.id
		JOIN assignments a ON s.assignment_id = a.id` + where + `
		ORDER BY s.created_at DESC
	`
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var submissions []models.SubmissionWithDetails
	for rows.Next() {
		var sub models.SubmissionWithDetails
		var blob []byte
		err := rows.Scan(
			&sub.ID,
			&sub.AssignmentID,
			&sub.StudentID,
			&sub.Version,
			&sub.Status,
			&sub.Comment,
			&blob,
			&sub.CreatedAt,
			&sub.UpdatedAt,
			&sub.StudentName,
			&sub.StudentEmail,
			&sub.AssignmentTitle,
		)
		if err != nil {
			return nil, 0, err
		}
		if sub.Content, err = payload.Decode(blob); err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, sub)
	}

	return submissions, total, rows.Err()
}
