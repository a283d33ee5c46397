package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
)

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Roster returns the enrolled student ids plus the owning teacher id,
	// the denominator view used by the aggregator and the policy gate.
	Roster(ctx context.Context, courseID string) (*models.Roster, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	Unenroll(ctx context.Context, courseID, studentID string) error
}

type courseRepository struct {
	*PostgresRepository
}

func NewCourseRepository(db *sql.DB, logger zerolog.Logger) CourseRepository {
	return &courseRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (id, title, description, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		course.TeacherID,
		course.CreatedAt,
		course.UpdatedAt,
	)

	return err
}

func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, title, description, teacher_id, created_at, updated_at
		FROM courses
		WHERE id = $1
	`

	course := &models.Course{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.TeacherID,
		&course.CreatedAt,
		&course.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return course, err
}

func (r *courseRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

func (r *courseRepository) Roster(ctx context.Context, courseID string) (*models.Roster, error) {
	course, err := r.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, nil
	}

	query := `
		SELECT student_id
		FROM enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := &models.Roster{
		CourseID:  courseID,
		TeacherID: course.TeacherID,
	}
	for rows.Next() {
		var studentID string
		if err := rows.Scan(&studentID); err != nil {
			return nil, err
		}
		roster.StudentIDs = append(roster.StudentIDs, studentID)
	}

	return roster, rows.Err()
}

func (r *courseRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (course_id, student_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		enrollment.CourseID,
		enrollment.StudentID,
		enrollment.EnrolledAt,
	)

	return err
}

func (r *courseRepository) Unenroll(ctx context.Context, courseID, studentID string) error {
	query := `DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`
	_, err := r.db.ExecContext(ctx, query, courseID, studentID)
	return err
}
