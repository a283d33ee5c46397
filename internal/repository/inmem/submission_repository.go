package inmem

import (
	"context"
	"sort"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/repository"
)

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

// CreateVersion holds the write lock across the read-max-then-insert pair,
// so concurrent submissions for the same (assignment, student) pair can
// never observe the same max.
func (r *submissionRepository) CreateVersion(_ context.Context, submission *models.Submission) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	maxVersion := 0
	for _, s := range r.db.submissions {
		if s.AssignmentID == submission.AssignmentID && s.StudentID == submission.StudentID && s.Version > maxVersion {
			maxVersion = s.Version
		}
	}
	submission.Version = maxVersion + 1

	s := *submission
	r.db.submissions[s.ID] = &s
	return nil
}

func (r *submissionRepository) GetByID(_ context.Context, id string) (*models.Submission, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.submissions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *submissionRepository) Latest(_ context.Context, assignmentID, studentID string) (*models.Submission, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var latest *models.Submission
	for _, s := range r.db.submissions {
		if s.AssignmentID != assignmentID || s.StudentID != studentID {
			continue
		}
		if latest == nil || s.Version > latest.Version {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *submissionRepository) History(_ context.Context, assignmentID, studentID string) ([]models.Submission, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var history []models.Submission
	for _, s := range r.db.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			history = append(history, *s)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Version > history[j].Version
	})
	return history, nil
}

func (r *submissionRepository) Update(_ context.Context, submission *models.Submission) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.submissions[submission.ID]
	if !ok {
		return nil
	}
	existing.Comment = submission.Comment
	existing.Content = submission.Content
	existing.Status = submission.Status
	existing.UpdatedAt = submission.UpdatedAt
	return nil
}

func (r *submissionRepository) UpdateStatus(_ context.Context, id string, status models.SubmissionStatus) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if s, ok := r.db.submissions[id]; ok {
		s.Status = status
	}
	return nil
}

func (r *submissionRepository) Delete(_ context.Context, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	delete(r.db.submissions, id)
	for fbID, fb := range r.db.feedbacks {
		if fb.SubmissionID == id {
			delete(r.db.feedbacks, fbID)
			delete(r.db.feedbackSeq, fbID)
		}
	}
	return nil
}

func (r *submissionRepository) CurrentByAssignment(_ context.Context, assignmentID string) ([]models.Submission, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	currentByStudent := make(map[string]*models.Submission)
	for _, s := range r.db.submissions {
		if s.AssignmentID != assignmentID {
			continue
		}
		if cur, ok := currentByStudent[s.StudentID]; !ok || s.Version > cur.Version {
			currentByStudent[s.StudentID] = s
		}
	}

	current := make([]models.Submission, 0, len(currentByStudent))
	for _, s := range currentByStudent {
		current = append(current, *s)
	}
	sort.Slice(current, func(i, j int) bool {
		return current[i].StudentID < current[j].StudentID
	})
	return current, nil
}

func (r *submissionRepository) CountByAssignment(_ context.Context, assignmentID string) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	count := 0
	for _, s := range r.db.submissions {
		if s.AssignmentID == assignmentID {
			count++
		}
	}
	return count, nil
}

func (r *submissionRepository) List(_ context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var matched []models.SubmissionWithDetails
	for _, s := range r.db.submissions {
		if filter.AssignmentID != "" && s.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && s.Status.String() != filter.Status {
			continue
		}
		assignment := r.db.assignments[s.AssignmentID]
		if filter.CourseID != "" && (assignment == nil || assignment.CourseID != filter.CourseID) {
			continue
		}
		if filter.CourseTeacherID != "" {
			if assignment == nil {
				continue
			}
			course := r.db.courses[assignment.CourseID]
			if course == nil || course.TeacherID != filter.CourseTeacherID {
				continue
			}
		}

		detail := models.SubmissionWithDetails{Submission: *s}
		if assignment != nil {
			detail.AssignmentTitle = assignment.Title
		}
		if student := r.db.users[s.StudentID]; student != nil {
			detail.StudentName = student.Name
			detail.StudentEmail = student.Email
		}
		matched = append(matched, detail)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
