package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/repository"
)

type feedbackRepository struct {
	db *DB
}

func NewFeedbackRepository(db *DB) repository.FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) CreateWithStatus(_ context.Context, feedback *models.Feedback) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	// The creation instant is assigned under the lock so its order matches
	// the order the records land, like the postgres row-lock path.
	now := time.Now().UTC()
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	fb := *feedback
	r.db.seq++
	r.db.feedbacks[fb.ID] = &fb
	r.db.feedbackSeq[fb.ID] = r.db.seq

	r.applyAuthoritativeStatus(fb.SubmissionID, now)
	return nil
}

func (r *feedbackRepository) UpdateWithStatus(_ context.Context, feedback *models.Feedback, recomputeStatus bool) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.feedbacks[feedback.ID]
	if !ok {
		return nil
	}
	existing.Score = feedback.Score
	existing.Comments = feedback.Comments
	existing.RequiresRevision = feedback.RequiresRevision
	existing.Content = feedback.Content
	existing.UpdatedAt = feedback.UpdatedAt

	if recomputeStatus {
		r.applyAuthoritativeStatus(existing.SubmissionID, feedback.UpdatedAt)
	}
	return nil
}

// applyAuthoritativeStatus repoints the submission status at its most
// recently created feedback record. Callers must hold the write lock.
func (r *feedbackRepository) applyAuthoritativeStatus(submissionID string, at time.Time) {
	var latest *models.Feedback
	for _, fb := range r.db.feedbacks {
		if fb.SubmissionID != submissionID {
			continue
		}
		if latest == nil || r.newer(fb, latest) {
			latest = fb
		}
	}
	if latest == nil {
		return
	}
	if sub, ok := r.db.submissions[submissionID]; ok {
		sub.Status = latest.StatusEffect()
		sub.UpdatedAt = at
	}
}

func (r *feedbackRepository) GetByID(_ context.Context, id string) (*models.Feedback, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if fb, ok := r.db.feedbacks[id]; ok {
		cp := *fb
		return &cp, nil
	}
	return nil, nil
}

func (r *feedbackRepository) Latest(_ context.Context, submissionID string) (*models.Feedback, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var latest *models.Feedback
	for _, fb := range r.db.feedbacks {
		if fb.SubmissionID != submissionID {
			continue
		}
		if latest == nil || r.newer(fb, latest) {
			latest = fb
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *feedbackRepository) History(_ context.Context, submissionID string) ([]models.Feedback, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var history []*models.Feedback
	for _, fb := range r.db.feedbacks {
		if fb.SubmissionID == submissionID {
			history = append(history, fb)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return r.newer(history[i], history[j])
	})

	out := make([]models.Feedback, 0, len(history))
	for _, fb := range history {
		out = append(out, *fb)
	}
	return out, nil
}

func (r *feedbackRepository) Delete(_ context.Context, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	delete(r.db.feedbacks, id)
	delete(r.db.feedbackSeq, id)
	return nil
}

// newer orders by creation instant with the insertion sequence as
// tie-breaker, matching the postgres (created_at, id) ordering.
func (r *feedbackRepository) newer(a, b *models.Feedback) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return r.db.feedbackSeq[a.ID] > r.db.feedbackSeq[b.ID]
	}
	return a.CreatedAt.After(b.CreatedAt)
}
