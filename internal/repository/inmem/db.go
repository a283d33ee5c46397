// Package inmem provides in-memory implementations of the repository
// interfaces. They back the service tests and local development; the mutex
// on DB stands in for the per-pair transaction serialization the postgres
// layer gets from advisory locks.
package inmem

import (
	"sync"

	"github.com/studyhall/homework-service/internal/models"
)

type DB struct {
	mutex sync.RWMutex

	users       map[string]*models.User
	courses     map[string]*models.Course
	enrollments map[string][]models.Enrollment // keyed by course id
	assignments map[string]*models.Assignment
	submissions map[string]*models.Submission
	feedbacks   map[string]*models.Feedback

	// feedbackSeq breaks created_at ties so "most recently created" stays
	// well defined at clock resolution.
	feedbackSeq map[string]int
	seq         int
}

func Open() *DB {
	return &DB{
		users:       make(map[string]*models.User),
		courses:     make(map[string]*models.Course),
		enrollments: make(map[string][]models.Enrollment),
		assignments: make(map[string]*models.Assignment),
		submissions: make(map[string]*models.Submission),
		feedbacks:   make(map[string]*models.Feedback),
		feedbackSeq: make(map[string]int),
	}
}
