package service

import (
	"errors"

	"github.com/studyhall/homework-service/internal/payload"
	"github.com/studyhall/homework-service/internal/storage"
)

// Typed failure taxonomy. Every service operation returns either a value or
// one of these (possibly wrapped with context); the HTTP layer matches them
// with errors.Is and nothing is ever swallowed.
var (
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")
	ErrIllegalTransition       = errors.New("illegal status transition")
	ErrIncompatibleContentKind = errors.New("content incompatible with assignment kind")
	ErrScoreOutOfRange         = errors.New("score out of range")

	// Surfaced by collaborators, part of the same taxonomy.
	ErrInvalidPayload = payload.ErrInvalidPayload
	ErrStorage        = storage.ErrStorage
)
