// Package storage is the file-storage collaborator boundary. The engine
// only ever sees descriptors; bytes live behind this interface.
package storage

import (
	"context"
	"errors"

	"github.com/studyhall/homework-service/internal/payload"
)

// ErrStorage wraps any failure of the backing store. It is never retried
// here; retry policy belongs to the caller.
var ErrStorage = errors.New("file storage error")

type FileKind string

const (
	FileKindImage FileKind = "image"
	FileKindAudio FileKind = "audio"
)

// Upload is a raw incoming file.
type Upload struct {
	Filename string
	Kind     FileKind
	Content  []byte
}

// FileStore persists uploads and deletes them by path.
type FileStore interface {
	Save(ctx context.Context, upload Upload) (payload.FileDescriptor, error)
	Delete(ctx context.Context, path string) error
}
