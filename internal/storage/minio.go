package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/payload"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type MinIOStore struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

var _ FileStore = (*MinIOStore)(nil)

func NewMinIOStore(cfg MinIOConfig, logger zerolog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating client: %v", ErrStorage, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: checking bucket: %v", ErrStorage, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("%w: creating bucket: %v", ErrStorage, err)
		}
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func (s *MinIOStore) Save(ctx context.Context, upload Upload) (payload.FileDescriptor, error) {
	now := time.Now().UTC()
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	key := fmt.Sprintf("%s/%s/%s%s", upload.Kind, now.Format("20060102"), uuid.New().String(), ext)

	mimeType := http.DetectContentType(upload.Content)

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(upload.Content), int64(len(upload.Content)),
		minio.PutObjectOptions{ContentType: mimeType},
	)
	if err != nil {
		return payload.FileDescriptor{}, fmt.Errorf("%w: putting object %s: %v", ErrStorage, key, err)
	}

	desc := payload.FileDescriptor{
		Filename:   upload.Filename,
		Path:       key,
		URL:        fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucket, key),
		Size:       int64(len(upload.Content)),
		MIMEType:   mimeType,
		UploadedAt: now,
	}

	// Best-effort media metadata; absence is not an error.
	if upload.Kind == FileKindImage {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Content)); err == nil {
			desc.Width = cfg.Width
			desc.Height = cfg.Height
		} else {
			s.logger.Debug().Err(err).Str("key", key).Msg("Could not read image dimensions")
		}
	}

	s.logger.Info().
		Str("key", key).
		Str("mime_type", mimeType).
		Int64("size", desc.Size).
		Msg("File stored")

	return desc, nil
}

func (s *MinIOStore) Delete(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: removing object %s: %v", ErrStorage, path, err)
	}
	return nil
}
