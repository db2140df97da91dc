package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

var ErrObjectNotFound = errors.New(errors.ErrCodeDocumentUnavailable, "document not found in storage")

// DocumentStore resolves contract MainDocument references against the
// documents bucket.
type DocumentStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewDocumentStore(client *MinIOClient, logger logging.Logger) *DocumentStore {
	return &DocumentStore{client: client, logger: logger}
}

// PresignedURL returns a GET link valid for expiry, or the configured
// default when expiry is zero.  The object must exist; a dangling
// reference yields ErrObjectNotFound rather than a link that 404s.
func (s *DocumentStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	api, err := s.client.api()
	if err != nil {
		return "", err
	}
	key := cleanKey(objectKey)
	if key == "" {
		return "", errors.NewValidationOp("document", "objectKey", "required")
	}
	if expiry <= 0 {
		expiry = s.client.config.PresignExpiry
	}

	if _, err := api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return "", ErrObjectNotFound.WithDetail(key)
		}
		return "", errors.Wrap(err, errors.CodeStorageError, "failed to stat document").WithDetail(key)
	}

	u, err := api.PresignedGetObject(ctx, s.client.Bucket(), key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "failed to presign document").WithDetail(key)
	}
	s.logger.Debug("Presigned document", logging.String("key", key), logging.Duration("expiry", expiry))
	return u.String(), nil
}

// UploadResult describes a stored document.
type UploadResult struct {
	ObjectKey string
	ETag      string
	Size      int64
}

// Upload stores r under objectKey.  size may be -1 for unknown lengths.
func (s *DocumentStore) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	api, err := s.client.api()
	if err != nil {
		return nil, err
	}
	key := cleanKey(objectKey)
	if key == "" {
		return nil, errors.NewValidationOp("document", "objectKey", "required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := api.PutObject(ctx, s.client.Bucket(), key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to upload document").WithDetail(key)
	}
	s.logger.Info("Document uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return &UploadResult{ObjectKey: key, ETag: info.ETag, Size: info.Size}, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject", "NotFound":
		return true
	}
	return false
}

//Personal.AI order the ending
