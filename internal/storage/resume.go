// Package storage holds the resume asset: one fixed-named PDF in an
// S3-compatible bucket, overwritten on re-upload rather than versioned.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"sonic/internal/config"
)

// ResumeObjectName is the fixed object key of the resume. There is only
// ever one resume; existence is checked by listing the bucket and
// presence-testing this name.
const ResumeObjectName = "resume.pdf"

// MaxResumeSize caps uploads at 25 MB.
const MaxResumeSize = 25 * 1024 * 1024

var (
	ErrResumeTooLarge = errors.New("resume exceeds the 25 MB limit")
	ErrResumeNotPDF   = errors.New("resume must be a PDF")
)

type ResumeStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewResumeStore(cfg config.StorageConfig, logger *zap.Logger) (*ResumeStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &ResumeStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

// Exists lists the bucket and presence-tests the fixed resume name.
func (s *ResumeStore) Exists(ctx context.Context) (bool, error) {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{})
	for obj := range objects {
		if obj.Err != nil {
			return false, obj.Err
		}
		if obj.Key == ResumeObjectName {
			return true, nil
		}
	}
	return false, nil
}

// PublicURL resolves the public URL of the resume. The URL is only
// meaningful when Exists reports true.
func (s *ResumeStore) PublicURL() string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, ResumeObjectName)
}

// Upload overwrites the resume. Only PDFs up to MaxResumeSize are accepted.
func (s *ResumeStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) error {
	if size > MaxResumeSize {
		return ErrResumeTooLarge
	}
	if contentType != "application/pdf" {
		return ErrResumeNotPDF
	}

	_, err := s.client.PutObject(ctx, s.bucket, ResumeObjectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload resume: %w", err)
	}

	s.logger.Info("Resume uploaded", zap.Int64("size", size))
	return nil
}

// Fetch streams the stored resume.
func (s *ResumeStore) Fetch(ctx context.Context) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ResumeObjectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
