// Package storage lists and streams images from the file-storage API that
// backs each gallery folder.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/smithy-go"
	"google.golang.org/api/googleapi"

	"gallerylinks/internal/config"
	"gallerylinks/internal/models"
)

// PageSize caps a folder listing. Larger folders are truncated.
const PageSize = 1000

// DefaultContentType is used when the source does not report one.
const DefaultContentType = "image/jpeg"

var ErrMissingCredentials = errors.New("storage credentials are missing in environment variables")

// Backend lists image files in a folder and opens single files for streaming.
type Backend interface {
	ListImages(ctx context.Context, folderID string) ([]models.File, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}

// Error carries a human-readable detail from the storage API.
type Error struct {
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, fallback string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	detail := apiMessage(err)
	if detail == "" {
		detail = fallback
	}
	return &Error{Op: op, Detail: detail, Err: err}
}

// apiMessage prefers the storage API's own message over transport wrapper text.
func apiMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	var aerr smithy.APIError
	if errors.As(err, &aerr) && aerr.ErrorMessage() != "" {
		return aerr.ErrorMessage()
	}
	return err.Error()
}

// Detail returns the text to show users for a storage failure.
func Detail(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsImage reports whether a MIME type denotes an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// New builds the backend selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageDrive:
		return NewDrive(ctx, cfg.GoogleServiceAccountEmail, cfg.GooglePrivateKey)
	case config.StorageS3:
		return NewS3(ctx, S3Options{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
