package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"gallerylinks/internal/models"
)

const (
	driveScope    = "https://www.googleapis.com/auth/drive.readonly"
	driveTokenURL = "https://oauth2.googleapis.com/token"
	driveFields   = "files(id, name, mimeType, size, thumbnailLink, webContentLink)"
)

// Drive reads folders shared with a Google service account.
type Drive struct {
	svc *drive.Service
}

// NewDrive builds a Drive backend authenticated as the service account.
// Missing credentials are not fatal here: every call then fails with
// ErrMissingCredentials so the gallery page can explain the problem.
func NewDrive(ctx context.Context, email, privateKey string, opts ...option.ClientOption) (*Drive, error) {
	if len(opts) == 0 {
		if email == "" || privateKey == "" {
			return &Drive{}, nil
		}
		conf := &jwt.Config{
			Email:      email,
			PrivateKey: []byte(privateKey),
			Scopes:     []string{driveScope},
			TokenURL:   driveTokenURL,
		}
		opts = []option.ClientOption{option.WithHTTPClient(conf.Client(ctx))}
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &Drive{svc: svc}, nil
}

// folderQuery selects non-trashed images directly inside the folder.
func folderQuery(folderID string) string {
	escaped := strings.ReplaceAll(folderID, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false", escaped)
}

// ListImages returns up to PageSize images in the folder.
func (d *Drive) ListImages(ctx context.Context, folderID string) ([]models.File, error) {
	if d.svc == nil {
		return nil, &Error{Op: "list folder", Detail: ErrMissingCredentials.Error(), Err: ErrMissingCredentials}
	}

	resp, err := d.svc.Files.List().
		Q(folderQuery(folderID)).
		Fields(driveFields).
		PageSize(PageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrap("list folder", "Failed to list files from Google Drive", err)
	}

	files := make([]models.File, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, fromDriveFile(f))
	}
	return files, nil
}

// Open streams the file's bytes.
func (d *Drive) Open(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	if d.svc == nil {
		return nil, "", &Error{Op: "open file", Detail: ErrMissingCredentials.Error(), Err: ErrMissingCredentials}
	}

	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, "", wrap("open file", "Failed to stream file from Google Drive", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return resp.Body, contentType, nil
}

func fromDriveFile(f *drive.File) models.File {
	file := models.File{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		ThumbnailLink:  f.ThumbnailLink,
		WebContentLink: f.WebContentLink,
	}
	if f.Size > 0 {
		file.Size = strconv.FormatInt(f.Size, 10)
	}
	return file
}
