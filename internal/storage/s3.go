package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gallerylinks/internal/models"
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Region       string
	Bucket       string
	BaseEndpoint string // e.g. a MinIO URL; empty for AWS
	AccessKey    string
	SecretKey    string
}

// s3API is the subset of *s3.Client used here.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 treats key prefixes in a bucket as gallery folders. File IDs are the
// object keys, base64url-encoded so they fit in one path segment.
type S3 struct {
	client s3API
	bucket string
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3 builds an S3 backend.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("%w: S3_BUCKET is not set", ErrMissingCredentials)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{client: client, bucket: opts.Bucket}, nil
}

// EncodeKey turns an object key into a file ID.
func EncodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeKey reverses EncodeKey.
func DecodeKey(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("invalid file id: %w", err)
	}
	return string(b), nil
}

// imageType guesses the MIME type from the key's extension.
func imageType(key string) string {
	t := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// ListImages returns up to PageSize images directly under the prefix.
func (s *S3) ListImages(ctx context.Context, folderID string) ([]models.File, error) {
	prefix := strings.Trim(folderID, "/")
	if prefix != "" {
		prefix += "/"
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(PageSize),
	})
	if err != nil {
		return nil, wrap("list folder", "Failed to list files from bucket", err)
	}

	files := make([]models.File, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		mimeType := imageType(key)
		if !IsImage(mimeType) {
			continue
		}
		file := models.File{
			ID:       EncodeKey(key),
			Name:     path.Base(key),
			MimeType: mimeType,
		}
		if size := aws.ToInt64(obj.Size); size > 0 {
			file.Size = strconv.FormatInt(size, 10)
		}
		files = append(files, file)
	}
	return files, nil
}

// Open streams one object.
func (s *S3) Open(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	key, err := DecodeKey(fileID)
	if err != nil {
		return nil, "", &Error{Op: "open file", Detail: err.Error(), Err: err}
	}
	if key == "" {
		err := errors.New("empty file id")
		return nil, "", &Error{Op: "open file", Detail: err.Error(), Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", wrap("open file", "Failed to stream file from bucket", err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := imageType(key); guessed != "" {
			contentType = guessed
		} else {
			contentType = DefaultContentType
		}
	}
	return out.Body, contentType, nil
}
