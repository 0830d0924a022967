// Package s3backend implements storage.Backend (C6) against an S3 bucket,
// grounded on the teacher's pkg/blocks/store/s3.Store. A file's storage path
// becomes its object key directly; "directories" have no object of their
// own (S3 has no native directory concept), so CreateDirectory is a no-op
// and DeleteDirectory removes every object under the prefix.
package s3backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/cloudvault/vaultd/internal/storage"
)

// Config configures the S3 backend.
type Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// Backend is an S3-backed storage.Backend.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds a Backend, loading AWS credentials from the default chain.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3backend: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}

	return &Backend{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (b *Backend) key(path string) string {
	return b.prefix + strings.TrimPrefix(path, "/")
}

func (b *Backend) UserDirectory(ctx context.Context, userID string) (string, error) {
	return "users/" + userID, nil
}

func (b *Backend) CreateEmptyFile(ctx context.Context, path string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("s3backend: create empty object: %w", err)
	}
	return nil
}

// WriteChunkAt uploads data as a temporary part object and appends it onto
// the existing object via appendPart: S3 has no in-place seek-write, so each
// chunk is buffered under a part key and concatenated onto the object. The
// offset only names the part key; the bytes are always appended at the end,
// so chunks must arrive strictly in order (the upload chunk handler in
// internal/handlers/upload.go enforces that ordering, so parts always
// arrive contiguous).
func (b *Backend) WriteChunkAt(ctx context.Context, path string, offset int64, data []byte) (int, error) {
	partKey := fmt.Sprintf("%s.part.%020d", b.key(path), offset)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(partKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("s3backend: put chunk: %w", err)
	}

	if err := b.appendPart(ctx, path, partKey); err != nil {
		return 0, err
	}
	return len(data), nil
}

// appendPart concatenates partKey onto path's object via a read-modify-write
// (GetObject + PutObject). Acceptable for this backend's target workload of
// moderate file sizes; large-file multipart upload is tracked as a known
// limitation rather than implemented speculatively.
func (b *Backend) appendPart(ctx context.Context, path, partKey string) error {
	existing, err := b.readObject(ctx, b.key(path))
	if err != nil && !isNotFound(err) {
		return err
	}
	part, err := b.readObject(ctx, partKey)
	if err != nil {
		return err
	}

	combined := append(existing, part...)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Body:   bytes.NewReader(combined),
	})
	if err != nil {
		return fmt.Errorf("s3backend: append chunk: %w", err)
	}

	_, _ = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(partKey),
	})
	return nil
}

func (b *Backend) readObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotExist
		}
		return nil, fmt.Errorf("s3backend: get object: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (b *Backend) ReadChunkAt(ctx context.Context, path string, offset int64, maxBytes int) ([]byte, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+int64(maxBytes)-1)
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotExist
		}
		return nil, fmt.Errorf("s3backend: get object range: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return fmt.Errorf("s3backend: delete object: %w", err)
	}
	return nil
}

func (b *Backend) MoveFile(ctx context.Context, oldPath, newPath string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(b.key(newPath)),
		CopySource: aws.String(b.bucket + "/" + b.key(oldPath)),
	})
	if err != nil {
		return fmt.Errorf("s3backend: copy object: %w", err)
	}
	return b.DeleteFile(ctx, oldPath)
}

func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	return nil
}

func (b *Backend) DeleteDirectory(ctx context.Context, path string, recursive bool) error {
	prefix := b.key(path)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3backend: list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	if len(objects) == 0 {
		return nil
	}
	if !recursive && len(objects) > 0 {
		return fmt.Errorf("s3backend: directory not empty")
	}

	_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("s3backend: delete objects: %w", err)
	}
	return nil
}

func (b *Backend) Size(ctx context.Context, path string) (int64, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, storage.ErrNotExist
		}
		return 0, fmt.Errorf("s3backend: head object: %w", err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "NoSuchKey") || strings.Contains(s, "NotFound") || strings.Contains(s, "404")
}

// NewObjectKey generates a fresh, collision-resistant object key for a new
// file, independent of its human-visible name.
func NewObjectKey() string {
	return uuid.NewString()
}

var _ storage.Backend = (*Backend)(nil)
