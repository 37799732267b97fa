package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/quill/config"
	storageutil "github.com/indieinfra/quill/storage/util"
)

// s3Client is the subset of the minio client the store uses; tests swap it
// for a mock.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

// S3Store uploads media to S3 or any compatible service (R2, Backblaze,
// MinIO).
type S3Store struct {
	client     s3Client
	bucket     string
	publicBase string
	pattern    *storageutil.PathPattern
}

func NewS3Store(cfg *config.S3MediaStrategy) (*S3Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 media config is nil")
	}

	region := strings.TrimSpace(cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
		endpointHost = parsed.Host
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyId, cfg.SecretKeyId, ""),
		Secure:       true,
		Region:       region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: storageutil.NormalizeBaseURL(cfg.PublicBaseUrl),
		pattern:    storageutil.DefaultMediaPattern(),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if file == nil || header == nil {
		return "", fmt.Errorf("file and header are required")
	}

	key, err := s.objectKey(header.Filename)
	if err != nil {
		return "", err
	}

	opts := minio.PutObjectOptions{ContentType: header.Header.Get("Content-Type")}

	if _, err := s.client.PutObject(ctx, s.bucket, key, file, header.Size, opts); err != nil {
		return "", fmt.Errorf("upload to s3 failed: %w", err)
	}

	return s.publicBase + key, nil
}

func (s *S3Store) Delete(ctx context.Context, urlStr string) error {
	if !strings.HasPrefix(urlStr, s.publicBase) {
		return fmt.Errorf("url does not belong to this media store")
	}

	key := strings.TrimPrefix(urlStr, s.publicBase)

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete from s3 failed: %w", err)
	}

	return nil
}

// objectKey derives a date-prefixed object key from the uploaded filename,
// falling back to a UUID when the filename is empty.
func (s *S3Store) objectKey(filename string) (string, error) {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(path.Base(filename), ext)
	if base == "" || base == "." {
		base = uuid.New().String()
	}

	key, err := s.pattern.Generate(base, time.Now(), ext)
	if err != nil {
		return "", fmt.Errorf("failed to generate object key: %w", err)
	}

	return strings.ReplaceAll(key, "\\", "/"), nil
}
