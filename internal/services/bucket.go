package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/envutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

// BucketService is the file provider boundary: the catalog hands bytes over
// and stores only the URL that comes back.
type BucketService interface {
	Upload(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type bucketService struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
}

// allowedUploadExtensions mirrors the attachment types the catalog accepts.
var allowedUploadExtensions = map[string]struct{}{
	".doc": {}, ".docx": {},
	".ppt": {}, ".pptx": {},
	".xls": {}, ".xlsx": {},
	".pdf": {},
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")
	bucket := envutil.String("GCS_BUCKET_NAME", "")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	credentialsPath := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")

	ctx := context.Background()
	var client *storage.Client
	var err error
	if credentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		client, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &bucketService{log: serviceLog, client: client, bucketName: bucket}, nil
}

func (bs *bucketService) Upload(ctx context.Context, key string, file io.Reader, contentType string) (string, error) {
	ext := strings.ToLower(path.Ext(key))
	if _, ok := allowedUploadExtensions[ext]; !ok {
		return "", apierr.Validation("file", fmt.Sprintf("unsupported file type %q", ext))
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", apierr.Storage(fmt.Errorf("write object %q: %w", key, err))
	}
	if err := w.Close(); err != nil {
		return "", apierr.Storage(fmt.Errorf("close object writer %q: %w", key, err))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key), nil
}

// DownloadURL mints a short-lived signed URL so attachment reads never flow
// through this service.
func (bs *bucketService) DownloadURL(ctx context.Context, key string) (string, error) {
	url, err := bs.client.Bucket(bs.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		return "", apierr.Storage(fmt.Errorf("sign download url for %q: %w", key, err))
	}
	return url, nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return apierr.Storage(fmt.Errorf("delete object %q: %w", key, err))
	}
	return nil
}
