package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentocr/internal/services"
	"google.golang.org/api/option"
)

// ParseGCSURI splits gs://bucket/object into its bucket and object names.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("gs:// URI must name a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}

// StorageFetcher downloads gs:// inputs into the local workspace.
type StorageFetcher struct {
	client *storage.Client
}

func NewStorageFetcher(ctx context.Context, opts ...option.ClientOption) (*StorageFetcher, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &StorageFetcher{client: client}, nil
}

func (s *StorageFetcher) Close() error {
	return s.client.Close()
}

// Fetch streams the object at uri into destDir, keeping its base name, and
// returns the local path.
func (s *StorageFetcher) Fetch(ctx context.Context, uri, destDir string) (string, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, path.Base(object))
	if err := s.streamGCSObject(ctx, bucket, object, destPath); err != nil {
		return "", err
	}
	slog.Info("Fetched remote input.", "uri", uri, "path", destPath)
	return destPath, nil
}

func (s *StorageFetcher) streamGCSObject(ctx context.Context, bucket, object, destPath string) error {
	gcsReader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: gs://%s/%s does not exist", services.ErrNotFound, bucket, object)
		}
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()

	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create local file at %s: %w", destPath, err)
	}
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		localFile.Close()
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return localFile.Close()
}
