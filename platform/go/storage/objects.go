package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// ObjectStore removes blobs that no longer have a database row and verifies bucket access.
type ObjectStore interface {
	// Check confirms the bucket is reachable and the prefix can be listed.
	Check(ctx context.Context, bucket, prefix string) error
	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, loc ObjectLocation) error
}

// GCSStore is an ObjectStore backed by Google Cloud Storage.
type GCSStore struct {
	client *gcs.Client
}

func NewGCSStore(client *gcs.Client) *GCSStore {
	if client == nil {
		panic("gcs store requires client")
	}
	return &GCSStore{client: client}
}

func (s *GCSStore) Check(ctx context.Context, bucket, prefix string) error {
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("bucket is required")
	}

	bkt := s.client.Bucket(bucket)
	if _, err := bkt.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}

	// List at most one object to validate access to the prefix; empty is fine.
	it := bkt.Objects(ctx, &gcs.Query{Prefix: prefix})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("list prefix: %w", err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, loc ObjectLocation) error {
	if loc.Bucket == "" || loc.FullPath == "" {
		return fmt.Errorf("object location is incomplete")
	}
	err := s.client.Bucket(loc.Bucket).Object(loc.FullPath).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", loc.Bucket, loc.FullPath, err)
	}
	return nil
}

// LocalStore keeps objects under BasePath/<bucket>/<path> for local development.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) *LocalStore {
	if strings.TrimSpace(basePath) == "" {
		panic("local store requires basePath")
	}
	return &LocalStore{basePath: basePath}
}

func (s *LocalStore) Check(_ context.Context, bucket, prefix string) error {
	dir, err := s.path(bucket, prefix)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefix path: %w", err)
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, loc ObjectLocation) error {
	if loc.FullPath == "" {
		return fmt.Errorf("object location is incomplete")
	}
	file, err := s.path(loc.Bucket, loc.FullPath)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", file, err)
	}
	return nil
}

// path joins bucket and key under basePath, refusing keys that escape it.
func (s *LocalStore) path(bucket, key string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", fmt.Errorf("bucket is required")
	}
	root := filepath.Join(s.basePath, bucket)
	full := filepath.Join(root, filepath.FromSlash(key))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the bucket", key)
	}
	return full, nil
}
