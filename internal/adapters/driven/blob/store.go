// Package blob implements driven.BlobStore on top of github.com/viant/afs,
// so uploaded bytes can live on local disk (file://), in memory (mem://) or
// in any object store afs has a connector for.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Store addresses objects as baseURL/key.
type Store struct {
	fs      afs.Service
	baseURL string
}

// New creates a blob store rooted at baseURL. A bare filesystem path is
// treated as a file:// URL. If baseURL is empty, defaults to
// ~/.astraqa/blobs.
func New(baseURL string) (*Store, error) {
	if baseURL == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		baseURL = filepath.Join(home, ".astraqa", "blobs")
	}
	if !strings.Contains(baseURL, "://") {
		abs, err := filepath.Abs(baseURL)
		if err != nil {
			return nil, fmt.Errorf("resolving blob directory: %w", err)
		}
		baseURL = "file://" + filepath.ToSlash(abs)
	}

	return &Store{
		fs:      afs.New(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// BaseURL returns the storage root.
func (s *Store) BaseURL() string {
	return s.baseURL
}

// Get returns the bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	location, err := s.locate(key)
	if err != nil {
		return nil, err
	}

	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}

	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	return data, nil
}

// Put stores data under key. The content type is not recorded by every
// backend; local and in-memory storage ignore it.
func (s *Store) Put(ctx context.Context, key string, data []byte, _ string) error {
	location, err := s.locate(key)
	if err != nil {
		return err
	}
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Delete removes the object under key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	location, err := s.locate(key)
	if err != nil {
		return err
	}

	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("checking %s: %w", key, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	location, err := s.locate(key)
	if err != nil {
		return false, err
	}
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return exists, nil
}

// List returns the keys of the objects stored directly under prefix,
// sorted. A missing prefix yields no keys.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/")
	location := s.baseURL
	if prefix != "" {
		var err error
		if location, err = s.locate(prefix); err != nil {
			return nil, err
		}
	}

	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", prefix, err)
	}
	if !exists {
		return nil, nil
	}

	objects, err := s.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}

	var keys []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		keys = append(keys, path.Join(prefix, object.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// locate maps a storage key to a URL under the base. Keys that would
// escape the base are rejected.
func (s *Store) locate(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, `\`, "/"), "/")
	if key == "" || strings.Contains(key, "://") {
		return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
		}
	}
	return url.Join(s.baseURL, key), nil
}
