// Package localstore keeps carousel objects on the local filesystem. It backs
// OBJECT_STORAGE_MODE=local for development and the one-shot CLI.
package localstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/carousel-backend/internal/platform/gcp"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Store struct {
	log  *logger.Logger
	root string
}

var _ gcp.BucketService = (*Store)(nil)

func New(log *logger.Logger, root string) (*Store, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("resolve local storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage dir: %w", err)
	}
	return &Store{log: log.With("service", "LocalStore"), root: abs}, nil
}

// resolve maps an object key to a path under root, rejecting traversal.
func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	p := filepath.Join(s.root, clean)
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (s *Store) UploadFile(ctx context.Context, key string, file io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (s *Store) DeleteFile(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *Store) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
		return nil
	})
	return out, err
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.ListKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.DeleteFile(ctx, k); err != nil {
			s.log.Warn("Delete local object failed", "key", k, "error", err)
		}
	}
	return nil
}

// GetPublicURL returns the absolute filesystem path of key.
func (s *Store) GetPublicURL(key string) string {
	p, err := s.resolve(key)
	if err != nil {
		return ""
	}
	return p
}
