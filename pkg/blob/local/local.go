// Package local implements pkg/blob over a directory on the local
// filesystem. Useful for development and tests; the layout under the root
// mirrors the object keys one-to-one.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/blob"
)

// Store implements blob.Store rooted at a local directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates the root directory if needed and returns a store over it.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", root, err)
	}
	return &Store{root: root, logger: logger}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Upload stores the contents of srcPath under key.
func (s *Store) Upload(ctx context.Context, key, srcPath string) error {
	dest := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", key, err)
	}
	if err := copyFile(srcPath, dest); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	s.logger.Debug("object uploaded", zap.String("key", key))
	return nil
}

// Download writes the object at key to destPath.
func (s *Store) Download(ctx context.Context, key, destPath string) error {
	src := s.path(key)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s", blob.ErrObjectNotFound, key)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating dir for %s: %w", destPath, err)
	}
	if err := copyFile(src, destPath); err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	return nil
}

// UploadPrefix uploads every file under srcDir keyed relative to prefix.
func (s *Store) UploadPrefix(ctx context.Context, prefix, srcDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return s.Upload(ctx, prefix+"/"+filepath.ToSlash(rel), path)
	})
}

// DownloadPrefix mirrors every object under prefix into destDir.
func (s *Store) DownloadPrefix(ctx context.Context, prefix, destDir string) error {
	src := s.path(prefix)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: prefix %s", blob.ErrObjectNotFound, prefix)
	}

	found := false
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		found = true
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return copyFile(path, dest)
	})
	if err != nil {
		return fmt.Errorf("downloading prefix %s: %w", prefix, err)
	}
	if !found {
		return fmt.Errorf("%w: prefix %s", blob.ErrObjectNotFound, prefix)
	}
	return nil
}

// Exists reports whether at least one object lives under prefix.
func (s *Store) Exists(ctx context.Context, prefix string) (bool, error) {
	src := s.path(prefix)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking prefix %s: %w", prefix, err)
	}
	if !info.IsDir() {
		return true, nil
	}

	found := false
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking prefix %s: %w", prefix, err)
	}
	return found, nil
}

// Delete removes the object at key. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := os.RemoveAll(s.path(prefix)); err != nil {
		return fmt.Errorf("deleting prefix %s: %w", prefix, err)
	}

	s.logger.Debug("prefix deleted", zap.String("prefix", prefix))
	return nil
}

// CopyPrefix copies every object under srcPrefix to destPrefix.
func (s *Store) CopyPrefix(ctx context.Context, srcPrefix, destPrefix string) error {
	src := s.path(srcPrefix)
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		return s.Upload(ctx, destPrefix+"/"+filepath.ToSlash(rel), path)
	})
}

// Close is a no-op for the filesystem store.
func (s *Store) Close() error {
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

var _ blob.Store = (*Store)(nil)
