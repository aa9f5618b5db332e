package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"moodwave/core/media"
)

// LocalStore keeps media on the filesystem under Root.
type LocalStore struct {
	Root string
}

// NewLocalStore creates root if needed and returns a store over it.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &LocalStore{Root: root}, nil
}

// resolve maps key to a path inside Root, rejecting traversal.
func (s *LocalStore) resolve(key string) (string, error) {
	if strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", fmt.Errorf("invalid media key %q", key)
		}
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *LocalStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	dest, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create media file %s: %w", key, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to write media file %s: %w", key, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close media file %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (*Object, error) {
	src, err := s.resolve(key)
	if err != nil {
		return nil, ErrObjectNotFound
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open media file %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat media file %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrObjectNotFound
	}

	return &Object{
		Body:        f,
		Size:        info.Size(),
		ContentType: media.ContentType(key),
		ModTime:     info.ModTime(),
	}, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	dest, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete media file %s: %w", key, err)
	}
	return nil
}
