package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Open for a missing key.
var ErrObjectNotFound = errors.New("media object not found")

// Object is an opened media object. Body must be closed by the caller.
type Object struct {
	Body        io.ReadSeekCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// MediaStore persists uploaded media under slash-separated keys such as
// "audio/song_1a2b3c4d.mp3".
type MediaStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// ObjectInfo describes a stored object in listings.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// BucketStats summarises a listing.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Add folds obj into the stats.
func (s *BucketStats) Add(obj ObjectInfo) {
	s.TotalObjects++
	s.TotalSize += obj.Size
	if obj.LastModified.After(s.LastModified) {
		s.LastModified = obj.LastModified
	}
}

// FormatSize renders a byte count in binary units.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
