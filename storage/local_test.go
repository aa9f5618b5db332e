package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "audio/song.mp3", strings.NewReader("ID3data"), 7, "audio/mpeg"))
	assert.FileExists(t, filepath.Join(root, "audio", "song.mp3"))

	obj, err := store.Open(ctx, "audio/song.mp3")
	require.NoError(t, err)
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "ID3data", string(body))
	assert.Equal(t, int64(7), obj.Size)
	assert.Equal(t, "audio/mpeg", obj.ContentType)

	require.NoError(t, store.Delete(ctx, "audio/song.mp3"))
	_, err = store.Open(ctx, "audio/song.mp3")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "audio/song.mp3"))
}

func TestLocalStoreRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "covers/a.png", strings.NewReader("one"), 3, "image/png"))
	assert.Error(t, store.Save(ctx, "covers/a.png", strings.NewReader("two"), 3, "image/png"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	root := filepath.Join(parent, "media")
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("x"), 0644))

	for _, key := range []string{"../secret.txt", "audio/../../secret.txt", "", "/"} {
		_, err := store.Open(ctx, key)
		assert.ErrorIs(t, err, ErrObjectNotFound, key)
		assert.Error(t, store.Save(ctx, key, strings.NewReader("x"), 1, ""), key)
	}
}

func TestLocalStoreOpenDirectory(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "audio/x.mp3", strings.NewReader("x"), 1, ""))

	_, err = store.Open(ctx, "audio")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFormatSizeAndStats(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "3.0 MB", FormatSize(3<<20))

	var stats BucketStats
	stats.Add(ObjectInfo{Size: 10})
	stats.Add(ObjectInfo{Size: 5})
	assert.Equal(t, int64(2), stats.TotalObjects)
	assert.Equal(t, int64(15), stats.TotalSize)
}
