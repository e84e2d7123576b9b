package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	url, err := s.Save(ctx, 42, VariantThumbnail, "abc.jpg", []byte("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/42/thumbnail/abc.jpg", url)

	path := filepath.Join(dir, "42", "thumbnail", "abc.jpg")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)

	require.NoError(t, s.Delete(ctx, 42, VariantThumbnail, "abc.jpg"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	assert.NoError(t, s.Delete(context.Background(), 7, VariantLarge, "never-existed.jpg"))
}

func TestLocalStorageType(t *testing.T) {
	assert.Equal(t, "local", NewLocalStorage(t.TempDir()).Type())
}
