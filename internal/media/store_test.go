package media_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/media"
)

// smallest valid PNG header followed by padding
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

func TestSave_SniffsType(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewStore(dir, 1024, nil)
	require.NoError(t, err)

	stored, err := store.Save(bytes.NewReader(pngBytes), "photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, "image/png", stored.MimeType)
	assert.True(t, strings.HasPrefix(stored.URL, media.PublicPrefix))
	assert.True(t, strings.HasSuffix(stored.URL, ".png"))
	assert.EqualValues(t, len(pngBytes), stored.Size)

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(stored.URL, media.PublicPrefix)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSave_TooLarge(t *testing.T) {
	dir := t.TempDir()
	store, err := media.NewStore(dir, 16, nil)
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader(strings.Repeat("a", 17)), "a.txt")
	assert.Equal(t, "upload.too_large", apperr.From(err).Key)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestSave_Empty(t *testing.T) {
	store, err := media.NewStore(t.TempDir(), 16, nil)
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader(""), "a.txt")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
