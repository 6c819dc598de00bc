package filestorage

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("attachment", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["attachment"][0]
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	base := t.TempDir()
	ls, err := NewLocalStorage(base, "/api/files", 0)
	require.NoError(t, err)

	stored, err := ls.Save(fileHeader(t, "Rooster.PDF", []byte("%PDF-1.4 test")), "attachments")
	require.NoError(t, err)

	assert.Equal(t, "Rooster.PDF", stored.Name)
	assert.Equal(t, int64(13), stored.Size)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.Regexp(t, `^attachments/[0-9a-f-]{36}\.pdf$`, stored.Path)
	assert.Equal(t, "/api/files/"+stored.Path, stored.URL)

	full, err := ls.FullPath(stored.Path)
	require.NoError(t, err)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))

	require.NoError(t, ls.Delete(stored.Path))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ls.Delete(stored.Path), "deleting twice is fine")
}

func TestLocalStorage_Limits(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "", 4)
	require.NoError(t, err)

	_, err = ls.Save(fileHeader(t, "big.txt", []byte("too large")), "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = ls.FullPath("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, ls.Delete("../../x"), ErrInvalidPath)
}

func TestLocalStorage_SubDirCannotEscape(t *testing.T) {
	base := t.TempDir()
	ls, err := NewLocalStorage(base, "", 0)
	require.NoError(t, err)

	stored, err := ls.Save(fileHeader(t, "a.txt", []byte("hello")), "../../outside")
	require.NoError(t, err)
	full, err := ls.FullPath(stored.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, base+string(filepath.Separator)))
}
