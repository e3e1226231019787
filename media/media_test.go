package media

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jpegData = "\xff\xd8\xff\xe0\x00\x10JFIF\x00"
	pngData  = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
)

func TestDir_SaveAndServe(t *testing.T) {
	d, err := NewDir(t.TempDir(), "/media")
	require.NoError(t, err)
	assert.Equal(t, "/media/", d.Prefix())

	ref, err := d.Save("Holiday.JPG", strings.NewReader(jpegData))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/media/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, ref, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jpegData, w.Body.String())
}

func TestDir_RejectsNonImages(t *testing.T) {
	d, err := NewDir(t.TempDir(), "/media/")
	require.NoError(t, err)

	_, err = d.Save("script.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = d.Save("noext", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDir_RejectsMislabelledContent(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root, "/media/")
	require.NoError(t, err)

	_, err = d.Save("photo.png", strings.NewReader("<html><script>alert(1)</script></html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = d.Save("empty.jpg", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDir_Remove(t *testing.T) {
	d, err := NewDir(t.TempDir(), "/media/")
	require.NoError(t, err)

	ref, err := d.Save("a.png", strings.NewReader(pngData))
	require.NoError(t, err)
	require.NoError(t, d.Remove(ref))

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, ref, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Error(t, d.Remove("/elsewhere/a.png"))
	assert.Error(t, d.Remove("/media/../secret"))
}
