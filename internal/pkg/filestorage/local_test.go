package filestorage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	fh := uploadHeader(t, "cnic_scan", "Scan.PDF", []byte("%PDF-1.4"))
	stored, err := ls.SaveFileWithPath(context.Background(), fh, "APP-1A2B3C4D")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "/uploads/APP-1A2B3C4D/"))
	assert.True(t, strings.HasSuffix(stored, ".pdf"))

	onDisk := filepath.Join(dir, "APP-1A2B3C4D", filepath.Base(stored))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, ls.DeleteFile(context.Background(), stored))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ls.DeleteFile(context.Background(), stored))
}

func TestLocalStorage_NilHeader(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	stored, err := ls.SaveFileWithPath(context.Background(), nil, "x")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLocalStorage_PathTraversalStaysInBase(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	p, err := ls.physicalPath("/uploads/../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, dir))
}
