package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAttach_UploadsEncryptedBlob(t *testing.T) {
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := setupDB(t)
	staging := t.TempDir()
	fc := &fakeClient{PutURLRet: srv.URL, PutKeyRet: "u1/key1"}
	svc := NewAttachmentService(fc, db, staging, testLogger())

	src := writeSourceFile(t, "attachment content")
	a, err := svc.Attach(context.Background(), 1, src, "pa55")
	require.NoError(t, err)

	assert.Equal(t, models.AttachmentUploaded, a.Status)
	assert.Equal(t, "u1/key1", a.StorageKey)
	assert.Equal(t, "doc.txt", a.FileName)

	// uploaded bytes are ciphertext and decrypt back to the source
	require.True(t, cryptox.IsEncrypted(uploaded))
	plain, err := cryptox.DecryptBytes(uploaded, "pa55")
	require.NoError(t, err)
	assert.Equal(t, "attachment content", string(plain))

	// staged blob removed after the upload settled
	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAttach_UploadFailureKeepsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db := setupDB(t)
	staging := t.TempDir()
	fc := &fakeClient{PutURLRet: srv.URL, PutKeyRet: "u1/key1"}
	svc := NewAttachmentService(fc, db, staging, testLogger())

	src := writeSourceFile(t, "content")
	a, err := svc.Attach(context.Background(), 1, src, "pa55")
	require.Error(t, err)
	require.NotNil(t, a)
	assert.Equal(t, models.AttachmentPending, a.Status)

	// the staged blob survives for a retry
	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRetryPendingUploads(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := setupDB(t)
	staging := t.TempDir()
	fc := &fakeClient{PutURLRet: srv.URL, PutKeyRet: "u1/key1"}
	svc := NewAttachmentService(fc, db, staging, testLogger())

	src := writeSourceFile(t, "content")
	a, err := svc.Attach(context.Background(), 1, src, "pa55")
	require.Error(t, err)

	fc.PutKeyRet = "u1/key2"
	require.NoError(t, svc.RetryPendingUploads(context.Background()))

	got, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.AttachmentUploaded, got[0].Status)
	assert.Equal(t, "u1/key2", got[0].StorageKey)
	_ = a
}

func TestAttach_PresignFailure(t *testing.T) {
	db := setupDB(t)
	boom := errors.New("server unavailable")
	svc := NewAttachmentService(&fakeClient{PutURLErr: boom}, db, t.TempDir(), testLogger())

	src := writeSourceFile(t, "content")
	_, err := svc.Attach(context.Background(), 1, src, "pa55")
	assert.ErrorIs(t, err, boom)
}
