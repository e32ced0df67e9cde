package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeDrive serves the small slice of the Drive v3 API the OCR client uses.
type fakeDrive struct {
	mu            sync.Mutex
	uploads       int
	failUploads   int
	failCode      int
	uploadBodies  []string
	uploadQueries []string
	exported      map[string]string
	deleted       []string
	deleteStatus  int
}

func (f *fakeDrive) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.uploads++
		body, _ := io.ReadAll(r.Body)
		f.uploadBodies = append(f.uploadBodies, string(body))
		f.uploadQueries = append(f.uploadQueries, r.URL.RawQuery)
		if f.uploads <= f.failUploads {
			writeAPIError(w, f.failCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "doc-1", "name": "scan.png"})
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(id, "/export"):
			id = strings.TrimSuffix(id, "/export")
			text, ok := f.exported[id+" "+r.URL.Query().Get("mimeType")]
			if !ok {
				writeAPIError(w, http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, text)
		case r.Method == http.MethodDelete:
			f.deleted = append(f.deleted, id)
			if f.deleteStatus != 0 {
				writeAPIError(w, f.deleteStatus)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func writeAPIError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"fake failure"}}`, code)
}

func newTestDrive(t *testing.T, fake *fakeDrive, opts DriveOptions) *DriveOCR {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	d, err := NewDriveOCR(context.Background(), opts,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return d
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDriveOCR_UploadConvertsToGoogleDoc(t *testing.T) {
	fake := &fakeDrive{}
	d := newTestDrive(t, fake, DriveOptions{OCRLanguage: "fr"})

	handle, err := d.Upload(context.Background(), writeFile(t, "scan.png", "image bytes"))
	require.NoError(t, err)
	assert.Equal(t, models.RemoteHandle{ID: "doc-1", Name: "scan.png"}, handle)

	require.Len(t, fake.uploadBodies, 1)
	assert.Contains(t, fake.uploadBodies[0], googleDocMIME)
	assert.Contains(t, fake.uploadBodies[0], "image bytes")
	assert.Contains(t, fake.uploadQueries[0], "ocrLanguage=fr")
}

func TestDriveOCR_UploadRetriesTransientErrors(t *testing.T) {
	fake := &fakeDrive{failUploads: 2, failCode: http.StatusServiceUnavailable}
	d := newTestDrive(t, fake, DriveOptions{Retry: RetryPolicy{Attempts: 4, InitialBackoff: time.Millisecond}})

	handle, err := d.Upload(context.Background(), writeFile(t, "scan.png", "image bytes"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", handle.ID)
	assert.GreaterOrEqual(t, fake.uploads, 3)
}

func TestDriveOCR_UploadGivesUp(t *testing.T) {
	t.Run("permanent error is not retried", func(t *testing.T) {
		fake := &fakeDrive{failUploads: 10, failCode: http.StatusForbidden}
		d := newTestDrive(t, fake, DriveOptions{Retry: RetryPolicy{Attempts: 4, InitialBackoff: time.Millisecond}})

		_, err := d.Upload(context.Background(), writeFile(t, "scan.png", "x"))
		require.Error(t, err)
		assert.Equal(t, 1, fake.uploads)
	})

	t.Run("missing local file", func(t *testing.T) {
		d := newTestDrive(t, &fakeDrive{}, DriveOptions{})
		_, err := d.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDriveOCR_Export(t *testing.T) {
	fake := &fakeDrive{exported: map[string]string{"doc-1 text/plain": "recognised text\n"}}
	d := newTestDrive(t, fake, DriveOptions{})
	handle := models.RemoteHandle{ID: "doc-1", Name: "scan.png"}

	dest := filepath.Join(t.TempDir(), "scan.txt")
	require.NoError(t, d.Export(context.Background(), handle, models.FormatTXT, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "recognised text\n", string(data))

	missing := filepath.Join(t.TempDir(), "scan.docx")
	require.Error(t, d.Export(context.Background(), handle, models.FormatDOCX, missing))
	assert.NoFileExists(t, missing)
}

func TestDriveOCR_DeleteIsIdempotent(t *testing.T) {
	fake := &fakeDrive{}
	d := newTestDrive(t, fake, DriveOptions{})
	require.NoError(t, d.Delete(context.Background(), models.RemoteHandle{ID: "doc-1"}))
	assert.Equal(t, []string{"doc-1"}, fake.deleted)

	fake.deleteStatus = http.StatusNotFound
	require.NoError(t, d.Delete(context.Background(), models.RemoteHandle{ID: "doc-1"}))

	fake.deleteStatus = http.StatusForbidden
	require.Error(t, d.Delete(context.Background(), models.RemoteHandle{ID: "doc-1"}))

	require.NoError(t, d.Delete(context.Background(), models.RemoteHandle{}))
	assert.Len(t, fake.deleted, 3, "an empty handle makes no call")
}
