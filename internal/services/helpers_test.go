package services

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, testImage()))
	return path
}

func writeJPEG(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, testImage(), nil))
	return path
}

// writePDF builds a real PDF with one image per page.
func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	img := writePNG(t, filepath.Join(t.TempDir(), "page.png"))
	imgs := make([]string, pages)
	for i := range imgs {
		imgs[i] = img
	}
	out := filepath.Join(dir, name)
	require.NoError(t, api.ImportImagesFile(imgs, out, pdfcpu.DefaultImportConfig(), pdfConfig()))
	return out
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	return n
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(filepath.Join(t.TempDir(), "parts"))
	require.NoError(t, err)
	return ws
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// fakeOCR records every call and exports "<uploaded stem>\r\n" as the text.
type fakeOCR struct {
	mu           sync.Mutex
	calls        []string
	failUploadOn string
	failExportOn string
}

func (f *fakeOCR) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeOCR) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeOCR) Upload(_ context.Context, localPath string) (models.RemoteHandle, error) {
	name := filepath.Base(localPath)
	f.record("upload " + name)
	if f.failUploadOn != "" && name == f.failUploadOn {
		return models.RemoteHandle{}, fmt.Errorf("upload of %s rejected", name)
	}
	return models.RemoteHandle{ID: "id-" + name, Name: name}, nil
}

func (f *fakeOCR) Export(_ context.Context, handle models.RemoteHandle, format models.ExportFormat, destPath string) error {
	f.record("export " + handle.Name)
	if f.failExportOn != "" && handle.Name == f.failExportOn {
		return fmt.Errorf("export of %s failed", handle.Name)
	}
	stem := strings.TrimSuffix(handle.Name, filepath.Ext(handle.Name))
	return os.WriteFile(destPath, []byte(stem+"\r\n"), 0o644)
}

func (f *fakeOCR) Delete(_ context.Context, handle models.RemoteHandle) error {
	f.record("delete " + handle.Name)
	return nil
}
