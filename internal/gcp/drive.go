package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/documentocr/internal/models"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// googleDocMIME makes Drive convert the upload into a Google Doc, which runs OCR on it.
const googleDocMIME = "application/vnd.google-apps.document"

// RetryPolicy controls how transient upload failures are retried.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 4, InitialBackoff: time.Second}

type DriveOptions struct {
	ChunkSize   int    // bytes per resumable upload chunk, 0 uses the library default
	OCRLanguage string // ISO 639-1 hint, empty lets Drive detect it
	Retry       RetryPolicy
}

// DriveOCR performs OCR by converting files to Google Docs in the user's Drive.
type DriveOCR struct {
	service *drive.Service
	opts    DriveOptions
}

func NewDriveOCR(ctx context.Context, opts DriveOptions, clientOpts ...option.ClientOption) (*DriveOCR, error) {
	service, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	if opts.Retry.Attempts < 1 {
		opts.Retry = DefaultRetryPolicy
	}
	return &DriveOCR{service: service, opts: opts}, nil
}

// Upload sends localPath to Drive as a Google Doc. Transient failures are
// retried with exponential backoff.
func (d *DriveOCR) Upload(ctx context.Context, localPath string) (models.RemoteHandle, error) {
	name := filepath.Base(localPath)
	backoff := d.opts.Retry.InitialBackoff
	var lastErr error

	for i := 0; i < d.opts.Retry.Attempts; i++ {
		handle, err := d.uploadOnce(ctx, localPath, name)
		if err == nil {
			slog.Debug("Uploaded to Drive.", "file", name, "remoteId", handle.ID)
			return handle, nil
		}
		if !isRetryable(err) {
			return models.RemoteHandle{}, err
		}

		lastErr = err
		if i == d.opts.Retry.Attempts-1 {
			break
		}
		slog.Warn(
			"Upload failed, will retry.",
			"file", name,
			"attempt", i+1,
			"maxRetries", d.opts.Retry.Attempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "file", name, "error", ctx.Err())
			return models.RemoteHandle{}, ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "file", name, "error", lastErr)
	return models.RemoteHandle{}, fmt.Errorf("upload for %s failed after all retries: %w", name, lastErr)
}

func (d *DriveOCR) uploadOnce(ctx context.Context, localPath, name string) (models.RemoteHandle, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return models.RemoteHandle{}, fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer f.Close()

	mediaOpts := []googleapi.MediaOption{}
	if d.opts.ChunkSize > 0 {
		mediaOpts = append(mediaOpts, googleapi.ChunkSize(d.opts.ChunkSize))
	}

	call := d.service.Files.Create(&drive.File{Name: name, MimeType: googleDocMIME}).
		Media(f, mediaOpts...).
		Fields("id", "name")
	if d.opts.OCRLanguage != "" {
		call = call.OcrLanguage(d.opts.OCRLanguage)
	}
	created, err := call.Context(ctx).Do()
	if err != nil {
		return models.RemoteHandle{}, fmt.Errorf("failed to create Drive file for %s: %w", name, err)
	}
	return models.RemoteHandle{ID: created.Id, Name: created.Name}, nil
}

// Export downloads the converted document in format to destPath. A failed
// download never leaves a partial file at destPath.
func (d *DriveOCR) Export(ctx context.Context, handle models.RemoteHandle, format models.ExportFormat, destPath string) (err error) {
	resp, err := d.service.Files.Export(handle.ID, format.MIME()).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to export %s as %s: %w", handle.ID, format, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", destPath, cerr)
		}
		if err != nil {
			_ = os.Remove(destPath)
		}
	}()

	if _, err = io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to download export of %s: %w", handle.ID, err)
	}
	return nil
}

// Delete removes the remote document. A document that is already gone counts as deleted.
func (d *DriveOCR) Delete(ctx context.Context, handle models.RemoteHandle) error {
	if handle.ID == "" {
		return nil
	}
	err := d.service.Files.Delete(handle.ID).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete Drive file %s: %w", handle.ID, err)
	}
	return nil
}

func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	return false
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
