package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentocr/internal/models"
)

// OCRService is the remote capability: upload a local file, export it in the
// requested format, then delete the remote copy.
type OCRService interface {
	Upload(ctx context.Context, localPath string) (models.RemoteHandle, error)
	Export(ctx context.Context, handle models.RemoteHandle, format models.ExportFormat, destPath string) error
	Delete(ctx context.Context, handle models.RemoteHandle) error
}

// Orchestrator converts the parts of a plan one at a time, in plan order.
type Orchestrator struct {
	ocr       OCRService
	workspace *Workspace
	timeout   time.Duration
}

func NewOrchestrator(ocr OCRService, workspace *Workspace, timeout time.Duration) *Orchestrator {
	return &Orchestrator{ocr: ocr, workspace: workspace, timeout: timeout}
}

// Convert returns one result per part. The first failing part aborts the run;
// nothing is retried and no partial result set is returned.
func (o *Orchestrator) Convert(ctx context.Context, plan models.PartitionPlan, format models.ExportFormat) ([]models.ConversionResult, error) {
	results := make([]models.ConversionResult, 0, len(plan.Parts))
	for i, part := range plan.Parts {
		logCtx := slog.With("part", i+1, "parts", len(plan.Parts), "pages", part.Range.String())

		dest, err := o.workspace.ExportPath(exportName(plan.Document, part, format))
		if err != nil {
			return nil, err
		}

		start := time.Now()
		logCtx.Info("Converting part.")
		if err := o.convertPart(ctx, logCtx, part, format, dest); err != nil {
			logCtx.Error("Part conversion failed.", "error", err)
			return nil, fmt.Errorf("part %d %s: %w", i+1, part.Range, err)
		}
		logCtx.Info("Part converted.", "output", dest, "elapsed", time.Since(start).String())

		results = append(results, models.ConversionResult{Part: part, OutputPath: dest, Succeeded: true})
	}
	return results, nil
}

func (o *Orchestrator) convertPart(ctx context.Context, logCtx *slog.Logger, part models.Part, format models.ExportFormat, dest string) (err error) {
	var handle models.RemoteHandle
	err = o.bounded(ctx, func(cctx context.Context) error {
		var uerr error
		handle, uerr = o.ocr.Upload(cctx, part.Path)
		return uerr
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %w", ErrRemote, part.Path, err)
	}
	logCtx.Debug("Uploaded part.", "remoteId", handle.ID)

	// The remote copy is removed whatever happens to the export.
	defer func() {
		derr := o.bounded(context.WithoutCancel(ctx), func(cctx context.Context) error {
			return o.ocr.Delete(cctx, handle)
		})
		if derr != nil {
			err = errors.Join(err, fmt.Errorf("%w: delete %s: %w", ErrRemote, handle.ID, derr))
		}
	}()

	err = o.bounded(ctx, func(cctx context.Context) error {
		return o.ocr.Export(cctx, handle, format, dest)
	})
	if err != nil {
		return fmt.Errorf("%w: export %s as %s: %w", ErrRemote, handle.ID, format, err)
	}
	return nil
}

func (o *Orchestrator) bounded(ctx context.Context, fn func(context.Context) error) error {
	if o.timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return fn(cctx)
}

// exportName embeds the page range so the assembler can recover the order.
func exportName(doc *models.InputDocument, part models.Part, format models.ExportFormat) string {
	if part.Whole {
		return fmt.Sprintf("%s.%s", doc.Stem(), format.Extension())
	}
	return fmt.Sprintf("%s_%d-%d.%s", doc.Stem(), part.Range.Start, part.Range.End, format.Extension())
}
