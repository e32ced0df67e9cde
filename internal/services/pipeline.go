package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/documentocr/internal/models"
)

// ServiceConnector authorizes and returns the OCR service. It is only invoked
// once the input has been classified and partitioned.
type ServiceConnector func(ctx context.Context) (OCRService, error)

// InputFetcher downloads a remote input (gs://bucket/object) into destDir.
type InputFetcher interface {
	Fetch(ctx context.Context, uri, destDir string) (string, error)
}

type PipelineConfig struct {
	ExportFormat    models.ExportFormat
	MaxPagesPerPart int
	OCRTimeout      time.Duration
	ScratchDir      string
	DocsDir         string
}

// Pipeline converts exactly one document per Run: classify, partition,
// convert each part, assemble, clean the workspace.
type Pipeline struct {
	config      PipelineConfig
	workspace   *Workspace
	classifier  *Classifier
	partitioner *Partitioner
	assembler   *Assembler
	connect     ServiceConnector
	fetcher     InputFetcher
}

func NewPipeline(config PipelineConfig, connect ServiceConnector, fetcher InputFetcher) (*Pipeline, error) {
	if connect == nil {
		return nil, errors.New("a service connector is required")
	}
	workspace, err := NewWorkspace(config.ScratchDir)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		config:      config,
		workspace:   workspace,
		classifier:  NewClassifier(),
		partitioner: NewPartitioner(workspace),
		assembler:   NewAssembler(),
		connect:     connect,
		fetcher:     fetcher,
	}, nil
}

// OutputPath is where the converted document for input lands.
func (p *Pipeline) OutputPath(doc *models.InputDocument) string {
	return filepath.Join(p.config.DocsDir, doc.Stem()+"."+p.config.ExportFormat.Extension())
}

// Run converts input and returns the published output path. The workspace is
// emptied on every exit path.
func (p *Pipeline) Run(ctx context.Context, input string) (string, error) {
	logCtx := slog.With("input", input, "exportFormat", string(p.config.ExportFormat))
	defer func() {
		if err := p.workspace.Cleanup(); err != nil {
			logCtx.Warn("Failed to clean scratch directory.", "dir", p.workspace.Dir(), "error", err)
		}
	}()

	path, err := p.resolveInput(ctx, input)
	if err != nil {
		return "", err
	}

	kind, err := p.classifier.Classify(path)
	if err != nil {
		return "", err
	}
	doc := &models.InputDocument{Path: path, Kind: kind}
	logCtx = logCtx.With("kind", string(kind))
	logCtx.Info("Input classified.")

	if sameFile(path, p.OutputPath(doc)) {
		return "", fmt.Errorf("%w: %s, move it out of %s or choose another export format",
			ErrOutputIsInput, path, p.config.DocsDir)
	}

	plan, err := p.partitioner.Partition(ctx, doc, p.config.MaxPagesPerPart)
	if err != nil {
		return "", err
	}
	if plan.Split() && !p.assembler.CanMerge(p.config.ExportFormat) {
		return "", fmt.Errorf("%w: %s output needs a single part but the document has %d pages (limit %d)",
			ErrMergeUnsupported, p.config.ExportFormat, doc.PageCount, p.config.MaxPagesPerPart)
	}

	ocr, err := p.connect(ctx)
	if err != nil {
		return "", err
	}

	results, err := NewOrchestrator(ocr, p.workspace, p.config.OCRTimeout).Convert(ctx, plan, p.config.ExportFormat)
	if err != nil {
		return "", err
	}

	out, err := p.assembler.Assemble(results, p.config.ExportFormat, p.OutputPath(doc))
	if err != nil {
		return "", err
	}
	logCtx.Info("Document converted.", "output", out, "parts", len(plan.Parts))
	return out, nil
}

// sameFile reports whether a and b name the same file, following links when both exist.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

func (p *Pipeline) resolveInput(ctx context.Context, input string) (string, error) {
	if strings.HasPrefix(input, "gs://") {
		if p.fetcher == nil {
			return "", fmt.Errorf("no fetcher configured for %s", input)
		}
		dir, err := p.workspace.SubDir("input")
		if err != nil {
			return "", err
		}
		return p.fetcher.Fetch(ctx, input, dir)
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", input, err)
	}
	return abs, nil
}
