package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// pdfConfig returns a relaxed pdfcpu configuration that never touches the
// user's pdfcpu config directory.
func pdfConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Partitioner splits oversized PDFs into page-range parts inside the workspace.
type Partitioner struct {
	workspace *Workspace
	conf      *model.Configuration
}

func NewPartitioner(workspace *Workspace) *Partitioner {
	return &Partitioner{workspace: workspace, conf: pdfConfig()}
}

// PlanRanges walks [1, pageCount] left to right in fixed windows of maxPages;
// only the last range may be shorter.
func PlanRanges(pageCount, maxPages int) []models.PageRange {
	if pageCount < 1 || maxPages < 1 {
		return nil
	}
	var ranges []models.PageRange
	processed := 0
	for processed < pageCount {
		end := processed + maxPages
		if pageCount-processed <= maxPages {
			end = pageCount
		}
		ranges = append(ranges, models.PageRange{Start: processed + 1, End: end})
		processed = end
	}
	return ranges
}

// Partition returns the plan for doc. Images and PDFs within the limit become a
// single part referencing the original file; larger PDFs are materialised as
// "<stem>_<start>-<end>.pdf" files in the workspace.
func (p *Partitioner) Partition(ctx context.Context, doc *models.InputDocument, maxPages int) (models.PartitionPlan, error) {
	if maxPages < 1 {
		return models.PartitionPlan{}, fmt.Errorf("%w: max pages per part must be positive, got %d", ErrPartition, maxPages)
	}
	logCtx := slog.With("input", doc.Path, "kind", string(doc.Kind))

	if doc.Kind != models.KindPDF {
		logCtx.Info("Image input, no partitioning needed.")
		return wholePlan(doc, models.PageRange{Start: 1, End: 1}), nil
	}

	pageCount, err := api.PageCountFile(doc.Path)
	if err != nil {
		return models.PartitionPlan{}, fmt.Errorf("%w: failed to get page count: %v", ErrPartition, err)
	}
	doc.PageCount = pageCount
	logCtx = logCtx.With("pageCount", pageCount, "maxPagesPerPart", maxPages)

	if pageCount <= maxPages {
		logCtx.Info("PDF fits in a single part.")
		return wholePlan(doc, models.PageRange{Start: 1, End: pageCount}), nil
	}

	plan := models.PartitionPlan{Document: doc}
	for _, r := range PlanRanges(pageCount, maxPages) {
		if err := ctx.Err(); err != nil {
			return models.PartitionPlan{}, err
		}
		partPath := p.workspace.PartPath(fmt.Sprintf("%s_%d-%d.pdf", doc.Stem(), r.Start, r.End))
		if err := api.TrimFile(doc.Path, partPath, []string{r.Selection()}, p.conf); err != nil {
			return models.PartitionPlan{}, fmt.Errorf("%w: failed to extract pages %s: %v", ErrPartition, r, err)
		}
		plan.Parts = append(plan.Parts, models.Part{Path: partPath, Range: r})
	}

	if err := plan.Validate(pageCount); err != nil {
		return models.PartitionPlan{}, fmt.Errorf("%w: %v", ErrPartition, err)
	}
	logCtx.Info("PDF split into parts.", "parts", len(plan.Parts))
	return plan, nil
}

func wholePlan(doc *models.InputDocument, r models.PageRange) models.PartitionPlan {
	return models.PartitionPlan{
		Document: doc,
		Parts:    []models.Part{{Path: doc.Path, Range: r, Whole: true}},
	}
}
