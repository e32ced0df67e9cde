package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRanges_KnownLayouts(t *testing.T) {
	assert.Equal(t, []models.PageRange{{Start: 1, End: 20}, {Start: 21, End: 40}, {Start: 41, End: 47}}, PlanRanges(47, 20))
	assert.Equal(t, []models.PageRange{{Start: 1, End: 75}}, PlanRanges(75, 75))
	assert.Equal(t, []models.PageRange{{Start: 1, End: 75}, {Start: 76, End: 76}}, PlanRanges(76, 75))
	assert.Equal(t, []models.PageRange{{Start: 1, End: 1}, {Start: 2, End: 2}, {Start: 3, End: 3}}, PlanRanges(3, 1))
	assert.Nil(t, PlanRanges(0, 10))
	assert.Nil(t, PlanRanges(10, 0))
}

func TestPlanRanges_CoverAndWindowSize(t *testing.T) {
	for pages := 1; pages <= 160; pages++ {
		for limit := 1; limit <= 40; limit++ {
			ranges := PlanRanges(pages, limit)
			require.NotEmpty(t, ranges)

			next := 1
			for i, r := range ranges {
				require.Equal(t, next, r.Start, "P=%d L=%d range %d", pages, limit, i)
				require.GreaterOrEqual(t, r.End, r.Start)
				if i < len(ranges)-1 {
					require.Equal(t, limit, r.Len(), "P=%d L=%d range %d", pages, limit, i)
				} else {
					require.LessOrEqual(t, r.Len(), limit)
				}
				next = r.End + 1
			}
			require.Equal(t, pages, next-1, "P=%d L=%d", pages, limit)

			plan := models.PartitionPlan{}
			for _, r := range ranges {
				plan.Parts = append(plan.Parts, models.Part{Range: r})
			}
			require.NoError(t, plan.Validate(pages))
		}
	}
}

func TestPartitioner_SplitsIntoPartFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	src := writePDF(t, t.TempDir(), "report.pdf", 47)
	doc := &models.InputDocument{Path: src, Kind: models.KindPDF}

	plan, err := NewPartitioner(ws).Partition(context.Background(), doc, 20)
	require.NoError(t, err)

	assert.Equal(t, 47, doc.PageCount)
	require.Len(t, plan.Parts, 3)
	wantNames := []string{"report_1-20.pdf", "report_21-40.pdf", "report_41-47.pdf"}
	wantPages := []int{20, 20, 7}
	for i, part := range plan.Parts {
		assert.False(t, part.Whole)
		assert.Equal(t, ws.PartPath(wantNames[i]), part.Path)
		assert.Equal(t, wantPages[i], pageCount(t, part.Path))
	}
}

func TestPartitioner_WithinLimitKeepsOriginal(t *testing.T) {
	ws := newTestWorkspace(t)
	src := writePDF(t, t.TempDir(), "short.pdf", 75)
	doc := &models.InputDocument{Path: src, Kind: models.KindPDF}

	plan, err := NewPartitioner(ws).Partition(context.Background(), doc, 75)
	require.NoError(t, err)

	require.Len(t, plan.Parts, 1)
	assert.True(t, plan.Parts[0].Whole)
	assert.Equal(t, src, plan.Parts[0].Path)
	assert.Equal(t, models.PageRange{Start: 1, End: 75}, plan.Parts[0].Range)
	assert.Empty(t, dirEntries(t, ws.Dir()), "no split file may be created")
}

func TestPartitioner_ImageIsWholeDocument(t *testing.T) {
	ws := newTestWorkspace(t)
	src := writePNG(t, filepath.Join(t.TempDir(), "scan.png"))

	plan, err := NewPartitioner(ws).Partition(context.Background(), &models.InputDocument{Path: src, Kind: models.KindPNG}, 1)
	require.NoError(t, err)
	require.Len(t, plan.Parts, 1)
	assert.True(t, plan.Parts[0].Whole)
	assert.Equal(t, src, plan.Parts[0].Path)
}

func TestPartitioner_Errors(t *testing.T) {
	ws := newTestWorkspace(t)
	broken := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("%PDF-1.7\nthis is not really a pdf"), 0o644))

	_, err := NewPartitioner(ws).Partition(context.Background(), &models.InputDocument{Path: broken, Kind: models.KindPDF}, 10)
	require.ErrorIs(t, err, ErrPartition)

	_, err = NewPartitioner(ws).Partition(context.Background(), &models.InputDocument{Path: broken, Kind: models.KindPDF}, 0)
	require.ErrorIs(t, err, ErrPartition)
}
