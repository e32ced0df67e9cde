package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the content-detected type of an input document.
type Kind string

const (
	KindUnknown Kind = ""
	KindPDF     Kind = "PDF"
	KindJPEG    Kind = "JPG"
	KindPNG     Kind = "PNG"
)

// SupportedKinds maps every accepted input kind to the MIME type its content must match.
var SupportedKinds = map[Kind]string{
	KindPDF:  "application/pdf",
	KindJPEG: "image/jpeg",
	KindPNG:  "image/png",
}

// MIME returns the MIME type of a supported kind, or an empty string.
func (k Kind) MIME() string {
	return SupportedKinds[k]
}

// InputDocument represents the single file a pipeline run converts.
type InputDocument struct {
	Path      string
	Kind      Kind
	PageCount int // PDF only, filled in by the partitioner
}

// Stem is the file name without directory and extension.
func (d *InputDocument) Stem() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PageRange is an inclusive, 1-indexed range of pages.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) Len() int {
	return r.End - r.Start + 1
}

// Selection renders the range in pdfcpu page selection syntax.
func (r PageRange) Selection() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func (r PageRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Part is one independently converted slice of an InputDocument.
// A Whole part references the original file and was never physically split.
type Part struct {
	Path  string
	Range PageRange
	Whole bool
}

// PartitionPlan is the ordered list of parts covering a document exactly once.
type PartitionPlan struct {
	Document *InputDocument
	Parts    []Part
}

// Split reports whether the document was divided into more than one part.
func (p PartitionPlan) Split() bool {
	return len(p.Parts) > 1
}

// Validate checks that the ranges are contiguous, strictly increasing and cover [1, pageCount].
func (p PartitionPlan) Validate(pageCount int) error {
	if len(p.Parts) == 0 {
		return fmt.Errorf("partition plan is empty")
	}
	if len(p.Parts) == 1 && p.Parts[0].Whole {
		return nil
	}
	next := 1
	for i, part := range p.Parts {
		if part.Range.Start != next {
			return fmt.Errorf("part %d starts at page %d, expected %d", i, part.Range.Start, next)
		}
		if part.Range.End < part.Range.Start {
			return fmt.Errorf("part %d has inverted range %s", i, part.Range)
		}
		next = part.Range.End + 1
	}
	if next-1 != pageCount {
		return fmt.Errorf("partition plan covers %d pages, document has %d", next-1, pageCount)
	}
	return nil
}
