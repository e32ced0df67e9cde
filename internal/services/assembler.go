package services

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var partRangePattern = regexp.MustCompile(`_(\d+)-(\d+)\.[^.]+$`)

// Assembler turns per-part outputs into the single published output file.
type Assembler struct {
	conf *model.Configuration
}

func NewAssembler() *Assembler {
	return &Assembler{conf: pdfConfig()}
}

// CanMerge reports whether several parts of this format can be combined.
func (a *Assembler) CanMerge(format models.ExportFormat) bool {
	return format == models.FormatTXT || format == models.FormatPDF
}

// Assemble publishes outPath. A single result is moved as-is; multiple results
// are merged in ascending start-page order and each part is deleted once consumed.
func (a *Assembler) Assemble(results []models.ConversionResult, format models.ExportFormat, outPath string) (string, error) {
	logCtx := slog.With("output", outPath, "parts", len(results))

	if len(results) == 0 {
		return "", fmt.Errorf("%w: no conversion results", ErrAssembly)
	}
	for _, r := range results {
		if !r.Succeeded {
			return "", fmt.Errorf("%w: part %s did not convert", ErrAssembly, r.Part.Range)
		}
		if _, err := os.Stat(r.OutputPath); err != nil {
			return "", fmt.Errorf("%w: missing part output %s: %v", ErrAssembly, r.OutputPath, err)
		}
	}

	if len(results) == 1 {
		if err := moveFile(results[0].OutputPath, outPath); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAssembly, err)
		}
		logCtx.Info("Single part promoted to output.")
		return outPath, nil
	}

	ordered, err := sortByStartPage(results)
	if err != nil {
		return "", err
	}

	switch format {
	case models.FormatTXT:
		err = mergeText(ordered, outPath)
	case models.FormatPDF:
		err = a.mergePDF(ordered, outPath)
	default:
		return "", fmt.Errorf("%w: %s", ErrMergeUnsupported, format)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	logCtx.Info("Parts merged into output.")
	return outPath, nil
}

// sortByStartPage orders outputs by the start page embedded in their file names.
func sortByStartPage(results []models.ConversionResult) ([]string, error) {
	type keyed struct {
		start int
		path  string
	}
	keys := make([]keyed, 0, len(results))
	seen := make(map[int]string, len(results))

	for _, r := range results {
		m := partRangePattern.FindStringSubmatch(filepath.Base(r.OutputPath))
		if m == nil {
			return nil, fmt.Errorf("%w: no page range in part name %s", ErrAssembly, r.OutputPath)
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad start page in %s: %v", ErrAssembly, r.OutputPath, err)
		}
		if other, dup := seen[start]; dup {
			return nil, fmt.Errorf("%w: %s and %s both start at page %d", ErrSortKeyCollision, other, r.OutputPath, start)
		}
		seen[start] = r.OutputPath
		keys = append(keys, keyed{start: start, path: r.OutputPath})
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].start < keys[j].start })
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = k.path
	}
	return paths, nil
}

// mergeText concatenates parts as UTF-8 with LF line endings. Each part is
// deleted right after it has been appended.
func mergeText(parts []string, outPath string) error {
	return publish(outPath, func(w io.Writer) error {
		buf := bufio.NewWriter(w)
		for _, part := range parts {
			data, err := os.ReadFile(part)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", part, err)
			}
			text, err := normalizeText(data)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", part, err)
			}
			if _, err := buf.Write(text); err != nil {
				return fmt.Errorf("failed to append %s: %w", part, err)
			}
			discardPart(part)
		}
		return buf.Flush()
	})
}

// normalizeText drops a leading byte order mark, replaces invalid UTF-8 and converts CRLF to LF.
func normalizeText(data []byte) ([]byte, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(decoded, []byte("\r\n"), []byte("\n")), nil
}

func (a *Assembler) mergePDF(parts []string, outPath string) error {
	tmp, err := tempSibling(outPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := api.MergeCreateFile(parts, tmp, false, a.conf); err != nil {
		return fmt.Errorf("failed to merge PDF parts: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("failed to publish %s: %w", outPath, err)
	}
	for _, part := range parts {
		discardPart(part)
	}
	return nil
}

// removeFile is swapped out in tests.
var removeFile = os.Remove

// discardPart deletes a part whose contents already made it into the output.
// A failure is only logged; the workspace cleanup gets another try.
func discardPart(part string) {
	if err := removeFile(part); err != nil {
		slog.Warn("Failed to remove consumed part.", "part", part, "error", err)
	}
}

// publish writes through a temp file next to outPath and renames it into place,
// so a failed run never leaves a truncated output behind.
func publish(outPath string, write func(io.Writer) error) error {
	tmp, err := tempSibling(outPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", tmp, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("failed to publish %s: %w", outPath, err)
	}
	return nil
}

func tempSibling(outPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.partial")
	if err != nil {
		return "", fmt.Errorf("failed to create temp output: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// moveFile renames src to dst, copying across filesystems when rename is not possible.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	err := publish(dst, func(w io.Writer) error {
		in, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", src, err)
		}
		defer in.Close()
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	discardPart(src)
	return nil
}
