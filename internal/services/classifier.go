package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/h2non/filetype"
)

// Classifier detects a file's kind from its content, never its name.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(path string) (models.Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.KindUnknown, fmt.Errorf("%w: file %s does not exist", ErrNotFound, path)
		}
		return models.KindUnknown, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return models.KindUnknown, fmt.Errorf("%w: %s is empty or not a regular file", ErrUnknownType, path)
	}

	kind, err := filetype.MatchFile(path)
	if err != nil {
		return models.KindUnknown, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if kind == filetype.Unknown {
		return models.KindUnknown, fmt.Errorf("%w: %s, make sure the file is valid and try again", ErrUnknownType, path)
	}

	for k, mime := range models.SupportedKinds {
		if mime == kind.MIME.Value {
			return k, nil
		}
	}
	return models.KindUnknown, &UnsupportedTypeError{
		Extension: strings.ToUpper(kind.Extension),
		MIME:      kind.MIME.Value,
		Supported: supportedKindNames(),
	}
}

func supportedKindNames() []string {
	names := make([]string, 0, len(models.SupportedKinds))
	for k := range models.SupportedKinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}
