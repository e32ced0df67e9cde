package services

import (
	"errors"
	"fmt"
)

// Input errors are raised before any remote call; everything else aborts the whole document.
var (
	ErrNotFound        = errors.New("file not found")
	ErrUnknownType     = errors.New("cannot determine file type")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrOutputIsInput   = errors.New("output would overwrite the input file")

	ErrPartition = errors.New("failed to partition document")
	ErrRemote    = errors.New("remote conversion failed")

	ErrAssembly         = errors.New("failed to assemble output")
	ErrSortKeyCollision = errors.New("two parts share the same start page")
	ErrMergeUnsupported = errors.New("export format cannot be merged from multiple parts")
)

// UnsupportedTypeError carries what the classifier actually detected.
type UnsupportedTypeError struct {
	Extension string
	MIME      string
	Supported []string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s (%s) is an unsupported file type! input file type must be one of %v", e.Extension, e.MIME, e.Supported)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }
