package md2doc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-md2doc/internal/assets"
)

// Sentinel errors for library operations.
var (
	ErrEmptyInput        = errors.New("markdown content cannot be empty")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInternal          = errors.New("internal error")

	// Browser stage errors.
	ErrBrowserConnect  = errors.New("failed to connect to browser")
	ErrPageCreate      = errors.New("failed to create browser page")
	ErrPageLoad        = errors.New("failed to load page")
	ErrRasterize       = errors.New("failed to rasterize container")
	ErrContainerRemove = errors.New("failed to remove offscreen container")
	ErrUnknownBackend  = errors.New("unknown browser backend")

	// Encoding errors.
	ErrPDFEncode  = errors.New("PDF encoding failed")
	ErrPNGEncode  = errors.New("PNG encoding failed")
	ErrWordEncode = errors.New("Word encoding failed")

	// Output errors.
	ErrSave = errors.New("failed to save document")

	// Asset loading errors.
	ErrStyleNotFound    = assets.ErrStyleNotFound
	ErrInvalidAssetPath = errors.New("invalid asset path")

	// Pool errors.
	ErrPoolClosed = errors.New("converter pool is closed")
)

// UnsupportedFormatError reports a format tag outside pdf, word and png.
// It matches ErrUnsupportedFormat with errors.Is.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%v: %q (want %s)", ErrUnsupportedFormat, e.Format, strings.Join(FormatNames(), ", "))
}

// Is reports whether target is ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ConversionError wraps any failure of a rendering, rasterization or
// encoding stage. Err stays reachable through errors.Is and errors.As.
type ConversionError struct {
	Format Format
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s conversion failed: %v", strings.ToUpper(string(e.Format)), e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
