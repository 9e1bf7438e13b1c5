package main

import (
	"context"
	"errors"
	"os"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/assets"
	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/hints"
)

// Exit codes for md2doc CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, md2doc.ErrBrowserConnect) ||
		errors.Is(err, md2doc.ErrPageCreate) ||
		errors.Is(err, md2doc.ErrPageLoad) ||
		errors.Is(err, md2doc.ErrRasterize) ||
		errors.Is(err, md2doc.ErrContainerRemove) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrNoMarkdownFiles) ||
		errors.Is(err, md2doc.ErrSave) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, md2doc.ErrEmptyInput) ||
		errors.Is(err, md2doc.ErrUnsupportedFormat) ||
		errors.Is(err, md2doc.ErrStyleNotFound) ||
		errors.Is(err, md2doc.ErrInvalidAssetPath) ||
		errors.Is(err, md2doc.ErrUnknownBackend) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, backend string) string {
	switch {
	case errors.Is(err, md2doc.ErrBrowserConnect):
		return hints.ForBrowserConnect(backend)
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, md2doc.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.NewEmbeddedLoader().StyleNames())
	case errors.Is(err, md2doc.ErrUnsupportedFormat):
		return hints.ForUnsupportedFormat(md2doc.FormatNames())
	case errors.Is(err, md2doc.ErrEmptyInput), errors.Is(err, ErrNoInput):
		return hints.ForEmptyInput()
	case errors.Is(err, md2doc.ErrSave):
		return hints.ForOutputDirectory()
	}
	return ""
}
