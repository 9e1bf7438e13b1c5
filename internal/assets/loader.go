package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Built-in style names, one per raster format.
const (
	StylePDF = "pdf"
	StylePNG = "png"
)

// maxStyleNameLength bounds style names before they reach the filesystem.
const maxStyleNameLength = 64

var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid base path")
	ErrAssetRead        = errors.New("failed to read asset")
	ErrPathTraversal    = errors.New("path traversal detected")
)

// AssetLoader loads CSS styles by name, without the .css extension.
// Implementations return ErrStyleNotFound for unknown names and
// ErrInvalidAssetName for names that are not plain identifiers.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
}

// ValidateAssetName rejects names that could address anything other than a
// single file in the style directory: separators, dots, NUL and overlong
// names.
func ValidateAssetName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	case len(name) > maxStyleNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidAssetName, maxStyleNameLength)
	case strings.ContainsAny(name, "/\\.\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
