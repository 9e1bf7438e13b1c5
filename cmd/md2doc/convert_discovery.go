package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/fileutil"
)

// stdinArg selects standard input as the Markdown source.
const stdinArg = "-"

// stdinLabel names standard input in result lines.
const stdinLabel = "<stdin>"

// Sentinel errors for file discovery.
var (
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrNoMarkdownFiles    = errors.New("no markdown files found")
)

// FileToConvert represents a single source to process.
type FileToConvert struct {
	InputPath string // "<stdin>" for standard input
	Name      string // output base name without extension
	BaseDir   string // resolves relative images, empty for stdin
	OutputDir string
	Content   []byte // preloaded for stdin, read lazily otherwise
}

// discoverFiles lists the Markdown files of inputPath. A directory yields
// its .md and .markdown files, not recursing into subdirectories; each
// output is named after its source. name overrides the output base name of
// a single file.
func discoverFiles(inputPath, outputDir, name string) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !fileutil.IsMarkdown(inputPath) {
			return nil, fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(inputPath))
		}
		if name == "" {
			name = fileutil.TrimExt(inputPath)
		}
		return []FileToConvert{newFileToConvert(inputPath, name, outputDir)}, nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", inputPath, err)
	}

	var files []FileToConvert
	for _, e := range entries {
		if e.IsDir() || !fileutil.IsMarkdown(e.Name()) {
			continue
		}
		path := filepath.Join(inputPath, e.Name())
		files = append(files, newFileToConvert(path, fileutil.TrimExt(path), outputDir))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMarkdownFiles, inputPath)
	}
	return files, nil
}

func newFileToConvert(path, name, outputDir string) FileToConvert {
	dir := filepath.Dir(path)
	if outputDir == "" {
		outputDir = dir
	}
	return FileToConvert{InputPath: path, Name: name, BaseDir: dir, OutputDir: outputDir}
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > md2doc.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, md2doc.MaxPoolSize)
	}
	return nil
}
