package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/fileutil"
	"github.com/alnah/go-md2doc/internal/logging"
	"github.com/alnah/go-md2doc/internal/pipeline"
)

const (
	defaultPreviewWidth = 80
	previewStyleAuto    = "auto"
	previewStyleNoTTY   = "notty"
)

// runPreview renders Markdown to the terminal with glamour.
func runPreview(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parsePreviewFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	content, err := readPreviewInput(positional, env)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return md2doc.ErrEmptyInput
	}

	pre := &pipeline.CommonMarkPreprocessor{}
	content = pipeline.StripMarkPlaceholders(pre.PreprocessMarkdown(ctx, content))
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := []glamour.TermRendererOption{
		previewStyle(flags.style, env.Stdout),
		glamour.WithWordWrap(max(flags.width, 0)),
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("creating preview renderer: %w", err)
	}

	out, err := r.Render(content)
	if err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	_, err = io.WriteString(env.Stdout, out)
	return err
}

// previewStyle picks the glamour style. "auto" follows the terminal
// background, and falls back to plain text when output is not a terminal.
func previewStyle(name string, stdout io.Writer) glamour.TermRendererOption {
	if name == "" || name == previewStyleAuto {
		if logging.IsTerminal(stdout) {
			return glamour.WithAutoStyle()
		}
		name = previewStyleNoTTY
	}
	return glamour.WithStandardStyle(name)
}

func readPreviewInput(positional []string, env *Environment) (string, error) {
	switch {
	case len(positional) == 0:
		return "", ErrNoInput
	case len(positional) > 1:
		return "", fmt.Errorf("%w: expected one input, got %d", ErrUsage, len(positional))
	}

	if positional[0] == stdinArg {
		data, err := readStdin(env.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	path := positional[0]
	if !fileutil.IsMarkdown(path) {
		return "", fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided input path
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return string(data), nil
}
