package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Sentinel errors for Markdown processing.
var (
	ErrParse          = errors.New("markdown parsing failed")
	ErrHTMLConversion = errors.New("HTML conversion failed")
)

// DefaultHighlightStyle is the chroma style used for code blocks.
const DefaultHighlightStyle = "github"

// Parsed is a Goldmark parse tree together with the source it indexes into.
// Text segments in the tree are only meaningful against Source.
type Parsed struct {
	Source []byte
	Root   ast.Node
}

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter parses Markdown and renders HTML fragments using goldmark.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and
// class-based syntax highlighting. Heading IDs are not generated and raw
// HTML is never rendered.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(DefaultHighlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	return &GoldmarkConverter{md: md}
}

// Parse builds the Goldmark AST for content.
// Goldmark has no context support, so the work runs in a goroutine and the
// caller returns as soon as ctx is done.
func (c *GoldmarkConverter) Parse(ctx context.Context, content string) (*Parsed, error) {
	return runWithContext(ctx, func() (*Parsed, error) {
		source := []byte(content)
		root := c.md.Parser().Parse(text.NewReader(source))
		if root == nil {
			return nil, ErrParse
		}
		return &Parsed{Source: source, Root: root}, nil
	})
}

// Render renders a parse tree to an HTML fragment.
func (c *GoldmarkConverter) Render(ctx context.Context, doc *Parsed) (string, error) {
	if doc == nil || doc.Root == nil {
		return "", fmt.Errorf("%w: nil document", ErrHTMLConversion)
	}
	return runWithContext(ctx, func() (string, error) {
		var buf bytes.Buffer
		if err := c.md.Renderer().Render(&buf, doc.Source, doc.Root); err != nil {
			return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
		}
		return buf.String(), nil
	})
}

// ToHTML parses and renders content in one call.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	doc, err := c.Parse(ctx, content)
	if err != nil {
		return "", err
	}
	return c.Render(ctx, doc)
}

// runWithContext runs fn in a goroutine and waits for either its result or
// the cancellation of ctx.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: panic: %v", ErrParse, r)}
			}
		}()
		val, err := fn()
		done <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

// Compile-time interface check.
var _ HTMLConverter = (*GoldmarkConverter)(nil)
