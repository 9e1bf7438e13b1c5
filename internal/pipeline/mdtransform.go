package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Highlight placeholders use Unicode Private Use Area characters.
// They pass through Goldmark and the sanitizer unchanged and are turned
// into <mark> tags (HTML) or highlighted runs (Word) afterwards.
const (
	MarkStartPlaceholder = "\uE000"
	MarkEndPlaceholder   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==([^=\n]+?)==`)
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// CommonMarkPreprocessor applies transformations before Goldmark parsing.
type CommonMarkPreprocessor struct{}

// PreprocessMarkdown normalizes line endings, converts ==highlight== syntax
// and compresses runs of blank lines. A cancelled context returns content as is.
func (p *CommonMarkPreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = convertHighlights(content)
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights rewrites ==text== outside of code into placeholder
// markers. Fenced blocks and inline code spans are left untouched.
func convertHighlights(content string) string {
	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.Contains(line, "==") {
			continue
		}
		lines[i] = highlightOutsideCode(line)
	}
	return strings.Join(lines, "\n")
}

// highlightOutsideCode applies the highlight pattern to the parts of line
// that are not inside backtick code spans.
func highlightOutsideCode(line string) string {
	parts := strings.Split(line, "`")
	// Even indexes are outside code spans. An unbalanced trailing backtick
	// leaves the last part as plain text, matching CommonMark.
	for i := 0; i < len(parts); i += 2 {
		parts[i] = highlightPattern.ReplaceAllString(parts[i], MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
	}
	return strings.Join(parts, "`")
}

// ConvertMarkPlaceholders converts placeholder markers to <mark> tags.
// It runs after sanitization so the sanitizer never sees raw markup.
func ConvertMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>"),
		MarkEndPlaceholder, "</mark>",
	)
}

// StripMarkPlaceholders removes placeholder markers, leaving their text.
func StripMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, ""),
		MarkEndPlaceholder, "",
	)
}
