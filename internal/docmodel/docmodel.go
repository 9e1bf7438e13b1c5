// Package docmodel flattens a Goldmark parse tree into a linear list of
// styled blocks. Exporters that do not go through HTML, such as the Word
// exporter, consume this model instead of re-parsing the Markdown.
package docmodel

import (
	"strings"
)

// Kind identifies the type of a Block.
type Kind int

// Block kinds.
const (
	KindParagraph Kind = iota + 1
	KindHeading
	KindListItem
	KindCode
	KindTableRow
	KindRule
)

var kindNames = map[Kind]string{
	KindParagraph: "paragraph",
	KindHeading:   "heading",
	KindListItem:  "list-item",
	KindCode:      "code",
	KindTableRow:  "table-row",
	KindRule:      "rule",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Span is a run of text sharing one set of inline styles.
type Span struct {
	Text      string
	Bold      bool
	Italic    bool
	Code      bool
	Strike    bool
	Highlight bool
	Link      string // destination URL, empty when not a link
}

// sameStyle reports whether two spans can be merged.
func (s Span) sameStyle(o Span) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Code == o.Code &&
		s.Strike == o.Strike && s.Highlight == o.Highlight && s.Link == o.Link
}

// Block is one paragraph-level element of the document.
type Block struct {
	Kind    Kind
	Level   int    // heading level, 1-6
	Ordered bool   // list item belongs to an ordered list
	Index   int    // list item number in ordered lists
	Depth   int    // list nesting depth, 0 outside lists
	Quote   int    // blockquote nesting depth
	Lang    string // code block info string
	Spans   []Span
	Cells   [][]Span // table row cells
	Header  bool     // table header row
}

// Text returns the plain text of the block. Table cells are joined with " | ".
func (b Block) Text() string {
	if b.Kind == KindTableRow {
		cells := make([]string, len(b.Cells))
		for i, cell := range b.Cells {
			cells[i] = spansText(cell)
		}
		return strings.Join(cells, " | ")
	}
	return spansText(b.Spans)
}

// CodeLines splits a code block into its lines.
func (b Block) CodeLines() []string {
	return strings.Split(spansText(b.Spans), "\n")
}

// Document is the flattened block model of a Markdown document.
type Document struct {
	Blocks []Block
}

func spansText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// mergeSpans joins adjacent spans with identical styles and drops empty ones.
func mergeSpans(spans []Span) []Span {
	out := spans[:0]
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameStyle(s) {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
