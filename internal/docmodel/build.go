package docmodel

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/util"

	"github.com/alnah/go-md2doc/internal/pipeline"
)

// Build flattens the parse tree of source into a Document.
// Raw HTML is dropped. Images contribute their alt text.
func Build(source []byte, root ast.Node) *Document {
	b := &builder{src: source, doc: &Document{}}
	if root != nil {
		b.children(root)
	}
	return b.doc
}

// FromParsed is a convenience wrapper around Build for pipeline output.
func FromParsed(p *pipeline.Parsed) *Document {
	if p == nil {
		return &Document{}
	}
	return Build(p.Source, p.Root)
}

type builder struct {
	src       []byte
	doc       *Document
	quote     int
	depth     int
	highlight bool
}

func (b *builder) emit(block Block) {
	block.Quote = b.quote
	b.doc.Blocks = append(b.doc.Blocks, block)
}

func (b *builder) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.block(c)
	}
}

func (b *builder) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		b.emit(Block{Kind: KindHeading, Level: n.Level, Spans: b.inlines(n)})
	case *ast.Paragraph, *ast.TextBlock:
		b.emit(Block{Kind: KindParagraph, Depth: b.depth, Spans: b.inlines(n)})
	case *ast.List:
		b.list(n)
	case *ast.Blockquote:
		b.quote++
		b.children(n)
		b.quote--
	case *ast.FencedCodeBlock:
		b.emit(Block{Kind: KindCode, Depth: b.depth, Lang: string(n.Language(b.src)), Spans: b.codeLines(n)})
	case *ast.CodeBlock:
		b.emit(Block{Kind: KindCode, Depth: b.depth, Spans: b.codeLines(n)})
	case *ast.ThematicBreak:
		b.emit(Block{Kind: KindRule})
	case *east.Table:
		b.table(n)
	case *east.Footnote:
		b.footnote(n)
	case *ast.HTMLBlock:
		// Raw HTML is never rendered.
	default:
		b.children(n)
	}
}

func (b *builder) list(list *ast.List) {
	ordered := list.IsOrdered()
	index := 0
	if ordered {
		index = list.Start
	}

	b.depth++
	defer func() { b.depth-- }()

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if first && isTextContainer(c) {
				b.emit(Block{
					Kind:    KindListItem,
					Ordered: ordered,
					Index:   index,
					Depth:   b.depth,
					Spans:   b.inlines(c),
				})
				first = false
				continue
			}
			first = false
			b.block(c)
		}
		if first {
			// Empty item still produces its marker.
			b.emit(Block{Kind: KindListItem, Ordered: ordered, Index: index, Depth: b.depth})
		}
		if ordered {
			index++
		}
	}
}

func isTextContainer(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return true
	}
	return false
}

func (b *builder) table(t *east.Table) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		var cells [][]Span
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, b.inlines(cell))
		}
		b.emit(Block{Kind: KindTableRow, Header: header, Cells: cells})
	}
}

func (b *builder) footnote(f *east.Footnote) {
	marker := Span{Text: fmt.Sprintf("[%d] ", f.Index)}
	first := true
	for c := f.FirstChild(); c != nil; c = c.NextSibling() {
		if first && isTextContainer(c) {
			spans := append([]Span{marker}, b.inlines(c)...)
			b.emit(Block{Kind: KindParagraph, Depth: b.depth, Spans: mergeSpans(spans)})
			first = false
			continue
		}
		first = false
		b.block(c)
	}
}

func (b *builder) codeLines(n ast.Node) []Span {
	lines := n.Lines()
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(b.src))
	}
	code := strings.TrimSuffix(sb.String(), "\n")
	return []Span{{Text: code, Code: true}}
}

// inlines collects the styled spans below a block node.
func (b *builder) inlines(n ast.Node) []Span {
	b.highlight = false
	var spans []Span
	b.inline(n, Span{}, &spans)
	return mergeSpans(spans)
}

func (b *builder) inline(parent ast.Node, style Span, out *[]Span) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			b.text(unescape(n.Segment.Value(b.src)), style, out)
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.text("\n", style, out)
			}
		case *ast.String:
			b.text(unescape(n.Value), style, out)
		case *ast.CodeSpan:
			s := style
			s.Code = true
			s.Text = rawText(n, b.src)
			s.Highlight = b.highlight
			*out = append(*out, s)
		case *ast.Emphasis:
			s := style
			if n.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			b.inline(n, s, out)
		case *east.Strikethrough:
			s := style
			s.Strike = true
			b.inline(n, s, out)
		case *ast.Link:
			s := style
			s.Link = string(n.Destination)
			b.inline(n, s, out)
		case *ast.AutoLink:
			s := style
			s.Link = string(n.URL(b.src))
			b.text(string(n.Label(b.src)), s, out)
		case *ast.Image:
			b.inline(n, style, out)
		case *east.TaskCheckBox:
			if n.IsChecked {
				b.text("[x] ", style, out)
			} else {
				b.text("[ ] ", style, out)
			}
		case *east.FootnoteLink:
			b.text(fmt.Sprintf("[%d]", n.Index), style, out)
		case *ast.RawHTML, *east.FootnoteBacklink:
			// Dropped.
		default:
			b.inline(n, style, out)
		}
	}
}

// text appends s with style, toggling highlight at placeholder markers.
func (b *builder) text(s string, style Span, out *[]Span) {
	for s != "" {
		i := strings.IndexAny(s, pipeline.MarkStartPlaceholder+pipeline.MarkEndPlaceholder)
		if i < 0 {
			break
		}
		b.appendStyled(s[:i], style, out)
		marker := s[i:]
		if strings.HasPrefix(marker, pipeline.MarkStartPlaceholder) {
			b.highlight = true
			s = marker[len(pipeline.MarkStartPlaceholder):]
		} else {
			b.highlight = false
			s = marker[len(pipeline.MarkEndPlaceholder):]
		}
	}
	b.appendStyled(s, style, out)
}

func (b *builder) appendStyled(s string, style Span, out *[]Span) {
	if s == "" {
		return
	}
	style.Text = s
	style.Highlight = b.highlight
	*out = append(*out, style)
}

// rawText concatenates the text segments below n without unescaping.
func rawText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(rawText(c, src))
		}
	}
	return pipeline.StripMarkPlaceholders(sb.String())
}

// unescape resolves backslash escapes and entity references the way the
// HTML renderer does.
func unescape(v []byte) string {
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	v = util.ResolveEntityNames(v)
	return string(v)
}
