package md2doc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/alnah/go-md2doc/internal/docmodel"
)

// Word rendering constants. Sizes are in half-points, indents in twips.
const (
	monoFont       = "Courier New"
	codeSize       = "20"
	quoteColor     = "6A737D"
	highlightColor = "yellow"
	indentStep     = 360
	bulletPrefix   = "• "
	quotePrefix    = "> "
	rulePattern    = "────────────────────────────────"
	contentTypes   = "[Content_Types].xml"
)

// headingSize returns the run size of a heading: 24pt less 2pt per level,
// floored at 16pt.
func headingSize(level int) string {
	pt := max(24-2*level, 16)
	return strconv.Itoa(pt * 2)
}

// encodeWord writes the block model as a .docx package.
func encodeWord(doc *docmodel.Document) ([]byte, error) {
	w := docx.New().WithDefaultTheme().WithA4Page()
	for _, b := range doc.Blocks {
		writeBlock(w, b)
	}

	var raw bytes.Buffer
	if _, err := w.WriteTo(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWordEncode, err)
	}

	data, err := canonicalZip(raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWordEncode, err)
	}
	return data, nil
}

func writeBlock(w *docx.Docx, b docmodel.Block) {
	switch b.Kind {
	case docmodel.KindHeading:
		p := w.AddParagraph()
		quoted(p, b.Quote)
		size := headingSize(b.Level)
		for _, s := range b.Spans {
			r := addSpan(p, s).Bold().Size(size)
			if b.Quote > 0 {
				r.Color(quoteColor)
			}
		}

	case docmodel.KindListItem:
		p := w.AddParagraph()
		indent(p, b.Depth)
		quoted(p, b.Quote)
		if b.Ordered {
			p.AddText(strconv.Itoa(b.Index) + ". ")
		} else {
			p.AddText(bulletPrefix)
		}
		addSpans(p, b.Spans, b.Quote > 0)

	case docmodel.KindCode:
		for _, line := range b.CodeLines() {
			p := w.AddParagraph()
			indent(p, b.Depth)
			quoted(p, b.Quote)
			p.AddText(line).Font(monoFont, monoFont, monoFont, "default").Size(codeSize)
		}

	case docmodel.KindTableRow:
		p := w.AddParagraph()
		quoted(p, b.Quote)
		for i, cell := range b.Cells {
			if i > 0 {
				sep := p.AddText(" | ")
				if b.Header {
					sep.Bold()
				}
			}
			for _, s := range cell {
				r := addSpan(p, s)
				if b.Header {
					r.Bold()
				}
			}
		}

	case docmodel.KindRule:
		p := w.AddParagraph().Justification("center")
		quoted(p, b.Quote)
		p.AddText(rulePattern).Color(quoteColor)

	default:
		p := w.AddParagraph()
		indent(p, b.Depth)
		quoted(p, b.Quote)
		addSpans(p, b.Spans, b.Quote > 0)
	}
}

// quoted prefixes a paragraph inside blockquotes, one marker per level.
func quoted(p *docx.Paragraph, depth int) {
	if depth > 0 {
		p.AddText(strings.Repeat(quotePrefix, depth)).Color(quoteColor)
	}
}

func indent(p *docx.Paragraph, depth int) {
	if depth <= 0 {
		return
	}
	if p.Properties == nil {
		p.Properties = &docx.ParagraphProperties{}
	}
	p.Properties.Ind = &docx.Ind{Left: indentStep * depth}
}

func addSpans(p *docx.Paragraph, spans []docmodel.Span, quote bool) {
	for _, s := range spans {
		r := addSpan(p, s)
		if quote {
			r.Color(quoteColor).Italic()
		}
	}
}

// addSpan appends one styled run. Links become hyperlink runs.
func addSpan(p *docx.Paragraph, s docmodel.Span) *docx.Run {
	var r *docx.Run
	if s.Link != "" {
		// AddLink stores the label as a field instruction, which Word does
		// not display; move it into a visible text child.
		label := strings.ReplaceAll(s.Text, "\n", " ")
		link := p.AddLink(label, s.Link)
		link.Run.InstrText = ""
		link.Run.Children = append(link.Run.Children, &docx.Text{Text: label, XMLSpace: "preserve"})
		r = &link.Run
	} else {
		r = p.AddText(s.Text)
	}

	if s.Bold {
		r.Bold()
	}
	if s.Italic {
		r.Italic()
	}
	if s.Code {
		r.Font(monoFont, monoFont, monoFont, "default")
	}
	if s.Strike {
		r.Strike(true)
	}
	if s.Highlight {
		r.Highlight(highlightColor)
	}
	return r
}

// canonicalZip rewrites a zip archive with sorted entries, the content types
// part first, and fixed timestamps, so equal documents are equal bytes.
func canonicalZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}

	files := slices.Clone(zr.File)
	slices.SortFunc(files, func(a, b *zip.File) int {
		switch {
		case a.Name == contentTypes:
			return -1
		case b.Name == contentTypes:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		if err := copyEntry(zw, f); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing package: %w", err)
	}
	return buf.Bytes(), nil
}

func copyEntry(zw *zip.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   zip.Deflate,
		Modified: documentEpoch,
	})
	if err != nil {
		return fmt.Errorf("adding %s: %w", f.Name, err)
	}
	// #nosec G110 -- the archive was produced in-process
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("copying %s: %w", f.Name, err)
	}
	return nil
}
