package md2doc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Fake stage
// ---------------------------------------------------------------------------

// fakeStage records mounts and removals and returns a fixed capture.
type fakeStage struct {
	mu        sync.Mutex
	img       image.Image
	mountErr  error
	rasterErr error
	removeErr error
	panicMsg  string
	mounts    []Page
	removed   int
	closed    bool
}

func newFakeStage(w, h int) *fakeStage {
	return &fakeStage{img: solidImage(w, h, color.RGBA{R: 200, G: 200, B: 200, A: 255})}
}

func (s *fakeStage) Mount(ctx context.Context, page Page) (Container, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts = append(s.mounts, page)
	if s.mountErr != nil {
		return nil, s.mountErr
	}
	return &fakeContainer{stage: s}, nil
}

func (s *fakeStage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStage) mountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mounts)
}

func (s *fakeStage) removedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

type fakeContainer struct {
	stage *fakeStage
}

func (c *fakeContainer) Rasterize(ctx context.Context) (image.Image, error) {
	if c.stage.rasterErr != nil {
		return nil, c.stage.rasterErr
	}
	return c.stage.img, nil
}

func (c *fakeContainer) Remove() error {
	c.stage.mu.Lock()
	defer c.stage.mu.Unlock()
	c.stage.removed++
	return c.stage.removeErr
}

var (
	_ Stage     = (*fakeStage)(nil)
	_ Container = (*fakeContainer)(nil)
)

// ---------------------------------------------------------------------------
// Fake sink
// ---------------------------------------------------------------------------

type fakeSink struct {
	called   bool
	filename string
	data     []byte
	err      error
}

func (s *fakeSink) Save(ctx context.Context, filename string, data []byte) (string, error) {
	s.called = true
	s.filename = filename
	s.data = data
	if s.err != nil {
		return "", s.err
	}
	return "mem://" + filename, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newTestConverter(t *testing.T, stage Stage, opts ...Option) *Converter {
	t.Helper()
	conv, err := NewConverter(append([]Option{WithStage(stage)}, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = conv.Close() })
	return conv
}

// pdfPageCount counts page objects in an fpdf document.
func pdfPageCount(data []byte) int {
	return bytes.Count(data, []byte("<</Type /Page\n"))
}

// wordParagraph is the visible content of one w:p element.
type wordParagraph struct {
	Text string
	// Bold is true when every run carrying text is bold.
	Bold bool
}

// wordParagraphs reads word/document.xml from a .docx package.
func wordParagraphs(t *testing.T, data []byte) []wordParagraph {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading docx: %v", err)
	}
	var body []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening document.xml: %v", err)
		}
		body, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading document.xml: %v", err)
		}
	}
	if body == nil {
		t.Fatal("docx has no word/document.xml")
	}

	var (
		paras   []wordParagraph
		cur     *wordParagraph
		text    strings.Builder
		runBold bool
		inText  bool
		hasText bool
	)
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decoding document.xml: %v", err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "p":
				cur = &wordParagraph{Bold: true}
				text.Reset()
				hasText = false
			case "r":
				runBold = false
			case "b":
				runBold = true
			case "t":
				inText = true
			case "br":
				if cur != nil {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					cur.Text = text.String()
					if !hasText {
						cur.Bold = false
					}
					paras = append(paras, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText && cur != nil {
				text.Write(tok)
				if len(tok) > 0 {
					hasText = true
					if !runBold {
						cur.Bold = false
					}
				}
			}
		}
	}
	return paras
}
