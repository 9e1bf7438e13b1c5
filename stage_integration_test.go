//go:build integration

package md2doc

// Notes:
// - Runs the real browser stages. Rod downloads Chromium on first run if not
//   found; chromedp needs a local Chrome and the tests skip without one.
// - One pool per backend is shared by every test and closed in TestMain.

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"testing"
	"time"
)

// testTimeout is the standard timeout for integration test operations.
const testTimeout = 60 * time.Second

var testPools map[string]*ConverterPool

func TestMain(m *testing.M) {
	size := min(ResolvePoolSize(0), 2)
	testPools = map[string]*ConverterPool{
		BackendRod:      NewConverterPool(size, WithBackend(BackendRod)),
		BackendChromedp: NewConverterPool(size, WithBackend(BackendChromedp)),
	}

	code := m.Run()

	for _, pool := range testPools {
		_ = pool.Close()
	}
	os.Exit(code)
}

// acquireConverter gets a converter for backend with automatic release.
func acquireConverter(t *testing.T, backend string) *Converter {
	t.Helper()
	pool := testPools[backend]
	conv, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire(%s) error = %v", backend, err)
	}
	t.Cleanup(func() { pool.Release(conv) })
	return conv
}

func convertOrSkip(t *testing.T, backend string, req Request) *Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	res, err := acquireConverter(t, backend).Convert(ctx, req)
	if errors.Is(err, ErrBrowserConnect) && backend == BackendChromedp {
		t.Skipf("no local Chrome for chromedp: %v", err)
	}
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return res
}

const sampleMarkdown = "# Integration\n\nSome **bold** text and `code`.\n\n```go\nfmt.Println(\"hi\")\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"

func TestStages_PNG_Integration(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{BackendRod, BackendChromedp} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			res := convertOrSkip(t, backend, Request{Content: sampleMarkdown, Format: FormatPNG})

			img, err := png.Decode(bytes.NewReader(res.Data))
			if err != nil {
				t.Fatalf("decoding PNG: %v", err)
			}
			// 880 CSS pixels at device scale 2.
			if got := img.Bounds().Dx(); got != 2*(DefaultWidth+2*DefaultPadding) {
				t.Errorf("width = %d, want %d", got, 2*(DefaultWidth+2*DefaultPadding))
			}
		})
	}
}

func TestStages_PDF_Integration(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{BackendRod, BackendChromedp} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			res := convertOrSkip(t, backend, Request{Content: sampleMarkdown, Format: FormatPDF})
			if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
				t.Errorf("data does not have PDF magic bytes")
			}
			if pdfPageCount(res.Data) < 1 {
				t.Error("PDF should have at least one page")
			}
		})
	}
}

func TestStages_LongDocumentPaginates_Integration(t *testing.T) {
	t.Parallel()

	var md bytes.Buffer
	for i := 0; i < 200; i++ {
		md.WriteString("Paragraph of filler text that keeps the document growing.\n\n")
	}

	res := convertOrSkip(t, BackendRod, Request{Content: md.String(), Format: FormatPDF})
	if got := pdfPageCount(res.Data); got < 2 {
		t.Errorf("pages = %d, want at least 2", got)
	}
}
