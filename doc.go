// Package md2doc converts Markdown documents to PDF, Word and PNG.
//
// # Quick Start
//
// Create a converter, convert markdown, and close when done:
//
//	conv, err := md2doc.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, md2doc.Request{
//	    Content: "# Hello\n\nWorld",
//	    Format:  md2doc.FormatPDF,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Filename, result.Data, 0644)
//
// Download does the same and hands the bytes to a Sink:
//
//	path, err := conv.Download(ctx, req, md2doc.DirSink{Dir: "out"})
//
// # Conversion Pipeline
//
// Every request is parsed once:
//
//  1. Markdown preprocessing (line normalization, ==highlight== syntax)
//  2. Parsing via Goldmark (GFM, footnotes, syntax highlighting)
//
// Then one exporter runs:
//
//   - PDF: the sanitized HTML is laid out in an offscreen container
//     (800px wide, 40px padding), rasterized at device scale 2 and sliced
//     across A4 pages.
//   - PNG: same layout with the image style, flattened onto white.
//   - Word: the parse tree is flattened into paragraphs and runs and
//     written as a .docx package. No browser is involved.
//
// Output is deterministic: converting the same content twice gives the same
// bytes for every format.
//
// # Errors
//
// ErrEmptyInput and *UnsupportedFormatError report invalid requests.
// Everything past validation fails with a *ConversionError whose Err is the
// cause, reachable with errors.Is and errors.As.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := md2doc.NewConverter(
//	    md2doc.WithTimeout(2 * time.Minute),
//	    md2doc.WithBackend(md2doc.BackendChromedp),
//	    md2doc.WithAssetPath("/path/to/assets"),
//	)
//
// # Parallel Processing
//
// For batch conversion, use ConverterPool to manage several browsers:
//
//	pool := md2doc.NewConverterPool(md2doc.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//
// # Browser Requirements
//
// PDF and PNG export require Chrome/Chromium. With the rod backend a managed
// Chromium is downloaded on first run (~/.cache/rod/browser/). The chromedp
// backend uses the locally installed Chrome.
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package md2doc
