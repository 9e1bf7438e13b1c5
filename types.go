package md2doc

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format is an export target.
type Format string

// Supported formats.
const (
	FormatPDF  Format = "pdf"
	FormatWord Format = "word"
	FormatPNG  Format = "png"
)

// DefaultFilename is the base name of downloaded documents.
const DefaultFilename = "markdown-document"

var formatInfo = map[Format]struct {
	ext  string
	mime string
}{
	FormatPDF:  {"pdf", "application/pdf"},
	FormatWord: {"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	FormatPNG:  {"png", "image/png"},
}

// FormatNames lists the accepted format tags in display order.
func FormatNames() []string {
	return []string{string(FormatPDF), string(FormatWord), string(FormatPNG)}
}

// ParseFormat parses a format tag. Matching ignores case and surrounding
// whitespace, and "docx" is accepted for Word.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "docx" {
		f = FormatWord
	}
	if _, ok := formatInfo[f]; !ok {
		return "", &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// Extension returns the file extension without the leading dot.
func (f Format) Extension() string {
	return formatInfo[f].ext
}

// MIMEType returns the media type of documents in this format.
func (f Format) MIMEType() string {
	return formatInfo[f].mime
}

// Request is one conversion.
type Request struct {
	Content string
	Format  Format
	// Name overrides the converter's base filename for this request.
	Name string
	// BaseDir resolves relative image paths when the Markdown comes from a file.
	BaseDir string
}

// Result is a converted document.
type Result struct {
	Format   Format
	Filename string
	MIMEType string
	Data     []byte
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout        time.Duration
	width          int
	padding        int
	scale          float64
	pageHeightMM   float64
	highlightStyle string
	assetPath      string
	filename       string
	backend        string
	browserBin     string
	noSandbox      bool
}

// Defaults for the offscreen container and pagination.
const (
	defaultTimeout      = 30 * time.Second
	DefaultWidth        = 800
	DefaultPadding      = 40
	DefaultScale        = 2.0
	DefaultPageHeightMM = 295.0
)

// Backends for WithBackend.
const (
	BackendRod      = "rod"
	BackendChromedp = "chromedp"
)

func defaultConfig() converterConfig {
	return converterConfig{
		timeout:        defaultTimeout,
		width:          DefaultWidth,
		padding:        DefaultPadding,
		scale:          DefaultScale,
		pageHeightMM:   DefaultPageHeightMM,
		highlightStyle: "github",
		filename:       DefaultFilename,
		backend:        BackendRod,
	}
}

// WithTimeout sets the per-conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2doc: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithGeometry sets the container width and padding in CSS pixels and the
// device scale factor used for rasterization. Non-positive width or scale
// and negative padding keep the defaults.
func WithGeometry(width, padding int, scale float64) Option {
	return func(c *Converter) {
		if width > 0 {
			c.cfg.width = width
		}
		if padding >= 0 {
			c.cfg.padding = padding
		}
		if scale > 0 {
			c.cfg.scale = scale
		}
	}
}

// WithPageHeight sets the PDF page slice height in millimeters.
func WithPageHeight(mm float64) Option {
	return func(c *Converter) {
		if mm > 0 {
			c.cfg.pageHeightMM = mm
		}
	}
}

// WithHighlightStyle selects the chroma style for code blocks.
func WithHighlightStyle(name string) Option {
	return func(c *Converter) {
		if name != "" {
			c.cfg.highlightStyle = name
		}
	}
}

// WithAssetPath loads pdf.css and png.css overrides from path/styles/.
func WithAssetPath(path string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = path
	}
}

// WithFilename sets the base name of converted documents.
func WithFilename(base string) Option {
	return func(c *Converter) {
		if base != "" {
			c.cfg.filename = base
		}
	}
}

// WithBackend selects the browser backend used when no stage is injected.
func WithBackend(name string) Option {
	return func(c *Converter) {
		if name != "" {
			c.cfg.backend = name
		}
	}
}

// WithBrowser sets the Chrome binary and sandbox mode for the built-in stages.
func WithBrowser(bin string, noSandbox bool) Option {
	return func(c *Converter) {
		c.cfg.browserBin = bin
		c.cfg.noSandbox = noSandbox
	}
}

// WithStage injects the rasterization stage. The converter does not close
// an injected stage.
func WithStage(s Stage) Option {
	return func(c *Converter) {
		c.stage = s
		c.ownsStage = false
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}
