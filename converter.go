package md2doc

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-md2doc/internal/assets"
	"github.com/alnah/go-md2doc/internal/docmodel"
	"github.com/alnah/go-md2doc/internal/logging"
	"github.com/alnah/go-md2doc/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
)

// Converter turns Markdown into PDF, Word or PNG documents.
// Create with NewConverter, call Convert or Download, and Close when done.
// A Converter is safe for concurrent use: every conversion mounts its own
// offscreen container.
type Converter struct {
	cfg          converterConfig
	logger       zerolog.Logger
	preprocessor pipeline.MarkdownPreprocessor
	parser       *pipeline.GoldmarkConverter
	sanitizer    *pipeline.Sanitizer
	styles       assets.AssetLoader
	stage        Stage
	ownsStage    bool
	pdfCSS       string
	pngCSS       string
}

// document is a parsed request shared by every exporter.
type document struct {
	parsed  *pipeline.Parsed
	baseDir string
}

// NewConverter creates a Converter. Styles are resolved here so a bad asset
// path or a missing stylesheet fails before the first conversion.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:          defaultConfig(),
		logger:       logging.Nop(),
		preprocessor: &pipeline.CommonMarkPreprocessor{},
		parser:       pipeline.NewGoldmarkConverter(),
		sanitizer:    pipeline.NewSanitizer(),
		styles:       assets.NewEmbeddedLoader(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		c.styles = resolver
	}

	if err := c.resolveStyles(); err != nil {
		return nil, err
	}

	if c.stage == nil {
		stage, err := c.newStage()
		if err != nil {
			return nil, err
		}
		c.stage = stage
		c.ownsStage = true
	}

	return c, nil
}

// resolveStyles loads the document stylesheets and appends the code
// highlighting rules to both.
func (c *Converter) resolveStyles() error {
	highlight, err := pipeline.HighlightCSS(c.cfg.highlightStyle)
	if err != nil {
		return fmt.Errorf("loading highlight style %q: %w", c.cfg.highlightStyle, err)
	}

	pdfCSS, err := c.styles.LoadStyle(assets.StylePDF)
	if err != nil {
		return fmt.Errorf("loading style %q: %w", assets.StylePDF, err)
	}
	pngCSS, err := c.styles.LoadStyle(assets.StylePNG)
	if err != nil {
		return fmt.Errorf("loading style %q: %w", assets.StylePNG, err)
	}

	c.pdfCSS = pdfCSS + "\n" + highlight
	c.pngCSS = pngCSS + "\n" + highlight
	return nil
}

func (c *Converter) newStage() (Stage, error) {
	switch c.cfg.backend {
	case BackendRod:
		return newRodStage(c.cfg.browserBin, c.cfg.noSandbox, c.cfg.timeout), nil
	case BackendChromedp:
		return newChromedpStage(c.cfg.browserBin, c.cfg.noSandbox, c.cfg.timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.cfg.backend)
	}
}

// Convert renders req.Content in req.Format.
// Validation failures are returned as is (ErrEmptyInput, *UnsupportedFormatError).
// Any failure past validation, including a recovered panic, is returned as a
// *ConversionError carrying the format and the cause.
func (c *Converter) Convert(ctx context.Context, req Request) (result *Result, err error) {
	format := req.Format
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ConversionError{Format: format, Err: fmt.Errorf("%w: %v", ErrInternal, r)}
		}
	}()

	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyInput
	}
	format, err = ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}

	name := c.cfg.filename
	if req.Name != "" {
		name = req.Name
	}

	log := c.logger.With().
		Str("conversion", logging.NewID()).
		Str("format", string(format)).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	start := time.Now()
	log.Debug().Int("bytes", len(req.Content)).Msg("conversion started")

	data, err := c.export(ctx, format, req)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("conversion failed")
		return nil, &ConversionError{Format: format, Err: err}
	}

	log.Info().Int("size", len(data)).Dur("elapsed", time.Since(start)).Msg("conversion finished")

	return &Result{
		Format:   format,
		Filename: name + "." + format.Extension(),
		MIMEType: format.MIMEType(),
		Data:     data,
	}, nil
}

// Download converts req and hands the document to sink.
// Returns the location reported by the sink.
func (c *Converter) Download(ctx context.Context, req Request, sink Sink) (string, error) {
	res, err := c.Convert(ctx, req)
	if err != nil {
		return "", err
	}
	location, err := sink.Save(ctx, res.Filename, res.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}
	return location, nil
}

// Close releases the browser if the converter created it.
func (c *Converter) Close() error {
	if c.stage != nil && c.ownsStage {
		return c.stage.Close()
	}
	return nil
}

func (c *Converter) export(ctx context.Context, format Format, req Request) ([]byte, error) {
	doc, err := c.parse(ctx, req)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		img, err := c.render(ctx, doc, c.pdfCSS)
		if err != nil {
			return nil, err
		}
		return encodePDF(img, c.cfg.pageHeightMM)
	case FormatPNG:
		img, err := c.render(ctx, doc, c.pngCSS)
		if err != nil {
			return nil, err
		}
		return encodePNG(img)
	case FormatWord:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return encodeWord(docmodel.FromParsed(doc.parsed))
	}
	return nil, &UnsupportedFormatError{Format: string(format)}
}

// parse preprocesses and parses the Markdown once for all exporters.
func (c *Converter) parse(ctx context.Context, req Request) (*document, error) {
	md := c.preprocessor.PreprocessMarkdown(ctx, req.Content)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := c.parser.Parse(ctx, md)
	if err != nil {
		return nil, err
	}
	return &document{parsed: parsed, baseDir: req.BaseDir}, nil
}

// html renders the sanitized fragment of doc, with local images inlined
// and highlight marks restored.
func (c *Converter) html(ctx context.Context, doc *document) (string, error) {
	fragment, err := c.parser.Render(ctx, doc.parsed)
	if err != nil {
		return "", err
	}

	fragment = c.sanitizer.Sanitize(fragment)

	if doc.baseDir != "" {
		fragment, err = pipeline.InlineLocalImages(fragment, doc.baseDir)
		if err != nil {
			return "", err
		}
	}

	return pipeline.ConvertMarkPlaceholders(fragment), nil
}

// render lays the document out in an offscreen container styled with css
// and rasterizes it.
func (c *Converter) render(ctx context.Context, doc *document, css string) (image.Image, error) {
	fragment, err := c.html(ctx, doc)
	if err != nil {
		return nil, err
	}

	page := pipeline.BuildPage(ctx, fragment, pipeline.PageOptions{
		Width:   c.cfg.width,
		Padding: c.cfg.padding,
		CSS:     css,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return rasterize(ctx, c.stage, Page{
		HTML:     page,
		Width:    c.cfg.width + 2*c.cfg.padding,
		Scale:    c.cfg.scale,
		Selector: pipeline.ContainerSelector,
	})
}
