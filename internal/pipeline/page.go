package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// ContainerID is the id of the offscreen element holding the rendered document.
const ContainerID = "md-document"

// ContainerSelector selects the offscreen container.
const ContainerSelector = "#" + ContainerID

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Document</title>
</head>
<body style="margin:0;background:#ffffff">
<div id="` + ContainerID + `">%s</div>
</body>
</html>`

// PageOptions describes the offscreen container geometry and styling.
type PageOptions struct {
	Width   int    // CSS pixels, content box
	Padding int    // CSS pixels on every side
	CSS     string // document style, appended after the geometry rules
}

// BuildPage wraps an HTML fragment into a standalone document whose single
// container has the requested geometry and styles. The container is
// positioned off the visible area the same way a detached element would be.
func BuildPage(ctx context.Context, fragment string, opts PageOptions) string {
	page := fmt.Sprintf(pageTemplate, fragment)
	geometry := fmt.Sprintf(
		"%s{position:absolute;left:0;top:0;width:%dpx;padding:%dpx;background:#ffffff;}",
		ContainerSelector, opts.Width, opts.Padding,
	)
	injector := &CSSInjection{}
	return injector.InjectCSS(ctx, page, geometry+"\n"+opts.CSS)
}

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block before </head>, after <body>, or at the
// start of the content, whichever is found first.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes "</" so the CSS cannot close its <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// HighlightCSS returns the class-based stylesheet for a chroma style.
// Unknown style names fall back to chroma's default style.
func HighlightCSS(styleName string) (string, error) {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return writeChromaCSS(style)
}

func writeChromaCSS(style *chroma.Style) (string, error) {
	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, style); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}
