package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/alnah/go-md2doc/internal/config"
)

var errNoHead = errors.New("no </head> in response")

var snippetTemplate = template.Must(template.New("analytics").Parse(
	`{{if .GoogleTagID}}<script async src="https://www.googletagmanager.com/gtag/js?id={{.GoogleTagID}}"></script>` +
		`<script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}` +
		`gtag('js',new Date());gtag('config',{{.GoogleTagID}});</script>{{end}}` +
		`{{if .ClarityID}}<script>(function(c,l,a,r,i,t,y){c[a]=c[a]||function(){(c[a].q=c[a].q||[]).push(arguments)};` +
		`t=l.createElement(r);t.async=1;t.src="https://www.clarity.ms/tag/"+i;` +
		`y=l.getElementsByTagName(r)[0];y.parentNode.insertBefore(t,y);})(window,document,"clarity","script",{{.ClarityID}});</script>{{end}}`,
))

// BuildSnippet returns the markup injected into HTML pages. A configured
// snippet wins over tracker ids; disabled analytics yield "".
func BuildSnippet(cfg config.AnalyticsConfig) (string, error) {
	if !cfg.Enabled {
		return "", nil
	}
	if cfg.Snippet != "" {
		return cfg.Snippet, nil
	}
	var buf strings.Builder
	if err := snippetTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("rendering analytics snippet: %w", err)
	}
	return buf.String(), nil
}

// InjectSnippet inserts snippet right before the first </head>, matched
// case-insensitively.
func InjectSnippet(page []byte, snippet string) ([]byte, error) {
	idx := bytes.Index(bytes.ToLower(page), []byte("</head>"))
	if idx < 0 {
		return nil, errNoHead
	}
	out := make([]byte, 0, len(page)+len(snippet))
	out = append(out, page[:idx]...)
	out = append(out, snippet...)
	return append(out, page[idx:]...), nil
}

// Analytics appends snippet to the head of every HTML response. Failures
// never break the response: they are logged and the page goes out as-is.
func Analytics(snippet string, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() == fiber.MethodHead {
			return nil
		}

		ct := string(c.Response().Header.ContentType())
		if !strings.HasPrefix(ct, fiber.MIMETextHTML) {
			return nil
		}

		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Str("path", c.Path()).Msg("analytics injection panicked")
			}
		}()

		if snippet == "" {
			logger.Debug().Str("path", c.Path()).Msg("analytics snippet empty, skipping")
			return nil
		}

		out, err := InjectSnippet(c.Response().Body(), snippet)
		if err != nil {
			logger.Warn().Err(err).Str("path", c.Path()).Msg("analytics injection skipped")
			return nil
		}
		c.Response().SetBody(out)
		return nil
	}
}
