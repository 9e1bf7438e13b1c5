// Package web holds the embedded static site served by "md2doc serve" and
// the minification step applied to it at startup.
package web

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// ErrNotFound is returned by Lookup for paths outside the site.
var ErrNotFound = errors.New("asset not found")

//go:embed site
var siteFS embed.FS

// IndexPath is the page served for "/" and as the offline fallback.
const IndexPath = "/index.html"

// PrecachePaths lists the assets stored at install time. Entries missing
// from the site are logged and skipped.
var PrecachePaths = []string{
	"/",
	"/index.html",
	"/help.html",
	"/about.html",
	"/manifest.json",
	"/favicon.svg",
	"/screenshot.svg",
	"/screenshot.png",
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
}

// Asset is one file of the site, already minified.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
}

// Site is an immutable set of assets keyed by URL path.
type Site struct {
	assets map[string]Asset
}

// FS returns the embedded site rooted at its top directory.
func FS() fs.FS {
	sub, err := fs.Sub(siteFS, "site")
	if err != nil {
		panic(err) // embedded directory always exists
	}
	return sub
}

// NewMinifier returns a minifier for every media type the site ships.
// Document tags and end tags are kept so middleware can still find </head>.
func NewMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]json$`), json.Minify)
	return m
}

// Build reads every file in fsys and minifies it with m. A file that fails
// to minify is kept as-is. A nil m disables minification.
func Build(fsys fs.FS, m *minify.M, logger zerolog.Logger) (*Site, error) {
	site := &Site{assets: make(map[string]Asset)}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}

		urlPath := "/" + name
		ct := contentType(name)
		if m != nil {
			if out, err := m.Bytes(mediaType(ct), body); err == nil {
				body = out
			} else if !errors.Is(err, minify.ErrNotExist) {
				logger.Warn().Err(err).Str("path", urlPath).Msg("minify failed, serving original")
			}
		}

		site.assets[urlPath] = Asset{Path: urlPath, ContentType: ct, Body: body}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building site: %w", err)
	}

	logger.Debug().Int("assets", len(site.assets)).Msg("site built")
	return site, nil
}

// Lookup returns the asset for a URL path. "/" resolves to the index page.
func (s *Site) Lookup(urlPath string) (Asset, error) {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		clean = IndexPath
	}
	a, ok := s.assets[clean]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	}
	return a, nil
}

// Paths returns the asset paths in sorted order.
func (s *Site) Paths() []string {
	paths := make([]string, 0, len(s.assets))
	for p := range s.assets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func contentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}
