package pipeline

import (
	"encoding/base64"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxInlineImageSize caps the size of a local image embedded as a data URI.
const MaxInlineImageSize = 10 << 20

// InlineLocalImages replaces relative <img src> paths with data URIs read
// from baseDir, so the page renders without file access from the browser.
// Remote URLs, absolute paths, paths escaping baseDir, missing files and
// oversized files are left untouched. An empty baseDir is a no-op.
func InlineLocalImages(fragment, baseDir string) (string, error) {
	if baseDir == "" || !strings.Contains(fragment, "<img") {
		return fragment, nil
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for _, n := range nodes {
		inlineImages(n, absBase)
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func inlineImages(n *html.Node, baseDir string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, attr := range n.Attr {
			if attr.Key != "src" {
				continue
			}
			if uri, ok := dataURI(attr.Val, baseDir); ok {
				n.Attr[i].Val = uri
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inlineImages(c, baseDir)
	}
}

// dataURI reads src relative to baseDir and encodes it as a data URI.
func dataURI(src, baseDir string) (string, bool) {
	if !isLocalRelative(src) {
		return "", false
	}

	unescaped, err := url.PathUnescape(src)
	if err != nil {
		return "", false
	}
	path := filepath.Join(baseDir, filepath.FromSlash(unescaped))
	if !isPathUnderDir(path, baseDir) {
		return "", false
	}
	// Symlinks must not lead outside baseDir either.
	path, err = filepath.EvalSymlinks(path)
	if err != nil || !isPathUnderDir(path, baseDir) {
		return "", false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > MaxInlineImageSize {
		return "", false
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", false
	}

	data, err := os.ReadFile(path) // #nosec G304 -- contained in baseDir
	if err != nil {
		return "", false
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// isLocalRelative reports whether src is a relative filesystem path.
func isLocalRelative(src string) bool {
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return false
	}
	if strings.Contains(src, ":") {
		// Any scheme (http:, data:, file:) or a drive letter.
		return false
	}
	return !filepath.IsAbs(src) && !strings.HasPrefix(src, "/")
}

// isPathUnderDir reports whether path stays within dir after cleaning.
func isPathUnderDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
