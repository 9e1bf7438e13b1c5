// Package pipeline implements the Markdown-to-HTML stages shared by every
// export format:
//   - Markdown preprocessing (line normalization, highlight syntax)
//   - Markdown parsing and HTML rendering via Goldmark
//   - HTML sanitization via bluemonday
//   - Local image inlining for file-based input
//   - Offscreen page assembly with injected CSS
//
// Rasterization and encoding live in the root md2doc package. The pipeline
// only produces the parse tree and the HTML page handed to the browser.
package pipeline
