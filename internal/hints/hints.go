// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-md2doc/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a common CI environment variable is set.
func InCI() bool {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// NeedsNoSandbox reports whether Chrome must be started without its sandbox.
func NeedsNoSandbox() bool {
	return os.Getenv("ROD_NO_SANDBOX") == "1" || InCI() || IsInContainer()
}

// ForBrowserConnect returns hints for browser launch errors of the given
// backend ("rod" or "chromedp").
func ForBrowserConnect(backend string) string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 or render.noSandbox for Docker/CI")
	}

	switch backend {
	case "chromedp":
		hints = append(hints, "chromedp needs Chrome on PATH; set render.browserBin otherwise")
	default:
		if os.Getenv("ROD_BROWSER_BIN") == "" {
			hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
		}
		hints = append(hints, "or try --backend chromedp")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(slashPath(p), "go-md2doc/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForUnsupportedFormat lists the accepted export formats.
func ForUnsupportedFormat(formats []string) string {
	return format("supported formats: " + strings.Join(formats, ", "))
}

// ForEmptyInput explains how to provide Markdown.
func ForEmptyInput() string {
	return format("pass a .md file, a directory, or pipe Markdown on stdin with -")
}

// ForCacheStore returns hints for cache backend connection errors.
func ForCacheStore(addr string) string {
	if addr == "" {
		return format("set server.cache.redisAddr or use server.cache.store: memory")
	}
	return format("check that redis is reachable at " + addr)
}

// slashPath normalizes Windows separators so searches work on every platform.
func slashPath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
