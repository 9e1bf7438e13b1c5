package hints

// Notes:
// - Environment-dependent tests cannot use t.Parallel() because they use
//   t.Setenv() and replace the package-level IsInContainer variable.

import (
	"strings"
	"testing"
)

func clearCI(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "ROD_NO_SANDBOX", "ROD_BROWSER_BIN"} {
		t.Setenv(key, "")
	}
}

func stubContainer(t *testing.T, v bool) {
	t.Helper()
	orig := IsInContainer
	t.Cleanup(func() { IsInContainer = orig })
	IsInContainer = func() bool { return v }
}

// ---------------------------------------------------------------------------
// Browser hints
// ---------------------------------------------------------------------------

func TestForBrowserConnect_Rod(t *testing.T) {
	clearCI(t)
	stubContainer(t, false)
	t.Setenv("CI", "true")

	hint := ForBrowserConnect("rod")

	for _, want := range []string{"hint:", "ROD_NO_SANDBOX", "ROD_BROWSER_BIN", "--backend chromedp"} {
		if !strings.Contains(hint, want) {
			t.Errorf("hint %q missing %q", hint, want)
		}
	}
}

func TestForBrowserConnect_Chromedp(t *testing.T) {
	clearCI(t)
	stubContainer(t, true)

	hint := ForBrowserConnect("chromedp")

	if !strings.Contains(hint, "render.browserBin") {
		t.Errorf("hint %q should mention render.browserBin", hint)
	}
	if strings.Contains(hint, "ROD_BROWSER_BIN") {
		t.Errorf("chromedp hint should not mention ROD_BROWSER_BIN: %q", hint)
	}
	if !strings.Contains(hint, "ROD_NO_SANDBOX") {
		t.Errorf("container hint should suggest disabling the sandbox: %q", hint)
	}
}

func TestNeedsNoSandbox(t *testing.T) {
	clearCI(t)
	stubContainer(t, false)

	if NeedsNoSandbox() {
		t.Error("NeedsNoSandbox() = true outside CI and containers")
	}

	t.Setenv("ROD_NO_SANDBOX", "1")
	if !NeedsNoSandbox() {
		t.Error("NeedsNoSandbox() = false with ROD_NO_SANDBOX=1")
	}
}

// ---------------------------------------------------------------------------
// Static hints
// ---------------------------------------------------------------------------

func TestStaticHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"timeout", ForTimeout(), "--timeout"},
		{"output dir", ForOutputDirectory(), "writable"},
		{"styles", ForStyleNotFound([]string{"pdf", "png"}), "available: pdf, png"},
		{"formats", ForUnsupportedFormat([]string{"pdf", "word", "png"}), "pdf, word, png"},
		{"empty input", ForEmptyInput(), "stdin"},
		{"redis addr", ForCacheStore("localhost:6379"), "localhost:6379"},
		{"redis missing", ForCacheStore(""), "redisAddr"},
		{"config", ForConfigNotFound([]string{"a.yaml", "/home/u/.config/go-md2doc/a.yaml"}), "create /home/u/.config/go-md2doc/a.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !strings.HasPrefix(tt.got, "\n  hint: ") {
				t.Errorf("hint %q should start with the hint prefix", tt.got)
			}
			if !strings.Contains(tt.got, tt.want) {
				t.Errorf("hint %q missing %q", tt.got, tt.want)
			}
		})
	}
}

func TestForStyleNotFound_Empty(t *testing.T) {
	t.Parallel()

	if got := ForStyleNotFound(nil); got != "" {
		t.Errorf("ForStyleNotFound(nil) = %q, want empty", got)
	}
}
