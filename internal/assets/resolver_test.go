package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAssetResolver(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses embedded only", func(t *testing.T) {
		t.Parallel()

		resolver, err := NewAssetResolver("")
		if err != nil {
			t.Fatalf("NewAssetResolver(\"\") error = %v", err)
		}
		if resolver.HasCustomLoader() {
			t.Error("expected no custom loader for empty path")
		}
	})

	t.Run("valid custom path", func(t *testing.T) {
		t.Parallel()

		resolver, err := NewAssetResolver(t.TempDir())
		if err != nil {
			t.Fatalf("NewAssetResolver() error = %v", err)
		}
		if !resolver.HasCustomLoader() {
			t.Error("expected custom loader for valid path")
		}
	})

	t.Run("invalid custom path returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewAssetResolver("/nonexistent/path/abc123xyz")
		if !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("NewAssetResolver() error = %v, want ErrInvalidBasePath", err)
		}
	})
}

func TestAssetResolver_LoadStyle(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeStyle(t, base, "pdf", "/* custom */")

	resolver, err := NewAssetResolver(base)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("custom overrides embedded", func(t *testing.T) {
		t.Parallel()

		got, err := resolver.LoadStyle("pdf")
		if err != nil {
			t.Fatal(err)
		}
		if got != "/* custom */" {
			t.Errorf("LoadStyle(pdf) = %q, want custom content", got)
		}
	})

	t.Run("falls back to embedded", func(t *testing.T) {
		t.Parallel()

		got, err := resolver.LoadStyle("png")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "#md-document") {
			t.Error("expected embedded png style")
		}
	})

	t.Run("validation errors do not fall back", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.LoadStyle("../pdf")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("error = %v, want ErrInvalidAssetName", err)
		}
	})

	t.Run("unknown everywhere", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.LoadStyle("nope")
		if !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})
}
