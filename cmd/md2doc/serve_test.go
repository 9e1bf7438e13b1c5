package main

// Notes:
// - runServe is exercised with a fake Serve that warms the cache and sends
//   requests through fiber's App.Test instead of binding a port.
// - runConfig prints YAML that must reflect env overrides.

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/server"
)

// ---------------------------------------------------------------------------
// TestRunServe - Server wiring
// ---------------------------------------------------------------------------

func TestRunServe(t *testing.T) {
	t.Parallel()

	t.Run("serves embedded site", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		var served bool
		te.Serve = func(ctx context.Context, s *server.Server) error {
			served = true
			if err := s.Prepare(ctx); err != nil {
				return err
			}
			resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != 200 {
				t.Errorf("GET / status = %d", resp.StatusCode)
			}
			if got := resp.Header.Get("X-Cache"); got != "HIT" {
				t.Errorf("X-Cache = %q, want HIT after prepare", got)
			}
			if !strings.Contains(strings.ToLower(string(body)), "<html") {
				t.Errorf("body is not the index page: %.80s", body)
			}
			return nil
		}

		code := run(context.Background(), []string{"md2doc", "serve", "-q", "--addr", "127.0.0.1:0"}, te.Environment)
		if code != ExitSuccess {
			t.Fatalf("exit = %d, stderr = %s", code, te.stderr.String())
		}
		if !served {
			t.Error("Serve was not called")
		}
	})

	t.Run("serve error", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Serve = func(context.Context, *server.Server) error { return errors.New("listen failed") }

		code := run(context.Background(), []string{"md2doc", "serve"}, te.Environment)
		if code != ExitGeneral {
			t.Errorf("exit = %d, want %d", code, ExitGeneral)
		}
		if !strings.Contains(te.stderr.String(), "listen failed") {
			t.Errorf("stderr = %q", te.stderr.String())
		}
	})

	t.Run("positional argument", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		if code := run(context.Background(), []string{"md2doc", "serve", "extra"}, te.Environment); code != ExitUsage {
			t.Errorf("exit = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunConfig - Effective configuration output
// ---------------------------------------------------------------------------

func TestRunConfig(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	te.vars["MD2DOC_STYLE"] = "monokai"

	code := run(context.Background(), []string{"md2doc", "config"}, te.Environment)
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", code, te.stderr.String())
	}

	var cfg config.Config
	if err := yaml.Unmarshal(te.stdout.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, te.stdout.String())
	}
	if cfg.Render.Style != "monokai" {
		t.Errorf("render.style = %q, want monokai", cfg.Render.Style)
	}
	if cfg.Server.Addr != config.DefaultConfig().Server.Addr {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
}
