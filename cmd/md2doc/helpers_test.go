package main

// Notes:
// - Shared fakes for the CLI tests. fakeConverter saves through the real
//   sink so output files land in t.TempDir and can be asserted on.
// No coverage gaps: this is test infrastructure, not production code.

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/server"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeConverter writes "<format>:<content>" through the sink.
type fakeConverter struct {
	err error

	mu       sync.Mutex
	requests []md2doc.Request
}

func (c *fakeConverter) Download(ctx context.Context, req md2doc.Request, sink md2doc.Sink) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.err != nil {
		return "", c.err
	}
	filename := req.Name + "." + req.Format.Extension()
	data := []byte(string(req.Format) + ":" + req.Content)
	path, err := sink.Save(ctx, filename, data)
	if err != nil {
		return "", errors.Join(md2doc.ErrSave, err)
	}
	return path, nil
}

// fakePool hands out a single shared fakeConverter.
type fakePool struct {
	conv       *fakeConverter
	size       int
	acquireErr error

	mu       sync.Mutex
	acquired int
	released int
	closed   bool
}

func (p *fakePool) Acquire(ctx context.Context) (Converter, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.acquired++
	p.mu.Unlock()
	return p.conv, nil
}

func (p *fakePool) Release(Converter) {
	p.mu.Lock()
	p.released++
	p.mu.Unlock()
}

func (p *fakePool) Size() int {
	if p.size <= 0 {
		return 1
	}
	return p.size
}

func (p *fakePool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// testEnv bundles an Environment with captured output.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	pool   *fakePool
	vars   map[string]string

	// poolSize records the size requested by the command.
	poolSize int
}

// newTestEnv returns an environment with no MD2DOC_* variables, buffered
// output and a fake converter pool.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		pool:   &fakePool{conv: &fakeConverter{}},
		vars:   map[string]string{},
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	te.Environment = &Environment{
		Now:    func() time.Time { return fixed },
		Stdin:  strings.NewReader(""),
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return te.vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(te.vars))
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewPool: func(size int, _ ...md2doc.Option) Pool {
			te.poolSize = size
			return te.pool
		},
		Serve: func(context.Context, *server.Server) error {
			return errors.New("serve not expected")
		},
	}
	return te
}

// oversizedStdin yields one chunk more than maxStdinSize.
func oversizedStdin() io.Reader {
	return io.MultiReader(bytes.NewReader(make([]byte, maxStdinSize)), strings.NewReader("TAIL"))
}
