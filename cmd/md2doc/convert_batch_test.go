package main

// Notes:
// - convertBatch: result order, acquire failure, cancellation and lazy
//   file reads. The fake converter writes real files through DirSink.
// - printResults: quiet, verbose and summary lines.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	md2doc "github.com/alnah/go-md2doc"
)

// ---------------------------------------------------------------------------
// TestBuildJobs - File-major crossing
// ---------------------------------------------------------------------------

func TestBuildJobs(t *testing.T) {
	t.Parallel()

	files := []FileToConvert{{InputPath: "a.md"}, {InputPath: "b.md"}}
	formats := []md2doc.Format{md2doc.FormatPDF, md2doc.FormatPNG}

	jobs := buildJobs(files, formats)
	want := []string{"a.md/pdf", "a.md/png", "b.md/pdf", "b.md/png"}
	if len(jobs) != len(want) {
		t.Fatalf("len(jobs) = %d, want %d", len(jobs), len(want))
	}
	for i, j := range jobs {
		if got := j.File.InputPath + "/" + string(j.Format); got != want[i] {
			t.Errorf("jobs[%d] = %s, want %s", i, got, want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestConvertBatch - Concurrent conversion
// ---------------------------------------------------------------------------

func TestConvertBatch(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		if got := convertBatch(context.Background(), &fakePool{conv: &fakeConverter{}}, nil); got != nil {
			t.Errorf("convertBatch(nil) = %v, want nil", got)
		}
	})

	t.Run("writes every job in order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.md"), "alpha")
		writeFile(t, filepath.Join(dir, "b.md"), "beta")
		files, err := discoverFiles(dir, "", "")
		if err != nil {
			t.Fatal(err)
		}

		pool := &fakePool{conv: &fakeConverter{}, size: 3}
		jobs := buildJobs(files, []md2doc.Format{md2doc.FormatPDF, md2doc.FormatWord})
		results := convertBatch(context.Background(), pool, jobs)

		if len(results) != len(jobs) {
			t.Fatalf("len(results) = %d, want %d", len(results), len(jobs))
		}
		for i, r := range results {
			if r.Err != nil {
				t.Errorf("results[%d].Err = %v", i, r.Err)
				continue
			}
			if r.InputPath != jobs[i].File.InputPath || r.Format != jobs[i].Format {
				t.Errorf("results[%d] = %s/%s, want %s/%s", i, r.InputPath, r.Format, jobs[i].File.InputPath, jobs[i].Format)
			}
			wantPath := filepath.Join(dir, jobs[i].File.Name+"."+jobs[i].Format.Extension())
			if r.OutputPath != wantPath {
				t.Errorf("results[%d].OutputPath = %q, want %q", i, r.OutputPath, wantPath)
			}
		}

		data, err := os.ReadFile(filepath.Join(dir, "b.docx"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "word:beta" {
			t.Errorf("b.docx = %q, want word:beta", data)
		}
		if pool.acquired != pool.released {
			t.Errorf("acquired %d, released %d", pool.acquired, pool.released)
		}
	})

	t.Run("preloaded content", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		jobs := buildJobs([]FileToConvert{{
			InputPath: stdinLabel,
			Name:      md2doc.DefaultFilename,
			OutputDir: dir,
			Content:   []byte("# piped"),
		}}, []md2doc.Format{md2doc.FormatPNG})

		conv := &fakeConverter{}
		results := convertBatch(context.Background(), &fakePool{conv: conv}, jobs)
		if results[0].Err != nil {
			t.Fatalf("Err = %v", results[0].Err)
		}
		if got := filepath.Base(results[0].OutputPath); got != "markdown-document.png" {
			t.Errorf("output = %s, want markdown-document.png", got)
		}
		if conv.requests[0].BaseDir != "" {
			t.Errorf("BaseDir = %q, want empty for stdin", conv.requests[0].BaseDir)
		}
	})

	t.Run("acquire failure fails every job", func(t *testing.T) {
		t.Parallel()

		acquireErr := errors.New("no browser")
		pool := &fakePool{conv: &fakeConverter{}, size: 2, acquireErr: acquireErr}
		jobs := buildJobs([]FileToConvert{{InputPath: "a.md"}, {InputPath: "b.md"}, {InputPath: "c.md"}},
			[]md2doc.Format{md2doc.FormatPDF})

		results := convertBatch(context.Background(), pool, jobs)
		for i, r := range results {
			if !errors.Is(r.Err, ErrConverterInit) || !errors.Is(r.Err, acquireErr) {
				t.Errorf("results[%d].Err = %v, want ErrConverterInit wrapping acquire error", i, r.Err)
			}
		}
	})

	t.Run("converter error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.md"), "a")
		files, _ := discoverFiles(dir, "", "")
		pool := &fakePool{conv: &fakeConverter{err: md2doc.ErrPageLoad}}

		results := convertBatch(context.Background(), pool, buildJobs(files, []md2doc.Format{md2doc.FormatPDF}))
		if !errors.Is(results[0].Err, md2doc.ErrPageLoad) {
			t.Errorf("Err = %v, want ErrPageLoad", results[0].Err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Parallel()

		jobs := buildJobs([]FileToConvert{{InputPath: filepath.Join(t.TempDir(), "gone.md")}},
			[]md2doc.Format{md2doc.FormatPDF})
		results := convertBatch(context.Background(), &fakePool{conv: &fakeConverter{}}, jobs)
		if !errors.Is(results[0].Err, ErrReadMarkdown) {
			t.Errorf("Err = %v, want ErrReadMarkdown", results[0].Err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		jobs := buildJobs([]FileToConvert{{InputPath: "a.md"}}, []md2doc.Format{md2doc.FormatPDF})
		results := convertBatch(ctx, &fakePool{conv: &fakeConverter{}}, jobs)
		if !errors.Is(results[0].Err, context.Canceled) {
			t.Errorf("Err = %v, want context.Canceled", results[0].Err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestPrintResults - Result output
// ---------------------------------------------------------------------------

func TestPrintResults(t *testing.T) {
	t.Parallel()

	failure := errors.New("boom")
	results := []ConversionResult{
		{InputPath: "a.md", Format: md2doc.FormatPDF, OutputPath: "a.pdf", Duration: 1500 * time.Microsecond},
		{InputPath: "b.md", Format: md2doc.FormatPNG, Err: failure},
	}

	tests := []struct {
		name       string
		flags      commonFlags
		results    []ConversionResult
		wantStdout []string
		notStdout  []string
	}{
		{
			name:       "default",
			results:    results,
			wantStdout: []string{"Created a.pdf", "1 succeeded, 1 failed"},
		},
		{
			name:       "verbose",
			flags:      commonFlags{verbose: true},
			results:    results,
			wantStdout: []string{"a.md -> a.pdf (2ms)"},
			notStdout:  []string{"Created"},
		},
		{
			name:      "quiet",
			flags:     commonFlags{quiet: true},
			results:   results,
			notStdout: []string{"Created", "succeeded"},
		},
		{
			name:       "single result has no summary",
			results:    results[:1],
			wantStdout: []string{"Created a.pdf"},
			notStdout:  []string{"succeeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t)
			summary, firstErr := printResults(tt.results, tt.flags, te.Environment)

			stdout := te.stdout.String()
			for _, s := range tt.wantStdout {
				if !strings.Contains(stdout, s) {
					t.Errorf("stdout missing %q:\n%s", s, stdout)
				}
			}
			for _, s := range tt.notStdout {
				if strings.Contains(stdout, s) {
					t.Errorf("stdout contains %q:\n%s", s, stdout)
				}
			}

			wantFailed := 0
			for _, r := range tt.results {
				if r.Err != nil {
					wantFailed++
				}
			}
			if summary.Failed != wantFailed || summary.Succeeded != len(tt.results)-wantFailed {
				t.Errorf("summary = %+v", summary)
			}
			if wantFailed > 0 {
				if !errors.Is(firstErr, failure) {
					t.Errorf("firstErr = %v, want %v", firstErr, failure)
				}
				if !strings.Contains(te.stderr.String(), "FAILED b.md (png): boom") {
					t.Errorf("stderr = %q", te.stderr.String())
				}
			} else if firstErr != nil {
				t.Errorf("firstErr = %v, want nil", firstErr)
			}
		})
	}
}
