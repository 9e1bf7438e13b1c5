package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/fileutil"
)

// maxStdinSize bounds Markdown read from standard input.
const maxStdinSize = 32 << 20

// runConvert orchestrates the conversion process. It returns the backend in
// use so errors can carry a matching hint.
func runConvert(ctx context.Context, args []string, env *Environment) (string, error) {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return config.BackendRod, err
	}

	// Validate worker count early
	if err := validateWorkers(flags.workers); err != nil {
		return config.BackendRod, err
	}

	formats, err := parseFormats(flags.formats)
	if err != nil {
		return config.BackendRod, err
	}

	cfg, envCfg, err := loadConfig(flags.common.config, env)
	if err != nil {
		return config.BackendRod, err
	}

	// Merge CLI flags into config (CLI wins)
	mergeConvertFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return cfg.Render.Backend, err
	}

	logger, closeLog := newLogger(cfg.Log, flags.common, env)
	defer func() { _ = closeLog() }()

	files, err := resolveInputs(positional, flags.name, cfg.Output.Dir, env)
	if err != nil {
		return cfg.Render.Backend, err
	}

	workers := flags.workers
	if workers == 0 {
		workers = envCfg.Workers
	}
	if err := validateWorkers(workers); err != nil {
		return cfg.Render.Backend, err
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	}))

	jobs := buildJobs(files, formats)
	poolSize := min(md2doc.ResolvePoolSize(workers), len(jobs))
	logger.Debug().Int("pool", poolSize).Int("jobs", len(jobs)).Str("backend", cfg.Render.Backend).Msg("starting conversion")

	pool := env.NewPool(poolSize, converterOptions(cfg, logger)...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing converter pool")
		}
	}()

	start := env.Now()
	results := convertBatch(ctx, pool, jobs)
	summary, firstErr := printResults(results, flags.common, env)
	logger.Debug().Dur("elapsed", env.Now().Sub(start)).Msg("conversion finished")

	if summary.Failed > 0 {
		if summary.Failed == 1 && len(results) == 1 {
			return cfg.Render.Backend, firstErr
		}
		return cfg.Render.Backend, fmt.Errorf("%d of %d conversion(s) failed: %w", summary.Failed, len(results), firstErr)
	}
	return cfg.Render.Backend, nil
}

// parseFormats parses a comma-separated format list, dropping duplicates.
func parseFormats(list string) ([]md2doc.Format, error) {
	var formats []md2doc.Format
	seen := make(map[md2doc.Format]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := md2doc.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, &md2doc.UnsupportedFormatError{Format: list}
	}
	return formats, nil
}

// mergeConvertFlags applies explicitly set flags over the config.
// A --style value that looks like a path selects the asset directory,
// otherwise it names the highlight style.
func mergeConvertFlags(flags *convertFlags, cfg *config.Config) {
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.backend != "" {
		cfg.Render.Backend = flags.backend
	}
	if flags.timeout != "" {
		cfg.Render.Timeout = flags.timeout
	}
	if flags.style != "" {
		if fileutil.IsFilePath(flags.style) {
			cfg.Assets.BasePath = flags.style
		} else {
			cfg.Render.Style = flags.style
		}
	}
}

// resolveInputs turns the positional argument into sources. "-" reads
// standard input, named after --name or the default document name.
func resolveInputs(positional []string, name, outputDir string, env *Environment) ([]FileToConvert, error) {
	switch {
	case len(positional) == 0:
		return nil, ErrNoInput
	case len(positional) > 1:
		return nil, fmt.Errorf("%w: expected one input, got %d", ErrUsage, len(positional))
	}

	input := positional[0]
	if input != stdinArg {
		files, err := discoverFiles(input, outputDir, name)
		if err != nil {
			return nil, fmt.Errorf("discovering files: %w", err)
		}
		return files, nil
	}

	content, err := readStdin(env.Stdin)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = md2doc.DefaultFilename
	}
	if outputDir == "" {
		outputDir = "."
	}
	return []FileToConvert{{InputPath: stdinLabel, Name: name, OutputDir: outputDir, Content: content}}, nil
}

// readStdin reads all of r, failing rather than truncating past maxStdinSize.
func readStdin(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: stdin: %w", ErrReadMarkdown, err)
	}
	if len(data) > maxStdinSize {
		return nil, fmt.Errorf("%w: stdin exceeds %d bytes", ErrReadMarkdown, maxStdinSize)
	}
	return data, nil
}

// converterOptions maps the validated config onto converter options.
func converterOptions(cfg *config.Config, logger zerolog.Logger) []md2doc.Option {
	timeout := cfg.Render.TimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return []md2doc.Option{
		md2doc.WithTimeout(timeout),
		md2doc.WithGeometry(cfg.Render.Width, cfg.Render.Padding, cfg.Render.Scale),
		md2doc.WithPageHeight(cfg.PDF.PageHeightMM),
		md2doc.WithHighlightStyle(cfg.Render.Style),
		md2doc.WithAssetPath(cfg.Assets.BasePath),
		md2doc.WithFilename(cfg.Output.Name),
		md2doc.WithBackend(cfg.Render.Backend),
		md2doc.WithBrowser(cfg.Render.BrowserBin, cfg.Render.NoSandbox),
		md2doc.WithLogger(logger),
	}
}
