package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	output  string
	formats string
	name    string
	backend string
	timeout string
	style   string
	workers int
}

// previewFlags holds flags for the preview command.
type previewFlags struct {
	width int
	style string
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	addr   string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing")
}

func newFlagSet(name string, stderr io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parseArgs parses args, marking malformed command lines as ErrUsage.
// flag.ErrHelp is returned unwrapped so run can exit cleanly.
func parseArgs(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	fs := newFlagSet("convert", stderr, printConvertUsage)
	f := &convertFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVarP(&f.formats, "format", "f", "pdf", "comma-separated formats: pdf, word, png")
	fs.StringVar(&f.name, "name", "", "output base name for a single input")
	fs.StringVar(&f.backend, "backend", "", "browser backend: rod, chromedp")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-conversion timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.style, "style", "", "highlight style name, or asset directory path")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	addCommonFlags(fs, &f.common)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parsePreviewFlags parses preview command flags and returns positional args.
func parsePreviewFlags(args []string, stderr io.Writer) (*previewFlags, []string, error) {
	fs := newFlagSet("preview", stderr, printPreviewUsage)
	f := &previewFlags{}

	fs.IntVarP(&f.width, "width", "w", defaultPreviewWidth, "word wrap column (0 = no wrap)")
	fs.StringVar(&f.style, "style", previewStyleAuto, "glamour style: auto, dark, light, notty")

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, []string, error) {
	fs := newFlagSet("serve", stderr, printServeUsage)
	f := &serveFlags{}

	fs.StringVar(&f.addr, "addr", "", "listen address (default from config, :8080)")
	addCommonFlags(fs, &f.common)

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseConfigFlags parses config command flags.
func parseConfigFlags(args []string, stderr io.Writer) (*commonFlags, []string, error) {
	fs := newFlagSet("config", stderr, printConfigUsage)
	f := &commonFlags{}
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")

	if err := parseArgs(fs, args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
