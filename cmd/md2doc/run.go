package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/logging"
)

// Commands.
const (
	cmdConvert = "convert"
	cmdPreview = "preview"
	cmdServe   = "serve"
	cmdConfig  = "config"
	cmdVersion = "version"
	cmdHelp    = "help"
)

// ErrUsage marks malformed command lines.
var ErrUsage = errors.New("invalid usage")

// run dispatches args[1] and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	backend := config.BackendRod

	var err error
	switch cmd {
	case cmdConvert:
		backend, err = runConvert(ctx, rest, env)
	case cmdPreview:
		err = runPreview(ctx, rest, env)
	case cmdServe:
		err = runServe(ctx, rest, env)
	case cmdConfig:
		err = runConfig(rest, env)
	case cmdVersion, "--version":
		fmt.Fprintf(env.Stdout, "md2doc %s\n", Version)
		return ExitSuccess
	case cmdHelp, "-h", "--help":
		return runHelp(rest, env)
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v%s\n", err, hintFor(err, backend))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// newLogger builds the command logger from the log config, raised to debug
// by --verbose and lowered to errors by --quiet.
func newLogger(cfg config.LogConfig, flags commonFlags, env *Environment) (zerolog.Logger, func() error) {
	level := cfg.Level
	switch {
	case flags.verbose:
		level = zerolog.LevelDebugValue
	case flags.quiet:
		level = zerolog.LevelErrorValue
	}

	return logging.New(env.Stderr, logging.Options{
		Level:      level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}
