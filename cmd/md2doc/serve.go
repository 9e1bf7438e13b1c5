package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/server"
	"github.com/alnah/go-md2doc/internal/web"
)

// runServe serves the embedded site until ctx is cancelled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: serve takes no arguments, got %q", ErrUsage, positional[0])
	}

	cfg, _, err := loadConfig(flags.common.config, env)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog := newLogger(cfg.Log, flags.common, env)
	defer func() { _ = closeLog() }()

	site, err := web.Build(web.FS(), web.NewMinifier(), logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.Server, site, logger)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	return env.Serve(ctx, srv)
}

// runConfig prints the effective configuration as YAML.
func runConfig(args []string, env *Environment) error {
	flags, positional, err := parseConfigFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: config takes no arguments, got %q", ErrUsage, positional[0])
	}

	cfg, _, err := loadConfig(flags.config, env)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
