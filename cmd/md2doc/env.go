package main

import (
	"context"
	"io"
	"os"
	"time"

	md2doc "github.com/alnah/go-md2doc"
	"github.com/alnah/go-md2doc/internal/server"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and the heavy collaborators
// (converter pool, HTTP server loop) that tests replace with fakes.
type Environment struct {
	Now     func() time.Time
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// NewPool builds the converter pool for a batch.
	NewPool func(size int, opts ...md2doc.Option) Pool
	// Serve runs the HTTP server until ctx is done.
	Serve func(ctx context.Context, s *server.Server) error
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		NewPool: newConverterPool,
		Serve: func(ctx context.Context, s *server.Server) error {
			return s.Serve(ctx)
		},
	}
}
