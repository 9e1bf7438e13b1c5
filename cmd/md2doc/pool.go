package main

import (
	"context"
	"fmt"

	md2doc "github.com/alnah/go-md2doc"
)

// Converter is the part of md2doc.Converter the CLI uses.
type Converter interface {
	Download(ctx context.Context, req md2doc.Request, sink md2doc.Sink) (string, error)
}

// Compile-time interface implementation check.
var _ Converter = (*md2doc.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (Converter, error)
	Release(Converter)
	Size() int
	Close() error
}

// converterPool adapts md2doc.ConverterPool to Pool.
type converterPool struct {
	*md2doc.ConverterPool
}

func newConverterPool(size int, opts ...md2doc.Option) Pool {
	return converterPool{md2doc.NewConverterPool(size, opts...)}
}

func (p converterPool) Acquire(ctx context.Context) (Converter, error) {
	conv, err := p.ConverterPool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Release panics when c did not come from this pool (programmer error).
func (p converterPool) Release(c Converter) {
	conv, ok := c.(*md2doc.Converter)
	if !ok {
		panic(fmt.Sprintf("converterPool.Release: unexpected type %T", c))
	}
	p.ConverterPool.Release(conv)
}

// Compile-time check that converterPool implements Pool.
var _ Pool = converterPool{}
