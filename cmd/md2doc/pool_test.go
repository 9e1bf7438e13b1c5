package main

import (
	"context"
	"errors"
	"testing"

	md2doc "github.com/alnah/go-md2doc"
)

func TestConverterPool(t *testing.T) {
	t.Parallel()

	t.Run("size and closed acquire", func(t *testing.T) {
		t.Parallel()

		pool := newConverterPool(2)
		if pool.Size() != 2 {
			t.Errorf("Size() = %d, want 2", pool.Size())
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := pool.Acquire(context.Background()); !errors.Is(err, md2doc.ErrPoolClosed) {
			t.Errorf("Acquire() after Close error = %v, want ErrPoolClosed", err)
		}
	})

	t.Run("release of foreign converter panics", func(t *testing.T) {
		t.Parallel()

		pool := newConverterPool(1)
		t.Cleanup(func() { _ = pool.Close() })

		defer func() {
			if recover() == nil {
				t.Error("Release() did not panic")
			}
		}()
		pool.Release(&fakeConverter{})
	})
}
