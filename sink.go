package md2doc

import (
	"context"
	"fmt"
	"os"

	"github.com/alnah/go-md2doc/internal/fileutil"
)

// Sink receives converted documents.
type Sink interface {
	// Save stores data under filename and returns where it went.
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// Output permissions for DirSink.
const (
	dirPerm  os.FileMode = 0o750
	filePerm os.FileMode = 0o644
)

// DirSink saves documents into a directory, creating it if needed.
// Files are written atomically and replace existing ones.
type DirSink struct {
	Dir string
}

// Save writes data to Dir/filename.
func (s DirSink) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	return fileutil.WriteFileAtomic(dir, filename, data, filePerm)
}

// Compile-time interface check.
var _ Sink = DirSink{}
