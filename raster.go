package md2doc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
)

// Page is a standalone HTML document to be laid out offscreen.
type Page struct {
	HTML     string
	Width    int     // viewport width in CSS pixels
	Scale    float64 // device scale factor
	Selector string  // container to rasterize
}

// Stage mounts pages into offscreen containers.
// Implementations must be safe for concurrent Mount calls; each mount gets
// its own container.
type Stage interface {
	Mount(ctx context.Context, page Page) (Container, error)
	Close() error
}

// Container is a mounted offscreen element.
type Container interface {
	Rasterize(ctx context.Context) (image.Image, error)
	Remove() error
}

// rasterize mounts page, captures its container and removes the container
// on every path, success or failure.
func rasterize(ctx context.Context, stage Stage, page Page) (img image.Image, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cont, err := stage.Mount(ctx, page)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := cont.Remove(); rerr != nil && err == nil {
			img = nil
			err = fmt.Errorf("%w: %v", ErrContainerRemove, rerr)
		}
	}()

	return cont.Rasterize(ctx)
}

// decodeScreenshot decodes the PNG bytes returned by Chrome.
func decodeScreenshot(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding screenshot: %v", ErrRasterize, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty screenshot", ErrRasterize)
	}
	return img, nil
}
