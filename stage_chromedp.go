package md2doc

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/alnah/go-md2doc/internal/hints"
)

// readyScript reports true once the document and all its images are loaded.
const readyScript = `document.readyState === "complete" && Array.from(document.images).every(i => i.complete)`

// chromedpStage renders pages in Chrome driven by chromedp. Each mount
// opens its own tab and injects the page with SetDocumentContent, so no
// temp file is written.
type chromedpStage struct {
	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	tmpDir        string
	bin           string
	noSandbox     bool
	timeout       time.Duration
}

func newChromedpStage(bin string, noSandbox bool, timeout time.Duration) *chromedpStage {
	return &chromedpStage{bin: bin, noSandbox: noSandbox, timeout: timeout}
}

// ensureBrowser lazily starts Chrome with software rendering flags.
func (s *chromedpStage) ensureBrowser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	tmpDir, err := os.MkdirTemp("", "md2doc-chrome-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if s.bin != "" {
		opts = append(opts, chromedp.ExecPath(s.bin))
	}
	if s.noSandbox || hints.NeedsNoSandbox() {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.allocCancel = allocCancel
	s.tmpDir = tmpDir
	return browserCtx, nil
}

// Mount opens a tab, sizes it to the container and injects the page.
func (s *chromedpStage) Mount(ctx context.Context, pg Page) (Container, error) {
	browserCtx, err := s.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	// Tie the tab to the caller's context without making it a child of it.
	stop := context.AfterFunc(ctx, tabCancel)
	c := &chromedpContainer{ctx: tabCtx, cancel: tabCancel, stop: stop, selector: pg.Selector}

	// The first Run allocates the tab and must use the tab context itself;
	// cancelling a derived context there would close the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = c.Remove()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	runCtx := tabCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(tabCtx, s.timeout)
		defer cancel()
	}

	var ready bool
	err = chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(pg.Width), initialViewportHeight, chromedp.EmulateScale(pg.Scale)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, pg.HTML).Do(ctx)
		}),
		chromedp.WaitReady(pg.Selector, chromedp.ByQuery),
		chromedp.Poll(readyScript, &ready),
	)
	if err != nil {
		_ = c.Remove()
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	return c, nil
}

// Close shuts the browser down and removes its profile directory.
func (s *chromedpStage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx == nil {
		return nil
	}

	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	if rmErr := os.RemoveAll(s.tmpDir); rmErr != nil && err == nil {
		err = rmErr
	}

	s.browserCtx = nil
	return err
}

type chromedpContainer struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stop     func() bool
	selector string
	once     sync.Once
}

// Rasterize captures the container element at the tab's device scale.
func (c *chromedpContainer) Rasterize(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf []byte
	if err := chromedp.Run(c.ctx, chromedp.Screenshot(c.selector, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	return decodeScreenshot(buf)
}

// Remove closes the tab. Safe to call twice.
func (c *chromedpContainer) Remove() error {
	c.once.Do(func() {
		c.stop()
		c.cancel()
	})
	return nil
}

// Compile-time interface checks.
var (
	_ Stage     = (*chromedpStage)(nil)
	_ Container = (*chromedpContainer)(nil)
)
