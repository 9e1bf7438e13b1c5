package md2doc

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-md2doc/internal/fileutil"
	"github.com/alnah/go-md2doc/internal/hints"
	"github.com/alnah/go-md2doc/internal/process"
)

// initialViewportHeight is the viewport height before the capture clip
// extends past it.
const initialViewportHeight = 600

// rodStage renders pages in headless Chrome driven by go-rod.
// Rod downloads Chromium on first run when no binary is configured.
type rodStage struct {
	mu        sync.Mutex
	browser   *rod.Browser
	launcher  *launcher.Launcher
	bin       string
	noSandbox bool
	timeout   time.Duration
}

func newRodStage(bin string, noSandbox bool, timeout time.Duration) *rodStage {
	return &rodStage{bin: bin, noSandbox: noSandbox, timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (s *rodStage) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	l := launcher.New().Headless(true)

	bin := s.bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	if s.noSandbox || hints.NeedsNoSandbox() {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	s.browser = browser
	s.launcher = l
	return browser, nil
}

// Mount writes the page to a temp file and opens it in a new tab sized to
// the container width.
func (s *rodStage) Mount(ctx context.Context, pg Page) (Container, error) {
	browser, err := s.ensureBrowser()
	if err != nil {
		return nil, err
	}

	path, cleanup, err := fileutil.WriteTempFile(pg.HTML, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	c := &rodContainer{page: page, selector: pg.Selector, cleanup: cleanup}

	page = page.Context(ctx)
	if s.timeout > 0 {
		page = page.Timeout(s.timeout)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             pg.Width,
		Height:            initialViewportHeight,
		DeviceScaleFactor: pg.Scale,
	})
	if err == nil {
		err = page.Navigate("file://" + path)
	}
	if err == nil {
		err = page.WaitLoad()
	}
	if err != nil {
		_ = c.Remove()
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	return c, nil
}

// Close releases the browser and kills any Chrome helper left running.
func (s *rodStage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}

	err := s.browser.Close()
	pid := s.launcher.PID()
	s.launcher.Kill()
	process.KillProcessGroup(pid)

	s.browser = nil
	s.launcher = nil
	return err
}

type rodContainer struct {
	page     *rod.Page
	selector string
	cleanup  func()
	once     sync.Once
}

// Rasterize captures the container box, including the part below the viewport.
func (c *rodContainer) Rasterize(ctx context.Context) (image.Image, error) {
	page := c.page.Context(ctx)

	el, err := page.Element(c.selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	box := shape.Box()
	if box == nil {
		return nil, fmt.Errorf("%w: container has no layout box", ErrRasterize)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  box.Width,
			Height: box.Height,
			Scale:  1,
		},
		CaptureBeyondViewport: true,
		FromSurface:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}

	return decodeScreenshot(data)
}

// Remove closes the tab and deletes the temp file. Safe to call twice.
func (c *rodContainer) Remove() error {
	var err error
	c.once.Do(func() {
		err = c.page.Close()
		c.cleanup()
	})
	return err
}

// Compile-time interface checks.
var (
	_ Stage     = (*rodStage)(nil)
	_ Container = (*rodContainer)(nil)
)
