package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/web"
)

func testSite(t *testing.T) *web.Site {
	t.Helper()

	site, err := web.Build(fstest.MapFS{
		"index.html":    {Data: []byte("<html><head><title>home</title></head><body>home</body></html>")},
		"help.html":     {Data: []byte("<html><head></head><body>help</body></html>")},
		"manifest.json": {Data: []byte(`{"name":"md2doc"}`)},
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	return site
}

func cacheConfig(version string) config.CacheConfig {
	return config.CacheConfig{Store: config.StoreMemory, StaticVersion: version, DynamicVersion: version}
}

func newMemoryCache(t *testing.T, logger zerolog.Logger) (*Cache, fiber.Storage) {
	t.Helper()

	store := memoryStorage.New()
	t.Cleanup(func() { _ = store.Close() })
	return NewCache(store, cacheConfig("v1"), logger), store
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestCache_Names(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	static, dynamic := c.Names()
	assert.Equal(t, "static-v1", static)
	assert.Equal(t, "dynamic-v1", dynamic)
}

func TestCache_InstallSkipsMissing(t *testing.T) {
	var logs bytes.Buffer
	c, _ := newMemoryCache(t, zerolog.New(&logs))

	stored, err := c.Install(context.Background(), testSite(t), []string{"/", "/help.html", "/screenshot.png"})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Contains(t, logs.String(), "precache skipped")

	e, ok := c.Match("/")
	require.True(t, ok)
	assert.Equal(t, "text/html; charset=utf-8", e.ContentType)
	assert.Contains(t, string(e.Body), "home")

	_, ok = c.Match("/screenshot.png")
	assert.False(t, ok)
}

func TestCache_InstallCancelled(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stored, err := c.Install(ctx, testSite(t), web.PrecachePaths)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stored)
}

func TestCache_ActivateDropsOldVersions(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewStorage(config.CacheConfig{Store: config.StoreRedis, RedisAddr: mr.Addr()}, zerolog.Nop())
	t.Cleanup(func() { _ = store.Close() })

	site := testSite(t)
	old := NewCache(store, cacheConfig("v0"), zerolog.Nop())
	_, err := old.Install(context.Background(), site, []string{"/help.html"})
	require.NoError(t, err)
	require.NoError(t, old.Put("dynamic-v0", "/x", Entry{ContentType: "text/plain", Body: []byte("x")}))

	current := NewCache(store, cacheConfig("v1"), zerolog.Nop())
	_, err = current.Install(context.Background(), site, []string{"/"})
	require.NoError(t, err)
	require.NoError(t, current.Activate())

	assert.False(t, mr.Exists(entryKey("static-v0", "/help.html")), "old static entry should be deleted")
	assert.False(t, mr.Exists(entryKey("dynamic-v0", "/x")), "old dynamic entry should be deleted")
	assert.False(t, mr.Exists(keysKey("static-v0")))
	assert.True(t, mr.Exists(entryKey("static-v1", "/")), "current entry must survive")

	index, err := mr.Get(indexKey)
	require.NoError(t, err)
	assert.Equal(t, "static-v1", index)
}

func TestCache_ActivateEmpty(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())
	assert.NoError(t, c.Activate())
}

func TestCache_DecodeRejectsGarbage(t *testing.T) {
	c, store := newMemoryCache(t, zerolog.Nop())
	require.NoError(t, store.Set(entryKey("static-v1", "/bad"), []byte("no-newline"), 0))

	_, ok := c.Match("/bad")
	assert.False(t, ok)
}

func newCacheApp(c *Cache, handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(zerolog.Nop())})
	app.Use(c.Middleware())
	app.All("/*", handler)
	return app
}

func TestCacheMiddleware_HitAndMiss(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	calls := 0
	app := newCacheApp(c, func(ctx *fiber.Ctx) error {
		calls++
		ctx.Type("json")
		return ctx.SendString(`{"n":1}`)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/data", nil))
	require.NoError(t, err)
	assert.Equal(t, "MISS", resp.Header.Get(cacheHeader))
	assert.Equal(t, `{"n":1}`, body(t, resp))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/data", nil))
	require.NoError(t, err)
	assert.Equal(t, "HIT", resp.Header.Get(cacheHeader))
	assert.Equal(t, `{"n":1}`, body(t, resp))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls, "second request must not reach the handler")
}

func TestCacheMiddleware_StoresOnlyOK(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	app := newCacheApp(c, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusAccepted).SendString("later")
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/job", nil))
	require.NoError(t, err)

	_, ok := c.Match("/job")
	assert.False(t, ok)
}

func TestCacheMiddleware_SkipsOtherMethods(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())
	require.NoError(t, c.Put("static-v1", "/form", Entry{ContentType: "text/plain", Body: []byte("cached")}))

	app := newCacheApp(c, func(ctx *fiber.Ctx) error {
		return ctx.SendString("fresh")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/form", nil))
	require.NoError(t, err)
	assert.Equal(t, "fresh", body(t, resp))
	assert.Empty(t, resp.Header.Get(cacheHeader))
}

func TestCacheMiddleware_HeadNotStored(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	app := newCacheApp(c, func(ctx *fiber.Ctx) error {
		return ctx.SendString("x")
	})

	_, err := app.Test(httptest.NewRequest(http.MethodHead, "/head", nil))
	require.NoError(t, err)

	_, ok := c.Match("/head")
	assert.False(t, ok)
}

func TestCacheMiddleware_OfflineFallback(t *testing.T) {
	tests := []struct {
		name       string
		accept     string
		handler    fiber.Handler
		wantStatus int
		wantBody   string
	}{
		{
			name:       "error with html accept",
			accept:     "text/html,application/xhtml+xml",
			handler:    func(*fiber.Ctx) error { return errors.New("upstream down") },
			wantStatus: fiber.StatusOK,
			wantBody:   "home",
		},
		{
			name:   "5xx status with html accept",
			accept: "text/html",
			handler: func(ctx *fiber.Ctx) error {
				return ctx.Status(fiber.StatusBadGateway).SendString("bad gateway")
			},
			wantStatus: fiber.StatusOK,
			wantBody:   "home",
		},
		{
			name:       "error without html accept",
			accept:     "application/json",
			handler:    func(*fiber.Ctx) error { return errors.New("upstream down") },
			wantStatus: fiber.StatusInternalServerError,
			wantBody:   "Internal Server Error",
		},
		{
			name:   "client error is not a failure",
			accept: "text/html",
			handler: func(*fiber.Ctx) error {
				return fiber.NewError(fiber.StatusNotFound, "Not Found")
			},
			wantStatus: fiber.StatusNotFound,
			wantBody:   "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newMemoryCache(t, zerolog.Nop())
			_, err := c.Install(context.Background(), testSite(t), []string{web.IndexPath})
			require.NoError(t, err)

			app := newCacheApp(c, tt.handler)
			req := httptest.NewRequest(http.MethodGet, "/page", nil)
			req.Header.Set(fiber.HeaderAccept, tt.accept)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, body(t, resp), tt.wantBody)
		})
	}
}

func TestCacheMiddleware_FallbackWithoutIndex(t *testing.T) {
	c, _ := newMemoryCache(t, zerolog.Nop())

	app := newCacheApp(c, func(*fiber.Ctx) error { return errors.New("down") })
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set(fiber.HeaderAccept, "text/html")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
