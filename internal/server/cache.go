package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/web"
)

const (
	keyPrefix   = "md2doc:cache:"
	indexKey    = "md2doc:caches"
	cacheHeader = "X-Cache"
)

// Entry is a cached response.
type Entry struct {
	ContentType string
	Body        []byte
}

// Cache keeps responses in two named caches over a fiber.Storage: a static
// cache filled at install time and a dynamic cache filled as requests
// succeed. Names carry a version so a new release can drop stale caches.
type Cache struct {
	store   fiber.Storage
	static  string
	dynamic string
	logger  zerolog.Logger

	mu sync.Mutex // guards the name and key indexes
}

// NewCache returns a cache named after the configured versions,
// e.g. "static-v1" and "dynamic-v1".
func NewCache(store fiber.Storage, cfg config.CacheConfig, logger zerolog.Logger) *Cache {
	return &Cache{
		store:   store,
		static:  "static-" + cfg.StaticVersion,
		dynamic: "dynamic-" + cfg.DynamicVersion,
		logger:  logger,
	}
}

// Names returns the static and dynamic cache names.
func (c *Cache) Names() (static, dynamic string) {
	return c.static, c.dynamic
}

// Install stores every path of site in the static cache. Paths missing
// from the site or failing to store are logged and skipped; the returned
// count is the number of entries stored.
func (c *Cache) Install(ctx context.Context, site *web.Site, paths []string) (int, error) {
	stored := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		asset, err := site.Lookup(p)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", p).Msg("precache skipped")
			continue
		}
		if err := c.Put(c.static, p, Entry{ContentType: asset.ContentType, Body: asset.Body}); err != nil {
			c.logger.Error().Err(err).Str("path", p).Msg("precache failed")
			continue
		}
		stored++
	}

	c.logger.Info().Str("cache", c.static).Int("stored", stored).Int("requested", len(paths)).Msg("static cache installed")
	return stored, nil
}

// Activate deletes every cache other than the current static and dynamic
// ones.
func (c *Cache) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.readList(indexKey)
	if err != nil {
		return err
	}

	var keep []string
	var errs []error
	for _, name := range names {
		if name == c.static || name == c.dynamic {
			keep = append(keep, name)
			continue
		}
		if err := c.dropCache(name); err != nil {
			errs = append(errs, err)
			keep = append(keep, name)
			continue
		}
		c.logger.Info().Str("cache", name).Msg("deleted old cache")
	}

	if err := c.writeList(indexKey, keep); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Put stores e under path in the named cache.
func (c *Cache) Put(name, path string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(entryKey(name, path), encodeEntry(e), 0); err != nil {
		return fmt.Errorf("storing %s in %s: %w", path, name, err)
	}
	if err := c.appendList(keysKey(name), path); err != nil {
		return err
	}
	return c.appendList(indexKey, name)
}

// Match looks path up in the static cache, then the dynamic one.
func (c *Cache) Match(path string) (Entry, bool) {
	for _, name := range []string{c.static, c.dynamic} {
		raw, err := c.store.Get(entryKey(name, path))
		if err != nil {
			c.logger.Warn().Err(err).Str("cache", name).Str("path", path).Msg("cache read failed")
			continue
		}
		if raw == nil {
			continue
		}
		if e, ok := decodeEntry(raw); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Middleware serves GET and HEAD requests from the cache. On a miss the
// next handler runs and a 200 GET response is stored in the dynamic cache.
// When the next handler fails and the client accepts HTML, the cached
// index page is served instead.
func (c *Cache) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		method := ctx.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			return ctx.Next()
		}

		path := ctx.Path()
		if e, ok := c.Match(path); ok {
			return sendEntry(ctx, e, "HIT")
		}

		err := ctx.Next()
		if failed(ctx, err) {
			if strings.Contains(ctx.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
				if e, ok := c.Match(web.IndexPath); ok {
					c.logger.Warn().Err(err).Str("path", path).Msg("serving offline fallback")
					ctx.Status(fiber.StatusOK)
					return sendEntry(ctx, e, "FALLBACK")
				}
			}
			return err
		}
		if err != nil {
			return err
		}

		ctx.Set(cacheHeader, "MISS")
		resp := ctx.Response()
		if method == fiber.MethodGet && resp.StatusCode() == fiber.StatusOK {
			e := Entry{
				ContentType: string(resp.Header.ContentType()),
				Body:        bytes.Clone(resp.Body()),
			}
			if err := c.Put(c.dynamic, path, e); err != nil {
				c.logger.Warn().Err(err).Str("path", path).Msg("dynamic cache store failed")
			}
		}
		return nil
	}
}

// failed reports whether the downstream handler could not produce a
// response: any error other than a client error, or a 5xx status.
func failed(ctx *fiber.Ctx, err error) bool {
	if err != nil {
		var fe *fiber.Error
		return !errors.As(err, &fe) || fe.Code >= fiber.StatusInternalServerError
	}
	return ctx.Response().StatusCode() >= fiber.StatusInternalServerError
}

func sendEntry(ctx *fiber.Ctx, e Entry, state string) error {
	ctx.Set(cacheHeader, state)
	ctx.Set(fiber.HeaderContentType, e.ContentType)
	return ctx.Send(e.Body)
}

func (c *Cache) dropCache(name string) error {
	paths, err := c.readList(keysKey(name))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := c.store.Delete(entryKey(name, p)); err != nil {
			return fmt.Errorf("deleting %s from %s: %w", p, name, err)
		}
	}
	if err := c.store.Delete(keysKey(name)); err != nil {
		return fmt.Errorf("deleting index of %s: %w", name, err)
	}
	return nil
}

// appendList adds v to the newline-separated list at key if absent.
// Callers hold c.mu.
func (c *Cache) appendList(key, v string) error {
	list, err := c.readList(key)
	if err != nil {
		return err
	}
	if slices.Contains(list, v) {
		return nil
	}
	return c.writeList(key, append(list, v))
}

func (c *Cache) readList(key string) ([]string, error) {
	raw, err := c.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return strings.Split(string(raw), "\n"), nil
}

func (c *Cache) writeList(key string, list []string) error {
	if len(list) == 0 {
		if err := c.store.Delete(key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		return nil
	}
	if err := c.store.Set(key, []byte(strings.Join(list, "\n")), 0); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func keysKey(name string) string {
	return keyPrefix + name + ":keys"
}

func entryKey(name, path string) string {
	return keyPrefix + name + ":entry:" + path
}

// encodeEntry stores the content type on the first line, body after.
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 0, len(e.ContentType)+1+len(e.Body))
	buf = append(buf, e.ContentType...)
	buf = append(buf, '\n')
	return append(buf, e.Body...)
}

func decodeEntry(raw []byte) (Entry, bool) {
	ct, body, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok {
		return Entry{}, false
	}
	return Entry{ContentType: string(ct), Body: bytes.Clone(body)}, true
}
