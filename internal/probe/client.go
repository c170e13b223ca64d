// Package probe implements the WebSocket status prober: a client that
// connects to a game server endpoint, requests its status summary and
// assembles the metadata and icon replies into one normalized snapshot,
// backed by a TTL result cache.
package probe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a whole probe, connect plus response, by default.
const DefaultTimeout = 5 * time.Second

// secureScheme is prefixed onto targets given without a scheme.
const secureScheme = "wss://"

// Options control a single Probe call.
type Options struct {
	// FetchIcon requests the server icon alongside the metadata.
	FetchIcon bool

	// BypassCache skips the cache lookup and always runs a fresh
	// session. The fresh result still replaces the cached one.
	BypassCache bool
}

// DefaultOptions are applied by callers that do not override anything.
var DefaultOptions = Options{FetchIcon: true}

// Client is the entry point for probing targets. Concurrent calls are
// safe; concurrent probes of the same target run independent sessions.
type Client struct {
	cache   *Cache
	dialer  *websocket.Dialer
	timeout time.Duration
}

// New creates a probe client. cache may be nil to disable caching
// entirely; a non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration, cache *Cache) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		cache:   cache,
		timeout: timeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
	}
}

// Probe retrieves a status snapshot for target, serving it from the
// cache when allowed and running a fresh session otherwise. It returns
// either a snapshot or one of the typed probe errors.
func (c *Client) Probe(ctx context.Context, target string, opts Options) (*Snapshot, error) {
	target = Normalize(target)

	if c.cache != nil && !opts.BypassCache {
		if snap, ok := c.cache.Get(target); ok {
			log.Trace().Str("target", target).Msg("Serving probe from cache")
			return snap, nil
		}
	}

	return newSession(target, opts, c.timeout, c.dialer, c.cache).run(ctx)
}

// CachedSnapshot peeks at the cache without probing, using the same
// normalization and TTL rule as Probe.
func (c *Client) CachedSnapshot(target string) (*Snapshot, bool) {
	if c.cache == nil {
		return nil, false
	}

	return c.cache.Get(Normalize(target))
}

// ClearCache drops every cached snapshot.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Normalize derives the canonical probe target from caller input by
// prefixing the secure WebSocket scheme when none is present. The
// result is used verbatim as the dial address and as the cache key.
func Normalize(target string) string {
	if !strings.Contains(target, "://") {
		return secureScheme + target
	}

	return target
}
