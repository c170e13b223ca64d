package server

import (
	"context"
	"sync"
	"time"

	"github.com/vberezko/azimut/internal/config"
	"github.com/vberezko/azimut/internal/geoip"
	"github.com/vberezko/azimut/internal/icon"
	"github.com/vberezko/azimut/internal/probe"
	"github.com/vberezko/azimut/internal/storage"
)

// Prober is the probing surface the API layer depends on.
type Prober interface {
	Probe(ctx context.Context, target string, opts probe.Options) (*probe.Snapshot, error)
	CachedSnapshot(target string) (*probe.Snapshot, bool)
	ClearCache()
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests and background snapshot persistence.
type Server struct {
	// storage provides access to the persistent database layer for server rows and probe history.
	storage *storage.Repository

	// geoip resolves probed hosts to country codes.
	// It can be nil if the GeoIP database is not initialized.
	geoip *geoip.Provider

	// prober runs WebSocket status probes and owns the result cache.
	prober Prober

	// icons persists fetched server icons to disk. Nil disables persistence
	// and the /icons/ route.
	icons *icon.Store

	// allowedHosts is a set of hashed host names (using xxhash) that clients
	// may trigger probes against. An empty set allows any host.
	allowedHosts map[uint64]struct{}

	// queue is a buffered channel used to pass completed snapshots from HTTP
	// handlers to background workers for asynchronous persistence.
	queue chan recordJob

	// shutdown is a signal channel used to broadcast a stop signal to
	// background routines during a graceful shutdown.
	shutdown chan struct{}

	// authToken is the secret token required to access administrative API
	// endpoints. When empty those endpoints are not registered at all.
	authToken string

	// a2sOptions holds configuration settings for the Source Query sibling
	// endpoint (e.g., timeouts, buffer size).
	a2sOptions config.A2S

	// wg is used to wait for all background workers to finish processing
	// before the server shuts down completely.
	wg sync.WaitGroup

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration on probe-triggering endpoints.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// noIcons disables icon fetching for every probe regardless of the
	// per-request options.
	noIcons bool

	// trustProxy indicates whether the server should trust headers like
	// X-Forwarded-For when determining the client's real IP address.
	trustProxy bool
}

// recordJob represents a unit of work for the background workers. It
// bundles one completed snapshot with its normalized target.
type recordJob struct {
	// Snap is the completed snapshot as returned by the prober.
	Snap *probe.Snapshot

	// Target is the normalized probe target the snapshot belongs to.
	Target string

	// IconPath is the public path of the persisted icon, empty when none was saved.
	IconPath string
}
