// Package server implements the HTTP server, middleware, and request handlers for the application.
package server

import (
	"net/http"

	"github.com/cespare/xxhash/v2"

	"github.com/vberezko/azimut/internal/config"
	"github.com/vberezko/azimut/internal/geoip"
	"github.com/vberezko/azimut/internal/icon"
	"github.com/vberezko/azimut/internal/storage"
)

// New creates a new Server instance wired to the storage, prober, icon
// store and GeoIP provider.
func New(store *storage.Repository, prober Prober, icons *icon.Store, geo *geoip.Provider, cfg *config.Config) *Server {
	hostSet := make(map[uint64]struct{})
	for _, host := range cfg.Server.AllowedHosts {
		hash := xxhash.Sum64String(host)
		hostSet[hash] = struct{}{}
	}

	return &Server{
		storage:        store,
		prober:         prober,
		icons:          icons,
		geoip:          geo,
		a2sOptions:     cfg.A2S,
		authToken:      cfg.Server.AuthToken,
		allowedHosts:   hostSet,
		trustProxy:     cfg.Server.TrustProxy,
		noIcons:        cfg.Probe.NoIcons,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,

		queue:    make(chan recordJob, 256),
		shutdown: make(chan struct{}),
	}
}

// StartWorkers initializes the background worker pool that persists
// completed probe snapshots.
func (s *Server) StartWorkers() {
	workers := 4
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// StopWorkers gracefully stops the background workers and closes the job queue.
func (s *Server) StopWorkers() {
	close(s.shutdown)
	close(s.queue)
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/status", s.RateLimitMiddleware(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /api/servers", http.HandlerFunc(s.handleServers))
	mux.Handle("GET /api/history", http.HandlerFunc(s.handleHistory))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	// Admin surface only exists when a token is configured
	if s.authToken != "" {
		mux.Handle("GET /api/a2s", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGameQuery)))
		mux.Handle("DELETE /api/cache", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleCacheClear)))
		mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))
	}

	if s.icons != nil {
		mux.Handle("GET /icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(s.icons.Dir()))))
	}

	return s.LoggingMiddleware(mux)
}
