package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/vberezko/azimut/internal/models"
	"github.com/vberezko/azimut/internal/motd"
	"github.com/vberezko/azimut/internal/probe"
)

// statusView is the API shape of one snapshot. The outer Icon field
// shadows the embedded pixel payload so responses stay small; clients
// fetch the image through IconURL instead.
type statusView struct {
	*probe.Snapshot
	Icon      []byte   `json:"icon,omitempty"`
	MOTDClean []string `json:"motd_clean"`
	IconURL   string   `json:"icon_url,omitempty"`
}

// handleStatus probes a game server over WebSocket and returns its
// status snapshot, served from the result cache when possible.
// Query params: ?host=play.example.net[&icon=0][&fresh=1]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		http.Error(w, "Missing host", http.StatusBadRequest)
		return
	}

	if !s.hostAllowed(host) {
		log.Debug().
			Str("ip", GetRealIP(r, s.trustProxy)).
			Str("host", host).
			Msg("Host not in allowlist")

		http.Error(w, "Host not allowed", http.StatusForbidden)
		return
	}

	opts := probe.DefaultOptions
	if s.noIcons || s.icons == nil || r.URL.Query().Get("icon") == "0" {
		opts.FetchIcon = false
	}
	if r.URL.Query().Get("fresh") == "1" {
		opts.BypassCache = true
	}

	// A fresh session is about to run unless this hits
	_, wasCached := s.prober.CachedSnapshot(host)

	snap, err := s.prober.Probe(r.Context(), host, opts)
	if err != nil {
		s.respondProbeError(w, host, err)
		return
	}

	view := statusView{Snapshot: snap, MOTDClean: motd.StripAll(snap.MOTD)}
	if s.icons != nil && len(snap.Icon) > 0 {
		saved, err := s.icons.Save(snap.Icon, probe.Normalize(host))
		if err != nil {
			log.Warn().Err(err).Str("host", host).Msg("Failed to persist icon")
		} else {
			view.IconURL = "/icons/" + path.Base(saved)
		}
	}

	// Persist only observations that ran a real session
	if opts.BypassCache || !wasCached {
		select {
		case s.queue <- recordJob{Snap: snap, Target: probe.Normalize(host), IconPath: view.IconURL}:
		default:
			log.Warn().Str("host", host).Msg("Queue full, snapshot not persisted")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// respondProbeError maps probe failures onto HTTP: timeouts become 504,
// everything else 502, always with a JSON error body.
func (s *Server) respondProbeError(w http.ResponseWriter, host string, err error) {
	status := http.StatusBadGateway

	var timeoutErr *probe.TimeoutError
	if errors.As(err, &timeoutErr) {
		status = http.StatusGatewayTimeout
	}

	log.Debug().Err(err).Str("host", host).Msg("Probe failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// hostAllowed checks the requested host against the configured allowlist.
// Both the verbatim value and the bare host without scheme or port count.
func (s *Server) hostAllowed(host string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}

	for _, candidate := range []string{host, hostPart(host)} {
		if _, ok := s.allowedHosts[xxhash.Sum64String(candidate)]; ok {
			return true
		}
	}

	return false
}

// hostPart reduces a probe target to its bare host: scheme, path and
// port are stripped.
func hostPart(target string) string {
	if i := strings.Index(target, "://"); i >= 0 {
		target = target[i+3:]
	}
	if i := strings.IndexByte(target, '/'); i >= 0 {
		target = target[:i]
	}
	if host, _, err := net.SplitHostPort(target); err == nil {
		return host
	}

	return target
}

// worker is a background goroutine that persists completed snapshots.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		s.processJob(job)
	}
}

// processJob records one snapshot: resolve the country (GeoIP), upsert
// the server row, and append the probe observation to the history.
func (s *Server) processJob(job recordJob) {
	now := time.Now()

	var country string
	if s.geoip != nil {
		country = s.geoip.CountryForHost(hostPart(job.Target))
	}

	server := models.Server{
		Target:      job.Target,
		Name:        job.Snap.Name,
		Brand:       job.Snap.Brand,
		Version:     job.Snap.Version,
		CountryCode: country,
		MOTD:        strings.Join(motd.StripAll(job.Snap.MOTD), "\n"),
		IconPath:    job.IconPath,
		Cracked:     job.Snap.Cracked,
		Online:      job.Snap.Online,
		MaxPlayers:  job.Snap.Max,
		LatencyMs:   job.Snap.LatencyMs,
		FirstSeen:   now,
		LastSeen:    now,
	}

	if err := s.storage.UpsertServer(server); err != nil {
		log.Error().Err(err).Str("target", job.Target).Msg("Failed to save server to DB")
		return
	}

	record := models.ProbeRecord{
		Target:     job.Target,
		Online:     job.Snap.Online,
		MaxPlayers: job.Snap.Max,
		LatencyMs:  job.Snap.LatencyMs,
		ProbedAt:   now,
	}
	if err := s.storage.InsertProbe(record); err != nil {
		log.Error().Err(err).Str("target", job.Target).Msg("Failed to save probe history")
		return
	}

	log.Debug().
		Str("target", job.Target).
		Str("country", country).
		Msg("Snapshot saved")
}
