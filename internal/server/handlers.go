package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2s/pkg/a2s"

	"github.com/vberezko/azimut/internal/game"
	"github.com/vberezko/azimut/internal/models"
	"github.com/vberezko/azimut/internal/probe"
	"github.com/vberezko/azimut/internal/vars"
)

// handleVersion reports the running build.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Ver())
}

// handleServers returns a JSON list of every known server, most recently
// probed first.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	servers, err := s.storage.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if servers == nil {
		servers = []models.Server{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(servers)
}

// handleHistory returns recent probe observations for one target.
// Query params: ?host=play.example.net[&limit=50]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "Missing host", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.storage.GetHistory(probe.Normalize(host), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch history")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []models.ProbeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

// handleGameQuery performs a live A2S query against a game server that
// also exposes a Source Query port. It acts as a proxy for real-time
// status of servers without the WebSocket endpoint.
// Query params: ?ip=1.2.3.4&port=2302
func (s *Server) handleGameQuery(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	portStr := r.URL.Query().Get("port")

	if ip == "" || portStr == "" {
		http.Error(w, "Missing ip or port", http.StatusBadRequest)
		return
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		http.Error(w, "Invalid port", http.StatusBadRequest)
		return
	}

	// Execute A2S_INFO request
	info, err := game.Query(ip, port, s.a2sOptions)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	view := struct {
		Info    *a2s.Info `json:"info"`
		Country string    `json:"country,omitempty"`
	}{Info: info}

	if s.geoip != nil {
		view.Country = s.geoip.GetCountryCode(ip)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// handleCacheClear drops every cached probe result.
func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.prober.ClearCache()
	log.Info().Msg("Probe cache cleared manually")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Cache cleared"})
}

// handleDeleteServer removes a server and its probe history.
// Query params: ?host=play.example.net
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "Missing host", http.StatusBadRequest)
		return
	}

	target := probe.Normalize(host)
	if err := s.storage.DeleteServer(target); err != nil {
		log.Error().Err(err).Str("target", target).Msg("Failed to delete server")
		http.Error(w, "Database Error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("target", target).Msg("Server deleted manually")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Server deleted"})
}
