// Package models defines the data structures used for API responses and database persistence.
package models

import "time"

// Server represents the latest known state of one probed target.
type Server struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Target      string    `json:"target"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Version     string    `json:"version"`
	CountryCode string    `json:"country_code"`
	MOTD        string    `json:"motd"`
	IconPath    string    `json:"icon_path,omitempty"`
	Probes      int64     `json:"probes"`
	LatencyMs   int64     `json:"latency_ms"`
	Online      int       `json:"online"`
	MaxPlayers  int       `json:"max_players"`
	Cracked     bool      `json:"cracked"`
}

// ProbeRecord is one historical probe observation for a target.
type ProbeRecord struct {
	ProbedAt   time.Time `json:"probed_at"`
	Target     string    `json:"target"`
	LatencyMs  int64     `json:"latency_ms"`
	Online     int       `json:"online"`
	MaxPlayers int       `json:"max_players"`
}
