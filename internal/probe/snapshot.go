package probe

import (
	"encoding/json"
	"time"
)

// IconSize is the exact payload length of a server icon frame:
// a 64x64 pixel image, four channels (RGBA), one byte per channel.
const IconSize = 64 * 64 * 4

// DefaultServerName is substituted when the status message carries no name.
const DefaultServerName = "Unknown Server"

// Snapshot is the normalized result of one completed probe.
type Snapshot struct {
	// Name of the server, DefaultServerName when not reported.
	Name string `json:"name"`

	// Brand of the server software, empty when not reported.
	Brand string `json:"brand,omitempty"`

	// Version or protocol identifier reported by the server.
	Version string `json:"version,omitempty"`

	// UUID of the server instance, empty when not reported.
	UUID string `json:"uuid,omitempty"`

	// MOTD lines in display order, never nil. Lines keep their in-band
	// decoration codes, strip them with the motd package for display.
	MOTD []string `json:"motd"`

	// Players lists the reported player names in order, never nil.
	Players []string `json:"players"`

	// Icon holds exactly IconSize bytes of raw RGBA pixels when the
	// server delivered one and the caller asked for it.
	Icon []byte `json:"icon,omitempty"`

	// Raw is the unmodified metadata message, kept for fields the
	// snapshot does not model.
	Raw json.RawMessage `json:"raw,omitempty"`

	// ServerTime is the server-reported unix millisecond timestamp,
	// falling back to the capture time when the server sent none.
	ServerTime int64 `json:"server_time"`

	// LatencyMs is the wall-clock delta between sending the status
	// request and completing the probe.
	LatencyMs int64 `json:"latency_ms"`

	// Online and Max are the current and maximum player counts.
	Online int `json:"online"`
	Max    int `json:"max"`

	// Cracked is true when the server accepts unauthenticated logins.
	Cracked bool `json:"cracked"`

	// HasIcon reports whether the server declared an icon, independently
	// of whether one was requested or arrived.
	HasIcon bool `json:"has_icon"`
}

// statusMessage mirrors the metadata text frame sent by the server.
type statusMessage struct {
	Name    *string    `json:"name"`
	Brand   string     `json:"brand"`
	Version string     `json:"vers"`
	UUID    string     `json:"uuid"`
	Time    int64      `json:"time"`
	Data    statusData `json:"data"`
	Cracked bool       `json:"cracked"`
}

type statusData struct {
	MOTD    []string     `json:"motd"`
	Players []playerName `json:"players"`
	Online  int          `json:"online"`
	Max     int          `json:"max"`
	Icon    bool         `json:"icon"`
}

// playerName tolerates both bare string entries and objects carrying a
// name field, both shapes exist in the wild.
type playerName string

// UnmarshalJSON implements json.Unmarshaler.
func (p *playerName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = playerName(s)
		return nil
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*p = playerName(obj.Name)

	return nil
}

// decodeSnapshot parses a metadata payload into a Snapshot, applying the
// documented defaults for absent fields. capturedAt backs the server
// timestamp when the message carries none.
func decodeSnapshot(payload []byte, capturedAt time.Time) (*Snapshot, error) {
	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Name:       DefaultServerName,
		Brand:      msg.Brand,
		Version:    msg.Version,
		UUID:       msg.UUID,
		Cracked:    msg.Cracked,
		ServerTime: msg.Time,
		Online:     msg.Data.Online,
		Max:        msg.Data.Max,
		MOTD:       msg.Data.MOTD,
		HasIcon:    msg.Data.Icon,
		Raw:        json.RawMessage(append([]byte(nil), payload...)),
	}

	if msg.Name != nil && *msg.Name != "" {
		snap.Name = *msg.Name
	}
	if snap.ServerTime == 0 {
		snap.ServerTime = capturedAt.UnixMilli()
	}
	if snap.Online < 0 {
		snap.Online = 0
	}
	if snap.Max < 0 {
		snap.Max = 0
	}
	if snap.MOTD == nil {
		snap.MOTD = []string{}
	}

	snap.Players = make([]string, 0, len(msg.Data.Players))
	for _, p := range msg.Data.Players {
		snap.Players = append(snap.Players, string(p))
	}

	return snap, nil
}
