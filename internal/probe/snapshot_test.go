package probe

import (
	"testing"
	"time"
)

func TestDecodeSnapshotDefaults(t *testing.T) {
	capturedAt := time.UnixMilli(1755000000000)

	snap, err := decodeSnapshot([]byte(`{}`), capturedAt)
	if err != nil {
		t.Fatalf("decodeSnapshot: %v", err)
	}

	if snap.Name != DefaultServerName {
		t.Errorf("Name = %q, want %q", snap.Name, DefaultServerName)
	}
	if snap.ServerTime != capturedAt.UnixMilli() {
		t.Errorf("ServerTime = %d, want capture time %d", snap.ServerTime, capturedAt.UnixMilli())
	}
	if snap.MOTD == nil || len(snap.MOTD) != 0 {
		t.Errorf("MOTD = %#v, want empty slice", snap.MOTD)
	}
	if snap.Players == nil || len(snap.Players) != 0 {
		t.Errorf("Players = %#v, want empty slice", snap.Players)
	}
	if snap.Online != 0 || snap.Max != 0 {
		t.Errorf("counts = %d/%d, want 0/0", snap.Online, snap.Max)
	}
	if snap.HasIcon {
		t.Error("HasIcon = true, want false")
	}
}

func TestDecodeSnapshotClampsNegativeCounts(t *testing.T) {
	snap, err := decodeSnapshot([]byte(`{"data":{"online":-3,"max":-1}}`), time.Now())
	if err != nil {
		t.Fatalf("decodeSnapshot: %v", err)
	}

	if snap.Online != 0 {
		t.Errorf("Online = %d, want 0", snap.Online)
	}
	if snap.Max != 0 {
		t.Errorf("Max = %d, want 0", snap.Max)
	}
}

func TestDecodeSnapshotPlayerShapes(t *testing.T) {
	payload := []byte(`{"data":{"players":["ada",{"name":"grace"},{"name":"linus","afk":true}]}}`)

	snap, err := decodeSnapshot(payload, time.Now())
	if err != nil {
		t.Fatalf("decodeSnapshot: %v", err)
	}

	want := []string{"ada", "grace", "linus"}
	if len(snap.Players) != len(want) {
		t.Fatalf("Players = %#v, want %v", snap.Players, want)
	}
	for i := range want {
		if snap.Players[i] != want[i] {
			t.Errorf("Players[%d] = %q, want %q", i, snap.Players[i], want[i])
		}
	}
}

func TestDecodeSnapshotFullMessage(t *testing.T) {
	payload := []byte(`{
		"name": "Frontier Outpost",
		"brand": "origin",
		"vers": "0.8.1",
		"cracked": true,
		"uuid": "5f3a1c2e-8d4b-4f6a-9c0d-1e2f3a4b5c6d",
		"time": 1755000000123,
		"data": {"online": 7, "max": 32, "motd": ["line one", "line two"], "icon": true, "players": []}
	}`)

	snap, err := decodeSnapshot(payload, time.Now())
	if err != nil {
		t.Fatalf("decodeSnapshot: %v", err)
	}

	if snap.Name != "Frontier Outpost" {
		t.Errorf("Name = %q", snap.Name)
	}
	if snap.Brand != "origin" {
		t.Errorf("Brand = %q", snap.Brand)
	}
	if snap.Version != "0.8.1" {
		t.Errorf("Version = %q", snap.Version)
	}
	if !snap.Cracked {
		t.Error("Cracked = false, want true")
	}
	if snap.UUID != "5f3a1c2e-8d4b-4f6a-9c0d-1e2f3a4b5c6d" {
		t.Errorf("UUID = %q", snap.UUID)
	}
	if snap.ServerTime != 1755000000123 {
		t.Errorf("ServerTime = %d, want 1755000000123", snap.ServerTime)
	}
	if len(snap.MOTD) != 2 || snap.MOTD[0] != "line one" {
		t.Errorf("MOTD = %#v", snap.MOTD)
	}
	if !snap.HasIcon {
		t.Error("HasIcon = false, want true")
	}
	if string(snap.Raw) != string(payload) {
		t.Error("Raw does not preserve the original payload")
	}
}
