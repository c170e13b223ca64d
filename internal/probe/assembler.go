package probe

import (
	"time"

	"github.com/rs/zerolog"
)

// decision is the assembler verdict after absorbing one inbound message.
type decision uint8

const (
	// decisionAwaitMetadata means the metadata frame has not arrived yet.
	decisionAwaitMetadata decision = iota

	// decisionAwaitIcon means metadata is held and declared an icon the
	// caller wants, but the icon frame has not arrived yet.
	decisionAwaitIcon

	// decisionComplete means enough arrived to deliver a snapshot.
	decisionComplete

	// decisionFatal means the metadata was undecodable.
	decisionFatal
)

// assembler accumulates the two inbound fragments of one probe, the
// metadata message and the optional icon, and decides when the result is
// complete. Arrival order does not influence the assembled snapshot.
type assembler struct {
	meta     *Snapshot
	icon     []byte
	log      zerolog.Logger
	wantIcon bool
}

func newAssembler(wantIcon bool, log zerolog.Logger) *assembler {
	return &assembler{wantIcon: wantIcon, log: log}
}

// onMetadata decodes a metadata text frame. The probe is complete unless
// the message declares an icon the caller still wants and none is held.
func (a *assembler) onMetadata(payload []byte, capturedAt time.Time) (decision, error) {
	snap, err := decodeSnapshot(payload, capturedAt)
	if err != nil {
		return decisionFatal, err
	}
	a.meta = snap

	if !snap.HasIcon || !a.wantIcon || a.icon != nil {
		return decisionComplete, nil
	}

	return decisionAwaitIcon, nil
}

// onBinary absorbs a binary frame. Only a payload of exactly IconSize
// bytes counts as icon data, anything else is ignored.
func (a *assembler) onBinary(payload []byte) decision {
	if len(payload) != IconSize {
		a.log.Debug().Int("size", len(payload)).Msg("Ignoring binary frame of unexpected size")
		return a.pending()
	}

	a.icon = payload
	if a.meta != nil {
		return decisionComplete
	}

	return decisionAwaitMetadata
}

// pending reports which fragment is still outstanding.
func (a *assembler) pending() decision {
	if a.meta == nil {
		return decisionAwaitMetadata
	}

	return decisionAwaitIcon
}

// hasMetadata reports whether a usable snapshot was captured.
func (a *assembler) hasMetadata() bool { return a.meta != nil }

// snapshot merges the held icon into the held metadata and returns the
// result. Only meaningful once hasMetadata is true.
func (a *assembler) snapshot() *Snapshot {
	if a.meta != nil && a.icon != nil {
		a.meta.Icon = a.icon
	}

	return a.meta
}
