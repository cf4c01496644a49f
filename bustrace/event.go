// Package bustrace records the phases of register transactions on a serial
// bus as CBOR events for offline inspection.
package bustrace

import (
	"time"
)

// Phase identifies the bus primitive an event was captured from.
type Phase uint8

const (
	PhaseSelect   Phase = 0
	PhaseTransmit Phase = 1
	PhaseReceive  Phase = 2
	PhaseDeselect Phase = 3
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSelect:
		return "SELECT"
	case PhaseTransmit:
		return "TX"
	case PhaseReceive:
		return "RX"
	case PhaseDeselect:
		return "DESELECT"
	default:
		return "UNKNOWN"
	}
}

// Event is one bus primitive. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the primitive completed.
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the traced bus instance (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Sequence counts transactions within the session; all phases of one
	// select/deselect bracket share it.
	Sequence uint64 `cbor:"3,keyasint"`

	Phase Phase `cbor:"4,keyasint"`

	// Data holds transmitted bytes or the bytes received.
	Data []byte `cbor:"5,keyasint,omitempty"`

	// Duration of the primitive.
	Duration time.Duration `cbor:"6,keyasint,omitempty"`

	// Error message when the primitive failed.
	Error string `cbor:"7,keyasint,omitempty"`
}

// Recorder receives trace events.
type Recorder interface {
	Record(event Event)
}
