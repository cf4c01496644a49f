package bustrace

import (
	"time"

	"github.com/google/uuid"

	"github.com/linht/dw1000-manager/dw1000"
)

// Bus wraps a dw1000.Bus and reports every primitive to a Recorder.
// Errors from the wrapped bus are passed through unchanged.
type Bus struct {
	next      dw1000.Bus
	rec       Recorder
	sessionID string
	seq       uint64
}

// NewBus creates a tracing bus with a fresh session ID.
func NewBus(next dw1000.Bus, rec Recorder) *Bus {
	return &Bus{
		next:      next,
		rec:       rec,
		sessionID: uuid.New().String(),
	}
}

// SessionID returns the ID stamped on every event of this bus.
func (b *Bus) SessionID() string {
	return b.sessionID
}

func (b *Bus) record(phase Phase, data []byte, start time.Time, err error) {
	event := Event{
		Timestamp: time.Now(),
		SessionID: b.sessionID,
		Sequence:  b.seq,
		Phase:     phase,
		Duration:  time.Since(start),
	}
	if len(data) > 0 {
		event.Data = append([]byte(nil), data...)
	}
	if err != nil {
		event.Error = err.Error()
	}
	b.rec.Record(event)
}

func (b *Bus) Select() error {
	b.seq++
	start := time.Now()
	err := b.next.Select()
	b.record(PhaseSelect, nil, start, err)
	return err
}

func (b *Bus) Deselect() error {
	start := time.Now()
	err := b.next.Deselect()
	b.record(PhaseDeselect, nil, start, err)
	return err
}

func (b *Bus) Transmit(data []byte) error {
	start := time.Now()
	err := b.next.Transmit(data)
	b.record(PhaseTransmit, data, start, err)
	return err
}

func (b *Bus) Receive(buf []byte) error {
	start := time.Now()
	err := b.next.Receive(buf)
	if err != nil {
		b.record(PhaseReceive, nil, start, err)
		return err
	}
	b.record(PhaseReceive, buf, start, nil)
	return nil
}

var _ dw1000.Bus = (*Bus)(nil)
