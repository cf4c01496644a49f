package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/linht/dw1000-manager/dw1000"
)

// Monitor streams register snapshots to websocket clients
type Monitor struct {
	plugin     *HardwarePlugin
	interval   time.Duration
	sessions   map[string]*MonitorSession
	sessionsMu sync.RWMutex
}

// MonitorSession represents one connected websocket client
type MonitorSession struct {
	ID       string
	Interval time.Duration
	done     chan struct{}
	closed   bool
	mu       sync.Mutex
}

// MonitorFrame is one message sent to a monitor client
type MonitorFrame struct {
	Session   string                 `json:"session"`
	Sequence  uint64                 `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`
	DeviceID  string                 `json:"device_id,omitempty"`
	Registers []dw1000.SnapshotEntry `json:"registers,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ControlMessage lets a client change its polling interval
type ControlMessage struct {
	Type       string `json:"type"`
	IntervalMS int    `json:"interval_ms"`
}

// NewMonitor creates a monitor polling through plugin
func NewMonitor(plugin *HardwarePlugin, interval time.Duration) *Monitor {
	if interval < MinMonitorInterval {
		interval = MinMonitorInterval
	}
	return &Monitor{
		plugin:   plugin,
		interval: interval,
		sessions: make(map[string]*MonitorSession),
	}
}

// Count returns the number of connected clients
func (m *Monitor) Count() int {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops every session
func (m *Monitor) CloseAll() {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()

	for id := range m.sessions {
		m.closeSessionUnsafe(id)
	}
}

// handleWebSocket polls the device and pushes snapshots until the client
// disconnects
func (m *Monitor) handleWebSocket(c *websocket.Conn) {
	interval := m.interval
	if ms := c.Query("interval_ms"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil {
			c.WriteJSON(fiber.Map{"error": "Invalid interval_ms"})
			return
		}
		interval = clampInterval(time.Duration(v) * time.Millisecond)
	}

	session := m.openSession(interval)
	defer m.CloseSession(session.ID)

	slog.Info("Monitor session opened", "session", session.ID, "interval", interval)

	updates := make(chan time.Duration, 1)

	// Goroutine: read control messages, detect disconnect
	go func() {
		defer m.CloseSession(session.ID)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var ctl ControlMessage
			if err := json.Unmarshal(msg, &ctl); err == nil && ctl.Type == "interval" {
				select {
				case updates <- clampInterval(time.Duration(ctl.IntervalMS) * time.Millisecond):
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	for {
		frame := m.poll(session.ID, seq)
		if err := c.WriteJSON(frame); err != nil {
			slog.Debug("Monitor write failed", "session", session.ID, "error", err)
			return
		}
		seq++

		select {
		case <-session.done:
			slog.Info("Monitor session closed", "session", session.ID, "frames", seq)
			return
		case d := <-updates:
			ticker.Reset(d)
		case <-ticker.C:
		}
	}
}

func (m *Monitor) poll(sessionID string, seq uint64) MonitorFrame {
	frame := MonitorFrame{
		Session:   sessionID,
		Sequence:  seq,
		Timestamp: time.Now(),
	}

	var snap *dw1000.Snapshot
	err := m.plugin.withController(func(ctrl *DW1000Controller) error {
		var err error
		snap, err = ctrl.Device().ReadAllRegisters()
		return err
	})
	if err != nil {
		frame.Error = err.Error()
		return frame
	}

	frame.DeviceID = fmt.Sprintf("0x%08X", snap.DevID)
	frame.Registers = snap.Entries()
	return frame
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinMonitorInterval {
		return MinMonitorInterval
	}
	return d
}

func (m *Monitor) openSession(interval time.Duration) *MonitorSession {
	session := &MonitorSession{
		ID:       uuid.New().String(),
		Interval: interval,
		done:     make(chan struct{}),
	}

	m.sessionsMu.Lock()
	m.sessions[session.ID] = session
	m.sessionsMu.Unlock()

	return session
}

// CloseSession stops a session
func (m *Monitor) CloseSession(sessionID string) {
	m.sessionsMu.Lock()
	defer m.sessionsMu.Unlock()
	m.closeSessionUnsafe(sessionID)
}

// closeSessionUnsafe closes a session without locking (internal use)
func (m *Monitor) closeSessionUnsafe(sessionID string) {
	session, exists := m.sessions[sessionID]
	if !exists {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.closed {
		session.closed = true
		close(session.done)
	}

	delete(m.sessions, sessionID)
}
