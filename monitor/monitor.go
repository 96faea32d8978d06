// Package monitor tracks link statistics for a transport driver.
package monitor

import (
	"encoding/json"
	"sync"
	"time"
)

// Error categories accepted by RecordError.
const (
	ErrorTransport = "transport"
	ErrorProtocol  = "protocol"
	ErrorDropped   = "dropped"
)

// LinkMonitor accumulates counters for one driver across sessions.
type LinkMonitor struct {
	mu           sync.RWMutex
	snapshot     Snapshot
	sessionStart time.Time
	startTime    time.Time
}

// Snapshot is a point-in-time copy of the link counters.
type Snapshot struct {
	// Throughput
	PacketsSent     uint64 `json:"packets_sent"`
	BytesSent       uint64 `json:"bytes_sent"`
	PacketsReceived uint64 `json:"packets_received"`
	BytesReceived   uint64 `json:"bytes_received"`

	// Errors
	InvalidFrames   uint64 `json:"invalid_frames"`
	DroppedPackets  uint64 `json:"dropped_packets"`
	TransportErrors uint64 `json:"transport_errors"`

	// Sessions
	Sessions      uint64  `json:"sessions"`
	SessionActive bool    `json:"session_active"`
	SessionUptime float64 `json:"session_uptime_seconds"`
	RemoteAddr    string  `json:"remote_addr,omitempty"`

	Uptime      float64   `json:"uptime_seconds"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewLinkMonitor creates a monitor with zeroed counters.
func NewLinkMonitor() *LinkMonitor {
	return &LinkMonitor{startTime: time.Now()}
}

// RecordPacketSent records a transmitted frame of size bytes.
func (m *LinkMonitor) RecordPacketSent(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.PacketsSent++
	m.snapshot.BytesSent += uint64(size)
}

// RecordPacketReceived records a valid frame of size bytes.
func (m *LinkMonitor) RecordPacketReceived(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.PacketsReceived++
	m.snapshot.BytesReceived += uint64(size)
}

// RecordError increments the counter for errorType. Unknown types are ignored.
func (m *LinkMonitor) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch errorType {
	case ErrorTransport:
		m.snapshot.TransportErrors++
	case ErrorProtocol:
		m.snapshot.InvalidFrames++
	case ErrorDropped:
		m.snapshot.DroppedPackets++
	}
}

// RecordSessionOpened marks the start of a session with remoteAddr.
func (m *LinkMonitor) RecordSessionOpened(remoteAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Sessions++
	m.snapshot.SessionActive = true
	m.snapshot.RemoteAddr = remoteAddr
	m.sessionStart = time.Now()
}

// RecordSessionClosed marks the end of the current session.
func (m *LinkMonitor) RecordSessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.SessionActive = false
	m.sessionStart = time.Time{}
}

// Snapshot returns a copy of the current counters.
func (m *LinkMonitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	now := time.Now()
	s.Uptime = now.Sub(m.startTime).Seconds()
	if !m.sessionStart.IsZero() {
		s.SessionUptime = now.Sub(m.sessionStart).Seconds()
	}
	s.LastUpdated = now
	return s
}

// ExportJSON returns the current snapshot as indented JSON.
func (m *LinkMonitor) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// Reset zeroes all counters. The active session, if any, stays active.
func (m *LinkMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.snapshot.SessionActive
	remote := m.snapshot.RemoteAddr
	m.snapshot = Snapshot{SessionActive: active, RemoteAddr: remote}
	m.startTime = time.Now()
}
