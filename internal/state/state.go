package state

import (
	"slices"
	"sync"

	"wifid/internal/wifi"
)

// State is the published view of the Wi-Fi session. The session loop is the
// only writer; D-Bus and the CLI read copies.
type State struct {
	// Session
	SessionState wifi.State
	AutoScan     bool

	// Active connection
	Info wifi.ConnectionInfo

	// Lists
	ScanResults []wifi.ScanResult
	Networks    []wifi.Network

	// Interface
	InterfaceName   string
	InterfaceIndex  uint32
	HardwareAddress string

	// Traffic (bytes/sec)
	TrafficIn  uint64
	TrafficOut uint64
}

// Manager manages state with thread-safe access
type Manager struct {
	mu       sync.RWMutex
	state    State
	onChange func(*State) // Callback when state changes
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{
		state: State{
			SessionState: wifi.StateDisabled,
			Info:         wifi.NewConnectionInfo(),
		},
	}
}

// SetOnChange sets the callback for state changes
func (m *Manager) SetOnChange(fn func(*State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Get returns a copy of current state
func (m *Manager) Get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Update atomically updates state and triggers callback
func (m *Manager) Update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	stateCopy := m.state.clone()
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(&stateCopy)
	}
}

func (s State) clone() State {
	s.ScanResults = slices.Clone(s.ScanResults)
	s.Networks = slices.Clone(s.Networks)
	return s
}

// Helper: Convert dBm to percentage
func DBmToPercent(dBm int16) uint8 {
	// Linear scale: -100 dBm = 0%, -50 dBm = 100%
	if dBm <= -100 {
		return 0
	}
	if dBm >= -50 {
		return 100
	}
	return uint8(2 * (int(dBm) + 100))
}

// Helper: Get band from frequency
func FrequencyToBand(freq int) string {
	if freq >= 2400 && freq < 2500 {
		return "2.4GHz"
	}
	if freq >= 5000 && freq < 5925 {
		return "5GHz"
	}
	if freq >= 5925 {
		return "6GHz"
	}
	return "unknown"
}
