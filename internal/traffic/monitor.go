// Package traffic publishes the wireless interface's throughput.
package traffic

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"wifid/internal/state"
)

const (
	sysClassNet = "/sys/class/net"
	interval    = time.Second

	// Changes at or below this many bytes/sec are not published.
	noiseFloor = 100
)

// counters is one reading of the interface byte counters.
type counters struct {
	rx, tx uint64
}

// rate returns the per-interval change from prev. ok is false when there is
// no usable baseline.
func (c counters) rate(prev counters) (counters, bool) {
	if prev == (counters{}) || c.rx < prev.rx || c.tx < prev.tx {
		return counters{}, false
	}
	return counters{rx: c.rx - prev.rx, tx: c.tx - prev.tx}, true
}

// Monitor samples an interface's sysfs statistics once a second.
type Monitor struct {
	log      logrus.FieldLogger
	stateMgr *state.Manager
	iface    string
	root     string
	stopCh   chan struct{}
	running  atomic.Bool

	prev counters
	idle bool
}

// NewMonitor creates a sampler for iface.
func NewMonitor(iface string, stateMgr *state.Manager, log logrus.FieldLogger) *Monitor {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Monitor{
		log:      log.WithField("system", "traffic"),
		stateMgr: stateMgr,
		iface:    iface,
		root:     sysClassNet,
		stopCh:   make(chan struct{}),
	}
}

// Run samples until Stop is called.
func (m *Monitor) Run() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

// Stop ends Run.
func (m *Monitor) Stop() {
	if m.running.CompareAndSwap(true, false) {
		close(m.stopCh)
	}
}

func (m *Monitor) sample() {
	cur, ok := m.read()
	if !ok {
		return
	}
	if cur.rx < m.prev.rx || cur.tx < m.prev.tx {
		m.log.WithField("interface", m.iface).Debug("Counters reset")
	}
	delta, _ := cur.rate(m.prev)
	m.prev = cur

	switch {
	case delta.rx > noiseFloor || delta.tx > noiseFloor:
		m.publish(delta)
		m.idle = false
	case delta == (counters{}) && !m.idle:
		m.publish(delta)
		m.idle = true
	}
}

func (m *Monitor) publish(c counters) {
	m.stateMgr.Update(func(st *state.State) {
		st.TrafficIn = c.rx
		st.TrafficOut = c.tx
	})
}

func (m *Monitor) read() (counters, bool) {
	dir := filepath.Join(m.root, m.iface, "statistics")
	rx, rxOK := readCounter(filepath.Join(dir, "rx_bytes"))
	tx, txOK := readCounter(filepath.Join(dir, "tx_bytes"))
	return counters{rx: rx, tx: tx}, rxOK && txOK
}

func readCounter(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	return v, err == nil
}
