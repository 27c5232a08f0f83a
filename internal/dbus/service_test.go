package dbus

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifid/internal/session"
	"wifid/internal/state"
	"wifid/internal/wifi"
)

type emitted struct {
	name   string
	values []interface{}
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []emitted
}

func (e *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	e.mu.Lock()
	e.sent = append(e.sent, emitted{name: name, values: values})
	e.mu.Unlock()
	return nil
}

func (e *fakeEmitter) last(name string) (emitted, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.sent) - 1; i >= 0; i-- {
		if e.sent[i].name == name {
			return e.sent[i], true
		}
	}
	return emitted{}, false
}

type fakeStation struct {
	enabled  bool
	autoScan bool
	scans    int
	added    []wifi.Network
	selected []int
	removed  []int
	listener func(session.Event)
}

func (f *fakeStation) SetEnabled(enabled bool) { f.enabled = enabled }
func (f *fakeStation) SetAutoScan(enabled bool) { f.autoScan = enabled }
func (f *fakeStation) StartScan() { f.scans++ }
func (f *fakeStation) SelectNetwork(id int) { f.selected = append(f.selected, id) }
func (f *fakeStation) RemoveNetwork(id int) { f.removed = append(f.removed, id) }

func (f *fakeStation) AddNetwork(n wifi.Network) int {
	f.added = append(f.added, n)
	return 7
}

func (f *fakeStation) Subscribe(fn func(session.Event)) func() {
	f.listener = fn
	return func() { f.listener = nil }
}

func newTestService() (*Service, *fakeStation, *fakeEmitter, *state.Manager) {
	st := &fakeStation{}
	em := &fakeEmitter{}
	mgr := state.NewManager()
	s := &Service{
		log:      logrus.New(),
		emit:     em,
		stateMgr: mgr,
		station:  st,
	}
	s.attach()
	return s, st, em, mgr
}

func TestMethodsForwardToStation(t *testing.T) {
	s, st, _, _ := newTestService()

	assert.Nil(t, s.SetWiFiEnabled(true))
	assert.True(t, st.enabled)
	assert.Nil(t, s.SetWiFiAutoScan(true))
	assert.True(t, st.autoScan)
	assert.Nil(t, s.StartScan())
	assert.Equal(t, 1, st.scans)

	id, derr := s.AddNetwork(`{"ssid":"Cafe","authFlags":32,"preSharedKey":"secret123"}`)
	require.Nil(t, derr)
	assert.Equal(t, int32(7), id)
	require.Len(t, st.added, 1)
	assert.Equal(t, -1, st.added[0].ID)
	assert.Equal(t, wifi.AuthWPA2PSK, st.added[0].Auth)

	_, derr = s.AddNetwork(`not json`)
	assert.NotNil(t, derr)
	assert.Len(t, st.added, 1)

	assert.Nil(t, s.SelectNetwork(3))
	assert.Nil(t, s.RemoveNetwork(4))
	assert.Equal(t, []int{3}, st.selected)
	assert.Equal(t, []int{4}, st.removed)

	level, derr := s.SignalLevel(-78, 4)
	require.Nil(t, derr)
	assert.Equal(t, uint16(1), level)
}

func TestPropertiesReflectState(t *testing.T) {
	s, _, em, mgr := newTestService()

	mgr.Update(func(st *state.State) {
		st.SessionState = wifi.StateEnabled
		st.Info.Frequency = 5180
		st.Info.SSID = "Home"
		st.InterfaceName = "wlan0"
		st.TrafficIn = 42
	})

	v, derr := s.Get(Interface, "WiFiEnabled")
	require.Nil(t, derr)
	assert.Equal(t, true, v.Value())

	v, _ = s.Get(Interface, "WiFiState")
	assert.Equal(t, "enabled", v.Value())
	v, _ = s.Get(Interface, "Band")
	assert.Equal(t, "5GHz", v.Value())
	v, _ = s.Get(Interface, "Networks")
	assert.Equal(t, "[]", v.Value())

	v, _ = s.Get(Interface, "ConnectionInfo")
	var info wifi.ConnectionInfo
	require.NoError(t, json.Unmarshal([]byte(v.Value().(string)), &info))
	assert.Equal(t, "Home", info.SSID)

	_, derr = s.Get(Interface, "Nope")
	assert.NotNil(t, derr)
	_, derr = s.Get("org.other", "WiFiEnabled")
	assert.NotNil(t, derr)

	all, derr := s.GetAll(Interface)
	require.Nil(t, derr)
	assert.Equal(t, uint64(42), all["TrafficIn"].Value())
	assert.NotNil(t, s.Set(Interface, "WiFiEnabled", dbus.MakeVariant(false)))

	changed, ok := em.last("org.freedesktop.DBus.Properties.PropertiesChanged")
	require.True(t, ok)
	assert.Equal(t, Interface, changed.values[0])
}

func TestEventsBecomeSignals(t *testing.T) {
	s, st, em, _ := newTestService()
	require.NotNil(t, st.listener)

	st.listener(session.Event{Kind: session.EventNetworkError, NetworkID: 5})
	sig, ok := em.last(Interface + ".NetworkErrorOccurred")
	require.True(t, ok)
	assert.Equal(t, []interface{}{int32(5)}, sig.values)

	r := wifi.NewScanResult(wifi.ParseMacAddress("aa:bb:cc:dd:ee:ff"), "Office")
	st.listener(session.Event{Kind: session.EventScanResultFound, ScanResult: r})
	sig, ok = em.last(Interface + ".ScanResultFound")
	require.True(t, ok)
	assert.Contains(t, sig.values[0], `"bssid":"AA:BB:CC:DD:EE:FF"`)

	st.listener(session.Event{Kind: session.EventStateChanged, State: wifi.StateEnabling})
	sig, _ = em.last(Interface + ".WifiStateChanged")
	assert.Equal(t, []interface{}{true}, sig.values)

	s.Close()
	assert.Nil(t, st.listener)
}
