package session

import "wifid/internal/wifi"

// EventKind identifies a change notification.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventAutoScanChanged
	EventConnectionInfoChanged
	EventScanResultFound
	EventScanResultUpdated
	EventScanResultLost
	EventNetworksChanged
	EventNetworkConnecting
	EventNetworkAuthenticated
	EventNetworkConnected
	EventNetworkError
)

var eventNames = map[EventKind]string{
	EventStateChanged:          "StateChanged",
	EventAutoScanChanged:       "AutoScanChanged",
	EventConnectionInfoChanged: "ConnectionInfoChanged",
	EventScanResultFound:       "ScanResultFound",
	EventScanResultUpdated:     "ScanResultUpdated",
	EventScanResultLost:        "ScanResultLost",
	EventNetworksChanged:       "NetworksChanged",
	EventNetworkConnecting:     "NetworkConnecting",
	EventNetworkAuthenticated:  "NetworkAuthenticated",
	EventNetworkConnected:      "NetworkConnected",
	EventNetworkError:          "NetworkError",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Event is a change notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	State      wifi.State
	AutoScan   bool
	Info       wifi.ConnectionInfo
	ScanResult wifi.ScanResult
	Networks   []wifi.Network
	NetworkID  int
}

type listener struct {
	id uint64
	fn func(Event)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs on the session loop and must not call back into
// the controller's blocking methods.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.listenerMu.Lock()
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.listenerMu.Unlock()

	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) emit(ev Event) {
	c.publish()

	c.listenerMu.Lock()
	listeners := c.listeners
	c.listenerMu.Unlock()
	for _, l := range listeners {
		l.fn(ev)
	}
}
