package dbus

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wifid/internal/wifi"
)

// Proxy is a client of the Station service.
type Proxy struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Signal is a Station signal received by a Proxy.
type Signal struct {
	Name string
	Body []interface{}
}

// Dial connects to the Station service on the given bus.
func Dial(busType string) (*Proxy, error) {
	conn, err := Connect(busType)
	if err != nil {
		return nil, err
	}
	return &Proxy{conn: conn, obj: conn.Object(ServiceName, ObjectPath)}, nil
}

// Close closes the bus connection.
func (p *Proxy) Close() error {
	return p.conn.Close()
}

func (p *Proxy) call(method string, args ...interface{}) *dbus.Call {
	return p.obj.Call(Interface+"."+method, 0, args...)
}

func (p *Proxy) SetWiFiEnabled(enabled bool) error {
	return errors.Wrap(p.call("SetWiFiEnabled", enabled).Err, "SetWiFiEnabled")
}

func (p *Proxy) SetWiFiAutoScan(enabled bool) error {
	return errors.Wrap(p.call("SetWiFiAutoScan", enabled).Err, "SetWiFiAutoScan")
}

func (p *Proxy) StartScan() error {
	return errors.Wrap(p.call("StartScan").Err, "StartScan")
}

// AddNetwork sends the profile and returns the id the daemon assigned.
func (p *Proxy) AddNetwork(n wifi.Network) (int, error) {
	var id int32
	if err := p.call("AddNetwork", toJSON(n)).Store(&id); err != nil {
		return -1, errors.Wrap(err, "AddNetwork")
	}
	return int(id), nil
}

func (p *Proxy) SelectNetwork(id int) error {
	return errors.Wrap(p.call("SelectNetwork", int32(id)).Err, "SelectNetwork")
}

func (p *Proxy) RemoveNetwork(id int) error {
	return errors.Wrap(p.call("RemoveNetwork", int32(id)).Err, "RemoveNetwork")
}

func (p *Proxy) SignalLevel(rssi, levels int) (int, error) {
	var level uint16
	if err := p.call("SignalLevel", int16(rssi), uint16(levels)).Store(&level); err != nil {
		return 0, errors.Wrap(err, "SignalLevel")
	}
	return int(level), nil
}

// Property reads one Station property.
func (p *Proxy) Property(name string) (interface{}, error) {
	v, err := p.obj.GetProperty(Interface + "." + name)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", name)
	}
	return v.Value(), nil
}

func (p *Proxy) stringProperty(name string) (string, error) {
	v, err := p.Property(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("property %s is %T, not string", name, v)
	}
	return s, nil
}

// State returns the session state name.
func (p *Proxy) State() (string, error) {
	return p.stringProperty("WiFiState")
}

func (p *Proxy) ConnectionInfo() (wifi.ConnectionInfo, error) {
	info := wifi.NewConnectionInfo()
	s, err := p.stringProperty("ConnectionInfo")
	if err != nil {
		return info, err
	}
	err = fromJSON(s, &info)
	return info, err
}

func (p *Proxy) ScanResults() ([]wifi.ScanResult, error) {
	var results []wifi.ScanResult
	s, err := p.stringProperty("ScanResults")
	if err != nil {
		return nil, err
	}
	err = fromJSON(s, &results)
	return results, err
}

func (p *Proxy) Networks() ([]wifi.Network, error) {
	var networks []wifi.Network
	s, err := p.stringProperty("Networks")
	if err != nil {
		return nil, err
	}
	err = fromJSON(s, &networks)
	return networks, err
}

// Watch delivers Station signals to fn until ctx is done.
func (p *Proxy) Watch(ctx context.Context, fn func(Signal)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
	}
	if err := p.conn.AddMatchSignal(opts...); err != nil {
		return errors.Wrap(err, "add match")
	}
	defer p.conn.RemoveMatchSignal(opts...)

	ch := make(chan *dbus.Signal, 16)
	p.conn.Signal(ch)
	defer p.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return errors.New("bus connection closed")
			}
			if sig.Path != ObjectPath || !strings.HasPrefix(sig.Name, Interface+".") {
				continue
			}
			fn(Signal{Name: strings.TrimPrefix(sig.Name, Interface+"."), Body: sig.Body})
		}
	}
}
