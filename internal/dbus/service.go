package dbus

import (
	"io"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wifid/internal/session"
	"wifid/internal/state"
	"wifid/internal/wifi"
)

const (
	ServiceName = "org.wifid.Station"
	ObjectPath  = "/org/wifid/Station"
	Interface   = "org.wifid.Station"
)

// Station is the session controller surface exported on the bus.
type Station interface {
	SetEnabled(enabled bool)
	SetAutoScan(enabled bool)
	StartScan()
	AddNetwork(n wifi.Network) int
	SelectNetwork(id int)
	RemoveNetwork(id int)
	Subscribe(fn func(session.Event)) (cancel func())
}

type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Service represents the D-Bus service
type Service struct {
	log         logrus.FieldLogger
	conn        *dbus.Conn
	emit        emitter
	stateMgr    *state.Manager
	station     Station
	unsubscribe func()
}

// Connect opens the session or system bus.
func Connect(busType string) (*dbus.Conn, error) {
	var conn *dbus.Conn
	var err error
	if busType == "system" {
		conn, err = dbus.SystemBus()
	} else {
		conn, err = dbus.SessionBus()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to D-Bus")
	}
	return conn, nil
}

// NewService creates and registers the D-Bus service
func NewService(busType string, stateMgr *state.Manager, station Station, log logrus.FieldLogger) (*Service, error) {
	conn, err := Connect(busType)
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	s := &Service{
		log:      log.WithField("system", "dbus"),
		conn:     conn,
		emit:     conn,
		stateMgr: stateMgr,
		station:  station,
	}

	// Request service name
	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to request name")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, errors.Errorf("name %s already taken", ServiceName)
	}

	// Export the service object
	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to export")
	}

	// Export the Properties interface
	if err := conn.Export(s, ObjectPath, "org.freedesktop.DBus.Properties"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to export properties")
	}

	// Export introspection
	node := &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:       Interface,
				Methods:    s.methods(),
				Properties: s.properties(),
				Signals:    s.signals(),
			},
		},
	}
	conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable")

	s.attach()
	return s, nil
}

// attach subscribes to snapshot and session changes.
func (s *Service) attach() {
	s.stateMgr.SetOnChange(s.onStateChange)
	s.unsubscribe = s.station.Subscribe(s.onEvent)
}

// Close closes the D-Bus connection
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.stateMgr.SetOnChange(nil)
	if s.conn != nil {
		s.conn.Close()
	}
}

// onStateChange handles state updates and emits signals
func (s *Service) onStateChange(st *state.State) {
	s.emitPropertiesChanged(st)
}

// emitPropertiesChanged emits PropertyChanged for modified properties
func (s *Service) emitPropertiesChanged(st *state.State) {
	err := s.emit.Emit(ObjectPath, "org.freedesktop.DBus.Properties.PropertiesChanged",
		Interface, propertyMap(st), []string{})
	if err != nil {
		s.log.WithError(err).Warn("Failed to emit PropertiesChanged")
	}
}

// onEvent forwards session notifications as signals.
func (s *Service) onEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventStateChanged:
		s.emitSignal("WifiStateChanged", ev.State.IsOn())
	case session.EventAutoScanChanged:
		s.emitSignal("WiFiAutoScanChanged", ev.AutoScan)
	case session.EventConnectionInfoChanged:
		s.emitSignal("ConnectionInfoChanged", toJSON(ev.Info))
	case session.EventScanResultFound:
		s.emitSignal("ScanResultFound", toJSON(ev.ScanResult))
	case session.EventScanResultUpdated:
		s.emitSignal("ScanResultUpdated", toJSON(ev.ScanResult))
	case session.EventScanResultLost:
		s.emitSignal("ScanResultLost", toJSON(ev.ScanResult))
	case session.EventNetworksChanged:
		s.emitSignal("NetworksChanged", toJSON(networkList(ev.Networks)))
	case session.EventNetworkConnecting:
		s.emitSignal("NetworkConnecting", int32(ev.NetworkID))
	case session.EventNetworkAuthenticated:
		s.emitSignal("NetworkAuthenticated", int32(ev.NetworkID))
	case session.EventNetworkConnected:
		s.emitSignal("NetworkConnected", int32(ev.NetworkID))
	case session.EventNetworkError:
		s.emitSignal("NetworkErrorOccurred", int32(ev.NetworkID))
	}
}

// emitSignal emits a custom signal
func (s *Service) emitSignal(name string, values ...interface{}) {
	err := s.emit.Emit(ObjectPath, Interface+"."+name, values...)
	if err != nil {
		s.log.WithError(err).WithField("signal", name).Warn("Failed to emit signal")
	}
}

// methods returns introspection method definitions
func (s *Service) methods() []introspect.Method {
	return []introspect.Method{
		{Name: "SetWiFiEnabled", Args: []introspect.Arg{
			{Name: "enabled", Type: "b", Direction: "in"},
		}},
		{Name: "SetWiFiAutoScan", Args: []introspect.Arg{
			{Name: "enabled", Type: "b", Direction: "in"},
		}},
		{Name: "StartScan"},
		{Name: "AddNetwork", Args: []introspect.Arg{
			{Name: "network", Type: "s", Direction: "in"},
			{Name: "id", Type: "i", Direction: "out"},
		}},
		{Name: "SelectNetwork", Args: []introspect.Arg{
			{Name: "id", Type: "i", Direction: "in"},
		}},
		{Name: "RemoveNetwork", Args: []introspect.Arg{
			{Name: "id", Type: "i", Direction: "in"},
		}},
		{Name: "SignalLevel", Args: []introspect.Arg{
			{Name: "rssi", Type: "n", Direction: "in"},
			{Name: "levels", Type: "q", Direction: "in"},
			{Name: "level", Type: "q", Direction: "out"},
		}},
	}
}

// properties returns introspection property definitions
func (s *Service) properties() []introspect.Property {
	return []introspect.Property{
		{Name: "WiFiEnabled", Type: "b", Access: "read"},
		{Name: "WiFiState", Type: "s", Access: "read"},
		{Name: "WiFiAutoScan", Type: "b", Access: "read"},
		{Name: "ConnectionInfo", Type: "s", Access: "read"},
		{Name: "ScanResults", Type: "s", Access: "read"},
		{Name: "Networks", Type: "s", Access: "read"},
		{Name: "Band", Type: "s", Access: "read"},
		{Name: "SignalStrength", Type: "y", Access: "read"},
		{Name: "TrafficIn", Type: "t", Access: "read"},
		{Name: "TrafficOut", Type: "t", Access: "read"},
		{Name: "InterfaceName", Type: "s", Access: "read"},
		{Name: "HardwareAddress", Type: "s", Access: "read"},
	}
}

// signals returns introspection signal definitions
func (s *Service) signals() []introspect.Signal {
	jsonArg := []introspect.Arg{{Name: "json", Type: "s"}}
	idArg := []introspect.Arg{{Name: "id", Type: "i"}}
	return []introspect.Signal{
		{Name: "WifiStateChanged", Args: []introspect.Arg{{Name: "enabled", Type: "b"}}},
		{Name: "WiFiAutoScanChanged", Args: []introspect.Arg{{Name: "enabled", Type: "b"}}},
		{Name: "ConnectionInfoChanged", Args: jsonArg},
		{Name: "ScanResultFound", Args: jsonArg},
		{Name: "ScanResultUpdated", Args: jsonArg},
		{Name: "ScanResultLost", Args: jsonArg},
		{Name: "NetworksChanged", Args: jsonArg},
		{Name: "NetworkConnecting", Args: idArg},
		{Name: "NetworkAuthenticated", Args: idArg},
		{Name: "NetworkConnected", Args: idArg},
		{Name: "NetworkErrorOccurred", Args: idArg},
	}
}
