package dbus

import (
	"github.com/godbus/dbus/v5"

	"wifid/internal/state"
)

// Properties interface implementation for org.freedesktop.DBus.Properties

// Get implements org.freedesktop.DBus.Properties.Get
func (s *Service) Get(iface, propName string) (dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{"Unknown interface"})
	}

	st := s.stateMgr.Get()
	props := propertyMap(&st)
	v, ok := props[propName]
	if !ok {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", []interface{}{"Unknown property: " + propName})
	}
	return v, nil
}

// GetAll implements org.freedesktop.DBus.Properties.GetAll
func (s *Service) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{"Unknown interface"})
	}

	st := s.stateMgr.Get()
	return propertyMap(&st), nil
}

// Set implements org.freedesktop.DBus.Properties.Set (read-only, returns error)
func (s *Service) Set(iface, propName string, value dbus.Variant) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", []interface{}{"Properties are read-only"})
}

func propertyMap(st *state.State) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"WiFiEnabled":     dbus.MakeVariant(st.SessionState.IsOn()),
		"WiFiState":       dbus.MakeVariant(st.SessionState.String()),
		"WiFiAutoScan":    dbus.MakeVariant(st.AutoScan),
		"ConnectionInfo":  dbus.MakeVariant(toJSON(st.Info)),
		"ScanResults":     dbus.MakeVariant(toJSON(scanResultList(st.ScanResults))),
		"Networks":        dbus.MakeVariant(toJSON(networkList(st.Networks))),
		"Band":            dbus.MakeVariant(state.FrequencyToBand(st.Info.Frequency)),
		"SignalStrength":  dbus.MakeVariant(state.DBmToPercent(st.Info.RSSI)),
		"TrafficIn":       dbus.MakeVariant(st.TrafficIn),
		"TrafficOut":      dbus.MakeVariant(st.TrafficOut),
		"InterfaceName":   dbus.MakeVariant(st.InterfaceName),
		"HardwareAddress": dbus.MakeVariant(st.HardwareAddress),
	}
}
