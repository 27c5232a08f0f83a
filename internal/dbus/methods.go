package dbus

import (
	"github.com/godbus/dbus/v5"

	"wifid/internal/wifi"
)

// D-Bus method implementations

// SetWiFiEnabled enables or disables the Wi-Fi session
func (s *Service) SetWiFiEnabled(enabled bool) *dbus.Error {
	s.log.WithField("enabled", enabled).Info("SetWiFiEnabled called")
	s.station.SetEnabled(enabled)
	return nil
}

// SetWiFiAutoScan toggles periodic scanning
func (s *Service) SetWiFiAutoScan(enabled bool) *dbus.Error {
	s.station.SetAutoScan(enabled)
	return nil
}

// StartScan triggers a scan
func (s *Service) StartScan() *dbus.Error {
	s.station.StartScan()
	return nil
}

// AddNetwork creates or edits a profile from its JSON form and selects it
func (s *Service) AddNetwork(network string) (int32, *dbus.Error) {
	var n wifi.Network
	if err := fromJSON(network, &n); err != nil {
		return -1, dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{"Invalid network: " + err.Error()})
	}
	s.log.WithField("ssid", n.SSID).Info("AddNetwork called")
	return int32(s.station.AddNetwork(n)), nil
}

// SelectNetwork starts a connection attempt
func (s *Service) SelectNetwork(id int32) *dbus.Error {
	s.station.SelectNetwork(int(id))
	return nil
}

// RemoveNetwork deletes a profile
func (s *Service) RemoveNetwork(id int32) *dbus.Error {
	s.station.RemoveNetwork(int(id))
	return nil
}

// SignalLevel buckets an RSSI value into levels
func (s *Service) SignalLevel(rssi int16, levels uint16) (uint16, *dbus.Error) {
	return uint16(wifi.SignalLevel(int(rssi), int(levels))), nil
}
