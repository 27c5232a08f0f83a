package wifi

import "encoding/json"

// ConnectionInfo describes the current association as reported by STATUS.
type ConnectionInfo struct {
	MacAddress  MacAddress `json:"macAddress"`
	BSSID       MacAddress `json:"bssid"`
	SSID        string     `json:"ssid"`
	RSSI        int16      `json:"rssi"`
	Frequency   int        `json:"frequency"`
	IPAddress   string     `json:"ipAddress"`
	NetworkID   int        `json:"networkId"`
	RxLinkSpeed int        `json:"rxLinkSpeed"`
	TxLinkSpeed int        `json:"txLinkSpeed"`
}

// NewConnectionInfo returns the disconnected info.
func NewConnectionInfo() ConnectionInfo {
	return ConnectionInfo{RSSI: MinRSSI, NetworkID: -1}
}

// Connected reports whether the interface holds an address for a configured network.
func (i ConnectionInfo) Connected() bool {
	return i.IPAddress != "" && i.NetworkID >= 0
}

func (i *ConnectionInfo) UnmarshalJSON(b []byte) error {
	type plain ConnectionInfo
	v := plain(NewConnectionInfo())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*i = ConnectionInfo(v)
	return nil
}
