package wifi

import "encoding/json"

// Network is a configured network profile. The id is assigned by the daemon.
type Network struct {
	ID           int             `json:"networkId"`
	SSID         string          `json:"ssid"`
	BSSID        MacAddress      `json:"bssid"`
	Auth         AuthFlags       `json:"authFlags"`
	Encryption   EncryptionFlags `json:"encrFlags"`
	PreSharedKey string          `json:"preSharedKey"`
}

// NewNetwork returns an open network profile.
func NewNetwork(id int, ssid string) Network {
	return Network{ID: id, SSID: ssid}
}

// IsValid reports whether the daemon has assigned an id.
func (n Network) IsValid() bool {
	return n.ID >= 0
}

func (n *Network) UnmarshalJSON(b []byte) error {
	type plain Network
	v := plain(NewNetwork(-1, ""))
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Network(v)
	return nil
}

// EqualNetworks compares two lists element-wise.
func EqualNetworks(a, b []Network) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ResolveNetworkID maps a scan result to a configured network. Profiles
// pinned to a BSSID match on it; the rest match on SSID. Pinned matches win.
func ResolveNetworkID(networks []Network, r ScanResult) int {
	for _, n := range networks {
		if !n.BSSID.IsNull() && n.BSSID == r.BSSID {
			return n.ID
		}
	}
	for _, n := range networks {
		if n.BSSID.IsNull() && n.SSID != "" && n.SSID == r.SSID {
			return n.ID
		}
	}
	return -1
}
