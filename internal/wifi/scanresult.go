package wifi

import "encoding/json"

// ScanResult is one access point seen by the daemon. Identity is the BSSID.
type ScanResult struct {
	BSSID        MacAddress `json:"bssid"`
	SSID         string     `json:"ssid"`
	RSSI         int16      `json:"rssi"`
	Frequency    int        `json:"frequency"`
	Capabilities string     `json:"capabilities"`
	Timestamp    int64      `json:"timestamp"`
	NetworkID    int        `json:"networkId"`
}

// NewScanResult returns a result with default rssi and no network id.
func NewScanResult(bssid MacAddress, ssid string) ScanResult {
	return ScanResult{BSSID: bssid, SSID: ssid, RSSI: MinRSSI, NetworkID: -1}
}

// IsValid reports whether the result carries a BSSID.
func (r ScanResult) IsValid() bool {
	return !r.BSSID.IsNull()
}

// Equal compares results by BSSID only.
func (r ScanResult) Equal(o ScanResult) bool {
	return r.BSSID == o.BSSID
}

func (r *ScanResult) UnmarshalJSON(b []byte) error {
	type plain ScanResult
	v := plain(NewScanResult(0, ""))
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = ScanResult(v)
	return nil
}

// IndexOfScanResult returns the position of the result with bssid, or -1.
func IndexOfScanResult(results []ScanResult, bssid MacAddress) int {
	for i, r := range results {
		if r.BSSID == bssid {
			return i
		}
	}
	return -1
}
