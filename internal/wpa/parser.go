package wpa

import (
	"strconv"
	"strings"

	"wifid/internal/wifi"
)

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// cut splits a key=value line and decodes the value. Decoding after the
// split keeps an escaped newline inside a value from forming a new line.
func cut(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	return key, Decode(value), ok
}

// ParseStatus reads a STATUS reply. Both "address" and "bssid" set the
// interface address; the later line wins.
func ParseStatus(reply string) wifi.ConnectionInfo {
	info := wifi.NewConnectionInfo()
	for _, line := range lines(reply) {
		key, value, ok := cut(line)
		if !ok {
			continue
		}
		switch key {
		case "address":
			info.MacAddress = wifi.ParseMacAddress(value)
		case "bssid":
			info.MacAddress = wifi.ParseMacAddress(value)
			info.BSSID = wifi.ParseMacAddress(value)
		case "ssid":
			info.SSID = value
		case "freq":
			if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				info.Frequency = v
			}
		case "ip_address":
			info.IPAddress = value
		case "id":
			if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				info.NetworkID = v
			}
		}
	}
	return info
}

// ParseBSS reads a BSS reply. A reply without a bssid yields an invalid result.
func ParseBSS(reply string) wifi.ScanResult {
	r := wifi.NewScanResult(0, "")
	for _, line := range lines(reply) {
		key, value, ok := cut(line)
		if !ok {
			continue
		}
		switch key {
		case "bssid":
			r.BSSID = wifi.ParseMacAddress(value)
		case "ssid":
			r.SSID = value
		case "level":
			if v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 16); err == nil {
				r.RSSI = int16(v)
			}
		case "freq":
			if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				r.Frequency = v
			}
		case "flags":
			r.Capabilities = value
		}
	}
	return r
}

// ParseListNetworks reads a LIST_NETWORKS table. The header row is skipped
// and rows need at least four tab separated fields.
func ParseListNetworks(reply string) []wifi.Network {
	var list []wifi.Network
	rows := lines(reply)
	if len(rows) < 2 {
		return list
	}
	for _, row := range rows[1:] {
		fields := strings.Split(row, "\t")
		if len(fields) <= 3 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		n := wifi.NewNetwork(id, Decode(fields[1]))
		n.BSSID = wifi.ParseMacAddress(fields[2])
		list = append(list, n)
	}
	return list
}

// ParseScanResults returns the BSSIDs listed in a SCAN_RESULTS table.
func ParseScanResults(reply string) []string {
	var bssids []string
	rows := lines(reply)
	if len(rows) < 2 {
		return bssids
	}
	for _, row := range rows[1:] {
		fields := strings.Split(row, "\t")
		if wifi.ParseMacAddress(fields[0]).IsNull() {
			continue
		}
		bssids = append(bssids, fields[0])
	}
	return bssids
}

// ParseAuth derives auth flags from a network's proto and key_mgmt values.
func ParseAuth(proto, keyMgmt string) wifi.AuthFlags {
	auth := wifi.AuthOpen
	wpa2 := strings.Contains(proto, "RSN") || strings.Contains(proto, "WPA2")
	if strings.Contains(keyMgmt, "WPA-EAP") {
		if wpa2 {
			auth |= wifi.AuthWPA2EAP
		} else {
			auth |= wifi.AuthWPAEAP
		}
	}
	if strings.Contains(keyMgmt, "WPA-PSK") {
		if wpa2 {
			auth |= wifi.AuthWPA2PSK
		} else {
			auth |= wifi.AuthWPAPSK
		}
	}
	if strings.Contains(keyMgmt, "IEEE8021X") {
		auth |= wifi.AuthIEEE8021X
	}
	return auth
}

// ParseEncryption derives encryption flags from a pairwise cipher list.
func ParseEncryption(pairwise string) wifi.EncryptionFlags {
	encr := wifi.EncrNone
	if strings.Contains(pairwise, "WEP") {
		encr |= wifi.EncrWEP
	}
	if strings.Contains(pairwise, "TKIP") {
		encr |= wifi.EncrTKIP
	}
	if strings.Contains(pairwise, "CCMP") {
		encr |= wifi.EncrCCMP
	}
	return encr
}
