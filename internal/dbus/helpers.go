package dbus

import (
	"encoding/json"

	"github.com/pkg/errors"

	"wifid/internal/wifi"
)

// toJSON encodes a value for a string-typed property or signal argument
func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// fromJSON decodes a string argument
func fromJSON(s string, v interface{}) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return errors.Wrap(err, "decode json")
	}
	return nil
}

// networkList keeps empty lists encoding as [] rather than null
func networkList(networks []wifi.Network) []wifi.Network {
	if networks == nil {
		return []wifi.Network{}
	}
	return networks
}

func scanResultList(results []wifi.ScanResult) []wifi.ScanResult {
	if results == nil {
		return []wifi.ScanResult{}
	}
	return results
}
