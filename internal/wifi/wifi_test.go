package wifi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMacAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"001122334455", "00:11:22:33:44:55"},
		{"aa-bb-cc-dd-ee-ff", ""},
		{"aa:bb:cc", ""},
		{"zz:bb:cc:dd:ee:ff", ""},
		{"", ""},
		{"any", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMacAddress(tt.in).String(), tt.in)
	}
	assert.True(t, ParseMacAddress("garbage").IsNull())
}

func TestSignalLevel(t *testing.T) {
	assert.Equal(t, 1, SignalLevel(-78, 4))
	assert.Equal(t, 0, SignalLevel(-100, 4))
	assert.Equal(t, 0, SignalLevel(-120, 4))
	assert.Equal(t, 3, SignalLevel(-55, 4))
	assert.Equal(t, 3, SignalLevel(-30, 4))
	assert.Equal(t, 0, SignalLevel(-60, 1))
	assert.Equal(t, 4, SignalLevel(-56, 5))

	for n := 2; n < 60; n++ {
		prev := 0
		for rssi := -110; rssi <= -40; rssi++ {
			l := SignalLevel(rssi, n)
			assert.GreaterOrEqual(t, l, prev)
			assert.Less(t, l, n)
			prev = l
		}
	}
}

func TestFlagStrings(t *testing.T) {
	assert.Equal(t, "[NoneAuth]", AuthOpen.String())
	assert.Equal(t, "[WPA-PSK/WPA2-PSK]", (AuthWPAPSK | AuthWPA2PSK).String())
	assert.Equal(t, "[NoneEncr]", EncrNone.String())
	assert.Equal(t, "[TKIP+CCMP]", (EncrTKIP | EncrCCMP).String())
	assert.True(t, (AuthWPA2PSK).IsPSK())
	assert.False(t, AuthWEP.IsPSK())
	assert.False(t, AuthWPA2PSK.Has(AuthOpen))
}

func TestResolveNetworkID(t *testing.T) {
	pinned := NewNetwork(2, "Office")
	pinned.BSSID = ParseMacAddress("aa:bb:cc:dd:ee:01")
	networks := []Network{NewNetwork(1, "Home"), pinned, NewNetwork(3, "Office")}

	assert.Equal(t, 1, ResolveNetworkID(networks, NewScanResult(ParseMacAddress("00:00:00:00:00:01"), "Home")))
	assert.Equal(t, 2, ResolveNetworkID(networks, NewScanResult(ParseMacAddress("aa:bb:cc:dd:ee:01"), "Office")))
	assert.Equal(t, 3, ResolveNetworkID(networks, NewScanResult(ParseMacAddress("aa:bb:cc:dd:ee:02"), "Office")))
	assert.Equal(t, -1, ResolveNetworkID(networks, NewScanResult(ParseMacAddress("aa:bb:cc:dd:ee:03"), "Cafe")))
}

func TestJSONForms(t *testing.T) {
	info := NewConnectionInfo()
	info.SSID = "Home"
	info.BSSID = ParseMacAddress("aa:bb:cc:dd:ee:ff")
	b, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"bssid":"AA:BB:CC:DD:EE:FF"`)
	assert.Contains(t, string(b), `"networkId":-1`)

	var back ConnectionInfo
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, info, back)

	var n Network
	require.NoError(t, json.Unmarshal([]byte(`{"ssid":"Cafe","authFlags":32,"preSharedKey":"secret123"}`), &n))
	assert.Equal(t, -1, n.ID)
	assert.False(t, n.IsValid())
	assert.True(t, n.Auth.Has(AuthWPA2PSK))

	var r ScanResult
	require.NoError(t, json.Unmarshal([]byte(`{"ssid":"x"}`), &r))
	assert.False(t, r.IsValid())
	assert.Equal(t, int16(MinRSSI), r.RSSI)
}

func TestScanResultEquality(t *testing.T) {
	a := NewScanResult(ParseMacAddress("aa:bb:cc:dd:ee:ff"), "one")
	b := NewScanResult(ParseMacAddress("aa:bb:cc:dd:ee:ff"), "two")
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, IndexOfScanResult([]ScanResult{a}, b.BSSID))
}
