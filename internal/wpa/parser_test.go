package wpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifid/internal/wifi"
)

const statusReply = `bssid=44:6e:e5:85:25:44
freq=2437
ssid=HIK-YZ2
id=0
mode=station
pairwise_cipher=CCMP
key_mgmt=WPA2-PSK
wpa_state=COMPLETED
ip_address=192.168.1.20
address=38:d2:69:c3:f8:3b
`

func TestParseStatus(t *testing.T) {
	info := ParseStatus(statusReply)
	assert.Equal(t, "38:D2:69:C3:F8:3B", info.MacAddress.String())
	assert.Equal(t, "44:6E:E5:85:25:44", info.BSSID.String())
	assert.Equal(t, "HIK-YZ2", info.SSID)
	assert.Equal(t, 2437, info.Frequency)
	assert.Equal(t, "192.168.1.20", info.IPAddress)
	assert.Equal(t, 0, info.NetworkID)
	assert.True(t, info.Connected())

	empty := ParseStatus("")
	assert.Equal(t, wifi.NewConnectionInfo(), empty)

	// address before bssid: bssid wins
	swapped := ParseStatus("address=00:00:00:00:00:01\nbssid=00:00:00:00:00:02\nfreq=abc\n")
	assert.Equal(t, "00:00:00:00:00:02", swapped.MacAddress.String())
	assert.Equal(t, 0, swapped.Frequency)
}

func TestParseBSS(t *testing.T) {
	r := ParseBSS("id=138\nbssid=44:6e:e5:85:25:44\nfreq=2437\nlevel=-42\nflags=[WPA2-PSK-CCMP][WPS][ESS]\nssid=HIK-YZ2\n")
	require.True(t, r.IsValid())
	assert.Equal(t, "HIK-YZ2", r.SSID)
	assert.Equal(t, int16(-42), r.RSSI)
	assert.Equal(t, 2437, r.Frequency)
	assert.Equal(t, "[WPA2-PSK-CCMP][WPS][ESS]", r.Capabilities)
	assert.Equal(t, -1, r.NetworkID)

	noLevel := ParseBSS("bssid=44:6e:e5:85:25:44\n")
	assert.Equal(t, int16(wifi.MinRSSI), noLevel.RSSI)

	assert.False(t, ParseBSS("ssid=x\nlevel=-30\n").IsValid())
	assert.False(t, ParseBSS("").IsValid())
}

func TestParseEscapedValues(t *testing.T) {
	// An escaped newline in an SSID stays inside the value.
	r := ParseBSS("bssid=44:6e:e5:85:25:44\nssid=evil\\nbssid=11:22:33:44:55:66\nlevel=-40\n")
	assert.Equal(t, "44:6E:E5:85:25:44", r.BSSID.String())
	assert.Equal(t, "evil\nbssid=11:22:33:44:55:66", r.SSID)

	info := ParseStatus(`ssid=caf\xc3\xa9` + "\n")
	assert.Equal(t, "café", info.SSID)

	list := ParseListNetworks("network id / ssid / bssid / flags\n0\tcaf\\xc3\\xa9\tany\t[CURRENT]\n")
	require.Len(t, list, 1)
	assert.Equal(t, "café", list[0].SSID)
}

func TestParseListNetworks(t *testing.T) {
	reply := "network id / ssid / bssid / flags\n" +
		"0\tHome\tany\t[CURRENT]\n" +
		"1\tOffice\taa:bb:cc:dd:ee:ff\t\n" +
		"2\tshort\n" +
		"x\tbad\tany\t\n"
	list := ParseListNetworks(reply)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].ID)
	assert.Equal(t, "Home", list[0].SSID)
	assert.True(t, list[0].BSSID.IsNull())
	assert.Equal(t, 1, list[1].ID)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", list[1].BSSID.String())

	assert.Empty(t, ParseListNetworks("network id / ssid / bssid / flags\n"))
	assert.Empty(t, ParseListNetworks(""))
}

func TestParseScanResults(t *testing.T) {
	reply := "bssid / frequency / signal level / flags / ssid\n" +
		"44:6e:e5:85:25:44\t2437\t-42\t[ESS]\tHIK\n" +
		"garbage\n"
	assert.Equal(t, []string{"44:6e:e5:85:25:44"}, ParseScanResults(reply))
}

func TestParseAuthAndEncryption(t *testing.T) {
	assert.Equal(t, wifi.AuthWPA2PSK, ParseAuth("RSN", "WPA-PSK"))
	assert.Equal(t, wifi.AuthWPAPSK, ParseAuth("WPA", "WPA-PSK"))
	assert.Equal(t, wifi.AuthWPA2EAP|wifi.AuthIEEE8021X, ParseAuth("WPA2", "WPA-EAP IEEE8021X"))
	assert.Equal(t, wifi.AuthOpen, ParseAuth("", "NONE"))

	assert.Equal(t, wifi.EncrTKIP|wifi.EncrCCMP, ParseEncryption("CCMP TKIP"))
	assert.Equal(t, wifi.EncrNone, ParseEncryption(""))
}

func TestParseEvent(t *testing.T) {
	ev := ParseEvent("<2>CTRL-EVENT-BSS-ADDED 3 aa:bb:cc:dd:ee:ff")
	assert.Equal(t, EventBSSAdded, ev.Name)
	assert.Equal(t, 3, ev.Index)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", ev.BSSID)

	ev = ParseEvent("BSS-REMOVED 12 00:11:22:33:44:55")
	assert.Equal(t, EventBSSRemoved, ev.Name)
	assert.Equal(t, 12, ev.Index)

	ev = ParseEvent(`CTRL-EVENT-SSID-TEMP-DISABLED id=5 ssid="Cafe" auth_failures=1 duration=10 reason=WRONG_KEY`)
	assert.Equal(t, EventSSIDTempDisabled, ev.Name)
	assert.Equal(t, 5, ev.NetworkID)

	ev = ParseEvent("CTRL-EVENT-CONNECTED - Connection to 00:11:22:33:44:55 completed [id=2 id_str=]")
	assert.Equal(t, EventConnected, ev.Name)
	assert.Equal(t, 2, ev.NetworkID)

	ev = ParseEvent("CTRL-EVENT-SCAN-RESULTS ")
	assert.Equal(t, EventScanResults, ev.Name)
	assert.Equal(t, -1, ev.NetworkID)

	ev = ParseEvent("CTRL-EVENT-BSS-ADDED nonsense")
	assert.Empty(t, ev.BSSID)
}
