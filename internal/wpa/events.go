package wpa

import (
	"regexp"
	"strconv"
	"strings"
)

// Event names with the CTRL-EVENT- prefix removed.
const (
	EventScanResults      = "SCAN-RESULTS"
	EventBSSAdded         = "BSS-ADDED"
	EventBSSRemoved       = "BSS-REMOVED"
	EventSSIDTempDisabled = "SSID-TEMP-DISABLED"
	EventConnected        = "CONNECTED"
	EventDisconnected     = "DISCONNECTED"
)

var (
	bssPattern = regexp.MustCompile(`(\d+)\s*([0-9a-fA-F]{2}(?::[0-9a-fA-F]{2}){5})`)
	idPattern  = regexp.MustCompile(`(?:^|[\s\[])id=(-?\d+)`)
)

// Event is a parsed unsolicited message.
type Event struct {
	Name      string
	Index     int
	BSSID     string
	NetworkID int
	Raw       string
}

// ParseEvent splits an event line into its name and the fields the session
// acts on. Missing fields are -1 or empty.
func ParseEvent(line string) Event {
	line = strings.TrimSpace(StripPriority(line))
	ev := Event{Index: -1, NetworkID: -1, Raw: line}
	name, rest, _ := strings.Cut(line, " ")
	ev.Name = strings.TrimPrefix(name, "CTRL-EVENT-")

	switch ev.Name {
	case EventBSSAdded, EventBSSRemoved:
		if m := bssPattern.FindStringSubmatch(rest); m != nil {
			ev.Index, _ = strconv.Atoi(m[1])
			ev.BSSID = m[2]
		}
	case EventSSIDTempDisabled, EventConnected:
		if m := idPattern.FindStringSubmatch(rest); m != nil {
			ev.NetworkID, _ = strconv.Atoi(m[1])
		}
	}
	return ev
}
