package session

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wifid/internal/metrics"
	"wifid/internal/wifi"
	"wifid/internal/wpa"
)

const groupCiphers = "TKIP CCMP WEP104 WEP40"

func errorsIsNotOpen(err error) bool {
	return errors.Is(err, wpa.ErrNotOpen)
}

func (c *Controller) addNetwork(n wifi.Network) int {
	if n.IsValid() {
		return c.editNetwork(n)
	}
	id, err := c.tool.AddNetwork()
	if err != nil {
		c.logFailure(err, "ADD_NETWORK")
		return -1
	}
	n.ID = id
	return c.editNetwork(n)
}

// keyMgmt derives the key_mgmt tokens and proto for an auth set. WPA2
// variants take precedence over WPA ones.
func keyMgmt(auth wifi.AuthFlags) (tokens []string, proto string) {
	if auth.IsOpen() || auth.Has(wifi.AuthWEP) || auth.Has(wifi.AuthWEPShared) {
		tokens = append(tokens, "NONE")
	}
	if auth.Has(wifi.AuthIEEE8021X) {
		tokens = append(tokens, "IEEE8021X")
	}
	if auth.IsPSK() {
		tokens = append(tokens, "WPA-PSK")
	}
	if auth.IsEAP() {
		tokens = append(tokens, "WPA-EAP")
	}
	if auth.IsPSK() || auth.IsEAP() {
		proto = "WPA"
		if auth.Has(wifi.AuthWPA2PSK) || auth.Has(wifi.AuthWPA2EAP) {
			proto = "WPA2"
		}
	}
	return tokens, proto
}

// pskValue quotes a passphrase; a 64 digit hex key is passed raw.
func pskValue(psk string) string {
	if len(psk) == 64 && strings.Trim(psk, "0123456789abcdefABCDEF") == "" {
		return psk
	}
	return `"` + psk + `"`
}

func (c *Controller) editNetwork(n wifi.Network) int {
	if !n.IsValid() {
		return n.ID
	}
	id := n.ID
	set := func(variable, value string) {
		if err := c.tool.SetNetwork(id, variable, value); err != nil {
			c.logFailure(err, "SET_NETWORK "+variable)
		}
	}

	if err := c.tool.SetNetworkString(id, "ssid", n.SSID); err != nil {
		c.logFailure(err, "SET_NETWORK ssid")
	}
	if !n.BSSID.IsNull() {
		set("bssid", strings.ToLower(n.BSSID.String()))
	}
	if n.Auth.Has(wifi.AuthWEPShared) {
		set("auth_alg", "SHARED")
	} else {
		set("auth_alg", "OPEN")
	}
	tokens, proto := keyMgmt(n.Auth)
	if len(tokens) > 0 {
		set("key_mgmt", strings.Join(tokens, " "))
	}
	if proto != "" {
		set("proto", proto)
		if proto == "WPA2" {
			set("pairwise", "CCMP")
		} else {
			set("pairwise", "TKIP CCMP")
		}
		set("group", groupCiphers)
	}
	if n.Auth.IsPSK() {
		set("psk", pskValue(n.PreSharedKey))
	}

	if err := c.tool.EnableNetwork(id); err != nil {
		c.logFailure(err, "ENABLE_NETWORK")
	}
	c.selectNetwork(id)
	if err := c.tool.SaveConfig(); err != nil {
		c.logFailure(err, "SAVE_CONFIG")
	}
	return id
}

func (c *Controller) selectNetwork(id int) {
	c.log.WithField("id", id).Info("Selecting network")
	c.emit(Event{Kind: EventNetworkConnecting, NetworkID: id})
	c.awaitingID = id
	if c.connectTimer != nil {
		c.connectTimer.Start()
	} else {
		c.log.Debug("Session not enabled, connection attempt untimed")
	}
	if err := c.tool.SelectNetwork(id); err != nil {
		c.logFailure(err, "SELECT_NETWORK")
	}
}

// fetchNetworks lists the configured networks and fills in each one's
// security settings.
func (c *Controller) fetchNetworks() []wifi.Network {
	reply, err := c.tool.ListNetworks()
	if err != nil {
		c.logFailure(err, "LIST_NETWORKS")
		return nil
	}
	list := wpa.ParseListNetworks(reply)
	for i := range list {
		n := &list[i]
		get := func(variable string) string {
			v, _ := c.tool.GetNetwork(n.ID, variable)
			return v
		}
		if bssid := wifi.ParseMacAddress(get("bssid")); !bssid.IsNull() {
			n.BSSID = bssid
		}
		n.Auth = wpa.ParseAuth(get("proto"), get("key_mgmt"))
		n.Encryption = wpa.ParseEncryption(get("pairwise"))
		if psk := get("psk"); psk != "*" {
			n.PreSharedKey = psk
		}
	}
	return list
}

func (c *Controller) setNetworks(list []wifi.Network) {
	if wifi.EqualNetworks(list, c.networks) {
		return
	}
	c.networks = list
	c.emit(Event{Kind: EventNetworksChanged, Networks: append([]wifi.Network(nil), list...)})
}

func (c *Controller) fetchBSS(ref string) (wifi.ScanResult, bool) {
	reply, err := c.tool.BSS(ref)
	if err != nil {
		c.logFailure(err, "BSS")
		return wifi.ScanResult{}, false
	}
	r := wpa.ParseBSS(reply)
	if !r.IsValid() {
		return r, false
	}
	r.Timestamp = time.Now().UnixMicro()
	r.NetworkID = wifi.ResolveNetworkID(c.networks, r)
	return r, true
}

// loadScanResults enumerates the daemon's current results.
func (c *Controller) loadScanResults() {
	reply, err := c.tool.ScanResults()
	if err != nil {
		c.logFailure(err, "SCAN_RESULTS")
		return
	}
	for _, bssid := range wpa.ParseScanResults(reply) {
		if r, ok := c.fetchBSS(bssid); ok {
			c.upsertScanResult(r)
		}
	}
}

func (c *Controller) upsertScanResult(r wifi.ScanResult) {
	if i := wifi.IndexOfScanResult(c.scanResults, r.BSSID); i >= 0 {
		c.scanResults[i] = r
		c.emit(Event{Kind: EventScanResultUpdated, ScanResult: r})
	} else {
		c.scanResults = append(c.scanResults, r)
		metrics.ScanResults.Set(float64(len(c.scanResults)))
		c.emit(Event{Kind: EventScanResultFound, ScanResult: r})
	}
	if r.BSSID == c.info.BSSID {
		c.setInfo(c.info)
	}
}

func (c *Controller) removeScanResult(bssid wifi.MacAddress) {
	i := wifi.IndexOfScanResult(c.scanResults, bssid)
	if i < 0 {
		return
	}
	r := c.scanResults[i]
	c.scanResults = append(c.scanResults[:i:i], c.scanResults[i+1:]...)
	metrics.ScanResults.Set(float64(len(c.scanResults)))
	c.emit(Event{Kind: EventScanResultLost, ScanResult: r})
}

// resolveScanResults recomputes every result's network id.
func (c *Controller) resolveScanResults() {
	for i := range c.scanResults {
		id := wifi.ResolveNetworkID(c.networks, c.scanResults[i])
		if id == c.scanResults[i].NetworkID {
			continue
		}
		c.scanResults[i].NetworkID = id
		c.emit(Event{Kind: EventScanResultUpdated, ScanResult: c.scanResults[i]})
	}
}

func (c *Controller) handleEvent(line string) {
	ev := wpa.ParseEvent(line)
	if ev.Name == "" {
		return
	}
	metrics.Events.WithLabelValues(ev.Name).Inc()
	if c.session != wifi.StateEnabled {
		return
	}
	c.log.WithField("event", ev.Raw).Debug("Supplicant event")

	switch ev.Name {
	case wpa.EventScanResults:
		if c.connectTimer.Active() {
			c.startScan()
		} else if c.autoScan {
			c.scanTimer.Start()
		}

	case wpa.EventBSSAdded:
		if ev.BSSID == "" {
			return
		}
		if r, ok := c.fetchBSS(ev.BSSID); ok {
			c.upsertScanResult(r)
		}

	case wpa.EventBSSRemoved:
		if ev.BSSID != "" {
			c.removeScanResult(wifi.ParseMacAddress(ev.BSSID))
		}

	case wpa.EventSSIDTempDisabled:
		if c.awaitingID < 0 || ev.NetworkID != c.awaitingID || !c.connectTimer.Active() {
			return
		}
		id := c.awaitingID
		c.connectTimer.Stop()
		c.awaitingID = -1
		c.log.WithField("id", id).Warn("Authentication failed")
		metrics.ConnectionAttempts.WithLabelValues("auth_failed").Inc()
		if err := c.tool.RemoveNetwork(id); err != nil {
			c.logFailure(err, "REMOVE_NETWORK")
		}
		c.emit(Event{Kind: EventNetworkError, NetworkID: id})

	case wpa.EventConnected:
		c.log.WithFields(logrus.Fields{"id": ev.NetworkID}).Info("Network authenticated")
		c.emit(Event{Kind: EventNetworkAuthenticated, NetworkID: ev.NetworkID})
		if c.info.IPAddress == "" {
			c.requestLease()
		}
		c.poll()

	case wpa.EventDisconnected:
		if c.info.IPAddress != "" {
			c.releaseLease()
		}
		c.poll()
	}
}
