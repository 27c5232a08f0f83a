package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wifid/internal/metrics"
	"wifid/internal/state"
	"wifid/internal/wifi"
	"wifid/internal/wpa"
)

const (
	DefaultConnectTimeout = 8 * time.Second
	DefaultInfoInterval   = time.Second
	DefaultScanDebounce   = time.Second
)

// Daemon is the supplicant process as seen by the controller.
type Daemon interface {
	Running() bool
	Start() error
	Stop() error
}

// LeaseManager requests and releases DHCP leases for the interface.
type LeaseManager interface {
	Request()
	Release()
}

// Config configures a Controller.
type Config struct {
	Daemon         Daemon
	Channel        wpa.Requester
	DHCP           LeaseManager
	State          *state.Manager
	AutoScan       bool
	ConnectTimeout time.Duration
	InfoInterval   time.Duration
	ScanDebounce   time.Duration
	Logger         logrus.FieldLogger
}

// Controller owns the Wi-Fi session. All session state lives on the loop
// goroutine started by Run; public methods post work onto it.
type Controller struct {
	log   logrus.FieldLogger
	cfg   Config
	tool  *wpa.Tool
	state *state.Manager

	actions chan func()
	stopped chan struct{}

	listenerMu   sync.Mutex
	listeners    []listener
	nextListener uint64

	// loop-owned
	session      wifi.State
	autoScan     bool
	info         wifi.ConnectionInfo
	scanResults  []wifi.ScanResult
	networks     []wifi.Network
	awaitingID   int
	infoTimer    *loopTimer
	scanTimer    *loopTimer
	connectTimer *loopTimer
}

// New creates a Controller. Run must be called for it to make progress.
func New(cfg *Config) *Controller {
	c := &Controller{
		cfg:        *cfg,
		tool:       wpa.NewTool(cfg.Channel),
		state:      cfg.State,
		actions:    make(chan func(), 64),
		stopped:    make(chan struct{}),
		session:    wifi.StateDisabled,
		autoScan:   cfg.AutoScan,
		info:       wifi.NewConnectionInfo(),
		awaitingID: -1,
	}
	if c.cfg.ConnectTimeout <= 0 {
		c.cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if c.cfg.InfoInterval <= 0 {
		c.cfg.InfoInterval = DefaultInfoInterval
	}
	if c.cfg.ScanDebounce <= 0 {
		c.cfg.ScanDebounce = DefaultScanDebounce
	}
	if c.state == nil {
		c.state = state.NewManager()
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	c.log = log.WithField("system", "session")
	c.publish()
	return c
}

// Run processes session work until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			c.stopTimers()
			return
		case fn := <-c.actions:
			fn()
		}
	}
}

// post queues fn on the loop. It reports false once the loop has stopped.
func (c *Controller) post(fn func()) bool {
	select {
	case c.actions <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func()) {
	done := make(chan struct{})
	if !c.post(func() {
		defer close(done)
		fn()
	}) {
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

// State returns the published snapshot.
func (c *Controller) State() state.State {
	return c.state.Get()
}

// SessionState returns the current lifecycle state.
func (c *Controller) SessionState() wifi.State {
	return c.state.Get().SessionState
}

// IsEnabled reports whether the session is enabled or enabling.
func (c *Controller) IsEnabled() bool {
	return c.SessionState().IsOn()
}

func (c *Controller) IsAutoScan() bool {
	return c.state.Get().AutoScan
}

func (c *Controller) ConnectionInfo() wifi.ConnectionInfo {
	return c.state.Get().Info
}

func (c *Controller) ScanResults() []wifi.ScanResult {
	return c.state.Get().ScanResults
}

func (c *Controller) Networks() []wifi.Network {
	return c.state.Get().Networks
}

// Is5GHzBandSupported is not queried from the driver.
func (c *Controller) Is5GHzBandSupported() bool {
	return false
}

// IsP2PSupported is always false; only station mode is managed.
func (c *Controller) IsP2PSupported() bool {
	return false
}

// FrequencyUnits names the unit of every frequency field.
func (c *Controller) FrequencyUnits() string {
	return "MHz"
}

// SetEnabled starts or stops the session. Repeating the direction already
// in flight is a no-op.
func (c *Controller) SetEnabled(enabled bool) {
	c.call(func() { c.setEnabled(enabled) })
}

// SetAutoScan toggles periodic scanning.
func (c *Controller) SetAutoScan(enabled bool) {
	c.call(func() { c.setAutoScan(enabled) })
}

// StartScan requests a scan while enabled.
func (c *Controller) StartScan() {
	c.call(c.startScan)
}

// Ping reports whether the daemon answers.
func (c *Controller) Ping() bool {
	var ok bool
	c.call(func() { ok = c.tool.Ping() })
	return ok
}

// SaveConfiguration asks the daemon to persist its network profiles.
func (c *Controller) SaveConfiguration() error {
	var err error
	c.call(func() { err = c.tool.SaveConfig() })
	return err
}

// AddNetwork creates (or edits, when n already has an id) a profile and
// selects it. It returns the network id, or -1 on failure.
func (c *Controller) AddNetwork(n wifi.Network) int {
	id := -1
	c.call(func() { id = c.addNetwork(n) })
	return id
}

// SelectNetwork starts a connection attempt to id.
func (c *Controller) SelectNetwork(id int) {
	c.call(func() { c.selectNetwork(id) })
}

// RemoveNetwork deletes a profile. The network list catches up on the next poll.
func (c *Controller) RemoveNetwork(id int) {
	c.call(func() {
		if err := c.tool.RemoveNetwork(id); err != nil {
			c.logFailure(err, "REMOVE_NETWORK")
		}
	})
}

// Refresh runs an info-poll tick as soon as possible.
func (c *Controller) Refresh() {
	go c.post(c.poll)
}

// DaemonStarted is called once the control channel is open.
func (c *Controller) DaemonStarted() {
	c.post(c.onReady)
}

// DaemonFinished is called after the daemon process exits.
func (c *Controller) DaemonFinished() {
	c.post(c.onFinished)
}

// DaemonFailed is called when the control channel never came up.
func (c *Controller) DaemonFailed(err error) {
	c.post(func() {
		c.log.WithError(err).Error("Daemon failed to start")
		c.onFinished()
	})
}

// HandleEvent queues an unsolicited event line.
func (c *Controller) HandleEvent(line string) {
	c.post(func() { c.handleEvent(line) })
}

func (c *Controller) setState(s wifi.State) {
	if c.session == s {
		return
	}
	c.log.WithFields(logrus.Fields{"from": c.session, "to": s}).Info("Session state changed")
	c.session = s
	metrics.SessionState.Set(float64(s))
	c.emit(Event{Kind: EventStateChanged, State: s})
}

func (c *Controller) setEnabled(enabled bool) {
	if enabled {
		if c.session.IsOn() {
			return
		}
		c.setState(wifi.StateEnabling)
		if c.cfg.Daemon == nil || c.cfg.Daemon.Running() {
			c.onReady()
			return
		}
		if err := c.cfg.Daemon.Start(); err != nil {
			c.log.WithError(err).Error("Unable to start daemon")
			c.setState(wifi.StateDisabled)
		}
		return
	}

	if !c.session.IsOn() {
		return
	}
	c.setState(wifi.StateDisabling)
	if err := c.tool.Disconnect(); err != nil {
		c.logFailure(err, "DISCONNECT")
	}
	if c.cfg.Daemon == nil || !c.cfg.Daemon.Running() {
		c.onFinished()
		return
	}
	if err := c.cfg.Daemon.Stop(); err != nil {
		c.log.WithError(err).Warn("Unable to stop daemon")
	}
}

func (c *Controller) onReady() {
	if c.session != wifi.StateEnabling {
		c.log.WithField("state", c.session).Debug("Ignoring daemon ready")
		return
	}
	if err := c.tool.Reassociate(); err != nil {
		c.logFailure(err, "REASSOCIATE")
	}
	c.setState(wifi.StateEnabled)
	c.ensureTimers()

	reply, _ := c.tool.Status()
	info := wpa.ParseStatus(reply)
	c.setInfo(info)
	if info.IPAddress != "" && info.NetworkID < 0 {
		c.log.WithField("ip", info.IPAddress).Info("Releasing stale lease")
		c.releaseLease()
	}
	c.setNetworks(c.fetchNetworks())
	c.loadScanResults()

	c.infoTimer.Start()
	if c.autoScan {
		c.startScan()
	}
}

func (c *Controller) onFinished() {
	c.setState(wifi.StateDisabled)
	c.stopTimers()
	c.infoTimer, c.scanTimer, c.connectTimer = nil, nil, nil
	c.awaitingID = -1

	if c.autoScan {
		c.autoScan = false
		c.emit(Event{Kind: EventAutoScanChanged, AutoScan: false})
	}
	c.setInfo(wifi.NewConnectionInfo())
	c.setNetworks(nil)

	lost := c.scanResults
	c.scanResults = nil
	metrics.ScanResults.Set(0)
	for _, r := range lost {
		c.emit(Event{Kind: EventScanResultLost, ScanResult: r})
	}
}

func (c *Controller) ensureTimers() {
	if c.infoTimer == nil {
		c.infoTimer = c.newTimer(c.cfg.InfoInterval, true, c.poll)
	}
	if c.scanTimer == nil {
		c.scanTimer = c.newTimer(c.cfg.ScanDebounce, false, c.startScan)
	}
	if c.connectTimer == nil {
		c.connectTimer = c.newTimer(c.cfg.ConnectTimeout, false, c.connectTimedOut)
	}
}

func (c *Controller) stopTimers() {
	for _, t := range []*loopTimer{c.infoTimer, c.scanTimer, c.connectTimer} {
		if t != nil {
			t.Stop()
		}
	}
}

func (c *Controller) setAutoScan(enabled bool) {
	if c.autoScan == enabled {
		return
	}
	c.autoScan = enabled
	c.emit(Event{Kind: EventAutoScanChanged, AutoScan: enabled})
	if enabled {
		c.startScan()
	}
}

func (c *Controller) startScan() {
	if c.session != wifi.StateEnabled {
		return
	}
	if err := c.tool.Scan(); err != nil {
		c.logFailure(err, "SCAN")
	}
}

// withSignal fills the link RSSI from the associated BSS's scan result;
// STATUS does not report one.
func (c *Controller) withSignal(info wifi.ConnectionInfo) wifi.ConnectionInfo {
	if info.BSSID.IsNull() {
		return info
	}
	if i := wifi.IndexOfScanResult(c.scanResults, info.BSSID); i >= 0 {
		info.RSSI = c.scanResults[i].RSSI
	}
	return info
}

func (c *Controller) setInfo(info wifi.ConnectionInfo) {
	info = c.withSignal(info)
	if info == c.info {
		return
	}
	c.info = info
	c.emit(Event{Kind: EventConnectionInfoChanged, Info: info})
}

// poll is the periodic info tick.
func (c *Controller) poll() {
	if c.session != wifi.StateEnabled {
		return
	}
	reply, _ := c.tool.Status()
	info := wpa.ParseStatus(reply)
	prevIP := c.info.IPAddress
	c.setInfo(info)

	if info.Connected() && info.IPAddress != prevIP {
		if c.connectTimer.Active() && c.awaitingID == info.NetworkID {
			c.connectTimer.Stop()
			c.awaitingID = -1
			metrics.ConnectionAttempts.WithLabelValues("connected").Inc()
		}
		c.log.WithFields(logrus.Fields{"id": info.NetworkID, "ip": info.IPAddress}).Info("Network connected")
		c.emit(Event{Kind: EventNetworkConnected, NetworkID: info.NetworkID})
	}

	c.setNetworks(c.fetchNetworks())
	c.resolveScanResults()
}

func (c *Controller) connectTimedOut() {
	id := c.awaitingID
	if id < 0 {
		return
	}
	c.awaitingID = -1
	c.log.WithField("id", id).Warn("Connection attempt timed out")
	metrics.ConnectionAttempts.WithLabelValues("timeout").Inc()
	if err := c.tool.RemoveNetwork(id); err != nil {
		c.logFailure(err, "REMOVE_NETWORK")
	}
	c.emit(Event{Kind: EventNetworkError, NetworkID: id})
}

func (c *Controller) requestLease() {
	if c.cfg.DHCP != nil {
		c.cfg.DHCP.Request()
	}
}

func (c *Controller) releaseLease() {
	if c.cfg.DHCP != nil {
		c.cfg.DHCP.Release()
	}
}

// publish copies loop-owned state into the shared snapshot.
func (c *Controller) publish() {
	c.state.Update(func(st *state.State) {
		st.SessionState = c.session
		st.AutoScan = c.autoScan
		st.Info = c.info
		st.ScanResults = append([]wifi.ScanResult(nil), c.scanResults...)
		st.Networks = append([]wifi.Network(nil), c.networks...)
	})
}

func (c *Controller) logFailure(err error, command string) {
	entry := c.log.WithError(err).WithField("command", command)
	if errorsIsNotOpen(err) {
		entry.Debug("Control channel unavailable")
		return
	}
	entry.Error("Command failed")
}
