package dhcp

import (
	"io"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Action arguments passed to the client script, matching wpa_cli action scripts.
const (
	ActionConnected    = "CONNECTED"
	ActionDisconnected = "DISCONNECTED"
)

// Client runs the configured DHCP client action script for one interface.
// Scripts run asynchronously; failures are logged.
type Client struct {
	log       logrus.FieldLogger
	script    string
	iface     string
	runScript func(name string, args ...string) error
}

// NewClient returns a Client. An empty script disables it.
func NewClient(script, iface string, log logrus.FieldLogger) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		log:    log.WithField("system", "dhcp"),
		script: script,
		iface:  iface,
		runScript: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Request asks for a lease after association.
func (c *Client) Request() {
	c.run(ActionConnected)
}

// Release drops the lease after disassociation.
func (c *Client) Release() {
	c.run(ActionDisconnected)
}

func (c *Client) run(action string) {
	if c.script == "" {
		c.log.WithField("action", action).Debug("No DHCP client script configured")
		return
	}
	go func() {
		c.log.WithFields(logrus.Fields{"iface": c.iface, "action": action}).Info("Running DHCP client script")
		if err := c.runScript(c.script, c.iface, action); err != nil {
			c.log.WithError(err).WithField("action", action).Warn("DHCP client script failed")
		}
	}()
}
