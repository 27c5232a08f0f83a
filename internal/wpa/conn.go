package wpa

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wifid/internal/metrics"
)

const (
	DefaultDir     = "/var/run/wpa_supplicant"
	DefaultTimeout = 10 * time.Second

	bufferSize = 8192
)

var (
	ErrNotOpen = errors.New("control channel not open")
	ErrTimeout = errors.New("control request timed out")
	ErrFailed  = errors.New("supplicant replied FAIL")
)

var localCounter atomic.Uint32

// Requester sends one command and returns the decoded reply.
type Requester interface {
	Request(command string) (string, error)
}

// ConnConfig configures a control connection.
type ConnConfig struct {
	Dir       string
	Interface string
	Timeout   time.Duration
	Logger    logrus.FieldLogger
}

// Conn is a pair of datagram sockets to a supplicant interface: one for
// request/reply and one attached for unsolicited events.
type Conn struct {
	log     logrus.FieldLogger
	path    string
	timeout time.Duration

	mu      sync.Mutex
	ctrl    *net.UnixConn
	monitor *net.UnixConn

	handlerMu sync.RWMutex
	handler   func(event string)
}

// NewConn creates an unopened connection.
func NewConn(cfg *ConnConfig) *Conn {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Conn{
		log:     log.WithField("system", "wpa"),
		path:    filepath.Join(dir, cfg.Interface),
		timeout: timeout,
	}
}

// Path returns the daemon's socket path.
func (c *Conn) Path() string {
	return c.path
}

// SetEventHandler sets the callback for unsolicited events. It runs on the
// monitor goroutine with the priority prefix removed.
func (c *Conn) SetEventHandler(fn func(event string)) {
	c.handlerMu.Lock()
	c.handler = fn
	c.handlerMu.Unlock()
}

// IsOpen reports whether both sockets are connected.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl != nil
}

// Open connects both sockets and attaches the monitor. Opening an open
// connection is a no-op.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctrl != nil {
		return nil
	}

	ctrl, err := c.dial()
	if err != nil {
		return errors.Wrap(err, "dial control socket")
	}
	monitor, err := c.dial()
	if err != nil {
		ctrl.Close()
		return errors.Wrap(err, "dial monitor socket")
	}
	reply, err := roundTrip(monitor, "ATTACH", c.timeout)
	if err == nil && !strings.HasPrefix(reply, "OK") {
		err = errors.Errorf("unexpected ATTACH reply %q", reply)
	}
	if err != nil {
		ctrl.Close()
		monitor.Close()
		return errors.Wrap(err, "attach monitor")
	}

	c.ctrl = ctrl
	c.monitor = monitor
	go c.readEvents(monitor)
	c.log.WithField("path", c.path).Debug("Control channel open")
	return nil
}

func (c *Conn) dial() (*net.UnixConn, error) {
	local := &net.UnixAddr{
		Name: fmt.Sprintf("@wifid-%d-%d", os.Getpid(), localCounter.Add(1)),
		Net:  "unixgram",
	}
	remote := &net.UnixAddr{Name: c.path, Net: "unixgram"}
	return net.DialUnix("unixgram", local, remote)
}

// Request sends command and waits for its reply. Requests are serialized.
// The reply keeps the supplicant's printf escapes; parsers split it into
// lines before decoding values with Decode.
func (c *Conn) Request(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	verb := command
	if i := strings.IndexByte(verb, ' '); i > 0 {
		verb = verb[:i]
	}
	if c.ctrl == nil {
		metrics.ControlRequests.WithLabelValues(verb, "not_open").Inc()
		return "", ErrNotOpen
	}
	reply, err := roundTrip(c.ctrl, command, c.timeout)
	switch {
	case errors.Is(err, ErrTimeout):
		metrics.ControlRequests.WithLabelValues(verb, "timeout").Inc()
		c.log.WithField("command", verb).Warn("Request timed out")
		c.redial()
		return "", err
	case err != nil:
		metrics.ControlRequests.WithLabelValues(verb, "error").Inc()
		return "", errors.Wrapf(err, "request %s", verb)
	}
	metrics.ControlRequests.WithLabelValues(verb, "ok").Inc()
	return reply, nil
}

// redial replaces the command socket after a timeout. The late reply is
// then addressed to a closed socket and cannot be read as the answer to the
// next request. Must be called with c.mu held.
func (c *Conn) redial() {
	ctrl, err := c.dial()
	if err != nil {
		c.log.WithError(err).Warn("Could not redial control socket")
		c.closeLocked()
		return
	}
	if err := c.ctrl.Close(); err != nil {
		c.log.WithError(err).Debug("Closing stale control socket")
	}
	c.ctrl = ctrl
}

func roundTrip(conn *net.UnixConn, command string, timeout time.Duration) (string, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	defer conn.SetDeadline(time.Time{})
	if _, err := conn.Write([]byte(command)); err != nil {
		return "", err
	}
	buf := make([]byte, bufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "", ErrTimeout
			}
			return "", err
		}
		// Unsolicited messages can arrive on an attached socket.
		if n > 0 && buf[0] == '<' {
			continue
		}
		return string(buf[:n]), nil
	}
}

func (c *Conn) readEvents(conn *net.UnixConn) {
	buf := make([]byte, bufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.log.WithError(err).Debug("Monitor read stopped")
			}
			return
		}
		event := Decode(StripPriority(string(buf[:n])))
		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(event)
		}
	}
}

// Close detaches the monitor and closes both sockets. Closing a closed
// connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.ctrl == nil {
		return nil
	}
	if err := c.monitor.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		c.log.WithError(err).Debug("Setting DETACH deadline")
	}
	if _, err := c.monitor.Write([]byte("DETACH")); err != nil {
		c.log.WithError(err).Debug("DETACH not sent")
	}
	if err := c.monitor.Close(); err != nil {
		c.log.WithError(err).Debug("Closing monitor socket")
	}
	err := c.ctrl.Close()
	c.ctrl = nil
	c.monitor = nil
	c.log.Debug("Control channel closed")
	return err
}

// StripPriority removes a leading "<N>" level tag from an event line.
func StripPriority(s string) string {
	if len(s) > 0 && s[0] == '<' {
		if i := strings.IndexByte(s, '>'); i > 0 {
			return s[i+1:]
		}
	}
	return s
}
