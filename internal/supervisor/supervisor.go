package supervisor

import (
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wifid/internal/metrics"
)

const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultMaxAttempts  = 100
	DefaultStopTimeout  = 5 * time.Second
)

var ErrGaveUp = errors.New("control channel did not come up")

// Channel is the control connection opened once the process is up.
type Channel interface {
	Open() error
	Close() error
}

// Handler receives lifecycle callbacks. Calls come from supervisor goroutines.
type Handler interface {
	// DaemonStarted fires once the channel is open.
	DaemonStarted()
	// DaemonFinished fires after the process exits and the channel is closed.
	DaemonFinished()
	// DaemonFailed fires when the channel never opened; the process is then stopped.
	DaemonFailed(err error)
}

// Config configures a Supervisor.
type Config struct {
	Command      string
	Interface    string
	Channel      Channel
	PollInterval time.Duration
	MaxAttempts  int
	StopTimeout  time.Duration
	Logger       logrus.FieldLogger
}

// Supervisor runs the supplicant as a child process bound to one interface.
type Supervisor struct {
	log     logrus.FieldLogger
	cfg     Config
	handler Handler

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	running bool
}

// New creates a Supervisor. Zero config values take defaults.
func New(cfg *Config) *Supervisor {
	c := *cfg
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	log := c.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Supervisor{
		log: log.WithField("system", "supervisor"),
		cfg: c,
	}
}

// SetHandler sets the lifecycle callbacks. Must be called before Start.
func (s *Supervisor) SetHandler(h Handler) {
	s.handler = h
}

// Running reports whether the child process is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Args returns the command line for the configured interface.
func (s *Supervisor) Args() []string {
	args := strings.Fields(s.cfg.Command)
	if s.cfg.Interface != "" {
		args = append(args, "-i", s.cfg.Interface)
	}
	return args
}

// Start launches the process and begins polling the channel. Starting a
// running supervisor is a no-op.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	args := s.Args()
	if len(args) == 0 {
		metrics.DaemonStarts.WithLabelValues("error").Inc()
		return errors.New("empty daemon command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		metrics.DaemonStarts.WithLabelValues("error").Inc()
		return errors.Wrapf(err, "start %s", args[0])
	}
	metrics.DaemonStarts.WithLabelValues("ok").Inc()
	s.log.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "args": args}).Info("Daemon started")

	exited := make(chan struct{})
	s.cmd = cmd
	s.exited = exited
	s.running = true

	go s.wait(cmd, exited)
	go s.poll(exited)
	return nil
}

func (s *Supervisor) wait(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	s.running = false
	s.cmd = nil
	s.mu.Unlock()
	close(exited)

	entry := s.log.WithField("pid", cmd.Process.Pid)
	if err != nil {
		entry.WithError(err).Warn("Daemon exited abnormally")
	} else {
		entry.Info("Daemon exited")
	}
	if s.cfg.Channel != nil {
		s.cfg.Channel.Close()
	}
	if s.handler != nil {
		s.handler.DaemonFinished()
	}
}

func (s *Supervisor) poll(exited chan struct{}) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		select {
		case <-exited:
			return
		case <-ticker.C:
		}
		if s.cfg.Channel == nil {
			lastErr = nil
		} else {
			lastErr = s.cfg.Channel.Open()
		}
		if lastErr == nil {
			s.log.WithField("attempts", attempt+1).Debug("Control channel up")
			if s.handler != nil {
				s.handler.DaemonStarted()
			}
			return
		}
	}

	err := errors.Wrapf(ErrGaveUp, "after %d attempts: %v", s.cfg.MaxAttempts, lastErr)
	s.log.WithError(err).Error("Giving up on daemon")
	if s.handler != nil {
		s.handler.DaemonFailed(err)
	}
	if stopErr := s.Stop(); stopErr != nil {
		s.log.WithError(stopErr).Warn("Stop after failure")
	}
}

// Stop terminates the process and waits for it to exit, killing it after
// the stop timeout. Stopping a stopped supervisor is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	running := s.running
	s.mu.Unlock()
	if !running || cmd == nil {
		return nil
	}

	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
		return nil
	case <-time.After(s.cfg.StopTimeout):
	}
	s.log.WithField("pid", cmd.Process.Pid).Warn("Daemon ignored SIGTERM, killing")
	if err := cmd.Process.Kill(); err != nil {
		return errors.Wrap(err, "kill daemon")
	}
	<-exited
	return nil
}
