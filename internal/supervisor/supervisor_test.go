package supervisor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu       sync.Mutex
	failures int
	opens    int
	closes   int
}

func (c *fakeChannel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.opens <= c.failures {
		return errors.New("not yet")
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return nil
}

type recorder struct {
	started  chan struct{}
	finished chan struct{}
	failed   chan error
}

func newRecorder() *recorder {
	return &recorder{
		started:  make(chan struct{}, 1),
		finished: make(chan struct{}, 1),
		failed:   make(chan error, 1),
	}
}

func (r *recorder) DaemonStarted() { r.started <- struct{}{} }
func (r *recorder) DaemonFinished() { r.finished <- struct{}{} }
func (r *recorder) DaemonFailed(err error) { r.failed <- err }

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestArgs(t *testing.T) {
	s := New(&Config{Command: "wpa_supplicant -B -c /etc/wpa.conf", Interface: "wlan0"})
	assert.Equal(t, []string{"wpa_supplicant", "-B", "-c", "/etc/wpa.conf", "-i", "wlan0"}, s.Args())
}

func TestStartPollStop(t *testing.T) {
	ch := &fakeChannel{failures: 2}
	rec := newRecorder()
	s := New(&Config{Command: "sleep 30", Channel: ch, PollInterval: 10 * time.Millisecond})
	s.SetHandler(rec)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.Running())

	wait(t, rec.started)
	assert.Equal(t, 3, ch.opens)

	require.NoError(t, s.Stop())
	wait(t, rec.finished)
	assert.False(t, s.Running())
	assert.Equal(t, 1, ch.closes)
	require.NoError(t, s.Stop())
}

func TestGiveUp(t *testing.T) {
	ch := &fakeChannel{failures: 1000}
	rec := newRecorder()
	s := New(&Config{Command: "sleep 30", Channel: ch, PollInterval: 5 * time.Millisecond, MaxAttempts: 3})
	s.SetHandler(rec)

	require.NoError(t, s.Start())
	err := wait(t, rec.failed)
	assert.ErrorIs(t, err, ErrGaveUp)
	wait(t, rec.finished)
	assert.False(t, s.Running())
}

func TestStartFailure(t *testing.T) {
	s := New(&Config{Command: "/nonexistent/wpa_supplicant"})
	assert.Error(t, s.Start())
	assert.False(t, s.Running())

	empty := New(&Config{})
	assert.Error(t, empty.Start())
}

func TestProcessExitNotifies(t *testing.T) {
	rec := newRecorder()
	s := New(&Config{Command: "true", Channel: &fakeChannel{failures: 1000}, PollInterval: time.Second})
	s.SetHandler(rec)
	require.NoError(t, s.Start())
	wait(t, rec.finished)
	assert.False(t, s.Running())
}
