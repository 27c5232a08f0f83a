package session

import "time"

// loopTimer fires its callback on the session loop. Stop and Start bump a
// generation so a fire already queued from an older arming is dropped.
type loopTimer struct {
	c        *Controller
	interval time.Duration
	repeat   bool
	fire     func()

	t      *time.Timer
	gen    uint64
	active bool
}

func (c *Controller) newTimer(interval time.Duration, repeat bool, fire func()) *loopTimer {
	return &loopTimer{c: c, interval: interval, repeat: repeat, fire: fire}
}

// Start (re)arms the timer.
func (t *loopTimer) Start() {
	t.Stop()
	t.active = true
	t.arm(t.gen)
}

func (t *loopTimer) arm(gen uint64) {
	t.t = time.AfterFunc(t.interval, func() {
		t.c.post(func() {
			if !t.active || t.gen != gen {
				return
			}
			if t.repeat {
				t.arm(gen)
			} else {
				t.active = false
			}
			t.fire()
		})
	})
}

// Stop disarms the timer.
func (t *loopTimer) Stop() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.active = false
	t.gen++
}

// Active reports whether the timer is armed.
func (t *loopTimer) Active() bool {
	return t != nil && t.active
}
