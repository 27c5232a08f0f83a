package dhcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientRunsScript(t *testing.T) {
	calls := make(chan []string, 2)
	c := NewClient("/usr/sbin/dhcp-action", "wlan0", nil)
	c.runScript = func(name string, args ...string) error {
		calls <- append([]string{name}, args...)
		return nil
	}

	c.Request()
	c.Release()

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case call := <-calls:
			assert.Equal(t, "/usr/sbin/dhcp-action", call[0])
			assert.Equal(t, "wlan0", call[1])
			got[call[2]] = true
		case <-time.After(time.Second):
			t.Fatal("script not run")
		}
	}
	assert.True(t, got[ActionConnected])
	assert.True(t, got[ActionDisconnected])
}

func TestClientWithoutScript(t *testing.T) {
	c := NewClient("", "wlan0", nil)
	c.runScript = func(string, ...string) error {
		t.Error("script should not run")
		return nil
	}
	c.Request()
	time.Sleep(20 * time.Millisecond)
}
