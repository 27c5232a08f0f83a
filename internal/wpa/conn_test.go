package wpa

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifid/internal/wpa/wpatest"
)

func startDaemon(t *testing.T, handler func(string) string) *wpatest.Daemon {
	t.Helper()
	d, err := wpatest.Start(t.TempDir(), "wlan0", handler)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestConnRequestAndEvents(t *testing.T) {
	d := startDaemon(t, func(cmd string) string {
		if cmd == "PING" {
			return "PONG\n"
		}
		if cmd == "STATUS" {
			return `ssid=caf\xc3\xa9` + "\n"
		}
		return "OK\n"
	})

	c := NewConn(&ConnConfig{Dir: d.Dir, Interface: "wlan0", Timeout: time.Second})
	_, err := c.Request("PING")
	assert.ErrorIs(t, err, ErrNotOpen)

	events := make(chan string, 4)
	c.SetEventHandler(func(ev string) { events <- ev })
	require.NoError(t, c.Open())
	require.NoError(t, c.Open())
	assert.True(t, c.IsOpen())
	assert.Equal(t, 1, d.Attached())

	reply, err := c.Request("PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", reply)

	reply, err = c.Request("STATUS")
	require.NoError(t, err)
	assert.Equal(t, `ssid=caf\xc3\xa9`+"\n", reply, "escapes are kept until parsing")
	assert.Equal(t, "café", ParseStatus(reply).SSID)

	d.Send("CTRL-EVENT-SCAN-RESULTS ")
	select {
	case ev := <-events:
		assert.Equal(t, "CTRL-EVENT-SCAN-RESULTS ", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.IsOpen())
	_, err = c.Request("PING")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, []string{"PING", "STATUS"}, d.Commands())
}

func TestConnTimeout(t *testing.T) {
	d := startDaemon(t, func(cmd string) string {
		if cmd == "SLOW" {
			time.Sleep(300 * time.Millisecond)
		}
		return "OK\n"
	})
	c := NewConn(&ConnConfig{Dir: d.Dir, Interface: "wlan0", Timeout: 100 * time.Millisecond})
	require.NoError(t, c.Open())
	defer c.Close()

	_, err := c.Request("SLOW")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestConnTimeoutKeepsRepliesInOrder(t *testing.T) {
	release := make(chan struct{})
	d := startDaemon(t, func(cmd string) string {
		switch cmd {
		case "SCAN_RESULTS":
			<-release
			return "bssid / frequency / signal level / flags / ssid\n"
		case "STATUS":
			return "wpa_state=COMPLETED\nid=0\n"
		case "PING":
			return "PONG\n"
		}
		return "OK\n"
	})
	c := NewConn(&ConnConfig{Dir: d.Dir, Interface: "wlan0", Timeout: 100 * time.Millisecond})
	require.NoError(t, c.Open())
	defer c.Close()

	_, err := c.Request("SCAN_RESULTS")
	require.ErrorIs(t, err, ErrTimeout)
	close(release)
	assert.True(t, c.IsOpen())

	// The late SCAN_RESULTS reply must not answer STATUS.
	reply, err := c.Request("STATUS")
	require.NoError(t, err)
	assert.Equal(t, "wpa_state=COMPLETED\nid=0\n", reply)

	reply, err = c.Request("PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", reply)
	assert.Equal(t, []string{"SCAN_RESULTS", "STATUS", "PING"}, d.Commands())
}

func TestConnCloseLogsDetachFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	d := startDaemon(t, func(string) string { return "OK\n" })
	c := NewConn(&ConnConfig{Dir: d.Dir, Interface: "wlan0", Timeout: time.Second, Logger: logger})
	require.NoError(t, c.Open())

	// With the daemon gone the DETACH datagram is refused.
	d.Close()
	require.NoError(t, c.Close())

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "DETACH not sent")
	assert.False(t, c.IsOpen())
}

func TestConnOpenWithoutDaemon(t *testing.T) {
	c := NewConn(&ConnConfig{Dir: t.TempDir(), Interface: "wlan0", Timeout: 100 * time.Millisecond})
	assert.Error(t, c.Open())
	assert.False(t, c.IsOpen())
}

func TestToolCommands(t *testing.T) {
	sup := wpatest.NewSupplicant()
	d := startDaemon(t, sup.Handle)
	c := NewConn(&ConnConfig{Dir: d.Dir, Interface: "wlan0", Timeout: time.Second})
	require.NoError(t, c.Open())
	defer c.Close()
	tool := NewTool(c)

	assert.True(t, tool.Ping())
	id, err := tool.AddNetwork()
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	require.NoError(t, tool.SetNetworkString(id, "ssid", "Home"))
	require.NoError(t, tool.SetNetwork(id, "key_mgmt", "WPA-PSK"))
	require.NoError(t, tool.SetNetworkInt(id, "priority", 5))

	v, err := tool.GetNetwork(id, "ssid")
	require.NoError(t, err)
	assert.Equal(t, "Home", v)
	v, err = tool.GetNetwork(id, "priority")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	require.NoError(t, tool.DisableNetwork(id))
	require.NoError(t, tool.Reconnect())
	require.NoError(t, tool.Reconfigure())
	require.NoError(t, tool.Terminate())

	_, err = tool.GetNetwork(id, "psk")
	assert.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, tool.SelectNetwork(42), ErrFailed)
	require.NoError(t, tool.RemoveNetwork(-1))
	assert.False(t, sup.HasNetwork(id))

	assert.Contains(t, d.Commands(), `SET_NETWORK 0 ssid "Home"`)
	assert.Contains(t, d.Commands(), "REMOVE_NETWORK all")
	assert.Contains(t, d.Commands(), "DISABLE_NETWORK 0")
	assert.Contains(t, d.Commands(), "TERMINATE")
	assert.Equal(t, filepath.Join(d.Dir, "wlan0"), c.Path())
}
