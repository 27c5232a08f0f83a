package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/var/run/wpa_supplicant", cfg.InterfaceDir)
	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, 8*time.Second, cfg.ConnectTimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 100, cfg.OpenAttempts)
	assert.Equal(t, "system", cfg.Bus)
	assert.False(t, cfg.AutoScan)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("WIFI_WPA_INTERFACE", "wlp2s0")
	t.Setenv("WIFI_WPA_INTERFACE_DIR", "/tmp/wpa")
	t.Setenv("WIFI_CONNECT_TIMEOUT", "15")
	t.Setenv("WIFID_REQUEST_TIMEOUT", "2s")
	t.Setenv("WIFID_AUTO_SCAN", "true")
	t.Setenv("WIFID_BUS", "session")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "wlp2s0", cfg.Interface)
	assert.Equal(t, "/tmp/wpa", cfg.InterfaceDir)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.AutoScan)
	assert.Equal(t, "session", cfg.Bus)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifid.yaml")
	data := "interface: wlan1\ncommand: wpa_supplicant -c /tmp/w.conf\nenable_on_start: true\nmetrics_listen: \":9101\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wlan1", cfg.Interface)
	assert.Equal(t, "wpa_supplicant -c /tmp/w.conf", cfg.Command)
	assert.True(t, cfg.EnableOnStart)
	assert.Equal(t, ":9101", cfg.MetricsListen)
	assert.Equal(t, "/sbin/dhcpc_action.sh", cfg.ActionDHCPC)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("WIFI_CONNECT_TIMEOUT", "0")
	_, err = Load("")
	assert.Error(t, err)
}
