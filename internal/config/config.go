// Package config loads wifid settings from a YAML file and the environment.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all daemon configuration.
type Config struct {
	InterfaceDir string `mapstructure:"interface_dir"`
	Interface    string `mapstructure:"interface"`
	Command      string `mapstructure:"command"`
	ActionDHCPC  string `mapstructure:"action_dhcpc"`

	// ConnectTimeout is in whole seconds.
	ConnectTimeout int           `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	OpenAttempts   int           `mapstructure:"open_attempts"`

	AutoScan      bool `mapstructure:"auto_scan"`
	EnableOnStart bool `mapstructure:"enable_on_start"`

	Bus           string `mapstructure:"bus"`
	MetricsListen string `mapstructure:"metrics_listen"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// env maps keys to the variable names the supplicant tooling already uses.
var env = map[string]string{
	"interface_dir":   "WIFI_WPA_INTERFACE_DIR",
	"interface":       "WIFI_WPA_INTERFACE",
	"command":         "WIFI_WPA_COMMAND",
	"action_dhcpc":    "WIFI_WPA_ACTION_DHCPC",
	"connect_timeout": "WIFI_CONNECT_TIMEOUT",
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		InterfaceDir:   "/var/run/wpa_supplicant",
		Interface:      "wlan0",
		Command:        "wpa_supplicant -c /etc/p2p_supplicant.conf",
		ActionDHCPC:    "/sbin/dhcpc_action.sh",
		ConnectTimeout: 8,
		RequestTimeout: 10 * time.Second,
		OpenAttempts:   100,
		Bus:            "system",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// ConnectTimeoutDuration returns ConnectTimeout as a duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// Load reads configuration from path, or from the default locations when
// path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetDefault("interface_dir", cfg.InterfaceDir)
	v.SetDefault("interface", cfg.Interface)
	v.SetDefault("command", cfg.Command)
	v.SetDefault("action_dhcpc", cfg.ActionDHCPC)
	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("open_attempts", cfg.OpenAttempts)
	v.SetDefault("auto_scan", cfg.AutoScan)
	v.SetDefault("enable_on_start", cfg.EnableOnStart)
	v.SetDefault("bus", cfg.Bus)
	v.SetDefault("metrics_listen", cfg.MetricsListen)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)

	v.SetEnvPrefix("wifid")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, errors.Wrapf(err, "bind %s", name)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/wifid")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.ConnectTimeout <= 0 {
		return nil, errors.Errorf("connect_timeout must be positive, got %d", cfg.ConnectTimeout)
	}
	if cfg.OpenAttempts <= 0 {
		return nil, errors.Errorf("open_attempts must be positive, got %d", cfg.OpenAttempts)
	}
	return cfg, nil
}
