package main

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wifid/internal/config"
)

var (
	cfgFile string
	debug   bool
	busType string
	cfg     *config.Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "wifid",
	Short: "Wi-Fi station daemon built on wpa_supplicant",
	Long: `wifid supervises wpa_supplicant for one interface and exposes the
station session (enable, scan, connect, saved networks) on D-Bus.

Run "wifid serve" to start the daemon. The other commands are clients of a
running daemon.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is /etc/wifid/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&busType, "bus", "",
		"D-Bus bus type: session or system (overrides config)")

	rootCmd.AddCommand(serveCmd)
	addClientCommands(rootCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if busType != "" {
		cfg.Bus = busType
	}
	if cfg.Bus != "system" && cfg.Bus != "session" {
		return errors.Errorf("unknown bus type %q", cfg.Bus)
	}
	return initLogger(cfg)
}

func initLogger(cfg *config.Config) error {
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	log.SetLevel(level)

	// Set logger into debug mode if called with --debug
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return nil
}
