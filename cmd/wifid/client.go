package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"wifid/internal/dbus"
	"wifid/internal/wifi"
)

// authModes maps --auth values to the flags and pairwise ciphers they imply.
var authModes = map[string]struct {
	auth wifi.AuthFlags
	encr wifi.EncryptionFlags
}{
	"open":       {wifi.AuthOpen, wifi.EncrNone},
	"wep":        {wifi.AuthWEP, wifi.EncrWEP},
	"wep-shared": {wifi.AuthWEPShared, wifi.EncrWEP},
	"wpa-psk":    {wifi.AuthWPAPSK, wifi.EncrTKIP | wifi.EncrCCMP},
	"wpa2-psk":   {wifi.AuthWPA2PSK, wifi.EncrCCMP},
	"wpa-eap":    {wifi.AuthWPAEAP, wifi.EncrTKIP | wifi.EncrCCMP},
	"wpa2-eap":   {wifi.AuthWPA2EAP, wifi.EncrCCMP},
}

// withProxy runs fn against the daemon on the configured bus.
func withProxy(fn func(p *dbus.Proxy) error) error {
	p, err := dbus.Dial(cfg.Bus)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid network id %q", s)
	}
	return id, nil
}

func addClientCommands(root *cobra.Command) {
	root.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable Wi-Fi",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error { return p.SetWiFiEnabled(true) })
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable Wi-Fi",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error { return p.SetWiFiEnabled(false) })
			},
		},
		&cobra.Command{
			Use:       "autoscan on|off",
			Short:     "Turn periodic scanning on or off",
			ValidArgs: []string{"on", "off"},
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error { return p.SetWiFiAutoScan(args[0] == "on") })
			},
		},
		&cobra.Command{
			Use:   "scan",
			Short: "Request a scan",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error { return p.StartScan() })
			},
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the session state and connection info",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error {
					st, err := p.State()
					if err != nil {
						return err
					}
					info, err := p.ConnectionInfo()
					if err != nil {
						return err
					}
					fmt.Printf("State: %s\n", st)
					return printJSON(info)
				})
			},
		},
		&cobra.Command{
			Use:   "results",
			Short: "List scan results",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error {
					results, err := p.ScanResults()
					if err != nil {
						return err
					}
					return printJSON(results)
				})
			},
		},
		&cobra.Command{
			Use:   "networks",
			Short: "List configured networks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error {
					networks, err := p.Networks()
					if err != nil {
						return err
					}
					return printJSON(networks)
				})
			},
		},
		newAddCmd(),
		&cobra.Command{
			Use:   "select <id>",
			Short: "Connect to a configured network",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withProxy(func(p *dbus.Proxy) error { return p.SelectNetwork(id) })
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a configured network",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withProxy(func(p *dbus.Proxy) error { return p.RemoveNetwork(id) })
			},
		},
		&cobra.Command{
			Use:   "monitor",
			Short: "Print station signals as they arrive",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withProxy(func(p *dbus.Proxy) error {
					return p.Watch(cmd.Context(), func(sig dbus.Signal) {
						parts := make([]string, 0, len(sig.Body))
						for _, v := range sig.Body {
							parts = append(parts, fmt.Sprint(v))
						}
						fmt.Printf("%s %s\n", sig.Name, strings.Join(parts, " "))
					})
				})
			},
		},
		&cobra.Command{
			Use:   "level <rssi> [levels]",
			Short: "Convert an RSSI to a signal level",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				rssi, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.Errorf("invalid rssi %q", args[0])
				}
				levels := 5
				if len(args) == 2 {
					if levels, err = strconv.Atoi(args[1]); err != nil {
						return errors.Errorf("invalid level count %q", args[1])
					}
				}
				return withProxy(func(p *dbus.Proxy) error {
					level, err := p.SignalLevel(rssi, levels)
					if err != nil {
						return err
					}
					fmt.Println(level)
					return nil
				})
			},
		},
	)
}

func newAddCmd() *cobra.Command {
	var ssid, psk, auth, bssid string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a network and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := authModes[strings.ToLower(auth)]
			if !ok {
				return errors.Errorf("unknown auth mode %q", auth)
			}
			n := wifi.NewNetwork(-1, ssid)
			n.PreSharedKey = psk
			n.Auth = mode.auth
			n.Encryption = mode.encr
			if bssid != "" {
				mac := wifi.ParseMacAddress(bssid)
				if mac.IsNull() {
					return errors.Errorf("invalid bssid %q", bssid)
				}
				n.BSSID = mac
			}
			return withProxy(func(p *dbus.Proxy) error {
				id, err := p.AddNetwork(n)
				if err != nil {
					return err
				}
				if id < 0 {
					return errors.New("daemon rejected the network")
				}
				fmt.Println(id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ssid, "ssid", "", "network SSID")
	cmd.Flags().StringVar(&psk, "psk", "", "pre-shared key (passphrase or 64 hex digits)")
	cmd.Flags().StringVar(&auth, "auth", "wpa2-psk", "open, wep, wep-shared, wpa-psk, wpa2-psk, wpa-eap or wpa2-eap")
	cmd.Flags().StringVar(&bssid, "bssid", "", "pin the network to one access point")
	_ = cmd.MarkFlagRequired("ssid")
	return cmd
}
