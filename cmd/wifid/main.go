// Command wifid runs the Wi-Fi station daemon and talks to it over D-Bus.
package main

import (
	"context"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
