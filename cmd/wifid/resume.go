package main

import (
	"context"

	gobus "github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	"wifid/internal/session"
)

// watchSystemResume listens for logind's PrepareForSleep signal and starts a
// scan on resume so the supplicant reassociates quickly.
func watchSystemResume(ctx context.Context, ctrl *session.Controller) {
	conn, err := gobus.SystemBus()
	if err != nil {
		log.Warnf("Cannot watch system resume: %v", err)
		return
	}

	opts := []gobus.MatchOption{
		gobus.WithMatchInterface("org.freedesktop.login1.Manager"),
		gobus.WithMatchMember("PrepareForSleep"),
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		log.Warnf("Cannot subscribe to PrepareForSleep: %v", err)
		return
	}
	defer conn.RemoveMatchSignal(opts...)

	ch := make(chan *gobus.Signal, 1)
	conn.Signal(ch)
	defer conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			if sig.Name != "org.freedesktop.login1.Manager.PrepareForSleep" || len(sig.Body) == 0 {
				continue
			}
			goingToSleep, ok := sig.Body[0].(bool)
			if !ok {
				continue
			}
			if goingToSleep {
				log.Debug("System going to sleep")
				continue
			}
			if ctrl.IsEnabled() {
				log.Info("System resumed, scanning to speed up reconnection")
				ctrl.StartScan()
			}
		}
	}
}
