package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wifid/internal/dbus"
	"wifid/internal/dhcp"
	"wifid/internal/metrics"
	"wifid/internal/netlink"
	"wifid/internal/session"
	"wifid/internal/state"
	"wifid/internal/supervisor"
	"wifid/internal/traffic"
	"wifid/internal/wpa"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the station daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.StandardLogger()
	log.Infof("wifid starting on %s", cfg.Interface)

	metrics.InitMetrics()
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infof("Serving metrics on %s", cfg.MetricsListen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("Metrics server failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	stateMgr := state.NewManager()
	stateMgr.Update(func(st *state.State) {
		st.InterfaceName = cfg.Interface
	})

	conn := wpa.NewConn(&wpa.ConnConfig{
		Dir:       cfg.InterfaceDir,
		Interface: cfg.Interface,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	daemon := supervisor.New(&supervisor.Config{
		Command:     cfg.Command,
		Interface:   cfg.Interface,
		Channel:     conn,
		MaxAttempts: cfg.OpenAttempts,
		Logger:      logger,
	})
	ctrl := session.New(&session.Config{
		Daemon:         daemon,
		Channel:        conn,
		DHCP:           dhcp.NewClient(cfg.ActionDHCPC, cfg.Interface, logger),
		State:          stateMgr,
		AutoScan:       cfg.AutoScan,
		ConnectTimeout: cfg.ConnectTimeoutDuration(),
		Logger:         logger,
	})
	daemon.SetHandler(ctrl)
	conn.SetEventHandler(ctrl.HandleEvent)

	// The loop outlives ctx so shutdown can still disable the session.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go ctrl.Run(loopCtx)

	service, err := dbus.NewService(cfg.Bus, stateMgr, ctrl, logger)
	if err != nil {
		return errors.Wrap(err, "failed to start D-Bus service")
	}
	defer service.Close()
	log.Infof("D-Bus service registered on %s bus", cfg.Bus)

	watcher, err := netlink.NewWatcher(cfg.Interface, stateMgr, ctrl.Refresh, logger)
	if err != nil {
		log.Warnf("Netlink watcher failed: %v", err)
	} else {
		defer watcher.Close()
		go watcher.Run()
	}

	monitor := traffic.NewMonitor(cfg.Interface, stateMgr, logger)
	go monitor.Run()
	defer monitor.Stop()

	go watchSystemResume(ctx, ctrl)

	if cfg.EnableOnStart {
		ctrl.SetEnabled(true)
	}

	log.Info("wifid ready")
	<-ctx.Done()
	log.Info("Shutting down...")

	ctrl.SetEnabled(false)
	if daemon.Running() {
		if err := daemon.Stop(); err != nil {
			log.Errorf("Could not stop supplicant: %v", err)
		}
	}
	return nil
}
