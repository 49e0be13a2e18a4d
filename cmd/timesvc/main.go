// Command timesvc syncs the clock of a host-emulated device against NTP and prints the local time, the same way the
// firmware does on a board.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajanata/timesvc/internal/config"
	"github.com/ajanata/timesvc/internal/console"
	"github.com/ajanata/timesvc/internal/log"
	"github.com/ajanata/timesvc/internal/ntp"
	"github.com/ajanata/timesvc/internal/platform"
	"github.com/ajanata/timesvc/internal/timesvc"
)

type app struct {
	settings config.Settings
	log      *zap.Logger
	platform *platform.Platform
	svc      *timesvc.Service
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		tz       string
		server   string
		timeout  time.Duration
		logLevel string
	)

	root := &cobra.Command{
		Use:           "timesvc",
		Short:         "Sync the device clock via NTP and print the local time",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("tz") {
				s.Timezone = tz
			}
			if flags.Changed("server") {
				s.NTPServer = server
			}
			if flags.Changed("timeout") {
				s.SyncTimeout = timeout
			}
			if flags.Changed("log-level") {
				s.LogLevel = logLevel
			}
			return a.init(s)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&tz, "tz", timesvc.DefaultTimezone, "timezone: UTC, a zone name like Europe/Paris, or a POSIX TZ rule")
	pf.StringVar(&server, "server", timesvc.DefaultNTPServer, "NTP server host[:port]")
	pf.DurationVar(&timeout, "timeout", timesvc.DefaultSyncTimeout, "how long to wait for the first sync, negative waits forever")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(newSyncCmd(a), newWatchCmd(a))
	return root
}

func (a *app) init(s config.Settings) error {
	logger, err := log.New(s.Log())
	if err != nil {
		return err
	}
	a.settings = s
	a.log = logger
	a.platform = platform.New(ntp.NewClient(s.QueryTimeout), platform.WithLogger(logger.Sugar()))
	a.svc = timesvc.New(s.Service(), a.platform, console.New(os.Stdout))
	return nil
}

func (a *app) close() {
	if a.platform != nil {
		_ = a.platform.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Configure the timezone, wait for the first NTP sync and print the local time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.svc.Configure(ctx, a.settings.Timezone); err != nil {
				a.log.Error("time sync failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync, then keep printing the local time and refreshing from NTP until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("metrics-addr") {
				a.settings.MetricsAddr = metricsAddr
			}
			if a.settings.MetricsAddr != "" {
				srv, err := a.serveMetrics(a.settings.MetricsAddr)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if err := a.svc.Configure(ctx, a.settings.Timezone); err != nil {
				a.log.Error("time sync failed", zap.Error(err))
				return err
			}
			return a.watch(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	return cmd
}

func (a *app) watch(ctx context.Context) error {
	if a.settings.PrintInterval <= 0 || a.settings.RefreshInterval <= 0 {
		return fmt.Errorf("print interval %s and refresh interval %s must be positive",
			a.settings.PrintInterval, a.settings.RefreshInterval)
	}
	printTicker := time.NewTicker(a.settings.PrintInterval)
	defer printTicker.Stop()
	refreshTicker := time.NewTicker(a.settings.RefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-printTicker.C:
			a.svc.PrintLocalTime()
		case <-refreshTicker.C:
			if err := a.svc.Refresh(); err != nil {
				return err
			}
		}
	}
}

func (a *app) serveMetrics(addr string) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(a.platform.Collector()); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", addr))
	return srv, nil
}
