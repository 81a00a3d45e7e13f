package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/bridge"
	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/ui"
)

var (
	watchListen    string
	watchAdvertise bool
	watchRefresh   time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "HTTP listen address (default from config, :8765)")
	watchCmd.Flags().BoolVar(&watchAdvertise, "advertise", false, "Advertise the bridge over mDNS as _cgd1._tcp")
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", time.Minute, "Re-read settings and alarms at this interval (0 = never)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and bridge updates to websocket clients",
	Long: `Stay connected to the clock and stream its updates.

Every configuration and alarm notification is pushed as JSON to clients of
ws://HOST:PORT/ws. Prometheus metrics are served on /metrics. The link is
re-established with exponential backoff when the clock drops it.`,
	Example: `  cgd1 watch
  cgd1 watch --listen 127.0.0.1:9000 --advertise`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg := metrics.NewRegistry()
	d, err := openDevice(metrics.New(reg))
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	listen := settings.Bridge.Listen
	if cmd.Flags().Changed("listen") {
		listen = watchListen
	}
	br, err := bridge.New(bridge.Config{
		Listen:    listen,
		Advertise: watchAdvertise || settings.Bridge.Advertise,
		Instance:  settings.Bridge.Instance,
		Bus:       d.Events(),
		Source:    d,
		Registry:  reg,
	})
	if err != nil {
		return err
	}

	dropped := make(chan struct{}, 1)
	sub := d.Events().Subscribe(func(eventbus.Event) {
		select {
		case dropped <- struct{}{}:
		default:
		}
	}, eventbus.Disconnected)
	defer sub.Unsubscribe()

	serveErr := make(chan error, 1)
	go func() { serveErr <- br.Run(ctx) }()

	p := ui.NewPrinter(nil)
	p.PrintSuccess("Bridge running",
		ui.Field{Key: "Clock", Value: deviceLabel()},
		ui.Field{Key: "Websocket", Value: "ws://" + listen + "/ws"},
		ui.Field{Key: "Metrics", Value: "http://" + listen + "/metrics"},
	)
	p.Println(ui.MutedStyle.Render("Press Ctrl+C to stop."))

	if err := syncClock(ctx, d); err != nil && ctx.Err() == nil {
		return err
	}

	var refresh <-chan time.Time
	if watchRefresh > 0 {
		ticker := time.NewTicker(watchRefresh)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return <-serveErr
		case err := <-serveErr:
			return err
		case <-dropped:
			p.PrintWarning("Clock disconnected, reconnecting...")
			if err := syncClock(ctx, d); err != nil && ctx.Err() == nil {
				return err
			}
		case <-refresh:
			if err := syncClock(ctx, d); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

// syncClock (re)connects and reads configuration and alarms, which
// publishes them to the bridge. Transient failures are retried with
// exponential backoff until ctx ends.
func syncClock(ctx context.Context, d *device.Device) error {
	op := func() error {
		if err := d.EnsureConnected(ctx); err != nil {
			if protocol.IsValidationError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if _, err := d.GetConfiguration(ctx); err != nil {
			return err
		}
		_, err := d.GetAlarms(ctx)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if settings.Timeouts.RetryInterval > 0 {
		policy.InitialInterval = settings.Timeouts.RetryInterval
	}
	policy.MaxInterval = time.Minute
	policy.MaxElapsedTime = 0

	return backoff.RetryNotify(op, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logging.Warn("Clock sync failed, retrying",
			zap.String("address", d.Address()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
