package main

import (
	"context"

	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/transport/ble"
	"github.com/muurk/cgd1/internal/ui"
)

// openDevice builds a device for the configured clock. It does not connect.
func openDevice(m *metrics.Metrics) (*device.Device, error) {
	if err := settings.RequireDevice(); err != nil {
		return nil, err
	}
	tok, err := settings.Token()
	if err != nil {
		return nil, err
	}
	return device.New(device.Config{
		Address:   settings.Device.Address,
		Token:     tok,
		Transport: ble.New(),
		Options:   settings.ToOptions(),
		Metrics:   m,
	})
}

// withDevice connects to the clock, runs fn and disconnects
func withDevice(ctx context.Context, fn func(ctx context.Context, d *device.Device) error) error {
	d, err := openDevice(nil)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	p := ui.NewPrinter(nil)
	p.Println(ui.MutedStyle.Render("Connecting to " + deviceLabel() + "..."))
	if err := d.EnsureConnected(ctx); err != nil {
		return err
	}
	return fn(ctx, d)
}

func deviceLabel() string {
	if settings.Device.Name != "" {
		return settings.Device.Name + " (" + settings.Device.Address + ")"
	}
	return settings.Device.Address
}
