// Package device drives a Qingping CGD1 alarm clock over a transport.
//
// A Device owns one link: it connects and authenticates, routes
// notifications to the requests waiting for them, caches the last
// configuration and alarm table, and publishes events on a bus. Operations
// that change the clock reconnect on demand; plain reads require a live
// connection.
package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/transport"
)

// Configuration returns a copy of the last configuration received, or nil
func (d *Device) Configuration() *protocol.Configuration {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	if d.config == nil {
		return nil
	}
	return d.config.Clone()
}

// Alarms returns a copy of the last complete alarm table, or nil
func (d *Device) Alarms() []protocol.Alarm {
	return d.snapshot.current()
}

// GetConfiguration reads the configuration from the clock. The link must
// already be up.
func (d *Device) GetConfiguration(ctx context.Context) (*protocol.Configuration, error) {
	d.begin()
	defer d.end(false)
	return d.readConfiguration(ctx)
}

func (d *Device) readConfiguration(ctx context.Context) (*protocol.Configuration, error) {
	if _, _, err := d.current(); err != nil {
		return nil, err
	}
	w := d.configWaits.Arm(protocol.OpConfiguration)
	if err := d.write(ctx, transport.ConfigWrite, protocol.BuildConfigurationRead(), false); err != nil {
		w.Cancel(err)
		return nil, err
	}
	return await(ctx, d, w, d.opts.ResponseTimeout, protocol.PhaseResponse, "configuration")
}

// ensureConfiguration returns the cached configuration, reading it again
// when missing or expired.
func (d *Device) ensureConfiguration(ctx context.Context) (*protocol.Configuration, error) {
	d.cacheMu.RLock()
	cfg := d.config
	d.cacheMu.RUnlock()

	if cfg != nil && !cfg.IsExpiredAt(d.now()) {
		return cfg.Clone(), nil
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	return d.readConfiguration(ctx)
}

// SetConfiguration writes cfg and returns the configuration read back from
// the clock. The link must already be up.
func (d *Device) SetConfiguration(ctx context.Context, cfg *protocol.Configuration) (*protocol.Configuration, error) {
	if cfg == nil {
		return nil, protocol.NewValidationError("configuration is required")
	}
	d.begin()
	defer d.end(true)
	return d.writeConfiguration(ctx, cfg)
}

func (d *Device) writeConfiguration(ctx context.Context, cfg *protocol.Configuration) (*protocol.Configuration, error) {
	frame, err := cfg.Encode()
	if err != nil {
		return nil, err
	}
	if err := d.write(ctx, transport.ConfigWrite, frame, false); err != nil {
		return nil, err
	}
	return d.readConfiguration(ctx)
}

// UpdateConfiguration connects if needed, applies patch to the current
// configuration and writes the result. It returns the configuration read
// back from the clock.
func (d *Device) UpdateConfiguration(ctx context.Context, patch *protocol.ConfigPatch) (*protocol.Configuration, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, protocol.NewValidationError("no configuration changes given")
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	d.begin()
	defer d.end(true)

	base, err := d.ensureConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := patch.Apply(base)
	if err != nil {
		return nil, err
	}
	d.logger().Info("updating configuration", zap.Stringer("configuration", updated))
	return d.writeConfiguration(ctx, updated)
}

func (d *Device) update(ctx context.Context, patch *protocol.ConfigPatch) error {
	_, err := d.UpdateConfiguration(ctx, patch)
	return err
}

// SetSoundVolume sets the alarm volume (1-5) and plays the ringtone at it
func (d *Device) SetSoundVolume(ctx context.Context, volume int) error {
	if err := d.update(ctx, protocol.NewConfigPatch().SetSoundVolume(volume)); err != nil {
		return err
	}
	return d.PreviewRingtone(ctx, nil)
}

// SetBacklight sets how long the backlight stays on, in seconds (0 = off)
func (d *Device) SetBacklight(ctx context.Context, seconds int) error {
	return d.update(ctx, protocol.NewConfigPatch().SetBacklight(seconds))
}

// SetDaytimeBrightness sets the day brightness and previews it
func (d *Device) SetDaytimeBrightness(ctx context.Context, value int) error {
	if err := d.update(ctx, protocol.NewConfigPatch().SetDaytimeBrightness(value)); err != nil {
		return err
	}
	return d.PreviewBrightness(ctx, value)
}

// SetNighttimeBrightness sets the night brightness and previews it
func (d *Device) SetNighttimeBrightness(ctx context.Context, value int) error {
	if err := d.update(ctx, protocol.NewConfigPatch().SetNighttimeBrightness(value)); err != nil {
		return err
	}
	return d.PreviewBrightness(ctx, value)
}

// SetNightMode toggles night mode, resetting the night window
func (d *Device) SetNightMode(ctx context.Context, enabled bool) error {
	return d.update(ctx, protocol.NewConfigPatch().SetNightMode(enabled))
}

// SetNightWindow sets the start and end of the night window
func (d *Device) SetNightWindow(ctx context.Context, start, end protocol.ClockTime) error {
	return d.update(ctx, protocol.NewConfigPatch().SetNightStart(start).SetNightEnd(end))
}

// SetLanguage sets the display language
func (d *Device) SetLanguage(ctx context.Context, l protocol.Language) error {
	return d.update(ctx, protocol.NewConfigPatch().SetLanguage(l))
}

// SetTimeFormat selects 12h or 24h display
func (d *Device) SetTimeFormat(ctx context.Context, f protocol.TimeFormat) error {
	return d.update(ctx, protocol.NewConfigPatch().SetTimeFormat(f))
}

// SetTemperatureUnit selects Celsius or Fahrenheit
func (d *Device) SetTemperatureUnit(ctx context.Context, u protocol.TemperatureUnit) error {
	return d.update(ctx, protocol.NewConfigPatch().SetTemperatureUnit(u))
}

// SetAlarmsEnabled flips the master alarm switch
func (d *Device) SetAlarmsEnabled(ctx context.Context, enabled bool) error {
	return d.update(ctx, protocol.NewConfigPatch().SetAlarmsEnabled(enabled))
}

// SetRingtone selects the ringtone
func (d *Device) SetRingtone(ctx context.Context, sig protocol.Signature) error {
	return d.update(ctx, protocol.NewConfigPatch().SetRingtone(sig))
}

// SetTime sets the clock to ts, compensating for the time spent
// connecting. When tzOffset is given and differs from the clock's, the
// timezone is updated as well.
func (d *Device) SetTime(ctx context.Context, ts time.Time, tzOffset *int) error {
	start := d.now()
	if tzOffset != nil {
		if err := protocol.ValidateTimezoneOffset(*tzOffset); err != nil {
			return err
		}
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return err
	}

	d.begin()
	defer d.end(true)

	cfg, err := d.ensureConfiguration(ctx)
	if err != nil {
		return err
	}

	ts = ts.Add(d.now().Sub(start))
	frame, err := protocol.BuildTimeSet(ts)
	if err != nil {
		return err
	}
	if err := d.write(ctx, transport.Main, frame, false); err != nil {
		return err
	}
	d.logger().Info("time set", zap.Time("time", ts))

	if tzOffset == nil || cfg.TimezoneOffset() == *tzOffset {
		return nil
	}
	updated, err := protocol.NewConfigPatch().SetTimezoneOffset(*tzOffset).Apply(cfg)
	if err != nil {
		return err
	}
	_, err = d.writeConfiguration(ctx, updated)
	return err
}

// PreviewBrightness shows value (0-100, step 10) on the display
func (d *Device) PreviewBrightness(ctx context.Context, value int) error {
	frame, err := protocol.BuildBrightnessPreview(value)
	if err != nil {
		return err
	}
	return d.send(ctx, frame)
}

// PreviewRingtone plays the current ringtone, optionally at volume (1-5)
func (d *Device) PreviewRingtone(ctx context.Context, volume *int) error {
	frame, err := protocol.BuildRingtonePreview(volume)
	if err != nil {
		return err
	}
	return d.send(ctx, frame)
}

// send connects if needed and writes a fire-and-forget frame
func (d *Device) send(ctx context.Context, frame []byte) error {
	if err := d.EnsureConnected(ctx); err != nil {
		return err
	}
	d.begin()
	defer d.end(true)
	return d.write(ctx, transport.ConfigWrite, frame, false)
}

// GetAlarms reads the full alarm table. The link must already be up.
func (d *Device) GetAlarms(ctx context.Context) ([]protocol.Alarm, error) {
	d.begin()
	defer d.end(false)
	return d.readAlarms(ctx)
}

func (d *Device) readAlarms(ctx context.Context) ([]protocol.Alarm, error) {
	if _, _, err := d.current(); err != nil {
		return nil, err
	}
	d.snapshot.clear()
	w := d.alarmWaits.Arm(protocol.SubAlarmSnapshot)
	if err := d.write(ctx, transport.ConfigWrite, protocol.BuildAlarmsRead(), false); err != nil {
		w.Cancel(err)
		return nil, err
	}
	return await(ctx, d, w, d.opts.ResponseTimeout, protocol.PhaseResponse, "alarm table")
}

// ensureAlarms returns the cached table, reading it when missing
func (d *Device) ensureAlarms(ctx context.Context) ([]protocol.Alarm, error) {
	if alarms := d.snapshot.current(); len(alarms) == protocol.AlarmSlots {
		return alarms, nil
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return nil, err
	}
	return d.readAlarms(ctx)
}

// SetAlarm merges upd into the alarm in slot and writes it. The merged
// alarm must be fully configured. Returns the slot as read back.
func (d *Device) SetAlarm(ctx context.Context, slot int, upd protocol.AlarmUpdate) (protocol.Alarm, error) {
	if err := protocol.ValidateSlot(slot); err != nil {
		return protocol.Alarm{}, err
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return protocol.Alarm{}, err
	}

	d.begin()
	defer d.end(true)

	alarms, err := d.ensureAlarms(ctx)
	if err != nil {
		return protocol.Alarm{}, err
	}
	merged, err := upd.Apply(alarms[slot])
	if err != nil {
		return protocol.Alarm{}, err
	}
	if !merged.IsConfigured() {
		return protocol.Alarm{}, protocol.NewValidationError(
			fmt.Sprintf("alarm %d is not configured: time, days, enabled and snooze are all required", slot))
	}

	refreshed, err := d.writeAlarm(ctx, merged)
	if err != nil {
		return protocol.Alarm{}, err
	}
	d.logger().Info("alarm set", zap.Stringer("alarm", refreshed[slot]))
	return refreshed[slot], nil
}

// DeleteAlarm clears slot
func (d *Device) DeleteAlarm(ctx context.Context, slot int) error {
	if err := protocol.ValidateSlot(slot); err != nil {
		return err
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return err
	}

	d.begin()
	defer d.end(true)

	if _, err := d.ensureAlarms(ctx); err != nil {
		return err
	}
	_, err := d.writeAlarm(ctx, protocol.EmptyAlarm(slot))
	return err
}

// DeleteAllAlarms clears every configured slot and returns how many were
// cleared.
func (d *Device) DeleteAllAlarms(ctx context.Context) (int, error) {
	if err := d.EnsureConnected(ctx); err != nil {
		return 0, err
	}

	d.begin()
	defer d.end(true)

	alarms, err := d.ensureAlarms(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, a := range alarms {
		if !a.IsConfigured() {
			continue
		}
		frame, err := protocol.EmptyAlarm(a.Slot).Encode()
		if err != nil {
			return cleared, err
		}
		if err := d.write(ctx, transport.ConfigWrite, frame, false); err != nil {
			return cleared, err
		}
		cleared++
	}
	if cleared == 0 {
		return 0, nil
	}
	if _, err := d.readAlarms(ctx); err != nil {
		return cleared, err
	}
	return cleared, nil
}

// writeAlarm writes one slot and re-reads the table
func (d *Device) writeAlarm(ctx context.Context, a protocol.Alarm) ([]protocol.Alarm, error) {
	frame, err := a.Encode()
	if err != nil {
		return nil, err
	}
	if err := d.write(ctx, transport.ConfigWrite, frame, false); err != nil {
		return nil, err
	}
	return d.readAlarms(ctx)
}
