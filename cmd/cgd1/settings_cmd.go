package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/bridge"
	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/ui"
)

// settings set flags
var (
	setVolume       int
	setLanguage     string
	setTimeFormat   string
	setTempUnit     string
	setMasterAlarms bool
	setBacklight    int
	setDayBright    int
	setNightBright  int
	setNightMode    bool
	setNightStart   string
	setNightEnd     string
	setRingtone     string
	setTimezone     string

	jsonOutput bool
)

// time set flags
var (
	timeAt string
	timeTZ string
	noTZ   bool
)

var previewVolume int

func init() {
	rootCmd.AddCommand(settingsCmd, timeCmd, previewCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsNightCmd)
	timeCmd.AddCommand(timeSetCmd)
	previewCmd.AddCommand(previewBrightnessCmd, previewRingtoneCmd)

	settingsGetCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")

	f := settingsSetCmd.Flags()
	f.IntVar(&setVolume, "volume", 0, "Alarm volume (1-5)")
	f.StringVar(&setLanguage, "lang", "", "Display language (en, zh)")
	f.StringVar(&setTimeFormat, "timefmt", "", "Time format (12h, 24h)")
	f.StringVar(&setTempUnit, "temp", "", "Temperature unit (c, f)")
	f.BoolVar(&setMasterAlarms, "master-alarms", true, "Master alarm switch")
	f.IntVar(&setBacklight, "backlight", 0, "Backlight duration in seconds (0 = off)")
	f.IntVar(&setDayBright, "day-bright", 0, "Daytime brightness (0-100, step 10)")
	f.IntVar(&setNightBright, "night-bright", 0, "Nighttime brightness (0-100, step 10)")
	f.BoolVar(&setNightMode, "night-mode", true, "Night mode")
	f.StringVar(&setNightStart, "night-start", "", "Night window start (HH:MM)")
	f.StringVar(&setNightEnd, "night-end", "", "Night window end (HH:MM)")
	f.StringVar(&setRingtone, "ringtone", "", "Ringtone name, dead/beef or 8 hex digits")
	f.StringVar(&setTimezone, "tz", "", "Timezone offset (+HH:MM or minutes)")

	timeSetCmd.Flags().StringVar(&timeAt, "at", "", `Time to set: "YYYY-MM-DD HH:MM" (local) or unix seconds (default: now)`)
	timeSetCmd.Flags().StringVar(&timeTZ, "tz", "", "Timezone offset to set (+HH:MM; default: local zone)")
	timeSetCmd.Flags().BoolVar(&noTZ, "no-tz", false, "Leave the clock's timezone unchanged")
	timeSetCmd.MarkFlagsMutuallyExclusive("tz", "no-tz")

	previewRingtoneCmd.Flags().IntVar(&previewVolume, "volume", 0, "Play at this volume (1-5) instead of the configured one")
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the clock's settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the clock's current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			cfg, err := d.GetConfiguration(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(bridge.NewConfigurationView(cfg))
			}
			p := ui.NewPrinter(nil)
			p.Println(ui.RenderConfiguration(cfg, p.Width()))
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more settings",
	Long: `Change settings in a single configuration write.

Only the flags given are changed; everything else keeps its current value.
The written configuration is read back and shown. Changing the volume plays
the ringtone and changing a brightness shows it on the display.`,
	Example: `  cgd1 settings set --volume 4
  cgd1 settings set --night-mode --night-start 22:00 --night-end 07:00
  cgd1 settings set --ringtone beep --backlight 10`,
	RunE: runSettingsSet,
}

func buildPatch(cmd *cobra.Command) (*protocol.ConfigPatch, error) {
	f := cmd.Flags()
	patch := protocol.NewConfigPatch()

	if f.Changed("volume") {
		patch.SetSoundVolume(setVolume)
	}
	if f.Changed("lang") {
		l, err := protocol.ParseLanguage(setLanguage)
		if err != nil {
			return nil, err
		}
		patch.SetLanguage(l)
	}
	if f.Changed("timefmt") {
		tf, err := protocol.ParseTimeFormat(setTimeFormat)
		if err != nil {
			return nil, err
		}
		patch.SetTimeFormat(tf)
	}
	if f.Changed("temp") {
		u, err := protocol.ParseTemperatureUnit(setTempUnit)
		if err != nil {
			return nil, err
		}
		patch.SetTemperatureUnit(u)
	}
	if f.Changed("master-alarms") {
		patch.SetAlarmsEnabled(setMasterAlarms)
	}
	if f.Changed("backlight") {
		patch.SetBacklight(setBacklight)
	}
	if f.Changed("day-bright") {
		patch.SetDaytimeBrightness(setDayBright)
	}
	if f.Changed("night-bright") {
		patch.SetNighttimeBrightness(setNightBright)
	}
	if f.Changed("night-mode") {
		patch.SetNightMode(setNightMode)
	}
	if f.Changed("night-start") {
		t, err := protocol.ParseClock(setNightStart)
		if err != nil {
			return nil, err
		}
		patch.SetNightStart(t)
	}
	if f.Changed("night-end") {
		t, err := protocol.ParseClock(setNightEnd)
		if err != nil {
			return nil, err
		}
		patch.SetNightEnd(t)
	}
	if f.Changed("ringtone") {
		sig, err := protocol.ParseSignature(setRingtone)
		if err != nil {
			return nil, err
		}
		patch.SetRingtone(sig)
	}
	if f.Changed("tz") {
		tz, err := protocol.ParseTimezone(setTimezone)
		if err != nil {
			return nil, err
		}
		patch.SetTimezoneOffset(tz)
	}

	if patch.IsEmpty() {
		return nil, protocol.NewValidationError("no settings given (see 'cgd1 settings set --help')")
	}
	return patch, nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	patch, err := buildPatch(cmd)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
		cfg, err := d.UpdateConfiguration(ctx, patch)
		if err != nil {
			return err
		}

		f := cmd.Flags()
		if f.Changed("volume") {
			if err := d.PreviewRingtone(ctx, nil); err != nil {
				return err
			}
		}
		switch {
		case f.Changed("night-bright"):
			err = d.PreviewBrightness(ctx, setNightBright)
		case f.Changed("day-bright"):
			err = d.PreviewBrightness(ctx, setDayBright)
		}
		if err != nil {
			return err
		}

		p := ui.NewPrinter(nil)
		p.PrintSuccess("Settings updated")
		p.Println(ui.RenderConfiguration(cfg, p.Width()))
		return nil
	})
}

var settingsNightCmd = &cobra.Command{
	Use:     "night START END",
	Short:   "Set the night window (HH:MM HH:MM)",
	Example: `  cgd1 settings night 22:00 07:00`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseNightWindow(args[0], args[1])
		if err != nil {
			return err
		}
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			if err := d.SetNightWindow(ctx, start, end); err != nil {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess("Night window set",
				ui.Field{Key: "Start", Value: start.String()},
				ui.Field{Key: "End", Value: end.String()})
			return nil
		})
	},
}

func parseNightWindow(startArg, endArg string) (protocol.ClockTime, protocol.ClockTime, error) {
	start, err := protocol.ParseClock(startArg)
	if err != nil {
		return protocol.ClockTime{}, protocol.ClockTime{}, err
	}
	end, err := protocol.ParseClock(endArg)
	if err != nil {
		return protocol.ClockTime{}, protocol.ClockTime{}, err
	}
	return start, end, nil
}

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Set the clock's time",
}

var timeSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the clock's time and timezone",
	Example: `  # Now, in the local timezone
  cgd1 time set

  # A specific moment, keeping the clock's timezone
  cgd1 time set --at "2025-01-01 08:00" --no-tz

  # Explicit timezone
  cgd1 time set --tz +05:30`,
	RunE: runTimeSet,
}

func parseAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, protocol.NewValidationError(fmt.Sprintf("invalid --at %q, expected \"YYYY-MM-DD HH:MM\" or unix seconds", s))
	}
	return t, nil
}

func timezoneFor(ts time.Time) (*int, error) {
	if noTZ {
		return nil, nil
	}
	if timeTZ != "" {
		tz, err := protocol.ParseTimezone(timeTZ)
		if err != nil {
			return nil, err
		}
		return &tz, nil
	}
	_, offset := ts.Zone()
	minutes := offset / 60
	if err := protocol.ValidateTimezoneOffset(minutes); err != nil {
		return nil, fmt.Errorf("local timezone cannot be represented on the clock, use --tz or --no-tz: %w", err)
	}
	return &minutes, nil
}

func runTimeSet(cmd *cobra.Command, args []string) error {
	ts, err := parseAt(timeAt, time.Now())
	if err != nil {
		return err
	}
	tz, err := timezoneFor(ts)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
		if err := d.SetTime(ctx, ts, tz); err != nil {
			return err
		}
		fields := []ui.Field{{Key: "Time", Value: ts.Format("2006-01-02 15:04:05")}}
		if tz != nil {
			fields = append(fields, ui.Field{Key: "Timezone", Value: "UTC" + protocol.FormatTimezone(*tz)})
		}
		ui.NewPrinter(nil).PrintSuccess("Clock time set", fields...)
		return nil
	})
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview brightness or the ringtone on the clock",
}

var previewBrightnessCmd = &cobra.Command{
	Use:   "brightness VALUE",
	Short: "Show a brightness level (0-100, step 10) without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[0])
		if err != nil {
			return protocol.NewValidationError(fmt.Sprintf("invalid brightness %q", args[0]))
		}
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			return d.PreviewBrightness(ctx, value)
		})
	},
}

var previewRingtoneCmd = &cobra.Command{
	Use:   "ringtone",
	Short: "Play the configured ringtone",
	RunE: func(cmd *cobra.Command, args []string) error {
		var volume *int
		if cmd.Flags().Changed("volume") {
			volume = &previewVolume
		}
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			return d.PreviewRingtone(ctx, volume)
		})
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
