package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/bridge"
	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/ui"
)

var (
	alarmTime    string
	alarmDays    string
	alarmSnooze  bool
	alarmEnable  bool
	alarmDisable bool
	assumeYes    bool
)

func init() {
	rootCmd.AddCommand(alarmsCmd)
	alarmsCmd.AddCommand(alarmsListCmd, alarmsSetCmd, alarmsDeleteCmd)

	alarmsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")

	f := alarmsSetCmd.Flags()
	f.StringVar(&alarmTime, "time", "", "Alarm time (HH:MM)")
	f.StringVar(&alarmDays, "days", "", "Repeat: once, weekdays, weekend, all or mon,tue,...")
	f.BoolVar(&alarmSnooze, "snooze", false, "Allow snooze")
	f.BoolVar(&alarmEnable, "enable", false, "Enable the alarm")
	f.BoolVar(&alarmDisable, "disable", false, "Disable the alarm")
	alarmsSetCmd.MarkFlagsMutuallyExclusive("enable", "disable")

	alarmsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

var alarmsCmd = &cobra.Command{
	Use:   "alarms",
	Short: "Manage the clock's 16 alarm slots",
}

var alarmsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all alarm slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			alarms, err := d.GetAlarms(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(bridge.NewAlarmViews(alarms))
			}
			p := ui.NewPrinter(nil)
			p.Println(ui.RenderAlarms(alarms, p.Width()))
			return nil
		})
	},
}

var alarmsSetCmd = &cobra.Command{
	Use:   "set SLOT",
	Short: "Create or change an alarm",
	Long: `Create or change the alarm in SLOT (0-15).

Only the flags given are changed. A new alarm needs at least --time; it
defaults to enabled, once, without snooze.`,
	Example: `  cgd1 alarms set 0 --time 07:00 --days weekdays
  cgd1 alarms set 0 --disable
  cgd1 alarms set 3 --time 09:30 --days sat,sun --snooze`,
	Args: cobra.ExactArgs(1),
	RunE: runAlarmsSet,
}

func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil {
		return 0, protocol.NewValidationError(fmt.Sprintf("invalid slot %q", s))
	}
	if err := protocol.ValidateSlot(slot); err != nil {
		return 0, err
	}
	return slot, nil
}

func buildAlarmUpdate(cmd *cobra.Command) (protocol.AlarmUpdate, error) {
	var upd protocol.AlarmUpdate
	f := cmd.Flags()

	if f.Changed("time") {
		t, err := protocol.ParseClock(alarmTime)
		if err != nil {
			return upd, err
		}
		upd.Time = &t
	}
	if f.Changed("days") {
		days, err := protocol.ParseDays(alarmDays)
		if err != nil {
			return upd, err
		}
		upd.Days = &days
	}
	if f.Changed("snooze") {
		upd.Snooze = &alarmSnooze
	}
	switch {
	case f.Changed("enable"):
		upd.Enabled = &alarmEnable
	case f.Changed("disable"):
		enabled := !alarmDisable
		upd.Enabled = &enabled
	}

	if upd.IsEmpty() {
		return upd, protocol.NewValidationError("nothing to change (use --time, --days, --snooze, --enable or --disable)")
	}
	return upd, nil
}

func runAlarmsSet(cmd *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	upd, err := buildAlarmUpdate(cmd)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
		alarms, err := d.GetAlarms(ctx)
		if err != nil {
			return err
		}
		if !alarms[slot].IsConfigured() {
			upd = withNewAlarmDefaults(upd)
		}
		a, err := d.SetAlarm(ctx, slot, upd)
		if err != nil {
			return err
		}
		ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Alarm %d saved", slot), ui.Field{Key: "Alarm", Value: a.String()})
		return nil
	})
}

// withNewAlarmDefaults fills what a new alarm needs besides its time
func withNewAlarmDefaults(upd protocol.AlarmUpdate) protocol.AlarmUpdate {
	if upd.Enabled == nil {
		enabled := true
		upd.Enabled = &enabled
	}
	if upd.Days == nil {
		var once protocol.Weekday
		upd.Days = &once
	}
	if upd.Snooze == nil {
		snooze := false
		upd.Snooze = &snooze
	}
	return upd
}

var alarmsDeleteCmd = &cobra.Command{
	Use:   "delete SLOT|all",
	Short: "Delete one alarm or all of them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.EqualFold(args[0], "all") {
			if !assumeYes && !ui.ConfirmStdin("Delete every alarm on the clock?") {
				return nil
			}
			return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
				n, err := d.DeleteAllAlarms(ctx)
				if err != nil {
					return err
				}
				ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Deleted %d alarm(s)", n))
				return nil
			})
		}

		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		return withDevice(cmd.Context(), func(ctx context.Context, d *device.Device) error {
			if err := d.DeleteAlarm(ctx, slot); err != nil {
				return err
			}
			ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Alarm %d deleted", slot))
			return nil
		})
	},
}
