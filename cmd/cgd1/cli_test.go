package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/config"
	"github.com/muurk/cgd1/internal/protocol"
)

func TestParseAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)

	got, err := parseAt("", now)
	if err != nil || !got.Equal(now) {
		t.Errorf("parseAt(\"\") = %v, %v", got, err)
	}

	got, err = parseAt("1700000000", now)
	if err != nil || got.Unix() != 1700000000 {
		t.Errorf("parseAt(epoch) = %v, %v", got, err)
	}

	got, err = parseAt("2025-01-02 07:30", now)
	if err != nil {
		t.Fatalf("parseAt(date) error = %v", err)
	}
	if got.Hour() != 7 || got.Minute() != 30 || got.Day() != 2 {
		t.Errorf("parseAt(date) = %v", got)
	}

	if _, err := parseAt("tomorrow", now); !protocol.IsValidationError(err) {
		t.Errorf("parseAt(bad) error = %v, want validation error", err)
	}
}

func TestTimezoneFor(t *testing.T) {
	defer func() { timeTZ, noTZ = "", false }()

	noTZ = true
	if tz, err := timezoneFor(time.Now()); err != nil || tz != nil {
		t.Errorf("timezoneFor(--no-tz) = %v, %v", tz, err)
	}

	noTZ, timeTZ = false, "+05:30"
	tz, err := timezoneFor(time.Now())
	if err != nil || tz == nil || *tz != 330 {
		t.Errorf("timezoneFor(+05:30) = %v, %v", tz, err)
	}

	timeTZ = ""
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.FixedZone("test", 2*3600))
	tz, err = timezoneFor(ts)
	if err != nil || tz == nil || *tz != 120 {
		t.Errorf("timezoneFor(local) = %v, %v", tz, err)
	}
}

func TestBuildPatch(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(settingsSetCmd.Flags())

	if _, err := buildPatch(cmd); !protocol.IsValidationError(err) {
		t.Fatalf("buildPatch(no flags) error = %v, want validation error", err)
	}

	if err := cmd.Flags().Set("volume", "4"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("night-start", "22:15"); err != nil {
		t.Fatal(err)
	}
	patch, err := buildPatch(cmd)
	if err != nil {
		t.Fatalf("buildPatch() error = %v", err)
	}

	base, err := protocol.DecodeConfiguration([]byte{0x13, 0x02, 0x03, 0x58, 0x02, 0x00, 0x0A, 0x05, 0x55, 0x15, 0x00, 0x06, 0x00, 0x01, 0x01, 0x00, 0x64, 0x64, 0x64, 0x64}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	updated, err := patch.Apply(base)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if updated.SoundVolume() != 4 || updated.NightStart().String() != "22:15" {
		t.Errorf("patched = %s", updated)
	}
}

func TestBuildAlarmUpdate(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(alarmsSetCmd.Flags())

	if _, err := buildAlarmUpdate(cmd); !protocol.IsValidationError(err) {
		t.Fatalf("buildAlarmUpdate(no flags) error = %v", err)
	}

	if err := cmd.Flags().Set("time", "06:45"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("disable", "true"); err != nil {
		t.Fatal(err)
	}
	upd, err := buildAlarmUpdate(cmd)
	if err != nil {
		t.Fatalf("buildAlarmUpdate() error = %v", err)
	}
	if upd.Time == nil || upd.Time.Hour != 6 || upd.Enabled == nil || *upd.Enabled {
		t.Errorf("update = %+v", upd)
	}

	filled := withNewAlarmDefaults(upd)
	if *filled.Enabled || filled.Days == nil || *filled.Days != 0 || filled.Snooze == nil {
		t.Errorf("defaults = %+v", filled)
	}
}

func TestParseSlot(t *testing.T) {
	if slot, err := parseSlot("15"); err != nil || slot != 15 {
		t.Errorf("parseSlot(15) = %d, %v", slot, err)
	}
	for _, bad := range []string{"16", "-1", "x"} {
		if _, err := parseSlot(bad); !protocol.IsValidationError(err) {
			t.Errorf("parseSlot(%q) error = %v", bad, err)
		}
	}
}

func TestOpenDevice_RequiresCredentials(t *testing.T) {
	settings = config.DefaultSettings()
	defer func() { settings = nil }()

	if _, err := openDevice(nil); err == nil {
		t.Fatal("openDevice() without address succeeded")
	}
}

func TestParseNightWindow(t *testing.T) {
	start, end, err := parseNightWindow("22:00", "07:30")
	if err != nil {
		t.Fatalf("parseNightWindow() error = %v", err)
	}
	if start != (protocol.ClockTime{Hour: 22}) || end != (protocol.ClockTime{Hour: 7, Minute: 30}) {
		t.Errorf("parseNightWindow() = %v, %v", start, end)
	}

	if _, _, err := parseNightWindow("22:00", "7pm"); !protocol.IsValidationError(err) {
		t.Errorf("parseNightWindow(bad end) error = %v, want validation error", err)
	}
	if _, _, err := parseNightWindow("24:00", "07:00"); !protocol.IsValidationError(err) {
		t.Errorf("parseNightWindow(bad start) error = %v, want validation error", err)
	}
}
