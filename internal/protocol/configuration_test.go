package protocol

import (
	"bytes"
	"testing"
	"time"
)

// scenarioFrame is a configuration read response captured from a real clock
var scenarioFrame = []byte{
	0x13, 0x02, 0x03, 0x58, 0x02, 0x00, 0x0A, 0x05, 0x55, 0x15,
	0x00, 0x06, 0x00, 0x01, 0x01, 0x00, 0x64, 0x64, 0x64, 0x64,
}

var captured = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecode(t *testing.T, frame []byte) *Configuration {
	t.Helper()
	cfg, err := DecodeConfiguration(frame, captured)
	if err != nil {
		t.Fatalf("DecodeConfiguration() error = %v", err)
	}
	return cfg
}

func TestDecodeConfiguration_CapturedFrame(t *testing.T) {
	cfg := mustDecode(t, scenarioFrame)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"volume", cfg.SoundVolume(), 3},
		{"timezone", cfg.TimezoneOffset(), 60},
		{"backlight", cfg.BacklightSeconds(), 5},
		{"day brightness", cfg.DaytimeBrightness(), 50},
		{"night brightness", cfg.NighttimeBrightness(), 50},
		{"night start", cfg.NightStart(), ClockTime{Hour: 21, Minute: 0}},
		{"night end", cfg.NightEnd(), ClockTime{Hour: 6, Minute: 0}},
		{"night mode", cfg.NightModeEnabled(), true},
		{"language", cfg.Language(), LanguageZH},
		{"time format", cfg.TimeFormat(), TimeFormat24h},
		{"temperature", cfg.TemperatureUnit(), Celsius},
		{"alarms", cfg.AlarmsEnabled(), true},
		{"ringtone", cfg.Ringtone(), Signature{0x64, 0x64, 0x64, 0x64}},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDecodeConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"too short", scenarioFrame[:19]},
		{"wrong opcode", append([]byte{0x11, 0x02}, scenarioFrame[2:]...)},
		{"wrong sub opcode", append([]byte{0x13, 0x07}, scenarioFrame[2:]...)},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfiguration(tt.frame, captured)
			if err == nil {
				t.Fatal("DecodeConfiguration() error = nil, want error")
			}
		})
	}
}

func TestConfiguration_EncodeCapturedFrame(t *testing.T) {
	cfg := mustDecode(t, scenarioFrame)
	got, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := append([]byte{0x13, 0x01}, scenarioFrame[2:]...)
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestConfiguration_RoundTrip(t *testing.T) {
	base := mustDecode(t, scenarioFrame)

	type mutation struct {
		name  string
		apply func(c *Configuration) error
	}
	fields := [][]mutation{
		{
			{"vol1", func(c *Configuration) error { return c.SetSoundVolume(1) }},
			{"vol5", func(c *Configuration) error { return c.SetSoundVolume(5) }},
		},
		{
			{"tz+720", func(c *Configuration) error { return c.SetTimezoneOffset(720) }},
			{"tz-720", func(c *Configuration) error { return c.SetTimezoneOffset(-720) }},
			{"tz-330", func(c *Configuration) error { return c.SetTimezoneOffset(-330) }},
			{"tz0", func(c *Configuration) error { return c.SetTimezoneOffset(0) }},
		},
		{
			{"backlight0", func(c *Configuration) error { return c.SetBacklight(0) }},
			{"backlight30", func(c *Configuration) error { return c.SetBacklight(30) }},
		},
		{
			{"bright0/100", func(c *Configuration) error {
				if err := c.SetDaytimeBrightness(0); err != nil {
					return err
				}
				return c.SetNighttimeBrightness(100)
			}},
			{"bright100/10", func(c *Configuration) error {
				if err := c.SetDaytimeBrightness(100); err != nil {
					return err
				}
				return c.SetNighttimeBrightness(10)
			}},
		},
		{
			{"night on", func(c *Configuration) error { c.SetNightMode(true); return nil }},
			{"night off", func(c *Configuration) error { c.SetNightMode(false); return nil }},
			{"night custom", func(c *Configuration) error {
				c.SetNightMode(true)
				if err := c.SetNightStart(ClockTime{Hour: 23, Minute: 59}); err != nil {
					return err
				}
				return c.SetNightEnd(ClockTime{Hour: 7, Minute: 30})
			}},
		},
		{
			{"en/12h/F/off", func(c *Configuration) error {
				c.SetLanguage(LanguageEN)
				c.SetTimeFormat(TimeFormat12h)
				c.SetTemperatureUnit(Fahrenheit)
				c.SetAlarmsEnabled(false)
				return nil
			}},
			{"zh/24h/C/on", func(c *Configuration) error {
				c.SetLanguage(LanguageZH)
				c.SetTimeFormat(TimeFormat24h)
				c.SetTemperatureUnit(Celsius)
				c.SetAlarmsEnabled(true)
				return nil
			}},
			{"en/24h/F/on", func(c *Configuration) error {
				c.SetLanguage(LanguageEN)
				c.SetTemperatureUnit(Fahrenheit)
				return nil
			}},
		},
		{
			{"dead", func(c *Configuration) error { c.SetRingtone(CustomSlotDead); return nil }},
			{"beep", func(c *Configuration) error { c.SetRingtone(BuiltinRingtones["beep"]); return nil }},
		},
	}

	// Walk the cartesian product of one mutation per field group
	var walk func(depth int, name string, cfg *Configuration)
	walk = func(depth int, name string, cfg *Configuration) {
		if depth == len(fields) {
			t.Run(name, func(t *testing.T) {
				frame, err := cfg.Encode()
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				got, err := DecodeConfiguration(frame, cfg.CapturedAt())
				if err != nil {
					t.Fatalf("DecodeConfiguration() error = %v", err)
				}
				if *got != *cfg {
					t.Errorf("round trip mismatch:\n got  %s\n want %s", got, cfg)
				}
			})
			return
		}
		for _, m := range fields[depth] {
			next := cfg.Clone()
			if err := m.apply(next); err != nil {
				t.Fatalf("%s: %v", m.name, err)
			}
			walk(depth+1, name+"/"+m.name, next)
		}
	}
	walk(0, "cfg", base)
}

func TestConfiguration_PreservesOpaqueBytes(t *testing.T) {
	frame := append([]byte(nil), scenarioFrame...)
	frame[3], frame[4], frame[15] = 0xAB, 0xCD, 0xEF

	cfg := mustDecode(t, frame)
	if err := cfg.SetSoundVolume(5); err != nil {
		t.Fatalf("SetSoundVolume() error = %v", err)
	}
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if out[3] != 0xAB || out[4] != 0xCD || out[15] != 0xEF {
		t.Errorf("opaque bytes = %02x %02x %02x, want ab cd ef", out[3], out[4], out[15])
	}
}

func TestConfiguration_EncodeClearsUnknownFlagBits(t *testing.T) {
	frame := append([]byte(nil), scenarioFrame...)
	frame[5] = 0xE9 // 1110 1001: language EN plus unused bits 3, 5-7

	cfg := mustDecode(t, frame)
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if out[5] != 0x01 {
		t.Errorf("flags = 0x%02x, want 0x01", out[5])
	}
}

func TestConfiguration_SetNightMode(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		wantStart ClockTime
		wantEnd   ClockTime
	}{
		{"enable resets to evening window", true, ClockTime{21, 0}, ClockTime{6, 0}},
		{"disable keeps a one minute window", false, ClockTime{0, 0}, ClockTime{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mustDecode(t, scenarioFrame)
			_ = cfg.SetNightStart(ClockTime{Hour: 19, Minute: 45})
			_ = cfg.SetNightEnd(ClockTime{Hour: 8, Minute: 15})

			cfg.SetNightMode(tt.enabled)

			if cfg.NightModeEnabled() != tt.enabled {
				t.Errorf("NightModeEnabled() = %v, want %v", cfg.NightModeEnabled(), tt.enabled)
			}
			if cfg.NightStart() != tt.wantStart {
				t.Errorf("NightStart() = %v, want %v", cfg.NightStart(), tt.wantStart)
			}
			if cfg.NightEnd() != tt.wantEnd {
				t.Errorf("NightEnd() = %v, want %v", cfg.NightEnd(), tt.wantEnd)
			}
		})
	}
}

func TestConfiguration_SetterBounds(t *testing.T) {
	tests := []struct {
		name    string
		set     func(c *Configuration) error
		wantErr bool
	}{
		{"timezone +720", func(c *Configuration) error { return c.SetTimezoneOffset(720) }, false},
		{"timezone -720", func(c *Configuration) error { return c.SetTimezoneOffset(-720) }, false},
		{"timezone +726", func(c *Configuration) error { return c.SetTimezoneOffset(726) }, true},
		{"timezone -726", func(c *Configuration) error { return c.SetTimezoneOffset(-726) }, true},
		{"timezone +61", func(c *Configuration) error { return c.SetTimezoneOffset(61) }, true},
		{"timezone -5", func(c *Configuration) error { return c.SetTimezoneOffset(-5) }, true},
		{"brightness 0", func(c *Configuration) error { return c.SetDaytimeBrightness(0) }, false},
		{"brightness 100", func(c *Configuration) error { return c.SetNighttimeBrightness(100) }, false},
		{"brightness 5", func(c *Configuration) error { return c.SetDaytimeBrightness(5) }, true},
		{"brightness 105", func(c *Configuration) error { return c.SetNighttimeBrightness(105) }, true},
		{"brightness -10", func(c *Configuration) error { return c.SetDaytimeBrightness(-10) }, true},
		{"volume 0", func(c *Configuration) error { return c.SetSoundVolume(0) }, true},
		{"volume 6", func(c *Configuration) error { return c.SetSoundVolume(6) }, true},
		{"backlight 0", func(c *Configuration) error { return c.SetBacklight(0) }, false},
		{"backlight 31", func(c *Configuration) error { return c.SetBacklight(31) }, true},
		{"night start 24:00", func(c *Configuration) error { return c.SetNightStart(ClockTime{24, 0}) }, true},
		{"night end 06:60", func(c *Configuration) error { return c.SetNightEnd(ClockTime{6, 60}) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mustDecode(t, scenarioFrame)
			before := *cfg
			err := tt.set(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !IsValidationError(err) {
					t.Errorf("error type = %T, want validation error", err)
				}
				if *cfg != before {
					t.Error("rejected setter modified the configuration")
				}
			}
		})
	}
}

func TestConfiguration_IsExpired(t *testing.T) {
	cfg := mustDecode(t, scenarioFrame)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just captured", captured, false},
		{"29 minutes later", captured.Add(29 * time.Minute), false},
		{"exactly 30 minutes", captured.Add(30 * time.Minute), false},
		{"31 minutes later", captured.Add(31 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsExpiredAt(tt.now); got != tt.want {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
