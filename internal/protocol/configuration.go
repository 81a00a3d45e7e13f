package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Configuration record layout (20 bytes):
//
//	Offset  Size  Field
//	------  ----  -----
//	0       2     Opcode: 13 02 (read response) / 13 01 (write)
//	2       1     Sound volume (1-5)
//	3       2     Header bytes (round-tripped verbatim)
//	5       1     Flags (see bits.go)
//	6       1     Timezone magnitude in 6-minute units
//	7       1     Backlight seconds (0 = off)
//	8       1     Brightness nibbles (day/10, night/10)
//	9       2     Night start hour, minute
//	11      2     Night end hour, minute
//	13      1     Timezone sign (1 = positive or zero)
//	14      1     Night mode enabled (0/1)
//	15      1     Reserved (round-tripped verbatim)
//	16      4     Ringtone signature
const (
	ConfigurationLength = 20

	// ConfigurationValidity is how long a decoded configuration is trusted
	ConfigurationValidity = 30 * time.Minute
)

// Language is the display language of the clock
type Language byte

const (
	LanguageZH Language = 0
	LanguageEN Language = 1
)

func (l Language) String() string {
	if l == LanguageEN {
		return "en"
	}
	return "zh"
}

// ParseLanguage accepts "en" or "zh" (case-insensitive)
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en":
		return LanguageEN, nil
	case "zh", "cn":
		return LanguageZH, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unknown language %q, expected en or zh", s))
}

// TimeFormat selects 24-hour or 12-hour display
type TimeFormat byte

const (
	TimeFormat24h TimeFormat = 0
	TimeFormat12h TimeFormat = 1
)

func (f TimeFormat) String() string {
	if f == TimeFormat12h {
		return "12h"
	}
	return "24h"
}

// ParseTimeFormat accepts "12" / "12h" / "24" / "24h"
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24", "24h":
		return TimeFormat24h, nil
	case "12", "12h":
		return TimeFormat12h, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unknown time format %q, expected 12h or 24h", s))
}

// TemperatureUnit selects the temperature display unit
type TemperatureUnit byte

const (
	Celsius    TemperatureUnit = 0
	Fahrenheit TemperatureUnit = 1
)

func (u TemperatureUnit) String() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// ParseTemperatureUnit accepts "c" / "f" (case-insensitive)
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	}
	return 0, NewValidationError(fmt.Sprintf("unknown temperature unit %q, expected c or f", s))
}

// ClockTime is an hour/minute pair without a date
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime validates and builds a ClockTime
func NewClockTime(hour, minute int) (ClockTime, error) {
	if err := ValidateHour(hour); err != nil {
		return ClockTime{}, err
	}
	if err := ValidateMinute(minute); err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t ClockTime) validate() error {
	_, err := NewClockTime(t.Hour, t.Minute)
	return err
}

// Night windows forced by SetNightMode
var (
	NightModeOnStart  = ClockTime{Hour: 21, Minute: 0}
	NightModeOnEnd    = ClockTime{Hour: 6, Minute: 0}
	NightModeOffStart = ClockTime{Hour: 0, Minute: 0}
	NightModeOffEnd   = ClockTime{Hour: 0, Minute: 1}
)

// Configuration is the decoded device settings record.
//
// Fields are only reachable through validating setters, so a Configuration
// built by DecodeConfiguration and mutated through its setters or a
// ConfigPatch always encodes to a legal frame.
type Configuration struct {
	volume          int
	header          [2]byte
	language        Language
	timeFormat      TimeFormat
	temperatureUnit TemperatureUnit
	alarmsEnabled   bool
	timezone        int
	backlight       int
	dayBrightness   int
	nightBrightness int
	nightStart      ClockTime
	nightEnd        ClockTime
	nightMode       bool
	reserved        byte
	signature       Signature
	capturedAt      time.Time
}

// DecodeConfiguration parses a configuration frame captured at capturedAt.
// Both the read-response (13 02) and write (13 01) prefixes are accepted.
// Bytes past the 20-byte record are ignored.
func DecodeConfiguration(frame []byte, capturedAt time.Time) (*Configuration, error) {
	if len(frame) < ConfigurationLength {
		return nil, NewParseError(fmt.Sprintf("configuration frame must be %d bytes, got %d",
			ConfigurationLength, len(frame)))
	}
	if frame[0] != OpConfiguration || (frame[1] != SubConfigurationRead && frame[1] != SubConfigurationWrite) {
		return nil, NewParseError(fmt.Sprintf("not a configuration frame: % x", frame[:2]))
	}

	flags := frame[5]
	day, night := UnpackBrightness(frame[8])

	cfg := &Configuration{
		volume:          int(frame[2]),
		header:          [2]byte{frame[3], frame[4]},
		language:        LanguageZH,
		timeFormat:      TimeFormat24h,
		temperatureUnit: Celsius,
		alarmsEnabled:   !bitSet(flags, FlagBitAlarmsOff),
		timezone:        UnpackTimezone(frame[6], frame[13]),
		backlight:       int(frame[7]),
		dayBrightness:   day,
		nightBrightness: night,
		nightStart:      ClockTime{Hour: int(frame[9]), Minute: int(frame[10])},
		nightEnd:        ClockTime{Hour: int(frame[11]), Minute: int(frame[12])},
		nightMode:       frame[14] == 1,
		reserved:        frame[15],
		capturedAt:      capturedAt,
	}
	copy(cfg.signature[:], frame[16:20])

	if bitSet(flags, FlagBitLanguage) {
		cfg.language = LanguageEN
	}
	if bitSet(flags, FlagBitTimeFormat) {
		cfg.timeFormat = TimeFormat12h
	}
	if bitSet(flags, FlagBitTemperature) {
		cfg.temperatureUnit = Fahrenheit
	}

	return cfg, nil
}

// Encode validates the configuration and returns the 20-byte write frame (13 01 ...).
func (c *Configuration) Encode() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var flags byte
	flags = setBit(flags, FlagBitLanguage, c.language == LanguageEN)
	flags = setBit(flags, FlagBitTimeFormat, c.timeFormat == TimeFormat12h)
	flags = setBit(flags, FlagBitTemperature, c.temperatureUnit == Fahrenheit)
	flags = setBit(flags, FlagBitAlarmsOff, !c.alarmsEnabled)

	magnitude, sign, err := PackTimezone(c.timezone)
	if err != nil {
		return nil, err
	}
	brightness, err := PackBrightness(c.dayBrightness, c.nightBrightness)
	if err != nil {
		return nil, err
	}

	var nightMode byte
	if c.nightMode {
		nightMode = 1
	}

	frame := make([]byte, 0, ConfigurationLength)
	frame = append(frame, OpConfiguration, SubConfigurationWrite)
	frame = append(frame, byte(c.volume), c.header[0], c.header[1])
	frame = append(frame, flags, magnitude, byte(c.backlight), brightness)
	frame = append(frame,
		byte(c.nightStart.Hour), byte(c.nightStart.Minute),
		byte(c.nightEnd.Hour), byte(c.nightEnd.Minute))
	frame = append(frame, sign, nightMode, c.reserved)
	frame = append(frame, c.signature[:]...)

	return frame, nil
}

// Validate checks every field against its protocol range
func (c *Configuration) Validate() error {
	checks := []error{
		ValidateSoundVolume(c.volume),
		ValidateTimezoneOffset(c.timezone),
		ValidateBacklight(c.backlight),
		ValidateBrightness(c.dayBrightness),
		ValidateBrightness(c.nightBrightness),
		c.nightStart.validate(),
		c.nightEnd.validate(),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent copy
func (c *Configuration) Clone() *Configuration {
	cp := *c
	return &cp
}

// CapturedAt returns when the configuration was decoded
func (c *Configuration) CapturedAt() time.Time { return c.capturedAt }

// IsExpiredAt reports whether the configuration is older than ConfigurationValidity at now
func (c *Configuration) IsExpiredAt(now time.Time) bool {
	return now.After(c.capturedAt.Add(ConfigurationValidity))
}

// IsExpired reports whether the configuration must be refreshed before use
func (c *Configuration) IsExpired() bool {
	return c.IsExpiredAt(time.Now())
}

func (c *Configuration) SoundVolume() int                 { return c.volume }
func (c *Configuration) Language() Language               { return c.language }
func (c *Configuration) TimeFormat() TimeFormat           { return c.timeFormat }
func (c *Configuration) TemperatureUnit() TemperatureUnit { return c.temperatureUnit }
func (c *Configuration) AlarmsEnabled() bool              { return c.alarmsEnabled }
func (c *Configuration) TimezoneOffset() int              { return c.timezone }
func (c *Configuration) BacklightSeconds() int            { return c.backlight }
func (c *Configuration) DaytimeBrightness() int           { return c.dayBrightness }
func (c *Configuration) NighttimeBrightness() int         { return c.nightBrightness }
func (c *Configuration) NightStart() ClockTime            { return c.nightStart }
func (c *Configuration) NightEnd() ClockTime              { return c.nightEnd }
func (c *Configuration) NightModeEnabled() bool           { return c.nightMode }
func (c *Configuration) Ringtone() Signature              { return c.signature }

// SetSoundVolume sets the alarm volume (1-5)
func (c *Configuration) SetSoundVolume(volume int) error {
	if err := ValidateSoundVolume(volume); err != nil {
		return err
	}
	c.volume = volume
	return nil
}

// SetTimezoneOffset sets the UTC offset in minutes (±720, multiple of 6)
func (c *Configuration) SetTimezoneOffset(minutes int) error {
	if err := ValidateTimezoneOffset(minutes); err != nil {
		return err
	}
	c.timezone = minutes
	return nil
}

// SetBacklight sets how long the screen stays lit after a tap (0 = off)
func (c *Configuration) SetBacklight(seconds int) error {
	if err := ValidateBacklight(seconds); err != nil {
		return err
	}
	c.backlight = seconds
	return nil
}

// SetDaytimeBrightness sets the day brightness (0-100, step 10)
func (c *Configuration) SetDaytimeBrightness(value int) error {
	if err := ValidateBrightness(value); err != nil {
		return err
	}
	c.dayBrightness = value
	return nil
}

// SetNighttimeBrightness sets the night brightness (0-100, step 10)
func (c *Configuration) SetNighttimeBrightness(value int) error {
	if err := ValidateBrightness(value); err != nil {
		return err
	}
	c.nightBrightness = value
	return nil
}

// SetNightStart sets the start of the night window
func (c *Configuration) SetNightStart(t ClockTime) error {
	if err := t.validate(); err != nil {
		return err
	}
	c.nightStart = t
	return nil
}

// SetNightEnd sets the end of the night window
func (c *Configuration) SetNightEnd(t ClockTime) error {
	if err := t.validate(); err != nil {
		return err
	}
	c.nightEnd = t
	return nil
}

// SetNightMode toggles night mode and forces the window the clock expects:
// 21:00-06:00 when enabled, 00:00-00:01 when disabled.
func (c *Configuration) SetNightMode(enabled bool) {
	c.nightMode = enabled
	if enabled {
		c.nightStart, c.nightEnd = NightModeOnStart, NightModeOnEnd
	} else {
		c.nightStart, c.nightEnd = NightModeOffStart, NightModeOffEnd
	}
}

func (c *Configuration) SetLanguage(l Language)               { c.language = l }
func (c *Configuration) SetTimeFormat(f TimeFormat)           { c.timeFormat = f }
func (c *Configuration) SetTemperatureUnit(u TemperatureUnit) { c.temperatureUnit = u }
func (c *Configuration) SetAlarmsEnabled(enabled bool)        { c.alarmsEnabled = enabled }
func (c *Configuration) SetRingtone(sig Signature)            { c.signature = sig }

// String returns a one-line summary for logs
func (c *Configuration) String() string {
	return fmt.Sprintf("vol=%d lang=%s fmt=%s temp=%s alarms=%t tz=%s backlight=%ds bright=%d/%d night=%t(%s-%s) ringtone=%s",
		c.volume, c.language, c.timeFormat, c.temperatureUnit, c.alarmsEnabled,
		FormatTimezone(c.timezone), c.backlight, c.dayBrightness, c.nightBrightness,
		c.nightMode, c.nightStart, c.nightEnd, SignatureName(c.signature))
}
