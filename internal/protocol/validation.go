package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Validation ranges for configuration and alarm fields
const (
	MinSoundVolume = 1
	MaxSoundVolume = 5

	MinBacklightSeconds = 0
	MaxBacklightSeconds = 30

	MinBrightness  = 0
	MaxBrightness  = 100
	BrightnessStep = 10

	MaxTimezoneMinutes  = 720
	TimezoneStepMinutes = 6
)

// ValidateSoundVolume checks if the volume is within the valid range (1-5)
func ValidateSoundVolume(volume int) error {
	if volume < MinSoundVolume || volume > MaxSoundVolume {
		return NewValidationError(fmt.Sprintf("sound volume must be between %d and %d, got %d",
			MinSoundVolume, MaxSoundVolume, volume))
	}
	return nil
}

// ValidateBacklight checks the screen backlight duration (0 = off)
func ValidateBacklight(seconds int) error {
	if seconds < MinBacklightSeconds || seconds > MaxBacklightSeconds {
		return NewValidationError(fmt.Sprintf("backlight must be between %d and %d seconds, got %d",
			MinBacklightSeconds, MaxBacklightSeconds, seconds))
	}
	return nil
}

// ValidateBrightness checks a brightness percentage (0-100, multiple of 10)
func ValidateBrightness(value int) error {
	if value < MinBrightness || value > MaxBrightness {
		return NewValidationError(fmt.Sprintf("brightness must be between %d and %d, got %d",
			MinBrightness, MaxBrightness, value))
	}
	if value%BrightnessStep != 0 {
		return NewValidationError(fmt.Sprintf("brightness must be a multiple of %d, got %d",
			BrightnessStep, value))
	}
	return nil
}

// ValidateTimezoneOffset checks a signed offset in minutes (±720, multiple of 6)
func ValidateTimezoneOffset(minutes int) error {
	if minutes < -MaxTimezoneMinutes || minutes > MaxTimezoneMinutes {
		return NewValidationError(fmt.Sprintf("timezone offset must be between -%d and +%d minutes, got %d",
			MaxTimezoneMinutes, MaxTimezoneMinutes, minutes))
	}
	if minutes%TimezoneStepMinutes != 0 {
		return NewValidationError(fmt.Sprintf("timezone offset must be a multiple of %d minutes, got %d",
			TimezoneStepMinutes, minutes))
	}
	return nil
}

// ValidateHour checks an hour of day (0-23)
func ValidateHour(hour int) error {
	if hour < 0 || hour > 23 {
		return NewValidationError(fmt.Sprintf("hour must be between 0 and 23, got %d", hour))
	}
	return nil
}

// ValidateMinute checks a minute of hour (0-59)
func ValidateMinute(minute int) error {
	if minute < 0 || minute > 59 {
		return NewValidationError(fmt.Sprintf("minute must be between 0 and 59, got %d", minute))
	}
	return nil
}

// ValidateSlot checks an alarm slot index
func ValidateSlot(slot int) error {
	if slot < 0 || slot >= AlarmSlots {
		return NewValidationError(fmt.Sprintf("alarm slot must be between 0 and %d, got %d",
			AlarmSlots-1, slot))
	}
	return nil
}

// ParseClock parses "HH:MM" into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, NewValidationError(fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return ClockTime{}, NewValidationError(fmt.Sprintf("invalid hour in %q", s))
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return ClockTime{}, NewValidationError(fmt.Sprintf("invalid minute in %q", s))
	}
	return NewClockTime(hour, minute)
}

// ParseTimezone parses "+HH:MM", "-HH:MM" or a plain signed minute count.
// The result is validated with ValidateTimezoneOffset.
func ParseTimezone(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewValidationError("empty timezone")
	}

	var minutes int
	if strings.Contains(s, ":") {
		sign := 1
		body := s
		switch s[0] {
		case '+':
			body = s[1:]
		case '-':
			sign = -1
			body = s[1:]
		}
		hh, mm, _ := strings.Cut(body, ":")
		h, err1 := strconv.Atoi(hh)
		m, err2 := strconv.Atoi(mm)
		if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 {
			return 0, NewValidationError(fmt.Sprintf("invalid timezone %q, expected ±HH:MM", s))
		}
		minutes = sign * (h*60 + m)
	} else {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, NewValidationError(fmt.Sprintf("invalid timezone %q, expected ±HH:MM or minutes", s))
		}
		minutes = v
	}

	if err := ValidateTimezoneOffset(minutes); err != nil {
		return 0, err
	}
	return minutes, nil
}

// FormatTimezone renders a minute offset as "+HH:MM" / "-HH:MM".
func FormatTimezone(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}

var dayNames = map[string]Weekday{
	"mon": Monday, "tue": Tuesday, "wed": Wednesday, "thu": Thursday,
	"fri": Friday, "sat": Saturday, "sun": Sunday,
}

// ParseDays parses a day specification into a Weekday mask.
//
// Accepted forms:
//
//	once       no repeat (mask 0)
//	weekdays   Mon-Fri
//	weekend    Sat, Sun
//	all        every day
//	mon,tue    comma separated three-letter day names
func ParseDays(spec string) (Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	switch s {
	case "once", "none", "":
		return 0, nil
	case "weekdays":
		return Weekdays, nil
	case "weekend":
		return Weekend, nil
	case "all", "daily", "everyday":
		return EveryDay, nil
	}

	var mask Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, ok := dayNames[part]
		if !ok {
			return 0, NewValidationError(fmt.Sprintf("unknown day %q in %q", part, spec))
		}
		mask |= d
	}
	return mask, nil
}
