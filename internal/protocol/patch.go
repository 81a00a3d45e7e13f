package protocol

import (
	"go.uber.org/multierr"
)

// ConfigPatch provides a fluent API for describing configuration changes.
// Only the fields that were set are applied; everything else keeps the
// value from the configuration the patch is applied to.
//
// Example usage:
//
//	patch := NewConfigPatch().
//	    SetSoundVolume(4).
//	    SetNightMode(true).
//	    SetNightStart(ClockTime{Hour: 22})
//	updated, err := patch.Apply(current)
type ConfigPatch struct {
	volume          *int
	language        *Language
	timeFormat      *TimeFormat
	temperatureUnit *TemperatureUnit
	alarmsEnabled   *bool
	timezone        *int
	backlight       *int
	dayBrightness   *int
	nightBrightness *int
	nightMode       *bool
	nightStart      *ClockTime
	nightEnd        *ClockTime
	ringtone        *Signature
}

// NewConfigPatch creates an empty patch
func NewConfigPatch() *ConfigPatch {
	return &ConfigPatch{}
}

// SetSoundVolume sets the alarm volume (1-5)
func (p *ConfigPatch) SetSoundVolume(v int) *ConfigPatch {
	p.volume = &v
	return p
}

// SetLanguage sets the display language
func (p *ConfigPatch) SetLanguage(l Language) *ConfigPatch {
	p.language = &l
	return p
}

// SetTimeFormat sets 12h/24h display
func (p *ConfigPatch) SetTimeFormat(f TimeFormat) *ConfigPatch {
	p.timeFormat = &f
	return p
}

// SetTemperatureUnit sets Celsius/Fahrenheit display
func (p *ConfigPatch) SetTemperatureUnit(u TemperatureUnit) *ConfigPatch {
	p.temperatureUnit = &u
	return p
}

// SetAlarmsEnabled sets the master alarm switch
func (p *ConfigPatch) SetAlarmsEnabled(enabled bool) *ConfigPatch {
	p.alarmsEnabled = &enabled
	return p
}

// SetTimezoneOffset sets the UTC offset in minutes
func (p *ConfigPatch) SetTimezoneOffset(minutes int) *ConfigPatch {
	p.timezone = &minutes
	return p
}

// SetBacklight sets the backlight duration in seconds (0 = off)
func (p *ConfigPatch) SetBacklight(seconds int) *ConfigPatch {
	p.backlight = &seconds
	return p
}

// SetDaytimeBrightness sets the day brightness (0-100, step 10)
func (p *ConfigPatch) SetDaytimeBrightness(v int) *ConfigPatch {
	p.dayBrightness = &v
	return p
}

// SetNighttimeBrightness sets the night brightness (0-100, step 10)
func (p *ConfigPatch) SetNighttimeBrightness(v int) *ConfigPatch {
	p.nightBrightness = &v
	return p
}

// SetNightMode toggles night mode. The toggle resets the night window, so it
// is applied before any explicit SetNightStart/SetNightEnd in the same patch.
func (p *ConfigPatch) SetNightMode(enabled bool) *ConfigPatch {
	p.nightMode = &enabled
	return p
}

// SetNightStart sets the start of the night window
func (p *ConfigPatch) SetNightStart(t ClockTime) *ConfigPatch {
	p.nightStart = &t
	return p
}

// SetNightEnd sets the end of the night window
func (p *ConfigPatch) SetNightEnd(t ClockTime) *ConfigPatch {
	p.nightEnd = &t
	return p
}

// SetRingtone sets the ringtone signature
func (p *ConfigPatch) SetRingtone(sig Signature) *ConfigPatch {
	p.ringtone = &sig
	return p
}

// IsEmpty reports whether the patch changes nothing
func (p *ConfigPatch) IsEmpty() bool {
	return *p == ConfigPatch{}
}

// Apply validates every set field against a copy of base and returns the
// result. All invalid fields are reported together; base is never modified.
func (p *ConfigPatch) Apply(base *Configuration) (*Configuration, error) {
	if base == nil {
		return nil, NewValidationError("no configuration to apply patch to")
	}

	cfg := base.Clone()
	var errs error

	if p.nightMode != nil {
		cfg.SetNightMode(*p.nightMode)
	}
	if p.volume != nil {
		errs = multierr.Append(errs, cfg.SetSoundVolume(*p.volume))
	}
	if p.timezone != nil {
		errs = multierr.Append(errs, cfg.SetTimezoneOffset(*p.timezone))
	}
	if p.backlight != nil {
		errs = multierr.Append(errs, cfg.SetBacklight(*p.backlight))
	}
	if p.dayBrightness != nil {
		errs = multierr.Append(errs, cfg.SetDaytimeBrightness(*p.dayBrightness))
	}
	if p.nightBrightness != nil {
		errs = multierr.Append(errs, cfg.SetNighttimeBrightness(*p.nightBrightness))
	}
	if p.nightStart != nil {
		errs = multierr.Append(errs, cfg.SetNightStart(*p.nightStart))
	}
	if p.nightEnd != nil {
		errs = multierr.Append(errs, cfg.SetNightEnd(*p.nightEnd))
	}
	if p.language != nil {
		cfg.SetLanguage(*p.language)
	}
	if p.timeFormat != nil {
		cfg.SetTimeFormat(*p.timeFormat)
	}
	if p.temperatureUnit != nil {
		cfg.SetTemperatureUnit(*p.temperatureUnit)
	}
	if p.alarmsEnabled != nil {
		cfg.SetAlarmsEnabled(*p.alarmsEnabled)
	}
	if p.ringtone != nil {
		cfg.SetRingtone(*p.ringtone)
	}

	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}
