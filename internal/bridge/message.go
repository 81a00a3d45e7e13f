package bridge

import (
	"time"

	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/protocol"
)

// Message types besides the event kinds
const (
	TypeHello = "hello"
)

// Message is the JSON document sent to websocket clients
type Message struct {
	Type          string             `json:"type"`
	Session       string             `json:"session,omitempty"`
	At            time.Time          `json:"at"`
	Address       string             `json:"address"`
	Connected     *bool              `json:"connected,omitempty"`
	Configuration *ConfigurationView `json:"configuration,omitempty"`
	Alarms        []AlarmView        `json:"alarms,omitempty"`
	Partial       bool               `json:"partial,omitempty"`
}

// ConfigurationView is the JSON form of a configuration record
type ConfigurationView struct {
	SoundVolume         int       `json:"sound_volume"`
	Language            string    `json:"language"`
	TimeFormat          string    `json:"time_format"`
	TemperatureUnit     string    `json:"temperature_unit"`
	AlarmsEnabled       bool      `json:"alarms_enabled"`
	TimezoneOffset      int       `json:"timezone_offset_minutes"`
	BacklightSeconds    int       `json:"backlight_seconds"`
	DaytimeBrightness   int       `json:"daytime_brightness"`
	NighttimeBrightness int       `json:"nighttime_brightness"`
	NightMode           bool      `json:"night_mode"`
	NightStart          string    `json:"night_start"`
	NightEnd            string    `json:"night_end"`
	Ringtone            string    `json:"ringtone"`
	RingtoneName        string    `json:"ringtone_name"`
	CapturedAt          time.Time `json:"captured_at"`
}

// AlarmView is the JSON form of one alarm slot
type AlarmView struct {
	Slot       int    `json:"slot"`
	Configured bool   `json:"configured"`
	Enabled    bool   `json:"enabled,omitempty"`
	Time       string `json:"time,omitempty"`
	Days       string `json:"days,omitempty"`
	Snooze     bool   `json:"snooze,omitempty"`
}

// NewConfigurationView converts cfg; nil stays nil
func NewConfigurationView(cfg *protocol.Configuration) *ConfigurationView {
	if cfg == nil {
		return nil
	}
	return &ConfigurationView{
		SoundVolume:         cfg.SoundVolume(),
		Language:            cfg.Language().String(),
		TimeFormat:          cfg.TimeFormat().String(),
		TemperatureUnit:     cfg.TemperatureUnit().String(),
		AlarmsEnabled:       cfg.AlarmsEnabled(),
		TimezoneOffset:      cfg.TimezoneOffset(),
		BacklightSeconds:    cfg.BacklightSeconds(),
		DaytimeBrightness:   cfg.DaytimeBrightness(),
		NighttimeBrightness: cfg.NighttimeBrightness(),
		NightMode:           cfg.NightModeEnabled(),
		NightStart:          cfg.NightStart().String(),
		NightEnd:            cfg.NightEnd().String(),
		Ringtone:            cfg.Ringtone().String(),
		RingtoneName:        protocol.SignatureName(cfg.Ringtone()),
		CapturedAt:          cfg.CapturedAt(),
	}
}

// NewAlarmViews converts an alarm table, keeping slot order
func NewAlarmViews(alarms []protocol.Alarm) []AlarmView {
	if alarms == nil {
		return nil
	}
	views := make([]AlarmView, 0, len(alarms))
	for _, a := range alarms {
		v := AlarmView{Slot: a.Slot, Configured: a.IsConfigured()}
		if v.Configured {
			at, _ := a.Time()
			v.Enabled = *a.Enabled
			v.Time = at.String()
			v.Days = a.Days.String()
			v.Snooze = *a.Snooze
		}
		views = append(views, v)
	}
	return views
}

// EventMessage converts a bus event
func EventMessage(ev eventbus.Event) Message {
	msg := Message{
		Type:    ev.Kind.String(),
		At:      ev.At,
		Address: ev.Address,
	}
	switch ev.Kind {
	case eventbus.Connected, eventbus.Disconnected:
		up := ev.Kind == eventbus.Connected
		msg.Connected = &up
	case eventbus.ConfigurationUpdated:
		msg.Configuration = NewConfigurationView(ev.Configuration)
	case eventbus.AlarmsUpdated:
		msg.Alarms = NewAlarmViews(ev.Alarms)
		msg.Partial = ev.Partial
	}
	return msg
}
