package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/cgd1/internal/protocol"
)

// Field is one key/value line of a report
type Field struct {
	Key   string
	Value string
}

// RenderFields renders aligned key/value lines
func RenderFields(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, KeyStyle.Render(f.Key+":")+" "+ValueStyle.Render(f.Value))
	}
	return strings.Join(lines, "\n")
}

// RenderSection renders a titled block
func RenderSection(title string, body string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(strings.ToUpper(title)),
		Divider(width-4),
		body,
	)
	return BoxStyle(width, PrimaryColor).Render(content)
}

// RenderSuccess renders a one-line success result followed by optional details
func RenderSuccess(title string, fields []Field) string {
	out := SuccessStyle.Render(SuccessMarker + " " + title)
	if len(fields) > 0 {
		out += "\n" + RenderFields(fields)
	}
	return out
}

// RenderError renders err with its short message, the full chain and a
// troubleshooting hint
func RenderError(title string, err error, width int) string {
	lines := []string{ErrorStyle.Render(FailureMarker + "  " + title)}
	if err != nil {
		lines = append(lines, "",
			ValueStyle.Render(protocol.GetShortErrorMessage(err)),
			MutedStyle.Render(err.Error()),
			"",
			MutedStyle.Render(protocol.GetTroubleshootingHint(err)),
		)
	}
	return BoxStyle(width, ErrorColor).Render(strings.Join(lines, "\n"))
}

// RenderConfiguration renders every field of a configuration record
func RenderConfiguration(cfg *protocol.Configuration, width int) string {
	if cfg == nil {
		return RenderSection("Settings", MutedStyle.Render("no configuration received"), width)
	}
	fields := []Field{
		{"Sound volume", fmt.Sprintf("%d/5", cfg.SoundVolume())},
		{"Ringtone", fmt.Sprintf("%s (%s)", protocol.SignatureName(cfg.Ringtone()), cfg.Ringtone())},
		{"Master alarm switch", OnOff(cfg.AlarmsEnabled())},
		{"Language", cfg.Language().String()},
		{"Time format", cfg.TimeFormat().String()},
		{"Temperature unit", cfg.TemperatureUnit().String()},
		{"Timezone", "UTC" + protocol.FormatTimezone(cfg.TimezoneOffset())},
		{"Backlight", formatBacklight(cfg.BacklightSeconds())},
		{"Daytime brightness", fmt.Sprintf("%d%%", cfg.DaytimeBrightness())},
		{"Nighttime brightness", fmt.Sprintf("%d%%", cfg.NighttimeBrightness())},
		{"Night mode", OnOff(cfg.NightModeEnabled())},
		{"Night window", fmt.Sprintf("%s - %s", cfg.NightStart(), cfg.NightEnd())},
	}
	body := RenderFields(fields)
	if !cfg.CapturedAt().IsZero() {
		body += "\n\n" + MutedStyle.Render("read at "+cfg.CapturedAt().Format("2006-01-02 15:04:05"))
	}
	return RenderSection("Settings", body, width)
}

// RenderAlarms renders the alarm table, one line per slot
func RenderAlarms(alarms []protocol.Alarm, width int) string {
	if len(alarms) == 0 {
		return RenderSection("Alarms", MutedStyle.Render("no alarm data received"), width)
	}
	lines := make([]string, 0, len(alarms)+1)
	lines = append(lines, MutedStyle.Render(fmt.Sprintf("%-5s %-6s %-6s %-28s %s", "SLOT", "STATE", "TIME", "DAYS", "SNOOZE")))
	configured := 0
	for _, a := range alarms {
		if !a.IsConfigured() {
			lines = append(lines, MutedStyle.Render(fmt.Sprintf("%-5d %s", a.Slot, EmptyMarker)))
			continue
		}
		configured++
		at, _ := a.Time()
		state := DisabledStyle.Render(fmt.Sprintf("%-6s", "off"))
		if *a.Enabled {
			state = EnabledStyle.Render(fmt.Sprintf("%-6s", "on"))
		}
		lines = append(lines, fmt.Sprintf("%-5d %s %-6s %-28s %s",
			a.Slot, state, at, a.Days.String(), OnOff(*a.Snooze)))
	}
	lines = append(lines, "", MutedStyle.Render(fmt.Sprintf("%d of %d slots configured", configured, protocol.AlarmSlots)))
	return RenderSection("Alarms", strings.Join(lines, "\n"), width)
}

// RenderRingtones lists the built-in and custom ringtone names, marking the
// active one
func RenderRingtones(active *protocol.Signature, width int) string {
	names := append(protocol.BuiltinRingtoneNames(), "custom_dead", "custom_beef")
	current := ""
	if active != nil {
		current = protocol.SignatureName(*active)
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		if name == current {
			lines = append(lines, SuccessStyle.Render("● "+name))
			continue
		}
		lines = append(lines, ValueStyle.Render("  "+name))
	}
	return RenderSection("Ringtones", strings.Join(lines, "\n"), width)
}

func formatBacklight(seconds int) string {
	if seconds == 0 {
		return "off"
	}
	return fmt.Sprintf("%ds", seconds)
}
