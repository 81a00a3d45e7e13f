package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// Alarm slot record layout (5 bytes):
//
//	Offset  Field
//	------  -----
//	0       Enabled (0/1)
//	1       Hour (0-23)
//	2       Minute (0-59)
//	3       Day mask (bit 0 = Monday ... bit 6 = Sunday, 0 = once)
//	4       Snooze (0/1)
//
// FF FF FF FF FF marks an empty slot.
const (
	AlarmSlots        = 16
	AlarmRecordLength = 5
)

// EmptyAlarmRecord is the sentinel written for an unconfigured slot
var EmptyAlarmRecord = [AlarmRecordLength]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Weekday is a repeat mask with Monday in bit 0
type Weekday byte

const (
	Monday Weekday = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const (
	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend  = Saturday | Sunday
	EveryDay = Weekdays | Weekend
)

var weekdayOrder = []struct {
	day  Weekday
	name string
}{
	{Monday, "mon"}, {Tuesday, "tue"}, {Wednesday, "wed"}, {Thursday, "thu"},
	{Friday, "fri"}, {Saturday, "sat"}, {Sunday, "sun"},
}

// String renders the mask as "once", "weekdays", "weekend", "all" or "mon,wed,..."
func (w Weekday) String() string {
	switch w & EveryDay {
	case 0:
		return "once"
	case Weekdays:
		return "weekdays"
	case Weekend:
		return "weekend"
	case EveryDay:
		return "all"
	}
	var names []string
	for _, d := range weekdayOrder {
		if w&d.day != 0 {
			names = append(names, d.name)
		}
	}
	return strings.Join(names, ",")
}

// Alarm is one slot of the clock's alarm table.
//
// Each logical field is optional: a nil field means "not present". An alarm
// is configured only when all five are present; anything else encodes as the
// empty sentinel.
type Alarm struct {
	Slot    int
	Enabled *bool
	Hour    *int
	Minute  *int
	Days    *Weekday
	Snooze  *bool
}

// NewAlarm builds a fully configured alarm
func NewAlarm(slot int, enabled bool, at ClockTime, days Weekday, snooze bool) Alarm {
	hour, minute := at.Hour, at.Minute
	return Alarm{
		Slot:    slot,
		Enabled: &enabled,
		Hour:    &hour,
		Minute:  &minute,
		Days:    &days,
		Snooze:  &snooze,
	}
}

// EmptyAlarm returns an unconfigured slot
func EmptyAlarm(slot int) Alarm {
	return Alarm{Slot: slot}
}

// DecodeAlarm parses a 5-byte slot record
func DecodeAlarm(slot int, record []byte) (Alarm, error) {
	if len(record) != AlarmRecordLength {
		return Alarm{}, NewParseError(fmt.Sprintf("alarm record must be %d bytes, got %d",
			AlarmRecordLength, len(record)))
	}
	if bytes.Equal(record, EmptyAlarmRecord[:]) {
		return EmptyAlarm(slot), nil
	}
	return NewAlarm(slot,
		record[0] == 1,
		ClockTime{Hour: int(record[1]), Minute: int(record[2])},
		Weekday(record[3]),
		record[4] == 1,
	), nil
}

// IsConfigured reports whether every field is present
func (a Alarm) IsConfigured() bool {
	return a.Enabled != nil && a.Hour != nil && a.Minute != nil && a.Days != nil && a.Snooze != nil
}

// Time returns the alarm time if both hour and minute are present
func (a Alarm) Time() (ClockTime, bool) {
	if a.Hour == nil || a.Minute == nil {
		return ClockTime{}, false
	}
	return ClockTime{Hour: *a.Hour, Minute: *a.Minute}, true
}

// Deactivate clears every field so the slot encodes as empty
func (a *Alarm) Deactivate() {
	a.Enabled = nil
	a.Hour = nil
	a.Minute = nil
	a.Days = nil
	a.Snooze = nil
}

// EncodeRecord returns the 5-byte slot record. Unconfigured alarms always
// produce the empty sentinel.
func (a Alarm) EncodeRecord() ([AlarmRecordLength]byte, error) {
	if !a.IsConfigured() {
		return EmptyAlarmRecord, nil
	}
	if err := ValidateHour(*a.Hour); err != nil {
		return EmptyAlarmRecord, err
	}
	if err := ValidateMinute(*a.Minute); err != nil {
		return EmptyAlarmRecord, err
	}
	if *a.Days&^EveryDay != 0 {
		return EmptyAlarmRecord, NewValidationError(fmt.Sprintf("invalid day mask 0x%02x", byte(*a.Days)))
	}

	return [AlarmRecordLength]byte{
		boolByte(*a.Enabled),
		byte(*a.Hour),
		byte(*a.Minute),
		byte(*a.Days),
		boolByte(*a.Snooze),
	}, nil
}

// Encode returns the slot write frame: 07 05 <slot> <record>
func (a Alarm) Encode() ([]byte, error) {
	if err := ValidateSlot(a.Slot); err != nil {
		return nil, err
	}
	record, err := a.EncodeRecord()
	if err != nil {
		return nil, err
	}
	frame := []byte{OpAlarmWrite, SubAlarmWrite, byte(a.Slot)}
	return append(frame, record[:]...), nil
}

// Clone returns a deep copy so callers can mutate without touching a cached snapshot
func (a Alarm) Clone() Alarm {
	cp := Alarm{Slot: a.Slot}
	if a.Enabled != nil {
		v := *a.Enabled
		cp.Enabled = &v
	}
	if a.Hour != nil {
		v := *a.Hour
		cp.Hour = &v
	}
	if a.Minute != nil {
		v := *a.Minute
		cp.Minute = &v
	}
	if a.Days != nil {
		v := *a.Days
		cp.Days = &v
	}
	if a.Snooze != nil {
		v := *a.Snooze
		cp.Snooze = &v
	}
	return cp
}

// Equal compares field values rather than pointers
func (a Alarm) Equal(b Alarm) bool {
	return a.Slot == b.Slot &&
		eqPtr(a.Enabled, b.Enabled) &&
		eqPtr(a.Hour, b.Hour) &&
		eqPtr(a.Minute, b.Minute) &&
		eqPtr(a.Days, b.Days) &&
		eqPtr(a.Snooze, b.Snooze)
}

func (a Alarm) String() string {
	if !a.IsConfigured() {
		return fmt.Sprintf("#%d empty", a.Slot)
	}
	state := "off"
	if *a.Enabled {
		state = "on"
	}
	t, _ := a.Time()
	return fmt.Sprintf("#%d %s %s %s snooze=%t", a.Slot, state, t, *a.Days, *a.Snooze)
}

// AlarmUpdate carries the fields to change on one slot; nil fields are left as-is
type AlarmUpdate struct {
	Enabled *bool
	Time    *ClockTime
	Days    *Weekday
	Snooze  *bool
}

// IsEmpty reports whether the update changes nothing
func (u AlarmUpdate) IsEmpty() bool {
	return u.Enabled == nil && u.Time == nil && u.Days == nil && u.Snooze == nil
}

// Apply merges the update into a copy of a and returns it
func (u AlarmUpdate) Apply(a Alarm) (Alarm, error) {
	out := a.Clone()
	if u.Enabled != nil {
		v := *u.Enabled
		out.Enabled = &v
	}
	if u.Time != nil {
		if err := u.Time.validate(); err != nil {
			return a, err
		}
		h, m := u.Time.Hour, u.Time.Minute
		out.Hour, out.Minute = &h, &m
	}
	if u.Days != nil {
		if *u.Days&^EveryDay != 0 {
			return a, NewValidationError(fmt.Sprintf("invalid day mask 0x%02x", byte(*u.Days)))
		}
		v := *u.Days
		out.Days = &v
	}
	if u.Snooze != nil {
		v := *u.Snooze
		out.Snooze = &v
	}
	return out, nil
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
