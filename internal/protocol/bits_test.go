package protocol

import "testing"

func TestPackNibbles(t *testing.T) {
	tests := []struct {
		high, low byte
		want      byte
	}{
		{0x0, 0x0, 0x00},
		{0x5, 0x5, 0x55},
		{0xA, 0x1, 0xA1},
		{0x1F, 0x2, 0xF2}, // high truncated to its low nibble
	}
	for _, tt := range tests {
		got := PackNibbles(tt.high, tt.low)
		if got != tt.want {
			t.Errorf("PackNibbles(%#x, %#x) = %#x, want %#x", tt.high, tt.low, got, tt.want)
		}
		h, l := UnpackNibbles(got)
		if h != tt.high&0x0F || l != tt.low&0x0F {
			t.Errorf("UnpackNibbles(%#x) = %#x, %#x", got, h, l)
		}
	}
}

func TestPackBrightness(t *testing.T) {
	tests := []struct {
		name       string
		day, night int
		want       byte
		wantErr    bool
	}{
		{"both zero", 0, 0, 0x00, false},
		{"both full", 100, 100, 0xAA, false},
		{"half", 50, 50, 0x55, false},
		{"mixed", 70, 20, 0x72, false},
		{"day not multiple of ten", 55, 20, 0, true},
		{"night above range", 50, 110, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PackBrightness(tt.day, tt.night)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PackBrightness() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("PackBrightness() = %#x, want %#x", got, tt.want)
			}
			day, night := UnpackBrightness(got)
			if day != tt.day || night != tt.night {
				t.Errorf("UnpackBrightness() = %d/%d, want %d/%d", day, night, tt.day, tt.night)
			}
		})
	}
}

func TestPackTimezone(t *testing.T) {
	tests := []struct {
		name          string
		minutes       int
		wantMagnitude byte
		wantSign      byte
		wantErr       bool
	}{
		{"utc", 0, 0, 1, false},
		{"plus one hour", 60, 10, 1, false},
		{"minus five thirty", -330, 55, 0, false},
		{"plus twelve", 720, 120, 1, false},
		{"minus twelve", -720, 120, 0, false},
		{"out of range", 726, 0, 0, true},
		{"not a multiple of six", 45, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mag, sign, err := PackTimezone(tt.minutes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PackTimezone() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if mag != tt.wantMagnitude || sign != tt.wantSign {
				t.Errorf("PackTimezone() = (%d, %d), want (%d, %d)", mag, sign, tt.wantMagnitude, tt.wantSign)
			}
			if got := UnpackTimezone(mag, sign); got != tt.minutes {
				t.Errorf("UnpackTimezone() = %d, want %d", got, tt.minutes)
			}
		})
	}
}

func TestSetBit(t *testing.T) {
	var b byte
	b = setBit(b, FlagBitAlarmsOff, true)
	if b != 0x10 {
		t.Errorf("setBit on = %#x, want 0x10", b)
	}
	if !bitSet(b, FlagBitAlarmsOff) {
		t.Error("bitSet() = false after setBit")
	}
	b = setBit(b, FlagBitAlarmsOff, false)
	if b != 0 {
		t.Errorf("setBit off = %#x, want 0", b)
	}
}
