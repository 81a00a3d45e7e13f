package protocol

// Bit and nibble packing helpers for the configuration record.
//
// Flags byte (offset 5), each flag stored inverted (bit clear = primary value):
//
//	bit 0   language        0 = ZH, 1 = EN
//	bit 1   time format     0 = 24h, 1 = 12h
//	bit 2   temperature     0 = Celsius, 1 = Fahrenheit
//	bit 3   unused (written as 0)
//	bit 4   alarms master   0 = on, 1 = off
//	bit 5-7 unused (written as 0)
//
// Brightness byte (offset 8):
//
//	bits 7-4  daytime brightness / 10
//	bits 3-0  nighttime brightness / 10
const (
	FlagBitLanguage    = 0
	FlagBitTimeFormat  = 1
	FlagBitTemperature = 2
	FlagBitAlarmsOff   = 4
)

// setBit returns b with the given bit set when on is true, cleared otherwise.
func setBit(b byte, bit uint, on bool) byte {
	if on {
		return b | (1 << bit)
	}
	return b &^ (1 << bit)
}

// bitSet reports whether the given bit of b is 1.
func bitSet(b byte, bit uint) bool {
	return b&(1<<bit) != 0
}

// PackNibbles combines two 4-bit values into one byte (high, low).
// Values above 0x0F are truncated to their low nibble.
func PackNibbles(high, low byte) byte {
	return (high&0x0F)<<4 | low&0x0F
}

// UnpackNibbles splits a byte into its high and low nibbles.
func UnpackNibbles(b byte) (high, low byte) {
	return (b >> 4) & 0x0F, b & 0x0F
}

// PackBrightness encodes day/night brightness (0-100, step 10) into one byte.
func PackBrightness(day, night int) (byte, error) {
	if err := ValidateBrightness(day); err != nil {
		return 0, err
	}
	if err := ValidateBrightness(night); err != nil {
		return 0, err
	}
	return PackNibbles(byte(day/10), byte(night/10)), nil
}

// UnpackBrightness decodes the brightness byte into day/night percentages.
func UnpackBrightness(b byte) (day, night int) {
	high, low := UnpackNibbles(b)
	return int(high) * 10, int(low) * 10
}

// PackTimezone splits a signed minute offset into the magnitude byte
// (6-minute units) and the sign byte (1 = positive or zero).
func PackTimezone(minutes int) (magnitude byte, sign byte, err error) {
	if err := ValidateTimezoneOffset(minutes); err != nil {
		return 0, 0, err
	}
	if minutes < 0 {
		return byte(-minutes / TimezoneStepMinutes), 0, nil
	}
	return byte(minutes / TimezoneStepMinutes), 1, nil
}

// UnpackTimezone rebuilds the signed minute offset from its wire bytes.
// The result is always a multiple of 6.
func UnpackTimezone(magnitude, sign byte) int {
	minutes := int(magnitude) * TimezoneStepMinutes
	if sign == 1 {
		return minutes
	}
	return -minutes
}
