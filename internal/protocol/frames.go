package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Opcode bytes. Every frame starts with a two-byte prefix; the first byte
// alone is not unique (0x11 is both auth and alarm snapshot).
const (
	OpAuth           byte = 0x11
	SubAuthStep1     byte = 0x01
	SubAuthStep2     byte = 0x02
	SubAlarmSnapshot byte = 0x06

	OpConfiguration       byte = 0x13
	SubConfigurationRead  byte = 0x02
	SubConfigurationWrite byte = 0x01

	OpRead               byte = 0x01
	SubReadConfiguration byte = 0x02
	SubReadAlarms        byte = 0x06
	SubPreviewRingtone   byte = 0x04

	OpParam              byte = 0x02
	SubPreviewBrightness byte = 0x03

	OpTimeSet  byte = 0x05
	SubTimeSet byte = 0x09

	OpAlarmWrite  byte = 0x07
	SubAlarmWrite byte = 0x05

	OpAudioInit  byte = 0x08
	SubAudioInit byte = 0x10
	OpAudioData  byte = 0x81
	SubAudioData byte = 0x08

	OpAck  byte = 0x04
	SubAck byte = 0xFF
)

// Ack opcodes carried in the third byte of 04 FF frames
const (
	AckAudioInit  byte = 0x10
	AckAudioBlock byte = 0x08
)

// Audio transfer geometry
const (
	AudioPacketSize     = 128
	AudioPacketsInBlock = 4
	AudioBlockSize      = AudioPacketSize * AudioPacketsInBlock
	AudioPadByte        = 0xFF

	// MaxAudioSize is the largest payload the 24-bit size field can carry
	MaxAudioSize = 1<<24 - 1
)

// FrameKind classifies an inbound notification by prefix
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameAck
	FrameConfiguration
	FrameAlarmSnapshot
)

func (k FrameKind) String() string {
	switch k {
	case FrameAck:
		return "ack"
	case FrameConfiguration:
		return "configuration"
	case FrameAlarmSnapshot:
		return "alarms"
	default:
		return "unknown"
	}
}

// Classify returns the kind of an inbound frame, checking prefixes in
// dispatch order: ack, configuration, alarm snapshot.
func Classify(frame []byte) FrameKind {
	if len(frame) < 2 {
		return FrameUnknown
	}
	switch {
	case frame[0] == OpAck && frame[1] == SubAck && len(frame) >= 3:
		return FrameAck
	case frame[0] == OpConfiguration && frame[1] == SubConfigurationRead:
		return FrameConfiguration
	case frame[0] == OpAuth && frame[1] == SubAlarmSnapshot:
		return FrameAlarmSnapshot
	default:
		return FrameUnknown
	}
}

// Describe names a frame for logs and metrics, inbound or outbound
func Describe(frame []byte) string {
	if kind := Classify(frame); kind != FrameUnknown {
		return kind.String()
	}
	if len(frame) < 2 {
		return "unknown"
	}
	switch [2]byte{frame[0], frame[1]} {
	case [2]byte{OpAuth, SubAuthStep1}, [2]byte{OpAuth, SubAuthStep2}:
		return "auth"
	case [2]byte{OpTimeSet, SubTimeSet}:
		return "time_set"
	case [2]byte{OpRead, SubReadConfiguration}:
		return "configuration_read"
	case [2]byte{OpConfiguration, SubConfigurationWrite}:
		return "configuration_write"
	case [2]byte{OpRead, SubReadAlarms}:
		return "alarms_read"
	case [2]byte{OpAlarmWrite, SubAlarmWrite}:
		return "alarm_write"
	case [2]byte{OpParam, SubPreviewBrightness}:
		return "brightness_preview"
	case [2]byte{OpRead, SubPreviewRingtone}, [2]byte{OpParam, SubPreviewRingtone}:
		return "ringtone_preview"
	case [2]byte{OpAudioInit, SubAudioInit}:
		return "audio_init"
	case [2]byte{OpAudioData, SubAudioData}:
		return "audio_data"
	}
	return "unknown"
}

// Ack is a decoded 04 FF frame. The opcode alone identifies the waiter;
// any trailing bytes (the status byte on block acks) are payload.
type Ack struct {
	Opcode  byte
	Payload []byte
}

// ParseAck decodes an ack frame: 04 FF <opcode> [payload...]
func ParseAck(frame []byte) (Ack, error) {
	if Classify(frame) != FrameAck {
		return Ack{}, NewParseError(fmt.Sprintf("not an ack frame: % x", frame))
	}
	payload := make([]byte, len(frame)-3)
	copy(payload, frame[3:])
	return Ack{Opcode: frame[2], Payload: payload}, nil
}

// AlarmFragment is one notification of an alarm snapshot
type AlarmFragment struct {
	Base    int
	Records [][AlarmRecordLength]byte
}

// ParseAlarmFragment decodes 11 06 <base> <N x 5-byte records>.
// A trailing partial record is ignored; records past slot 15 are dropped.
func ParseAlarmFragment(frame []byte) (AlarmFragment, error) {
	if Classify(frame) != FrameAlarmSnapshot {
		return AlarmFragment{}, NewParseError(fmt.Sprintf("not an alarm fragment: % x", frame))
	}
	if len(frame) < 3+AlarmRecordLength {
		return AlarmFragment{}, NewParseError(fmt.Sprintf("alarm fragment too short: %d bytes", len(frame)))
	}

	frag := AlarmFragment{Base: int(frame[2])}
	body := frame[3:]
	for off := 0; off+AlarmRecordLength <= len(body); off += AlarmRecordLength {
		if frag.Base+len(frag.Records) >= AlarmSlots {
			break
		}
		var rec [AlarmRecordLength]byte
		copy(rec[:], body[off:off+AlarmRecordLength])
		frag.Records = append(frag.Records, rec)
	}
	return frag, nil
}

// BuildAuthFrames returns the two authentication frames:
//
//	11 01 <token 16>
//	11 02 <token 16>
func BuildAuthFrames(token Token) (step1, step2 []byte) {
	step1 = append([]byte{OpAuth, SubAuthStep1}, token[:]...)
	step2 = append([]byte{OpAuth, SubAuthStep2}, token[:]...)
	return step1, step2
}

// BuildTimeSet returns 05 09 <unix seconds, uint32 little-endian>
func BuildTimeSet(ts time.Time) ([]byte, error) {
	sec := ts.Unix()
	if sec < 0 || sec > int64(^uint32(0)) {
		return nil, NewValidationError(fmt.Sprintf("timestamp %d does not fit in 32 bits", sec))
	}
	frame := make([]byte, 6)
	frame[0], frame[1] = OpTimeSet, SubTimeSet
	binary.LittleEndian.PutUint32(frame[2:], uint32(sec))
	return frame, nil
}

// BuildConfigurationRead returns the 01 02 request
func BuildConfigurationRead() []byte {
	return []byte{OpRead, SubReadConfiguration}
}

// BuildAlarmsRead returns the 01 06 request
func BuildAlarmsRead() []byte {
	return []byte{OpRead, SubReadAlarms}
}

// BuildBrightnessPreview returns 02 03 <value/10>
func BuildBrightnessPreview(value int) ([]byte, error) {
	if err := ValidateBrightness(value); err != nil {
		return nil, err
	}
	return []byte{OpParam, SubPreviewBrightness, byte(value / BrightnessStep)}, nil
}

// BuildRingtonePreview returns 01 04, or 02 04 <volume> when a volume is given
func BuildRingtonePreview(volume *int) ([]byte, error) {
	if volume == nil {
		return []byte{OpRead, SubPreviewRingtone}, nil
	}
	if err := ValidateSoundVolume(*volume); err != nil {
		return nil, err
	}
	return []byte{OpParam, SubPreviewRingtone, byte(*volume)}, nil
}

// BuildAudioInit returns the upload header:
//
//	08 10 <size, 3 bytes little-endian> <signature 4>
func BuildAudioInit(size int, sig Signature) ([]byte, error) {
	if size <= 0 || size > MaxAudioSize {
		return nil, NewValidationError(fmt.Sprintf("audio payload must be 1..%d bytes, got %d", MaxAudioSize, size))
	}
	frame := []byte{OpAudioInit, SubAudioInit, byte(size), byte(size >> 8), byte(size >> 16)}
	return append(frame, sig[:]...), nil
}

// BuildAudioPacket returns 81 08 <chunk padded to 128 bytes with FF>
func BuildAudioPacket(chunk []byte) ([]byte, error) {
	if len(chunk) > AudioPacketSize {
		return nil, NewValidationError(fmt.Sprintf("audio packet chunk must be at most %d bytes, got %d",
			AudioPacketSize, len(chunk)))
	}
	frame := make([]byte, 2+AudioPacketSize)
	frame[0], frame[1] = OpAudioData, SubAudioData
	n := copy(frame[2:], chunk)
	for i := 2 + n; i < len(frame); i++ {
		frame[i] = AudioPadByte
	}
	return frame, nil
}

// SplitAudioBlocks pads the payload with FF to a whole number of blocks and
// returns them. Each block is AudioPacketsInBlock packets.
func SplitAudioBlocks(payload []byte) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	count := (len(payload) + AudioBlockSize - 1) / AudioBlockSize
	blocks := make([][]byte, count)
	for i := range blocks {
		block := make([]byte, AudioBlockSize)
		n := copy(block, payload[i*AudioBlockSize:])
		for j := n; j < AudioBlockSize; j++ {
			block[j] = AudioPadByte
		}
		blocks[i] = block
	}
	return blocks
}
