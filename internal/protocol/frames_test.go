package protocol

import (
	"bytes"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  FrameKind
	}{
		{"init ack", []byte{0x04, 0xFF, 0x10}, FrameAck},
		{"block ack with status", []byte{0x04, 0xFF, 0x08, 0x00}, FrameAck},
		{"bare ack prefix", []byte{0x04, 0xFF}, FrameUnknown},
		{"configuration", scenarioFrame, FrameConfiguration},
		{"configuration write echo", []byte{0x13, 0x01, 0x00}, FrameUnknown},
		{"alarm fragment", []byte{0x11, 0x06, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, FrameAlarmSnapshot},
		{"auth echo", []byte{0x11, 0x01}, FrameUnknown},
		{"single byte", []byte{0x04}, FrameUnknown},
		{"empty", nil, FrameUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.frame); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAck(t *testing.T) {
	ack, err := ParseAck([]byte{0x04, 0xFF, 0x08, 0x00})
	if err != nil {
		t.Fatalf("ParseAck() error = %v", err)
	}
	if ack.Opcode != AckAudioBlock {
		t.Errorf("Opcode = %#x, want %#x", ack.Opcode, AckAudioBlock)
	}
	if !bytes.Equal(ack.Payload, []byte{0x00}) {
		t.Errorf("Payload = % x, want 00", ack.Payload)
	}

	if _, err := ParseAck([]byte{0x13, 0x02, 0x08}); err == nil {
		t.Error("ParseAck(non-ack) error = nil, want error")
	}
}

func TestParseAlarmFragment(t *testing.T) {
	rec := []byte{0x01, 0x06, 0x00, 0x1F, 0x00}

	tests := []struct {
		name      string
		frame     []byte
		wantBase  int
		wantCount int
		wantErr   bool
	}{
		{
			name:      "two records",
			frame:     append(append([]byte{0x11, 0x06, 0x00}, rec...), rec...),
			wantBase:  0,
			wantCount: 2,
		},
		{
			name:      "trailing partial record ignored",
			frame:     append(append([]byte{0x11, 0x06, 0x04}, rec...), 0x01, 0x02),
			wantBase:  4,
			wantCount: 1,
		},
		{
			name:      "records past slot 15 dropped",
			frame:     append(append([]byte{0x11, 0x06, 0x0F}, rec...), rec...),
			wantBase:  15,
			wantCount: 1,
		},
		{
			name:    "too short",
			frame:   []byte{0x11, 0x06, 0x00, 0x01},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, err := ParseAlarmFragment(tt.frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlarmFragment() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if frag.Base != tt.wantBase {
				t.Errorf("Base = %d, want %d", frag.Base, tt.wantBase)
			}
			if len(frag.Records) != tt.wantCount {
				t.Errorf("len(Records) = %d, want %d", len(frag.Records), tt.wantCount)
			}
		})
	}
}

func TestBuildAuthFrames(t *testing.T) {
	token, err := ParseToken("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	step1, step2 := BuildAuthFrames(token)

	if len(step1) != 18 || len(step2) != 18 {
		t.Fatalf("frame lengths = %d/%d, want 18/18", len(step1), len(step2))
	}
	if step1[0] != 0x11 || step1[1] != 0x01 {
		t.Errorf("step1 prefix = % x, want 11 01", step1[:2])
	}
	if step2[0] != 0x11 || step2[1] != 0x02 {
		t.Errorf("step2 prefix = % x, want 11 02", step2[:2])
	}
	if !bytes.Equal(step1[2:], token[:]) || !bytes.Equal(step2[2:], token[:]) {
		t.Error("token bytes not carried verbatim")
	}
}

func TestBuildTimeSet(t *testing.T) {
	ts := time.Unix(0x65A1B2C3, 0)
	got, err := BuildTimeSet(ts)
	if err != nil {
		t.Fatalf("BuildTimeSet() error = %v", err)
	}
	want := []byte{0x05, 0x09, 0xC3, 0xB2, 0xA1, 0x65}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildTimeSet() = % x, want % x", got, want)
	}

	if _, err := BuildTimeSet(time.Unix(-1, 0)); err == nil {
		t.Error("BuildTimeSet(negative) error = nil, want error")
	}
}

func TestBuildPreviews(t *testing.T) {
	vol := 3
	badVol := 9

	tests := []struct {
		name    string
		build   func() ([]byte, error)
		want    []byte
		wantErr bool
	}{
		{"brightness 70", func() ([]byte, error) { return BuildBrightnessPreview(70) }, []byte{0x02, 0x03, 0x07}, false},
		{"brightness 0", func() ([]byte, error) { return BuildBrightnessPreview(0) }, []byte{0x02, 0x03, 0x00}, false},
		{"brightness 75", func() ([]byte, error) { return BuildBrightnessPreview(75) }, nil, true},
		{"ringtone default volume", func() ([]byte, error) { return BuildRingtonePreview(nil) }, []byte{0x01, 0x04}, false},
		{"ringtone volume 3", func() ([]byte, error) { return BuildRingtonePreview(&vol) }, []byte{0x02, 0x04, 0x03}, false},
		{"ringtone volume 9", func() ([]byte, error) { return BuildRingtonePreview(&badVol) }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("got % x, want % x", got, tt.want)
			}
		})
	}
}

func TestBuildAudioInit(t *testing.T) {
	got, err := BuildAudioInit(600, CustomSlotBeef)
	if err != nil {
		t.Fatalf("BuildAudioInit() error = %v", err)
	}
	want := []byte{0x08, 0x10, 0x58, 0x02, 0x00, 0xBE, 0xEF, 0xBE, 0xEF}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildAudioInit() = % x, want % x", got, want)
	}

	for _, size := range []int{0, -1, MaxAudioSize + 1} {
		if _, err := BuildAudioInit(size, CustomSlotDead); err == nil {
			t.Errorf("BuildAudioInit(%d) error = nil, want error", size)
		}
	}
}

func TestBuildAudioPacket(t *testing.T) {
	pkt, err := BuildAudioPacket([]byte{0x80, 0x81})
	if err != nil {
		t.Fatalf("BuildAudioPacket() error = %v", err)
	}
	if len(pkt) != 2+AudioPacketSize {
		t.Fatalf("len = %d, want %d", len(pkt), 2+AudioPacketSize)
	}
	if pkt[0] != 0x81 || pkt[1] != 0x08 || pkt[2] != 0x80 || pkt[3] != 0x81 {
		t.Errorf("header/data = % x", pkt[:4])
	}
	for i := 4; i < len(pkt); i++ {
		if pkt[i] != 0xFF {
			t.Fatalf("padding byte %d = %#x, want 0xff", i, pkt[i])
		}
	}

	if _, err := BuildAudioPacket(make([]byte, AudioPacketSize+1)); err == nil {
		t.Error("BuildAudioPacket(oversized) error = nil, want error")
	}
}

func TestSplitAudioBlocks(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantBlocks int
		wantPadAt  int
	}{
		{"exact block", 512, 1, -1},
		{"one byte over", 513, 2, 513 - 512},
		{"600 bytes", 600, 2, 600 - 512},
		{"tiny", 1, 1, 1},
		{"empty", 0, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0x80}, tt.size)
			blocks := SplitAudioBlocks(payload)
			if len(blocks) != tt.wantBlocks {
				t.Fatalf("len(blocks) = %d, want %d", len(blocks), tt.wantBlocks)
			}
			for i, b := range blocks {
				if len(b) != AudioBlockSize {
					t.Errorf("block %d size = %d, want %d", i, len(b), AudioBlockSize)
				}
			}
			if tt.wantPadAt >= 0 {
				last := blocks[len(blocks)-1]
				if last[tt.wantPadAt-1] != 0x80 || last[tt.wantPadAt] != 0xFF || last[AudioBlockSize-1] != 0xFF {
					t.Errorf("padding starts at wrong offset in last block")
				}
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	step1, _ := BuildAuthFrames(Token{})
	tests := []struct {
		frame []byte
		want  string
	}{
		{[]byte{0x04, 0xFF, 0x10}, "ack"},
		{scenarioFrame, "configuration"},
		{[]byte{0x11, 0x06, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, "alarms"},
		{step1, "auth"},
		{[]byte{0x05, 0x09, 0, 0, 0, 0}, "time_set"},
		{BuildConfigurationRead(), "configuration_read"},
		{[]byte{0x13, 0x01}, "configuration_write"},
		{BuildAlarmsRead(), "alarms_read"},
		{[]byte{0x07, 0x05, 0x00}, "alarm_write"},
		{[]byte{0x02, 0x03, 0x05}, "brightness_preview"},
		{[]byte{0x01, 0x04}, "ringtone_preview"},
		{[]byte{0x02, 0x04, 0x03}, "ringtone_preview"},
		{[]byte{0x08, 0x10}, "audio_init"},
		{[]byte{0x81, 0x08}, "audio_data"},
		{[]byte{0x99, 0x99}, "unknown"},
		{nil, "unknown"},
	}
	for _, tt := range tests {
		if got := Describe(tt.frame); got != tt.want {
			t.Errorf("Describe(% x) = %q, want %q", tt.frame, got, tt.want)
		}
	}
}
