package logging

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger enabled without a level")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) || core.Enabled(zapcore.InfoLevel) {
		t.Error("level from environment not applied")
	}
}

func TestInitialize_UnknownLevel(t *testing.T) {
	if err := Initialize("loud"); err == nil {
		t.Error("Initialize(loud) error = nil, want error")
	}
}

func TestInitializeWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cgd1.log")
	if err := InitializeWithFile("info", FileOptions{Filename: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("InitializeWithFile() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info not enabled")
	}
	SetLogger(zap.NewNop())
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	LogFrame(l, "rx", "cfg-read", []byte{0x04, 0xFF, 0x10})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "04ff10" {
		t.Errorf("hex = %v, want 04ff10", fields["hex"])
	}
	if fields["direction"] != "rx" {
		t.Errorf("direction = %v, want rx", fields["direction"])
	}
}

func TestLogFrame_SkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogFrame(zap.New(core), "tx", "main", []byte{0x01})
	if logs.Len() != 0 {
		t.Errorf("entries = %d, want 0", logs.Len())
	}
}

func TestHexDump_Truncates(t *testing.T) {
	got := hexDump(make([]byte, 300))
	if !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("hexDump(300 bytes) length = %d", len(got))
	}
	if asciiDump([]byte("a\x00b")) != "a.b" {
		t.Error("asciiDump did not mask non-printables")
	}
}

func TestLogRawBytes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	LogRawBytes(zap.New(core), "ignoring notification", []byte("ok\x01"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Message != "ignoring notification" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if fields["hex"] != "6f6b01" || fields["ascii"] != "ok." {
		t.Errorf("fields = %v", fields)
	}

	quiet, none := observer.New(zapcore.InfoLevel)
	LogRawBytes(zap.New(quiet), "x", []byte{0x01})
	if none.Len() != 0 {
		t.Errorf("entries above debug = %d, want 0", none.Len())
	}
}
