package config

import (
	"fmt"
	"time"

	"github.com/muurk/cgd1/internal/device"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/protocol"
)

// CurrentVersion is the settings file format version
const CurrentVersion = 1

// Settings is the whole user configuration file
type Settings struct {
	Version  int             `yaml:"version" mapstructure:"version"`
	Device   DeviceSettings  `yaml:"device" mapstructure:"device"`
	Timeouts Timeouts        `yaml:"timeouts" mapstructure:"timeouts"`
	Logging  LoggingSettings `yaml:"logging" mapstructure:"logging"`
	Bridge   BridgeSettings  `yaml:"bridge" mapstructure:"bridge"`

	// path the settings were loaded from; Save writes back there
	path string
}

// DeviceSettings identifies the clock and holds its pairing token.
// The token is stored in plain text; the file is created user-only (0600).
type DeviceSettings struct {
	Address string `yaml:"address,omitempty" mapstructure:"address"` // BLE address (e.g., "58:2D:34:00:00:01")
	Token   string `yaml:"token,omitempty" mapstructure:"token"`     // 32 hex digits
	Name    string `yaml:"name,omitempty" mapstructure:"name"`       // Friendly name shown by the CLI
}

// Timeouts mirrors device.Options
type Timeouts struct {
	Scan           time.Duration `yaml:"scan" mapstructure:"scan"`
	Connect        time.Duration `yaml:"connect" mapstructure:"connect"`
	Connection     time.Duration `yaml:"connection" mapstructure:"connection"`
	RetryInterval  time.Duration `yaml:"retry_interval" mapstructure:"retry_interval"`
	Response       time.Duration `yaml:"response" mapstructure:"response"`
	Settle         time.Duration `yaml:"settle" mapstructure:"settle"`
	IdleDisconnect time.Duration `yaml:"idle_disconnect" mapstructure:"idle_disconnect"`
	InitAck        time.Duration `yaml:"init_ack" mapstructure:"init_ack"`
	BlockAck       time.Duration `yaml:"block_ack" mapstructure:"block_ack"`
	PacketPace     time.Duration `yaml:"packet_pace" mapstructure:"packet_pace"`
	BlockPace      time.Duration `yaml:"block_pace" mapstructure:"block_pace"`
}

// LoggingSettings configures the log level and optional rotating file
type LoggingSettings struct {
	Level string       `yaml:"level,omitempty" mapstructure:"level"`
	File  FileSettings `yaml:"file,omitempty" mapstructure:"file"`
}

// FileSettings configures lumberjack rotation; an empty Filename disables file output
type FileSettings struct {
	Filename   string `yaml:"filename,omitempty" mapstructure:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups,omitempty" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress,omitempty" mapstructure:"compress"`
}

// BridgeSettings configures `cgd1 watch`
type BridgeSettings struct {
	Listen    string `yaml:"listen" mapstructure:"listen"`       // HTTP listen address
	Advertise bool   `yaml:"advertise" mapstructure:"advertise"` // Register _cgd1._tcp over mDNS
	Instance  string `yaml:"instance,omitempty" mapstructure:"instance"`
}

// DefaultSettings returns settings with the protocol timings and no device
func DefaultSettings() *Settings {
	opts := device.DefaultOptions()
	return &Settings{
		Version: CurrentVersion,
		Timeouts: Timeouts{
			Scan:           opts.ScanTimeout,
			Connect:        opts.ConnectTimeout,
			Connection:     opts.ConnectionTimeout,
			RetryInterval:  opts.RetryInterval,
			Response:       opts.ResponseTimeout,
			Settle:         opts.SettleDelay,
			IdleDisconnect: opts.IdleDisconnect,
			InitAck:        opts.InitAckTimeout,
			BlockAck:       opts.BlockAckTimeout,
			PacketPace:     opts.PacketPace,
			BlockPace:      opts.BlockPace,
		},
		Logging: LoggingSettings{
			File: FileSettings{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		},
		Bridge: BridgeSettings{Listen: ":8765"},
	}
}

// Path returns the file the settings were loaded from
func (s *Settings) Path() string { return s.path }

// ToOptions converts the timeouts to engine options
func (s *Settings) ToOptions() device.Options {
	t := s.Timeouts
	return device.Options{
		ScanTimeout:       t.Scan,
		ConnectTimeout:    t.Connect,
		ConnectionTimeout: t.Connection,
		RetryInterval:     t.RetryInterval,
		ResponseTimeout:   t.Response,
		SettleDelay:       t.Settle,
		IdleDisconnect:    t.IdleDisconnect,
		InitAckTimeout:    t.InitAck,
		BlockAckTimeout:   t.BlockAck,
		PacketPace:        t.PacketPace,
		BlockPace:         t.BlockPace,
	}
}

// FileOptions converts the file settings for logging.InitializeWithFile
func (l LoggingSettings) FileOptions() logging.FileOptions {
	return logging.FileOptions{
		Filename:   l.File.Filename,
		MaxSizeMB:  l.File.MaxSizeMB,
		MaxBackups: l.File.MaxBackups,
		MaxAgeDays: l.File.MaxAgeDays,
		Compress:   l.File.Compress,
	}
}

// SetToken validates raw and stores it in canonical form
func (s *Settings) SetToken(raw string) error {
	tok, err := protocol.ParseToken(raw)
	if err != nil {
		return err
	}
	s.Device.Token = tok.String()
	return nil
}

// Token parses the stored token
func (s *Settings) Token() (protocol.Token, error) {
	if s.Device.Token == "" {
		return protocol.Token{}, protocol.NewValidationError("no device token configured")
	}
	return protocol.ParseToken(s.Device.Token)
}

// MaskedToken returns the token with its middle hidden, or "" when unset
func (s *Settings) MaskedToken() string {
	tok, err := s.Token()
	if err != nil {
		return ""
	}
	return tok.Masked()
}

// RequireDevice checks that address and token are present and valid
func (s *Settings) RequireDevice() error {
	if s.Device.Address == "" {
		return protocol.NewValidationError("no device address configured (run: cgd1 config set --address MAC)")
	}
	if _, err := s.Token(); err != nil {
		return fmt.Errorf("%w (run: cgd1 config set --token HEX)", err)
	}
	return nil
}
