package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "cgd1"
	configFile = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. CGD1_DEVICE_ADDRESS
	EnvPrefix = "CGD1"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/cgd1 or $HOME/.config/cgd1
//   - macOS: $HOME/.config/cgd1 (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\cgd1
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads settings from path (the default location when empty), layering
// defaults, the YAML file and CGD1_* environment variables. A missing file
// is not an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if s.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}
	s.path = path
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("version", d.Version)

	v.SetDefault("device.address", "")
	v.SetDefault("device.token", "")
	v.SetDefault("device.name", "")

	v.SetDefault("timeouts.scan", d.Timeouts.Scan)
	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.connection", d.Timeouts.Connection)
	v.SetDefault("timeouts.retry_interval", d.Timeouts.RetryInterval)
	v.SetDefault("timeouts.response", d.Timeouts.Response)
	v.SetDefault("timeouts.settle", d.Timeouts.Settle)
	v.SetDefault("timeouts.idle_disconnect", d.Timeouts.IdleDisconnect)
	v.SetDefault("timeouts.init_ack", d.Timeouts.InitAck)
	v.SetDefault("timeouts.block_ack", d.Timeouts.BlockAck)
	v.SetDefault("timeouts.packet_pace", d.Timeouts.PacketPace)
	v.SetDefault("timeouts.block_pace", d.Timeouts.BlockPace)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size_mb", d.Logging.File.MaxSizeMB)
	v.SetDefault("logging.file.max_backups", d.Logging.File.MaxBackups)
	v.SetDefault("logging.file.max_age_days", d.Logging.File.MaxAgeDays)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("bridge.listen", d.Bridge.Listen)
	v.SetDefault("bridge.advertise", false)
	v.SetDefault("bridge.instance", "")
}

// Save writes the settings back to the file they were loaded from, or to
// the default location.
// Performs an atomic write to prevent corruption on crash.
func (s *Settings) Save() error {
	path := s.path
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}
	return s.SaveTo(path)
}

// SaveTo writes the settings to path
func (s *Settings) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# cgd1 configuration file
# Holds the clock's address and pairing token. Keep it private.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	s.path = path
	return nil
}
