// Package config manages the cgd1 settings file.
//
// Settings are layered: built-in defaults, then the YAML file, then CGD1_*
// environment variables (dots in the key become underscores, so
// device.address is CGD1_DEVICE_ADDRESS). Command-line flags are applied on
// top by the CLI.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/cgd1/config.yaml or $HOME/.config/cgd1/config.yaml
//   - macOS: $HOME/.config/cgd1/config.yaml
//   - Windows: %LOCALAPPDATA%\cgd1\config.yaml
//
// # Security
//
// The file holds the clock's pairing token. It is written with user-only
// permissions (0600) in a user-only directory (0700), and the CLI only ever
// prints the token masked.
//
// # Usage Example
//
//	s, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	s.Device.Address = "58:2D:34:00:00:01"
//	if err := s.SetToken(raw); err != nil {
//	    return err
//	}
//	return s.Save()
package config
