// Cgd1 controls a Qingping CGD1 alarm clock over Bluetooth Low Energy.
//
// It reads and changes the clock's settings, manages its sixteen alarm
// slots, sets the time, uploads custom ringtones and can bridge the clock's
// notifications to websocket clients.
//
// Usage:
//
//	cgd1 [command] [flags]
//
// The clock's address and pairing token are read from the config file
// (see 'cgd1 config set'), from CGD1_DEVICE_ADDRESS / CGD1_DEVICE_TOKEN, or
// from the --address / --token flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/config"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/ui"
	"github.com/muurk/cgd1/internal/version"
)

// Global flags
var (
	configPath string
	flagAddr   string
	flagToken  string
	logLevel   string
)

// settings is loaded before every command runs
var settings *config.Settings

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	stop()
	logging.Sync()

	if err != nil {
		name := "cgd1"
		if cmd != nil {
			name = cmd.CommandPath()
		}
		title := name + " failed"
		if errors.Is(err, context.Canceled) || protocol.IsCancelled(err) {
			title = name + " cancelled"
		}
		ui.NewPrinter(os.Stderr).PrintError(title, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cgd1",
	Short: "Qingping CGD1 alarm clock utility",
	Long: `A command line utility for the Qingping CGD1 Bluetooth alarm clock.

Reads and changes the clock's settings, manages its alarms, sets the time,
uploads custom ringtones and bridges live updates to websocket clients.

Run 'cgd1 config set --address MAC --token HEX' once to store the clock's
address and pairing token.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/cgd1/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "address", "", "Clock BLE address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Pairing token, 32 hex digits (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: silent)")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings layers the config file, environment and global flags, then
// initializes logging
func loadSettings(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = s.Logging.Level
	}
	if err := logging.InitializeWithFile(level, s.Logging.FileOptions()); err != nil {
		return err
	}

	if flagAddr != "" {
		s.Device.Address = flagAddr
	}
	// "-" asks `config set` to prompt for the token
	if flagToken != "" && flagToken != "-" {
		if err := s.SetToken(flagToken); err != nil {
			return err
		}
	}

	settings = s
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Skip config loading so version works with a broken config file
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cgd1 %s\n", version.Full())
	},
}
