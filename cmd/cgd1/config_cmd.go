package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/cgd1/internal/ui"
)

var (
	configName    string
	configLogFile string
	configListen  string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)

	configSetCmd.Flags().StringVar(&configName, "name", "", "Friendly name for the clock")
	configSetCmd.Flags().StringVar(&configLogFile, "log-file", "", "Write logs to this file as well (rotated)")
	configSetCmd.Flags().StringVar(&configListen, "listen", "", "Default listen address for 'cgd1 watch'")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the stored clock address and token",
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the clock address, token and defaults",
	Long: `Store settings in the config file.

The global --address and --token flags are saved when given. Pass --token -
to be prompted for the token without echoing it.`,
	Example: `  # Store address and token
  cgd1 config set --address 58:2D:34:00:00:01 --token 0e659b...ce6e

  # Prompt for the token
  cgd1 config set --address 58:2D:34:00:00:01 --token -

  # Name the clock and log to a file
  cgd1 config set --name bedroom --log-file ~/.local/state/cgd1.log`,
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if flagToken == "-" {
		raw, err := ui.ReadSecret("Pairing token: ")
		if err != nil {
			return err
		}
		if err := settings.SetToken(raw); err != nil {
			return err
		}
	}

	changed := cmd.Flags().Changed("address") || cmd.Flags().Changed("token")
	if cmd.Flags().Changed("name") {
		settings.Device.Name = configName
		changed = true
	}
	if cmd.Flags().Changed("log-file") {
		settings.Logging.File.Filename = configLogFile
		changed = true
	}
	if cmd.Flags().Changed("listen") {
		settings.Bridge.Listen = configListen
		changed = true
	}
	if !changed {
		return fmt.Errorf("nothing to set (use --address, --token, --name, --log-file or --listen)")
	}

	if err := settings.Save(); err != nil {
		return err
	}

	ui.NewPrinter(nil).PrintSuccess("Configuration saved",
		ui.Field{Key: "File", Value: settings.Path()},
		ui.Field{Key: "Address", Value: settings.Device.Address},
		ui.Field{Key: "Token", Value: settings.MaskedToken()},
	)
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (token masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)
		t := settings.Timeouts
		fields := []ui.Field{
			{Key: "File", Value: settings.Path()},
			{Key: "Address", Value: orNone(settings.Device.Address)},
			{Key: "Token", Value: orNone(settings.MaskedToken())},
			{Key: "Name", Value: orNone(settings.Device.Name)},
			{Key: "Log level", Value: orNone(settings.Logging.Level)},
			{Key: "Log file", Value: orNone(settings.Logging.File.Filename)},
			{Key: "Bridge listen", Value: settings.Bridge.Listen},
			{Key: "Connect timeout", Value: t.Connection.String()},
			{Key: "Response timeout", Value: t.Response.String()},
			{Key: "Idle disconnect", Value: t.IdleDisconnect.String()},
		}
		p.Println(ui.RenderSection("Configuration", ui.RenderFields(fields), p.Width()))
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
