package main

import (
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Pitchside CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pitchside",
		Short: "Pitchside - football club administration API",
		Long: `Pitchside serves the club administration API: staff accounts,
session login and role-gated access to club records.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/pitchside/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewValidateSeedsCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// loadConfig reads configuration for cmd, honouring --config and any
// configuration flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
