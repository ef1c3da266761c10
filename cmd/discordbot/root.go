package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
)

// defaultEnvFile is read before the configuration. A missing file is fine.
const defaultEnvFile = ".env"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

// loadConfig reads the env file and then the configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// NewRootCmd creates the root command for the bot CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "discordbot",
		Short: "Relay MQTT notifications to Discord users and channels",
		Long: `discordbot listens on an MQTT topic and forwards each JSON notification
to the Discord user or channel registered under its target name.
Users and channels register themselves with the /register slash command.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newRegistrationsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "discordbot %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
