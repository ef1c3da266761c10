package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// registrationsConfig holds flags for the registrations command.
type registrationsConfig struct {
	file       string
	jsonOutput bool
}

// newRegistrationsCmd creates the registrations subcommand.
func newRegistrationsCmd(root *rootOptions) *cobra.Command {
	cfg := &registrationsConfig{}

	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "Print the registered users and channels",
		Long: `Read the registry file and print every registration. The file is
validated the same way the bot validates it at start-up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegistrations(cmd, root, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.file, "file", "", "registry file (default: registry.path from config)")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output registrations as JSON")

	return cmd
}

// runRegistrations executes the registrations command.
func runRegistrations(cmd *cobra.Command, root *rootOptions, rc *registrationsConfig) error {
	path := rc.file
	if path == "" {
		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Registry.Path
	}

	reg := registry.NewRegistry(registry.NewFileStore(path))
	if err := reg.Load(); err != nil {
		return err
	}
	entries := reg.List()

	out := cmd.OutOrStdout()
	if rc.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "no registrations in %s\n", path)
		return nil
	}
	renderEntries(out, entries)
	return nil
}

// renderEntries prints entries as a table in registration order.
func renderEntries(w io.Writer, entries []registry.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Kind", "Discord ID", "Registered"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, e := range entries {
		registered := "-"
		if !e.RegisteredAt.IsZero() {
			registered = e.RegisteredAt.UTC().Format(time.RFC3339)
		}
		table.Append([]string{e.Name, string(e.Kind), e.PlatformID, registered})
	}

	table.Render()
}
