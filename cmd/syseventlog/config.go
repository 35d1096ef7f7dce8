package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/sysevents/internal/filesink"
	"github.com/rmacdonaldsmith/sysevents/internal/format"
)

// resolvedConfig is the JSON shape printed by the config command.
type resolvedConfig struct {
	Path         string            `json:"path"`
	Daily        bool              `json:"daily"`
	Template     string            `json:"template"`
	Placeholders map[string]string `json:"placeholders"`
	Sync         bool              `json:"sync"`
}

func newConfigCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved event log configuration",
		Long: `Show where events would be written and how each line is laid out, after
applying the environment and command line flags. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.sinkConfig()
			if err != nil {
				return err
			}
			out, err := describe(cfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func describe(cfg *filesink.Config) (resolvedConfig, error) {
	tmpl := format.NewTemplate(cfg.Template, cfg.Placeholders)
	if cfg.Template == "" {
		tmpl = format.Default().WithPlaceholders(cfg.Placeholders)
	}

	out := resolvedConfig{
		Path:         cfg.Path,
		Template:     tmpl.Text(),
		Placeholders: tmpl.Placeholders(),
		Sync:         cfg.Sync,
	}
	if out.Path == "" {
		base := cfg.Dir
		if base == "" {
			var err error
			if base, err = os.Getwd(); err != nil {
				return resolvedConfig{}, fmt.Errorf("resolve working directory: %w", err)
			}
		}
		out.Path = filesink.DefaultPath(base, time.Now())
		out.Daily = true
	}
	return out, nil
}
