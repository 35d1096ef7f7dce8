package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/sysevents/internal/config"
	"github.com/rmacdonaldsmith/sysevents/internal/filesink"
	"github.com/rmacdonaldsmith/sysevents/internal/format"
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	path         string
	template     string
	placeholders []string
	dir          string
	sync         bool
	verbose      bool
	stats        bool

	logger *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "syseventlog",
		Short: "Write application events to a system event log file",
		Long: `syseventlog fires events through an in-process event bus and appends them to
a log file, one line per event.

Events fired before the log is attached are journaled and written first, in the
order they were fired. Settings come from LOG_FILE_PATH, CUSTOM_LOG_TEMPLATE and
CUSTOM_LOG_PLACEHOLDERS; flags take precedence over the environment.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.path, "path", "", "Log file path (overrides LOG_FILE_PATH)")
	rootCmd.PersistentFlags().StringVar(&c.template, "template", "", "Line template (overrides CUSTOM_LOG_TEMPLATE)")
	rootCmd.PersistentFlags().StringArrayVar(&c.placeholders, "placeholder", nil, "Extra placeholder as key=value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&c.dir, "dir", "", "Base directory for daily log files (default: working directory)")
	rootCmd.PersistentFlags().BoolVar(&c.sync, "sync", true, "fsync after every line (--sync=false to skip)")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&c.stats, "stats", false, "Print event log counters on exit")

	rootCmd.AddCommand(newEmitCommand(c))
	rootCmd.AddCommand(newPipeCommand(c))
	rootCmd.AddCommand(newConfigCommand(c))

	return rootCmd
}

// sinkConfig resolves the sink configuration: environment first, then flags.
func (c *cli) sinkConfig() (*filesink.Config, error) {
	cfg, err := config.FromEnv(c.logger)
	if err != nil {
		return nil, err
	}

	if c.path != "" {
		cfg.WithPath(c.path)
	}
	if c.template != "" {
		cfg.WithTemplate(c.template)
	}
	if c.dir != "" {
		cfg.WithDir(c.dir)
	}
	cfg.WithSync(c.sync)

	if len(c.placeholders) > 0 {
		merged := make(map[string]string, len(cfg.Placeholders)+len(c.placeholders))
		for key, value := range cfg.Placeholders {
			merged[format.Token(key)] = value
		}
		for _, kv := range c.placeholders {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid placeholder %q: expected key=value", kv)
			}
			merged[format.Token(key)] = value
		}
		cfg.WithPlaceholders(merged)
	}

	return cfg, nil
}
