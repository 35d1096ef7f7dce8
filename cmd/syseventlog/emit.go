package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/sysevents/internal/bus"
	"github.com/rmacdonaldsmith/sysevents/internal/systemevents"
)

func newEmitCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit NAME [ARG...]",
		Short: "Fire one event and append it to the log",
		Long: `Fire one event and append it to the log.
Each ARG is decoded as JSON when it parses and passed as a plain string otherwise.`,
		Example: `  syseventlog emit user.login alice '{"ip":"10.0.0.1"}'
  syseventlog emit --path /tmp/events.log cache.cleared`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, c, args[0], args[1:])
		},
	}

	return cmd
}

func runEmit(cmd *cobra.Command, c *cli, name string, raw []string) error {
	ctx := cmd.Context()

	m, reader, err := c.telemetry()
	if err != nil {
		return err
	}
	cfg, err := c.sinkConfig()
	if err != nil {
		return err
	}

	b := bus.New(bus.WithLogger(c.logger), bus.WithMetrics(m))
	sys, err := systemevents.Boot(ctx, b, cfg, systemevents.WithLogger(c.logger), systemevents.WithMetrics(m))
	if sys != nil {
		defer sys.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to start event log: %w", err)
	}

	if err := b.Fire(ctx, name, decodeArgs(raw)...); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", name, sys.Sink.Path())
	return printStats(ctx, cmd.OutOrStdout(), reader)
}

// decodeArgs turns command line arguments into event arguments.
func decodeArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			args = append(args, s)
			continue
		}
		args = append(args, v)
	}
	return args
}
