package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rmacdonaldsmith/sysevents/internal/bus"
	"github.com/rmacdonaldsmith/sysevents/internal/systemevents"
)

// pipeLine is one NDJSON input record.
type pipeLine struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

func newPipeCommand(c *cli) *cobra.Command {
	var (
		workers     int
		attachAfter int
	)

	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Fire events read from stdin as newline-delimited JSON",
		Long: `Read one event per line from stdin and fire it, for example:

  {"event":"orders.created","args":[1234,{"total":9.5}]}

The first --attach-after events are fired before the log is attached. They are
journaled and written when it attaches, ahead of everything fired afterwards.
Remaining events are fired by --workers concurrent producers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}
			if attachAfter < 0 {
				return fmt.Errorf("--attach-after cannot be negative")
			}
			return runPipe(cmd, c, cmd.InOrStdin(), workers, attachAfter)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Number of concurrent producers")
	cmd.Flags().IntVar(&attachAfter, "attach-after", 0, "Fire this many events before attaching the log")

	return cmd
}

func runPipe(cmd *cobra.Command, c *cli, in io.Reader, workers, attachAfter int) error {
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
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	// next returns the following non-blank record, or io.EOF.
	next := func() (pipeLine, error) {
		for scanner.Scan() {
			lineNo++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			rec, err := parseLine(text)
			if err != nil {
				return pipeLine{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			return rec, nil
		}
		if err := scanner.Err(); err != nil {
			return pipeLine{}, fmt.Errorf("failed to read input: %w", err)
		}
		return pipeLine{}, io.EOF
	}

	before := 0
	for before < attachAfter {
		rec, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := b.Fire(ctx, rec.Event, rec.Args...); err != nil {
			return err
		}
		before++
	}

	sys, err := systemevents.Boot(ctx, b, cfg, systemevents.WithLogger(c.logger), systemevents.WithMetrics(m))
	if sys != nil {
		defer sys.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to start event log: %w", err)
	}

	var fired atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	records := make(chan pipeLine)

	g.Go(func() error {
		defer close(records)
		for {
			rec, err := next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for range workers {
		g.Go(func() error {
			return fire(gctx, b, records, &fired)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fired %d events (%d before attach) to %s\n",
		int64(before)+fired.Load(), before, sys.Sink.Path())
	return printStats(ctx, cmd.OutOrStdout(), reader)
}

func fire(ctx context.Context, b *bus.Bus, records <-chan pipeLine, fired *atomic.Int64) error {
	for rec := range records {
		if err := b.Fire(ctx, rec.Event, rec.Args...); err != nil {
			return fmt.Errorf("failed to write %s: %w", rec.Event, err)
		}
		fired.Add(1)
	}
	return nil
}

func parseLine(text string) (pipeLine, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var rec pipeLine
	if err := dec.Decode(&rec); err != nil {
		return pipeLine{}, fmt.Errorf("invalid event: %w", err)
	}
	if rec.Event == "" {
		return pipeLine{}, fmt.Errorf("invalid event: missing \"event\"")
	}
	return rec, nil
}
