package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/rmacdonaldsmith/sysevents/internal/metrics"
)

// telemetry returns instruments backed by an in-process reader when --stats is set.
// Without --stats both results are nil and nothing is recorded.
func (c *cli) telemetry() (*metrics.Metrics, *sdkmetric.ManualReader, error) {
	if !c.stats {
		return nil, nil, nil
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := metrics.New(provider.Meter(metrics.InstrumentationName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return m, reader, nil
}

// printStats writes one "name total" line per counter, sorted by name.
func printStats(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader) error {
	if reader == nil {
		return nil
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nEvent log statistics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-36s %d\n", name, totals[name])
	}
	return nil
}
