package filesink

import (
	"fmt"
	"os"

	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

// EnsureDir creates dir and any missing parents. It is a no-op when dir already exists.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", eventlog.ErrCreateDirectory, dir, err)
	}
	return nil
}
