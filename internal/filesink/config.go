package filesink

import (
	"maps"
	"path/filepath"
	"time"
)

const (
	// DefaultSubdirectory holds the daily log files under the base directory.
	DefaultSubdirectory = "logs"
	// DefaultFileSuffix follows the date in daily file names.
	DefaultFileSuffix = "-system-events.log"

	dateLayout = "2006-01-02"
)

// Config represents configuration for a FileSink
type Config struct {
	// Path is an explicit destination file. When empty the sink writes to one file per
	// calendar day under <Dir>/logs.
	Path string

	// Template is the line layout. Empty means format.DefaultTemplate.
	Template string

	// Placeholders are extra tokens merged over the built-ins, keyed "name" or "{{name}}".
	Placeholders map[string]string

	// Dir is the base directory for daily files. Empty means the working directory at construction.
	Dir string

	// Location is used for {{timestamp}} and for picking the daily file. Nil means time.Local.
	Location *time.Location

	// Sync calls fsync after every append. NewConfig enables it.
	Sync bool

	// Clock supplies the current time for daily file names. Nil means time.Now.
	Clock func() time.Time
}

// NewConfig creates a FileSink configuration with safe defaults: daily files under the
// working directory, the default template, no custom placeholders and fsync after
// every append.
func NewConfig() *Config {
	return &Config{
		Placeholders: make(map[string]string),
		Sync:         true,
	}
}

// WithPath sets an explicit destination file
func (c *Config) WithPath(path string) *Config {
	c.Path = path
	return c
}

// WithTemplate sets the line template
func (c *Config) WithTemplate(template string) *Config {
	c.Template = template
	return c
}

// WithPlaceholders sets the custom placeholders
func (c *Config) WithPlaceholders(placeholders map[string]string) *Config {
	c.Placeholders = maps.Clone(placeholders)
	return c
}

// WithDir sets the base directory for daily files
func (c *Config) WithDir(dir string) *Config {
	c.Dir = dir
	return c
}

// WithLocation sets the time zone used for timestamps and daily file names
func (c *Config) WithLocation(loc *time.Location) *Config {
	c.Location = loc
	return c
}

// WithSync turns fsync after every append on or off
func (c *Config) WithSync(sync bool) *Config {
	c.Sync = sync
	return c
}

// WithClock sets the clock used for daily file names
func (c *Config) WithClock(clock func() time.Time) *Config {
	c.Clock = clock
	return c
}

// DefaultPath returns the daily file for day under base:
// <base>/logs/<YYYY-MM-DD>-system-events.log
func DefaultPath(base string, day time.Time) string {
	return filepath.Join(base, DefaultSubdirectory, day.Format(dateLayout)+DefaultFileSuffix)
}
