// Package config loads the command line tool's settings from a JSON file and
// the environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/swargo/upm-swing/database"
	"github.com/swargo/upm-swing/logging"
)

// Environment variables that override the file.
const (
	EnvDatabase      = "UPM_DATABASE"
	EnvLegacyCharset = "UPM_LEGACY_CHARSET"
	EnvLogLevel      = "UPM_LOG_LEVEL"
	EnvLogFormat     = "UPM_LOG_FORMAT"
)

// Config holds every setting. Durations are strings like "30s".
type Config struct {
	// The database file used when none is given on the command line.
	Database string `codec:"database"`

	// The charset assumed for text in databases older than version 3.
	LegacyCharset string `codec:"legacy_charset"`

	LogLevel  string `codec:"log_level"`
	LogFormat string `codec:"log_format"`

	// How long a single request to a remote location may take.
	SyncTimeout string `codec:"sync_timeout"`

	// How often the database file is checked for changes made elsewhere.
	WatchInterval string `codec:"watch_interval"`

	// filled in by Validate
	charset       database.Charset
	syncTimeout   time.Duration
	watchInterval time.Duration
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LegacyCharset: database.Windows1252.String(),
		LogLevel:      "warn",
		LogFormat:     "text",
		SyncTimeout:   "30s",
		WatchInterval: "2s",
	}
}

// DefaultPath is where the config file lives when none is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot find config directory")
	}
	return filepath.Join(dir, "upm", "config.json"), nil
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read config")
		}

		var jh codec.JsonHandle
		dec := codec.NewDecoderBytes(data, &jh)
		if err := dec.Decode(c); err != nil {
			return nil, errors.Wrapf(err, "cannot parse config %s", path)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		name  string
		field *string
	}{
		{EnvDatabase, &c.Database},
		{EnvLegacyCharset, &c.LegacyCharset},
		{EnvLogLevel, &c.LogLevel},
		{EnvLogFormat, &c.LogFormat},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field = v
		}
	}
}

// Validate checks every setting and prepares the parsed forms returned by the
// accessors.
func (c *Config) Validate() error {
	charset, err := database.LookupCharset(c.LegacyCharset)
	if err != nil {
		return errors.Wrap(err, "legacy_charset")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return errors.Errorf("log_format: unknown format %q", c.LogFormat)
	}

	syncTimeout, err := positiveDuration("sync_timeout", c.SyncTimeout)
	if err != nil {
		return err
	}
	watchInterval, err := positiveDuration("watch_interval", c.WatchInterval)
	if err != nil {
		return err
	}

	c.charset = charset
	c.syncTimeout = syncTimeout
	c.watchInterval = watchInterval
	return nil
}

func positiveDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(err, name)
	}
	if d <= 0 {
		return 0, errors.Errorf("%s: must be positive (got: %s)", name, s)
	}
	return d, nil
}

// Charset returns the parsed legacy charset. Only valid after Validate.
func (c *Config) Charset() database.Charset {
	return c.charset
}

// Timeout returns the parsed sync timeout. Only valid after Validate.
func (c *Config) Timeout() time.Duration {
	return c.syncTimeout
}

// Interval returns the parsed watch interval. Only valid after Validate.
func (c *Config) Interval() time.Duration {
	return c.watchInterval
}
