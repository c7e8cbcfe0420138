// Package config loads the outpost daemon's YAML configuration: the data
// directory, logging, and per-zone journal settings. It also provides the
// concrete journal.Policy implementation that answers merge_allowed_for from
// a zone's configured zonefile-sync value.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration, decoded from a single YAML
// file (mirroring the manifest style other outpost tooling applies).
type Config struct {
	DataDir string     `yaml:"dataDir"`
	Log     LogConfig  `yaml:"log"`
	Zones   []ZoneSpec `yaml:"zones"`

	// DefaultFslimit applies to any zone whose ZoneSpec.Fslimit is zero.
	DefaultFslimit int64 `yaml:"defaultFslimit"`
}

// LogConfig mirrors pkg/log.Config in YAML-friendly form.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ZoneSpec configures one zone's journal.
type ZoneSpec struct {
	Name string `yaml:"name"`

	// Fslimit is the journal's on-disk size budget in bytes. Zero defers
	// to Config.DefaultFslimit.
	Fslimit int64 `yaml:"fslimit"`

	// ZonefileSync is the interval, in seconds, at which an external
	// process flushes this zone to its zone file. A negative value means
	// "never" and enables internal merge compaction in place of external
	// flushing, per the configuration interface the journal consults on
	// every flush_or_merge decision.
	ZonefileSync int64 `yaml:"zonefileSync"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ZoneFslimit returns the configured journal size limit for zone, falling
// back to Config.DefaultFslimit when the zone sets none.
func (c *Config) ZoneFslimit(zone string) int64 {
	for _, z := range c.Zones {
		if z.Name == zone && z.Fslimit > 0 {
			return z.Fslimit
		}
	}
	return c.DefaultFslimit
}

// zonefileSync returns the configured sync interval in seconds for zone, or
// zero if the zone is unconfigured (treated as "always flush").
func (c *Config) zonefileSync(zone string) int64 {
	for _, z := range c.Zones {
		if z.Name == zone {
			return z.ZonefileSync
		}
	}
	return 0
}
