package main

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/plus3/sigecs/ecs"
)

// Config describes one stress run. It is read from YAML and then overridden
// by any flags set on the command line.
type Config struct {
	Duration    time.Duration `yaml:"duration"`
	Entities    int           `yaml:"entities"`
	Seed        int64         `yaml:"seed"`
	ErrorPolicy string        `yaml:"error_policy"`
	Stats       bool          `yaml:"stats"`
	Profile     string        `yaml:"profile"`
	Development bool          `yaml:"development"`

	// GCPauseMetrics adds the GC pause section to the report.
	GCPauseMetrics bool `yaml:"gc_pause_metrics"`
}

func DefaultConfig() Config {
	return Config{
		Duration:    10 * time.Second,
		Entities:    10000,
		Seed:        1,
		ErrorPolicy: ecs.AbortOnError.String(),
		Stats:       true,
	}
}

// LoadConfig decodes YAML from r on top of the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, cfg.Validate()
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer f.Close()
	return LoadConfig(f)
}

func (c Config) Validate() error {
	if c.Duration <= 0 {
		return errors.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.Entities < 0 {
		return errors.Errorf("entities must not be negative, got %d", c.Entities)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch c.Profile {
	case "", "cpu", "mem":
	default:
		return errors.Errorf("unknown profile mode %q", c.Profile)
	}
	return nil
}

// Policy maps the error_policy string onto the registry option value.
func (c Config) Policy() (ecs.ErrorPolicy, error) {
	switch c.ErrorPolicy {
	case "", ecs.AbortOnError.String():
		return ecs.AbortOnError, nil
	case ecs.ContinueOnError.String():
		return ecs.ContinueOnError, nil
	default:
		return 0, errors.Errorf("unknown error policy %q", c.ErrorPolicy)
	}
}

func (c Config) Logger() (*zap.Logger, error) {
	if c.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// StartProfile starts the configured profiler. The returned stop func is
// always safe to call.
func (c Config) StartProfile() func() {
	var mode func(*profile.Profile)
	switch c.Profile {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	default:
		return func() {}
	}
	p := profile.Start(mode, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}
