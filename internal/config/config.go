package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = ".bplmatch.yaml"

const (
	BackendBoogie = "boogie"
	BackendZ3     = "z3"
)

// Config is the on-disk configuration of bplmatch.
type Config struct {
	Checker    CheckerConfig `yaml:"checker"`
	Matcher    MatcherConfig `yaml:"matcher"`
	Cache      CacheConfig   `yaml:"cache"`
	Workers    int           `yaml:"workers"`
	WorkDir    string        `yaml:"work_dir"`
	KeepJoined bool          `yaml:"keep_joined"`
}

type CheckerConfig struct {
	Backend string   `yaml:"backend"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	// TimeLimit is the per-implementation limit in seconds.
	TimeLimit int `yaml:"time_limit"`
}

type MatcherConfig struct {
	MaxObligations int    `yaml:"max_obligations"`
	Depth          int    `yaml:"depth"`
	HavocName      string `yaml:"havoc_name"`
	EqPrefix       string `yaml:"eq_prefix"`
	SectionPrefix  string `yaml:"section_prefix"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Checker: CheckerConfig{
			Backend:   BackendBoogie,
			Command:   "boogie",
			TimeLimit: 20,
		},
		Matcher: MatcherConfig{
			MaxObligations: 10000,
			HavocName:      "h",
			EqPrefix:       "eq",
			SectionPrefix:  "section",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".bplmatch-cache",
			MaxAge:  24 * time.Hour,
		},
		WorkDir: ".",
	}
}

// Load reads the configuration at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		// an empty file decodes to io.EOF
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Checker.Backend {
	case BackendBoogie, BackendZ3:
	default:
		errs = append(errs, fmt.Errorf("checker.backend: unknown backend %q", c.Checker.Backend))
	}
	if c.Checker.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("checker.time_limit: must not be negative"))
	}
	if c.Matcher.MaxObligations <= 0 {
		errs = append(errs, fmt.Errorf("matcher.max_obligations: must be positive"))
	}
	if c.Matcher.Depth < 0 {
		errs = append(errs, fmt.Errorf("matcher.depth: must not be negative"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative"))
	}
	return errors.Join(errs...)
}

// Write stores cfg at path, replacing any existing file.
func Write(path string, cfg Config) error {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
