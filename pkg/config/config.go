// Package config loads the bitdoc YAML configuration and its environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provide-io/bitdoc/go/bitdoc/internal/statedir"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/payload"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/logging"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/utils/permissions"
)

// EnvConfig names the configuration file when --config is not given.
const EnvConfig = "BITDOC_CONFIG"

// Environment overrides
const (
	EnvStateDir         = "BITDOC_STATE_DIR"
	EnvAutosaveInterval = "BITDOC_AUTOSAVE_INTERVAL"
	EnvDecoderTimeout   = "BITDOC_DECODER_TIMEOUT"
)

// ErrInvalidConfig wraps every configuration problem.
var ErrInvalidConfig = errors.New("❌ invalid configuration")

// Config is the resolved configuration.
type Config struct {
	LogLevel         string        `yaml:"log_level"`
	StateDir         string        `yaml:"state_dir"`
	Autosave         bool          `yaml:"autosave"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	DecoderTimeout   time.Duration `yaml:"decoder_timeout"`
	StateFileMode    string        `yaml:"state_file_mode"`
	Encoding         string        `yaml:"encoding"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         logging.DefaultLevel,
		Autosave:         true,
		AutosaveInterval: time.Second,
		StateFileMode:    permissions.FormatOctal(permissions.DefaultFilePerms),
		Encoding:         payload.DefaultEncoding,
	}
}

// Load reads path (or $BITDOC_CONFIG when path is empty) over the defaults,
// then applies environment overrides. No file at all is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse reads a YAML document over the defaults without consulting the
// environment.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(logging.EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
	for env, field := range map[string]*time.Duration{
		EnvAutosaveInterval: &c.AutosaveInterval,
		EnvDecoderTimeout:   &c.DecoderTimeout,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, env, err)
		}
		*field = d
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("%w: autosave_interval must be positive", ErrInvalidConfig)
	}
	if c.DecoderTimeout < 0 {
		return fmt.Errorf("%w: decoder_timeout must not be negative", ErrInvalidConfig)
	}
	mode, err := permissions.ParseOctalString(c.StateFileMode)
	if err != nil {
		return fmt.Errorf("%w: state_file_mode: %v", ErrInvalidConfig, err)
	}
	if !permissions.IsOwnerWritable(mode) {
		return fmt.Errorf("%w: state_file_mode %s is not owner writable", ErrInvalidConfig, c.StateFileMode)
	}
	if _, err := payload.Get(c.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FileMode returns the parsed state file mode.
func (c Config) FileMode() os.FileMode {
	mode, _ := permissions.ParseOctalString(c.StateFileMode)
	return mode
}

// StateRoot returns the configured state directory or the platform default.
func (c Config) StateRoot() string {
	if strings.TrimSpace(c.StateDir) != "" {
		return c.StateDir
	}
	return statedir.Root()
}

// YAML renders the configuration as a YAML document.
func (c Config) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
