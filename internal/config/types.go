package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/hvconn/internal/output"
)

const (
	// DefaultURI is the hypervisor connection used when none is configured.
	DefaultURI = "qemu:///system"

	// DefaultTimeout bounds dialing the libvirt daemon.
	DefaultTimeout = 5 * time.Second

	// EnvConfigPath names the environment variable holding the config file path.
	EnvConfigPath = "HVCONN_CONFIG"
)

// Config is the hvconn client configuration.
type Config struct {
	URI        string        `yaml:"uri"`
	SocketPath string        `yaml:"socket_path,omitempty"` // Local libvirtd socket; empty derives the transport from the URI
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	LogLevel   string        `yaml:"log_level,omitempty"`
	Output     string        `yaml:"output,omitempty"` // table, yaml or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.URI == "" {
		c.URI = DefaultURI
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Output == "" {
		c.Output = "table"
	}
}

// Normalize cleans up user input.
func (c *Config) Normalize() {
	c.URI = strings.TrimSpace(c.URI)
	c.SocketPath = strings.TrimSpace(c.SocketPath)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
}

// Validate checks the configuration for errors.
// Does not check that the hypervisor is reachable.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	u, err := url.Parse(c.URI)
	if err != nil {
		return fmt.Errorf("uri: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("uri must include a driver scheme (e.g. qemu:///system), got %q", c.URI)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if err := output.ValidateFormat(c.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	return nil
}

// Level returns the parsed log level, or warn if it is invalid.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.WarnLevel
	}
	return lvl
}

// LoadFromFile loads a configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Load resolves the configuration file path and loads it.
//
// An explicit path must exist. Without one, $HVCONN_CONFIG is used, and
// without that the defaults are returned. A path taken from the environment
// that does not exist also yields the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}

	envPath := os.Getenv(EnvConfigPath)
	if envPath == "" {
		return Default(), nil
	}

	config, err := LoadFromFile(envPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}
