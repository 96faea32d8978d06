// Package config loads espudpctl settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/opd-ai/espudp"
	"github.com/opd-ai/espudp/netevent"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultSoftAPSubnet is the subnet the device's access point hands out.
const DefaultSoftAPSubnet = "192.168.43.0/24"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the espudpctl configuration.
type Config struct {
	DeviceAddress     string        `yaml:"device_address" json:"device_address"`
	DevicePort        uint16        `yaml:"device_port" json:"device_port"`
	LocalPort         uint16        `yaml:"local_port" json:"local_port"`
	ReceiveBufferSize int           `yaml:"receive_buffer_size" json:"receive_buffer_size"`
	LogLevel          string        `yaml:"log_level" json:"log_level"`
	SoftAPSubnet      string        `yaml:"softap_subnet" json:"softap_subnet"`
	PollInterval      time.Duration `yaml:"poll_interval" json:"poll_interval"`
	Language          string        `yaml:"language" json:"language"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DeviceAddress:     espudp.DefaultDeviceAddress,
		DevicePort:        espudp.DefaultDevicePort,
		LocalPort:         espudp.DefaultLocalPort,
		ReceiveBufferSize: espudp.DefaultReceiveBufferSize,
		LogLevel:          logrus.InfoLevel.String(),
		SoftAPSubnet:      DefaultSoftAPSubnet,
		PollInterval:      netevent.DefaultPollInterval,
		Language:          language.AmericanEnglish.String(),
	}
}

// DefaultPath returns the default config file path: ~/.espudp/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".espudp", "config.yaml")
	}
	return filepath.Join(home, ".espudp", "config.yaml")
}

// Load reads the configuration from the given YAML file path.
// Keys missing from the file keep their defaults. If the file does not
// exist, Load returns Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that Options and the watcher depend on.
func (c *Config) Validate() error {
	if _, err := c.DriverOptions(); err != nil {
		return err
	}
	if _, err := c.Subnet(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// DriverOptions maps the configuration to validated driver options.
func (c *Config) DriverOptions() (*espudp.Options, error) {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: language %q: %v", ErrInvalidConfig, c.Language, err)
	}

	opts := espudp.NewOptions()
	opts.DeviceAddress = c.DeviceAddress
	opts.DevicePort = c.DevicePort
	opts.LocalPort = c.LocalPort
	opts.ReceiveBufferSize = c.ReceiveBufferSize
	opts.Language = tag
	if _, err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return opts, nil
}

// Subnet returns the parsed SoftAP subnet, which must be IPv4.
func (c *Config) Subnet() (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(c.SoftAPSubnet)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: softap_subnet %q: %v", ErrInvalidConfig, c.SoftAPSubnet, err)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: softap_subnet %q is not IPv4", ErrInvalidConfig, c.SoftAPSubnet)
	}
	return prefix.Masked(), nil
}
