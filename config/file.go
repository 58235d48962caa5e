package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	perrors "polygon/internal/errors"
	"polygon/internal/retry"
)

// fileConfig is the on-disk shape, shared by TOML and YAML:
//
//	[[bind_addresses]]
//	ip = "127.0.0.1"
//	port = 5061
//
//	[destination_address]
//	ip = "127.0.0.1"
//	port = 5060
//
// The remaining keys are optional.  delays are milliseconds.
type fileConfig struct {
	BindAddresses      []fileAddress `toml:"bind_addresses" yaml:"bind_addresses"`
	DestinationAddress *fileAddress  `toml:"destination_address" yaml:"destination_address"`

	Timeout      string   `toml:"timeout" yaml:"timeout"`
	MaxAttempts  int      `toml:"max_attempts" yaml:"max_attempts"`
	Delays       []uint64 `toml:"delays" yaml:"delays"`
	Codec        string   `toml:"codec" yaml:"codec"`
	FilterSource *bool    `toml:"filter_source" yaml:"filter_source"`
	BufferSize   int      `toml:"buffer_size" yaml:"buffer_size"`
}

type fileAddress struct {
	IP   string `toml:"ip" yaml:"ip"`
	Port int    `toml:"port" yaml:"port"`
}

func (fa fileAddress) address(field string) (Address, error) {
	ip := net.ParseIP(fa.IP)
	if ip == nil {
		return Address{}, &perrors.ConfigError{Field: field, Value: fa.IP, Message: "invalid IP address"}
	}
	if fa.Port < 0 || fa.Port > 65535 {
		return Address{}, &perrors.ConfigError{Field: field, Value: fa.Port, Message: "port out of range 0-65535"}
	}
	return Address{IP: ip, Port: fa.Port}, nil
}

// LoadFile reads a configuration file on top of the defaults.  The
// format follows the extension: .toml, or .yaml/.yml.  A file that does
// not exist yields the defaults; a file that exists but does not parse
// is an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&fc)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&fc)
	default:
		return nil, &perrors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unsupported config format " + ext,
			Hint:    "use a .toml or .yaml file",
		}
	}
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := fc.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if len(fc.BindAddresses) == 0 {
		return &perrors.ConfigError{
			Field:   "bind_addresses",
			Message: "config file must list at least one bind address",
		}
	}
	cfg.BindAddresses = cfg.BindAddresses[:0]
	for _, fa := range fc.BindAddresses {
		a, err := fa.address("bind_addresses")
		if err != nil {
			return err
		}
		cfg.BindAddresses = append(cfg.BindAddresses, a)
	}

	// The file's destination replaces the default one; a file without
	// a destination describes a receive-only peer.
	cfg.Destination = nil
	if fc.DestinationAddress != nil {
		a, err := fc.DestinationAddress.address("destination_address")
		if err != nil {
			return err
		}
		cfg.Destination = &a
	}

	if fc.Timeout != "" {
		d, err := parseDuration(fc.Timeout)
		if err != nil {
			return &perrors.ConfigError{Field: "timeout", Value: fc.Timeout, Message: err.Error()}
		}
		cfg.Timeout = d
	}
	if fc.MaxAttempts != 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	if len(fc.Delays) > 0 {
		cfg.Delays = retry.MillisDelays(fc.Delays...)
	}
	if fc.Codec != "" {
		cfg.Codec = strings.ToLower(fc.Codec)
	}
	if fc.FilterSource != nil {
		cfg.FilterSource = *fc.FilterSource
	}
	if fc.BufferSize != 0 {
		cfg.BufferSize = fc.BufferSize
	}
	return nil
}
