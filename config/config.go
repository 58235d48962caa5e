// Package config defines the runtime configuration for polygon and the
// sources it is loaded from: defaults, a TOML or YAML file, the
// environment, and CLI flags.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"polygon/internal/codec"
	perrors "polygon/internal/errors"
	"polygon/internal/exchange"
	"polygon/util"
)

// Address is a numeric IP and a port.
type Address struct {
	IP   net.IP
	Port int
}

// ParseAddress parses "ip:port".  The IP must be numeric.
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Address{}, fmt.Errorf("invalid IP %q in %q", host, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("invalid port %q in %q", portStr, s)
	}
	return Address{IP: ip, Port: port}, nil
}

// String returns "ip:port", bracketing IPv6.
func (a Address) String() string {
	return util.FormatAddr(a.IP.String(), a.Port)
}

// UDPAddr converts the address for use with the net package.
func (a Address) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: a.IP, Port: a.Port}
}

// Config holds every tuneable for a single polygon run.
type Config struct {
	// ── Addresses ────────────────────────────────────────────────────
	BindAddresses []Address // tried in order; the first that binds wins
	Destination   *Address  // nil: receive-only

	// ── Exchange ─────────────────────────────────────────────────────
	Timeout      time.Duration
	MaxAttempts  int
	FilterSource bool
	BufferSize   int
	Codec        string

	// ── Repetition ───────────────────────────────────────────────────
	Delays   []time.Duration // repeat mode schedule
	Count    int             // recv/exchange: stop after N (0 = unlimited for recv)
	Interval time.Duration   // exchange: pause between repeated exchanges; repeat: fixed or initial wait
	Backoff  int             // repeat: number of sends on an exponential schedule (0 = off)

	UntilReply bool // repeat: stop retransmitting at the first reply
	RetrySends bool // retry transient send errors before giving up

	// ── Echo ─────────────────────────────────────────────────────────
	Execute string // program run per datagram (-e)
	Command string // shell command run per datagram (-c)

	// ── Mode ─────────────────────────────────────────────────────────
	Mode string   // send, recv, exchange, repeat, echo, sweep
	Args []string // mode arguments: payload text, sweep targets

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Metrics bool
	DryRun  bool
}

// Default returns the configuration used when nothing else is given:
// bind 0.0.0.0:5060 and send to 127.0.0.1:5061.
func Default() *Config {
	return &Config{
		BindAddresses: []Address{{IP: net.ParseIP(DefaultBindIP), Port: DefaultBindPort}},
		Destination:   &Address{IP: net.ParseIP(DefaultDestIP), Port: DefaultDestPort},
		Timeout:       DefaultTimeout,
		MaxAttempts:   DefaultMaxAttempts,
		FilterSource:  true,
		BufferSize:    DefaultBufferSize,
		Codec:         DefaultCodec,
		Delays:        append([]time.Duration(nil), DefaultDelays...),
		Interval:      DefaultInterval,
	}
}

// FromArguments builds a configuration from explicit addresses, with
// every other field at its default.  remote may be nil.
func FromArguments(local []Address, remote *Address) *Config {
	cfg := Default()
	cfg.BindAddresses = local
	cfg.Destination = remote
	return cfg
}

// BindStrings returns the bind addresses in "ip:port" form.
func (c *Config) BindStrings() []string {
	out := make([]string, len(c.BindAddresses))
	for i, a := range c.BindAddresses {
		out[i] = a.String()
	}
	return out
}

// ExchangeConfig converts the exchange settings for target into an
// [exchange.Config].  An empty target means the configured destination.
func (c *Config) ExchangeConfig(target string, opts ...exchange.ConfigOption) (exchange.Config, error) {
	if target == "" {
		if c.Destination == nil {
			return exchange.Config{}, &perrors.ConfigError{
				Field:   "dest",
				Message: "a destination is required",
				Hint:    "use -d ip:port or set destination_address in the config file",
			}
		}
		target = c.Destination.String()
	}
	opts = append([]exchange.ConfigOption{exchange.WithSourceFilter(c.FilterSource)}, opts...)
	return exchange.NewConfig(target, c.Timeout, c.MaxAttempts, opts...)
}

// ── Validation ───────────────────────────────────────────────────────

// modes that send and therefore need a destination.
var destModes = map[string]bool{"send": true, "exchange": true, "repeat": true}

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError.
func (c *Config) Validate() error {
	if len(c.BindAddresses) == 0 {
		return &perrors.ConfigError{
			Field:   "bind",
			Message: "at least one bind address is required",
			Hint:    "use -b 0.0.0.0:5060",
		}
	}
	if c.Timeout <= 0 {
		return &perrors.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be positive",
			Hint:    "e.g. --timeout 500ms",
		}
	}
	if c.MaxAttempts < 1 {
		return &perrors.ConfigError{
			Field:   "attempts",
			Value:   c.MaxAttempts,
			Message: "must be at least 1",
		}
	}
	if c.BufferSize < 1 || c.BufferSize > DefaultBufferSize {
		return &perrors.ConfigError{
			Field:   "buffer",
			Value:   c.BufferSize,
			Message: fmt.Sprintf("must be between 1 and %d", DefaultBufferSize),
		}
	}
	if !codec.Known(c.Codec) {
		return &perrors.ConfigError{
			Field:   "codec",
			Value:   c.Codec,
			Message: "unknown codec",
			Hint:    "one of " + strings.Join(codec.Names(), ", "),
		}
	}
	if c.Backoff < 0 {
		return &perrors.ConfigError{Field: "backoff", Value: c.Backoff, Message: "must not be negative"}
	}
	if c.Count < 0 {
		return &perrors.ConfigError{Field: "count", Value: c.Count, Message: "must not be negative"}
	}
	for _, d := range c.Delays {
		if d < 0 {
			return &perrors.ConfigError{Field: "delays", Value: d, Message: "delays must not be negative"}
		}
	}
	if destModes[c.Mode] {
		if c.Destination == nil {
			return &perrors.ConfigError{
				Field:   "dest",
				Message: c.Mode + " mode requires a destination",
				Hint:    "use -d ip:port",
			}
		}
		if c.Destination.Port == 0 {
			return &perrors.ConfigError{
				Field:   "dest",
				Value:   c.Destination.String(),
				Message: "destination port must be in 1-65535",
			}
		}
	}
	if c.Execute != "" && c.Command != "" {
		return &perrors.ConfigError{
			Field:   "exec",
			Message: "--exec and --command are mutually exclusive",
		}
	}
	if c.Mode == "repeat" && c.Backoff == 0 && c.Count == 0 && len(c.Delays) == 0 {
		return &perrors.ConfigError{
			Field:   "delays",
			Message: "repeat mode needs at least one delay",
			Hint:    "e.g. --delays 500,1000,2000",
		}
	}
	return nil
}
