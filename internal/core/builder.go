package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"polygon/config"
	"polygon/internal/capability"
	"polygon/internal/codec"
	perrors "polygon/internal/errors"
	"polygon/internal/exchange"
	"polygon/internal/metrics"
	"polygon/internal/retry"
	"polygon/util"
)

// Modes lists the mode names accepted by [Build].
func Modes() []string {
	return []string{"send", "recv", "exchange", "repeat", "echo", "sweep"}
}

// Build constructs the appropriate Mode from the given configuration.
// The codec picks the payload type; the mode picks what to do with it.
// Modes print to stdout, or os.Stdout when it is nil.
func Build(cfg *config.Config, stdout io.Writer, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	tty := IsTerminal(stdout)
	out := output{stdout: stdout, logger: logger, metrics: m}
	switch cfg.Codec {
	case "bytes":
		return buildFor(cfg, bytesKind(tty), out)
	case "raw":
		return buildFor(cfg, rawKind(), out)
	case "toml":
		return buildFor(cfg, messageKind(codec.TOML[Message]{}), out)
	case "yaml":
		return buildFor(cfg, messageKind(codec.YAML[Message]{}), out)
	case "cbor":
		return buildFor(cfg, messageKind(codec.CBOR[Message]{}), out)
	default:
		return nil, fmt.Errorf("unknown codec %q (want one of %s)", cfg.Codec, strings.Join(codec.Names(), ", "))
	}
}

// ── mode builders ────────────────────────────────────────────────────

// output is where every mode reports.
type output struct {
	stdout  io.Writer
	logger  *util.Logger
	metrics *metrics.Collector
}

func buildFor[T any](cfg *config.Config, kind Kind[T], out output) (Mode, error) {
	b := base{
		Bind:       cfg.BindStrings(),
		BufferSize: cfg.BufferSize,
		Logger:     out.logger,
		Metrics:    out.metrics,
		Stdout:     out.stdout,
	}

	switch cfg.Mode {
	case "recv":
		return &ServeMode{
			base:       b,
			Capability: &capability.Print{Render: kind.Render},
			Count:      cfg.Count,
		}, nil
	case "echo":
		return &ServeMode{base: b, Capability: buildCapability(cfg), Count: cfg.Count}, nil
	}

	value, err := payload(cfg, kind)
	if err != nil {
		return nil, err
	}

	if cfg.Mode == "sweep" {
		if len(cfg.Args) < 2 {
			return nil, fmt.Errorf("sweep needs a payload and at least one target")
		}
		// Targets override the destination, which may be unset.
		exCfg, err := cfg.ExchangeConfig(cfg.Args[1])
		if err != nil {
			return nil, err
		}
		return &SweepMode[T]{
			base:    b,
			Config:  exCfg,
			Kind:    kind,
			Value:   value,
			Targets: cfg.Args[1:],
			Workers: config.DefaultMaxConcurrentSweeps,
		}, nil
	}

	exCfg, err := buildExchangeConfig(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case "send":
		return &SendMode[T]{base: b, Config: exCfg, Kind: kind, Value: value}, nil
	case "exchange":
		return &ExchangeMode[T]{
			base:     b,
			Config:   exCfg,
			Kind:     kind,
			Value:    value,
			Count:    cfg.Count,
			Interval: cfg.Interval,
			Breaker:  &retry.CircuitBreakerConfig{MaxFailures: config.DefaultBreakerFailures},
		}, nil
	case "repeat":
		return &RepeatMode[T]{
			base:       b,
			Config:     exCfg,
			Kind:       kind,
			Value:      value,
			Schedule:   repeatSchedule(cfg),
			UntilReply: cfg.UntilReply,
		}, nil
	}
	return nil, fmt.Errorf("unknown mode %q (want one of %s)", cfg.Mode, strings.Join(Modes(), ", "))
}

// ── shared helpers ───────────────────────────────────────────────────

func buildExchangeConfig(cfg *config.Config) (exchange.Config, error) {
	var opts []exchange.ConfigOption
	if cfg.RetrySends {
		opts = append(opts, exchange.WithSendRetry(perrors.IsRetryable))
	}
	return cfg.ExchangeConfig("", opts...)
}

// repeatSchedule picks the retransmission schedule: --backoff sends
// starting at the interval, else --count sends one interval apart,
// else the delay list.
func repeatSchedule(cfg *config.Config) retry.Schedule {
	switch {
	case cfg.Backoff > 0:
		return (&retry.Backoff{
			InitialDelay: cfg.Interval,
			MaxDelay:     config.DefaultMaxBackoff,
			Multiplier:   2,
			MaxAttempts:  cfg.Backoff,
			Jitter:       true,
		}).Schedule()
	case cfg.Count > 0:
		return retry.Fixed{Interval: cfg.Interval, Count: cfg.Count}
	default:
		return retry.Delays(cfg.Delays)
	}
}

// payload parses the first mode argument into the codec's type.
func payload[T any](cfg *config.Config, kind Kind[T]) (T, error) {
	var zero T
	if len(cfg.Args) == 0 {
		return zero, fmt.Errorf("%s needs a payload argument", cfg.Mode)
	}
	v, err := kind.Parse(cfg.Args[0])
	if err != nil {
		return zero, fmt.Errorf("payload: %w", err)
	}
	// Encode once here so an unencodable payload fails before any
	// socket is bound.
	if _, err := kind.Codec.Encode(v); err != nil {
		return zero, err
	}
	return v, nil
}

// buildCapability selects the per-datagram behaviour of echo mode.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Execute != "" || cfg.Command != "" {
		return &capability.Exec{
			Program: cfg.Execute,
			Command: cfg.Command,
		}
	}
	return capability.Echo{}
}
