// Package cmd wires up the CLI flags and dispatches to the polygon core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"polygon/config"
	"polygon/internal/core"
	"polygon/internal/metrics"
	"polygon/internal/transport"
	"polygon/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X polygon/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Standard streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin  //nolint:gochecknoglobals
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// flagValues holds raw flag input before it is merged into a Config.
type flagValues struct {
	configPath string
	bind       []string
	dest       string
	timeout    time.Duration
	attempts   int
	delays     string
	codec      string
	noFilter   bool
	count      int
	interval   time.Duration
	untilReply bool
	backoff    int
	retrySends bool
	execute    string
	command    string
	verbose    int
	metrics    bool
	dryRun     bool
}

// Execute parses args and runs the requested polygon mode.
func Execute(ctx context.Context, args []string) error {
	var fv flagValues
	fs := flag.NewFlagSet("polygon", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── addresses ────────────────────────────────────────────────
	fs.StringVarP(&fv.configPath, "config", "f", "", "Load settings from a .toml or .yaml file")
	fs.StringArrayVarP(&fv.bind, "bind", "b", nil, "Local ip:port to bind (repeatable, tried in order)")
	fs.StringVarP(&fv.dest, "dest", "d", "", "Destination ip:port")

	// ── exchange ─────────────────────────────────────────────────
	fs.DurationVarP(&fv.timeout, "timeout", "t", config.DefaultTimeout, "Reply window per attempt")
	fs.IntVarP(&fv.attempts, "attempts", "a", config.DefaultMaxAttempts, "Maximum send attempts per exchange")
	fs.StringVar(&fv.codec, "codec", config.DefaultCodec, "Payload codec (bytes, raw, toml, yaml, cbor)")
	fs.BoolVar(&fv.noFilter, "no-filter", false, "Accept replies from any source")
	fs.BoolVar(&fv.retrySends, "retry-sends", false, "Retry transient send errors")

	// ── repetition ───────────────────────────────────────────────
	fs.StringVar(&fv.delays, "delays", "", "Repeat schedule in milliseconds, e.g. 500,1000,2000")
	fs.IntVarP(&fv.count, "count", "n", 0, "Stop after N datagrams or exchanges")
	fs.DurationVarP(&fv.interval, "interval", "i", config.DefaultInterval, "Pause between repeated exchanges")
	fs.BoolVar(&fv.untilReply, "until-reply", false, "Stop repeating at the first reply")
	fs.IntVar(&fv.backoff, "backoff", 0, "Repeat N times with exponential backoff starting at --interval")

	// ── execution ────────────────────────────────────────────────
	fs.StringVarP(&fv.execute, "exec", "e", "", "Echo mode: run program per datagram and reply with its output")
	fs.StringVarP(&fv.command, "command", "c", "", "Echo mode: run shell command per datagram")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&fv.metrics, "metrics", false, "Print counters as JSON on exit")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "polygon %s\n", version)
		return nil
	}

	cfg, err := loadConfig(fs, &fv)
	if err != nil {
		return err
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printSummary(stdout, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)

	var m *metrics.Collector
	if cfg.Metrics {
		m = metrics.New()
		defer func() { fmt.Fprintln(stderr, m.JSON()) }()
	}

	mode, err := core.Build(cfg, stdout, logger, m)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// loadConfig layers defaults, the config file, the environment and
// finally any flag the user actually set.
func loadConfig(fs *flag.FlagSet, fv *flagValues) (*config.Config, error) {
	cfg := config.Default()
	if fv.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(fv.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	if fs.Changed("bind") {
		cfg.BindAddresses = cfg.BindAddresses[:0:0]
		for _, s := range fv.bind {
			a, err := config.ParseAddress(s)
			if err != nil {
				return nil, fmt.Errorf("bind: %w", err)
			}
			cfg.BindAddresses = append(cfg.BindAddresses, a)
		}
	}
	if fs.Changed("dest") {
		a, err := config.ParseAddress(fv.dest)
		if err != nil {
			return nil, fmt.Errorf("dest: %w", err)
		}
		cfg.Destination = &a
	}
	if fs.Changed("timeout") {
		cfg.Timeout = fv.timeout
	}
	if fs.Changed("attempts") {
		cfg.MaxAttempts = fv.attempts
	}
	if fs.Changed("codec") {
		cfg.Codec = fv.codec
	}
	if fs.Changed("no-filter") {
		cfg.FilterSource = !fv.noFilter
	}
	if fs.Changed("delays") {
		d, err := config.ParseDelays(fv.delays)
		if err != nil {
			return nil, fmt.Errorf("delays: %w", err)
		}
		cfg.Delays = d
	}
	if fs.Changed("interval") {
		cfg.Interval = fv.interval
	}
	if fs.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if fs.Changed("metrics") {
		cfg.Metrics = fv.metrics
	}
	cfg.Count = fv.count
	cfg.UntilReply = fv.untilReply
	cfg.Backoff = fv.backoff
	cfg.RetrySends = fv.retrySends
	cfg.Execute = fv.execute
	cfg.Command = fv.command
	cfg.DryRun = fv.dryRun
	return cfg, nil
}

// payloadModes take their first argument as the payload.
var payloadModes = map[string]bool{"send": true, "exchange": true, "repeat": true}

func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) == 0 {
		return fmt.Errorf("mode required: one of %s (use --help for usage)", strings.Join(core.Modes(), ", "))
	}
	cfg.Mode = remaining[0]
	cfg.Args = remaining[1:]

	switch {
	case payloadModes[cfg.Mode]:
		if len(cfg.Args) > 1 {
			return fmt.Errorf("too many arguments for %s mode", cfg.Mode)
		}
		if len(cfg.Args) == 0 && !isTerminal(stdin) {
			p, err := readPayload(stdin)
			if err != nil {
				return err
			}
			cfg.Args = []string{p}
		}
	case cfg.Mode == "recv" || cfg.Mode == "echo":
		if len(cfg.Args) > 0 {
			return fmt.Errorf("%s mode takes no arguments", cfg.Mode)
		}
	}
	return nil
}

// readPayload reads one datagram's worth of stdin.  A single trailing
// newline is dropped so `echo hi | polygon send` sends "hi".
func readPayload(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, transport.MaxDatagramSize+1))
	if err != nil {
		return "", fmt.Errorf("stdin: %w", err)
	}
	if len(b) > transport.MaxDatagramSize {
		return "", fmt.Errorf("stdin: payload exceeds %d bytes", transport.MaxDatagramSize)
	}
	s := strings.TrimSuffix(string(b), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printSummary(w io.Writer, cfg *config.Config) {
	dest := "none"
	if cfg.Destination != nil {
		dest = cfg.Destination.String()
	}
	fmt.Fprintf(w, "mode:     %s\n", cfg.Mode)
	fmt.Fprintf(w, "bind:     %s\n", strings.Join(cfg.BindStrings(), ", "))
	fmt.Fprintf(w, "dest:     %s\n", dest)
	fmt.Fprintf(w, "codec:    %s\n", cfg.Codec)
	fmt.Fprintf(w, "timeout:  %v\n", cfg.Timeout)
	fmt.Fprintf(w, "attempts: %d\n", cfg.MaxAttempts)
	fmt.Fprintf(w, "filter:   %v\n", cfg.FilterSource)
	if cfg.Mode == "repeat" {
		switch {
		case cfg.Backoff > 0:
			fmt.Fprintf(w, "schedule: %d sends, backoff from %v\n", cfg.Backoff, cfg.Interval)
		case cfg.Count > 0:
			fmt.Fprintf(w, "schedule: %d sends every %v\n", cfg.Count, cfg.Interval)
		default:
			fmt.Fprintf(w, "schedule: %v\n", cfg.Delays)
		}
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `polygon – UDP datagram exchange tool v%s

Sends typed payloads over UDP and waits for replies, with a per-attempt
timeout and retransmission.

Usage:
  polygon [options] send <payload>             Send one datagram
  polygon [options] exchange <payload>         Send and wait for a reply
  polygon [options] repeat <payload>           Retransmit on a delay schedule
  polygon [options] recv                       Print received datagrams
  polygon [options] echo                       Reply to every datagram
  polygon [options] sweep <payload> <ip:port>...  Exchange with many targets

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Environment:
  BIND_ADDRS, BIND_PORT, DEST_ADDRS, DEST_PORT
  POLYGON_TIMEOUT, POLYGON_ATTEMPTS, POLYGON_DELAYS, POLYGON_CODEC,
  POLYGON_NO_FILTER, POLYGON_METRICS, POLYGON_VERBOSE

Examples:
  polygon -d 10.0.0.2:5061 exchange ping            Ping and wait 1s x3
  polygon --codec toml -d 10.0.0.2:5061 exchange 7:hello
  polygon -b 0.0.0.0:5061 echo                      Echo server
  polygon -b 0.0.0.0:5061 -c 'tr a-z A-Z' echo      Uppercase responder
  polygon --delays 500,1000 --until-reply repeat hi
  echo "hello" | polygon -d 10.0.0.2:5061 send     Payload from stdin
`)
}
