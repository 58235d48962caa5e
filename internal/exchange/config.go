package exchange

import (
	"net"
	"time"

	perrors "polygon/internal/errors"
	"polygon/util"
)

// Config is the validated, immutable description of one exchange.
type Config struct {
	target       *net.UDPAddr
	timeout      time.Duration
	maxAttempts  int
	filterSource bool
	sendRetry    func(error) bool
}

// ConfigOption adjusts a Config under construction.
type ConfigOption func(*Config)

// WithSourceFilter controls whether replies from addresses other than
// the target are discarded.  It is on by default.
func WithSourceFilter(on bool) ConfigOption {
	return func(c *Config) { c.filterSource = on }
}

// WithSendRetry installs a policy that marks send errors as retryable.
// A retryable send is retried in place with a short backoff; without a
// policy every send error ends the exchange.  [perrors.IsRetryable] is
// a ready-made policy.
func WithSendRetry(policy func(error) bool) ConfigOption {
	return func(c *Config) { c.sendRetry = policy }
}

// NewConfig validates and builds a Config.  target is "host:port";
// the host may be a name, resolved once here.
func NewConfig(target string, timeout time.Duration, maxAttempts int, opts ...ConfigOption) (Config, error) {
	if timeout <= 0 {
		return Config{}, &perrors.ConfigError{
			Field:   "timeout",
			Value:   timeout,
			Message: "must be positive",
			Hint:    "e.g. --timeout 500ms",
		}
	}
	if maxAttempts < 1 {
		return Config{}, &perrors.ConfigError{
			Field:   "attempts",
			Value:   maxAttempts,
			Message: "must be at least 1",
		}
	}
	addr, err := resolveTarget(target)
	if err != nil {
		return Config{}, err
	}

	c := Config{
		target:       addr,
		timeout:      timeout,
		maxAttempts:  maxAttempts,
		filterSource: true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// WithTarget returns a copy of c aimed at a different target.
func (c Config) WithTarget(target string) (Config, error) {
	addr, err := resolveTarget(target)
	if err != nil {
		return Config{}, err
	}
	c.target = addr
	return c, nil
}

func (c Config) Target() *net.UDPAddr     { return c.target }
func (c Config) Timeout() time.Duration   { return c.timeout }
func (c Config) MaxAttempts() int         { return c.maxAttempts }
func (c Config) FilterSource() bool       { return c.filterSource }
func (c Config) retryable(err error) bool { return c.sendRetry != nil && c.sendRetry(err) }

func resolveTarget(target string) (*net.UDPAddr, error) {
	addr, err := util.ResolveUDPAddr(target, false, false)
	if err != nil {
		return nil, &perrors.ConfigError{
			Field:   "dest",
			Value:   target,
			Message: err.Error(),
			Hint:    "use host:port with a port in 1-65535",
		}
	}
	return addr, nil
}
