package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBindIP and DefaultBindPort form the address bound when no
	// other is configured.
	DefaultBindIP   = "0.0.0.0"
	DefaultBindPort = 5060

	// DefaultDestIP and DefaultDestPort form the default destination.
	DefaultDestIP   = "127.0.0.1"
	DefaultDestPort = 5061

	// DefaultTimeout is the reply window of one exchange attempt.
	DefaultTimeout = time.Second

	// DefaultMaxAttempts is how many times an exchange sends before
	// giving up.
	DefaultMaxAttempts = 3

	// DefaultCodec is the payload codec used by the CLI.
	DefaultCodec = "bytes"

	// DefaultBufferSize is the receive capacity; it fits any UDP payload.
	DefaultBufferSize = 65507

	// DefaultInterval separates repeated exchanges (--count).
	DefaultInterval = time.Second

	// DefaultMaxConcurrentSweeps limits the number of simultaneous
	// sweep exchanges, each of which holds its own socket.
	DefaultMaxConcurrentSweeps = 64

	// DefaultBreakerFailures is how many consecutive failed exchanges
	// stop a repeated exchange run.
	DefaultBreakerFailures = 5

	// DefaultMaxBackoff caps the wait between repeat sends under
	// --backoff.
	DefaultMaxBackoff = 30 * time.Second
)

// DefaultDelays is the retransmission schedule of repeat mode.
var DefaultDelays = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
}
