package exchange

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Result is the successful outcome of an exchange.
type Result[T any] struct {
	ID       uuid.UUID
	Payload  T
	From     *net.UDPAddr
	Attempts int
	Elapsed  time.Duration
}

func assemble[T any](id uuid.UUID, payload T, from *net.UDPAddr, attempts int, elapsed time.Duration) *Result[T] {
	return &Result[T]{
		ID:       id,
		Payload:  payload,
		From:     from,
		Attempts: attempts,
		Elapsed:  elapsed,
	}
}
