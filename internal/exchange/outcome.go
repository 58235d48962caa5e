package exchange

import perrors "polygon/internal/errors"

// Outcome classifies how an exchange ended.
type Outcome int

const (
	OK Outcome = iota
	EncodeFailed
	SendFailed
	RetryExhausted
	Cancelled
	Failed // receive-side failure, e.g. the handle was closed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case EncodeFailed:
		return "encode-failed"
	case SendFailed:
		return "send-failed"
	case RetryExhausted:
		return "retry-exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// OutcomeOf maps the error returned by an exchange to its Outcome.
func OutcomeOf(err error) Outcome {
	var (
		enc *perrors.EncodeError
		snd *perrors.SendError
	)
	switch {
	case err == nil:
		return OK
	case perrors.Is(err, perrors.ErrCancelled):
		return Cancelled
	case perrors.Is(err, perrors.ErrRetryExhausted):
		return RetryExhausted
	case perrors.As(err, &enc):
		return EncodeFailed
	case perrors.As(err, &snd):
		return SendFailed
	default:
		return Failed
	}
}
