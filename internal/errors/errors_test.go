package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "read", Addr: "127.0.0.1:5060", Err: io.EOF, Retryable: true},
			want: "read 127.0.0.1:5060: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "close", Addr: ":5060", Err: fmt.Errorf("bad fd")},
			want: "close :5060: bad fd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "read", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestBindError_Format(t *testing.T) {
	err := WrapBind("0.0.0.0:5060", fmt.Errorf("address already in use"))
	want := "bind 0.0.0.0:5060: address already in use"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSendError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unreachable", syscall.ENETUNREACH, true},
		{"host unreachable", syscall.EHOSTUNREACH, true},
		{"wrapped refused", &net.OpError{Op: "write", Net: "udp", Err: syscall.ECONNREFUSED}, true},
		{"too large", ErrDatagramTooLarge, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := WrapSend("10.0.0.1:9000", tt.err)
			if se.Retryable != tt.want {
				t.Errorf("Retryable = %v, want %v", se.Retryable, tt.want)
			}
			if IsRetryable(se) != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(se), tt.want)
			}
			if !Is(se, tt.err) {
				t.Error("should unwrap to inner error")
			}
		})
	}
}

func TestCodecErrors_Format(t *testing.T) {
	enc := &EncodeError{Codec: "raw", Err: fmt.Errorf("no fixed size")}
	if got, want := enc.Error(), "raw encode: no fixed size"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	dec := &DecodeError{Codec: "toml", Len: 12, Err: fmt.Errorf("missing id")}
	if got, want := dec.Error(), "toml decode (12 bytes): missing id"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExhaustedError(t *testing.T) {
	last := &DecodeError{Codec: "raw", Len: 3, Err: fmt.Errorf("short")}
	err := &ExhaustedError{Attempts: 3, Timeout: 200 * time.Millisecond, Last: last}

	if !Is(err, ErrRetryExhausted) || !Is(err, ErrTimeout) {
		t.Error("should match ErrRetryExhausted and ErrTimeout")
	}
	if Is(err, ErrCancelled) {
		t.Error("should not match ErrCancelled")
	}
	var de *DecodeError
	if !As(err, &de) || de != last {
		t.Error("should unwrap to the last decode error")
	}
	want := "no reply after 3 attempt(s) of 200ms (last discarded reply: raw decode (3 bytes): short)"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCancelledError(t *testing.T) {
	err := &CancelledError{Attempts: 1, Cause: context.Canceled}
	if !Is(err, ErrCancelled) {
		t.Error("should match ErrCancelled")
	}
	if !Is(err, context.Canceled) {
		t.Error("should unwrap to context.Canceled")
	}
	if Is(err, ErrRetryExhausted) {
		t.Error("cancelled is not exhaustion")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "timeout",
				Value:   "0s",
				Message: "must be positive",
				Hint:    "use e.g. --timeout 500ms",
			},
			want: "config: --timeout=0s: must be positive\n  hint: use e.g. --timeout 500ms",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "dest",
				Message: "required for exchange mode",
			},
			want: "config: --dest: required for exchange mode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("read", "10.0.0.1:5060", inner)

	if err.Op != "read" || err.Addr != "10.0.0.1:5060" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "read", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "read", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	ne := &NetworkError{Op: "read", Addr: "x", Err: io.EOF, Retryable: true}
	if !IsTemporary(ne) {
		t.Error("expected temporary")
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "write",
		Net: "udp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrRetryExhausted, ErrTimeout, ErrCancelled, ErrNoDestination,
		ErrDatagramTooLarge, ErrClosed, ErrCircuitOpen, ErrTruncated,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
