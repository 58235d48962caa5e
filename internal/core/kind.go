package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"

	"polygon/internal/codec"
)

// Message is the structured payload the CLI sends with the toml, yaml
// and cbor codecs.  On the command line it is written "id:msg".
type Message struct {
	ID  uint32 `toml:"id" yaml:"id" cbor:"id" polygon:"required"`
	Msg string `toml:"msg" yaml:"msg" cbor:"msg"`
}

func (m Message) String() string {
	return fmt.Sprintf("id=%d msg=%q", m.ID, m.Msg)
}

// ParseMessage reads "id:msg".  Without a numeric id prefix the whole
// text is the message and the id is 0.
func ParseMessage(text string) (Message, error) {
	if idStr, msg, ok := strings.Cut(text, ":"); ok {
		if id, err := strconv.ParseUint(idStr, 10, 32); err == nil {
			return Message{ID: uint32(id), Msg: msg}, nil
		}
	}
	return Message{Msg: text}, nil
}

// Kind binds a codec to the CLI's text form of its values.
type Kind[T any] struct {
	Codec  codec.Codec[T]
	Parse  func(text string) (T, error)
	Format func(v T) string
}

// Render decodes b and formats the value.
func (k Kind[T]) Render(b []byte) (string, error) {
	v, err := k.Codec.Decode(b)
	if err != nil {
		return "", err
	}
	return k.Format(v), nil
}

func bytesKind(tty bool) Kind[[]byte] {
	return Kind[[]byte]{
		Codec:  codec.Bytes{},
		Parse:  func(s string) ([]byte, error) { return []byte(s), nil },
		Format: func(b []byte) string { return formatBytes(b, tty) },
	}
}

func rawKind() Kind[int32] {
	return Kind[int32]{
		Codec: codec.Raw[int32]{},
		Parse: func(s string) (int32, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
			if err != nil {
				return 0, fmt.Errorf("raw payload must be a 32-bit integer: %w", err)
			}
			return int32(n), nil
		},
		Format: func(v int32) string { return strconv.FormatInt(int64(v), 10) },
	}
}

func messageKind(c codec.Codec[Message]) Kind[Message] {
	return Kind[Message]{
		Codec:  c,
		Parse:  ParseMessage,
		Format: Message.String,
	}
}

// ── output ───────────────────────────────────────────────────────────

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatBytes shows printable text as is.  On a terminal anything else
// becomes a hex dump; into a pipe the bytes pass through untouched.
func formatBytes(b []byte, tty bool) string {
	if !tty || printable(b) {
		return string(b)
	}
	return strings.TrimRight(hex.Dump(b), "\n")
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
