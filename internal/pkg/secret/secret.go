// Package secret holds the session signing key. A Value is set exactly once,
// at startup, and renders as "[REDACTED]" anywhere it could be printed.
package secret

import (
	"errors"
	"log/slog"
)

const redacted = "[REDACTED]"

// MinLength is the shortest key accepted for HS256 signing.
const MinLength = 32

var (
	ErrAlreadySet = errors.New("secret already set")
	ErrTooShort   = errors.New("secret shorter than minimum length")
)

// Value is a write-once secret.
type Value struct {
	b []byte
}

// New returns a Value holding a copy of s.
func New(s string) (Value, error) {
	var v Value
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return Value{}, err
	}
	return v, nil
}

// UnmarshalText sets the secret. It fails if the Value was already set, so
// config parsing cannot silently overwrite a key.
func (v *Value) UnmarshalText(text []byte) error {
	if v.b != nil {
		return ErrAlreadySet
	}
	if len(text) < MinLength {
		return ErrTooShort
	}
	v.b = append([]byte(nil), text...)
	return nil
}

// IsSet reports whether the secret has been provided.
func (v Value) IsSet() bool { return v.b != nil }

// Reveal returns a copy of the raw key bytes.
func (v Value) Reveal() []byte {
	return append([]byte(nil), v.b...)
}

func (v Value) String() string   { return redacted }
func (v Value) GoString() string { return redacted }

func (v Value) MarshalText() ([]byte, error) { return []byte(redacted), nil }

func (v Value) LogValue() slog.Value { return slog.StringValue(redacted) }
