package poculum

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by Encode and Decode wraps exactly one
// of these; test with errors.Is.
var (
	ErrUnsupportedType        = errors.New("poculum: unsupported type")
	ErrValueTooLarge          = errors.New("poculum: value too large")
	ErrTruncatedInput         = errors.New("poculum: truncated input")
	ErrInvalidLength          = errors.New("poculum: invalid length")
	ErrSizeLimitExceeded      = errors.New("poculum: size limit exceeded")
	ErrInvalidTag             = errors.New("poculum: invalid tag")
	ErrInvalidEncoding        = errors.New("poculum: invalid utf-8 encoding")
	ErrRecursionLimitExceeded = errors.New("poculum: recursion limit exceeded")
)

// Error describes a failed Encode or Decode.
type Error struct {
	Op     string // "encode" or "decode"
	Kind   error  // one of the Err* sentinels
	Offset int    // byte offset into the input; -1 for encode errors
	Detail string
}

func (e *Error) Error() string {
	kind := "unknown error"
	if e.Kind != nil {
		kind = strings.TrimPrefix(e.Kind.Error(), "poculum: ")
	}
	msg := "poculum: " + e.Op
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	msg += ": " + kind
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func encodeErr(kind error, format string, args ...any) error {
	return &Error{Op: "encode", Kind: kind, Offset: -1, Detail: fmt.Sprintf(format, args...)}
}

func decodeErr(kind error, off int, format string, args ...any) error {
	return &Error{Op: "decode", Kind: kind, Offset: off, Detail: fmt.Sprintf(format, args...)}
}
