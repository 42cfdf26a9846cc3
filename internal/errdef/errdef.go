// Package errdef tags errors with a coarse category so callers can tell a
// dead connection from a bad response body without matching on text.
package errdef

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeUnknown Code = "unknown"
	// CodeTransport covers anything that stopped a response from arriving:
	// dial, TLS, reset, a closed client.
	CodeTransport Code = "transport"
	// CodeParse is a response body that is not valid JSON.
	CodeParse Code = "parse"
	// CodeTimeout is a call cut off by the client deadline.
	CodeTimeout Code = "timeout"
	// CodeMethod is an HTTP verb the client refuses to build a request for.
	CodeMethod     Code = "method"
	CodeConfig     Code = "config"
	CodeFilesystem Code = "filesystem"
	CodeHistory    Code = "history"
	CodeUI         Code = "ui"
)

// Error renders as "code: message: cause", leaving out the parts that are
// empty.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{string(e.Code)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap returns nil for a nil err, so results can be wrapped without a check.
// An empty format leaves the message out.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	e := &Error{Code: orUnknown(code), Err: err}
	if format != "" {
		e.Message = fmt.Sprintf(format, args...)
	}
	return e
}

// New formats only when args are given; a bare message is used as is.
func New(code Code, format string, args ...any) error {
	e := &Error{Code: orUnknown(code), Message: format}
	if len(args) > 0 {
		e.Message = fmt.Sprintf(format, args...)
	}
	return e
}

// CodeOf reports the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if !stdErrors.As(err, &e) {
		return CodeUnknown
	}
	return e.Code
}

// Is reports whether err carries code. A plain error carries none, not even
// CodeUnknown.
func Is(err error, code Code) bool {
	var e *Error
	return stdErrors.As(err, &e) && e.Code == code
}

// Message is err.Error() with nil mapped to "".
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func orUnknown(code Code) Code {
	if code == "" {
		return CodeUnknown
	}
	return code
}
