package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps an error code (of type ErrorCode),
// a message and an optional cause.
type Error struct {
	Code ErrorCode // The error code
	Msg  string    // The error message
	Err  error     // The underlying cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This makes errors.Is(err, ErrKeyNotFound) match every key miss, whatever the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError attaches a code and message to an underlying error.
// Errors that already carry a code are returned unchanged.
func WrapError(code ErrorCode, err error, msg string) error {
	if err == nil {
		return nil
	}
	var kvErr *Error
	if errors.As(err, &kvErr) {
		return err
	}
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// CodeOf returns the code carried by err, or CodeOther if it carries none.
func CodeOf(err error) ErrorCode {
	var kvErr *Error
	if errors.As(err, &kvErr) {
		return kvErr.Code
	}
	return CodeOther
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrorCode uint8

const (
	CodeOther           ErrorCode = iota // 0: Malformed call input or anything unclassified.
	CodeKeyNotFound                      // 1: Get on an absent key.
	CodeConditionFailed                  // 2: IfNotExist violated.
	CodeIO                               // 3: File or network failure.
	CodeParser                           // 4: A record could not be decoded at all.
	CodeWatcher                          // 5: A watch could not be established or failed.
	CodeChannel                          // 6: Event plumbing of a watch broke down.
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOther:
		return "Other"
	case CodeKeyNotFound:
		return "KeyNotFound"
	case CodeConditionFailed:
		return "ConditionFailed"
	case CodeIO:
		return "Io"
	case CodeParser:
		return "Parser"
	case CodeWatcher:
		return "Watcher"
	case CodeChannel:
		return "Channel"
	default:
		return "Unknown"
	}
}

// Sentinels for the two codes callers branch on.
var (
	ErrKeyNotFound     = NewError(CodeKeyNotFound, "")
	ErrConditionFailed = NewError(CodeConditionFailed, "")
)
