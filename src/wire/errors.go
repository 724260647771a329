package wire

import (
	"errors"
	"fmt"
)

// Protocol error codes. The workbench distinguishes definite failures,
// where the request is guaranteed not to have taken effect, from
// indefinite ones, where the outcome is unknown and a retry may
// duplicate work.
const (
	// CodeTimeout indicates the request timed out (indefinite).
	CodeTimeout = 0
	// CodeNodeNotFound indicates the destination node does not exist.
	CodeNodeNotFound = 1
	// CodeNotSupported indicates the message type is not implemented.
	CodeNotSupported = 10
	// CodeTemporarilyUnavailable indicates the node cannot serve the
	// request right now; the sender may retry.
	CodeTemporarilyUnavailable = 11
	// CodeMalformedRequest indicates the request violated the protocol.
	CodeMalformedRequest = 12
	// CodeCrash indicates an unexpected internal failure (indefinite).
	CodeCrash = 13
	// CodeAbort indicates the request was definitely not processed.
	CodeAbort = 14
	// CodeKeyNotFound indicates a read or cas of a missing key.
	CodeKeyNotFound = 20
	// CodeKeyAlreadyExists indicates a create of an existing key.
	CodeKeyAlreadyExists = 21
	// CodePreconditionFailed indicates a cas whose expected value did
	// not match.
	CodePreconditionFailed = 22
	// CodeTxnConflict indicates a transaction conflict.
	CodeTxnConflict = 30
)

// Error is a protocol error: the payload of an ErrorType reply. It
// implements the error interface so handlers can return one directly
// and have the runtime relay code and text to the original sender.
type Error struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// NewError formats a protocol error with the given code.
func NewError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Text: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Text, e.Code)
}

// Definite reports whether the failure guarantees the request did not,
// and never will, take effect. Timeouts and crashes leave the outcome
// unknown.
func (e *Error) Definite() bool {
	return e.Code != CodeTimeout && e.Code != CodeCrash
}

// Body renders the error as an ErrorType message body.
func (e *Error) Body() *Body {
	b := NewBody(ErrorType)
	b.Set("code", e.Code)
	b.Set("text", e.Text)
	return b
}

// ErrorFromBody extracts the protocol error carried by an ErrorType
// body. It returns false when the body is not an error body.
func ErrorFromBody(b *Body) (*Error, bool) {
	if b == nil || b.Type != ErrorType {
		return nil, false
	}
	e := &Error{}
	if err := b.Decode(e); err != nil {
		return nil, false
	}
	return e, true
}

// AsError extracts a protocol error from an error chain.
func AsError(err error) (*Error, bool) {
	e := &Error{}
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// DecodeError reports input that could not be parsed into a Message.
// Decode failures are local to one record: the reader skips the record
// and carries on.
type DecodeError struct {
	reason string
}

func newDecodeError(format string, args ...interface{}) DecodeError {
	return DecodeError{reason: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("wire: %s", e.reason)
}

// IsDecode checks that an error is a DecodeError.
func IsDecode(err error) bool {
	_, ok := err.(DecodeError)
	return ok
}
