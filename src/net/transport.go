package net

import (
	"errors"

	"github.com/mosaicnetworks/eddy/src/wire"
)

// ErrTransportShutdown is returned by transport operations after the
// transport was closed locally.
var ErrTransportShutdown = errors.New("transport shutdown")

// Transport provides message-grained access to the streams connecting
// the node to the workbench. Implementations own the framing of the
// underlying byte stream and must keep concurrent writes atomic: each
// Write produces exactly one record, never interleaved with another.
type Transport interface {
	// NextMessage blocks until a message is available and returns it.
	// It returns a wire.DecodeError for a malformed record, which the
	// caller may skip, io.EOF when the inbound stream is exhausted, and
	// ErrTransportShutdown after Close. Any other error is a fatal
	// stream failure. NextMessage is not safe for concurrent use; the
	// runtime is the transport's single reader.
	NextMessage() (*wire.Message, error)

	// Write encodes msg and appends it to the outbound stream. It is
	// safe for concurrent use. Failures are returned to the caller,
	// never swallowed.
	Write(msg *wire.Message) error

	// Close shuts the transport down and releases the underlying
	// streams, unblocking a pending NextMessage. It is idempotent.
	Close() error
}
