package app

import (
	"errors"
	"time"

	"github.com/mosaicnetworks/eddy/src/wire"
)

var (
	// ErrTimeout is returned by Call when no correlated reply arrived
	// within the caller's timeout. The outcome of the request at the
	// destination is unknown; a late reply, if one ever arrives, is
	// discarded as an orphan.
	ErrTimeout = errors.New("call timed out")

	// ErrShutdown is returned by Call when the node is not serving,
	// either because the handshake has not completed or because
	// shutdown has begun.
	ErrShutdown = errors.New("node is shut down")
)

// Node is the runtime handle passed to handlers. It is safe for
// concurrent use from any number of handler invocations.
type Node interface {
	// SelfID returns the node's assigned id.
	SelfID() string

	// PeerIDs returns the ids of the other cluster members, in the
	// order the handshake announced them.
	PeerIDs() []string

	// Send writes a fire-and-forget message to dest.
	Send(dest string, body *wire.Body) error

	// Call sends a request stamped with a fresh msg_id and blocks the
	// calling goroutine until the correlated reply arrives, the timeout
	// elapses, or the node shuts down. Only the caller is suspended;
	// the node keeps reading and dispatching. A reply carrying a
	// protocol error surfaces as a *wire.Error; an expired wait as
	// ErrTimeout; a stopped node as ErrShutdown.
	Call(dest string, body *wire.Body, timeout time.Duration) (*wire.Message, error)

	// Reply answers orig, deriving the destination and in_reply_to
	// correlation id from it.
	Reply(orig *wire.Message, body *wire.Body) error
}

// Handler is the application logic hosted by a node. HandleMessage is
// invoked once per inbound non-reply message, each invocation on its
// own goroutine, started in the order the messages were read.
// Returning an error makes the runtime answer the message with a
// protocol error reply; return a *wire.Error to control the code.
type Handler interface {
	HandleMessage(node Node, msg *wire.Message) error
}

// Starter is implemented by handlers that need a hook right after the
// handshake completes, before any message is dispatched. An OnStart
// failure is fatal to the node.
type Starter interface {
	OnStart(node Node) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(node Node, msg *wire.Message) error

// HandleMessage implements the Handler interface.
func (f HandlerFunc) HandleMessage(node Node, msg *wire.Message) error {
	return f(node, msg)
}
