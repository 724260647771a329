// Package node implements the reactive core of an Eddy node.
//
// This is the part of Eddy that consumes the message stream, speaks the
// handshake, and drives the application handler. Node implements a state
// machine where the states are defined in the state package.
//
// Lifecycle
//
// Run moves the node into the AwaitingHandshake state, where it reads
// the transport until the workbench sends the init message. It names
// the node and enumerates the cluster, and is acknowledged with init_ok
// before anything else is written. Messages that arrive before init are
// refused with a temporarily-unavailable error because the node has no
// identity to answer with.
//
// Once initialized, the node enters the Ready state. The read loop never
// processes messages inline: each inbound request is dispatched to the
// handler on its own goroutine, in the order it was read, so that a slow
// handler cannot stall the stream. Replies are not dispatched at all;
// they resolve the pending call that is waiting for them, and replies
// that match no pending call are counted and dropped.
//
// Request and reply
//
// Handlers talk back through the app.Node interface. Send writes a
// fire-and-forget message, Reply correlates an answer with the request
// that prompted it, and Call combines a send with a bounded wait for the
// correlated reply. Each outbound request is stamped with a msg_id that
// is never reused, which is what makes the correlation sound when
// several calls are in flight at once.
//
// Shutdown
//
// Shutdown is triggered by the end of the inbound stream, by a transport
// failure, or explicitly through the Shutdown method. In all three cases
// the node stops reading, fails every outstanding call, gives in-flight
// handlers a bounded grace period, and closes the transport. Run returns
// an error only when the transport actually broke; running out of input
// is the normal way for a test run to end.
package node
