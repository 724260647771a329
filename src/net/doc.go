// Package net implements transports that carry wire records between a
// node and the workbench driving it.
//
// This package contains the implementations of the Transport interface,
// which the node runtime uses to read inbound messages and write
// outbound ones. There are two implementations:
//
// - Stream: framing records over a reader/writer pair, one per line
//
// - Inmem: in-memory transport used only for testing
//
// Stream
//
// The stream transport is the production transport. The workbench
// launches the node process and speaks to it over its standard streams:
// requests arrive on stdin, and everything the node emits on stdout is
// routed to the addressed destination. Each record is a single line of
// JSON; writes are serialized so concurrent handlers cannot interleave
// partial records, which matters because a torn line would be dropped
// by the workbench as malformed. Logging must therefore stay on stderr.
//
// Inmem
//
// The in-memory transport gives tests a synchronous handle on both
// sides of the conversation: Deliver injects an inbound message,
// NextSent collects the next outbound one with a timeout, and EndInput
// simulates the workbench closing the stream.
//
// All transports surface ErrTransportShutdown once closed, which the
// runtime reads as the end of the session rather than a failure.
package net
