// Package workload implements the application handlers that a node can
// run: echo, kv, and broadcast.
//
// A workload only sees the app.Node interface and the messages routed to
// it; everything about transports, handshakes, and correlation lives in
// the node package. The factory in this package is what the engine uses
// to turn the workload name from the configuration into a handler.
//
// Echo
//
// Echo answers every echo request with an echo_ok carrying the same
// payload. It exists to validate a setup end to end.
//
// KV
//
// KV is a linearizable single-node register service: read, write, and
// cas, mapped onto a Store. Missing keys surface as key-does-not-exist
// errors and failed comparisons as precondition-failed, which is exactly
// what the workbench checkers expect to observe.
//
// Broadcast
//
// Broadcast accumulates values and gossips new ones to its neighbours,
// retrying each relay until it is acknowledged. Duplicates are absorbed
// silently. The neighbourhood is taken from the workbench topology
// message, and defaults to every peer before one arrives.
package workload
