// Package app defines the handler capability: the interface between the
// runtime and the application logic it hosts.
//
// The runtime owns the wire, the handshake, and request/reply
// correlation; everything protocol-specific above that line lives in a
// Handler. A Handler receives each inbound non-reply message together
// with a Node handle exposing the runtime's send, call, and reply
// operations, and is free to block, fan out to peers, or ignore the
// message entirely. Handlers that need to initialize state once the
// node knows its identity implement the optional Starter hook.
//
// Built-in handlers for the standard workbench workloads live in the
// workload package; applications embed the runtime by implementing
// Handler themselves.
package app
