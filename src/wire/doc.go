// Package wire defines the data model of the line-delimited json
// protocol spoken with the workbench: an envelope naming the sending
// and receiving nodes, and a body made of a type tag, optional msg_id
// and in_reply_to correlation ids, and arbitrary application fields.
//
// The codec round-trips messages exactly. Body fields it does not know
// about are kept as raw json fragments, so handler payloads pass
// through the runtime untouched. Encoding is canonical: object keys are
// emitted in sorted order, and equal messages always produce identical
// bytes.
package wire
