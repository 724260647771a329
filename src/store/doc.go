// Package store provides the key-value persistence used by workloads.
//
// Two implementations are available: an in-memory map for the common
// case where a node's state may die with the process, and a Badger
// backed store for runs where acknowledged writes must survive a
// restart. Both enforce the same compare-and-set semantics, so the kv
// workload does not care which one it is given.
package store
