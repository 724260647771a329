// Package peers manages the set of node identifiers forming a cluster.
//
// Unlike a production overlay, the cluster here is fixed for the life of
// the process: the workbench announces the full membership in the
// handshake, and the set never changes afterwards. Peers are identified
// by plain string ids assigned by the workbench, and all traffic between
// them is routed through the workbench itself, so the set carries no
// addresses or keys.
//
// In most of the runtime the interesting view is "everyone but me",
// which Others computes while preserving the announcement order the
// handshake established.
package peers
