package types

// NodeID identifies a node in a cluster.
type NodeID string

// Term is the consensus term an entry was written under.
type Term uint64

// LogIndex is the position key of an entry in the replicated log.
// Indexes start at 1 and are assigned without gaps.
type LogIndex uint64
