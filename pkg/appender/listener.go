package appender

import (
	"raftlog/pkg/journal"
	"raftlog/pkg/types"
)

// AppendListener is implemented by the caller of an append and driven
// exclusively by the pipeline. Each request receives exactly one terminal
// callback: OnWrite or OnWriteError, never both.
type AppendListener interface {
	// UpdateRecords is called once per request, before the durable write,
	// so the caller can stamp position metadata into the entry. An error
	// here is fatal for the leader; the journal is never touched for the
	// request.
	UpdateRecords(entry *journal.Entry, index types.LogIndex) error

	// OnWrite is called exactly once on successful durable write.
	OnWrite(indexed journal.Indexed)

	// OnWriteError is called exactly once for a request that is rejected,
	// exhausts its retries, or arrives after the pipeline closed.
	OnWriteError(err error)

	// OnCommit and OnCommitError belong to the downstream commit pipeline;
	// the append pipeline never invokes them.
	OnCommit(indexed journal.Indexed)
	OnCommitError(indexed journal.Indexed, err error)
}
