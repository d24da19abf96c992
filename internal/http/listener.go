package http

import (
	"raftlog/pkg/journal"
	"raftlog/pkg/types"
)

type appendResult struct {
	indexed journal.Indexed
	err     error
}

// waitListener adapts the asynchronous append listener contract to a
// request/response handler: the terminal callback lands on a buffered
// channel the handler selects on.
type waitListener struct {
	ch chan appendResult
}

func newWaitListener() *waitListener {
	return &waitListener{ch: make(chan appendResult, 1)}
}

// UpdateRecords stamps the record position range. The HTTP surface writes
// one record per entry, so the window collapses to the index itself.
func (w *waitListener) UpdateRecords(entry *journal.Entry, index types.LogIndex) error {
	return entry.SetPositions(int64(index), int64(index))
}

func (w *waitListener) OnWrite(indexed journal.Indexed) {
	w.ch <- appendResult{indexed: indexed}
}

func (w *waitListener) OnWriteError(err error) {
	w.ch <- appendResult{err: err}
}

// Commit callbacks belong to the downstream replication pipeline.
func (w *waitListener) OnCommit(indexed journal.Indexed) {}

func (w *waitListener) OnCommitError(indexed journal.Indexed, err error) {}
