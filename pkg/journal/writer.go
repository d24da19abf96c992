package journal

import "raftlog/pkg/types"

// Writer is the durable append primitive the leader append pipeline drives.
//
// Contract summary:
//   - NextIndex returns the index the next successful Append will occupy.
//   - Append persists the entry at exactly the given index; the caller must
//     pass consecutive indexes with no gaps.
//   - A failed Append reports a StorageError describing the failure kind.
//
// Implementations are not required to tolerate concurrent calls; the append
// pipeline serializes all access from a single worker.
type Writer interface {
	NextIndex() types.LogIndex
	Append(entry *Entry, index types.LogIndex) (Indexed, error)
}
