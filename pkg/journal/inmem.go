package journal

import (
	"fmt"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"raftlog/pkg/types"
)

type orderedEntries = skipmap.FuncMap[uint64, Indexed]

// InMemory is a journal writer that keeps entries in an ordered concurrent
// map. Used for tests and single-node development; downstream consumers can
// read entries back by index.
type InMemory struct {
	maxEntryBytes int64

	entries   *orderedEntries
	lastIndex atomic.Uint64
}

// NewInMemory creates an in-memory journal. maxEntryBytes of 0 disables the
// record size limit.
func NewInMemory(maxEntryBytes int64) *InMemory {
	return &InMemory{
		maxEntryBytes: maxEntryBytes,
		entries: skipmap.NewFunc[uint64, Indexed](func(a, b uint64) bool {
			return a < b
		}),
	}
}

func (im *InMemory) NextIndex() types.LogIndex {
	return types.LogIndex(im.lastIndex.Load() + 1)
}

func (im *InMemory) Append(entry *Entry, index types.LogIndex) (Indexed, error) {
	if uint64(index) != im.lastIndex.Load()+1 {
		return Indexed{}, fmt.Errorf(
			"raftlog: append index %d is not next index %d", index, im.lastIndex.Load()+1,
		)
	}

	size := encodedSize(entry, index)
	if im.maxEntryBytes > 0 && int64(size) > im.maxEntryBytes {
		return Indexed{}, NewTooLarge(fmt.Errorf(
			"record size %d exceeds limit %d", size, im.maxEntryBytes,
		))
	}

	indexed := Indexed{Index: index, Entry: entry, Size: size}
	im.entries.Store(uint64(index), indexed)
	im.lastIndex.Store(uint64(index))
	return indexed, nil
}

// Get returns the entry stored at index.
func (im *InMemory) Get(index types.LogIndex) (Indexed, bool) {
	return im.entries.Load(uint64(index))
}

// LastIndex returns the index of the most recently appended entry,
// or 0 if the journal is empty.
func (im *InMemory) LastIndex() types.LogIndex {
	return types.LogIndex(im.lastIndex.Load())
}

// Len returns the number of stored entries.
func (im *InMemory) Len() int {
	return im.entries.Len()
}
