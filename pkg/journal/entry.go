package journal

import "raftlog/pkg/types"

// Entry is a single log record: an opaque payload plus the record position
// range the stream owner stamps in once the entry's log index is known.
// Positions are set exactly once, before the durable write.
type Entry struct {
	data []byte

	lowestPosition  int64
	highestPosition int64
	stamped         bool
}

// NewEntry wraps a raw payload into an unstamped entry.
func NewEntry(data []byte) *Entry {
	return &Entry{data: data}
}

// Data returns the raw payload. The journal treats it as immutable.
func (e *Entry) Data() []byte {
	return e.data
}

// SetPositions stamps the record position range into the entry.
// Returns ErrPositionsStamped if positions were already set.
func (e *Entry) SetPositions(lowest, highest int64) error {
	if e.stamped {
		return ErrPositionsStamped
	}
	e.lowestPosition = lowest
	e.highestPosition = highest
	e.stamped = true
	return nil
}

func (e *Entry) LowestPosition() int64 {
	return e.lowestPosition
}

func (e *Entry) HighestPosition() int64 {
	return e.highestPosition
}

// Stamped reports whether positions have been set.
func (e *Entry) Stamped() bool {
	return e.stamped
}

// Indexed is an entry together with the index the journal durably assigned
// to it and the serialized size of the stored record.
// It is produced only by a successful durable write.
type Indexed struct {
	Index types.LogIndex
	Entry *Entry
	Size  int
}
