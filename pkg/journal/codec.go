package journal

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/etcd/raft/v3/raftpb"

	"raftlog/pkg/types"
)

// Records are stored as protobuf-marshalled raftpb.Entry messages. The entry
// Data field carries the position range followed by the raw payload:
//
//	[0:8)  lowest position, little endian
//	[8:16) highest position, little endian
//	[16:)  payload
const positionHeaderSize = 16

func encodeRecord(e *Entry, index types.LogIndex) ([]byte, error) {
	body := make([]byte, positionHeaderSize+len(e.data))
	binary.LittleEndian.PutUint64(body[0:8], uint64(e.lowestPosition))
	binary.LittleEndian.PutUint64(body[8:16], uint64(e.highestPosition))
	copy(body[positionHeaderSize:], e.data)

	rec := raftpb.Entry{
		Index: uint64(index),
		Type:  raftpb.EntryNormal,
		Data:  body,
	}
	buf, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return buf, nil
}

func decodeRecord(buf []byte) (*Entry, types.LogIndex, error) {
	var rec raftpb.Entry
	if err := rec.Unmarshal(buf); err != nil {
		return nil, 0, fmt.Errorf("unmarshal record: %w", err)
	}
	if len(rec.Data) < positionHeaderSize {
		return nil, 0, fmt.Errorf("record too short: %d bytes", len(rec.Data))
	}

	e := NewEntry(rec.Data[positionHeaderSize:])
	lowest := int64(binary.LittleEndian.Uint64(rec.Data[0:8]))
	highest := int64(binary.LittleEndian.Uint64(rec.Data[8:16]))
	if err := e.SetPositions(lowest, highest); err != nil {
		return nil, 0, err
	}
	return e, types.LogIndex(rec.Index), nil
}

// encodedSize is the serialized size a record would occupy on disk.
// Both writer implementations report sizes through this so that an Indexed
// entry means the same thing regardless of the backing store.
func encodedSize(e *Entry, index types.LogIndex) int {
	rec := raftpb.Entry{
		Index: uint64(index),
		Type:  raftpb.EntryNormal,
		Data:  make([]byte, positionHeaderSize+len(e.data)),
	}
	return rec.Size()
}
