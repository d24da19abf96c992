package appender

import (
	"github.com/google/uuid"

	"raftlog/pkg/journal"
)

// appendRequest is the internal unit of work: created on Submit, destroyed
// once resolved. The resolved flag is the one-shot completion token that
// guarantees exactly one terminal callback per request; it is only touched
// from the pipeline worker and from Submit's fast-reject path, never both
// for the same request.
type appendRequest struct {
	id       uuid.UUID
	data     []byte
	listener AppendListener
	resolved bool
}

func newAppendRequest(data []byte, listener AppendListener) *appendRequest {
	return &appendRequest{
		id:       uuid.New(),
		data:     data,
		listener: listener,
	}
}

func (r *appendRequest) succeed(indexed journal.Indexed) {
	if r.resolved {
		return
	}
	r.resolved = true
	r.listener.OnWrite(indexed)
}

func (r *appendRequest) fail(err error) {
	if r.resolved {
		return
	}
	r.resolved = true
	r.listener.OnWriteError(err)
}
