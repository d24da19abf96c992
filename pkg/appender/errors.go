package appender

import "errors"

// ErrClosed resolves every request submitted to (or still queued in) a
// pipeline that has shut down. It signals a closed leader, not a storage
// fault: the caller must wait for a new leader.
var ErrClosed = errors.New("raftlog: appender is closed and cannot be used as appender")
