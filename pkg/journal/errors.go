package journal

import (
	"errors"
	"fmt"
)

var (
	ErrPositionsStamped = errors.New("raftlog: entry positions already stamped")
	ErrClosed           = errors.New("raftlog: journal closed")
)

// Kind classifies a storage failure. The set is closed: every failure the
// journal reports is exactly one of these.
type Kind int

const (
	// KindIOFault is a transient I/O failure expected to succeed on retry.
	KindIOFault Kind = iota

	// KindOutOfDiskSpace means the volume backing the journal is full.
	KindOutOfDiskSpace

	// KindTooLarge means the entry exceeds the configured record size limit.
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindIOFault:
		return "io_fault"
	case KindOutOfDiskSpace:
		return "out_of_disk_space"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// StorageError is a typed failure from the journal writer.
type StorageError struct {
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("raftlog: storage %s: %v", e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewIOFault(err error) error {
	return &StorageError{Kind: KindIOFault, Err: err}
}

func NewOutOfDiskSpace(err error) error {
	return &StorageError{Kind: KindOutOfDiskSpace, Err: err}
}

func NewTooLarge(err error) error {
	return &StorageError{Kind: KindTooLarge, Err: err}
}

// AsStorageError unwraps err into a StorageError, if it is one.
func AsStorageError(err error) (*StorageError, bool) {
	var serr *StorageError
	if errors.As(err, &serr) {
		return serr, true
	}
	return nil, false
}

// IsTooLarge reports whether err is an entry-too-large storage failure.
func IsTooLarge(err error) bool {
	serr, ok := AsStorageError(err)
	return ok && serr.Kind == KindTooLarge
}
