package journal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"raftlog/pkg/types"
)

// FileConfig configures the file-backed journal.
type FileConfig struct {
	Dir string

	// MaxEntryBytes rejects records larger than this with a TooLarge
	// storage error. 0 disables the limit.
	MaxEntryBytes int64

	// SyncOnAppend fsyncs the journal file after every append.
	SyncOnAppend bool
}

// File is a durable journal writer backed by a single append-only file.
// Records are length-prefixed protobuf messages; on open the file is scanned
// to recover the index sequence.
type File struct {
	cfg      FileConfig
	filePath string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer

	lastIndex types.LogIndex
}

// NewFile opens (or creates) the journal in cfg.Dir and recovers the last
// written index.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("empty journal dir")
	}
	dir := filepath.Clean(cfg.Dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	filePath := filepath.Join(dir, "journal.log")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	f := &File{
		cfg:      cfg,
		filePath: filePath,
		file:     file,
		writer:   bufio.NewWriter(file),
	}

	if err := f.recover(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return f, nil
}

// recover scans existing records to restore lastIndex.
func (f *File) recover() error {
	err := f.replayLocked(func(ind Indexed) error {
		f.lastIndex = ind.Index
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to recover journal: %w", err)
	}
	if f.lastIndex > 0 {
		slog.Info("journal recovered", "path", f.filePath, "last_index", uint64(f.lastIndex))
	}
	return nil
}

func (f *File) NextIndex() types.LogIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastIndex + 1
}

func (f *File) Append(entry *Entry, index types.LogIndex) (Indexed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return Indexed{}, ErrClosed
	}
	if index != f.lastIndex+1 {
		return Indexed{}, fmt.Errorf(
			"raftlog: append index %d is not next index %d", index, f.lastIndex+1,
		)
	}

	buf, err := encodeRecord(entry, index)
	if err != nil {
		return Indexed{}, NewIOFault(err)
	}
	if f.cfg.MaxEntryBytes > 0 && int64(len(buf)) > f.cfg.MaxEntryBytes {
		return Indexed{}, NewTooLarge(fmt.Errorf(
			"record size %d exceeds limit %d", len(buf), f.cfg.MaxEntryBytes,
		))
	}

	if err := f.writeRecord(buf); err != nil {
		return Indexed{}, classifyIOError(err)
	}

	f.lastIndex = index
	return Indexed{Index: index, Entry: entry, Size: len(buf)}, nil
}

func (f *File) writeRecord(buf []byte) error {
	if len(buf) > math.MaxUint32 {
		return fmt.Errorf("record too large for length prefix: %d", len(buf))
	}
	if err := binary.Write(f.writer, binary.LittleEndian, uint32(len(buf))); err != nil {
		return fmt.Errorf("failed to write record length: %w", err)
	}
	if _, err := f.writer.Write(buf); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := f.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	if f.cfg.SyncOnAppend {
		if err := f.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync journal: %w", err)
		}
	}
	return nil
}

// classifyIOError maps an OS-level write failure to the storage taxonomy.
func classifyIOError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return NewOutOfDiskSpace(err)
	}
	return NewIOFault(err)
}

// Replay invokes callback for every record in the journal, in index order.
func (f *File) Replay(callback func(Indexed) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer != nil {
		if err := f.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush journal before replay: %w", err)
		}
	}
	return f.replayLocked(callback)
}

func (f *File) replayLocked(callback func(Indexed) error) error {
	file, err := os.Open(f.filePath)
	if err != nil {
		return fmt.Errorf("failed to open journal for reading: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close journal read file", "error", cerr)
		}
	}()

	reader := bufio.NewReader(file)
	for {
		var recLen uint32
		if err := binary.Read(reader, binary.LittleEndian, &recLen); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read record length: %w", err)
		}

		buf := make([]byte, recLen)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		entry, index, err := decodeRecord(buf)
		if err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		if err := callback(Indexed{Index: index, Entry: entry, Size: len(buf)}); err != nil {
			return fmt.Errorf("journal replay callback failed: %w", err)
		}
	}
}

// LastIndex returns the index of the most recently appended entry,
// or 0 if the journal is empty.
func (f *File) LastIndex() types.LogIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastIndex
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer != nil {
		if err := f.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush journal on close: %w", err)
		}
		f.writer = nil
	}
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			return fmt.Errorf("failed to close journal file: %w", err)
		}
		f.file = nil
	}
	return nil
}
