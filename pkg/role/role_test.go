package role

import (
	"errors"
	"sync"
	"testing"
	"time"

	"raftlog/pkg/appender"
	"raftlog/pkg/journal"
	"raftlog/pkg/types"
)

type mockTransitioner struct {
	mu    sync.Mutex
	calls []Target
	ch    chan struct{}
}

func newMockTransitioner() *mockTransitioner {
	return &mockTransitioner{ch: make(chan struct{}, 4)}
}

func (m *mockTransitioner) TransitionTo(target Target) {
	m.mu.Lock()
	m.calls = append(m.calls, target)
	m.mu.Unlock()
	m.ch <- struct{}{}
}

func (m *mockTransitioner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockTransitioner) first() Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[0]
}

func (m *mockTransitioner) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for transition")
	}
}

// failingWriter always fails with the configured error.
type failingWriter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (w *failingWriter) NextIndex() types.LogIndex { return 1 }

func (w *failingWriter) Append(entry *journal.Entry, index types.LogIndex) (journal.Indexed, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return journal.Indexed{}, w.err
}

func (w *failingWriter) appendCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type resultListener struct {
	ch chan error
}

func newResultListener() *resultListener {
	return &resultListener{ch: make(chan error, 1)}
}

func (l *resultListener) UpdateRecords(entry *journal.Entry, index types.LogIndex) error {
	return entry.SetPositions(int64(index), int64(index))
}

func (l *resultListener) OnWrite(indexed journal.Indexed) { l.ch <- nil }

func (l *resultListener) OnWriteError(err error) { l.ch <- err }

func (l *resultListener) OnCommit(indexed journal.Indexed) {}

func (l *resultListener) OnCommitError(indexed journal.Indexed, err error) {}

func (l *resultListener) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-l.ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for append result")
		return nil
	}
}

func fastOptions() Options {
	return Options{Append: appender.Options{RetryDelay: time.Millisecond}}
}

func TestLeaderAppendsEntry(t *testing.T) {
	writer := journal.NewInMemory(0)
	leader := NewLeader(writer, newMockTransitioner(), fastOptions())
	defer leader.Stop()

	if leader.State() != StateActive {
		t.Fatalf("expected active state, got %v", leader.State())
	}

	listener := newResultListener()
	leader.AppendEntry([]byte("hello"), listener)
	if err := listener.wait(t); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if writer.LastIndex() != 1 {
		t.Errorf("expected last index 1, got %d", writer.LastIndex())
	}
}

func TestLeaderStepsDownOnFatalFault(t *testing.T) {
	writer := &failingWriter{err: journal.NewOutOfDiskSpace(errors.New("volume full"))}
	transition := newMockTransitioner()
	leader := NewLeader(writer, transition, fastOptions())

	listener := newResultListener()
	leader.AppendEntry([]byte("doomed"), listener)

	err := listener.wait(t)
	serr, ok := journal.AsStorageError(err)
	if !ok || serr.Kind != journal.KindOutOfDiskSpace {
		t.Fatalf("expected out-of-disk-space error, got %v", err)
	}

	transition.wait(t)
	if got := transition.first(); got != TargetFollower {
		t.Errorf("expected transition to follower, got %v", got)
	}
	if transition.count() != 1 {
		t.Errorf("expected exactly 1 transition, got %d", transition.count())
	}
}

func TestLeaderRejectsAppendsAfterStepDown(t *testing.T) {
	writer := &failingWriter{err: journal.NewOutOfDiskSpace(errors.New("volume full"))}
	transition := newMockTransitioner()
	leader := NewLeader(writer, transition, fastOptions())

	first := newResultListener()
	leader.AppendEntry([]byte("fatal"), first)
	_ = first.wait(t)
	transition.wait(t)

	callsBefore := writer.appendCalls()

	late := newResultListener()
	leader.AppendEntry([]byte("too late"), late)
	err := late.wait(t)
	if !errors.Is(err, appender.ErrClosed) {
		t.Fatalf("expected closed-pipeline error, got %v", err)
	}
	if writer.appendCalls() != callsBefore {
		t.Errorf("late append must not reach the writer")
	}
	if transition.count() != 1 {
		t.Errorf("repeated fatal events must not duplicate transitions, got %d", transition.count())
	}
}

func TestLeaderStopLifecycle(t *testing.T) {
	writer := journal.NewInMemory(0)
	transition := newMockTransitioner()
	leader := NewLeader(writer, transition, fastOptions())

	leader.Stop()

	select {
	case <-leader.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("leader did not close after Stop")
	}
	// Closed state is set from the worker-exit watcher; give it a moment.
	deadline := time.Now().Add(time.Second)
	for leader.State() != StateClosed {
		if time.Now().After(deadline) {
			t.Fatalf("expected closed state, got %v", leader.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	listener := newResultListener()
	leader.AppendEntry([]byte("after stop"), listener)
	if err := listener.wait(t); !errors.Is(err, appender.ErrClosed) {
		t.Fatalf("expected closed-pipeline error, got %v", err)
	}

	// An external stop is not a leadership fault: no transition request.
	if transition.count() != 0 {
		t.Errorf("expected no transition on explicit stop, got %d", transition.count())
	}
}
