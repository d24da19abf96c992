package role

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"raftlog/pkg/appender"
	"raftlog/pkg/journal"
	"raftlog/pkg/metrics"
)

// State is the lifecycle state of a leader role instance.
// The machine is Active -> Closing -> Closed; Closed is terminal. A fresh
// election produces a fresh instance.
type State int32

const (
	StateActive State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Target is the non-leader role a stepping-down leader transitions to.
type Target int

const TargetFollower Target = iota

func (t Target) String() string {
	if t == TargetFollower {
		return "follower"
	}
	return "unknown"
}

// Transitioner is the role-transition primitive. It must be idempotent and
// callable from the pipeline's worker goroutine.
type Transitioner interface {
	TransitionTo(target Target)
}

// Options configures a Leader.
type Options struct {
	Append appender.Options
	Logger *slog.Logger
}

// Leader owns the append pipeline for the duration of one leadership term.
// It accepts appendEntry calls while active, and steps down (requesting a
// transition to follower and closing the pipeline) when the pipeline
// reports a fatal append failure.
type Leader struct {
	id         uuid.UUID
	log        *slog.Logger
	m          *metrics.Append
	transition Transitioner

	pipeline *appender.Pipeline

	state    atomic.Int32
	stepOnce sync.Once
}

// NewLeader creates an active leader role appending to writer.
// transition may be nil when no role machinery exists (tests, single node).
func NewLeader(writer journal.Writer, transition Transitioner, opts Options) *Leader {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	l := &Leader{
		id:         uuid.New(),
		log:        opts.Logger,
		transition: transition,
	}
	l.pipeline = appender.New(writer, l.stepDown, opts.Append)
	l.m = opts.Append.Metrics

	// Flip to Closed once the worker has drained and exited.
	go func() {
		<-l.pipeline.Done()
		l.state.Store(int32(StateClosed))
		l.log.Info("leader role closed", "role_id", l.id)
	}()

	l.log.Info("leader role active", "role_id", l.id)
	return l
}

// AppendEntry is the sole public write entry point. Callers may invoke it
// concurrently from any goroutine; it only enqueues work. Once the role has
// left the active state every call resolves immediately via OnWriteError
// with the closed-pipeline error.
func (l *Leader) AppendEntry(data []byte, listener appender.AppendListener) {
	if l.State() != StateActive {
		listener.OnWriteError(appender.ErrClosed)
		return
	}
	// The pipeline re-checks closure under its own lock, so a concurrent
	// step-down between the check above and this call is still resolved
	// with the closed error, never dropped.
	l.pipeline.Submit(data, listener)
}

// State returns the current lifecycle state.
func (l *Leader) State() State {
	return State(l.state.Load())
}

// Stop requests an orderly shutdown: no new submissions are accepted, the
// in-flight journal call finishes, and queued requests are resolved with
// the closed error. Stop returns without waiting; use Done to observe the
// transition to Closed.
func (l *Leader) Stop() {
	if l.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		l.log.Info("leader role stopping", "role_id", l.id)
	}
	l.pipeline.Close()
}

// Done is closed once the role has reached the Closed state.
func (l *Leader) Done() <-chan struct{} {
	return l.pipeline.Done()
}

// stepDown handles a fatal pipeline failure. The pipeline has already
// closed itself; the transition is requested at most once per role
// instance, and the collaborator is assumed idempotent beyond that.
func (l *Leader) stepDown(cause error) {
	l.stepOnce.Do(func() {
		l.state.CompareAndSwap(int32(StateActive), int32(StateClosing))
		l.log.Error("fatal append failure, stepping down",
			"role_id", l.id,
			"error", cause)
		if l.m != nil {
			l.m.StepDowns.Inc()
		}
		if l.transition != nil {
			l.transition.TransitionTo(TargetFollower)
		}
	})
}
