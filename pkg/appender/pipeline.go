package appender

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"raftlog/pkg/journal"
	"raftlog/pkg/metrics"
)

const (
	// DefaultMaxAttempts is the total attempt cap per request, including
	// the first attempt.
	DefaultMaxAttempts = 5

	// DefaultRetryDelay spaces retry attempts so a flapping volume does
	// not saturate the worker.
	DefaultRetryDelay = 10 * time.Millisecond
)

// Options configures a Pipeline.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Metrics     *metrics.Append
	Logger      *slog.Logger
}

// Pipeline serializes all append activity of a single leader: one worker
// goroutine drains submitted requests strictly FIFO, assigns each request
// its journal index, drives the pre-write hook, invokes the journal writer
// with bounded retry, and dispatches listener callbacks in submission order.
//
// A request's full lifecycle, including every retry, completes before the
// next request begins processing; index assignment therefore matches
// submission order with no gaps.
type Pipeline struct {
	writer journal.Writer

	maxAttempts int
	retryDelay  time.Duration
	m           *metrics.Append
	log         *slog.Logger

	// onFatal is invoked from the worker after a failure that requires the
	// leader to step down. The pipeline is already closed at that point.
	onFatal func(error)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*appendRequest
	closed bool

	done chan struct{}
}

// New creates a pipeline and starts its worker goroutine.
// onFatal may be nil.
func New(writer journal.Writer, onFatal func(error), opts Options) *Pipeline {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewAppend(prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Pipeline{
		writer:      writer,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		m:           opts.Metrics,
		log:         opts.Logger,
		onFatal:     onFatal,
		done:        make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	go p.run()
	return p
}

// Submit enqueues an append request. The call never blocks on the write:
// it either queues the request for the worker or, if the pipeline is
// closed, resolves it immediately via OnWriteError with ErrClosed.
func (p *Pipeline) Submit(data []byte, listener AppendListener) {
	req := newAppendRequest(data, listener)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		req.fail(ErrClosed)
		return
	}
	p.queue = append(p.queue, req)
	p.cond.Signal()
	p.mu.Unlock()
}

// Close transitions the pipeline to closed. Idempotent. The in-flight
// journal call, if any, is not interrupted; queued-but-not-started requests
// are resolved with ErrClosed by the worker before it exits.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Done is closed once the worker has drained the queue and exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

func (p *Pipeline) run() {
	defer close(p.done)

	for {
		req, ok := p.next()
		if !ok {
			p.drain()
			return
		}
		p.process(req)
	}
}

// next blocks until a request is queued or the pipeline closes. Closure is
// only honored here, at item boundaries, so a durable write is never left
// in an ambiguous state.
func (p *Pipeline) next() (*appendRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return nil, false
	}

	req := p.queue[0]
	p.queue = p.queue[1:]
	return req, true
}

// drain resolves every queued-but-not-started request with ErrClosed.
func (p *Pipeline) drain() {
	p.mu.Lock()
	pending := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, req := range pending {
		p.m.Failures.WithLabelValues("closed").Inc()
		req.fail(ErrClosed)
	}
}

func (p *Pipeline) process(req *appendRequest) {
	// The index is drawn once per request and reused across all retries.
	index := p.writer.NextIndex()
	entry := journal.NewEntry(req.data)

	if err := req.listener.UpdateRecords(entry, index); err != nil {
		p.log.Error("pre-write hook rejected entry",
			"request_id", req.id,
			"index", uint64(index),
			"error", err)
		p.m.Failures.WithLabelValues("hook").Inc()
		req.fail(err)
		p.fatal(fmt.Errorf("pre-write hook: %w", err))
		return
	}

	for attempt := 1; ; attempt++ {
		indexed, err := p.writer.Append(entry, index)
		if err == nil {
			p.m.Appends.Inc()
			req.succeed(indexed)
			return
		}

		switch classify(err) {
		case decisionRetry:
			if attempt < p.maxAttempts {
				p.m.Retries.Inc()
				p.log.Warn("transient journal fault, retrying append",
					"request_id", req.id,
					"index", uint64(index),
					"attempt", attempt,
					"error", err)
				time.Sleep(p.retryDelay)
				continue
			}
			p.log.Error("append retries exhausted",
				"request_id", req.id,
				"index", uint64(index),
				"attempts", attempt,
				"error", err)
			p.m.Failures.WithLabelValues(failureKind(err)).Inc()
			req.fail(err)
			p.fatal(err)
			return

		case decisionFailLocal:
			p.log.Warn("entry rejected by journal, leader keeps serving",
				"request_id", req.id,
				"index", uint64(index),
				"error", err)
			p.m.Failures.WithLabelValues(failureKind(err)).Inc()
			req.fail(err)
			return

		default:
			p.log.Error("fatal journal fault",
				"request_id", req.id,
				"index", uint64(index),
				"error", err)
			p.m.Failures.WithLabelValues(failureKind(err)).Inc()
			req.fail(err)
			p.fatal(err)
			return
		}
	}
}

// fatal closes the pipeline and reports the cause upward. The terminal
// OnWriteError for the failing request has already fired.
func (p *Pipeline) fatal(err error) {
	p.Close()
	if p.onFatal != nil {
		p.onFatal(err)
	}
}
