package throttle

import (
	"context"
	"fmt"
	"sync"
)

// DefaultLimit is the per-lane concurrency used when Config leaves it unset.
const DefaultLimit = 1

// Config configures lane concurrency.
type Config struct {
	// DefaultLimit applies to any lane not listed in LaneLimits.
	DefaultLimit int

	// LaneLimits overrides the concurrency of individual lanes.
	LaneLimits map[string]int
}

// LaneStats is a point-in-time view of one lane.
type LaneStats struct {
	Limit   int `json:"limit"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

// Queue admits work in FIFO order per lane, never running more than the
// lane's limit concurrently.
//
// A Queue is safe for concurrent use. The zero value is not usable; call New.
type Queue struct {
	cfg Config

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

type lane struct {
	limit   int
	active  int
	pending []*job
}

// job is the type-erased half of a Ticket that the queue schedules.
type job struct {
	ctx  context.Context
	run  func()
	fail func(error)
	stop func() bool // detaches the cancellation watcher
}

// New creates a Queue.
func New(cfg Config) *Queue {
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Queue{
		cfg:   cfg,
		lanes: make(map[string]*lane),
	}
}

// Ticket is the handle for one submitted unit of work. It resolves exactly once.
type Ticket[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newTicket[T any]() *Ticket[T] {
	return &Ticket[T]{done: make(chan struct{})}
}

func (t *Ticket[T]) resolve(v T, err error) {
	t.once.Do(func() {
		t.value = v
		t.err = err
		close(t.done)
	})
}

// Done is closed when the ticket has resolved.
func (t *Ticket[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the ticket resolves or ctx is done. Giving up on the
// wait does not cancel the work; cancel the context passed to Submit for that.
func (t *Ticket[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit enqueues fn on the named lane and returns its ticket immediately.
//
// Tickets on a lane are admitted in submission order. fn receives ctx; if
// ctx is done before fn is admitted, the ticket fails with ctx's error and
// fn never runs. A failure or panic in fn resolves only its own ticket.
func Submit[T any](ctx context.Context, q *Queue, laneName string, fn func(context.Context) (T, error)) *Ticket[T] {
	t := newTicket[T]()
	var zero T

	j := &job{ctx: ctx}
	j.fail = func(err error) { t.resolve(zero, err) }
	j.run = func() {
		defer func() {
			if r := recover(); r != nil {
				t.resolve(zero, fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()
		v, err := fn(ctx)
		t.resolve(v, err)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		j.fail(ErrClosed)
		return t
	}
	if err := ctx.Err(); err != nil {
		q.mu.Unlock()
		j.fail(err)
		return t
	}
	l := q.laneLocked(laneName)
	l.pending = append(l.pending, j)
	j.stop = context.AfterFunc(ctx, func() { q.abandon(laneName, j) })
	ready := admitLocked(l)
	q.mu.Unlock()

	q.start(laneName, ready)
	return t
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, q *Queue, laneName string, fn func(context.Context) (T, error)) (T, error) {
	return Submit(ctx, q, laneName, fn).Wait(ctx)
}

// Stats returns the state of every lane that has seen work.
func (q *Queue) Stats() map[string]LaneStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]LaneStats, len(q.lanes))
	for name, l := range q.lanes {
		out[name] = LaneStats{Limit: l.limit, Active: l.active, Pending: len(l.pending)}
	}
	return out
}

// Close fails every pending ticket with ErrClosed and rejects new submissions.
// Work already running is left to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	var dropped []*job
	for _, l := range q.lanes {
		dropped = append(dropped, l.pending...)
		l.pending = nil
	}
	q.mu.Unlock()

	for _, j := range dropped {
		j.stop()
		j.fail(ErrClosed)
	}
}

func (q *Queue) laneLocked(name string) *lane {
	l, ok := q.lanes[name]
	if !ok {
		limit := q.cfg.DefaultLimit
		if v, ok := q.cfg.LaneLimits[name]; ok && v > 0 {
			limit = v
		}
		l = &lane{limit: limit}
		q.lanes[name] = l
	}
	return l
}

// admitLocked pops jobs off the head of the lane while capacity remains and
// returns them for starting outside the lock.
func admitLocked(l *lane) []*job {
	var ready []*job
	for l.active < l.limit && len(l.pending) > 0 {
		j := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.active++
		ready = append(ready, j)
	}
	return ready
}

func (q *Queue) start(laneName string, ready []*job) {
	for _, j := range ready {
		go q.execute(laneName, j)
	}
}

func (q *Queue) execute(laneName string, j *job) {
	// Once admitted, cancellation is fn's business.
	if !j.stop() && j.ctx.Err() != nil {
		j.fail(j.ctx.Err())
	} else {
		j.run()
	}

	q.mu.Lock()
	l := q.lanes[laneName]
	l.active--
	var ready []*job
	if !q.closed {
		ready = admitLocked(l)
	}
	q.mu.Unlock()

	q.start(laneName, ready)
}

// abandon removes a pending job whose context ended before admission.
func (q *Queue) abandon(laneName string, j *job) {
	q.mu.Lock()
	l := q.lanes[laneName]
	found := false
	for i, p := range l.pending {
		if p == j {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			found = true
			break
		}
	}
	q.mu.Unlock()

	if found {
		j.fail(j.ctx.Err())
	}
}
