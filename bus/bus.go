package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-surface/debug"
	"go-surface/registry"
)

// DefaultTick is the worker cadence (~100 Hz).
const DefaultTick = 10 * time.Millisecond

// backlogWindow is the number of drain sizes in the rolling average.
const backlogWindow = 32

// backlogWarn is the rolling-average drain size above which a warning is
// logged. There is no back-pressure: producers are never throttled and an
// unbounded producer can grow the queue without limit.
const backlogWarn = 64.0

// Context is the immutable snapshot of shared state the worker hands to
// handlers. Captured under the bus lock so the worker never observes a
// UI-thread mutation mid-read.
type Context struct {
	Mode     string
	Controls []registry.ControlID
}

// Handler processes one message. Returned errors are logged with the
// message id; they never abort the rest of the batch.
type Handler func(ctx Context, msg Message) error

// Bus decouples producers (hardware callbacks, UI events, timers) from
// the single worker goroutine permitted to mutate shared control state.
type Bus struct {
	mu       sync.Mutex
	queue    []Message
	ctx      Context
	handlers map[Kind]Handler
	started  bool
	closed   bool

	tick time.Duration
	stop chan struct{}
	done chan struct{}

	// rolling drain-size window for backlog diagnostics
	window  [backlogWindow]int
	wIdx    int
	wFilled int
	prevAvg float64

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// New creates a bus with the given worker cadence (DefaultTick if zero).
func New(tick time.Duration) *Bus {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Bus{
		handlers: make(map[Kind]Handler),
		tick:     tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Handle registers the handler for a message kind.
func (b *Bus) Handle(k Kind, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w for kind %s", ErrNilHandler, k)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, k)
	}
	b.handlers[k] = h
	return nil
}

// Start validates that every required kind has a handler, then launches
// the worker goroutine.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyStarted
	}
	for _, k := range RequiredKinds {
		if _, ok := b.handlers[k]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingHandler, k)
		}
	}
	b.started = true
	go b.run()
	return nil
}

// Enqueue appends a message. Never blocks; safe from any goroutine.
// Malformed payloads are accepted here and rejected at dispatch.
func (b *Bus) Enqueue(msg Message) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		debug.Log("bus", "enqueue after shutdown, dropping %s kind=%s", msg.ID, msg.Kind)
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	b.enqueued.Add(1)
}

// SetContext replaces the shared context fields under the bus lock.
func (b *Bus) SetContext(ctx Context) {
	b.mu.Lock()
	b.ctx = Context{Mode: ctx.Mode, Controls: append([]registry.ControlID(nil), ctx.Controls...)}
	b.mu.Unlock()
}

// Snapshot returns an independent copy of the shared context.
func (b *Bus) Snapshot() Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Context{Mode: b.ctx.Mode, Controls: append([]registry.ControlID(nil), b.ctx.Controls...)}
}

// Backlog returns the current queue length.
func (b *Bus) Backlog() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// BacklogAverage returns the rolling average drain size.
func (b *Bus) BacklogAverage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.averageLocked()
}

// Processed returns the total number of dispatched messages.
func (b *Bus) Processed() uint64 { return b.processed.Load() }

// Failed returns the number of messages whose handler errored or panicked.
func (b *Bus) Failed() uint64 { return b.failed.Load() }

// Shutdown stops the worker and joins it for up to timeout. Messages
// still queued after a forced timeout are dropped and the drop is logged.
func (b *Bus) Shutdown(timeout time.Duration) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()

	close(b.stop)
	if !started {
		return nil
	}

	select {
	case <-b.done:
		debug.Log("bus", "worker joined cleanly")
		return nil
	case <-time.After(timeout):
		b.mu.Lock()
		dropped := len(b.queue)
		b.queue = nil
		b.mu.Unlock()
		debug.Log("bus", "forced exit: worker join timed out after %v, %d messages dropped", timeout, dropped)
		return fmt.Errorf("%w after %v (%d messages dropped)", ErrShutdownTimeout, timeout, dropped)
	}
}

// run is the worker loop: drain, dispatch in FIFO order, sleep out the
// remainder of the tick.
func (b *Bus) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			batch := b.drain()
			b.recordBacklog(len(batch))
			for _, msg := range batch {
				b.dispatch(msg)
			}
		}
	}
}

// drain swaps the queue for an empty one under the lock and returns the
// batch together with the snapshot context captured at the same instant.
func (b *Bus) drain() []Message {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()
	return batch
}

// dispatch runs one handler with panic isolation so one failing message
// cannot abort the remaining batch.
func (b *Bus) dispatch(msg Message) {
	ctx := b.Snapshot()

	b.mu.Lock()
	h, ok := b.handlers[msg.Kind]
	b.mu.Unlock()
	if !ok {
		b.failed.Add(1)
		debug.Log("bus", "no handler for message %s kind=%s, skipped", msg.ID, msg.Kind)
		return
	}

	err := func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = &HandlerPanicError{Msg: msg, Value: v}
			}
		}()
		return h(ctx, msg)
	}()

	b.processed.Add(1)
	if err != nil {
		b.failed.Add(1)
		debug.Err("bus", err)
	}
}

func (b *Bus) recordBacklog(n int) {
	b.mu.Lock()
	b.window[b.wIdx] = n
	b.wIdx = (b.wIdx + 1) % backlogWindow
	if b.wFilled < backlogWindow {
		b.wFilled++
	}
	avg := b.averageLocked()
	rising := avg > b.prevAvg
	b.prevAvg = avg
	b.mu.Unlock()

	if avg > backlogWarn && rising {
		debug.LogEvery(10, "bus", "backlog growing: rolling avg %.1f msgs/tick", avg)
	}
}

func (b *Bus) averageLocked() float64 {
	if b.wFilled == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < b.wFilled; i++ {
		sum += b.window[i]
	}
	return float64(sum) / float64(b.wFilled)
}
