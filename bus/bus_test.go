package bus

import (
	"errors"
	"testing"
	"time"

	"go-surface/registry"
)

func noop(_ Context, _ Message) error { return nil }

// registerAll fills every required kind with the given handler for
// KindUpdateDial and noops for the rest.
func registerAll(t *testing.T, b *Bus, dial Handler) {
	t.Helper()
	if dial == nil {
		dial = noop
	}
	for _, pair := range []struct {
		k Kind
		h Handler
	}{
		{KindUpdateDial, dial},
		{KindSetMode, noop},
		{KindForceRedraw, noop},
		{KindRemoteChar, noop},
	} {
		if err := b.Handle(pair.k, pair.h); err != nil {
			t.Fatalf("Handle(%s) failed: %v", pair.k, err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timeout waiting for %s", what)
}

// TestStartRequiresAllHandlers verifies the worker refuses to start with
// an incomplete handler map.
func TestStartRequiresAllHandlers(t *testing.T) {
	b := New(time.Millisecond)
	b.Handle(KindUpdateDial, noop)

	err := b.Start()
	if !errors.Is(err, ErrMissingHandler) {
		t.Errorf("Expected ErrMissingHandler, got %v", err)
	}
}

// TestDuplicateHandler verifies a kind takes exactly one handler.
func TestDuplicateHandler(t *testing.T) {
	b := New(time.Millisecond)
	b.Handle(KindSetMode, noop)

	if err := b.Handle(KindSetMode, noop); !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("Expected ErrDuplicateHandler, got %v", err)
	}
	if err := b.Handle(KindForceRedraw, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Expected ErrNilHandler, got %v", err)
	}
}

// TestBatchFIFOWithMalformedMiddle verifies a malformed message in the
// middle of a batch is logged and skipped while the surrounding messages
// are applied in order.
func TestBatchFIFOWithMalformedMiddle(t *testing.T) {
	reg := registry.New()
	id2 := registry.ControlID{Module: "ch", Slot: 2}
	id4 := registry.ControlID{Module: "ch", Slot: 4}
	reg.Register(registry.Control{ID: id2, Min: 0, Max: 127})
	reg.Register(registry.Control{ID: id4, Min: 0, Max: 127})

	b := New(time.Millisecond)
	registerAll(t, b, func(_ Context, msg Message) error {
		du, ok := msg.Payload.(DialUpdate)
		if !ok {
			return Malformed(msg, "bus.DialUpdate")
		}
		return reg.ApplyHardware(du.Control, du.Raw)
	})

	b.Enqueue(UpdateDialValue(id2, 90))
	b.Enqueue(newMessage(KindUpdateDial, "not a dial update"))
	b.Enqueue(UpdateDialValue(id4, 10))

	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Shutdown(time.Second)

	waitFor(t, "batch to drain", func() bool { return b.Processed() == 3 })

	if v, _ := reg.Value(id2); v != 90 {
		t.Errorf("Expected ch/2 = 90, got %v", v)
	}
	if v, _ := reg.Value(id4); v != 10 {
		t.Errorf("Expected ch/4 = 10, got %v", v)
	}
	if b.Failed() != 1 {
		t.Errorf("Expected exactly 1 failed message, got %d", b.Failed())
	}
}

// TestHandlerPanicIsolated verifies a panicking handler cannot take down
// the worker or the rest of the batch.
func TestHandlerPanicIsolated(t *testing.T) {
	b := New(time.Millisecond)
	applied := make(chan float64, 2)
	registerAll(t, b, func(_ Context, msg Message) error {
		du := msg.Payload.(DialUpdate)
		if du.Raw == 0 {
			panic("bad sample")
		}
		applied <- du.Raw
		return nil
	})

	id := registry.ControlID{Module: "ch", Slot: 0}
	b.Enqueue(UpdateDialValue(id, 0))  // panics
	b.Enqueue(UpdateDialValue(id, 77)) // must still run

	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Shutdown(time.Second)

	select {
	case v := <-applied:
		if v != 77 {
			t.Errorf("Expected 77 after the panic, got %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: batch aborted after panic")
	}
	if b.Failed() != 1 {
		t.Errorf("Expected 1 failed message, got %d", b.Failed())
	}
}

// TestSnapshotIsolation verifies handlers get an independent copy of the
// shared context.
func TestSnapshotIsolation(t *testing.T) {
	b := New(time.Millisecond)
	controls := []registry.ControlID{{Module: "a", Slot: 0}, {Module: "b", Slot: 1}}
	b.SetContext(Context{Mode: "synth", Controls: controls})

	snap := b.Snapshot()
	snap.Controls[0] = registry.ControlID{Module: "mutated", Slot: 9}

	again := b.Snapshot()
	if again.Controls[0].Module != "a" {
		t.Errorf("Snapshot mutation leaked into the bus: %v", again.Controls[0])
	}
	if again.Mode != "synth" {
		t.Errorf("Expected mode synth, got %q", again.Mode)
	}
}

// TestShutdownTimeout verifies a stuck handler forces the timed-out exit
// path instead of hanging shutdown forever.
func TestShutdownTimeout(t *testing.T) {
	b := New(time.Millisecond)
	entered := make(chan struct{})
	block := make(chan struct{})
	registerAll(t, b, func(_ Context, _ Message) error {
		close(entered)
		<-block
		return nil
	})

	b.Enqueue(UpdateDialValue(registry.ControlID{Module: "ch", Slot: 0}, 1))
	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-entered

	err := b.Shutdown(50 * time.Millisecond)
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("Expected ErrShutdownTimeout, got %v", err)
	}
	close(block)
}

// TestEnqueueAfterShutdown verifies late messages are dropped, not queued.
func TestEnqueueAfterShutdown(t *testing.T) {
	b := New(time.Millisecond)
	if err := b.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	b.Enqueue(SetMode("synth"))
	if n := b.Backlog(); n != 0 {
		t.Errorf("Expected empty queue after shutdown, got %d", n)
	}

	if err := b.Shutdown(time.Second); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Expected ErrBusClosed on double shutdown, got %v", err)
	}
}

// TestBacklogAverage verifies the rolling drain-size window.
func TestBacklogAverage(t *testing.T) {
	b := New(time.Millisecond)
	if avg := b.BacklogAverage(); avg != 0 {
		t.Errorf("Expected 0 average before any drain, got %v", avg)
	}

	b.recordBacklog(10)
	b.recordBacklog(20)
	if avg := b.BacklogAverage(); avg != 15 {
		t.Errorf("Expected average 15, got %v", avg)
	}
}

// TestDoubleStart verifies the worker launches once.
func TestDoubleStart(t *testing.T) {
	b := New(time.Millisecond)
	registerAll(t, b, nil)

	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Shutdown(time.Second)

	if err := b.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
}
