package render

import (
	"image"
	"testing"
	"time"

	"go-surface/registry"
)

type fakeWidget struct {
	name  string
	rect  image.Rectangle
	dirty bool
}

func (w *fakeWidget) Name() string            { return w.name }
func (w *fakeWidget) Bounds() image.Rectangle { return w.rect }
func (w *fakeWidget) Dirty() bool             { return w.dirty }
func (w *fakeWidget) ClearDirty()             { w.dirty = false }

type paintCall struct {
	union   image.Rectangle
	widgets []Widget
}

type fakeSurface struct {
	fulls  [][]Widget
	paints []paintCall
}

func (s *fakeSurface) PaintFull(all []Widget) {
	s.fulls = append(s.fulls, all)
}

func (s *fakeSurface) Paint(union image.Rectangle, dirty []Widget) {
	s.paints = append(s.paints, paintCall{union: union, widgets: dirty})
}

func names(ws []Widget) map[string]bool {
	m := make(map[string]bool)
	for _, w := range ws {
		m[w.Name()] = true
	}
	return m
}

// TestFramesFor verifies the duration-to-frame-count conversion.
func TestFramesFor(t *testing.T) {
	interval := 16 * time.Millisecond
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{16 * time.Millisecond, 1},
		{17 * time.Millisecond, 2},
		{100 * time.Millisecond, 7},
	}
	for _, c := range cases {
		if got := FramesFor(c.d, interval); got != c.want {
			t.Errorf("FramesFor(%v, %v) = %d, want %d", c.d, interval, got, c.want)
		}
	}
	if got := FramesFor(time.Second, 0); got != 0 {
		t.Errorf("FramesFor with zero interval = %d, want 0", got)
	}
}

// TestFullFramesCountdown verifies a request for n full frames produces
// exactly n unconditional repaints before the scheduler reverts.
func TestFullFramesCountdown(t *testing.T) {
	reg := registry.New()
	surface := &fakeSurface{}
	s := New(reg, surface, 16*time.Millisecond)
	s.AddWidget(&fakeWidget{name: "a", rect: image.Rect(0, 0, 10, 1)})

	s.RequestFullFrames(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Frame(now.Add(time.Duration(i) * 16 * time.Millisecond))
	}

	if len(surface.fulls) != 3 {
		t.Errorf("Expected exactly 3 full paints, got %d", len(surface.fulls))
	}
	st := s.State()
	if st.FullFramesRemaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", st.FullFramesRemaining)
	}
	if st.Mode != ModeIdle {
		t.Errorf("Expected idle after countdown, got %s", st.Mode)
	}
}

// TestRequestNeverDecreases verifies a smaller concurrent request cannot
// shrink an in-flight full-frame run.
func TestRequestNeverDecreases(t *testing.T) {
	reg := registry.New()
	s := New(reg, &fakeSurface{}, 16*time.Millisecond)

	s.RequestFullFrames(5)
	s.RequestFullFrames(2)
	if got := s.State().FullFramesRemaining; got != 5 {
		t.Errorf("Expected 5 remaining, got %d", got)
	}

	s.RequestFullFrames(8)
	if got := s.State().FullFramesRemaining; got != 8 {
		t.Errorf("Expected raise to 8, got %d", got)
	}

	s.RequestFullFrames(0)
	s.RequestFullFrames(-3)
	if got := s.State().FullFramesRemaining; got != 8 {
		t.Errorf("Expected non-positive requests ignored, got %d", got)
	}
}

// TestDirtyControlPaintsOwner verifies a dirty control repaints exactly
// its owning widget with the widget's bounds as the union.
func TestDirtyControlPaintsOwner(t *testing.T) {
	reg := registry.New()
	id := registry.ControlID{Module: "filter", Slot: 0}
	reg.Register(registry.Control{ID: id, Min: 0, Max: 127})
	reg.SetOwner(id, "a")

	surface := &fakeSurface{}
	s := New(reg, surface, 16*time.Millisecond)
	a := &fakeWidget{name: "a", rect: image.Rect(0, 0, 10, 1)}
	b := &fakeWidget{name: "b", rect: image.Rect(0, 1, 10, 2)}
	s.AddWidget(a)
	s.AddWidget(b)

	reg.SetValue(id, 50, registry.OriginOther)
	s.Frame(time.Now())

	if len(surface.paints) != 1 {
		t.Fatalf("Expected 1 partial paint, got %d", len(surface.paints))
	}
	got := names(surface.paints[0].widgets)
	if !got["a"] || got["b"] {
		t.Errorf("Expected only widget a repainted, got %v", got)
	}
	if surface.paints[0].union != a.Bounds() {
		t.Errorf("Expected union %v, got %v", a.Bounds(), surface.paints[0].union)
	}
	if s.State().Mode != ModeBurst {
		t.Errorf("Expected burst mode, got %s", s.State().Mode)
	}
}

// TestUnionCoversAllDirty verifies the paint union contains the bounds
// of every dirty widget.
func TestUnionCoversAllDirty(t *testing.T) {
	reg := registry.New()
	surface := &fakeSurface{}
	s := New(reg, surface, 16*time.Millisecond)
	a := &fakeWidget{name: "a", rect: image.Rect(0, 0, 10, 1), dirty: true}
	b := &fakeWidget{name: "b", rect: image.Rect(20, 5, 40, 6), dirty: true}
	s.AddWidget(a)
	s.AddWidget(b)

	s.Frame(time.Now())

	if len(surface.paints) != 1 {
		t.Fatalf("Expected 1 partial paint, got %d", len(surface.paints))
	}
	union := surface.paints[0].union
	if !a.Bounds().In(union) || !b.Bounds().In(union) {
		t.Errorf("Union %v does not cover both %v and %v", union, a.Bounds(), b.Bounds())
	}
	if a.Dirty() || b.Dirty() {
		t.Errorf("Expected dirty flags cleared after paint")
	}
}

// TestTrailingBurstFrames verifies the last union is repainted for the
// configured trailing frames after the final change.
func TestTrailingBurstFrames(t *testing.T) {
	reg := registry.New()
	surface := &fakeSurface{}
	s := New(reg, surface, 16*time.Millisecond, WithBurstFrames(2))
	a := &fakeWidget{name: "a", rect: image.Rect(0, 0, 10, 1), dirty: true}
	s.AddWidget(a)

	now := time.Now()
	s.Frame(now) // dirty paint
	s.Frame(now) // trailing 1
	s.Frame(now) // trailing 2
	s.Frame(now) // idle

	if len(surface.paints) != 3 {
		t.Fatalf("Expected 3 paints (1 dirty + 2 trailing), got %d", len(surface.paints))
	}
	for i, p := range surface.paints {
		if p.union != a.Bounds() {
			t.Errorf("Paint %d: expected union %v, got %v", i, a.Bounds(), p.union)
		}
	}
	if s.State().Mode != ModeIdle {
		t.Errorf("Expected idle after trailing frames, got %s", s.State().Mode)
	}
}

// TestFullFrameConsumesDirty verifies a full frame swallows pending
// dirty flags so nothing is repainted twice.
func TestFullFrameConsumesDirty(t *testing.T) {
	reg := registry.New()
	id := registry.ControlID{Module: "filter", Slot: 0}
	reg.Register(registry.Control{ID: id, Min: 0, Max: 127})
	reg.SetOwner(id, "a")

	surface := &fakeSurface{}
	s := New(reg, surface, 16*time.Millisecond)
	s.AddWidget(&fakeWidget{name: "a", rect: image.Rect(0, 0, 10, 1)})

	reg.SetValue(id, 30, registry.OriginOther)
	s.RequestFullFrames(1)

	now := time.Now()
	s.Frame(now)
	s.Frame(now)

	if len(surface.fulls) != 1 {
		t.Errorf("Expected 1 full paint, got %d", len(surface.fulls))
	}
	if len(surface.paints) != 0 {
		t.Errorf("Expected no partial paints after full frame, got %d", len(surface.paints))
	}
}

// TestIdleStatusRefresh verifies the status widget repaints on its own
// timer while everything else is idle.
func TestIdleStatusRefresh(t *testing.T) {
	reg := registry.New()
	surface := &fakeSurface{}
	status := &fakeWidget{name: "status", rect: image.Rect(0, 10, 40, 11)}
	s := New(reg, surface, 16*time.Millisecond, WithStatusWidget(status, 100*time.Millisecond))

	now := time.Now()
	s.Frame(now) // first idle frame paints the status once
	s.Frame(now.Add(16 * time.Millisecond))
	s.Frame(now.Add(32 * time.Millisecond))

	if len(surface.paints) != 1 {
		t.Fatalf("Expected 1 status paint before the timer elapses, got %d", len(surface.paints))
	}
	if got := names(surface.paints[0].widgets); !got["status"] {
		t.Errorf("Expected status widget in paint, got %v", got)
	}

	s.Frame(now.Add(120 * time.Millisecond))
	if len(surface.paints) != 2 {
		t.Errorf("Expected a second status paint after the timer, got %d", len(surface.paints))
	}
}

// TestFPSRolling verifies the rolling frame-rate figure.
func TestFPSRolling(t *testing.T) {
	reg := registry.New()
	s := New(reg, &fakeSurface{}, 16*time.Millisecond)

	if fps := s.FPS(); fps != 0 {
		t.Errorf("Expected 0 FPS before frames, got %v", fps)
	}

	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Frame(now.Add(time.Duration(i) * 20 * time.Millisecond))
	}

	fps := s.FPS()
	if fps < 49 || fps > 51 {
		t.Errorf("Expected ~50 FPS at 20ms spacing, got %v", fps)
	}
}
