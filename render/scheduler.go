package render

import (
	"context"
	"image"
	"sync"
	"time"

	"go-surface/debug"
	"go-surface/registry"
)

// Mode is the scheduler's per-frame render decision state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeBurst
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeBurst:
		return "burst"
	case ModeFull:
		return "full"
	}
	return "unknown"
}

// DefaultBurstFrames is how many trailing frames stay in burst after the
// last dirty union, covering double-buffer flips and short animations.
const DefaultBurstFrames = 2

// fpsWindow is the number of frame timestamps in the rolling FPS figure.
const fpsWindow = 60

// FrameState is the process-wide scheduler state, exposed for
// diagnostics. Reset only by explicit full-redraw requests and mode
// switches.
type FrameState struct {
	Mode                Mode
	FullFramesRemaining int
	TargetInterval      time.Duration
	LastTick            time.Time
}

// FramesFor converts a wall-clock duration into a frame count at the
// given target interval. This is the only place durations become frames;
// the scheduler itself deals in frame counts exclusively.
func FramesFor(d, interval time.Duration) int {
	if d <= 0 || interval <= 0 {
		return 0
	}
	n := int((d + interval - 1) / interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Scheduler decides, once per frame, how much of the screen to repaint,
// and drives the surface with the minimal safe update. It owns the frame
// loop; RequestFullFrames is the only entry point other threads touch.
type Scheduler struct {
	mu sync.Mutex

	reg     *registry.Registry
	surface Surface

	widgets []Widget
	byName  map[string]Widget

	status      Widget // low-frequency readout painted on its own timer
	statusEvery time.Duration
	lastStatus  time.Time

	mode           Mode
	fullRemaining  int
	burstRemaining int
	burstFrames    int

	// last burst union, repainted during trailing frames
	lastUnion image.Rectangle
	lastDirty []Widget

	interval time.Duration
	lastTick time.Time

	// rolling FPS
	stamps [fpsWindow]time.Time
	stampI int
	stampN int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBurstFrames sets the trailing burst frame count.
func WithBurstFrames(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.burstFrames = n
		}
	}
}

// WithStatusWidget sets the widget repainted at a low frequency while
// idle (a clock or status readout).
func WithStatusWidget(w Widget, every time.Duration) Option {
	return func(s *Scheduler) {
		s.status = w
		s.statusEvery = every
	}
}

// New creates a scheduler targeting the given frame interval.
func New(reg *registry.Registry, surface Surface, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:         reg,
		surface:     surface,
		byName:      make(map[string]Widget),
		interval:    interval,
		burstFrames: DefaultBurstFrames,
		statusEvery: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status != nil {
		s.addWidgetLocked(s.status)
	}
	return s
}

// AddWidget registers a widget with the scheduler.
func (s *Scheduler) AddWidget(w Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addWidgetLocked(w)
}

func (s *Scheduler) addWidgetLocked(w Widget) {
	if _, exists := s.byName[w.Name()]; exists {
		return
	}
	s.widgets = append(s.widgets, w)
	s.byName[w.Name()] = w
}

// RequestFullFrames schedules n unconditional full frames. Never
// decreases an in-flight request. n is a frame count, not a duration.
func (s *Scheduler) RequestFullFrames(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if n > s.fullRemaining {
		s.fullRemaining = n
	}
	s.mu.Unlock()
}

// State returns a copy of the frame state for diagnostics.
func (s *Scheduler) State() FrameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FrameState{
		Mode:                s.mode,
		FullFramesRemaining: s.fullRemaining,
		TargetInterval:      s.interval,
		LastTick:            s.lastTick,
	}
}

// FPS returns the rolling measured frame rate.
func (s *Scheduler) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stampN < 2 {
		return 0
	}
	oldest := (s.stampI - s.stampN + fpsWindow) % fpsWindow
	newest := (s.stampI - 1 + fpsWindow) % fpsWindow
	span := s.stamps[newest].Sub(s.stamps[oldest])
	if span <= 0 {
		return 0
	}
	return float64(s.stampN-1) / span.Seconds()
}

// Frame runs one frame tick. Called from the UI thread only.
func (s *Scheduler) Frame(now time.Time) {
	s.mu.Lock()
	s.lastTick = now
	s.stamps[s.stampI] = now
	s.stampI = (s.stampI + 1) % fpsWindow
	if s.stampN < fpsWindow {
		s.stampN++
	}

	// Full mode: unconditional repaint until the counter runs out.
	if s.fullRemaining > 0 {
		s.fullRemaining--
		s.mode = ModeFull
		all := append([]Widget(nil), s.widgets...)
		s.mu.Unlock()

		// A full frame consumes every pending dirty flag.
		s.reg.TakeDirty()
		for _, w := range all {
			w.ClearDirty()
		}
		s.surface.PaintFull(all)
		return
	}
	s.mu.Unlock()

	dirty, union := s.collectDirty()

	s.mu.Lock()
	if len(dirty) == 0 {
		if s.burstRemaining > 0 {
			// Trailing burst frames repaint the last union even with no
			// new change, so both halves of a double buffer converge.
			s.burstRemaining--
			s.mode = ModeBurst
			u, dw := s.lastUnion, append([]Widget(nil), s.lastDirty...)
			s.mu.Unlock()
			s.surface.Paint(u, dw)
			return
		}
		s.mode = ModeIdle
		status := s.status
		due := status != nil && now.Sub(s.lastStatus) >= s.statusEvery
		if due {
			s.lastStatus = now
		}
		s.mu.Unlock()
		if due {
			s.surface.Paint(status.Bounds(), []Widget{status})
		}
		return
	}

	s.mode = ModeBurst
	s.burstRemaining = s.burstFrames
	s.lastUnion = union
	s.lastDirty = append(s.lastDirty[:0], dirty...)
	s.mu.Unlock()

	for _, w := range dirty {
		w.ClearDirty()
	}
	s.surface.Paint(union, dirty)
}

// collectDirty takes the registry's dirty controls, maps each to its
// owning widget, adds widgets flagging their own dirty state, and unions
// the minimal bounding rects.
func (s *Scheduler) collectDirty() ([]Widget, image.Rectangle) {
	seen := make(map[string]bool)
	var dirty []Widget
	var union image.Rectangle

	add := func(w Widget) {
		if w == nil || seen[w.Name()] {
			return
		}
		seen[w.Name()] = true
		dirty = append(dirty, w)
		union = union.Union(w.Bounds())
	}

	for _, c := range s.reg.TakeDirty() {
		s.mu.Lock()
		w := s.byName[c.Owner]
		s.mu.Unlock()
		if w == nil {
			debug.LogEvery(100, "render", "dirty control %s has no widget %q", c.ID, c.Owner)
			continue
		}
		add(w)
	}

	s.mu.Lock()
	widgets := append([]Widget(nil), s.widgets...)
	s.mu.Unlock()
	for _, w := range widgets {
		if w.Dirty() {
			add(w)
		}
	}
	return dirty, union
}

// Run is the UI-thread frame loop. It sleeps the remainder of the target
// interval after each frame and never free-runs, even when idle.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		start := time.Now()
		s.Frame(start)

		wait := s.interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
