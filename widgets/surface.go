package widgets

import (
	"image"
	"strings"
	"sync"

	"go-surface/render"
)

// Viewer is a widget that can render itself to a string cell.
type Viewer interface {
	render.Widget
	View() string
}

// TermSurface is the terminal-backed paint target. It keeps the last
// rendered string per widget and recomposes the visible frame from
// whatever the scheduler repainted; the TUI picks the frame up via the
// update channel.
type TermSurface struct {
	mu      sync.Mutex
	order   []string
	views   map[string]string
	updates chan struct{}

	fullPaints  uint64
	burstPaints uint64
}

// NewTermSurface creates an empty surface.
func NewTermSurface() *TermSurface {
	return &TermSurface{
		views:   make(map[string]string),
		updates: make(chan struct{}, 1),
	}
}

// Updates signals each completed paint; the TUI redraws on it.
func (s *TermSurface) Updates() <-chan struct{} {
	return s.updates
}

// PaintFull implements render.Surface.
func (s *TermSurface) PaintFull(all []render.Widget) {
	s.mu.Lock()
	s.order = s.order[:0]
	for _, w := range all {
		s.order = append(s.order, w.Name())
		if v, ok := w.(Viewer); ok {
			s.views[w.Name()] = v.View()
		}
	}
	s.fullPaints++
	s.mu.Unlock()
	s.notify()
}

// Paint implements render.Surface: only the dirty widgets re-render.
func (s *TermSurface) Paint(_ image.Rectangle, dirty []render.Widget) {
	s.mu.Lock()
	for _, w := range dirty {
		if v, ok := w.(Viewer); ok {
			s.views[w.Name()] = v.View()
		}
	}
	s.burstPaints++
	s.mu.Unlock()
	s.notify()
}

// Frame returns the composed screen contents.
func (s *TermSurface) Frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out strings.Builder
	for i, name := range s.order {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.views[name])
	}
	return out.String()
}

// Paints returns the full and partial paint counters for diagnostics.
func (s *TermSurface) Paints() (full, burst uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullPaints, s.burstPaints
}

func (s *TermSurface) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
