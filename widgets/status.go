package widgets

import (
	"fmt"
	"image"

	"github.com/charmbracelet/lipgloss"

	"go-surface/theme"
)

// Status is the low-frequency readout the scheduler repaints on its own
// timer while the rest of the screen is idle. It never reports dirty;
// the scheduler decides when it refreshes.
type Status struct {
	name string
	rect image.Rectangle

	// data sources, sampled at paint time
	FPS     func() float64
	Backlog func() float64
	Mode    func() string
}

// NewStatus creates the status readout widget.
func NewStatus(name string, rect image.Rectangle) *Status {
	return &Status{name: name, rect: rect}
}

func (s *Status) Name() string            { return s.name }
func (s *Status) Bounds() image.Rectangle { return s.rect }
func (s *Status) Dirty() bool             { return false }
func (s *Status) ClearDirty()             {}

func (s *Status) View() string {
	fps, backlog, mode := 0.0, 0.0, ""
	if s.FPS != nil {
		fps = s.FPS()
	}
	if s.Backlog != nil {
		backlog = s.Backlog()
	}
	if s.Mode != nil {
		mode = s.Mode()
	}
	style := lipgloss.NewStyle().Foreground(theme.Default().Muted())
	return style.Render(fmt.Sprintf("mode:%-8s fps:%5.1f backlog:%5.1f", mode, fps, backlog))
}
