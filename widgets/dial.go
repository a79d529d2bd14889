package widgets

import (
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"

	"go-surface/registry"
	"go-surface/theme"
)

// barWidth is the character width of a dial's value bar.
const barWidth = 16

// Dial mirrors one control on screen. The bus worker marks it dirty
// through the registry's change hook; the render pass clears it.
type Dial struct {
	name    string
	rect    image.Rectangle
	control registry.ControlID
	reg     *registry.Registry

	dirty atomic.Bool
}

// NewDial creates a dial widget bound to a control.
func NewDial(name string, control registry.ControlID, reg *registry.Registry, rect image.Rectangle) *Dial {
	return &Dial{name: name, rect: rect, control: control, reg: reg}
}

func (d *Dial) Name() string            { return d.name }
func (d *Dial) Bounds() image.Rectangle { return d.rect }
func (d *Dial) Dirty() bool             { return d.dirty.Load() }
func (d *Dial) ClearDirty()             { d.dirty.Store(false) }

// MarkDirty flags the dial for repaint. Safe from any goroutine.
func (d *Dial) MarkDirty() { d.dirty.Store(true) }

// Control returns the bound control id.
func (d *Dial) Control() registry.ControlID { return d.control }

// View renders the dial as a labeled bar, or the option label for
// discrete controls.
func (d *Dial) View() string {
	th := theme.Default()
	dim := lipgloss.NewStyle().Foreground(th.Muted())

	c, err := d.reg.Get(d.control)
	if err != nil {
		return dim.Render(d.name + " ?")
	}

	label := lipgloss.NewStyle().Foreground(th.Accent()).Render(fmt.Sprintf("%-10s", d.name))
	valueStyle := lipgloss.NewStyle().Foreground(th.Color(c.Normalized()))
	if c.Discrete() {
		return label + " " + valueStyle.Render(fmt.Sprintf("%-*s", barWidth, c.Label()))
	}

	filled := int(c.Normalized()*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	bar := valueStyle.Render(strings.Repeat("█", filled)) +
		dim.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %s %6.1f", label, bar, c.Value)
}
