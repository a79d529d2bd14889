package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps a palette onto the fixed color roles of the surface UI and
// tints dial bars by their normalized value.
type Theme struct {
	Palette *Palette
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.1 // labels, help line
	RoleFG      = 0.4 // readable text
	RoleAccent  = 0.6 // header, active mode
	RoleWarning = 0.85
)

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{Palette: palette}
}

var active = New(nil)

// Default returns the process-wide theme.
func Default() *Theme { return active }

// SetDefault swaps the process-wide theme. Call before the UI starts.
func SetDefault(t *Theme) {
	if t != nil {
		active = t
	}
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// Color returns the lipgloss color for any normalized value 0-1; dial
// bars use it so a knob sweeps through the gradient as it turns.
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
