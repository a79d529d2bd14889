package theme

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// DefaultPalette is the built-in gradient the surface renders with:
// cool at low values, hot at full scale.
func DefaultPalette() *Palette {
	return &Palette{
		Name: "surface-default",
		Colors: []RGB{
			{40, 30, 80},    // deep violet
			{90, 60, 160},   // purple
			{180, 80, 200},  // magenta
			{240, 120, 140}, // rose
			{255, 180, 80},  // amber
			{255, 240, 120}, // bright yellow
		},
	}
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	// Find the two colors to interpolate between
	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}
