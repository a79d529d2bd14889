package render

import "image"

// Region is a screen rectangle plus the widget that reported it.
// Ephemeral: produced when a widget goes dirty, discarded once painted.
type Region struct {
	Rect   image.Rectangle
	Widget string
}

// Widget is the minimal contract the scheduler needs from anything that
// occupies screen space. Drawing itself belongs to the surface; the
// scheduler only decides what gets painted when.
type Widget interface {
	Name() string
	Bounds() image.Rectangle
	Dirty() bool
	ClearDirty()
}

// Surface is the external collaborator that actually paints. The
// scheduler restricts it to the minimal safe update each frame.
type Surface interface {
	// PaintFull repaints every widget and flips the entire screen.
	PaintFull(all []Widget)
	// Paint repaints the given widgets and flips only the union rect.
	Paint(union image.Rectangle, dirty []Widget)
}
