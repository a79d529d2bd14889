package widgets

import (
	"image"
	"strings"
	"testing"

	"go-surface/registry"
	"go-surface/render"
)

// TestTermSurfaceCompose verifies a full paint fixes the widget order
// and partial paints only re-render what they were handed.
func TestTermSurfaceCompose(t *testing.T) {
	reg := registry.New()
	a := registry.ControlID{Module: "filter", Slot: 0}
	b := registry.ControlID{Module: "mix", Slot: 0}
	reg.Register(registry.Control{ID: a, Min: 0, Max: 127, Value: 64})
	reg.Register(registry.Control{ID: b, Min: 0, Max: 127, Value: 10})

	da := NewDial("filter/0", a, reg, image.Rect(0, 0, 40, 1))
	db := NewDial("mix/0", b, reg, image.Rect(0, 1, 40, 2))

	s := NewTermSurface()
	s.PaintFull([]render.Widget{da, db})

	frame := s.Frame()
	lines := strings.Split(frame, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "filter/0") || !strings.Contains(lines[1], "mix/0") {
		t.Errorf("Expected filter/0 then mix/0, got %q", frame)
	}

	// Partial paint re-renders only the named widget.
	reg.SetValue(b, 120, registry.OriginOther)
	before := lines[1]
	s.Paint(db.Bounds(), []render.Widget{db})
	after := strings.Split(s.Frame(), "\n")[1]
	if before == after {
		t.Errorf("Expected mix/0 to re-render after partial paint")
	}

	full, burst := s.Paints()
	if full != 1 || burst != 1 {
		t.Errorf("Expected 1 full and 1 partial paint, got %d/%d", full, burst)
	}
}

// TestTermSurfaceNotify verifies the update channel signals paints
// without ever blocking the render loop.
func TestTermSurfaceNotify(t *testing.T) {
	s := NewTermSurface()

	// Two paints with nobody listening must not block.
	s.PaintFull(nil)
	s.Paint(image.Rectangle{}, nil)

	select {
	case <-s.Updates():
	default:
		t.Error("Expected a pending update signal")
	}
}

// TestDialDiscreteView verifies a discrete dial shows its option label.
func TestDialDiscreteView(t *testing.T) {
	reg := registry.New()
	id := registry.ControlID{Module: "osc", Slot: 0}
	reg.Register(registry.Control{ID: id, Options: []string{"Sine", "Square"}, Value: 1})

	d := NewDial("osc/0", id, reg, image.Rect(0, 0, 40, 1))
	if v := d.View(); !strings.Contains(v, "Square") {
		t.Errorf("Expected option label in view, got %q", v)
	}
}
