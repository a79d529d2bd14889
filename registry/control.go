package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Origin identifies which path a value change came from. Hardware writes
// never re-arm a latch; everything else does.
type Origin int

const (
	OriginHardware Origin = iota
	OriginOther
)

func (o Origin) String() string {
	if o == OriginHardware {
		return "hardware"
	}
	return "other"
}

var (
	ErrUnknownControl   = errors.New("unknown control")
	ErrDuplicateControl = errors.New("control already registered")
	ErrMissingMetadata  = errors.New("control has no range or options")
)

// ControlID is a module/slot composite, rendered "module/slot".
type ControlID struct {
	Module string
	Slot   int
}

func (id ControlID) String() string {
	return fmt.Sprintf("%s/%d", id.Module, id.Slot)
}

// ParseControlID parses the "module/slot" form used in config files.
func ParseControlID(s string) (ControlID, error) {
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return ControlID{}, fmt.Errorf("bad control id %q", s)
	}
	slot, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return ControlID{}, fmt.Errorf("bad control id %q: %w", s, err)
	}
	return ControlID{Module: s[:idx], Slot: slot}, nil
}

// Control is one addressable dial/parameter. For continuous controls the
// value lives in [Min, Max]. When Options is non-empty the control is
// discrete and Value is an index into Options.
type Control struct {
	ID      ControlID
	Min     float64
	Max     float64
	Options []string
	Value   float64
	Owner   string

	dirty bool
	latch Latch
}

// Discrete reports whether the control draws its value from Options.
func (c *Control) Discrete() bool {
	return len(c.Options) > 0
}

// Label returns the option label for a discrete control's current value.
func (c *Control) Label() string {
	if !c.Discrete() {
		return ""
	}
	i := int(c.Value)
	if i < 0 || i >= len(c.Options) {
		return ""
	}
	return c.Options[i]
}

// Normalized maps the value into 0..1 for rendering.
func (c *Control) Normalized() float64 {
	if c.Discrete() {
		if len(c.Options) == 1 {
			return 0
		}
		return c.Value / float64(len(c.Options)-1)
	}
	if c.Max == c.Min {
		return 0
	}
	return (c.Value - c.Min) / (c.Max - c.Min)
}

func (c *Control) clamp(v float64) float64 {
	if c.Discrete() {
		i := float64(int(v))
		if i < 0 {
			return 0
		}
		if i > float64(len(c.Options)-1) {
			return float64(len(c.Options) - 1)
		}
		return i
	}
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// Registry is the single source of truth for all control values. It is
// mutated by the bus worker and read by the render loop, so access is
// guarded here rather than trusting the two loops to interleave safely.
type Registry struct {
	mu       sync.RWMutex
	controls map[ControlID]*Control
	order    []ControlID

	// onChange is invoked after every applied mutation, outside the
	// latch decision but inside the registry lock's critical section
	// boundary (called after unlock). Wired by the app to mark the
	// owning widget dirty.
	onChange func(ControlID, string)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{controls: make(map[ControlID]*Control)}
}

// SetOnChange registers the mutation hook. Pass nil to clear it.
func (r *Registry) SetOnChange(fn func(id ControlID, owner string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register adds a control. Controls with neither a usable range nor
// options are accepted as continuous 0..1 per the conservative default;
// the caller gets ErrMissingMetadata as a signal to log the downgrade.
func (r *Registry) Register(c Control) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.controls[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateControl, c.ID)
	}

	var metaErr error
	if !c.Discrete() && c.Max <= c.Min {
		c.Min, c.Max = 0, 1
		metaErr = fmt.Errorf("%w: %s, defaulting to continuous 0..1", ErrMissingMetadata, c.ID)
	}

	c.Value = c.clamp(c.Value)
	c.latch.Mode = LatchFree
	stored := c
	r.controls[c.ID] = &stored
	r.order = append(r.order, c.ID)
	return metaErr
}

// SetLatchThresholds configures the pickup/release bands for one control.
func (r *Registry) SetLatchThresholds(id ControlID, pickup, release float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	c.latch.Pickup = pickup
	c.latch.Release = release
	return nil
}

// SetValue clamps and stores a value, marks the control dirty, and arms
// the latch when the write did not come from hardware.
func (r *Registry) SetValue(id ControlID, v float64, origin Origin) error {
	r.mu.Lock()
	c, ok := r.controls[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	c.Value = c.clamp(v)
	c.dirty = true
	if origin == OriginOther {
		c.latch.Arm(c.Value)
	}
	owner := c.Owner
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(id, owner)
	}
	return nil
}

// Value returns the current value of a control.
func (r *Registry) Value(id ControlID) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return c.Value, nil
}

// Get returns a copy of the control for inspection.
func (r *Registry) Get(id ControlID) (Control, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[id]
	if !ok {
		return Control{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return *c, nil
}

// SetOwner rebinds a control to a widget (page switches reassign owners).
func (r *Registry) SetOwner(id ControlID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	c.Owner = owner
	return nil
}

// IDs returns all control ids in registration order.
func (r *Registry) IDs() []ControlID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ControlID, len(r.order))
	copy(ids, r.order)
	return ids
}

// TakeDirty returns copies of the controls whose dirty flag is set and
// clears the flags. Called exactly once per render pass.
func (r *Registry) TakeDirty() []Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Control
	for _, id := range r.order {
		c := r.controls[id]
		if c.dirty {
			c.dirty = false
			out = append(out, *c)
		}
	}
	return out
}

// LatchState returns a copy of a control's latch for diagnostics.
func (r *Registry) LatchState(id ControlID) (Latch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[id]
	if !ok {
		return Latch{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return c.latch, nil
}
