package registry

import "fmt"

// RawMax is the full-scale raw reading from a hardware dial (MIDI CC).
const RawMax = 127.0

// DefaultRelease is the conservative release band used when a control
// carries no latch configuration.
const DefaultRelease = 2.0

// LatchMode is the per-control soft-takeover state.
type LatchMode int

const (
	LatchFree LatchMode = iota
	LatchLatched
)

func (m LatchMode) String() string {
	if m == LatchFree {
		return "free"
	}
	return "latched"
}

// Latch reconciles a physical dial's raw position with the last value the
// UI believes is correct. While latched, hardware samples are recorded
// but never applied until the dial reaches (or crosses) the captured
// target.
type Latch struct {
	Mode           LatchMode
	CapturedTarget float64
	LastSample     float64
	hasSample      bool

	// Release is the mandatory band: a sample within Release of the
	// target always frees the latch. Pickup, when larger, frees earlier.
	Pickup  float64
	Release float64
}

// Arm puts the latch into Latched with a new target. Called on every
// non-hardware value change.
func (l *Latch) Arm(target float64) {
	l.Mode = LatchLatched
	l.CapturedTarget = target
}

// offer feeds one hardware sample (already scaled into control units) and
// reports whether the sample may be applied to the control value.
func (l *Latch) offer(sample float64, discrete bool, degenerate bool) bool {
	if l.Mode == LatchFree {
		l.LastSample = sample
		l.hasSample = true
		return true
	}

	prev, hadPrev := l.LastSample, l.hasSample
	l.LastSample = sample
	l.hasSample = true

	// A control with a single legal value has no reachable target; the
	// first sample releases it.
	if degenerate {
		l.Mode = LatchFree
		return true
	}

	if discrete {
		// Raw numeric distance is meaningless for small option sets;
		// compare quantized buckets instead.
		if sample == l.CapturedTarget {
			l.Mode = LatchFree
			return true
		}
		return false
	}

	release := l.Release
	if release <= 0 {
		release = DefaultRelease
	}
	dist := sample - l.CapturedTarget
	if dist < 0 {
		dist = -dist
	}
	if dist <= release {
		l.Mode = LatchFree
		return true
	}
	if l.Pickup > release && dist <= l.Pickup {
		l.Mode = LatchFree
		return true
	}
	// Crossing: the dial swept past the target between two samples.
	if hadPrev && (prev-l.CapturedTarget)*(sample-l.CapturedTarget) < 0 {
		l.Mode = LatchFree
		return true
	}
	return false
}

// ApplyHardware routes one raw hardware sample (0..RawMax) through the
// control's latch. When the latch is free, or the sample frees it, the
// scaled value is committed with hardware origin; otherwise only the
// last-sample record is updated and nothing is marked dirty.
func (r *Registry) ApplyHardware(id ControlID, raw float64) error {
	r.mu.Lock()
	c, ok := r.controls[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}

	if raw < 0 {
		raw = 0
	}
	if raw > RawMax {
		raw = RawMax
	}

	var sample float64
	var degenerate bool
	if c.Discrete() {
		sample = float64(int(raw * float64(len(c.Options)) / (RawMax + 1)))
		if sample > float64(len(c.Options)-1) {
			sample = float64(len(c.Options) - 1)
		}
		degenerate = len(c.Options) == 1
	} else {
		sample = c.Min + raw/RawMax*(c.Max-c.Min)
		degenerate = c.Max == c.Min
	}

	if !c.latch.offer(sample, c.Discrete(), degenerate) {
		r.mu.Unlock()
		return nil
	}

	c.Value = c.clamp(sample)
	c.dirty = true
	owner := c.Owner
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(id, owner)
	}
	return nil
}
