package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerKnobBox
)

// DialEvent is sent when a physical knob moves. Raw is the unscaled CC
// value 0-127; mapping CC numbers to controls belongs to the wiring, not
// the driver.
type DialEvent struct {
	CC  uint8
	Raw uint8
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	DialEvents() <-chan DialEvent

	// Lifecycle
	Close() error
}
