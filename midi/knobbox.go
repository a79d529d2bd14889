package midi

import (
	"fmt"
	"sync/atomic"

	"go-surface/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ccRecvCount uint64

// KnobBoxController handles a generic CC knob/fader box. Every control
// change on the port becomes a DialEvent; which CCs the surface cares
// about is decided by the consumer.
type KnobBoxController struct {
	id       string
	inPort   drivers.In
	stopFunc func()

	dialChan chan DialEvent
}

// NewKnobBoxController opens the input port and starts listening for CC
// messages.
func NewKnobBoxController(id string, inPort drivers.In) (*KnobBoxController, error) {
	kb := &KnobBoxController{
		id:       id,
		inPort:   inPort,
		dialChan: make(chan DialEvent, 64),
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		var channel, cc, value uint8
		if !msg.GetControlChange(&channel, &cc, &value) {
			return
		}
		atomic.AddUint64(&ccRecvCount, 1)
		select {
		case kb.dialChan <- DialEvent{CC: cc, Raw: value}:
		default:
			// Consumer is behind; drop rather than block the MIDI callback
			debug.LogEvery(100, "knobbox", "dial channel full, dropping cc=%d", cc)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	kb.stopFunc = stop

	return kb, nil
}

func (kb *KnobBoxController) ID() string {
	return kb.id
}

func (kb *KnobBoxController) Type() ControllerType {
	return ControllerKnobBox
}

func (kb *KnobBoxController) DialEvents() <-chan DialEvent {
	return kb.dialChan
}

func (kb *KnobBoxController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.dialChan)
	return nil
}
