package bus

import (
	"github.com/google/uuid"

	"go-surface/registry"
)

// Kind tags a message payload. Handlers are registered per kind in an
// explicit map; there is no name-based dispatch.
type Kind int

const (
	KindUpdateDial Kind = iota
	KindSetMode
	KindForceRedraw
	KindRemoteChar
)

func (k Kind) String() string {
	switch k {
	case KindUpdateDial:
		return "update_dial_value"
	case KindSetMode:
		return "set_mode"
	case KindForceRedraw:
		return "force_redraw"
	case KindRemoteChar:
		return "remote_char"
	}
	return "unknown"
}

// RequiredKinds must all have handlers before the worker starts.
var RequiredKinds = []Kind{KindUpdateDial, KindSetMode, KindForceRedraw, KindRemoteChar}

// Message is a tagged payload owned by the queue from enqueue until
// dequeue. The ID correlates log lines for dropped or failed messages.
type Message struct {
	ID      uuid.UUID
	Kind    Kind
	Payload any
}

// DialUpdate carries one raw hardware sample for a control.
type DialUpdate struct {
	Control registry.ControlID
	Raw     float64
}

// ModeChange switches the active page.
type ModeChange struct {
	Mode string
}

// RedrawRequest asks for n unconditional full frames. Frame counts only;
// callers holding a duration convert with render.FramesFor first.
type RedrawRequest struct {
	Frames int
}

// CharInput routes one character to whatever overlay holds text focus.
type CharInput struct {
	Ch rune
}

func newMessage(k Kind, payload any) Message {
	return Message{ID: uuid.New(), Kind: k, Payload: payload}
}

// UpdateDialValue builds a hardware dial sample message.
func UpdateDialValue(id registry.ControlID, raw float64) Message {
	return newMessage(KindUpdateDial, DialUpdate{Control: id, Raw: raw})
}

// SetMode builds a page switch message.
func SetMode(mode string) Message {
	return newMessage(KindSetMode, ModeChange{Mode: mode})
}

// ForceRedraw builds a full-redraw request for n frames.
func ForceRedraw(frames int) Message {
	return newMessage(KindForceRedraw, RedrawRequest{Frames: frames})
}

// RemoteChar builds a text input message.
func RemoteChar(ch rune) Message {
	return newMessage(KindRemoteChar, CharInput{Ch: ch})
}
