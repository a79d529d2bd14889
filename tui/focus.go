package tui

import (
	"strings"
	"sync"
)

// TextFocus is implemented by any overlay that accepts remote character
// input. Absence of a focused overlay is an explicit nil target, checked
// at routing time - there is no attribute probing.
type TextFocus interface {
	InsertRune(r rune)
}

// FocusHolder tracks which overlay (if any) currently claims text input.
type FocusHolder struct {
	mu     sync.Mutex
	target TextFocus
}

// Set claims or releases focus (nil releases).
func (f *FocusHolder) Set(t TextFocus) {
	f.mu.Lock()
	f.target = t
	f.mu.Unlock()
}

// Get returns the current focus target, or nil.
func (f *FocusHolder) Get() TextFocus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

// TextLine is a minimal single-line text buffer overlay.
type TextLine struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (t *TextLine) InsertRune(r rune) {
	t.mu.Lock()
	t.buf.WriteRune(r)
	t.mu.Unlock()
}

func (t *TextLine) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

func (t *TextLine) Reset() {
	t.mu.Lock()
	t.buf.Reset()
	t.mu.Unlock()
}
