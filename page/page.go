package page

import (
	"errors"
	"fmt"
	"sync"

	"go-surface/bus"
	"go-surface/debug"
	"go-surface/registry"
	"go-surface/render"
)

var (
	ErrUnknownPage   = errors.New("unknown page")
	ErrDuplicatePage = errors.New("page already registered")
)

// Binding ties one control to the widget that displays it on a page,
// with the value the page presents when it becomes active.
type Binding struct {
	Control registry.ControlID
	Owner   string
	Initial float64
}

// Page is one mode of the surface: a set of control bindings.
type Page struct {
	Mode     string
	Bindings []Binding
}

// Manager owns the active page. Activating a page reassigns control
// owners, writes the bound values with non-hardware origin (re-arming
// every latch), and requests a run of full frames.
type Manager struct {
	mu     sync.Mutex
	reg    *registry.Registry
	sched  *render.Scheduler
	b      *bus.Bus
	pages  map[string]Page
	active string

	// full frames requested on every mode switch
	switchFrames int
}

// NewManager creates a page manager.
func NewManager(reg *registry.Registry, sched *render.Scheduler, b *bus.Bus, switchFrames int) *Manager {
	if switchFrames <= 0 {
		switchFrames = 3
	}
	return &Manager{
		reg:          reg,
		sched:        sched,
		b:            b,
		pages:        make(map[string]Page),
		switchFrames: switchFrames,
	}
}

// Add registers a page.
func (m *Manager) Add(p Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pages[p.Mode]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePage, p.Mode)
	}
	m.pages[p.Mode] = p
	return nil
}

// Active returns the active mode id.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Modes returns the registered mode ids.
func (m *Manager) Modes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	modes := make([]string, 0, len(m.pages))
	for mode := range m.pages {
		modes = append(modes, mode)
	}
	return modes
}

// Activate switches the surface to the named page.
func (m *Manager) Activate(mode string) error {
	m.mu.Lock()
	p, ok := m.pages[mode]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPage, mode)
	}
	m.active = mode
	m.mu.Unlock()

	for _, bind := range p.Bindings {
		if err := m.reg.SetOwner(bind.Control, bind.Owner); err != nil {
			debug.Err("page", err)
			continue
		}
		// Other-origin write: presents the page value and re-arms the
		// latch so a stale physical knob can't stomp it.
		if err := m.reg.SetValue(bind.Control, bind.Initial, registry.OriginOther); err != nil {
			debug.Err("page", err)
		}
	}

	if m.b != nil {
		m.b.SetContext(bus.Context{Mode: mode, Controls: m.reg.IDs()})
	}
	m.sched.RequestFullFrames(m.switchFrames)
	debug.Log("page", "activated mode %q", mode)
	return nil
}

// HandleSetMode is the bus handler for set_mode messages.
func (m *Manager) HandleSetMode(_ bus.Context, msg bus.Message) error {
	change, ok := msg.Payload.(bus.ModeChange)
	if !ok {
		return bus.Malformed(msg, "bus.ModeChange")
	}
	return m.Activate(change.Mode)
}
