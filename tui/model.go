package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-surface/bus"
	"go-surface/page"
	"go-surface/render"
	"go-surface/theme"
	"go-surface/widgets"
)

type Model struct {
	Surface *widgets.TermSurface
	Sched   *render.Scheduler
	Bus     *bus.Bus
	Pages   *page.Manager

	focus    *FocusHolder
	entry    *TextLine
	typing   bool
	quitting bool
	modes    []string
}

type UpdateMsg struct{}

func NewModel(surface *widgets.TermSurface, sched *render.Scheduler, b *bus.Bus, pages *page.Manager, focus *FocusHolder) Model {
	modes := pages.Modes()
	sort.Strings(modes)
	return Model{
		Surface: surface,
		Sched:   sched,
		Bus:     b,
		Pages:   pages,
		focus:   focus,
		entry:   &TextLine{},
		modes:   modes,
	}
}

func ListenForUpdates(surface *widgets.TermSurface) tea.Cmd {
	return func() tea.Msg {
		<-surface.Updates()
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Surface)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.typing {
			switch msg.String() {
			case "esc", "enter":
				m.typing = false
				m.focus.Set(nil)
			default:
				// Remote characters go over the bus like every other
				// producer; the worker routes them to the focused overlay.
				for _, r := range msg.Runes {
					m.Bus.Enqueue(bus.RemoteChar(r))
				}
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "f":
			m.Bus.Enqueue(bus.ForceRedraw(3))

		case "i":
			m.typing = true
			m.entry.Reset()
			m.focus.Set(m.entry)

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(msg.String()[0] - '1')
			if idx < len(m.modes) {
				m.Bus.Enqueue(bus.SetMode(m.modes[idx]))
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Surface)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := theme.Default()
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())

	st := m.Sched.State()
	header := headerStyle.Render(fmt.Sprintf("go-surface  mode:%s  render:%s  fps:%.1f  backlog:%.1f",
		m.Pages.Active(), st.Mode, m.Sched.FPS(), m.Bus.BacklogAverage()))

	help := dimStyle.Render(fmt.Sprintf("1-%d:page  f:force redraw  i:text entry  q:quit", len(m.modes)))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.Surface.Frame())
	out.WriteString("\n\n")
	if m.typing {
		out.WriteString("> " + m.entry.String())
		out.WriteString("\n")
	}
	out.WriteString(help)

	return out.String()
}
