// Package teahost runs observe apps inside bubbletea programs.
//
// Every message the program receives is posted on a root element, so reactions
// subscribe to terminal input with observe.Published[tea.KeyMsg](rootID).
// Widgets keep their bubbles models and mirror their state into properties.
//
// Reactions triggered by a message run on the bubbletea goroutine before
// Update returns. Suspending bodies never hold Update up: their outputs are
// applied from the goroutine they complete on, so widgets guard their models
// and the program needs a message (Program.Send) to render the new state.
package teahost

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AnatoleLucet/observe"
)

// Widget is a child of the model that handles messages itself.
type Widget interface {
	observe.Mountable
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
}

// Model is a tea.Model forwarding messages to its widgets, then to the root element.
type Model struct {
	root    *observe.Element
	widgets []Widget
	render  func() string

	quitting bool
}

// New returns a model posting messages on root and rendering with render.
// ctrl+c quits the program.
func New(root *observe.Element, render func() string, widgets ...Widget) *Model {
	return &Model{
		root:    root,
		widgets: widgets,
		render:  render,
	}
}

func (m *Model) Root() *observe.Element { return m.root }

func (m *Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.widgets))
	for _, w := range m.widgets {
		cmds = append(cmds, w.Init())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	cmds := make([]tea.Cmd, 0, len(m.widgets))
	for _, w := range m.widgets {
		cmds = append(cmds, w.Update(msg))
	}

	m.root.Post(msg)

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if m.quitting || m.render == nil {
		return ""
	}
	return m.render()
}
