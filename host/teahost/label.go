package teahost

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AnatoleLucet/observe"
)

// Label renders its "text" property with a lipgloss style.
type Label struct {
	*observe.Element

	text  *observe.Property[string]
	style lipgloss.Style
}

func NewLabel(id, text string, style lipgloss.Style) *Label {
	el := observe.NewElement(id)
	return &Label{
		Element: el,
		text:    observe.NewProperty(el, "text", text),
		style:   style,
	}
}

func (l *Label) Text() *observe.Property[string] { return l.text }

func (l *Label) Init() tea.Cmd { return nil }

func (l *Label) Update(tea.Msg) tea.Cmd { return nil }

func (l *Label) View() string { return l.style.Render(l.text.Get()) }
