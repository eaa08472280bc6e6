package teahost

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AnatoleLucet/observe"
)

// Input is a text field whose content is the "value" property.
// Reactions writing the property update the field, from any goroutine.
type Input struct {
	*observe.Element

	mu    sync.Mutex
	model textinput.Model
	value *observe.Property[string]
}

func NewInput(id, placeholder string) *Input {
	el := observe.NewElement(id)

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256

	return &Input{
		Element: el,
		model:   ti,
		value:   observe.NewProperty(el, "value", ""),
	}
}

func (i *Input) Value() *observe.Property[string] { return i.value }

func (i *Input) Focus() tea.Cmd {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.model.Focus()
}

func (i *Input) Blur() {
	i.mu.Lock()
	i.model.Blur()
	i.mu.Unlock()
}

func (i *Input) Focused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.model.Focused()
}

func (i *Input) Compose(b *observe.Builder) error {
	_, err := b.When(
		observe.Sync(i.syncModel),
		i.value.Modified(),
	)
	return err
}

func (i *Input) syncModel(_ context.Context, c *observe.Call) ([]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if v := observe.Input[string](c, 0); v != i.model.Value() {
		i.model.SetValue(v)
		i.model.CursorEnd()
	}
	return nil, nil
}

func (i *Input) Init() tea.Cmd { return textinput.Blink }

// Update runs the field, then writes its content to the value property
// outside the lock, since the write dispatches syncModel.
func (i *Input) Update(msg tea.Msg) tea.Cmd {
	i.mu.Lock()
	var cmd tea.Cmd
	i.model, cmd = i.model.Update(msg)
	v := i.model.Value()
	i.mu.Unlock()

	i.value.Set(v)
	return cmd
}

func (i *Input) View() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.model.View()
}
