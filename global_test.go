package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shout(ctx context.Context, c *Call) ([]any, error) {
	return []any{Input[string](c, 0) + "!"}, nil
}

func TestGlobal(t *testing.T) {
	t.Run("declarations bind on activate", func(t *testing.T) {
		d, err := When(Sync(shout), Modified("in", "text"), Update("out", "text"))
		require.NoError(t, err)
		defer d.Remove()

		app := newApp(t)
		in := NewElement("in")
		text := NewProperty(in, "text", "")
		out := NewElement("out")
		result := NewProperty(out, "text", "")
		require.NoError(t, app.Mount(in, out))

		assert.Empty(t, app.Reactions())

		activate(t, app)
		assert.Equal(t, []string{d.Name()}, app.Reactions())

		text.Set("hey")
		assert.Equal(t, "hey!", result.Get())

		app.Deactivate()
		assert.Empty(t, app.Reactions())
	})

	t.Run("declarations are validated on their own", func(t *testing.T) {
		_, err := When(Sync(shout), Modified("a", "v"), Update("a", "v"))
		assert.ErrorIs(t, err, ErrSelfTrigger)

		_, err = When(Sync(shout), Update("a", "v"))
		assert.ErrorIs(t, err, ErrNoTrigger)
	})

	t.Run("conflicts surface on activate", func(t *testing.T) {
		d, err := When(Sync(shout), Modified("x", "v"), Update("y", "v"))
		require.NoError(t, err)
		defer d.Remove()

		app := newApp(t)
		_, err = app.When(Sync(shout), Modified("z", "v"), Update("w", "v"))
		require.NoError(t, err)

		err = app.Activate(context.Background())
		t.Cleanup(app.Deactivate)

		assert.ErrorIs(t, err, ErrDuplicateReaction)
		assert.True(t, app.Active())
	})

	t.Run("removed declarations are not bound", func(t *testing.T) {
		d, err := When(Sync(shout), Modified("in", "text"), Update("out", "text"))
		require.NoError(t, err)
		d.Remove()

		app := newApp(t)
		activate(t, app)

		assert.Empty(t, app.Reactions())
	})

	t.Run("each app gets its own binding", func(t *testing.T) {
		d, err := When(Sync(shout), Modified("in", "text"), Update("out", "text"))
		require.NoError(t, err)
		defer d.Remove()

		first := newApp(t)
		second := newApp(t)
		activate(t, first)
		activate(t, second)

		assert.Equal(t, []string{d.Name()}, first.Reactions())
		assert.Equal(t, []string{d.Name()}, second.Reactions())
	})
}
