package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func noopBody(context.Context, *Call) Task { return Completed(nil, nil) }

func reaction(name string, deps ...any) *Reaction {
	r := &Reaction{Name: name, Body: noopBody}
	for _, dep := range deps {
		switch d := dep.(type) {
		case Trigger:
			r.Triggers = append(r.Triggers, d)
		case Select:
			r.Selects = append(r.Selects, d)
		case Update:
			r.Outputs = append(r.Outputs, d)
		}
	}
	return r
}

func update(id, property string) Update { return Update{Ref{id, property}} }

func names(reactions []*Reaction) []string {
	out := make([]string, len(reactions))
	for i, r := range reactions {
		out[i] = r.Name
	}
	return out
}

func TestRegistry(t *testing.T) {
	t.Run("indexes by trigger key in registration order", func(t *testing.T) {
		reg := NewRegistry()

		require.NoError(t, reg.Register(reaction("b", Modified("A", "n"))))
		require.NoError(t, reg.Register(reaction("a", Modified("A", "n"), Modified("A", "m"))))
		require.NoError(t, reg.Register(reaction("c", Modified("A", "m"))))

		assert.Equal(t, []string{"b", "a"}, names(reg.Lookup(Modified("A", "n").Key())))
		assert.Equal(t, []string{"a", "c"}, names(reg.Lookup(Modified("A", "m").Key())))
		assert.Empty(t, reg.Lookup(Modified("A", "x").Key()))
		assert.Equal(t, 3, reg.Len())
	})

	t.Run("assigns increasing sequence numbers", func(t *testing.T) {
		reg := NewRegistry()

		first := reaction("first", Modified("A", "n"))
		second := reaction("second", Modified("A", "n"))
		require.NoError(t, reg.Register(first))
		require.NoError(t, reg.Register(second))

		assert.Less(t, first.Seq(), second.Seq())
		assert.True(t, first.Active())
	})

	t.Run("snapshots are not affected by later writes", func(t *testing.T) {
		reg := NewRegistry()

		require.NoError(t, reg.Register(reaction("a", Modified("A", "n"))))
		before := reg.Lookup(Modified("A", "n").Key())

		b := reaction("b", Modified("A", "n"))
		require.NoError(t, reg.Register(b))
		assert.True(t, reg.Unregister(b))
		require.NoError(t, reg.Register(reaction("c", Modified("A", "n"))))

		assert.Equal(t, []string{"a"}, names(before))
		assert.Equal(t, []string{"a", "c"}, names(reg.Lookup(Modified("A", "n").Key())))
	})

	t.Run("unregister removes every index entry", func(t *testing.T) {
		reg := NewRegistry()
		errX := errors.New("x")

		r := reaction("r", Modified("A", "n"), Published("A", nil), Raised(errX))
		require.NoError(t, reg.Register(r))
		assert.True(t, reg.Handles(errX))

		assert.True(t, reg.Unregister(r))
		assert.False(t, reg.Unregister(r))

		assert.False(t, r.Active())
		assert.Empty(t, reg.Lookup(Modified("A", "n").Key()))
		assert.Empty(t, reg.Lookup(Published("A", nil).Key()))
		assert.Empty(t, reg.Raised())
		assert.False(t, reg.Handles(errX))
		assert.Zero(t, reg.Len())
	})

	t.Run("rejections leave the table untouched", func(t *testing.T) {
		reg := NewRegistry()

		require.NoError(t, reg.Register(reaction("a", Modified("X", "z"), update("Y", "w"))))

		err := reg.Register(reaction("a", Modified("Q", "q")))
		assert.ErrorIs(t, err, ErrDuplicateReaction)

		cyclic := reaction("b", Modified("Y", "w"), update("X", "z"))
		err = reg.Register(cyclic)
		assert.ErrorIs(t, err, ErrCyclicDependency)
		assert.False(t, cyclic.Active())

		assert.Equal(t, []string{"a"}, names(reg.All()))
		assert.Empty(t, reg.Lookup(Modified("Y", "w").Key()))
	})

	t.Run("readers never see a half updated table", func(t *testing.T) {
		reg := NewRegistry()
		key := Modified("A", "n").Key()

		const writers, perWriter = 4, 50

		var g errgroup.Group
		stop := make(chan struct{})

		g.Go(func() error {
			for {
				select {
				case <-stop:
					return nil
				default:
				}

				snap := reg.Lookup(key)
				for i, r := range snap {
					if r.Seq() == 0 {
						return fmt.Errorf("%s listed before it was numbered", r.Name)
					}
					if i > 0 && snap[i-1].Seq() >= r.Seq() {
						return fmt.Errorf("%s listed out of order", r.Name)
					}
				}
				if len(reg.All()) < len(snap) {
					return errors.New("index ahead of the table")
				}
			}
		})

		var writersGroup errgroup.Group
		for w := range writers {
			writersGroup.Go(func() error {
				for i := range perWriter {
					name := fmt.Sprintf("w%d-%d", w, i)
					if err := reg.Register(reaction(name, Modified("A", "n"), update(name, "out"))); err != nil {
						return err
					}
					// churn a second key while the first one grows
					tmp := reaction(name+"-tmp", Modified("A", "m"))
					if err := reg.Register(tmp); err != nil {
						return err
					}
					reg.Unregister(tmp)
				}
				return nil
			})
		}

		require.NoError(t, writersGroup.Wait())
		close(stop)
		require.NoError(t, g.Wait())

		assert.Len(t, reg.Lookup(key), writers*perWriter)
		assert.Empty(t, reg.Lookup(Modified("A", "m").Key()))
	})

	t.Run("cycles through unregistered reactions are gone", func(t *testing.T) {
		reg := NewRegistry()

		a := reaction("a", Modified("X", "z"), update("Y", "w"))
		require.NoError(t, reg.Register(a))
		reg.Unregister(a)

		assert.NoError(t, reg.Register(reaction("b", Modified("Y", "w"), update("X", "z"))))
	})
}

func TestValidate(t *testing.T) {
	t.Run("self trigger", func(t *testing.T) {
		err := Validate(reaction("r", Modified("A", "n"), update("A", "n")))

		var self *SelfTriggerError
		require.True(t, errors.As(err, &self))
		assert.Equal(t, Ref{"A", "n"}, self.Ref)
	})

	t.Run("self trigger safe", func(t *testing.T) {
		r := reaction("r", Modified("A", "n"), update("A", "n"))
		r.SelfTriggerSafe = true

		assert.NoError(t, Validate(r))
	})

	t.Run("published triggers never self trigger", func(t *testing.T) {
		assert.NoError(t, Validate(reaction("r", Published("A", nil), update("A", "<nil>"))))
	})
}
