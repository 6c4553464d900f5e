package collection

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ent(name, v string) Entity {
	return NewEntity(NewKey("", name), map[string]any{"v": v})
}

func names(c Collection) []string {
	out := make([]string, 0, c.Len())
	for _, k := range c.Keys() {
		out = append(out, k.String())
	}
	return out
}

func TestFoldModifyPreservesPosition(t *testing.T) {
	c := New(ent("a", "1"), ent("b", "1"), ent("c", "1"))

	next, changed := Fold(c, Modified(ent("b", "2")))

	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b", "c"}, names(next))
	got, ok := next.Get(NewKey("", "b"))
	require.True(t, ok)
	assert.Equal(t, "2", got.Payload["v"])

	// Input is untouched.
	old, _ := c.Get(NewKey("", "b"))
	assert.Equal(t, "1", old.Payload["v"])
}

func TestFoldAddInsertsAtFront(t *testing.T) {
	c := New(ent("a", "1"), ent("b", "1"))

	next, changed := Fold(c, Added(ent("c", "1")))

	assert.True(t, changed)
	assert.Equal(t, []string{"c", "a", "b"}, names(next))
	assert.Equal(t, []string{"a", "b"}, names(c))
}

func TestFoldDuplicateAddIsUpsert(t *testing.T) {
	c := New(ent("a", "1"), ent("b", "1"))

	next, _ := Fold(c, Added(ent("b", "2")))

	assert.Equal(t, []string{"a", "b"}, names(next))
	assert.Equal(t, 1, next.IndexOf(NewKey("", "b")))
	got, _ := next.Get(NewKey("", "b"))
	assert.Equal(t, "2", got.Payload["v"])
}

func TestFoldModifiedOfAbsentInserts(t *testing.T) {
	next, changed := Fold(New(ent("a", "1")), Modified(ent("z", "1")))

	assert.True(t, changed)
	assert.Equal(t, []string{"z", "a"}, names(next))
}

func TestFoldDeleteAbsentIsNoop(t *testing.T) {
	c := New(ent("a", "1"))

	next, changed := Fold(c, Deleted(NewKey("", "x9")))

	assert.False(t, changed)
	assert.True(t, next.Equal(c))
}

func TestFoldDeleteRemoves(t *testing.T) {
	c := New(ent("a", "1"), ent("b", "1"), ent("c", "1"))

	next, changed := Fold(c, Deleted(NewKey("", "b")))

	assert.True(t, changed)
	assert.Equal(t, []string{"a", "c"}, names(next))
}

func TestFoldErrorDoesNotMutate(t *testing.T) {
	c := New(ent("a", "1"))

	next, changed := Fold(c, StreamError(errors.New("stream reset")))

	assert.False(t, changed)
	assert.True(t, next.Equal(c))
}

func TestFoldNamespacesAreDistinctKeys(t *testing.T) {
	c := New(NewEntity(NewKey("prod", "web"), nil))

	next, _ := Fold(c, Added(NewEntity(NewKey("staging", "web"), nil)))

	assert.Equal(t, []string{"staging/web", "prod/web"}, names(next))
}

func TestScenarios(t *testing.T) {
	t.Run("ModifySingle", func(t *testing.T) {
		got := Replay(New(ent("x1", "a")), Modified(ent("x1", "b")))
		assert.True(t, got.Equal(New(ent("x1", "b"))))
	})

	t.Run("DeleteFromEmpty", func(t *testing.T) {
		got := Replay(New(), Deleted(NewKey("", "x9")))
		assert.Equal(t, 0, got.Len())
	})

	t.Run("AddThenDelete", func(t *testing.T) {
		got := Replay(New(ent("x1", ""), ent("x2", "")),
			Added(ent("x3", "")),
			Deleted(NewKey("", "x1")),
		)
		assert.Equal(t, []string{"x3", "x2"}, names(got))
	})
}

func randomEvents(rng *rand.Rand, n int) []ChangeEvent {
	events := make([]ChangeEvent, n)
	for i := range events {
		name := fmt.Sprintf("e%d", rng.Intn(8))
		switch rng.Intn(4) {
		case 0:
			events[i] = Added(ent(name, fmt.Sprint(i)))
		case 1:
			events[i] = Modified(ent(name, fmt.Sprint(i)))
		case 2:
			events[i] = Deleted(NewKey("", name))
		default:
			events[i] = StreamError(errors.New("fault"))
		}
	}
	return events
}

func TestFoldKeepsKeysUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		c := New()
		for _, ev := range randomEvents(rng, 200) {
			c, _ = Fold(c, ev)

			seen := make(map[Key]bool, c.Len())
			for _, k := range c.Keys() {
				require.False(t, seen[k], "duplicate key %s after %s", k, ev)
				seen[k] = true
			}
		}
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	initial := New(ent("e1", "s"), ent("e2", "s"))
	events := randomEvents(rng, 500)

	first := Replay(initial, events...)
	for i := 0; i < 5; i++ {
		assert.True(t, Replay(initial, events...).Equal(first))
	}
}
