package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollapsesDuplicateKeys(t *testing.T) {
	c := New(ent("a", "1"), ent("b", "1"), ent("a", "2"))

	assert.Equal(t, []string{"a", "b"}, names(c))
	got, _ := c.Get(NewKey("", "a"))
	assert.Equal(t, "2", got.Payload["v"])
}

func TestZeroCollectionIsEmpty(t *testing.T) {
	var c Collection
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, -1, c.IndexOf(NewKey("", "a")))
	assert.Empty(t, c.Items())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New(ent("a", "1"))

	items := c.Items()
	items[0].Payload["v"] = "mutated"
	items[0].Key.Name = "other"

	got, ok := c.Get(NewKey("", "a"))
	require.True(t, ok)
	assert.Equal(t, "1", got.Payload["v"])
}

func TestAtReturnsCopy(t *testing.T) {
	c := New(ent("a", "1"))

	c.At(0).Payload["v"] = "mutated"

	assert.Equal(t, "1", c.At(0).Payload["v"])
}

func TestFoldCopiesEventPayload(t *testing.T) {
	e := ent("a", "1")
	c, changed := Fold(Collection{}, Added(e))
	require.True(t, changed)

	e.Payload["v"] = "mutated"

	assert.Equal(t, "1", c.At(0).Payload["v"])
}

func TestNewCopiesPayloads(t *testing.T) {
	e := ent("a", "1")
	c := New(e)

	e.Payload["v"] = "mutated"

	assert.Equal(t, "1", c.At(0).Payload["v"])
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{in: "guestbook", want: Key{Name: "guestbook"}},
		{in: "argocd/guestbook", want: Key{Namespace: "argocd", Name: "guestbook"}},
		{in: "  web  ", want: Key{Name: "web"}},
		{in: "", wantErr: true},
		{in: "/web", wantErr: true},
		{in: "ns/", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Key {
	t.Helper()
	k, err := ParseKey(s)
	require.NoError(t, err)
	return k
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "ADDED", EventAdded.String())
	assert.Equal(t, "MODIFIED", EventModified.String())
	assert.Equal(t, "DELETED", EventDeleted.String())
	assert.Equal(t, "ERROR", EventError.String())
	assert.Equal(t, "UNKNOWN", EventType(99).String())
}
