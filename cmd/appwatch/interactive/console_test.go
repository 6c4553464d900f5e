package interactive

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/mirror"
	"github.com/appwatch/appwatch-go/pkg/source/memsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticConfig string

func (c staticConfig) Name() string { return string(c) }

func newTestConsole(t *testing.T, entities ...collection.Entity) (*Console, *mirror.Synchronizer, *memsource.Source, *bytes.Buffer) {
	t.Helper()
	src := memsource.New(entities...)
	m, err := mirror.New(src, mirror.DefaultConfig())
	require.NoError(t, err)
	_, err = m.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(m.Stop)

	var out bytes.Buffer
	return newConsole(m, src, staticConfig("apps"), &out), m, src, &out
}

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload([]string{"replicas=3", "ratio=0.5", "ready=true", "image='nginx'"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"replicas": int64(3),
		"ratio":    0.5,
		"ready":    true,
		"image":    "nginx",
	}, payload)

	payload, err = parsePayload(nil)
	require.NoError(t, err)
	assert.Nil(t, payload)

	_, err = parsePayload([]string{"oops"})
	assert.Error(t, err)
	_, err = parsePayload([]string{"=1"})
	assert.Error(t, err)
}

func TestCreateGoesThroughSource(t *testing.T) {
	c, m, src, out := newTestConsole(t)

	quit := c.Execute(context.Background(), "create prod/web replicas=2")
	assert.False(t, quit)
	assert.Contains(t, out.String(), "OK")
	assert.Equal(t, uint64(1), src.Version())

	key := collection.NewKey("prod", "web")
	require.Eventually(t, func() bool {
		return m.Collection().Contains(key)
	}, 2*time.Second, 10*time.Millisecond)

	out.Reset()
	c.Execute(context.Background(), "get prod/web")
	assert.Contains(t, out.String(), "prod/web (position 0)")
	assert.Contains(t, out.String(), "replicas: 2")
}

func TestMutationErrors(t *testing.T) {
	c, _, _, out := newTestConsole(t, collection.NewEntity(collection.NewKey("", "web"), nil))

	c.Execute(context.Background(), "create web")
	assert.Contains(t, out.String(), "Create failed: entity already exists")

	out.Reset()
	c.Execute(context.Background(), "sync api x=1")
	assert.Contains(t, out.String(), "Sync failed: entity not found")

	out.Reset()
	c.Execute(context.Background(), "delete a/b/c")
	assert.Contains(t, out.String(), "Invalid key")

	out.Reset()
	c.Execute(context.Background(), "delete")
	assert.Contains(t, out.String(), "Usage: delete <key>")
}

func TestListAndStatus(t *testing.T) {
	c, m, _, out := newTestConsole(t,
		collection.NewEntity(collection.NewKey("", "a"), map[string]any{"v": "1"}),
		collection.NewEntity(collection.NewKey("", "b"), nil),
	)

	c.Execute(context.Background(), "list")
	listing := out.String()
	assert.Contains(t, listing, "Entities (2)")
	assert.Less(t, bytes.Index(out.Bytes(), []byte(" b ")), bytes.Index(out.Bytes(), []byte(" a ")), "newest first")
	assert.Contains(t, listing, "v=1")

	out.Reset()
	c.Execute(context.Background(), "status")
	assert.Contains(t, out.String(), "RUNNING")
	assert.Contains(t, out.String(), m.SessionID())
}

func TestQuitAndUnknown(t *testing.T) {
	c, _, _, out := newTestConsole(t)

	assert.False(t, c.Execute(context.Background(), "   "))
	assert.False(t, c.Execute(context.Background(), "bogus"))
	assert.Contains(t, out.String(), "Unknown command: bogus")
	assert.True(t, c.Execute(context.Background(), "quit"))
}

// scriptedReader serves queued lines and blocks like a terminal until closed.
type scriptedReader struct {
	lines  chan string
	closed chan struct{}
	once   sync.Once
}

func newScriptedReader(lines ...string) *scriptedReader {
	r := &scriptedReader{
		lines:  make(chan string, len(lines)),
		closed: make(chan struct{}),
	}
	for _, l := range lines {
		r.lines <- l
	}
	return r
}

func (r *scriptedReader) Readline() (string, error) {
	select {
	case l := <-r.lines:
		return l, nil
	case <-r.closed:
		return "", io.EOF
	}
}

func (r *scriptedReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func runConsole(t *testing.T, c *Console, ctx context.Context, cancel context.CancelFunc) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, cancel)
	}()
	return done
}

func TestRunReturnsWhenContextCancelled(t *testing.T) {
	c, _, _, _ := newTestConsole(t)
	reader := newScriptedReader()
	c.rl = reader

	ctx, cancel := context.WithCancel(context.Background())
	done := runConsole(t, c, ctx, cancel)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	select {
	case <-reader.closed:
	default:
		t.Error("reader was not closed")
	}
}

func TestRunQuitCancelsContext(t *testing.T) {
	c, _, _, out := newTestConsole(t)
	c.rl = newScriptedReader("status", "quit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runConsole(t, c, ctx, cancel)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	assert.Error(t, ctx.Err())
	assert.Contains(t, out.String(), "Exiting...")
}
