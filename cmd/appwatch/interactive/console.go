// Package interactive provides the interactive command-line interface
// for appwatch.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/mirror"
	"github.com/appwatch/appwatch-go/pkg/source"
	"github.com/chzyer/readline"
)

// ConsoleConfig provides configuration information to the console without
// depending on the main package's config structure.
type ConsoleConfig interface {
	// Name returns the mirror name.
	Name() string
}

// Mirror is the read side the console displays.
// *mirror.Synchronizer implements it.
type Mirror interface {
	Collection() collection.Collection
	State() mirror.State
	Version() uint64
	SessionID() string
}

// lineReader is the part of *readline.Instance the command loop uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// Console handles interactive mode for appwatch.
type Console struct {
	mirror    Mirror
	mutator   source.Mutator
	config    ConsoleConfig
	rl        lineReader
	out       io.Writer
	closeOnce sync.Once

	// timeout bounds each mutation request.
	timeout time.Duration
}

// New creates a console reading commands through readline.
func New(m Mirror, mut source.Mutator, cfg ConsoleConfig) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.Name() + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(m, mut, cfg, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(m Mirror, mut source.Mutator, cfg ConsoleConfig, out io.Writer) *Console {
	return &Console{
		mirror:  m,
		mutator: mut,
		config:  cfg,
		out:     out,
		timeout: 10 * time.Second,
	}
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop. Cancelling ctx closes the
// reader, which unblocks a pending Readline.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	finished := make(chan struct{})
	defer close(finished)
	defer c.closeReader()

	go func() {
		select {
		case <-ctx.Done():
			c.closeReader()
		case <-finished:
		}
	}()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

func (c *Console) closeReader() {
	c.closeOnce.Do(func() {
		_ = c.rl.Close()
	})
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "list", "ls":
		c.cmdList()

	case "get", "g":
		c.cmdGet(args)

	case "create", "add":
		c.cmdCreate(ctx, args)

	case "sync", "update":
		c.cmdSync(ctx, args)

	case "delete", "rm":
		c.cmdDelete(ctx, args)

	case "status":
		c.cmdStatus()

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
appwatch Commands:
  Mirror:
    list                          - List mirrored entities, newest first
    get <key>                     - Show one entity
    status                        - Show synchronizer status

  Mutations (sent to the source, seen here once the change arrives):
    create <key> [field=value...] - Create an entity
    sync <key> [field=value...]   - Replace an entity's payload
    delete <key>                  - Delete an entity

  General:
    help                          - Show this help
    quit                          - Exit

  Key Format:
    name or namespace/name - e.g., web or prod/web`)
}

// cmdList handles the list command.
func (c *Console) cmdList() {
	coll := c.mirror.Collection()
	if coll.Len() == 0 {
		fmt.Fprintln(c.out, "No entities")
		return
	}

	fmt.Fprintf(c.out, "\nEntities (%d):\n", coll.Len())
	fmt.Fprintln(c.out, "-------------------------------------------")
	for i := range coll.Len() {
		e := coll.At(i)
		fmt.Fprintf(c.out, "  %3d  %-30s %s\n", i, e.Key, formatPayload(e.Payload))
	}
}

// cmdGet handles the get command.
func (c *Console) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: get <key>")
		return
	}
	key, err := collection.ParseKey(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid key: %v\n", err)
		return
	}

	coll := c.mirror.Collection()
	e, ok := coll.Get(key)
	if !ok {
		fmt.Fprintf(c.out, "Not found: %s\n", key)
		return
	}

	fmt.Fprintf(c.out, "\n%s (position %d)\n", e.Key, coll.IndexOf(key))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, k := range sortedKeys(e.Payload) {
		fmt.Fprintf(c.out, "  %s: %v\n", k, e.Payload[k])
	}
}

// cmdCreate handles the create command.
func (c *Console) cmdCreate(ctx context.Context, args []string) {
	e, ok := c.parseEntity("create", args)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.mutator.Create(ctx, e); err != nil {
		fmt.Fprintf(c.out, "Create failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

// cmdSync handles the sync command.
func (c *Console) cmdSync(ctx context.Context, args []string) {
	e, ok := c.parseEntity("sync", args)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.mutator.Sync(ctx, e); err != nil {
		fmt.Fprintf(c.out, "Sync failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

// cmdDelete handles the delete command.
func (c *Console) cmdDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: delete <key>")
		return
	}
	key, err := collection.ParseKey(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid key: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.mutator.Delete(ctx, key); err != nil {
		fmt.Fprintf(c.out, "Delete failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

// cmdStatus handles the status command.
func (c *Console) cmdStatus() {
	fmt.Fprintln(c.out, "\nMirror Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Name:       %s\n", c.config.Name())
	fmt.Fprintf(c.out, "  State:      %s\n", c.mirror.State())
	fmt.Fprintf(c.out, "  Session:    %s\n", c.mirror.SessionID())
	fmt.Fprintf(c.out, "  Version:    %d\n", c.mirror.Version())
	fmt.Fprintf(c.out, "  Entities:   %d\n", c.mirror.Collection().Len())
	fmt.Fprintln(c.out)
}

func (c *Console) parseEntity(cmd string, args []string) (collection.Entity, bool) {
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s <key> [field=value...]\n", cmd)
		return collection.Entity{}, false
	}
	key, err := collection.ParseKey(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid key: %v\n", err)
		return collection.Entity{}, false
	}
	payload, err := parsePayload(args[1:])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid payload: %v\n", err)
		return collection.Entity{}, false
	}
	return collection.NewEntity(key, payload), true
}

// parsePayload turns field=value arguments into a payload. Values parse as
// integer, float or bool when they can, and as strings otherwise.
func parsePayload(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	payload := make(map[string]any, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		payload[field] = parseValue(raw)
	}
	return payload, nil
}

func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return strings.Trim(s, "\"'")
}

func formatPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(payload))
	for _, k := range sortedKeys(payload) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
