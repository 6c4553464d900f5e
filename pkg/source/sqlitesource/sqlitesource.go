package sqlitesource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/appwatch/appwatch-go/pkg/collection"
	"github.com/appwatch/appwatch-go/pkg/source"
	"github.com/appwatch/appwatch-go/pkg/wire"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Defaults.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultBatchSize    = 256
)

// ErrInvalidConfig is returned for an unusable Config.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config configures a SQLite source.
type Config struct {
	// Path is the database file. ":memory:" opens a private in-memory
	// database.
	Path string

	// PollInterval is how often streams poll the change log.
	PollInterval time.Duration

	// BatchSize caps the log rows read per poll.
	BatchSize int

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default polling settings for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		PollInterval: DefaultPollInterval,
		BatchSize:    DefaultBatchSize,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Source is a SQLite-backed collection source.
type Source struct {
	db     *sql.DB
	config Config

	mu      sync.Mutex
	streams map[*stream]struct{}
	closed  bool
}

// Open opens the database at config.Path and prepares the schema.
func Open(config Config) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dsn := config.Path
	if dsn != ":memory:" {
		dsn = filepath.Clean(dsn)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}

	return &Source{
		db:      db,
		config:  config,
		streams: make(map[*stream]struct{}),
	}, nil
}

func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaDDL() {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close terminates every open stream and closes the database.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	streams := make([]*stream, 0, len(s.streams))
	for st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()

	for _, st := range streams {
		_ = st.Close()
	}
	return s.db.Close()
}

// FetchSnapshot implements source.Source. Entities are listed newest first
// and Version is the highest change log seq visible to the same read.
func (s *Source) FetchSnapshot(ctx context.Context) (source.Snapshot, error) {
	if s.isClosed() {
		return source.Snapshot{}, source.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return source.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM entity_change_log`).Scan(&version); err != nil {
		return source.Snapshot{}, fmt.Errorf("read log seq: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT namespace, name, payload FROM entities ORDER BY ord DESC`)
	if err != nil {
		return source.Snapshot{}, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var items []collection.Entity
	for rows.Next() {
		var ns, name string
		var blob []byte
		if err := rows.Scan(&ns, &name, &blob); err != nil {
			return source.Snapshot{}, fmt.Errorf("scan entity: %w", err)
		}
		payload, err := wire.DecodePayload(blob)
		if err != nil {
			return source.Snapshot{}, fmt.Errorf("decode %s/%s: %w", ns, name, err)
		}
		items = append(items, collection.NewEntity(collection.NewKey(ns, name), payload))
	}
	if err := rows.Err(); err != nil {
		return source.Snapshot{}, fmt.Errorf("list entities: %w", err)
	}

	s.debugLog("snapshot", "items", len(items), "version", version)
	return source.Snapshot{Items: collection.New(items...), Version: uint64(version)}, nil
}

// OpenChangeStream implements source.Source. The stream polls the change
// log for rows after since.
func (s *Source) OpenChangeStream(ctx context.Context, since uint64) (source.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, source.ErrClosed
	}

	st := newStream(ctx, s, since)
	s.streams[st] = struct{}{}
	go st.run()

	s.debugLog("stream opened", "since", since)
	return st, nil
}

// Create implements source.Mutator.
func (s *Source) Create(ctx context.Context, e collection.Entity) error {
	if s.isClosed() {
		return source.ErrClosed
	}
	blob, err := wire.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (namespace, name, payload, ord, created_at, updated_at)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(ord), 0) + 1 FROM entities), ?, ?)`,
		e.Key.Namespace, e.Key.Name, blob, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return source.ErrAlreadyExists
		}
		return fmt.Errorf("insert %s: %w", e.Key, err)
	}
	return nil
}

// Sync implements source.Mutator. It replaces the stored payload.
func (s *Source) Sync(ctx context.Context, e collection.Entity) error {
	if s.isClosed() {
		return source.ErrClosed
	}
	blob, err := wire.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET payload = ?, updated_at = ? WHERE namespace = ? AND name = ?`,
		blob, time.Now().UTC().UnixMilli(), e.Key.Namespace, e.Key.Name,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", e.Key, err)
	}
	return requireRow(res)
}

// Delete implements source.Mutator.
func (s *Source) Delete(ctx context.Context, key collection.Key) error {
	if s.isClosed() {
		return source.ErrClosed
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE namespace = ? AND name = ?`,
		key.Namespace, key.Name,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return requireRow(res)
}

// Version returns the highest change log seq.
func (s *Source) Version(ctx context.Context) (uint64, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM entity_change_log`).Scan(&version); err != nil {
		return 0, err
	}
	return uint64(version), nil
}

// OpenStreams returns the number of streams not yet closed.
func (s *Source) OpenStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// readLog returns up to limit log entries after seq, in seq order.
func (s *Source) readLog(ctx context.Context, after uint64, limit int) ([]logEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, op, namespace, name, payload FROM entity_change_log
		 WHERE seq > ? ORDER BY seq LIMIT ?`,
		int64(after), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []logEntry
	for rows.Next() {
		var entry logEntry
		var seq int64
		if err := rows.Scan(&seq, &entry.Op, &entry.Namespace, &entry.Name, &entry.Payload); err != nil {
			return nil, err
		}
		entry.Seq = uint64(seq)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Source) unregister(st *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, st)
}

func (s *Source) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return source.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ source.Source  = (*Source)(nil)
	_ source.Mutator = (*Source)(nil)
)
