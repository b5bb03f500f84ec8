// Package buildcache persists per-representation checksums and code snippet
// modification times between build runs. The cache is strictly an
// optimization and reporting aid: compile correctness never depends on it,
// and a deleted cache file simply means the next run reports everything as
// outdated.
package buildcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xavier/nanoc/internal/content"
)

// Entry records one representation's state as of its last successful build.
type Entry struct {
	Identifier string
	Rep        string
	Checksum   string
	OutputPath string
	BuiltAt    time.Time
}

// Store is a SQLite-backed build cache. Use ":memory:" for tests, or a file
// path for persistence across runs.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the cache database at path, creating parent
// directories for file-backed caches.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reps (
		identifier TEXT NOT NULL,
		rep TEXT NOT NULL,
		checksum TEXT NOT NULL,
		output_path TEXT NOT NULL,
		built_at INTEGER NOT NULL,
		PRIMARY KEY (identifier, rep)
	);
	CREATE TABLE IF NOT EXISTS snippets (
		filename TEXT PRIMARY KEY,
		mtime INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Lookup returns the recorded entry for one representation.
func (s *Store) Lookup(ctx context.Context, identifier, rep string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e Entry
	var builtAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT identifier, rep, checksum, output_path, built_at FROM reps WHERE identifier = ? AND rep = ?",
		identifier, rep,
	).Scan(&e.Identifier, &e.Rep, &e.Checksum, &e.OutputPath, &builtAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query cache entry: %w", err)
	}
	e.BuiltAt = time.Unix(0, builtAt)
	return e, true, nil
}

// Record upserts the entry for one representation.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO reps (identifier, rep, checksum, output_path, built_at) VALUES (?, ?, ?, ?, ?)",
		e.Identifier, e.Rep, e.Checksum, e.OutputPath, e.BuiltAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries for representations that no longer exist. live is
// keyed by identifier+"\x00"+rep; the returned count is how many rows went.
func (s *Store) Prune(ctx context.Context, live map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT identifier, rep FROM reps")
	if err != nil {
		return 0, fmt.Errorf("query cache keys: %w", err)
	}
	defer rows.Close()

	var dead [][2]string
	for rows.Next() {
		var identifier, rep string
		if err := rows.Scan(&identifier, &rep); err != nil {
			return 0, fmt.Errorf("scan cache key: %w", err)
		}
		if _, ok := live[LiveKey(identifier, rep)]; !ok {
			dead = append(dead, [2]string{identifier, rep})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate cache keys: %w", err)
	}

	for _, key := range dead {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM reps WHERE identifier = ? AND rep = ?", key[0], key[1]); err != nil {
			return 0, fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return len(dead), nil
}

// LiveKey builds the map key Prune expects.
func LiveKey(identifier, rep string) string {
	return identifier + "\x00" + rep
}

// SnippetsChanged reports whether the given snippets differ from the
// remembered set. Modification times are compared for equality only; the
// times themselves are opaque hints from the data source.
func (s *Store) SnippetsChanged(ctx context.Context, snippets []*content.CodeSnippet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT filename, mtime FROM snippets")
	if err != nil {
		return false, fmt.Errorf("query snippet mtimes: %w", err)
	}
	defer rows.Close()

	remembered := make(map[string]int64)
	for rows.Next() {
		var filename string
		var mtime int64
		if err := rows.Scan(&filename, &mtime); err != nil {
			return false, fmt.Errorf("scan snippet mtime: %w", err)
		}
		remembered[filename] = mtime
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate snippet mtimes: %w", err)
	}

	if len(remembered) != len(snippets) {
		return true, nil
	}
	for _, sn := range snippets {
		mtime, ok := remembered[sn.Filename]
		if !ok || mtime != sn.Mtime.UnixNano() {
			return true, nil
		}
	}
	return false, nil
}

// RememberSnippets replaces the remembered snippet set.
func (s *Store) RememberSnippets(ctx context.Context, snippets []*content.CodeSnippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snippet update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snippets"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear snippet mtimes: %w", err)
	}
	for _, sn := range snippets {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snippets (filename, mtime) VALUES (?, ?)",
			sn.Filename, sn.Mtime.UnixNano(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record snippet mtime: %w", err)
		}
	}
	return tx.Commit()
}

// Checksum summarizes everything that feeds one representation's output:
// the item's raw content, its merged attributes, the binary flag, and a
// digest of the active rules. Two equal checksums mean the rep would
// compile to the same bytes.
func Checksum(item *content.Item, rulesDigest string) string {
	h := sha256.New()
	h.Write([]byte(item.Identifier))
	h.Write([]byte{0})
	h.Write(item.RawContent)
	h.Write([]byte{0})

	keys := make([]string, 0, len(item.Attributes))
	for k := range item.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, item.Attributes[k])
	}

	if item.Binary {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte(rulesDigest))
	return hex.EncodeToString(h.Sum(nil))
}

// DigestBytes hashes raw inputs (rules files, configuration) into a digest
// suitable for Checksum's rulesDigest argument.
func DigestBytes(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
