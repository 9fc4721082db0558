// Package cache stores compiled module images in SQLite, keyed by the
// hash of their canonical encoding.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chazu/binpac/hilti"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("binpac.cache")

// ErrNotFound indicates no image with the requested hash is stored.
var ErrNotFound = errors.New("image not found")

// Entry describes one stored image.
type Entry struct {
	Hash    [32]byte
	Module  string
	Size    int
	Created time.Time
}

// Store is an image cache backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash    TEXT PRIMARY KEY,
		module  TEXT NOT NULL,
		data    BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sources (
		fingerprint TEXT PRIMARY KEY,
		hash        TEXT NOT NULL REFERENCES images(hash) ON DELETE CASCADE
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened image cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores img and returns its hash. existed reports whether an image
// with the same hash was already present, in which case nothing is written.
func (s *Store) Put(img *hilti.Image) (hash [32]byte, existed bool, err error) {
	data, err := hilti.MarshalImage(img)
	if err != nil {
		return hash, false, fmt.Errorf("encoding image: %w", err)
	}
	hash, err = img.Hash()
	if err != nil {
		return hash, false, err
	}
	key := hex.EncodeToString(hash[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO images (hash, module, data, created) VALUES (?, ?, ?, ?)",
		key, img.Module, data, time.Now().Unix(),
	)
	if err != nil {
		return hash, false, fmt.Errorf("saving image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return hash, false, fmt.Errorf("saving image: %w", err)
	}

	if n == 0 {
		log.Debugf("image %s for %s already cached", key[:12], img.Module)
		return hash, true, nil
	}
	log.Infof("cached image %s for %s (%d bytes)", key[:12], img.Module, len(data))
	return hash, false, nil
}

// Get loads the image with the given hash.
func (s *Store) Get(hash [32]byte) (*hilti.Image, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE hash = ?", hex.EncodeToString(hash[:])).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	return hilti.UnmarshalImage(data)
}

// List returns the stored images of a module, newest first. An empty
// module lists every image.
func (s *Store) List(module string) ([]Entry, error) {
	query := "SELECT hash, module, length(data), created FROM images"
	var args []any
	if module != "" {
		query += " WHERE module = ?"
		args = append(args, module)
	}
	query += " ORDER BY created DESC, hash"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			key     string
			e       Entry
			created int64
		)
		if err := rows.Scan(&key, &e.Module, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning image row: %w", err)
		}
		raw, err := hex.DecodeString(key)
		if err != nil || len(raw) != len(e.Hash) {
			return nil, fmt.Errorf("corrupt hash %q in cache", key)
		}
		copy(e.Hash[:], raw)
		e.Created = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the image with the given hash.
func (s *Store) Delete(hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(hash[:])
	res, err := s.db.Exec("DELETE FROM images WHERE hash = ?", key)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := s.db.Exec("DELETE FROM sources WHERE hash = ?", key); err != nil {
		return fmt.Errorf("deleting source links: %w", err)
	}
	return nil
}

// Link records that the program with the given fingerprint compiles to the
// image with the given hash. The image must be stored already.
func (s *Store) Link(fingerprint, hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(hash[:])
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM images WHERE hash = ?", key).Scan(&n); err != nil {
		return fmt.Errorf("querying image: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sources (fingerprint, hash) VALUES (?, ?)",
		hex.EncodeToString(fingerprint[:]), key,
	)
	if err != nil {
		return fmt.Errorf("linking source: %w", err)
	}
	return nil
}

// Lookup returns the image a program fingerprint was linked to.
func (s *Store) Lookup(fingerprint [32]byte) (*hilti.Image, [32]byte, error) {
	var key string
	var hash [32]byte
	err := s.db.QueryRow("SELECT hash FROM sources WHERE fingerprint = ?", hex.EncodeToString(fingerprint[:])).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hash, ErrNotFound
		}
		return nil, hash, fmt.Errorf("querying source: %w", err)
	}
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != len(hash) {
		return nil, hash, fmt.Errorf("corrupt hash %q in cache", key)
	}
	copy(hash[:], raw)

	img, err := s.Get(hash)
	return img, hash, err
}

// ErrAmbiguous indicates a hash prefix matches more than one image.
var ErrAmbiguous = errors.New("ambiguous image hash")

// Resolve returns the full hash of the image whose hex hash starts with
// prefix.
func (s *Store) Resolve(prefix string) ([32]byte, error) {
	var hash [32]byte
	prefix = strings.ToLower(prefix)
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef") != "" {
		return hash, fmt.Errorf("invalid image hash %q", prefix)
	}

	rows, err := s.db.Query("SELECT hash FROM images WHERE substr(hash, 1, ?) = ? LIMIT 2", len(prefix), prefix)
	if err != nil {
		return hash, fmt.Errorf("resolving hash: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return hash, fmt.Errorf("scanning image row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return hash, err
	}
	switch len(keys) {
	case 0:
		return hash, ErrNotFound
	case 1:
	default:
		return hash, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}

	raw, err := hex.DecodeString(keys[0])
	if err != nil || len(raw) != len(hash) {
		return hash, fmt.Errorf("corrupt hash %q in cache", keys[0])
	}
	copy(hash[:], raw)
	return hash, nil
}

// Path returns the database file of the store.
func (s *Store) Path() string { return s.path }
