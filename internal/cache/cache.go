// Package cache keeps JSON snapshots of backend responses on disk so the
// component catalog survives between CLI invocations.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/errors"
)

// Dir returns the cache directory path.
func Dir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "cloudcanvas")
}

// Store is a directory of timestamped JSON entries.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// New returns a store rooted at dir. Entries older than ttl are treated as
// missing; a zero ttl never expires.
func New(dir string, ttl time.Duration) *Store {
	return &Store{dir: dir, ttl: ttl, now: time.Now}
}

// Get decodes the entry for key into v. It reports false when the entry is
// absent, expired or unreadable.
func (s *Store) Get(key string, v any) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if s.ttl > 0 && s.now().Sub(e.StoredAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Data, v) == nil
}

// Put stores v under key.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Annotatef(err, "encoding cache entry %q", key)
	}
	raw, err := json.Marshal(entry{StoredAt: s.now(), Data: data})
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Trace(err)
	}
	return os.WriteFile(s.path(key), raw, 0o644)
}

// Clear removes every entry. A missing directory is not an error.
func (s *Store) Clear() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0, errors.Trace(err)
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return removed, errors.Trace(err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

func sanitize(s string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "@", "_", "?", "_", "=", "_")
	return r.Replace(strings.Trim(s, "/"))
}
