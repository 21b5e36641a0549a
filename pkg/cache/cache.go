// Package cache implements the fingerprint-keyed agent response cache.
// Entries live as one JSON file per fingerprint under a per-workflow-instance
// directory, expire lazily on access, and are always advisory: any read or
// parse failure degrades to a miss and never blocks the underlying agent call.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"
)

// DefaultTTL applies when an entry is stored with a zero TTL.
const DefaultTTL = 24 * time.Hour

// previewLen bounds the human-readable prompt preview stored in each entry.
const previewLen = 100

// Entry is the on-disk cache record. Field names are the wire format; other
// tooling reads these files directly, so they must not change.
type Entry struct {
	Fingerprint  string  `json:"fingerprint"`
	Output       string  `json:"response_output"`
	Success      bool    `json:"response_success"`
	SessionID    *string `json:"response_session_id"`
	CreatedAt    float64 `json:"created_at"`
	TTLSeconds   int     `json:"ttl_seconds"`
	PromptPrev   string  `json:"prompt_preview"`
	Model        string  `json:"model"`
	SlashCommand *string `json:"slash_command"`
}

// Stats summarizes a single instance's cache directory.
type Stats struct {
	Entries    int
	TotalBytes int64
	Oldest     time.Time // zero when the cache is empty
}

// Store is a filesystem cache rooted at a single directory, partitioned by
// workflow instance id. Safe for use by one process per instance; instances
// never share a subdirectory.
type Store struct {
	root string
	ttl  time.Duration

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// NewStore creates a Store rooted at dir. A zero ttl means DefaultTTL.
func NewStore(dir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		root:    dir,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// instanceDir returns the per-instance cache directory.
func (s *Store) instanceDir(instanceID string) string {
	return filepath.Join(s.root, instanceID)
}

// entryPath returns the file path for a fingerprint within an instance.
func (s *Store) entryPath(instanceID, fp string) string {
	return filepath.Join(s.instanceDir(instanceID), fp+".json")
}

// Get returns the cached entry for a fingerprint, or ok=false on a miss.
// Corrupt and expired files are deleted on the way out; reclamation is lazy,
// there is no background sweep.
func (s *Store) Get(instanceID, fp string) (Entry, bool) {
	path := s.entryPath(instanceID, fp)

	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a hex fingerprint
	if err != nil {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return Entry{}, false
	}

	age := s.nowFunc().Unix() - int64(e.CreatedAt)
	if age > int64(e.TTLSeconds) {
		_ = os.Remove(path)
		return Entry{}, false
	}

	return e, true
}

// Put stores an entry for its fingerprint, creating the instance directory as
// needed and overwriting any previous entry. Zero CreatedAt and TTLSeconds
// are filled in from the clock and the store default.
func (s *Store) Put(instanceID string, e Entry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = float64(s.nowFunc().Unix())
	}
	if e.TTLSeconds == 0 {
		e.TTLSeconds = int(s.ttl.Seconds())
	}
	if len(e.PromptPrev) > previewLen {
		// Back up to a rune boundary so the preview stays valid UTF-8.
		cut := previewLen
		for cut > 0 && !utf8.RuneStart(e.PromptPrev[cut]) {
			cut--
		}
		e.PromptPrev = e.PromptPrev[:cut]
	}

	dir := s.instanceDir(instanceID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	path := s.entryPath(instanceID, e.Fingerprint)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cache entry %s: %w", path, err)
	}
	return nil
}

// Clear deletes entries for an instance and returns the count removed.
// With maxAge > 0 only entries older than maxAge are removed; unreadable
// entries count as eligible. With maxAge <= 0 everything goes.
func (s *Store) Clear(instanceID string, maxAge time.Duration) int {
	dir := s.instanceDir(instanceID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	removed := 0
	now := s.nowFunc().Unix()
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, de.Name())

		if maxAge > 0 && !s.olderThan(path, now, maxAge) {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

// olderThan reports whether the entry at path is older than maxAge.
// Unreadable or corrupt entries are treated as old so Clear reclaims them.
func (s *Store) olderThan(path string, now int64, maxAge time.Duration) bool {
	data, err := os.ReadFile(path) //nolint:gosec // path came from ReadDir on our own cache dir
	if err != nil {
		return true
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return true
	}
	return now-int64(e.CreatedAt) > int64(maxAge.Seconds())
}

// Stats reports entry count, total size, and oldest creation time for an
// instance. An absent directory yields zero stats, not an error.
func (s *Store) Stats(instanceID string) Stats {
	dir := s.instanceDir(instanceID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Stats{}
	}

	var st Stats
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, de.Name())

		info, err := de.Info()
		if err == nil {
			st.TotalBytes += info.Size()
		}
		st.Entries++

		data, err := os.ReadFile(path) //nolint:gosec // path came from ReadDir on our own cache dir
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		created := time.Unix(int64(e.CreatedAt), 0)
		if st.Oldest.IsZero() || created.Before(st.Oldest) {
			st.Oldest = created
		}
	}
	return st
}
