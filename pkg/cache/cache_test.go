package cache //nolint:testpackage // white-box tests exercise the injected clock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// fixedClock returns a nowFunc pinned to t, advanceable via the returned setter.
func fixedClock(start time.Time) (func() time.Time, func(time.Time)) {
	current := start
	return func() time.Time { return current }, func(t time.Time) { current = t }
}

func newTestStore(t *testing.T) (*Store, func(time.Time)) {
	t.Helper()
	s := NewStore(t.TempDir(), time.Hour)
	now, advance := fixedClock(time.Unix(1_700_000_000, 0))
	s.nowFunc = now
	return s, advance
}

func TestStore_PutThenGet(t *testing.T) {
	s, _ := newTestStore(t)

	in := Entry{
		Fingerprint: "abc123",
		Output:      "plan written",
		Success:     true,
		Model:       "claude-opus-4-6",
		PromptPrev:  "implement the plan",
	}
	if err := s.Put("adw-12345678", in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("adw-12345678", "abc123")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Output != "plan written" || !got.Success {
		t.Fatalf("entry mismatch: %+v", got)
	}
	if got.TTLSeconds != 3600 {
		t.Fatalf("default TTL: got %d, want 3600", got.TTLSeconds)
	}
	if got.CreatedAt != 1_700_000_000 {
		t.Fatalf("created_at: got %v, want clock value", got.CreatedAt)
	}
}

func TestStore_GetMissWhenAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	if _, ok := s.Get("adw-12345678", "nope"); ok {
		t.Fatal("expected miss for absent entry")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	s, advance := newTestStore(t)

	e := Entry{Fingerprint: "fp1", Output: "x", TTLSeconds: 60}
	if err := s.Put("ipe-87654321", e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Just inside the TTL.
	advance(time.Unix(1_700_000_059, 0))
	if _, ok := s.Get("ipe-87654321", "fp1"); !ok {
		t.Fatal("expected hit before TTL elapsed")
	}

	// Past the TTL: miss, and the file must be reclaimed.
	advance(time.Unix(1_700_000_061, 0))
	if _, ok := s.Get("ipe-87654321", "fp1"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
	path := s.entryPath("ipe-87654321", "fp1")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired entry not deleted: %v", err)
	}
}

func TestStore_CorruptEntryIsMissAndDeleted(t *testing.T) {
	s, _ := newTestStore(t)

	dir := s.instanceDir("adw-12345678")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, ok := s.Get("adw-12345678", "bad"); ok {
		t.Fatal("expected miss for corrupt entry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt entry should be deleted on access")
	}
}

func TestStore_InstanceIsolation(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Put("adw-11111111", Entry{Fingerprint: "shared"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := s.Get("adw-22222222", "shared"); ok {
		t.Fatal("entries must not leak across workflow instances")
	}
}

func TestStore_ClearAll(t *testing.T) {
	s, _ := newTestStore(t)

	for _, fp := range []string{"a", "b", "c"} {
		if err := s.Put("adw-12345678", Entry{Fingerprint: fp}); err != nil {
			t.Fatalf("Put %s: %v", fp, err)
		}
	}

	if got := s.Clear("adw-12345678", 0); got != 3 {
		t.Fatalf("Clear: got %d, want 3", got)
	}
	if st := s.Stats("adw-12345678"); st.Entries != 0 {
		t.Fatalf("expected empty cache after Clear, got %d entries", st.Entries)
	}
}

func TestStore_ClearMaxAgeRemovesOnlyOldEntries(t *testing.T) {
	s, advance := newTestStore(t)

	if err := s.Put("adw-12345678", Entry{Fingerprint: "old"}); err != nil {
		t.Fatalf("Put old: %v", err)
	}

	advance(time.Unix(1_700_000_500, 0))
	if err := s.Put("adw-12345678", Entry{Fingerprint: "fresh"}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	// Only the entry older than 5 minutes should go.
	if got := s.Clear("adw-12345678", 5*time.Minute); got != 1 {
		t.Fatalf("Clear(maxAge): got %d, want 1", got)
	}
	if _, ok := s.Get("adw-12345678", "fresh"); !ok {
		t.Fatal("fresh entry should survive an age-bounded clear")
	}
	if _, ok := s.Get("adw-12345678", "old"); ok {
		t.Fatal("old entry should have been cleared")
	}
}

func TestStore_ClearMaxAgeTreatsUnreadableAsEligible(t *testing.T) {
	s, _ := newTestStore(t)

	dir := s.instanceDir("adw-12345678")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("???"), 0o600); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	if got := s.Clear("adw-12345678", time.Hour); got != 1 {
		t.Fatalf("Clear should reclaim unreadable entries, got %d", got)
	}
}

func TestStore_Stats(t *testing.T) {
	s, advance := newTestStore(t)

	if err := s.Put("ipe-87654321", Entry{Fingerprint: "first", Output: "aaa"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	advance(time.Unix(1_700_000_100, 0))
	if err := s.Put("ipe-87654321", Entry{Fingerprint: "second", Output: "bbb"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	st := s.Stats("ipe-87654321")
	if st.Entries != 2 {
		t.Fatalf("entries: got %d, want 2", st.Entries)
	}
	if st.TotalBytes == 0 {
		t.Fatal("total bytes should be nonzero")
	}
	if !st.Oldest.Equal(time.Unix(1_700_000_000, 0)) {
		t.Fatalf("oldest: got %v, want first entry's creation time", st.Oldest)
	}
}

func TestStore_StatsEmptyInstance(t *testing.T) {
	s, _ := newTestStore(t)
	st := s.Stats("never-seen")
	if st.Entries != 0 || st.TotalBytes != 0 || !st.Oldest.IsZero() {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestStore_PromptPreviewTruncated(t *testing.T) {
	s, _ := newTestStore(t)

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	if err := s.Put("adw-12345678", Entry{Fingerprint: "fp", PromptPrev: string(long)}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("adw-12345678", "fp")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.PromptPrev) != previewLen {
		t.Fatalf("preview length: got %d, want %d", len(got.PromptPrev), previewLen)
	}
}

func TestStore_PromptPreviewKeepsRuneBoundary(t *testing.T) {
	s, _ := newTestStore(t)

	// 3-byte runes: 100 is not a multiple of 3, so a byte-only cut would
	// split the 34th rune.
	long := strings.Repeat("界", 50)
	if err := s.Put("adw-12345678", Entry{Fingerprint: "fp-rune", PromptPrev: long}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("adw-12345678", "fp-rune")
	if !ok {
		t.Fatal("expected hit")
	}
	if !utf8.ValidString(got.PromptPrev) {
		t.Fatalf("preview is not valid UTF-8: %q", got.PromptPrev)
	}
	if len(got.PromptPrev) > previewLen {
		t.Fatalf("preview length: got %d, want <= %d", len(got.PromptPrev), previewLen)
	}
	if len(got.PromptPrev) != 99 {
		t.Fatalf("preview length: got %d, want 99 (33 full runes)", len(got.PromptPrev))
	}
}
