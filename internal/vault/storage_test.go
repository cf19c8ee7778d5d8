package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vault-scribe/internal/guildconfig"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func readBucket(t *testing.T, m *Manager, relPath string) []Record {
	t.Helper()
	abs := filepath.Join(m.Root(), filepath.FromSlash(relPath))
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read bucket: %v", err)
	}
	records, err := DecodeAll(abs, data)
	if err != nil {
		t.Fatalf("decode bucket: %v", err)
	}
	return records
}

func TestManager_Append(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()

	rel, err := m.Append(cfg, "general", rec)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rel != "g1/notes/general.md" {
		t.Errorf("rel = %q", rel)
	}

	records := readBucket(t, m, rel)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Anchor != rec.Anchor {
		t.Errorf("Anchor = %q, want %q", records[0].Anchor, rec.Anchor)
	}

	abs := filepath.Join(m.Root(), filepath.FromSlash(rel))
	data, _ := os.ReadFile(abs)
	if !strings.HasPrefix(string(data), "---\n") {
		t.Error("fresh bucket missing frontmatter preamble")
	}
}

func TestManager_Append_DuplicateAnchorIsNoop(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()

	if _, err := m.Append(cfg, "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	again := rec
	again.Body = "different text, same anchor"
	rel, err := m.Append(cfg, "general", again)
	if err != nil {
		t.Fatalf("Append() duplicate error = %v", err)
	}

	records := readBucket(t, m, rel)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Body != "hello world" {
		t.Errorf("Body = %q, first write must win", records[0].Body)
	}
}

func TestManager_Append_KeepsTimestampOrder(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// Realtime message first, then two backfilled ones that predate it.
	for i, offset := range []time.Duration{0, -2 * time.Hour, -time.Hour} {
		rec := testRecord()
		rec.Anchor = fmt.Sprintf("anchor-%d", i)
		rec.Timestamp = base.Add(offset)
		if _, err := m.Append(cfg, "general", rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records := readBucket(t, m, "g1/notes/general.md")
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Errorf("records out of order at %d: %v before %v", i, records[i].Timestamp, records[i-1].Timestamp)
		}
	}
}

func TestManager_Append_Concurrent(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testRecord()
			rec.Anchor = fmt.Sprintf("anchor-%02d", i)
			rec.Timestamp = base.Add(time.Duration(i) * time.Second)
			if _, err := m.Append(cfg, "general", rec); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append() error = %v", err)
	}

	records := readBucket(t, m, "g1/notes/general.md")
	if len(records) != n {
		t.Fatalf("len(records) = %d, want %d", len(records), n)
	}
}

func TestManager_Append_ConcurrentDisjointBuckets(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeDaily)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	const days = 10
	var wg sync.WaitGroup
	errs := make(chan error, days)
	for d := 0; d < days; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			rec := testRecord()
			rec.Anchor = fmt.Sprintf("day-%02d", d)
			rec.Timestamp = base.AddDate(0, 0, d)
			if _, err := m.Append(cfg, "general", rec); err != nil {
				errs <- err
			}
		}(d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append() error = %v", err)
	}

	for d := 0; d < days; d++ {
		rel := fmt.Sprintf("g1/notes/general/2024-03-%02d.md", d+1)
		records := readBucket(t, m, rel)
		if len(records) != 1 {
			t.Errorf("%s: %d records, want 1", rel, len(records))
		}
	}
}

func TestManager_Update(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()
	if _, err := m.Append(cfg, "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	edit := rec
	edit.Body = "hello edited world"
	if err := m.Update(cfg, "general", edit); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	records := readBucket(t, m, "g1/notes/general.md")
	got := records[0]
	if got.Body != "hello edited world" {
		t.Errorf("Body = %q", got.Body)
	}
	if !got.Edited {
		t.Error("Edited = false, want true")
	}
	if len(got.History) != 1 || got.History[0] != "hello world" {
		t.Errorf("History = %v, want prior body", got.History)
	}
}

func TestManager_Update_StacksHistory(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()
	if _, err := m.Append(cfg, "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	for _, body := range []string{"v2", "v3"} {
		edit := rec
		edit.Body = body
		if err := m.Update(cfg, "general", edit); err != nil {
			t.Fatalf("Update(%q) error = %v", body, err)
		}
	}

	records := readBucket(t, m, "g1/notes/general.md")
	got := records[0]
	if got.Body != "v3" {
		t.Errorf("Body = %q, want v3", got.Body)
	}
	want := []string{"hello world", "v2"}
	if len(got.History) != 2 || got.History[0] != want[0] || got.History[1] != want[1] {
		t.Errorf("History = %v, want %v", got.History, want)
	}
}

func TestManager_Update_UnseenAnchor(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)

	rec := testRecord()
	rec.Body = "late edit"
	err := m.Update(cfg, "general", rec)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Update() error = %v, want ErrRecordNotFound", err)
	}

	// The placeholder must exist and be annotated.
	records := readBucket(t, m, "g1/notes/general.md")
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if !records[0].Edited {
		t.Error("Edited = false, want true")
	}
	if !strings.Contains(records[0].Body, "predates logging") {
		t.Errorf("Body = %q, want annotation", records[0].Body)
	}
}

func TestManager_Remove(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()
	if _, err := m.Append(cfg, "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := m.Remove(cfg, "general", rec); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	records := readBucket(t, m, "g1/notes/general.md")
	got := records[0]
	if got.Body != TombstoneText {
		t.Errorf("Body = %q, want tombstone", got.Body)
	}
	if !got.Deleted {
		t.Error("Deleted = false, want true")
	}
	if got.Anchor != rec.Anchor {
		t.Error("anchor must survive deletion")
	}
}

func TestManager_Remove_UnseenAnchor(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)

	err := m.Remove(cfg, "general", testRecord())
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Remove() error = %v, want ErrRecordNotFound", err)
	}

	records := readBucket(t, m, "g1/notes/general.md")
	if len(records) != 1 || records[0].Body != TombstoneText || !records[0].Deleted {
		t.Errorf("placeholder tombstone missing: %+v", records)
	}
}

func TestManager_BadModeFallsBackToSingle(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig("weekly")
	rec := testRecord()

	rel, err := m.Append(cfg, "general", rec)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rel != "g1/notes/general.md" {
		t.Errorf("rel = %q, want single-file fallback path", rel)
	}
}

func TestManager_QuarantinesCorruptFile(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)

	abs := filepath.Join(m.Root(), "g1", "notes", "general.md")
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte("<!--rec {broken-->\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := testRecord()
	if _, err := m.Append(cfg, "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records := readBucket(t, m, "g1/notes/general.md")
	if len(records) != 1 || records[0].Anchor != rec.Anchor {
		t.Errorf("fresh file after quarantine: %+v", records)
	}

	matches, _ := filepath.Glob(abs + ".quarantined-*")
	if len(matches) != 1 {
		t.Errorf("quarantine files = %v, want exactly one", matches)
	}
}

func TestManager_AnchorsFor(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()
	rel, err := m.Append(cfg, "general", rec)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	anchors, err := m.AnchorsFor(rel)
	if err != nil {
		t.Fatalf("AnchorsFor() error = %v", err)
	}
	if !anchors[rec.Anchor] {
		t.Errorf("anchors = %v, want %q present", anchors, rec.Anchor)
	}

	// Missing bucket yields an empty set, not an error.
	anchors, err = m.AnchorsFor("g1/notes/nothing.md")
	if err != nil {
		t.Fatalf("AnchorsFor() error = %v", err)
	}
	if len(anchors) != 0 {
		t.Errorf("anchors = %v, want empty", anchors)
	}
}

func TestManager_Purge(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	if _, err := m.Append(cfg, "general", testRecord()); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := m.Purge("g1", "made-up-token"); !errors.Is(err, ErrBadConfirmToken) {
		t.Fatalf("Purge() with bogus token error = %v, want ErrBadConfirmToken", err)
	}

	token := m.RequestPurge("g1")
	if err := m.Purge("g1", token); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.Root(), "g1")); !errors.Is(err, os.ErrNotExist) {
		t.Error("guild tree still exists after purge")
	}

	// A token is single use.
	if err := m.Purge("g1", token); !errors.Is(err, ErrBadConfirmToken) {
		t.Errorf("Purge() reuse error = %v, want ErrBadConfirmToken", err)
	}
}

func TestManager_ClearCache(t *testing.T) {
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeSingle)
	rec := testRecord()
	rel, err := m.Append(cfg, "general", rec)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Rewrite the file behind the manager's back, then clear the cache; the
	// next read must see the new contents.
	other := testRecord()
	other.Anchor = "999999999999999999"
	abs := filepath.Join(m.Root(), filepath.FromSlash(rel))
	if err := os.WriteFile(abs, []byte(Encode(other, time.UTC)), 0o644); err != nil {
		t.Fatal(err)
	}
	m.ClearCache()

	anchors, err := m.AnchorsFor(rel)
	if err != nil {
		t.Fatalf("AnchorsFor() error = %v", err)
	}
	if !anchors[other.Anchor] || anchors[rec.Anchor] {
		t.Errorf("anchors = %v, want only rewritten contents", anchors)
	}
}
