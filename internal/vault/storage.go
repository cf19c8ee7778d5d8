package vault

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vault-scribe/internal/guildconfig"
	"vault-scribe/pkg/retrylimit"
)

const purgeTokenTTL = 2 * time.Minute

// Manager owns all mutation of archive files. Every mutating operation is
// scoped to exactly one file and serialized by a per-file lock; operations on
// different files run fully in parallel. Files are written with
// temp-write-fsync-rename so readers never observe a half-written file.
type Manager struct {
	root string

	mu          sync.Mutex
	locks       map[string]*sync.Mutex
	cache       map[string]*fileState
	purgeTokens map[string]purgeToken
}

// fileState caches the anchor set of a file, validated against size+mtime so
// external edits are noticed even without the watcher.
type fileState struct {
	anchors map[string]bool
	size    int64
	modTime time.Time
}

type purgeToken struct {
	token   string
	expires time.Time
}

// NewManager creates a Manager rooted at the given vault directory.
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create vault root: %w", err)
	}
	return &Manager{
		root:        root,
		locks:       make(map[string]*sync.Mutex),
		cache:       make(map[string]*fileState),
		purgeTokens: make(map[string]purgeToken),
	}, nil
}

// Root returns the vault root directory.
func (m *Manager) Root() string { return m.root }

// Append logs a new record into its bucket, keeping records in
// non-decreasing timestamp order. Appending an anchor already present in the
// bucket is a no-op, which is what makes backfill idempotent. Returns the
// bucket path relative to the vault root.
func (m *Manager) Append(cfg guildconfig.GuildConfig, channelName string, rec Record) (string, error) {
	bucket := m.resolveBucket(cfg, channelName, rec.Timestamp)
	abs := filepath.Join(m.root, filepath.FromSlash(bucket.RelPath))

	lock := m.fileLock(abs)
	lock.Lock()
	defer lock.Unlock()

	preamble, records, err := m.loadForWrite(abs)
	if err != nil {
		return bucket.RelPath, err
	}

	for _, existing := range records {
		if existing.Anchor == rec.Anchor {
			return bucket.RelPath, nil
		}
	}

	records = insertOrdered(records, rec)
	if preamble == "" {
		preamble = fileHeader(cfg, bucket)
	}
	if err := m.writeBucket(abs, cfg, preamble, records); err != nil {
		return bucket.RelPath, err
	}
	return bucket.RelPath, nil
}

// Update applies an edit event. rec carries the event data: anchor,
// timestamp of the original message (which locates the bucket) and the new
// body. When the anchor was never logged, a synthetic record annotated as an
// edit of an unseen message is appended instead and ErrRecordNotFound is
// returned so the caller can report it; the archive itself stays valid.
func (m *Manager) Update(cfg guildconfig.GuildConfig, channelName string, rec Record) error {
	bucket := m.resolveBucket(cfg, channelName, rec.Timestamp)
	abs := filepath.Join(m.root, filepath.FromSlash(bucket.RelPath))

	lock := m.fileLock(abs)
	lock.Lock()
	defer lock.Unlock()

	preamble, records, err := m.loadForWrite(abs)
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].Anchor != rec.Anchor {
			continue
		}
		records[i].History = append(records[i].History, records[i].Body)
		records[i].Body = rec.Body
		records[i].Edited = true
		if preamble == "" {
			preamble = fileHeader(cfg, bucket)
		}
		return m.writeBucket(abs, cfg, preamble, records)
	}

	synthetic := rec
	synthetic.Edited = true
	synthetic.Body = rec.Body + "\n\n*(edit of a message that predates logging)*"
	records = insertOrdered(records, synthetic)
	if preamble == "" {
		preamble = fileHeader(cfg, bucket)
	}
	if err := m.writeBucket(abs, cfg, preamble, records); err != nil {
		return err
	}
	return fmt.Errorf("edit for anchor %s: %w", rec.Anchor, ErrRecordNotFound)
}

// Remove applies a delete event: the record's body is redacted to a
// tombstone in place, the anchor stays. Deleting an unseen anchor inserts a
// tombstone placeholder and returns ErrRecordNotFound for reporting.
func (m *Manager) Remove(cfg guildconfig.GuildConfig, channelName string, rec Record) error {
	bucket := m.resolveBucket(cfg, channelName, rec.Timestamp)
	abs := filepath.Join(m.root, filepath.FromSlash(bucket.RelPath))

	lock := m.fileLock(abs)
	lock.Lock()
	defer lock.Unlock()

	preamble, records, err := m.loadForWrite(abs)
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].Anchor != rec.Anchor {
			continue
		}
		records[i].Body = TombstoneText
		records[i].Deleted = true
		if preamble == "" {
			preamble = fileHeader(cfg, bucket)
		}
		return m.writeBucket(abs, cfg, preamble, records)
	}

	placeholder := rec
	placeholder.Deleted = true
	placeholder.Body = TombstoneText
	records = insertOrdered(records, placeholder)
	if preamble == "" {
		preamble = fileHeader(cfg, bucket)
	}
	if err := m.writeBucket(abs, cfg, preamble, records); err != nil {
		return err
	}
	return fmt.Errorf("delete for anchor %s: %w", rec.Anchor, ErrRecordNotFound)
}

// AnchorsFor returns the anchor set of a bucket, served from cache while the
// file's size and mtime are unchanged. The returned map is a copy.
func (m *Manager) AnchorsFor(relPath string) (map[string]bool, error) {
	abs := filepath.Join(m.root, filepath.FromSlash(relPath))

	lock := m.fileLock(abs)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.statefulAnchors(abs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(state))
	for k := range state {
		out[k] = true
	}
	return out, nil
}

// ClearCache drops the in-memory anchor cache, forcing the next access to
// re-read the filesystem. Used after manual edits to the vault.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	m.cache = make(map[string]*fileState)
	m.mu.Unlock()
}

// RequestPurge issues a short-lived confirmation token for irreversibly
// deleting a guild's archive tree.
func (m *Manager) RequestPurge(guildID string) string {
	token := uuid.NewString()
	m.mu.Lock()
	m.purgeTokens[guildID] = purgeToken{token: token, expires: time.Now().Add(purgeTokenTTL)}
	m.mu.Unlock()
	return token
}

// Purge deletes a guild's entire archive tree. The token must match the one
// issued by RequestPurge and must not have expired.
func (m *Manager) Purge(guildID, token string) error {
	m.mu.Lock()
	pending, ok := m.purgeTokens[guildID]
	if ok {
		delete(m.purgeTokens, guildID)
	}
	m.mu.Unlock()

	if !ok || pending.token != token || time.Now().After(pending.expires) {
		return ErrBadConfirmToken
	}

	dir := filepath.Join(m.root, guildID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge guild %s: %w", guildID, err)
	}

	m.mu.Lock()
	for path := range m.cache {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			delete(m.cache, path)
		}
	}
	m.mu.Unlock()

	log.Printf("[INFO] Purged archive tree for guild %s", guildID)
	return nil
}

// BucketFor resolves the bucket a message would land in, applying the same
// single-file fallback ingestion uses. Backfill grouping goes through this so
// its view of the archive matches what Append will do.
func (m *Manager) BucketFor(cfg guildconfig.GuildConfig, channelName string, ts time.Time) Bucket {
	return m.resolveBucket(cfg, channelName, ts)
}

// resolveBucket wraps ResolveBucket with the single-file fallback: a broken
// export mode must never block ingestion.
func (m *Manager) resolveBucket(cfg guildconfig.GuildConfig, channelName string, ts time.Time) Bucket {
	bucket, err := ResolveBucket(cfg, channelName, ts)
	if err != nil {
		log.Printf("[WARN] Guild %s: %v; falling back to single-file bucketing", cfg.GuildID, err)
		fallback := cfg
		fallback.ExportMode = guildconfig.ModeSingle
		bucket, _ = ResolveBucket(fallback, channelName, ts)
	}
	return bucket
}

// loadForWrite reads and decodes a bucket under the file lock. A corrupt
// file is quarantined by rename and logging continues on a fresh file.
func (m *Manager) loadForWrite(abs string) (preamble string, records []Record, err error) {
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read bucket %s: %w", abs, err)
	}

	records, err = DecodeAll(abs, data)
	var corrupt *CorruptRecordError
	if errors.As(err, &corrupt) {
		quarantined := m.quarantine(abs)
		log.Printf("[ERR] %v; quarantined as %s", err, quarantined)
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return preambleOf(string(data)), records, nil
}

func (m *Manager) quarantine(abs string) string {
	dest := fmt.Sprintf("%s.quarantined-%s", abs, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(abs, dest); err != nil {
		log.Printf("[ERR] Failed to quarantine %s: %v", abs, err)
		return abs
	}
	m.mu.Lock()
	delete(m.cache, abs)
	m.mu.Unlock()
	return dest
}

// writeBucket serializes the bucket and writes it atomically, retrying once
// with backoff on IO failure. The cache entry is refreshed on success.
func (m *Manager) writeBucket(abs string, cfg guildconfig.GuildConfig, preamble string, records []Record) error {
	loc := cfg.Location()
	var b strings.Builder
	b.WriteString(preamble)
	for _, rec := range records {
		b.WriteString(Encode(rec, loc))
	}

	if err := writeFileAtomic(abs, []byte(b.String())); err != nil {
		return err
	}

	anchors := make(map[string]bool, len(records))
	for _, rec := range records {
		anchors[rec.Anchor] = true
	}
	state := &fileState{anchors: anchors}
	if info, err := os.Stat(abs); err == nil {
		state.size = info.Size()
		state.modTime = info.ModTime()
	}
	m.mu.Lock()
	m.cache[abs] = state
	m.mu.Unlock()
	return nil
}

// statefulAnchors returns the live anchor set for abs, consulting the cache
// first. Caller holds the file lock.
func (m *Manager) statefulAnchors(abs string) (map[string]bool, error) {
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat bucket %s: %w", abs, err)
	}

	m.mu.Lock()
	cached, ok := m.cache[abs]
	m.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.anchors, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read bucket %s: %w", abs, err)
	}
	headers, err := scanAnchors(abs, data)
	if err != nil {
		return nil, err
	}
	anchors := make(map[string]bool, len(headers))
	for _, h := range headers {
		anchors[h.ID] = true
	}
	m.mu.Lock()
	m.cache[abs] = &fileState{anchors: anchors, size: info.Size(), modTime: info.ModTime()}
	m.mu.Unlock()
	return anchors, nil
}

func (m *Manager) fileLock(abs string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[abs]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[abs] = lock
	}
	return lock
}

// insertOrdered places rec so timestamps stay non-decreasing. Realtime
// events land at the end; backfill insertions find their slot.
func insertOrdered(records []Record, rec Record) []Record {
	idx := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp.After(rec.Timestamp)
	})
	records = append(records, Record{})
	copy(records[idx+1:], records[idx:])
	records[idx] = rec
	return records
}

// fileHeader renders the frontmatter preamble for a fresh bucket file.
func fileHeader(cfg guildconfig.GuildConfig, bucket Bucket) string {
	return fmt.Sprintf(`---
channel: %s
server: %s
period: %s
export_mode: %s
generated_on: %s
---

`, bucket.Heading, cfg.GuildID, bucket.Period, cfg.ExportMode, time.Now().UTC().Format(time.RFC3339))
}

// preambleOf returns everything before the first anchor marker.
func preambleOf(text string) string {
	if idx := strings.Index(text, anchorPrefix); idx >= 0 {
		return text[:idx]
	}
	return text
}

// writeFileAtomic writes data through a temp file and rename so a crash
// mid-write never leaves a torn bucket. One retry with backoff covers
// transient filesystem errors.
func writeFileAtomic(abs string, data []byte) error {
	attempt := func() error {
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("create bucket directory: %w", err)
		}
		tmp := abs + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		f, err := os.OpenFile(tmp, os.O_RDWR, 0o644)
		if err != nil {
			os.Remove(tmp)
			return fmt.Errorf("open temp file for sync: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("sync temp file: %w", err)
		}
		f.Close()
		if err := os.Rename(tmp, abs); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	}

	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.InitialDelay = 100 * time.Millisecond
	cfg.Jitter = false
	if err := retrylimit.WithRetryConfig(context.Background(), attempt, nil, cfg); err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}
	return nil
}
