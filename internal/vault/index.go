package vault

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"vault-scribe/pkg/util"
)

// Query selects archive files or records.
type Query struct {
	GuildID string
	Channel string    // optional channel name, matched against bucket paths
	From    time.Time // optional lower bound, inclusive
	To      time.Time // optional upper bound, inclusive
	Keyword string    // optional, case-insensitive substring
}

// FileInfo describes one archive file without exposing its full contents.
type FileInfo struct {
	RelPath string
	Records int
	Size    int64
	First   time.Time
	Last    time.Time
}

// Match is one search hit with enough context to locate it in the vault.
type Match struct {
	RelPath string
	Record  Record
}

// Index enumerates and searches archive files. It only ever reads: writers
// go through Manager, and atomic renames guarantee a reader sees either the
// old or the new version of a file, never a torn one.
type Index struct {
	Root string
}

// List returns the files matching the query with basic stats read from the
// anchor headers. Stat and header scans fan out across a small worker pool.
func (ix *Index) List(ctx context.Context, q Query) ([]FileInfo, error) {
	paths, err := ix.candidates(q)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, len(paths))
	err = util.Parallel(ctx, indexRange(len(paths)), 4, func(_ context.Context, i int) error {
		info, err := ix.fileInfo(paths[i])
		if err != nil {
			// A single unreadable file should not hide the rest.
			var corrupt *CorruptRecordError
			if errors.As(err, &corrupt) {
				log.Printf("[WARN] Skipping %s: %v", paths[i], err)
				infos[i] = FileInfo{RelPath: ""}
				return nil
			}
			return err
		}
		infos[i] = info
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := infos[:0]
	for _, info := range infos {
		if info.RelPath == "" {
			continue
		}
		if !spanOverlaps(q, info.First, info.Last) {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// Search streams matching records through fn, one file at a time, so large
// archives never need to be buffered whole. fn returning false stops the
// scan early.
func (ix *Index) Search(ctx context.Context, q Query, fn func(Match) bool) error {
	paths, err := ix.candidates(q)
	if err != nil {
		return err
	}
	sort.Strings(paths)

	keyword := strings.ToLower(q.Keyword)

	for _, relPath := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := os.ReadFile(filepath.Join(ix.Root, filepath.FromSlash(relPath)))
		if err != nil {
			log.Printf("[WARN] Skipping unreadable file %s: %v", relPath, err)
			continue
		}
		records, err := DecodeAll(relPath, data)
		if err != nil {
			log.Printf("[WARN] Skipping %s: %v", relPath, err)
			continue
		}

		pathMatches := keyword != "" && strings.Contains(channelSlug(relPath), keyword)
		for _, rec := range records {
			if !inRange(q, rec.Timestamp) {
				continue
			}
			if keyword != "" && !pathMatches &&
				!strings.Contains(strings.ToLower(rec.Body), keyword) &&
				!strings.Contains(strings.ToLower(rec.Author), keyword) {
				continue
			}
			if !fn(Match{RelPath: relPath, Record: rec}) {
				return nil
			}
		}
	}
	return nil
}

var digitRuns = regexp.MustCompile(`[0-9]+`)

// channelSlug reduces a bucket path to its channel-derived part: the segments
// below the guild id and vault directory, extension and date digits stripped.
// Keyword search matches channel names through this, never guild ids, vault
// subpaths or dates.
func channelSlug(relPath string) string {
	parts := strings.SplitN(relPath, "/", 3)
	rest := parts[len(parts)-1]
	rest = strings.TrimSuffix(rest, ".md")
	rest = digitRuns.ReplaceAllString(rest, "")
	return strings.ToLower(rest)
}

// candidates walks the guild's tree and returns archive file paths relative
// to the vault root, filtered by channel when the query names one.
func (ix *Index) candidates(q Query) ([]string, error) {
	base := filepath.Join(ix.Root, q.GuildID)
	channel := strings.ToLower(util.SanitizeName(q.Channel))

	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, err := filepath.Rel(ix.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if q.Channel != "" && !strings.Contains(strings.ToLower(rel), channel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (ix *Index) fileInfo(relPath string) (FileInfo, error) {
	abs := filepath.Join(ix.Root, filepath.FromSlash(relPath))
	stat, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return FileInfo{}, err
	}
	headers, err := scanAnchors(relPath, data)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{RelPath: relPath, Records: len(headers), Size: stat.Size()}
	for _, h := range headers {
		ts, err := time.Parse(time.RFC3339Nano, h.TS)
		if err != nil {
			continue
		}
		ts = ts.UTC()
		if info.First.IsZero() || ts.Before(info.First) {
			info.First = ts
		}
		if ts.After(info.Last) {
			info.Last = ts
		}
	}
	return info, nil
}

func inRange(q Query, ts time.Time) bool {
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && ts.After(q.To) {
		return false
	}
	return true
}

func spanOverlaps(q Query, first, last time.Time) bool {
	if first.IsZero() {
		// A file with no parsable timestamps still lists unless a range
		// was requested.
		return q.From.IsZero() && q.To.IsZero()
	}
	if !q.From.IsZero() && last.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && first.After(q.To) {
		return false
	}
	return true
}

func indexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
