package vault

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vault-scribe/internal/guildconfig"
)

// seedVault fills a manager with two channels of daily-bucketed history and
// returns an index over the same root.
func seedVault(t *testing.T) (*Manager, *Index) {
	t.Helper()
	m := newTestManager(t)
	cfg := bucketConfig(guildconfig.ModeDaily)

	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	for _, channel := range []string{"general", "random"} {
		for day := 0; day < 3; day++ {
			rec := testRecord()
			rec.Anchor = fmt.Sprintf("%s-%d", channel, day)
			rec.Timestamp = base.AddDate(0, 0, day)
			rec.Author = "alice"
			rec.Body = fmt.Sprintf("%s news for day %d", channel, day)
			if _, err := m.Append(cfg, channel, rec); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}
	}
	return m, &Index{Root: m.Root()}
}

func TestIndex_List(t *testing.T) {
	_, ix := seedVault(t)

	files, err := ix.List(context.Background(), Query{GuildID: "g1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 6 {
		t.Fatalf("len(files) = %d, want 6", len(files))
	}
	for _, f := range files {
		if f.Records != 1 {
			t.Errorf("%s: Records = %d, want 1", f.RelPath, f.Records)
		}
		if f.Size == 0 {
			t.Errorf("%s: Size = 0", f.RelPath)
		}
		if f.First.IsZero() || f.Last.IsZero() {
			t.Errorf("%s: span not populated", f.RelPath)
		}
	}
}

func TestIndex_List_ChannelFilter(t *testing.T) {
	_, ix := seedVault(t)

	files, err := ix.List(context.Background(), Query{GuildID: "g1", Channel: "random"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("len(files) = %d, want 3", len(files))
	}
	for _, f := range files {
		if f.RelPath != fmt.Sprintf("g1/notes/random/%s.md", f.First.Format("2006-01-02")) {
			t.Errorf("unexpected path %s", f.RelPath)
		}
	}
}

func TestIndex_List_DateRange(t *testing.T) {
	_, ix := seedVault(t)

	q := Query{
		GuildID: "g1",
		From:    time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2024, 3, 16, 23, 59, 59, 0, time.UTC),
	}
	files, err := ix.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want one per channel", len(files))
	}
}

func TestIndex_List_MissingGuild(t *testing.T) {
	_, ix := seedVault(t)

	files, err := ix.List(context.Background(), Query{GuildID: "no-such-guild"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("len(files) = %d, want 0", len(files))
	}
}

func TestIndex_Search_Keyword(t *testing.T) {
	_, ix := seedVault(t)

	var hits []Match
	err := ix.Search(context.Background(), Query{GuildID: "g1", Keyword: "RANDOM news"}, func(m Match) bool {
		hits = append(hits, m)
		return true
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("len(hits) = %d, want 3", len(hits))
	}
	for _, h := range hits {
		if h.Record.ChannelID == "" || h.RelPath == "" {
			t.Errorf("incomplete match: %+v", h)
		}
	}
}

func TestIndex_Search_KeywordScopedToChannelPath(t *testing.T) {
	m, ix := seedVault(t)

	// A record whose body never mentions its channel, reachable only
	// through path matching.
	rec := testRecord()
	rec.Anchor = "general-extra"
	rec.Timestamp = time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)
	rec.Author = "bob"
	rec.Body = "quarterly report"
	if _, err := m.Append(bucketConfig(guildconfig.ModeDaily), "general", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	count := func(t *testing.T, keyword string) int {
		t.Helper()
		n := 0
		err := ix.Search(context.Background(), Query{GuildID: "g1", Keyword: keyword}, func(Match) bool {
			n++
			return true
		})
		if err != nil {
			t.Fatalf("Search(%q) error = %v", keyword, err)
		}
		return n
	}

	tests := []struct {
		name    string
		keyword string
		want    int
	}{
		{"channel name matches via path", "general", 4},
		{"vault directory never matches", "notes", 0},
		{"guild id never matches", "g1", 0},
		{"year never matches", "2024", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := count(t, tt.keyword); got != tt.want {
				t.Errorf("Search(%q) hits = %d, want %d", tt.keyword, got, tt.want)
			}
		})
	}
}

func TestIndex_Search_AuthorKeyword(t *testing.T) {
	_, ix := seedVault(t)

	count := 0
	err := ix.Search(context.Background(), Query{GuildID: "g1", Channel: "general", Keyword: "alice"}, func(m Match) bool {
		count++
		return true
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestIndex_Search_StopsEarly(t *testing.T) {
	_, ix := seedVault(t)

	count := 0
	err := ix.Search(context.Background(), Query{GuildID: "g1"}, func(m Match) bool {
		count++
		return count < 2
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want callback to stop the scan at 2", count)
	}
}

func TestIndex_Search_Cancelled(t *testing.T) {
	_, ix := seedVault(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ix.Search(ctx, Query{GuildID: "g1"}, func(m Match) bool { return true })
	if err == nil {
		t.Fatal("Search() with cancelled context: want error")
	}
}
