package guildconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func TestGuildConfig_Validate(t *testing.T) {
	valid := NewGuildConfig("g1")

	tests := []struct {
		name    string
		mutate  func(*GuildConfig)
		wantErr bool
	}{
		{"defaults", func(c *GuildConfig) {}, false},
		{"single mode", func(c *GuildConfig) { c.ExportMode = ModeSingle }, false},
		{"daily mode", func(c *GuildConfig) { c.ExportMode = ModeDaily }, false},
		{"custom mode", func(c *GuildConfig) { c.ExportMode = ModeCustom }, false},
		{"unknown mode", func(c *GuildConfig) { c.ExportMode = "weekly" }, true},
		{"custom zero days", func(c *GuildConfig) {
			c.ExportMode = ModeCustom
			c.CustomPeriodDays = 0
		}, true},
		{"custom bad epoch", func(c *GuildConfig) {
			c.ExportMode = ModeCustom
			c.CustomEpoch = "01/01/2024"
		}, true},
		{"custom empty epoch uses default", func(c *GuildConfig) {
			c.ExportMode = ModeCustom
			c.CustomEpoch = ""
		}, false},
		{"offset in range", func(c *GuildConfig) { c.UTCOffsetMinutes = -8 * 60 }, false},
		{"offset too far east", func(c *GuildConfig) { c.UTCOffsetMinutes = 15 * 60 }, true},
		{"offset too far west", func(c *GuildConfig) { c.UTCOffsetMinutes = -15 * 60 }, true},
		{"empty template", func(c *GuildConfig) { c.FilenameTemplate = "" }, true},
		{"overlapping channel lists", func(c *GuildConfig) {
			c.IncludeChannels = []string{"a", "b"}
			c.ExcludeChannels = []string{"b"}
		}, true},
		{"disjoint channel lists", func(c *GuildConfig) {
			c.IncludeChannels = []string{"a"}
			c.ExcludeChannels = []string{"b"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuildConfig_ShouldLog(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		channel string
		want    bool
	}{
		{"no lists logs everything", nil, nil, "c1", true},
		{"include hit", []string{"c1"}, nil, "c1", true},
		{"include miss", []string{"c1"}, nil, "c2", false},
		{"exclude hit", nil, []string{"c1"}, "c1", false},
		{"exclude miss", nil, []string{"c1"}, "c2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewGuildConfig("g1")
			cfg.IncludeChannels = tt.include
			cfg.ExcludeChannels = tt.exclude
			if got := cfg.ShouldLog(tt.channel); got != tt.want {
				t.Errorf("ShouldLog(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestGuildConfig_Location(t *testing.T) {
	cfg := NewGuildConfig("g1")
	if cfg.Location() != time.UTC {
		t.Error("zero offset should be UTC")
	}

	cfg.UTCOffsetMinutes = 330
	loc := cfg.Location()
	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC).In(loc)
	if got := ts.Format("15:04"); got != "17:30" {
		t.Errorf("local time = %s, want 17:30 at UTC+05:30", got)
	}
}

func TestGuildConfig_IsGroupDisabled(t *testing.T) {
	cfg := NewGuildConfig("g1")
	if cfg.IsGroupDisabled("export") {
		t.Error("fresh config should have no disabled groups")
	}

	cfg.DisabledGroups = []string{"export"}
	if !cfg.IsGroupDisabled("export") {
		t.Error("IsGroupDisabled(export) = false, want true")
	}
	if cfg.IsGroupDisabled("maintenance") {
		t.Error("IsGroupDisabled(maintenance) = true, want false")
	}
}

func TestGuildConfig_EpochTime(t *testing.T) {
	cfg := NewGuildConfig("g1")
	cfg.CustomEpoch = "2024-01-01"
	cfg.UTCOffsetMinutes = 120

	got, err := cfg.EpochTime()
	if err != nil {
		t.Fatalf("EpochTime() error = %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, cfg.Location())
	if !got.Equal(want) {
		t.Errorf("EpochTime() = %v, want %v", got, want)
	}

	cfg.CustomEpoch = ""
	got, err = cfg.EpochTime()
	if err != nil {
		t.Fatalf("EpochTime() with empty epoch error = %v", err)
	}
	if got.Format("2006-01-02") != DefaultCustomEpoch {
		t.Errorf("empty epoch = %v, want default %s", got, DefaultCustomEpoch)
	}

	cfg.CustomEpoch = "01/01/2024"
	if _, err := cfg.EpochTime(); err == nil {
		t.Error("EpochTime() with malformed epoch: want error")
	}
}

func TestStore_GetOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()

	cfg, err := s.GetOrCreate("g1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if cfg.GuildID != "g1" {
		t.Errorf("GuildID = %q", cfg.GuildID)
	}
	if cfg.ExportMode != ModeMonthly {
		t.Errorf("ExportMode = %q, want monthly default", cfg.ExportMode)
	}
	if cfg.FilenameTemplate != DefaultFilenameTemplate {
		t.Errorf("FilenameTemplate = %q", cfg.FilenameTemplate)
	}
}

func TestStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	_, err = s.Update("g1", func(c *GuildConfig) {
		c.ExportMode = ModeDaily
		c.UTCOffsetMinutes = 120
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen and check the mutation survived.
	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	defer s2.Close()

	cfg, err := s2.GetOrCreate("g1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if cfg.ExportMode != ModeDaily || cfg.UTCOffsetMinutes != 120 {
		t.Errorf("persisted config = %+v", cfg)
	}
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()

	if _, err := s.Update("g1", func(c *GuildConfig) { c.ExportMode = "weekly" }); err == nil {
		t.Fatal("Update() with bad mode: want error")
	}

	// Stored config must be untouched.
	cfg, err := s.GetOrCreate("g1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if cfg.ExportMode != ModeMonthly {
		t.Errorf("ExportMode = %q, want monthly default preserved", cfg.ExportMode)
	}
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()

	if _, err := s.GetOrCreate("g1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("g1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("All() = %+v, want empty", all)
	}
}
