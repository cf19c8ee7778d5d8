// Package guildconfig holds per-guild archiving settings: where the vault
// lives, how messages are bucketed into files, and which channels are logged.
// The table is loaded at startup and flushed on every mutation.
package guildconfig

import (
	"fmt"
	"time"

	"vault-scribe/datastore"
)

// ExportMode selects the file-bucketing strategy.
type ExportMode string

const (
	ModeSingle  ExportMode = "single"  // one file per channel for all time
	ModeMonthly ExportMode = "monthly" // one file per channel per calendar month
	ModeDaily   ExportMode = "daily"   // one file per channel per calendar day
	ModeCustom  ExportMode = "custom"  // one file per channel per N-day window
)

const (
	DefaultFilenameTemplate = "{channel}/{year}-{month}-{day}"
	DefaultCustomEpoch      = "1970-01-01"
)

// GuildConfig is the persisted configuration for one guild.
type GuildConfig struct {
	GuildID          string     `json:"guild_id"`
	VaultPath        string     `json:"vault_path"`
	ExportMode       ExportMode `json:"export_mode"`
	UTCOffsetMinutes int        `json:"utc_offset_minutes"`
	IncludeChannels  []string   `json:"include_channels"`
	ExcludeChannels  []string   `json:"exclude_channels"`
	AdminRoleID      string     `json:"admin_role_id"`
	FilenameTemplate string     `json:"filename_template"`
	CustomPeriodDays int        `json:"custom_period_days"`
	CustomEpoch      string     `json:"custom_epoch"` // YYYY-MM-DD, window alignment for custom mode
	DisabledGroups   []string   `json:"disabled_groups,omitempty"`
}

// NewGuildConfig returns the defaults for a guild seen for the first time.
func NewGuildConfig(guildID string) GuildConfig {
	return GuildConfig{
		GuildID:          guildID,
		VaultPath:        "notes",
		ExportMode:       ModeMonthly,
		FilenameTemplate: DefaultFilenameTemplate,
		CustomPeriodDays: 7,
		CustomEpoch:      DefaultCustomEpoch,
	}
}

// Location returns the guild's timezone as a fixed UTC offset.
func (c GuildConfig) Location() *time.Location {
	if c.UTCOffsetMinutes == 0 {
		return time.UTC
	}
	sign := "+"
	m := c.UTCOffsetMinutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, m/60, m%60)
	return time.FixedZone(name, c.UTCOffsetMinutes*60)
}

// ShouldLog reports whether a channel is covered by the include/exclude
// lists. Both lists empty means everything is logged.
func (c GuildConfig) ShouldLog(channelID string) bool {
	if len(c.IncludeChannels) > 0 && !contains(c.IncludeChannels, channelID) {
		return false
	}
	return !contains(c.ExcludeChannels, channelID)
}

// Validate checks the invariants the rest of the engine relies on.
func (c GuildConfig) Validate() error {
	switch c.ExportMode {
	case ModeSingle, ModeMonthly, ModeDaily:
	case ModeCustom:
		if c.CustomPeriodDays < 1 {
			return fmt.Errorf("custom period must be at least 1 day, got %d", c.CustomPeriodDays)
		}
		if _, err := c.EpochTime(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export mode %q", c.ExportMode)
	}

	if c.UTCOffsetMinutes < -14*60 || c.UTCOffsetMinutes > 14*60 {
		return fmt.Errorf("utc offset %d minutes is out of range", c.UTCOffsetMinutes)
	}
	if c.FilenameTemplate == "" {
		return fmt.Errorf("filename template must not be empty")
	}
	for _, id := range c.IncludeChannels {
		if contains(c.ExcludeChannels, id) {
			return fmt.Errorf("channel %s appears in both include and exclude lists", id)
		}
	}
	return nil
}

// IsGroupDisabled reports whether a command group has been switched off for
// this guild.
func (c GuildConfig) IsGroupDisabled(group string) bool {
	return contains(c.DisabledGroups, group)
}

func (c GuildConfig) epochOrDefault() string {
	if c.CustomEpoch == "" {
		return DefaultCustomEpoch
	}
	return c.CustomEpoch
}

// EpochTime returns the custom-mode window alignment instant, midnight of the
// configured epoch date in the guild's timezone.
func (c GuildConfig) EpochTime() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", c.epochOrDefault(), c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("custom epoch %q is not a YYYY-MM-DD date", c.CustomEpoch)
	}
	return t, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Store is the process-wide guild config table.
type Store struct {
	ds *datastore.DataStore
}

// NewStore opens (or creates) the config table at the given path.
func NewStore(path string) (*Store, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, err
	}
	return &Store{ds: ds}, nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

// GetOrCreate returns the config for a guild, creating and persisting the
// defaults on first sight.
func (s *Store) GetOrCreate(guildID string) (GuildConfig, error) {
	var cfg GuildConfig
	ok, err := s.ds.Get(guildID, &cfg)
	if err != nil {
		return GuildConfig{}, err
	}
	if !ok {
		cfg = NewGuildConfig(guildID)
		if err := s.put(cfg); err != nil {
			return GuildConfig{}, err
		}
	}
	if cfg.FilenameTemplate == "" {
		cfg.FilenameTemplate = DefaultFilenameTemplate
	}
	return cfg, nil
}

// Update applies mutate to a guild's config, validates the result, and
// flushes it. The stored config is unchanged when validation fails.
func (s *Store) Update(guildID string, mutate func(*GuildConfig)) (GuildConfig, error) {
	cfg, err := s.GetOrCreate(guildID)
	if err != nil {
		return GuildConfig{}, err
	}
	mutate(&cfg)
	cfg.GuildID = guildID
	if err := cfg.Validate(); err != nil {
		return GuildConfig{}, err
	}
	if err := s.put(cfg); err != nil {
		return GuildConfig{}, err
	}
	return cfg, nil
}

// All returns every persisted guild config.
func (s *Store) All() ([]GuildConfig, error) {
	var out []GuildConfig
	for _, key := range s.ds.Keys() {
		var cfg GuildConfig
		if ok, err := s.ds.Get(key, &cfg); err != nil {
			return nil, err
		} else if ok {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// Delete removes a guild's config entirely, e.g. after a purge.
func (s *Store) Delete(guildID string) error {
	s.ds.Delete(guildID)
	return s.ds.Save()
}

func (s *Store) put(cfg GuildConfig) error {
	if err := s.ds.Set(cfg.GuildID, cfg); err != nil {
		return err
	}
	return s.ds.Save()
}
