package discord

import (
	"errors"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/vault"
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	cfg, err := b.deps.Guilds.GetOrCreate(m.GuildID)
	if err != nil {
		log.Printf("[ERR] Failed to load config for guild %s: %v", m.GuildID, err)
		return
	}
	if !cfg.ShouldLog(m.ChannelID) {
		return
	}
	rec := core.RecordFromMessage(m.Message)
	if _, err := b.deps.Archive.Append(cfg, core.ChannelName(s, m.ChannelID), rec); err != nil {
		log.Printf("[ERR] Failed to archive message %s: %v", m.ID, err)
	}
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.GuildID == "" {
		return
	}
	if m.Author != nil && m.Author.Bot {
		return
	}
	cfg, err := b.deps.Guilds.GetOrCreate(m.GuildID)
	if err != nil {
		log.Printf("[ERR] Failed to load config for guild %s: %v", m.GuildID, err)
		return
	}
	if !cfg.ShouldLog(m.ChannelID) {
		return
	}
	rec := core.RecordFromMessage(m.Message)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = messageTime(m.ID)
	}
	err = b.deps.Archive.Update(cfg, core.ChannelName(s, m.ChannelID), rec)
	if errors.Is(err, vault.ErrRecordNotFound) {
		log.Printf("[WARN] Edit to message %s predates logging, placeholder written", m.ID)
		return
	}
	if err != nil {
		log.Printf("[ERR] Failed to record edit of message %s: %v", m.ID, err)
	}
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.GuildID == "" {
		return
	}
	cfg, err := b.deps.Guilds.GetOrCreate(m.GuildID)
	if err != nil {
		log.Printf("[ERR] Failed to load config for guild %s: %v", m.GuildID, err)
		return
	}
	if !cfg.ShouldLog(m.ChannelID) {
		return
	}
	// Delete events carry only ids. The snowflake pins the record to the
	// bucket the original message landed in.
	rec := vault.Record{
		Anchor:    m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Timestamp: messageTime(m.ID),
	}
	err = b.deps.Archive.Remove(cfg, core.ChannelName(s, m.ChannelID), rec)
	if errors.Is(err, vault.ErrRecordNotFound) {
		log.Printf("[WARN] Deleted message %s was never logged, placeholder written", m.ID)
		return
	}
	if err != nil {
		log.Printf("[ERR] Failed to record deletion of message %s: %v", m.ID, err)
	}
}

func messageTime(id string) time.Time {
	ts, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
