package core

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/vault"
)

// RecordFromMessage converts a gateway message into an archive record. The
// anchor is the platform message id itself: globally unique without any
// coordination on our side.
func RecordFromMessage(msg *discordgo.Message) vault.Record {
	rec := vault.Record{
		Anchor:    msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Timestamp: msg.Timestamp.UTC(),
		Body:      msg.Content,
	}
	if msg.Author != nil {
		rec.Author = msg.Author.Username
	}
	for _, a := range msg.Attachments {
		rec.Attachments = append(rec.Attachments, vault.Attachment{URL: a.URL, Name: a.Filename})
	}
	return rec
}

// ChannelName resolves a channel's display name, falling back to the id when
// neither state nor the API knows it (e.g. an already-deleted channel).
func ChannelName(s *discordgo.Session, channelID string) string {
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			log.Printf("[WARN] Failed to resolve channel %s: %v", channelID, err)
			return channelID
		}
	}
	if channel.Name == "" {
		return channelID
	}
	return channel.Name
}
