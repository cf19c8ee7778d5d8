package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/vault"
	"vault-scribe/pkg/retrylimit"
)

const (
	backfillPageSize     = 100
	backfillDefaultLimit = 200
	backfillMaxLimit     = 5000
)

func init() {
	core.RegisterCommand(&BackfillCommand{})
}

type BackfillCommand struct{}

func (c *BackfillCommand) Name() string { return "backfill" }
func (c *BackfillCommand) Description() string {
	return "Import a channel's message history into the archive"
}
func (c *BackfillCommand) Group() string      { return "export" }
func (c *BackfillCommand) Category() string   { return "Export" }
func (c *BackfillCommand) RequireAdmin() bool { return true }

func (c *BackfillCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "Channel to backfill",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: fmt.Sprintf("Messages to fetch, newest first (default %d, max %d)", backfillDefaultLimit, backfillMaxLimit),
			},
		},
	}
}

func (c *BackfillCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	opts := optionMap(v.Event.ApplicationCommandData().Options)
	channel := opts["channel"].ChannelValue(v.Session)
	if channel == nil {
		return core.RespondEphemeral(v.Session, v.Event, "Channel not found.")
	}
	limit := int(intOpt(opts, "limit", backfillDefaultLimit))
	if limit < 1 || limit > backfillMaxLimit {
		return core.RespondEphemeral(v.Session, v.Event,
			fmt.Sprintf("Limit must be between 1 and %d.", backfillMaxLimit))
	}

	cfg, err := v.Deps.Guilds.GetOrCreate(v.Event.GuildID)
	if err != nil {
		return err
	}
	if !cfg.ShouldLog(channel.ID) {
		return core.RespondEphemeral(v.Session, v.Event,
			"That channel is excluded from logging; adjust the config first.")
	}

	session := v.Session
	event := v.Event
	jobName := "backfill:" + channel.ID

	if v.Deps.Jobs.IsRunning(jobName) {
		return core.RespondEphemeral(v.Session, v.Event,
			"A backfill for that channel is already running.")
	}

	// The deferred response must exist before the job posts follow-ups.
	if err := core.DeferEphemeral(v.Session, v.Event); err != nil {
		return err
	}

	err = v.Deps.Jobs.StartAsync(jobName, func(jobCtx context.Context) error {
		msgs, err := fetchHistory(jobCtx, session, channel.ID, limit)
		if err != nil {
			core.FollowUp(session, event, fmt.Sprintf("Backfill failed while fetching history: %v", err))
			return err
		}

		summary, err := v.Deps.Backfill.Reconcile(jobCtx, cfg, channel.Name, msgs)
		if err != nil {
			core.FollowUp(session, event,
				fmt.Sprintf("Backfill stopped early (%v). So far: %s. Re-running is safe.", err, summary))
			return err
		}

		core.FollowUp(session, event,
			fmt.Sprintf("Backfill of <#%s> finished: %s.", channel.ID, summary))
		return nil
	})
	if err != nil {
		return core.FollowUp(v.Session, v.Event,
			"A backfill for that channel is already running.")
	}
	return nil
}

// fetchHistory pages a channel's history newest-first through the adaptive
// rate limiter, then returns the batch oldest-first as the reconciler
// expects. Bots and empty authors are kept: the archive mirrors the channel.
func fetchHistory(ctx context.Context, s *discordgo.Session, channelID string, limit int) ([]vault.Record, error) {
	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20)

	var collected []*discordgo.Message
	beforeID := ""
	for len(collected) < limit {
		pageSize := backfillPageSize
		if remaining := limit - len(collected); remaining < pageSize {
			pageSize = remaining
		}

		var page []*discordgo.Message
		err := retrylimit.WithRetryMax(ctx, func() error {
			var err error
			page, err = s.ChannelMessages(channelID, pageSize, beforeID, "", "")
			return err
		}, lim, 5)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		collected = append(collected, page...)
		beforeID = page[len(page)-1].ID
	}

	// Discord returns newest first; the reconciler wants oldest first.
	records := make([]vault.Record, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		records = append(records, core.RecordFromMessage(collected[i]))
	}
	return records, nil
}
