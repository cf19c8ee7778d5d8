package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/vault"
)

const searchPreviewLimit = 15

func init() {
	core.RegisterCommand(&ExportCommand{})
}

type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Description() string { return "List, search and download archive files" }
func (c *ExportCommand) Group() string       { return "export" }
func (c *ExportCommand) Category() string    { return "Export" }
func (c *ExportCommand) RequireAdmin() bool  { return true }

func (c *ExportCommand) SlashDefinition() *discordgo.ApplicationCommand {
	rangeOpts := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "from",
			Description: "Start date YYYY-MM-DD",
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "to",
			Description: "End date YYYY-MM-DD",
		},
	}

	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List archive files with stats",
				Options: append([]*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Limit to one channel",
					},
				}, rangeOpts...),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "search",
				Description: "Search archived messages",
				Options: append([]*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "keyword",
						Description: "Case-insensitive substring",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Limit to one channel",
					},
				}, rangeOpts...),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "channel",
				Description: "Download one channel's archive as a zip",
				Options: append([]*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Channel to export",
						Required:    true,
					},
				}, rangeOpts...),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "all",
				Description: "Download the whole guild archive as a zip",
			},
		},
	}
}

func (c *ExportCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	data := v.Event.ApplicationCommandData()
	if len(data.Options) == 0 {
		return core.RespondEphemeral(v.Session, v.Event, "Missing subcommand.")
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	query, err := c.buildQuery(v, opts)
	if err != nil {
		return core.RespondEphemeral(v.Session, v.Event, err.Error())
	}

	switch sub.Name {
	case "list":
		return c.runList(v, query)
	case "search":
		query.Keyword = stringOpt(opts, "keyword")
		return c.runSearch(v, query)
	case "channel":
		return c.runZip(v, query, query.Channel+"_export")
	case "all":
		return c.runZip(v, query, "guild_"+v.Event.GuildID+"_export")
	}
	return core.RespondEphemeral(v.Session, v.Event, "Unknown subcommand.")
}

func (c *ExportCommand) buildQuery(v *core.SlashInteractionContext, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (vault.Query, error) {
	query := vault.Query{GuildID: v.Event.GuildID}

	if opt, ok := opts["channel"]; ok {
		ch := opt.ChannelValue(v.Session)
		if ch != nil {
			query.Channel = ch.Name
		}
	}
	if from := stringOpt(opts, "from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return query, fmt.Errorf("`from` must be YYYY-MM-DD")
		}
		query.From = t
	}
	if to := stringOpt(opts, "to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return query, fmt.Errorf("`to` must be YYYY-MM-DD")
		}
		// Inclusive end of day.
		query.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return query, nil
}

func (c *ExportCommand) runList(v *core.SlashInteractionContext, query vault.Query) error {
	infos, err := v.Deps.Index.List(context.Background(), query)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return core.RespondEphemeral(v.Session, v.Event, "No files match the request.")
	}

	var b strings.Builder
	shown := infos
	if len(shown) > 25 {
		shown = shown[:25]
	}
	for _, info := range shown {
		fmt.Fprintf(&b, "- `%s` — %d records, %s, %s → %s\n",
			info.RelPath, info.Records, humanSize(info.Size),
			info.First.Format("2006-01-02"), info.Last.Format("2006-01-02"))
	}
	more := ""
	if len(infos) > len(shown) {
		more = " (truncated)"
	}
	return core.RespondEphemeral(v.Session, v.Event,
		fmt.Sprintf("Found %d files%s:\n%s", len(infos), more, b.String()))
}

func (c *ExportCommand) runSearch(v *core.SlashInteractionContext, query vault.Query) error {
	var b strings.Builder
	count := 0
	err := v.Deps.Index.Search(context.Background(), query, func(m vault.Match) bool {
		count++
		if count <= searchPreviewLimit {
			body := m.Record.Body
			if len(body) > 120 {
				body = body[:120] + "…"
			}
			body = strings.ReplaceAll(body, "\n", " ")
			fmt.Fprintf(&b, "- `%s` %s @%s: %s\n",
				m.RelPath, m.Record.Timestamp.Format("2006-01-02 15:04"), m.Record.Author, body)
		}
		return true
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return core.RespondEphemeral(v.Session, v.Event, "No matches found.")
	}
	more := ""
	if count > searchPreviewLimit {
		more = fmt.Sprintf(" (showing first %d)", searchPreviewLimit)
	}
	return core.RespondEphemeral(v.Session, v.Event,
		fmt.Sprintf("Found %d matches%s:\n%s", count, more, b.String()))
}

func (c *ExportCommand) runZip(v *core.SlashInteractionContext, query vault.Query, label string) error {
	if err := core.DeferEphemeral(v.Session, v.Event); err != nil {
		return err
	}

	infos, err := v.Deps.Index.List(context.Background(), query)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return core.FollowUp(v.Session, v.Event, "No files match the request.")
	}

	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.RelPath
	}

	var buf bytes.Buffer
	if err := v.Deps.Bundler.WriteZip(&buf, paths); err != nil {
		if errors.Is(err, vault.ErrExportTooLarge) {
			return core.FollowUp(v.Session, v.Event,
				"The export is too large. Narrow the request, e.g. with a date range.")
		}
		return err
	}

	return core.FollowUpFile(v.Session, v.Event,
		fmt.Sprintf("%d files, %s zipped.", len(paths), humanSize(int64(buf.Len()))),
		&discordgo.File{
			Name:        label + ".zip",
			ContentType: "application/zip",
			Reader:      &buf,
		})
}
