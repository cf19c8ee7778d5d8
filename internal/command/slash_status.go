package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/vault"
)

func init() {
	core.RegisterCommand(&StatusCommand{})
}

type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Archive stats for this guild" }
func (c *StatusCommand) Group() string       { return "maintenance" }
func (c *StatusCommand) Category() string    { return "Maintenance" }
func (c *StatusCommand) RequireAdmin() bool  { return true }

func (c *StatusCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *StatusCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	cfg, err := v.Deps.Guilds.GetOrCreate(v.Event.GuildID)
	if err != nil {
		return err
	}

	infos, err := v.Deps.Index.List(context.Background(), vault.Query{GuildID: v.Event.GuildID})
	if err != nil {
		return err
	}

	var totalSize int64
	var totalRecords int
	for _, info := range infos {
		totalSize += info.Size
		totalRecords += info.Records
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Vault path: `%s`\n", cfg.VaultPath)
	fmt.Fprintf(&b, "Export mode: `%s`\n", cfg.ExportMode)
	fmt.Fprintf(&b, "Files: %d\n", len(infos))
	fmt.Fprintf(&b, "Records: %d\n", totalRecords)
	fmt.Fprintf(&b, "Total size: %s\n", humanSize(totalSize))
	if jobs := v.Deps.Jobs.Running(); len(jobs) > 0 {
		fmt.Fprintf(&b, "Running jobs: %s\n", strings.Join(jobs, ", "))
	}
	return core.RespondEphemeral(v.Session, v.Event, b.String())
}
