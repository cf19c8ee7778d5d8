package command

import (
	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
)

func init() {
	core.RegisterCommand(&ClearCacheCommand{})
}

type ClearCacheCommand struct{}

func (c *ClearCacheCommand) Name() string { return "clear-cache" }
func (c *ClearCacheCommand) Description() string {
	return "Drop the archive cache after manual edits to vault files"
}
func (c *ClearCacheCommand) Group() string      { return "maintenance" }
func (c *ClearCacheCommand) Category() string   { return "Maintenance" }
func (c *ClearCacheCommand) RequireAdmin() bool { return true }

func (c *ClearCacheCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *ClearCacheCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}
	v.Deps.Archive.ClearCache()
	return core.RespondEphemeral(v.Session, v.Event, "Cache cleared; the next access re-reads the vault.")
}
