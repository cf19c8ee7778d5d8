package command

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/vault"
)

func init() {
	core.RegisterCommand(&PurgeCommand{})
}

// PurgeCommand irreversibly deletes a guild's archive tree. It is two-step:
// invoked without a token it issues one, invoked with the token it deletes.
type PurgeCommand struct{}

func (c *PurgeCommand) Name() string        { return "purge" }
func (c *PurgeCommand) Description() string { return "Irreversibly delete this guild's archive" }
func (c *PurgeCommand) Group() string       { return "maintenance" }
func (c *PurgeCommand) Category() string    { return "Maintenance" }
func (c *PurgeCommand) RequireAdmin() bool  { return true }

func (c *PurgeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "confirm",
				Description: "Confirmation token from the previous /purge call",
			},
		},
	}
}

func (c *PurgeCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	opts := optionMap(v.Event.ApplicationCommandData().Options)
	token := stringOpt(opts, "confirm")
	guildID := v.Event.GuildID

	if token == "" {
		issued := v.Deps.Archive.RequestPurge(guildID)
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf(
			"This deletes the **entire** archive for this guild and cannot be undone.\n"+
				"To confirm, run `/purge confirm:%s` within two minutes.", issued))
	}

	if err := v.Deps.Archive.Purge(guildID, token); err != nil {
		if errors.Is(err, vault.ErrBadConfirmToken) {
			return core.RespondEphemeral(v.Session, v.Event,
				"That confirmation token is invalid or expired. Run `/purge` again for a fresh one.")
		}
		return err
	}

	if err := v.Deps.Guilds.Delete(guildID); err != nil {
		return err
	}
	return core.RespondEphemeral(v.Session, v.Event, "Archive purged. Settings reset to defaults.")
}
