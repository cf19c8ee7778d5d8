package core

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// WithPermissionCheck gates RequireAdmin commands. A member passes when they
// hold the guild's configured admin role, or failing that the Manage Server
// permission, guild ownership, or the developer id from process config.
func WithPermissionCheck() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				v, ok := ctx.(*SlashInteractionContext)
				if !ok || !cmd.RequireAdmin() {
					return cmd.Run(ctx)
				}
				if !IsPermitted(v) {
					return RespondEphemeral(v.Session, v.Event, "You do not have permission to use this command.")
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// IsPermitted implements the admin check for a slash invocation.
func IsPermitted(v *SlashInteractionContext) bool {
	member := v.Event.Member
	if member == nil || member.User == nil {
		return false
	}
	if v.Deps.Config != nil && v.Deps.Config.DeveloperID != "" && member.User.ID == v.Deps.Config.DeveloperID {
		return true
	}

	guildID := v.Event.GuildID
	cfg, err := v.Deps.Guilds.GetOrCreate(guildID)
	if err != nil {
		log.Printf("[ERR] Failed to load config for guild %s: %v", guildID, err)
		return false
	}
	if cfg.AdminRoleID != "" {
		for _, roleID := range member.Roles {
			if roleID == cfg.AdminRoleID {
				return true
			}
		}
	}

	guild, err := v.Session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = v.Session.Guild(guildID)
		if err != nil {
			return false
		}
	}
	if member.User.ID == guild.OwnerID {
		return true
	}

	for _, roleID := range member.Roles {
		role, _ := v.Session.State.Role(guildID, roleID)
		if role != nil && role.Permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0 {
			return true
		}
	}
	return false
}
