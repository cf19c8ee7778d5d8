package core

import (
	"fmt"
	"log"
)

// WithGroupAccessCheck blocks commands whose group a guild has switched off
// via /config disable-group. Commands with an empty group are always
// available, so the config command itself can never be locked out.
func WithGroupAccessCheck() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				v, ok := ctx.(*SlashInteractionContext)
				if !ok || !GroupDisabled(v, cmd) {
					return cmd.Run(ctx)
				}
				return RespondEphemeral(v.Session, v.Event,
					fmt.Sprintf("The `%s` command group is disabled on this server. An admin can re-enable it with `/config enable-group`.", cmd.Group()))
			},
		}
	}
}

// GroupDisabled reports whether the guild behind a slash invocation has
// disabled the command's group. Load failures fail open.
func GroupDisabled(v *SlashInteractionContext, cmd Command) bool {
	if cmd.Group() == "" {
		return false
	}
	cfg, err := v.Deps.Guilds.GetOrCreate(v.Event.GuildID)
	if err != nil {
		log.Printf("[ERR] Failed to load config for guild %s: %v", v.Event.GuildID, err)
		return false
	}
	return cfg.IsGroupDisabled(cmd.Group())
}
