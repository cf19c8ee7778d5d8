package core

import "log"

// WithCommandLogger logs every slash invocation after it runs.
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				err := cmd.Run(ctx)
				if v, ok := ctx.(*SlashInteractionContext); ok {
					user := "unknown"
					if v.Event.Member != nil && v.Event.Member.User != nil {
						user = v.Event.Member.User.Username
					} else if v.Event.User != nil {
						user = v.Event.User.Username
					}
					if err != nil {
						log.Printf("[ERR] /%s by %s in guild %s failed: %v", cmd.Name(), user, v.Event.GuildID, err)
					} else {
						log.Printf("[INFO] /%s by %s in guild %s", cmd.Name(), user, v.Event.GuildID)
					}
				}
				return err
			},
		}
	}
}
