package command

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
)

// slashContext asserts the runtime context for a slash command.
func slashContext(ctx interface{}) (*core.SlashInteractionContext, error) {
	v, ok := ctx.(*core.SlashInteractionContext)
	if !ok {
		return nil, fmt.Errorf("wrong context type %T", ctx)
	}
	return v, nil
}

// optionMap flattens interaction options (one level of subcommand nesting)
// into a name-keyed map.
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		out[opt.Name] = opt
	}
	return out
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int64) int64 {
	if opt, ok := opts[name]; ok {
		return opt.IntValue()
	}
	return fallback
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
