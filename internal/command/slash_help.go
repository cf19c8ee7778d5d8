package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/config"
	"vault-scribe/internal/core"
)

func init() {
	core.RegisterCommand(&HelpCommand{})
}

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List available commands" }
func (c *HelpCommand) Group() string       { return "core" }
func (c *HelpCommand) Category() string    { return "Information" }
func (c *HelpCommand) RequireAdmin() bool  { return false }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	byCategory := map[string][]core.Command{}
	for _, cmd := range core.AllCommands() {
		byCategory[cmd.Category()] = append(byCategory[cmd.Category()], cmd)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	config.SortCategories(categories)

	var b strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&b, "**%s**\n", cat)
		for _, cmd := range byCategory[cat] {
			marker := ""
			if cmd.RequireAdmin() {
				marker = " (admin)"
			}
			fmt.Fprintf(&b, "- `/%s` — %s%s\n", cmd.Name(), cmd.Description(), marker)
		}
	}
	return core.RespondEphemeral(v.Session, v.Event, b.String())
}
