package core

import (
	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/config"
	"vault-scribe/internal/guildconfig"
	"vault-scribe/internal/vault"
	"vault-scribe/pkg/jobmgr"
)

// Deps bundles everything a command can reach: the guild config table and
// the archive engine. Commands receive validated, permission-checked
// invocations only; the engine never talks to the gateway itself.
type Deps struct {
	Config   *config.Config
	Guilds   *guildconfig.Store
	Archive  *vault.Manager
	Index    *vault.Index
	Bundler  *vault.Bundler
	Backfill *vault.Reconciler
	Jobs     *jobmgr.Manager
}

type Command interface {
	Name() string
	Description() string
	Group() string
	Category() string
	RequireAdmin() bool
	Run(ctx interface{}) error
}

// SlashProvider - how this command should be registered with Discord.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashInteractionContext is what the runtime hands a command when a slash
// interaction fires.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}
