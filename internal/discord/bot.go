package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
)

// Bot owns the gateway session and routes events into the archive engine.
type Bot struct {
	dg   *discordgo.Session
	deps *core.Deps
}

// StartBot connects to Discord and blocks until ctx is done.
func StartBot(ctx context.Context, token string, deps *core.Deps) error {
	b := &Bot{deps: deps}
	return b.run(ctx, token)
}

func (b *Bot) run(ctx context.Context, token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onMessageUpdate)
	dg.AddHandler(b.onMessageDelete)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	b.deps.Jobs.StopAll()
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s", s.State.User.String())
	b.registerCommands(s)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if _, err := b.deps.Guilds.GetOrCreate(g.ID); err != nil {
		log.Printf("[ERR] Failed to initialize config for guild %s: %v", g.ID, err)
	}
}

func (b *Bot) registerCommands(s *discordgo.Session) {
	var defs []*discordgo.ApplicationCommand
	for _, cmd := range core.AllCommands() {
		if sp, ok := cmd.(core.SlashProvider); ok {
			if def := sp.SlashDefinition(); def != nil {
				defs = append(defs, def)
			}
		}
	}
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", defs); err != nil {
		log.Printf("[ERR] Failed to register commands: %v", err)
		return
	}
	log.Printf("[DONE] Registered %d slash commands", len(defs))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	cmd, ok := core.GetCommand(name)
	if !ok {
		log.Printf("[WARN] Unknown command: %s", name)
		return
	}
	go func() {
		err := cmd.Run(&core.SlashInteractionContext{
			Session: s,
			Event:   i,
			Deps:    b.deps,
		})
		if err != nil {
			log.Printf("[ERR] Command /%s: %v", name, err)
		}
	}()
}
