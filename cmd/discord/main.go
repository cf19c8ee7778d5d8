// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "vault-scribe/internal/command"

	"vault-scribe/internal/config"
	"vault-scribe/internal/core"
	"vault-scribe/internal/discord"
	"vault-scribe/internal/guildconfig"
	"vault-scribe/internal/vault"
	v "vault-scribe/internal/version"
	"vault-scribe/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.New()

	guilds, err := guildconfig.NewStore(cfg.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	defer guilds.Close()

	archive, err := vault.NewManager(cfg.VaultRoot)
	if err != nil {
		log.Fatal(err)
	}

	deps := &core.Deps{
		Config:   cfg,
		Guilds:   guilds,
		Archive:  archive,
		Index:    &vault.Index{Root: cfg.VaultRoot},
		Bundler:  &vault.Bundler{Root: cfg.VaultRoot, MaxBytes: cfg.ZipMaxBytes},
		Backfill: &vault.Reconciler{Storage: archive},
		Jobs:     jobmgr.NewManager(func(msg string) { log.Println("[JOB]", msg) }),
	}

	core.ApplyMiddlewares(
		core.WithGuildOnly(),
		core.WithGroupAccessCheck(),
		core.WithPermissionCheck(),
		core.WithCommandLogger(),
	)

	if cfg.WatchVault {
		watcher, err := vault.NewWatcher(archive)
		if err != nil {
			log.Printf("[WARN] Vault watcher disabled: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := discord.StartBot(ctx, cfg.DiscordToken, deps); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	}

	log.Println("[DONE] Shutdown complete")
}
