package config

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	DeveloperID  string `env:"DEVELOPER_ID"`

	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	ConfigPath  string `env:"CONFIG_PATH" envDefault:"data/guilds.json"`
	VaultRoot   string `env:"VAULT_ROOT" envDefault:"data/vault"`
	ZipMaxBytes int64  `env:"ZIP_MAX_BYTES" envDefault:"26214400"` // 25 MiB, Discord upload ceiling

	WatchVault bool `env:"WATCH_VAULT" envDefault:"true"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal("Failed to parse environment:", err)
	}
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}
	return cfg
}
