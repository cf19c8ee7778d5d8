package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// cliConfig is the optional TOML config for offline vault work. Every field
// can be overridden by a flag; a missing file just means defaults.
type cliConfig struct {
	VaultRoot   string `toml:"vault_root"`
	ZipMaxBytes int64  `toml:"zip_max_bytes"`
}

const defaultConfigPath = "vault-scribe.toml"

func readConfig(path string) (cliConfig, error) {
	cfg := cliConfig{
		VaultRoot: "data/vault",
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
