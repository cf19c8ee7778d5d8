// cmd/cli/main.go
//
// Offline companion to the bot: lists, searches and exports an archive vault
// directly from disk, no Discord session required.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vault-scribe/internal/vault"
	v "vault-scribe/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openIndex(cmd *cobra.Command) (*vault.Index, cliConfig, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := readConfig(cfgPath)
	if err != nil {
		return nil, cfg, fmt.Errorf("reading config: %w", err)
	}
	if root, _ := cmd.Flags().GetString("vault"); root != "" {
		cfg.VaultRoot = root
	}
	if _, err := os.Stat(cfg.VaultRoot); err != nil {
		return nil, cfg, fmt.Errorf("vault root %s: %w", cfg.VaultRoot, err)
	}
	return &vault.Index{Root: cfg.VaultRoot}, cfg, nil
}

func buildQuery(cmd *cobra.Command) (vault.Query, error) {
	q := vault.Query{}
	q.GuildID, _ = cmd.Flags().GetString("guild")
	q.Channel, _ = cmd.Flags().GetString("channel")

	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, fmt.Errorf("bad --from date %q, want YYYY-MM-DD", s)
		}
		q.From = t
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, fmt.Errorf("bad --to date %q, want YYYY-MM-DD", s)
		}
		q.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return q, nil
}

var rootCmd = &cobra.Command{
	Use:     "vault-scribe",
	Short:   "Offline archive vault tool",
	Version: v.Version,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, _, err := openIndex(cmd)
		if err != nil {
			return err
		}
		q, err := buildQuery(cmd)
		if err != nil {
			return err
		}

		files, err := ix.List(context.Background(), q)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No archive files found.")
			return nil
		}

		for _, f := range files {
			span := ""
			if !f.First.IsZero() {
				span = fmt.Sprintf("  %s .. %s",
					f.First.Format("2006-01-02"),
					f.Last.Format("2006-01-02"))
			}
			fmt.Printf("%6d rec  %8d B  %s%s\n", f.Records, f.Size, f.RelPath, span)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search KEYWORD",
	Short: "Search message bodies and authors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, _, err := openIndex(cmd)
		if err != nil {
			return err
		}
		q, err := buildQuery(cmd)
		if err != nil {
			return err
		}
		q.Keyword = args[0]
		limit, _ := cmd.Flags().GetInt("limit")

		shown := 0
		err = ix.Search(context.Background(), q, func(m vault.Match) bool {
			body := m.Record.Body
			if len(body) > 120 {
				body = body[:120] + "..."
			}
			fmt.Printf("%s  %s  @%s\n  %s\n",
				m.Record.Timestamp.Format("2006-01-02 15:04"),
				m.RelPath, m.Record.Author, body)
			shown++
			return limit <= 0 || shown < limit
		})
		if err != nil {
			return err
		}
		if shown == 0 {
			fmt.Println("No matches.")
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export OUTPUT.zip",
	Short: "Export matching files as a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, cfg, err := openIndex(cmd)
		if err != nil {
			return err
		}
		q, err := buildQuery(cmd)
		if err != nil {
			return err
		}

		files, err := ix.List(context.Background(), q)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("nothing to export")
		}
		rels := make([]string, len(files))
		for i, f := range files {
			rels[i] = f.RelPath
		}

		out, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer out.Close()

		unlimited, _ := cmd.Flags().GetBool("no-limit")
		bundler := &vault.Bundler{Root: cfg.VaultRoot, MaxBytes: cfg.ZipMaxBytes}
		if unlimited {
			bundler.MaxBytes = 0
		}
		if err := bundler.WriteZip(out, rels); err != nil {
			os.Remove(args[0])
			return err
		}

		fmt.Printf("Exported %d file(s) to %s\n", len(rels), args[0])
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge GUILD_ID",
	Short: "Delete a guild's entire archive tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := openIndex(cmd)
		if err != nil {
			return err
		}
		guildID := args[0]

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Printf("This permanently deletes every archive file for guild %s.\n", guildID)
			fmt.Println("Re-run with --yes to confirm.")
			return nil
		}

		mgr, err := vault.NewManager(cfg.VaultRoot)
		if err != nil {
			return err
		}
		token := mgr.RequestPurge(guildID)
		if err := mgr.Purge(guildID, token); err != nil {
			return err
		}
		fmt.Printf("Purged guild %s\n", guildID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "Path to TOML config file")
	rootCmd.PersistentFlags().String("vault", "", "Vault root directory (overrides config)")
	rootCmd.PersistentFlags().String("guild", "", "Restrict to one guild id")
	rootCmd.PersistentFlags().String("channel", "", "Restrict to one channel name")
	rootCmd.PersistentFlags().String("from", "", "Lower date bound (YYYY-MM-DD)")
	rootCmd.PersistentFlags().String("to", "", "Upper date bound (YYYY-MM-DD)")

	searchCmd.Flags().IntP("limit", "n", 50, "Maximum number of matches to show")
	exportCmd.Flags().Bool("no-limit", false, "Ignore the zip size ceiling")
	purgeCmd.Flags().Bool("yes", false, "Confirm deletion")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(purgeCmd)
}
