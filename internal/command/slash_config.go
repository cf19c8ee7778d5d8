package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"vault-scribe/internal/core"
	"vault-scribe/internal/guildconfig"
)

func init() {
	core.RegisterCommand(&ConfigCommand{})
}

type ConfigCommand struct{}

func (c *ConfigCommand) Name() string        { return "config" }
func (c *ConfigCommand) Description() string { return "Show or change archiving settings" }
func (c *ConfigCommand) Group() string       { return "" } // never disableable
func (c *ConfigCommand) Category() string    { return "Configuration" }
func (c *ConfigCommand) RequireAdmin() bool  { return true }

func (c *ConfigCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show the current configuration",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set-mode",
				Description: "Set the export mode",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "mode",
						Description: "single, monthly, daily or custom",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "single", Value: "single"},
							{Name: "monthly", Value: "monthly"},
							{Name: "daily", Value: "daily"},
							{Name: "custom", Value: "custom"},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "custom-days",
						Description: "Window size in days, custom mode only",
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "custom-epoch",
						Description: "Window alignment date YYYY-MM-DD, custom mode only",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set-timezone",
				Description: "Set the guild's UTC offset used for bucket boundaries",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "offset-minutes",
						Description: "Minutes east of UTC, e.g. 120 for +02:00",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set-vault-path",
				Description: "Set the vault subdirectory for this guild",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "path",
						Description: "Subdirectory name",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "include-channels",
				Description: "Log only these channels (empty clears the list)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "channels",
						Description: "Channel mentions or ids, space separated",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "exclude-channels",
				Description: "Never log these channels (empty clears the list)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "channels",
						Description: "Channel mentions or ids, space separated",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set-role",
				Description: "Set the minimum role for privileged commands",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "Admin role",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disable-group",
				Description: "Switch off a command group for this server",
				Options:     []*discordgo.ApplicationCommandOption{groupOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "enable-group",
				Description: "Switch a command group back on",
				Options:     []*discordgo.ApplicationCommandOption{groupOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set-template",
				Description: "Set the filename template",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "template",
						Description: "Placeholders: {channel} {year} {month} {day}",
						Required:    true,
					},
				},
			},
		},
	}
}

func (c *ConfigCommand) Run(ctx interface{}) error {
	v, err := slashContext(ctx)
	if err != nil {
		return err
	}

	data := v.Event.ApplicationCommandData()
	if len(data.Options) == 0 {
		return core.RespondEphemeral(v.Session, v.Event, "Missing subcommand.")
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)
	guildID := v.Event.GuildID

	switch sub.Name {
	case "show":
		cfg, err := v.Deps.Guilds.GetOrCreate(guildID)
		if err != nil {
			return err
		}
		return core.RespondEphemeral(v.Session, v.Event, formatConfig(cfg))

	case "set-mode":
		mode := guildconfig.ExportMode(stringOpt(opts, "mode"))
		days := intOpt(opts, "custom-days", 0)
		epoch := stringOpt(opts, "custom-epoch")
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.ExportMode = mode
			if days > 0 {
				cfg.CustomPeriodDays = int(days)
			}
			if epoch != "" {
				cfg.CustomEpoch = epoch
			}
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Export mode set to `%s`.", mode))

	case "set-timezone":
		offset := intOpt(opts, "offset-minutes", 0)
		cfg, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.UTCOffsetMinutes = int(offset)
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Timezone set to %s.", cfg.Location()))

	case "set-vault-path":
		path := stringOpt(opts, "path")
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.VaultPath = path
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Vault path set to `%s`.", path))

	case "include-channels":
		ids := parseChannelIDs(stringOpt(opts, "channels"))
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.IncludeChannels = ids
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Include list updated (%d channels).", len(ids)))

	case "exclude-channels":
		ids := parseChannelIDs(stringOpt(opts, "channels"))
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.ExcludeChannels = ids
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Exclude list updated (%d channels).", len(ids)))

	case "set-role":
		role := opts["role"].RoleValue(v.Session, guildID)
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.AdminRoleID = role.ID
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Admin role set to %s.", role.Name))

	case "disable-group":
		group := stringOpt(opts, "group")
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			if !cfg.IsGroupDisabled(group) {
				cfg.DisabledGroups = append(cfg.DisabledGroups, group)
			}
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Command group `%s` disabled.", group))

	case "enable-group":
		group := stringOpt(opts, "group")
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			kept := cfg.DisabledGroups[:0]
			for _, g := range cfg.DisabledGroups {
				if g != group {
					kept = append(kept, g)
				}
			}
			cfg.DisabledGroups = kept
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Command group `%s` enabled.", group))

	case "set-template":
		template := stringOpt(opts, "template")
		_, err := v.Deps.Guilds.Update(guildID, func(cfg *guildconfig.GuildConfig) {
			cfg.FilenameTemplate = template
		})
		if err != nil {
			return core.RespondEphemeral(v.Session, v.Event, fmt.Sprintf("Rejected: %v", err))
		}
		return core.RespondEphemeral(v.Session, v.Event, "Filename template updated.")
	}

	return core.RespondEphemeral(v.Session, v.Event, "Unknown subcommand.")
}

// groupOption lists the disableable command groups. The config command's own
// group is empty and stays out of the choices on purpose.
func groupOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "group",
		Description: "Command group",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "core", Value: "core"},
			{Name: "export", Value: "export"},
			{Name: "maintenance", Value: "maintenance"},
		},
	}
}

func formatConfig(cfg guildconfig.GuildConfig) string {
	var b strings.Builder
	b.WriteString("**Current configuration**\n")
	fmt.Fprintf(&b, "- `vault_path`: %s\n", cfg.VaultPath)
	fmt.Fprintf(&b, "- `export_mode`: %s\n", cfg.ExportMode)
	fmt.Fprintf(&b, "- `timezone`: %s\n", cfg.Location())
	fmt.Fprintf(&b, "- `include_channels`: %s\n", channelList(cfg.IncludeChannels))
	fmt.Fprintf(&b, "- `exclude_channels`: %s\n", channelList(cfg.ExcludeChannels))
	fmt.Fprintf(&b, "- `admin_role`: %s\n", orNone(cfg.AdminRoleID))
	fmt.Fprintf(&b, "- `filename_template`: %s\n", cfg.FilenameTemplate)
	if len(cfg.DisabledGroups) > 0 {
		fmt.Fprintf(&b, "- `disabled_groups`: %s\n", strings.Join(cfg.DisabledGroups, " "))
	}
	if cfg.ExportMode == guildconfig.ModeCustom {
		fmt.Fprintf(&b, "- `custom_period_days`: %d\n", cfg.CustomPeriodDays)
		fmt.Fprintf(&b, "- `custom_epoch`: %s\n", cfg.CustomEpoch)
	}
	return b.String()
}

func channelList(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<#" + id + ">"
	}
	return strings.Join(mentions, " ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// parseChannelIDs accepts raw ids and <#id> mentions, space separated.
func parseChannelIDs(raw string) []string {
	var ids []string
	for _, chunk := range strings.Fields(raw) {
		chunk = strings.TrimPrefix(chunk, "<#")
		chunk = strings.TrimSuffix(chunk, ">")
		if chunk == "" {
			continue
		}
		digits := true
		for _, r := range chunk {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			ids = append(ids, chunk)
		}
	}
	return ids
}
