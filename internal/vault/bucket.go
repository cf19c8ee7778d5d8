package vault

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"vault-scribe/internal/guildconfig"
	"vault-scribe/pkg/util"
)

// Bucket addresses the archive file a message belongs to.
type Bucket struct {
	RelPath string // relative to the vault root
	Heading string // human section label, the channel name
	Period  string // human period label written into the file preamble
}

// ResolveBucket maps a message to its target file. Pure: same inputs always
// yield the same path, no filesystem access. The timestamp is interpreted in
// the guild's configured UTC offset, so day and month boundaries fall where
// the guild's users expect them.
func ResolveBucket(cfg guildconfig.GuildConfig, channelName string, ts time.Time) (Bucket, error) {
	local := ts.In(cfg.Location())
	channel := util.SanitizeName(channelName)

	var rel, period string
	switch cfg.ExportMode {
	case guildconfig.ModeSingle:
		rel = channel + ".md"
		period = "all"

	case guildconfig.ModeMonthly:
		rel = renderTemplate(cfg.FilenameTemplate, channel, local, false)
		period = local.Format("2006-01")

	case guildconfig.ModeDaily:
		rel = renderTemplate(cfg.FilenameTemplate, channel, local, true)
		period = local.Format("2006-01-02")

	case guildconfig.ModeCustom:
		start, err := customWindowStart(cfg, local)
		if err != nil {
			return Bucket{}, err
		}
		rel = renderTemplate(cfg.FilenameTemplate, channel, start, true)
		rel = strings.TrimSuffix(rel, ".md") + fmt.Sprintf("_d%d.md", cfg.CustomPeriodDays)
		period = fmt.Sprintf("%s_d%d", start.Format("2006-01-02"), cfg.CustomPeriodDays)

	default:
		return Bucket{}, &ConfigError{Mode: string(cfg.ExportMode), Reason: "unrecognized export mode"}
	}

	return Bucket{
		RelPath: path.Join(cfg.GuildID, util.SanitizeName(cfg.VaultPath), rel),
		Heading: channelName,
		Period:  period,
	}, nil
}

// renderTemplate expands the filename template for one calendar bucket.
// Monthly buckets drop the {day} placeholder; the separator cleanup turns
// "2024-01-" into "2024-01" instead of leaving a dangling dash.
func renderTemplate(tpl, channel string, local time.Time, withDay bool) string {
	day := fmt.Sprintf("%02d", local.Day())
	if !withDay {
		day = ""
	}
	rendered := util.ExpandTpl(tpl, map[string]string{
		"channel": channel,
		"year":    fmt.Sprintf("%04d", local.Year()),
		"month":   fmt.Sprintf("%02d", int(local.Month())),
		"day":     day,
	})

	segments := strings.Split(rendered, "/")
	kept := segments[:0]
	for _, seg := range segments {
		seg = util.TrimSeparators(seg)
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	rendered = strings.Join(kept, "/")
	if rendered == "" {
		rendered = channel
	}
	if path.Ext(rendered) == "" {
		rendered += ".md"
	}
	return rendered
}

// customWindowStart finds the start of the N-day window covering local,
// aligned to the configured epoch.
func customWindowStart(cfg guildconfig.GuildConfig, local time.Time) (time.Time, error) {
	days := cfg.CustomPeriodDays
	if days < 1 {
		return time.Time{}, &ConfigError{
			Mode:   string(cfg.ExportMode),
			Reason: fmt.Sprintf("custom period must be at least 1 day, got %d", days),
		}
	}

	start, err := cfg.EpochTime()
	if err != nil {
		return time.Time{}, &ConfigError{Mode: string(cfg.ExportMode), Reason: err.Error()}
	}

	elapsed := int(math.Floor(local.Sub(start).Hours() / 24))
	window := floorDiv(elapsed, days) * days
	return start.AddDate(0, 0, window), nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
