package vault

import (
	"context"
	"fmt"

	"vault-scribe/internal/guildconfig"
)

// BackfillSummary reports what a reconciliation run did.
type BackfillSummary struct {
	Seen     int
	Inserted int
	Skipped  int
}

func (s BackfillSummary) String() string {
	return fmt.Sprintf("seen %d, inserted %d, skipped %d duplicates", s.Seen, s.Inserted, s.Skipped)
}

// Reconciler merges historical messages into the archive without
// duplicating what realtime logging already captured. Membership is decided
// purely by anchor presence, never by position or count, so re-running a
// backfill over the same range is a no-op.
type Reconciler struct {
	Storage *Manager
}

// Reconcile takes an oldest-first batch of historical messages for one
// channel and appends the ones whose anchors are not yet present.
// Cancellation is checked between bucket groups, never mid-file-write, so a
// cancelled run leaves only fully appended records behind.
func (r *Reconciler) Reconcile(ctx context.Context, cfg guildconfig.GuildConfig, channelName string, msgs []Record) (BackfillSummary, error) {
	summary := BackfillSummary{Seen: len(msgs)}

	// Group by target bucket, preserving chronological order within each.
	groups := make(map[string][]Record)
	var order []string
	for _, msg := range msgs {
		bucket := r.Storage.BucketFor(cfg, channelName, msg.Timestamp)
		if _, ok := groups[bucket.RelPath]; !ok {
			order = append(order, bucket.RelPath)
		}
		groups[bucket.RelPath] = append(groups[bucket.RelPath], msg)
	}

	for _, relPath := range order {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		existing, err := r.Storage.AnchorsFor(relPath)
		if err != nil {
			return summary, fmt.Errorf("load anchors for %s: %w", relPath, err)
		}

		for _, msg := range groups[relPath] {
			if existing[msg.Anchor] {
				summary.Skipped++
				continue
			}
			if _, err := r.Storage.Append(cfg, channelName, msg); err != nil {
				return summary, fmt.Errorf("append %s: %w", msg.Anchor, err)
			}
			existing[msg.Anchor] = true
			summary.Inserted++
		}
	}

	return summary, nil
}
