package engine

import (
	"context"
	"fmt"

	"github.com/doxguard/doxguard/automod/flagstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/reputation"
)

var allTiers = []reputation.Tier{reputation.TierWarning, reputation.TierSuspension, reputation.TierBan}

// Re-evaluates an author's reputation and applies exactly one tier action.
//
// The effective tier is the score tier raised to floor. Falling below the warning band clears the author's markers. Otherwise the tier notice is delivered only when the author has not already been notified for that band; markers for every band up to the effective tier are set, and markers above it are cleared so a later escalation notifies again.
func (eng *Engine) ApplyTier(ctx context.Context, communityID string, author modqueue.Identity, floor reputation.Tier) reputation.Tier {
	score := eng.Scorer.PerpetratorScore(ctx, author.ID)
	tier := reputation.MaxTier(reputation.TierFor(score), floor)
	key := flagstore.ActorKey(author.ID)
	logger := eng.Logger.With("author", author.ID, "score", score, "tier", tier.String())

	flags, err := eng.Flags.Get(ctx, key)
	if err != nil {
		logger.Error("failed to read tier markers", "err", err)
	}

	if tier == reputation.TierNone {
		if len(flags) > 0 {
			markers := []string{flagstore.FlagWarned}
			for _, t := range allTiers {
				markers = append(markers, flagstore.TierFlag(t.String()))
			}
			if err := eng.Flags.Remove(ctx, key, markers); err != nil {
				logger.Error("failed to clear tier markers", "err", err)
			}
			logger.Info("cleared tier markers")
		}
		return tier
	}

	marker := flagstore.TierFlag(tier.String())
	if flagstore.HasFlag(flags, marker) {
		logger.Debug("tier notice already delivered")
		return tier
	}

	card, note := eng.tierNotice(author, tier)
	eng.sendDirect(ctx, author.ID, "", card)
	eng.PostNote(ctx, communityID, note)
	tierActionCount.WithLabelValues(tier.String()).Inc()
	logger.Info("delivered tier notice")

	add := []string{flagstore.FlagWarned}
	var remove []string
	for _, t := range allTiers {
		if t <= tier {
			add = append(add, flagstore.TierFlag(t.String()))
		} else {
			remove = append(remove, flagstore.TierFlag(t.String()))
		}
	}
	if err := eng.Flags.Add(ctx, key, add); err != nil {
		logger.Error("failed to persist tier markers", "err", err)
	}
	if len(remove) > 0 {
		if err := eng.Flags.Remove(ctx, key, remove); err != nil {
			logger.Error("failed to clear higher tier markers", "err", err)
		}
	}
	return tier
}

func (eng *Engine) tierNotice(author modqueue.Identity, tier reputation.Tier) (*LogEntry, string) {
	var card *LogEntry
	var note string
	switch tier {
	case reputation.TierWarning:
		card = NewLogEntry("Official Warning", ColorYellow)
		card.AddField("User", mention(author), false)
		card.AddField("Action", "Warning Issued", true)
		card.AddField("Reason", "Multiple or severe doxxing violations", true)
		card.AddField("Notice", "Continued violations may result in suspension. Please review community guidelines.", false)
		note = fmt.Sprintf("User <@%s> was sent a warning.", author.ID)
	case reputation.TierSuspension:
		days := int(eng.Config.SuspensionDuration.Hours() / 24)
		card = NewLogEntry("Suspension Notice", ColorRed)
		card.AddField("User", mention(author), false)
		card.AddField("Action", "Suspension Issued", true)
		card.AddField("Reason", "Persistent doxxing violations", true)
		card.AddField("Note", fmt.Sprintf("This account has user privileges restricted for %d days. Future offenses may result in further account action.", days), false)
		note = fmt.Sprintf("User <@%s> was suspended for %d days.", author.ID, days)
	default:
		card = NewLogEntry("Account Banned Notice", ColorRed)
		card.AddField("User", mention(author), false)
		card.AddField("Action", "Ban Issued", true)
		card.AddField("Reason", "Persistent doxxing violations after suspension", true)
		card.AddField("Note", "This account has been banned from the platform.", false)
		note = fmt.Sprintf("User <@%s> was banned from the platform.", author.ID)
	}
	card.Footer = "Automated Moderation System"
	return card, note
}
