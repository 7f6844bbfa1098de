package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/doxguard/doxguard/automod/cachestore"
	"github.com/doxguard/doxguard/automod/countstore"
	"github.com/doxguard/doxguard/automod/flagstore"
	"github.com/doxguard/doxguard/automod/incidentstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
	"github.com/doxguard/doxguard/automod/reputation"
	"github.com/doxguard/doxguard/automod/setstore"
)

const (
	// cachestore namespace holding classifier rationale, keyed by audit id
	rationaleCacheName = "rationale"

	autoRemoveCounter = "auto-remove"
	reportCounter     = "reports"
)

var ErrQuotaExceeded = errors.New("daily report quota exceeded")

type Config struct {
	// verdicts below this probability are ignored
	LowThreshold float64
	// verdicts above this probability are acted on without review
	HighThreshold float64
	// maximum automatic removals per day before falling back to the review queue; zero disables the limit
	AutoRemoveQuotaDay int
	// maximum human-filed reports per reporter per day; zero disables the limit
	ReportQuotaDay int
	// suspension length mentioned in notices
	SuspensionDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		LowThreshold:       0.5,
		HighThreshold:      0.84,
		AutoRemoveQuotaDay: 200,
		ReportQuotaDay:     20,
		SuspensionDuration: 3 * 24 * time.Hour,
	}
}

func (c Config) Validate() error {
	if c.LowThreshold < 0 || c.HighThreshold > 1 || c.LowThreshold > c.HighThreshold {
		return fmt.Errorf("invalid thresholds: low=%v high=%v", c.LowThreshold, c.HighThreshold)
	}
	return nil
}

// runtime for triaging classifier verdicts, executing review dispositions, and recording moderation actions.
//
// TODO: careful when initializing: several fields should not be nil, even though they are pointer or interface type.
type Engine struct {
	Logger     *slog.Logger
	Platform   Platform
	Oracle     oracle.Oracle
	Queue      modqueue.Queue
	Incidents  incidentstore.IncidentStore
	// durable rationale store backing details lookups; Cache only fronts it
	Rationales incidentstore.RationaleStore
	Scorer     *reputation.Scorer
	Flags      flagstore.FlagStore
	Counters   countstore.CountStore
	Cache      cachestore.CacheStore
	Sets       setstore.SetStore
	Notifiers  []Notifier
	Config     Config
}

func (eng *Engine) IsExempt(ctx context.Context, authorID string) bool {
	if eng.Sets == nil {
		return false
	}
	ok, err := eng.Sets.InSet(ctx, setstore.SetExemptAuthors, authorID)
	if err != nil {
		eng.Logger.Warn("exempt set lookup failed", "author", authorID, "err", err)
		return false
	}
	return ok
}

// Returns the classifier rationale stored under an audit id, if any. The cache is consulted first; the rationale store is authoritative.
func (eng *Engine) Details(ctx context.Context, auditID int64) (string, bool, error) {
	key := strconv.FormatInt(auditID, 10)
	if eng.Cache != nil {
		val, err := eng.Cache.Get(ctx, rationaleCacheName, key)
		if err != nil {
			eng.Logger.Warn("rationale cache lookup failed", "audit_id", auditID, "err", err)
		} else if val != "" {
			return val, true, nil
		}
	}
	if eng.Rationales == nil {
		return "", false, nil
	}
	val, ok, err := eng.Rationales.GetRationale(ctx, auditID)
	if err != nil || !ok {
		return "", false, err
	}
	if eng.Cache != nil {
		if err := eng.Cache.Set(ctx, rationaleCacheName, key, val); err != nil {
			eng.Logger.Warn("failed to cache rationale", "audit_id", auditID, "err", err)
		}
	}
	return val, true, nil
}

func (eng *Engine) storeRationale(ctx context.Context, auditID int64, rationale string) {
	if rationale == "" {
		rationale = "No detailed reasoning provided"
	}
	if eng.Rationales != nil {
		if err := eng.Rationales.SaveRationale(ctx, auditID, rationale); err != nil {
			eng.Logger.Error("failed to store rationale", "audit_id", auditID, "err", err)
		}
	}
	if eng.Cache != nil {
		if err := eng.Cache.Set(ctx, rationaleCacheName, strconv.FormatInt(auditID, 10), rationale); err != nil {
			eng.Logger.Warn("failed to cache rationale", "audit_id", auditID, "err", err)
		}
	}
}

// Posts to the platform moderation log and mirrors to every notifier. Failures are logged, never returned.
func (eng *Engine) postModLog(ctx context.Context, communityID string, entry *LogEntry) {
	if err := eng.Platform.PostModLog(ctx, communityID, entry); err != nil {
		eng.Logger.Error("failed to post moderation log entry", "community", communityID, "title", entry.Title, "err", err)
		remediationFailureCount.WithLabelValues("modlog").Inc()
	}
	for _, n := range eng.Notifiers {
		if err := n.SendLogEntry(ctx, communityID, entry); err != nil {
			eng.Logger.Error("failed to deliver notification", "title", entry.Title, "err", err)
		}
	}
}

// Posts a one-line note to the moderation log.
func (eng *Engine) PostNote(ctx context.Context, communityID, text string) {
	eng.postModLog(ctx, communityID, NewLogEntry(text, ColorGrey))
}

func (eng *Engine) sendDirect(ctx context.Context, userID, text string, entry *LogEntry) bool {
	if err := eng.Platform.SendDirect(ctx, userID, text, entry); err != nil {
		eng.Logger.Warn("failed to send direct message", "user", userID, "err", err)
		remediationFailureCount.WithLabelValues("direct").Inc()
		return false
	}
	return true
}

// Removes content from the platform. Returns a human-readable status line for the moderation log.
func (eng *Engine) removeContent(ctx context.Context, ref modqueue.ContentRef) (string, bool) {
	err := eng.Platform.DeleteMessage(ctx, ref)
	switch {
	case err == nil:
		return "Message deleted", true
	case errors.Is(err, ErrNotFound):
		eng.Logger.Info("content already deleted", "channel", ref.ChannelID, "message", ref.MessageID)
		remediationFailureCount.WithLabelValues("delete").Inc()
		return "Note: message was already deleted", false
	case errors.Is(err, ErrForbidden):
		eng.Logger.Error("not permitted to delete content", "channel", ref.ChannelID, "message", ref.MessageID)
		remediationFailureCount.WithLabelValues("delete").Inc()
		return "Permission error: cannot delete messages, please check bot permissions", false
	default:
		eng.Logger.Error("failed to delete content", "channel", ref.ChannelID, "message", ref.MessageID, "err", err)
		remediationFailureCount.WithLabelValues("delete").Inc()
		return fmt.Sprintf("Error: tried to but failed to delete message: %s", err), false
	}
}

// Records a confirmed incident against the author.
func (eng *Engine) recordPerpetrator(ctx context.Context, author modqueue.Identity, victimName string, severity int, now time.Time) bool {
	victim := victimName
	if incidentstore.IsPlaceholderName(victim) {
		victim = incidentstore.UnknownVictim
	}
	err := eng.Incidents.AddIncident(ctx, incidentstore.Incident{
		ActorID:    author.ID,
		ActorName:  author.Name,
		Timestamp:  now,
		VictimName: victim,
		Severity:   severity,
	})
	if err != nil {
		eng.Logger.Error("failed to record perpetrator incident", "actor", author.ID, "err", err)
		remediationFailureCount.WithLabelValues("incident").Inc()
		return false
	}
	return true
}

// Records that a named person was targeted. Absent or placeholder names are skipped.
func (eng *Engine) recordVictimMention(ctx context.Context, author modqueue.Identity, victimName string, now time.Time) bool {
	if incidentstore.IsPlaceholderName(victimName) {
		return false
	}
	err := eng.Incidents.AddVictimMention(ctx, incidentstore.VictimMention{
		VictimName: victimName,
		Timestamp:  now,
		ActorID:    author.ID,
		ActorName:  author.Name,
	})
	if err != nil {
		eng.Logger.Error("failed to record victim mention", "victim", victimName, "err", err)
		remediationFailureCount.WithLabelValues("victim").Inc()
		return false
	}
	return true
}

func (eng *Engine) QueueDepth(ctx context.Context) int {
	n, err := eng.Queue.Len(ctx)
	if err != nil {
		eng.Logger.Error("failed to read review queue depth", "err", err)
		return 0
	}
	queueDepthGauge.Set(float64(n))
	return n
}

func mention(id modqueue.Identity) string {
	return fmt.Sprintf("<@%s> (`%s`, ID: `%s`)", id.ID, id.Name, id.ID)
}

func detailsHint(auditID int64) string {
	return fmt.Sprintf("To view the details for this decision, DM the bot `-d %d`", auditID)
}
