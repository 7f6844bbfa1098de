package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/doxguard/doxguard/automod/countstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
	"github.com/doxguard/doxguard/automod/reputation"
)

type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeExempt  Outcome = "exempt"
	OutcomeQueued  Outcome = "queued"
	OutcomeRemoved Outcome = "removed"
)

const channelRemovalNotice = "🛡️ A post was automatically removed for containing personally identifiable information. Please do not post other people's personally identifiable information on our platform."

// Classifies a monitored channel message and triages the verdict. Exempt authors are never sent to the classifier, and classifier failures count as "not flagged".
func (eng *Engine) ProcessMessage(ctx context.Context, msg *Message) (Outcome, error) {
	if eng.IsExempt(ctx, msg.Ref.AuthorID) {
		verdictOutcomeCount.WithLabelValues(string(OutcomeExempt)).Inc()
		return OutcomeExempt, nil
	}
	logger := eng.Logger.With("channel", msg.Ref.ChannelID, "message", msg.Ref.MessageID)
	v := oracle.ClassifyOrIgnore(ctx, eng.Oracle, logger, msg.Ref.AuthorName, msg.Content)
	return eng.ProcessVerdict(ctx, msg, v)
}

// Routes a classifier verdict: ignore it, act on it immediately, or queue it for human review.
func (eng *Engine) ProcessVerdict(ctx context.Context, msg *Message, v *oracle.Verdict) (outcome Outcome, err error) {
	// similar to an HTTP server, we want to recover any panics from triage
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("triage execution exception", "err", r, "channel", msg.Ref.ChannelID, "message", msg.Ref.MessageID)
			err = fmt.Errorf("triage panic: %v", r)
		}
	}()

	ctx, span := otel.Tracer("doxguard").Start(ctx, "ProcessVerdict")
	defer span.End()
	start := time.Now()
	defer func() {
		verdictProcessDuration.Observe(time.Since(start).Seconds())
		verdictOutcomeCount.WithLabelValues(string(outcome)).Inc()
		span.SetAttributes(attribute.String("outcome", string(outcome)))
	}()

	if v == nil || !v.IsFlagged || v.Probability < eng.Config.LowThreshold {
		return OutcomeIgnored, nil
	}

	logger := eng.Logger.With("channel", msg.Ref.ChannelID, "message", msg.Ref.MessageID, "author", msg.Ref.AuthorID)
	span.SetAttributes(attribute.Float64("probability", v.Probability), attribute.Int("risk", v.RiskLevel.Weight()))

	// the sequence number doubles as the audit id moderators use with the details command
	seq, err := eng.Queue.NextSequence(ctx)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("allocating audit id: %w", err)
	}
	eng.storeRationale(ctx, seq, v.Rationale)

	if v.Probability > eng.Config.HighThreshold {
		if eng.autoRemoveAllowed(ctx) {
			logger.Info("removing content automatically", "probability", v.Probability, "audit_id", seq)
			eng.removeImmediately(ctx, msg, v, seq)
			return OutcomeRemoved, nil
		}
		logger.Warn("automatic removal quota exhausted, queueing for review", "quota", eng.Config.AutoRemoveQuotaDay)
	}

	victimScore := eng.Scorer.VictimScore(ctx, v.TargetName)
	severity := modqueue.Combine(victimScore, float64(v.RiskLevel.Weight()))
	rec := &modqueue.ReportRecord{
		Source:           modqueue.SourceOracle,
		Content:          msg.Ref,
		Reason:           modqueue.ReasonDoxxing,
		VictimNameClaim:  v.TargetName,
		ClaimedRiskLevel: v.RiskLevel.Weight(),
		Snapshot:         msg.Content,
		InfoTypes:        v.InfoTypes,
		AuditID:          seq,
		CreatedAt:        time.Now(),
	}
	if err := eng.Queue.Push(ctx, &modqueue.Entry{Severity: severity, Sequence: seq, Report: rec}); err != nil {
		return OutcomeIgnored, fmt.Errorf("enqueueing report: %w", err)
	}
	reportsFiledCount.WithLabelValues(string(modqueue.SourceOracle)).Inc()
	logger.Info("queued report for review", "severity", severity, "audit_id", seq)

	entry := NewLogEntry(fmt.Sprintf("Added by Bot to Review Queue: %s Doxxing Risk, medium confidence", v.RiskLevel), RiskColor(v.RiskLevel.Weight()))
	entry.AddField("Content of Reported Message", fmt.Sprintf("```%s```", Truncate(msg.Content, 1000)), false)
	entry.AddField("Author of Reported Message", mention(msg.Ref.Author()), true)
	entry.AddField("Filed By (Reporter)", "MODERATOR BOT", true)
	entry.AddField("Victim Name", victimLabel(v.TargetName), false)
	entry.AddField("Doxxing Information Types Reported", infoTypesLabel(v.InfoTypes), false)
	if msg.Ref.Link != "" {
		entry.AddField("Direct Link to Reported Message", msg.Ref.Link, false)
	}
	entry.AddField("Audit ID", fmt.Sprint(seq), true)
	entry.Footer = detailsHint(seq)
	eng.postModLog(ctx, msg.Ref.CommunityID, entry)
	eng.QueueDepth(ctx)
	return OutcomeQueued, nil
}

// Checks and consumes the daily automatic removal quota.
func (eng *Engine) autoRemoveAllowed(ctx context.Context) bool {
	if eng.Config.AutoRemoveQuotaDay <= 0 {
		return true
	}
	n, err := eng.Counters.GetCount(ctx, autoRemoveCounter, "all", countstore.PeriodDay)
	if err != nil {
		eng.Logger.Error("failed to read automatic removal counter", "err", err)
		return true
	}
	return n < eng.Config.AutoRemoveQuotaDay
}

func (eng *Engine) removeImmediately(ctx context.Context, msg *Message, v *oracle.Verdict, auditID int64) {
	ref := msg.Ref
	author := ref.Author()
	now := time.Now()

	status, _ := eng.removeContent(ctx, ref)
	if err := eng.Counters.Increment(ctx, autoRemoveCounter, "all"); err != nil {
		eng.Logger.Error("failed to increment automatic removal counter", "err", err)
	}

	if err := eng.Platform.PostChannel(ctx, ref.ChannelID, channelRemovalNotice); err != nil {
		eng.Logger.Warn("failed to post channel notice", "channel", ref.ChannelID, "err", err)
		remediationFailureCount.WithLabelValues("channel").Inc()
	}

	dm := fmt.Sprintf("🛡️ <@%s>, a message you recently sent was removed because it was flagged as containing personal information", author.ID)
	if info := oracle.HumanInfoTypes(v.InfoTypes); info != "" {
		dm += fmt.Sprintf(" (%s)", info)
	}
	dm += ".\nPlease avoid sharing others' private information to protect their privacy and safety. Future offenses may result in action taken against your account."
	eng.sendDirect(ctx, author.ID, dm, nil)

	eng.recordPerpetrator(ctx, author, v.TargetName, v.RiskLevel.Weight(), now)
	eng.recordVictimMention(ctx, author, v.TargetName, now)
	eng.ApplyTier(ctx, ref.CommunityID, author, reputation.TierNone)

	entry := NewLogEntry(fmt.Sprintf("Post Automatically Removed for Doxxing: %s Risk", v.RiskLevel), ColorRed)
	entry.AddField("Victim Name", fmt.Sprintf("```%s```", victimLabel(v.TargetName)), false)
	entry.AddField("Author of Reported Message", mention(author), true)
	entry.AddField("Doxxing Information Types Reported", infoTypesLabel(v.InfoTypes), false)
	entry.AddField("Result", fmt.Sprintf("Automatic Action Taken: %s and user notified.", status), false)
	entry.AddField("Original Message", fmt.Sprintf("```%s```", Truncate(msg.Content, 1000)), false)
	entry.AddField("Audit ID", fmt.Sprint(auditID), true)
	entry.Footer = detailsHint(auditID)
	eng.postModLog(ctx, ref.CommunityID, entry)
}

// Adds a human-filed report to the review queue, enforcing the per-reporter daily quota.
func (eng *Engine) FileHumanReport(ctx context.Context, rec *modqueue.ReportRecord) (*modqueue.Entry, error) {
	if rec.Reporter == nil {
		return nil, fmt.Errorf("human report without reporter")
	}
	if eng.Config.ReportQuotaDay > 0 {
		n, err := eng.Counters.GetCount(ctx, reportCounter, rec.Reporter.ID, countstore.PeriodDay)
		if err != nil {
			eng.Logger.Error("failed to read report counter", "reporter", rec.Reporter.ID, "err", err)
		} else if n >= eng.Config.ReportQuotaDay {
			return nil, ErrQuotaExceeded
		}
	}

	rec.Source = modqueue.SourceHumanFiled
	if rec.ClaimedRiskLevel < 1 || rec.ClaimedRiskLevel > 4 {
		rec.ClaimedRiskLevel = 1
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	seq, err := eng.Queue.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocating sequence: %w", err)
	}
	rec.AuditID = seq
	victimScore := eng.Scorer.VictimScore(ctx, rec.VictimNameClaim)
	e := &modqueue.Entry{
		Severity: modqueue.Combine(victimScore, float64(rec.ClaimedRiskLevel)),
		Sequence: seq,
		Report:   rec,
	}
	if err := eng.Queue.Push(ctx, e); err != nil {
		return nil, fmt.Errorf("enqueueing report: %w", err)
	}
	if err := eng.Counters.Increment(ctx, reportCounter, rec.Reporter.ID); err != nil {
		eng.Logger.Error("failed to increment report counter", "reporter", rec.Reporter.ID, "err", err)
	}
	reportsFiledCount.WithLabelValues(string(modqueue.SourceHumanFiled)).Inc()
	eng.Logger.Info("queued human report for review", "reporter", rec.Reporter.ID, "severity", e.Severity, "sequence", seq)

	entry := NewLogEntry(fmt.Sprintf("New Report Added to Review Queue: %s", rec.Reason.Label()), RiskColor(rec.ClaimedRiskLevel))
	entry.AddField("Content of Reported Message", fmt.Sprintf("```%s```", Truncate(rec.Snapshot, 1000)), false)
	entry.AddField("Author of Reported Message", mention(rec.Content.Author()), true)
	entry.AddField("Filed By (Reporter)", mention(*rec.Reporter), true)
	if rec.Reason == modqueue.ReasonDoxxing {
		entry.AddField("Victim Name", victimLabel(rec.VictimNameClaim), false)
	}
	if rec.Content.Link != "" {
		entry.AddField("Direct Link to Reported Message", rec.Content.Link, false)
	}
	eng.postModLog(ctx, rec.Content.CommunityID, entry)
	eng.QueueDepth(ctx)
	return e, nil
}

func victimLabel(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func infoTypesLabel(types []string) string {
	if len(types) == 0 {
		return "Various personal details"
	}
	return oracle.HumanInfoTypes(types)
}
