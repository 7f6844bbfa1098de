package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/reputation"
)

// Outcome of a completed review, as accepted by the reviewer.
type Disposition struct {
	Reviewer modqueue.Identity
	Entry    *modqueue.Entry

	// accumulated risk level, 1..4
	RiskLevel int

	ThreatConfirmed         bool
	DisallowedInfoConfirmed bool
	OtherPIIConfirmed       bool

	// confirmed name of the person targeted, if any
	VictimName string

	Remove  bool
	Suspend bool
	Ban     bool
}

// A violation was confirmed when the reviewer decided the content must go.
func (d *Disposition) ViolationConfirmed() bool {
	return d.Remove
}

// Confirmed victim name, falling back to the name claimed in the report.
func (d *Disposition) victim() string {
	if d.VictimName != "" {
		return d.VictimName
	}
	return d.Entry.Report.VictimNameClaim
}

func (d *Disposition) Floor() reputation.Tier {
	switch {
	case d.Ban:
		return reputation.TierBan
	case d.Suspend:
		return reputation.TierSuspension
	default:
		return reputation.TierNone
	}
}

func (d *Disposition) findings() []string {
	var out []string
	if d.ThreatConfirmed {
		out = append(out, "Credible threat of violence")
	}
	if d.DisallowedInfoConfirmed {
		out = append(out, "Disallowed personal information")
	}
	if d.OtherPIIConfirmed {
		out = append(out, "Other personal information")
	}
	return out
}

type DispositionResult struct {
	// human-readable list of side effects which were carried out
	Actions    []string
	Tier       reputation.Tier
	QueueDepth int
	Summary    *LogEntry
}

// Carries out a review disposition. Every side effect is attempted independently; failures are logged and never abort the rest.
func (eng *Engine) ExecuteDisposition(ctx context.Context, d *Disposition) *DispositionResult {
	ctx, span := otel.Tracer("doxguard").Start(ctx, "ExecuteDisposition")
	defer span.End()

	rec := d.Entry.Report
	ref := rec.Content
	author := ref.Author()
	now := time.Now()
	res := &DispositionResult{}
	logger := eng.Logger.With("reviewer", d.Reviewer.ID, "author", author.ID, "message", ref.MessageID)
	span.SetAttributes(attribute.Bool("remove", d.Remove), attribute.Int("risk", d.RiskLevel))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("disposition execution exception", "err", r)
		}
	}()

	if d.Remove {
		status, ok := eng.removeContent(ctx, ref)
		res.Actions = append(res.Actions, status)
		if ok {
			reason := "it violated our community guidelines"
			if d.DisallowedInfoConfirmed || d.OtherPIIConfirmed {
				reason = "it contained personal information about another person"
			} else if d.ThreatConfirmed {
				reason = "it contained a threat of violence"
			}
			dm := fmt.Sprintf("🛡️ <@%s>, a message you recently sent was removed after moderator review because %s.\nPlease review our community guidelines. Future offenses may result in action taken against your account.", author.ID, reason)
			if eng.sendDirect(ctx, author.ID, dm, nil) {
				res.Actions = append(res.Actions, "Author notified")
			}
		}
	}

	if rec.Reporter != nil {
		var dm string
		if d.Remove {
			dm = "Thank you for your report. Our moderators reviewed it and took action against the reported content."
		} else {
			dm = "Thank you for your report. Our moderators reviewed it and found no violation of our community guidelines."
		}
		if eng.sendDirect(ctx, rec.Reporter.ID, dm, nil) {
			res.Actions = append(res.Actions, "Reporter notified")
		}
	}

	if d.ViolationConfirmed() {
		sev := clampRisk(d.RiskLevel)
		if eng.recordPerpetrator(ctx, author, d.victim(), sev, now) {
			res.Actions = append(res.Actions, fmt.Sprintf("Incident recorded (severity %d)", sev))
		}
	}
	if rec.Reason == modqueue.ReasonDoxxing && (d.VictimName != "" || d.ViolationConfirmed()) {
		if eng.recordVictimMention(ctx, author, d.victim(), now) {
			res.Actions = append(res.Actions, fmt.Sprintf("Victim mention recorded for %s", d.victim()))
		}
	}

	res.Tier = eng.ApplyTier(ctx, ref.CommunityID, author, d.Floor())
	if res.Tier != reputation.TierNone {
		res.Actions = append(res.Actions, fmt.Sprintf("Reputation tier: %s", res.Tier))
	}
	res.QueueDepth = eng.QueueDepth(ctx)

	res.Summary = eng.dispositionSummary(d, res)
	eng.postModLog(ctx, ref.CommunityID, res.Summary)
	dispositionCount.WithLabelValues(fmt.Sprint(d.Remove)).Inc()
	logger.Info("executed review disposition", "remove", d.Remove, "tier", res.Tier.String(), "queue_depth", res.QueueDepth)
	return res
}

func (eng *Engine) dispositionSummary(d *Disposition, res *DispositionResult) *LogEntry {
	rec := d.Entry.Report
	findings := d.findings()

	var entry *LogEntry
	switch {
	case d.Remove || d.Suspend || d.Ban:
		entry = NewLogEntry("Review: Actions Taken", ColorGreen)
	case len(findings) > 0:
		entry = NewLogEntry("Review: Findings Logged", ColorBlue)
	default:
		entry = NewLogEntry("Review Finalized", ColorDarkGrey)
	}
	entry.AddField("Report", rec.Title(), false)
	entry.AddField("Reviewed By", mention(d.Reviewer), true)
	entry.AddField("Author of Reported Message", mention(rec.Content.Author()), true)
	entry.AddField("Risk Level", fmt.Sprint(clampRisk(d.RiskLevel)), true)
	if len(findings) > 0 {
		entry.AddField("Findings", strings.Join(findings, "\n"), false)
	}
	if len(res.Actions) > 0 {
		entry.AddField("Actions", strings.Join(res.Actions, "\n"), false)
	} else {
		entry.AddField("Actions", "No action taken", false)
	}
	entry.Footer = fmt.Sprintf("Reports remaining in queue: %d", res.QueueDepth)
	return entry
}

func clampRisk(r int) int {
	if r < 1 {
		return 1
	}
	if r > 4 {
		return 4
	}
	return r
}
