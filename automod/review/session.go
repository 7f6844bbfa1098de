package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
)

type State int

const (
	StateStart State = iota
	StateAwaitingMenu
	StateThreatJudgement
	StateAbuseJudgement
	StateDisallowedInfo
	StateContentCheck
	StateFaithIndicator
	StateNameCapture
	StateNameConfirm
	StateConfirmReview
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingMenu:
		return "awaiting-menu"
	case StateThreatJudgement:
		return "threat-judgement"
	case StateAbuseJudgement:
		return "abuse-judgement"
	case StateDisallowedInfo:
		return "disallowed-info"
	case StateContentCheck:
		return "content-check"
	case StateFaithIndicator:
		return "faith-indicator"
	case StateNameCapture:
		return "name-capture"
	case StateNameConfirm:
		return "name-confirm"
	case StateConfirmReview:
		return "confirm-review"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

const (
	staleEntryNote = "A report was removed from the queue due to the post being deleted."
	maxRiskLevel   = 4
)

// One reviewer's walk through the decision tree for a single report at a time.
//
// Handle serializes inputs for the session; different sessions run concurrently and only share the engine (whose queue pop is atomic).
type Session struct {
	lk sync.Mutex

	eng      *engine.Engine
	Reviewer modqueue.Identity

	state State
	entry *modqueue.Entry

	threatConfirmed         bool
	disallowedInfoConfirmed bool
	otherPIIConfirmed       bool
	riskLevel               int
	victimName              string

	remove  bool
	suspend bool
	ban     bool

	// set once the disposition has been executed
	Result *engine.DispositionResult
}

func NewSession(eng *engine.Engine, reviewer modqueue.Identity) *Session {
	return &Session{
		eng:       eng,
		Reviewer:  reviewer,
		state:     StateStart,
		riskLevel: 1,
	}
}

func (s *Session) State() State {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.state
}

// Entry currently held by the session, if any.
func (s *Session) Entry() *modqueue.Entry {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.entry
}

func (s *Session) Done() bool {
	return s.State() == StateComplete
}

// Processes one reviewer input and returns the replies to send back.
func (s *Session) Handle(ctx context.Context, input string) []string {
	s.lk.Lock()
	defer s.lk.Unlock()

	text := strings.TrimSpace(input)
	lower := strings.ToLower(text)

	if s.state == StateComplete {
		return []string{"This review session has ended. Type the password to begin again."}
	}

	// global commands. While a victim name is being typed only the dash keywords count, so a name like "Help" is captured as-is.
	words := s.state != StateNameCapture
	switch {
	case lower == KeywordLogout || (words && lower == "logout"):
		return []string{s.logout(ctx)}
	case lower == KeywordHelp || (words && lower == "help"):
		return []string{helpText()}
	case lower == KeywordPolicy || (words && lower == "policy"):
		return []string{policyText}
	case lower == KeywordDetails || strings.HasPrefix(lower, KeywordDetails+" "):
		return []string{s.details(ctx, lower)}
	case words && (lower == "details" || strings.HasPrefix(lower, "details ")):
		return []string{s.details(ctx, lower)}
	}

	switch s.state {
	case StateStart:
		s.state = StateAwaitingMenu
		return []string{menuText("Thank you for starting the reviewing process. ")}
	case StateAwaitingMenu:
		if lower != KeywordReview && lower != "review" {
			return []string{menuReminder()}
		}
		return s.beginReview(ctx)
	case StateThreatJudgement:
		return s.onThreatJudgement(text)
	case StateAbuseJudgement:
		return s.onAbuseJudgement(text)
	case StateDisallowedInfo:
		return s.onDisallowedInfo(text)
	case StateContentCheck:
		return s.onContentCheck(text)
	case StateFaithIndicator:
		return s.onFaithIndicator(text)
	case StateNameCapture:
		return s.onNameCapture(text)
	case StateNameConfirm:
		return s.onNameConfirm(text)
	case StateConfirmReview:
		return s.onConfirmReview(ctx, text)
	}
	return []string{"An error occurred. Please type `" + KeywordLogout + "` or contact an admin."}
}

// Ends the session. A held entry goes back on the queue with its original severity and sequence.
func (s *Session) logout(ctx context.Context) string {
	reply := "You are now logged out."
	if s.entry != nil {
		if err := s.eng.Queue.Push(ctx, s.entry); err != nil {
			s.eng.Logger.Error("failed to return report to queue on logout", "reviewer", s.Reviewer.ID, "sequence", s.entry.Sequence, "err", err)
		}
		s.entry = nil
		reply += " The review you had in progress has been cancelled."
	}
	s.state = StateComplete
	reply += " Type the password to begin again."
	return reply
}

func (s *Session) details(ctx context.Context, lower string) string {
	fields := strings.Fields(lower)
	if len(fields) < 2 {
		return fmt.Sprintf("You must indicate an evaluation ID when requesting details in the form `%s [Evaluation ID]`", KeywordDetails)
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "Evaluation IDs are numbers, for example `" + KeywordDetails + " 12`"
	}
	rationale, ok, err := s.eng.Details(ctx, id)
	if err != nil {
		s.eng.Logger.Error("details lookup failed", "audit_id", id, "err", err)
		return "Could not look up that evaluation right now. Please try again later."
	}
	if !ok {
		return "There is no bot report associated with that evaluation ID"
	}
	return rationale
}

// Pops the next reviewable entry, discarding entries whose content no longer exists.
func (s *Session) beginReview(ctx context.Context) []string {
	for {
		e, err := s.eng.Queue.Pop(ctx)
		if err != nil {
			s.eng.Logger.Error("failed to pop review queue", "reviewer", s.Reviewer.ID, "err", err)
			return []string{"The review queue is unavailable right now. Please try again later."}
		}
		if e == nil {
			return []string{emptyQueueText()}
		}

		ref := e.Report.Content
		msg, err := s.eng.Platform.FetchMessage(ctx, ref)
		if errors.Is(err, engine.ErrNotFound) {
			s.eng.Logger.Info("discarding stale report", "sequence", e.Sequence, "message", ref.MessageID)
			s.eng.PostNote(ctx, ref.CommunityID, staleEntryNote)
			continue
		}
		if err != nil {
			s.eng.Logger.Error("failed to fetch reported message", "sequence", e.Sequence, "err", err)
			if perr := s.eng.Queue.Push(ctx, e); perr != nil {
				s.eng.Logger.Error("failed to return report to queue", "sequence", e.Sequence, "err", perr)
			}
			return []string{"Could not load the reported message right now. The report was returned to the queue; please try again later."}
		}
		if msg != nil && msg.Content != "" {
			e.Report.Snapshot = msg.Content
		}

		s.entry = e
		s.resetFindings()
		card := reportCard(e).Text()

		if e.Report.Reason == modqueue.ReasonCredibleThreat {
			s.state = StateAbuseJudgement
			return []string{card, abusePrompt(strings.ToLower(e.Report.Reason.Label()))}
		}
		s.state = StateThreatJudgement
		return []string{card, "Here is the report to review. Please answer the following reporting flow questions.\n\n" + threatPrompt}
	}
}

func (s *Session) resetFindings() {
	s.threatConfirmed = false
	s.disallowedInfoConfirmed = false
	s.otherPIIConfirmed = false
	s.riskLevel = 1
	s.victimName = ""
	s.remove = false
	s.suspend = false
	s.ban = false
}

func (s *Session) reasonLabel() string {
	return strings.ToLower(s.entry.Report.Reason.Label())
}

func (s *Session) onThreatJudgement(text string) []string {
	switch text {
	case "1":
		s.threatConfirmed = true
		s.remove = true
		s.suspend = true
		s.riskLevel = maxRiskLevel
	case "2":
		s.threatConfirmed = false
	default:
		return []string{invalidBinary}
	}
	if s.entry.Report.Reason == modqueue.ReasonDoxxing {
		s.state = StateDisallowedInfo
		return []string{disallowedInfoPrompt}
	}
	s.state = StateAbuseJudgement
	return []string{abusePrompt(s.reasonLabel())}
}

func (s *Session) onAbuseJudgement(text string) []string {
	switch text {
	case "1":
		s.remove = true
		s.riskLevel = max(s.riskLevel, s.entry.Report.ClaimedRiskLevel)
		if s.entry.Report.Reason == modqueue.ReasonCredibleThreat {
			s.threatConfirmed = true
			s.suspend = true
		}
	case "2":
	default:
		return []string{invalidBinary}
	}
	return s.toConfirm()
}

func (s *Session) onDisallowedInfo(text string) []string {
	switch text {
	case "1":
		s.disallowedInfoConfirmed = true
		s.remove = true
		s.suspend = true
		s.riskLevel = min(s.riskLevel+2, maxRiskLevel)
		if s.threatConfirmed {
			s.ban = true
		}
	case "2":
		s.disallowedInfoConfirmed = false
	default:
		return []string{invalidBinary}
	}
	s.state = StateContentCheck
	return []string{contentCheckPrompt}
}

func (s *Session) onContentCheck(text string) []string {
	switch text {
	case "1":
		s.state = StateFaithIndicator
		return []string{faithPrompt}
	case "2":
		s.otherPIIConfirmed = false
		return s.toConfirm()
	default:
		return []string{invalidBinary}
	}
}

func (s *Session) onFaithIndicator(text string) []string {
	switch text {
	case "1":
		return s.toConfirm()
	case "2":
		s.otherPIIConfirmed = true
		s.remove = true
		claim := s.entry.Report.VictimNameClaim
		if claim != "" {
			s.victimName = claim
			s.state = StateNameConfirm
			return []string{nameConfirmPrompt(claim)}
		}
		s.state = StateNameCapture
		return []string{nameCapturePrompt}
	default:
		return []string{invalidBinary}
	}
}

func (s *Session) onNameCapture(text string) []string {
	if text == "" {
		return []string{nameRetypePrompt}
	}
	s.victimName = text
	s.state = StateNameConfirm
	return []string{nameConfirmPrompt(text)}
}

func (s *Session) onNameConfirm(text string) []string {
	switch text {
	case "1":
		return s.toConfirm()
	case "2":
		s.victimName = ""
		s.state = StateNameCapture
		return []string{nameRetypePrompt}
	default:
		return []string{fmt.Sprintf("Please type `1` if %s is the correct name and `2` if incorrect.", s.victimName)}
	}
}

func (s *Session) toConfirm() []string {
	s.state = StateConfirmReview
	return []string{s.assessment()}
}

// Summary of the accumulated findings, ending with the accept/cancel prompt.
func (s *Session) assessment() string {
	var reply string
	switch {
	case s.threatConfirmed:
		reply = "Threat identified. Policy: Message removal & action against account.\n\n"
		reply += "Confirm review and actions?\n1. Yes (Proceed)\n2. No (Cancel Review)"
		return reply
	case s.disallowedInfoConfirmed:
		reply = "Review assessment (no direct threat ID'd by you):\n"
		reply += "- Severe personally identifiable information was identified. This post will be removed, and the user will be suspended.\n"
		reply += "- This will be logged. Manual moderator follow-up may be appropriate.\n"
	case s.remove && s.entry.Report.Reason == modqueue.ReasonDoxxing:
		reply = "Review assessment (no direct threat ID'd by you):\n"
		reply += "- Personally identifiable information was identified. This post will be removed.\n"
		reply += "- This will be logged. Manual moderator follow-up may be appropriate.\n"
		reply += "No suspension will occur (policy requires reviewer to ID direct threat or disallowed information).\n"
	case s.remove:
		reply = "Review assessment (no direct threat ID'd by you):\n"
		reply += fmt.Sprintf("- %s content was identified.\n", s.entry.Report.Reason.Label())
		reply += "- This will be logged. The post will be removed.\n"
		reply += "No suspension will occur (policy requires reviewer to ID direct threat).\n"
	default:
		reply = "Review assessment (no direct threat ID'd by you):\n"
		reply += "- No direct threat or other significant problematic content was flagged by you.\n"
	}
	reply += "\nFinalize and log assessment?\n1. Yes (Finalize)\n2. No (Cancel Review)"
	return reply
}

func (s *Session) onConfirmReview(ctx context.Context, text string) []string {
	switch text {
	case "1":
		d := s.disposition()
		s.entry = nil
		s.state = StateComplete
		s.Result = s.eng.ExecuteDisposition(ctx, d)
		return []string{
			"Finalizing your review...",
			fmt.Sprintf("Review finalized. Outcome logged to the moderator channel. There are %d reports remaining in the queue. Type the password to start a new review.", s.Result.QueueDepth),
		}
	case "2":
		s.eng.Logger.Info("review cancelled, discarding report", "reviewer", s.Reviewer.ID, "sequence", s.entry.Sequence)
		s.entry = nil
		s.resetFindings()
		s.state = StateComplete
		return []string{"Review cancelled. Type the password to begin again."}
	default:
		return []string{confirmInvalid}
	}
}

func (s *Session) disposition() *engine.Disposition {
	return &engine.Disposition{
		Reviewer:                s.Reviewer,
		Entry:                   s.entry,
		RiskLevel:               s.riskLevel,
		ThreatConfirmed:         s.threatConfirmed,
		DisallowedInfoConfirmed: s.disallowedInfoConfirmed,
		OtherPIIConfirmed:       s.otherPIIConfirmed,
		VictimName:              s.victimName,
		Remove:                  s.remove,
		Suspend:                 s.suspend,
		Ban:                     s.ban,
	}
}

// Renders a queue entry for the reviewer.
func reportCard(e *modqueue.Entry) *engine.LogEntry {
	rec := e.Report
	card := engine.NewLogEntry(rec.Title(), engine.RiskColor(rec.ClaimedRiskLevel))
	card.AddField("Content of Reported Message", "```"+engine.Truncate(rec.Snapshot, 1000)+"```", false)
	author := rec.Content.Author()
	card.AddField("Author of Reported Message", fmt.Sprintf("%s (ID: %s)", author.Name, author.ID), true)
	if rec.Reporter != nil {
		card.AddField("Filed By (Reporter)", fmt.Sprintf("%s (ID: %s)", rec.Reporter.Name, rec.Reporter.ID), true)
	} else {
		card.AddField("Filed By (Reporter)", "MODERATOR BOT", true)
	}
	card.AddField("Specific Reason Provided by Reporter", rec.Reason.Label(), false)
	if rec.Reason == modqueue.ReasonDoxxing {
		victim := rec.VictimNameClaim
		if victim == "" {
			victim = "Unknown"
		}
		card.AddField("Victim Name", victim, false)
	}
	card.AddField("Risk Level", strconv.Itoa(rec.ClaimedRiskLevel), true)
	if rec.AuditID != 0 && rec.Source == modqueue.SourceOracle {
		card.AddField("Evaluation ID", strconv.FormatInt(rec.AuditID, 10), true)
	}
	if rec.Content.Link != "" {
		card.AddField("Direct Link to Reported Message", rec.Content.Link, false)
	}
	return card
}
