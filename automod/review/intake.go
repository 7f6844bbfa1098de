package review

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
)

type ReportState int

const (
	ReportStart ReportState = iota
	ReportAwaitingLink
	ReportAwaitingReason
	ReportAwaitingVictim
	ReportAwaitingRisk
	ReportConfirm
	ReportComplete
)

func (s ReportState) String() string {
	switch s {
	case ReportStart:
		return "start"
	case ReportAwaitingLink:
		return "awaiting-link"
	case ReportAwaitingReason:
		return "awaiting-reason"
	case ReportAwaitingVictim:
		return "awaiting-victim"
	case ReportAwaitingRisk:
		return "awaiting-risk"
	case ReportConfirm:
		return "confirm"
	case ReportComplete:
		return "complete"
	default:
		return "unknown"
	}
}

const reportHelpText = "Use the `report` command to begin the reporting process.\nUse the `cancel` command to cancel the report process.\n"

const reasonPrompt = "Why are you reporting this message?\n1. Doxxing\n2. Credible threat of violence\n3. Other"

const riskPrompt = "How much danger do you believe this post poses to the person involved?\n1. Minimal\n2. Low\n3. Medium\n4. High"

// A member filing a report about a message, by direct message with the bot.
type ReportSession struct {
	lk sync.Mutex

	eng      *engine.Engine
	Reporter modqueue.Identity

	state     ReportState
	message   *engine.Message
	reason    modqueue.Reason
	victim    string
	riskLevel int

	// set once the report was queued
	Entry *modqueue.Entry
}

func NewReportSession(eng *engine.Engine, reporter modqueue.Identity) *ReportSession {
	return &ReportSession{
		eng:      eng,
		Reporter: reporter,
		state:    ReportStart,
	}
}

func (r *ReportSession) State() ReportState {
	r.lk.Lock()
	defer r.lk.Unlock()
	return r.state
}

func (r *ReportSession) Done() bool {
	return r.State() == ReportComplete
}

func (r *ReportSession) Handle(ctx context.Context, input string) []string {
	r.lk.Lock()
	defer r.lk.Unlock()

	text := strings.TrimSpace(input)
	lower := strings.ToLower(text)

	if r.state == ReportComplete {
		return []string{reportHelpText}
	}
	if lower == KeywordCancel {
		r.state = ReportComplete
		return []string{"Report cancelled."}
	}
	if lower == "help" {
		return []string{reportHelpText}
	}

	switch r.state {
	case ReportStart:
		if lower != KeywordReport {
			return []string{"I don't know what that command means.\n" + reportHelpText}
		}
		r.state = ReportAwaitingLink
		reply := "Thank you for starting the reporting process. Say `help` at any time for more information.\n\n"
		reply += "Please copy paste the link to the message you want to report."
		return []string{reply}
	case ReportAwaitingLink:
		msg, err := r.eng.Platform.ResolveLink(ctx, text)
		if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrForbidden) {
			return []string{"I cannot find that message. Please try again or say `cancel` to cancel."}
		}
		if err != nil {
			r.eng.Logger.Warn("failed to resolve reported link", "reporter", r.Reporter.ID, "err", err)
			return []string{"I could not load that message right now. Please try again or say `cancel` to cancel."}
		}
		r.message = msg
		r.state = ReportAwaitingReason
		found := fmt.Sprintf("I found this message:\n```%s: %s```", msg.Ref.AuthorName, msg.Content)
		return []string{found, reasonPrompt}
	case ReportAwaitingReason:
		switch text {
		case "1":
			r.reason = modqueue.ReasonDoxxing
			r.state = ReportAwaitingVictim
			return []string{fmt.Sprintf("Who is being doxxed? Type their full name, or `%s` if you don't know.", KeywordSkip)}
		case "2":
			r.reason = modqueue.ReasonCredibleThreat
		case "3":
			r.reason = modqueue.ReasonOther
		default:
			return []string{"Please type 1, 2 or 3.\n" + reasonPrompt}
		}
		r.state = ReportAwaitingRisk
		return []string{riskPrompt}
	case ReportAwaitingVictim:
		if text == "" {
			return []string{fmt.Sprintf("Please type a name, or `%s`.", KeywordSkip)}
		}
		if lower != KeywordSkip {
			r.victim = text
		}
		r.state = ReportAwaitingRisk
		return []string{riskPrompt}
	case ReportAwaitingRisk:
		level, err := strconv.Atoi(text)
		if err != nil || level < 1 || level > 4 {
			return []string{"Please type a number from 1 to 4.\n" + riskPrompt}
		}
		r.riskLevel = level
		r.state = ReportConfirm
		return []string{r.summary()}
	case ReportConfirm:
		switch text {
		case "1":
			return r.submit(ctx)
		case "2":
			r.state = ReportComplete
			return []string{"Report cancelled."}
		default:
			return []string{confirmInvalid}
		}
	}
	return []string{reportHelpText}
}

func (r *ReportSession) summary() string {
	reply := "You are about to submit the following report:\n"
	reply += fmt.Sprintf("- Message by %s: %q\n", r.message.Ref.AuthorName, r.message.Content)
	reply += fmt.Sprintf("- Reason: %s\n", r.reason.Label())
	if r.reason == modqueue.ReasonDoxxing {
		victim := r.victim
		if victim == "" {
			victim = "Unknown"
		}
		reply += fmt.Sprintf("- Person targeted: %s\n", victim)
	}
	reply += fmt.Sprintf("- Risk level: %d\n", r.riskLevel)
	reply += "Submit this report?\n1. Yes (Submit)\n2. No (Cancel)"
	return reply
}

func (r *ReportSession) submit(ctx context.Context) []string {
	r.state = ReportComplete
	reporter := r.Reporter
	rec := &modqueue.ReportRecord{
		Content:          r.message.Ref,
		Reporter:         &reporter,
		Reason:           r.reason,
		VictimNameClaim:  r.victim,
		ClaimedRiskLevel: r.riskLevel,
		Snapshot:         r.message.Content,
		CreatedAt:        time.Now(),
	}
	e, err := r.eng.FileHumanReport(ctx, rec)
	if errors.Is(err, engine.ErrQuotaExceeded) {
		return []string{"You have reached the daily limit for reports. Please try again tomorrow."}
	}
	if err != nil {
		r.eng.Logger.Error("failed to file report", "reporter", r.Reporter.ID, "err", err)
		return []string{"Your report could not be submitted right now. Please try again later."}
	}
	r.Entry = e
	return []string{"Thank you for reporting. Our moderation team will review the message and decide on appropriate action."}
}
