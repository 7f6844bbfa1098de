package modqueue

import (
	"fmt"
	"math"
	"time"
)

// Lower bound applied to combined severity before it is used for ordering or inverted into a priority key.
const Epsilon = 1e-9

type Source string

const (
	SourceOracle     Source = "oracle"
	SourceHumanFiled Source = "human"
)

type Reason string

const (
	ReasonDoxxing        Reason = "doxxing"
	ReasonCredibleThreat Reason = "credible-threat"
	ReasonOther          Reason = "other"
)

// Human-readable label, as shown to reviewers and reporters.
func (r Reason) Label() string {
	switch r {
	case ReasonDoxxing:
		return "Doxxing"
	case ReasonCredibleThreat:
		return "Credible Threat of Violence"
	default:
		return "Other"
	}
}

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location of a piece of flagged content on the chat platform, plus a link moderators can follow.
type ContentRef struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	MessageID   string `json:"message_id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	Link        string `json:"link,omitempty"`
}

func (c ContentRef) Author() Identity {
	return Identity{ID: c.AuthorID, Name: c.AuthorName}
}

type ReportRecord struct {
	Source           Source     `json:"source"`
	Content          ContentRef `json:"content"`
	Reporter         *Identity  `json:"reporter,omitempty"`
	Reason           Reason     `json:"reason"`
	VictimNameClaim  string     `json:"victim_name,omitempty"`
	ClaimedRiskLevel int        `json:"risk_level"`
	Snapshot         string     `json:"snapshot"`
	InfoTypes        []string   `json:"info_types,omitempty"`
	AuditID          int64      `json:"audit_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Short description used in moderation log titles and summaries.
func (r *ReportRecord) Title() string {
	if r.Source == SourceOracle {
		return fmt.Sprintf("%s flagged by bot in %s", r.Reason.Label(), r.Content.ChannelID)
	}
	filer := "unknown reporter"
	if r.Reporter != nil {
		filer = r.Reporter.Name
	}
	return fmt.Sprintf("%s reported by %s", r.Reason.Label(), filer)
}

// A pending report, together with its ordering key. Entries are ordered by descending Severity (equivalently, ascending PriorityKey), with ties broken by ascending Sequence.
type Entry struct {
	Severity float64       `json:"severity"`
	Sequence int64         `json:"sequence"`
	Report   *ReportRecord `json:"report"`
}

// Combines two non-negative severity components: the sum when either is zero, the product otherwise.
func Combine(a, b float64) float64 {
	if a == 0 || b == 0 {
		return a + b
	}
	return a * b
}

func effectiveSeverity(sev float64) float64 {
	if math.IsNaN(sev) || sev < Epsilon {
		return Epsilon
	}
	return sev
}

// Reciprocal priority key for a combined severity. Always positive and finite; lower keys are reviewed first.
func PriorityKey(severity float64) float64 {
	return 1 / effectiveSeverity(severity)
}

func (e *Entry) PriorityKey() float64 {
	return PriorityKey(e.Severity)
}

// Reports whether a should be popped before b. Compares the (floored) severity directly rather than its reciprocal.
func Less(a, b *Entry) bool {
	sa, sb := effectiveSeverity(a.Severity), effectiveSeverity(b.Severity)
	if sa != sb {
		return sa > sb
	}
	return a.Sequence < b.Sequence
}
