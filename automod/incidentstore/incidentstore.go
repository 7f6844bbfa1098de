package incidentstore

import (
	"context"
	"strings"
	"time"
)

// Placeholder victim name used when a reviewer or the classifier could not identify who was targeted.
const UnknownVictim = "Unknown"

// A moderation incident attributed to the author of the offending content.
type Incident struct {
	ActorID    string
	ActorName  string
	Timestamp  time.Time
	VictimName string
	Severity   int
}

// A record of a named person being targeted. Every mention carries unit severity.
type VictimMention struct {
	VictimName string
	Timestamp  time.Time
	ActorID    string
	ActorName  string
}

// Append-only store for the two incident tables. Aggregation happens in the reputation scorer, not here.
type IncidentStore interface {
	AddIncident(ctx context.Context, inc Incident) error
	AddVictimMention(ctx context.Context, vm VictimMention) error
	ListIncidents(ctx context.Context, actorID string) ([]Incident, error)
	ListVictimMentions(ctx context.Context, victimName string) ([]VictimMention, error)
}

// Lookup key for a victim name: trimmed and case-folded.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Reports whether a victim name claim is absent, or the "unknown" placeholder.
func IsPlaceholderName(name string) bool {
	n := NormalizeName(name)
	return n == "" || n == NormalizeName(UnknownVictim)
}
