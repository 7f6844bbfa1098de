package reputation

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/doxguard/doxguard/automod/incidentstore"
)

// Decay rate per day; gives a half-life of roughly one week.
const DecayPerDay = 0.099

// Contribution of a single incident of the given severity and age. Future timestamps count as age zero.
func Decayed(severity float64, age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	return severity * math.Exp(-DecayPerDay*days)
}

// Computes time-decayed reputation scores from incident history.
//
// Every query scans the full history for the identity. That is fine at community scale; a maintained running decayed total (rescaled by exp(-λ·Δt) on each read or write) is the way to scale this.
type Scorer struct {
	Store  incidentstore.IncidentStore
	Logger *slog.Logger
	// defaults to time.Now
	Now func() time.Time
}

func NewScorer(store incidentstore.IncidentStore, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		Store:  store,
		Logger: logger,
		Now:    time.Now,
	}
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func ScoreIncidents(incidents []incidentstore.Incident, now time.Time) float64 {
	score := 0.0
	for _, inc := range incidents {
		score += Decayed(float64(inc.Severity), now.Sub(inc.Timestamp))
	}
	return score
}

func ScoreMentions(mentions []incidentstore.VictimMention, now time.Time) float64 {
	score := 0.0
	for _, vm := range mentions {
		score += Decayed(1, now.Sub(vm.Timestamp))
	}
	return score
}

// Reputation score of a content author. Store failures degrade to zero.
func (s *Scorer) PerpetratorScore(ctx context.Context, actorID string) float64 {
	incidents, err := s.Store.ListIncidents(ctx, actorID)
	if err != nil {
		s.Logger.Error("perpetrator score query failed", "actor", actorID, "err", err)
		storeFailures.WithLabelValues("perpetrator").Inc()
		return 0
	}
	return ScoreIncidents(incidents, s.now())
}

// How often (and how recently) a named person has been targeted. Unknown names and store failures score zero.
func (s *Scorer) VictimScore(ctx context.Context, victimName string) float64 {
	if incidentstore.IsPlaceholderName(victimName) {
		return 0
	}
	mentions, err := s.Store.ListVictimMentions(ctx, victimName)
	if err != nil {
		s.Logger.Error("victim score query failed", "victim", victimName, "err", err)
		storeFailures.WithLabelValues("victim").Inc()
		return 0
	}
	return ScoreMentions(mentions, s.now())
}
