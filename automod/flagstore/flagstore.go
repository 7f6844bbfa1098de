// Per-identity moderation markers.
//
// The daemon uses these to remember which consequence tiers have already been communicated to an offender (the "warned" set), so repeated evaluations in the same score band do not produce duplicate notices.
package flagstore

import (
	"context"
)

const (
	FlagWarned = "warned"
	tierPrefix = "tier:"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

// Marker recording that a consequence tier notice has been delivered.
func TierFlag(tier string) string {
	return tierPrefix + tier
}

// Flagstore key for a content author.
func ActorKey(actorID string) string {
	return "actor/" + actorID
}

func HasFlag(flags []string, f string) bool {
	for _, v := range flags {
		if v == f {
			return true
		}
	}
	return false
}
