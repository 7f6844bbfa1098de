package reputation

type Tier int

const (
	TierNone Tier = iota
	TierWarning
	TierSuspension
	TierBan
)

var (
	WarningThreshold    = 3.0
	SuspensionThreshold = 5.0
	BanThreshold        = 10.0
)

func (t Tier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierSuspension:
		return "suspension"
	case TierBan:
		return "ban"
	default:
		return "none"
	}
}

// Consequence tier for a reputation score.
func TierFor(score float64) Tier {
	switch {
	case score >= BanThreshold:
		return TierBan
	case score >= SuspensionThreshold:
		return TierSuspension
	case score >= WarningThreshold:
		return TierWarning
	default:
		return TierNone
	}
}

func MaxTier(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}
