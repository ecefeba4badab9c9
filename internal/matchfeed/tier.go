package matchfeed

// Tier buckets a match score for display.
type Tier int

const (
	TierWeak Tier = iota
	TierFair
	TierGood
	TierStrong
)

// TierFor maps a 0–100 score: ≥80 strong, ≥60 good, ≥40 fair, else weak.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierStrong
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierFair
	default:
		return TierWeak
	}
}

func (t Tier) String() string {
	switch t {
	case TierWeak:
		return "weak"
	case TierFair:
		return "fair"
	case TierGood:
		return "good"
	case TierStrong:
		return "strong"
	}
	return "unknown"
}

// Label is the badge text.
func (t Tier) Label() string {
	switch t {
	case TierWeak:
		return "Weak match"
	case TierFair:
		return "Fair match"
	case TierGood:
		return "Good match"
	case TierStrong:
		return "Strong match"
	}
	return "Match"
}
