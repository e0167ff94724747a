package model

import (
	"strconv"
	"strings"
)

// Stance is the position a speaker takes on a ballot item.
type Stance string

const (
	StanceSupport         Stance = "SUPPORT"
	StanceOppose          Stance = "OPPOSE"
	StanceInformationOnly Stance = "INFORMATION_ONLY"
	StanceNoStance        Stance = "NO_STANCE"
	StanceStillDeciding   Stance = "STILL_DECIDING"
	StancePercentRating   Stance = "PERCENT_RATING"
)

// Rating thresholds for PERCENT_RATING positions.
const (
	PositiveRatingThreshold = 66
	NegativeRatingThreshold = 33
)

// ParseStance accepts any casing of a known stance.
func ParseStance(s string) (Stance, bool) {
	switch st := Stance(strings.ToUpper(strings.TrimSpace(s))); st {
	case StanceSupport, StanceOppose, StanceInformationOnly, StanceNoStance,
		StanceStillDeciding, StancePercentRating:
		return st, true
	}
	return "", false
}

func (p Position) IsSupport() bool         { return p.Stance == StanceSupport }
func (p Position) IsOppose() bool          { return p.Stance == StanceOppose }
func (p Position) IsInformationOnly() bool { return p.Stance == StanceInformationOnly }
func (p Position) IsStillDeciding() bool   { return p.Stance == StanceStillDeciding }

// IsNoStance treats an unset stance as NO_STANCE.
func (p Position) IsNoStance() bool {
	return p.Stance == StanceNoStance || p.Stance == ""
}

func (p Position) rating() (int, bool) {
	if p.Stance != StancePercentRating {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(p.VoteSmartRating), "%"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsPositiveRating is true for PERCENT_RATING positions at or above 66.
func (p Position) IsPositiveRating() bool {
	n, ok := p.rating()
	return ok && n >= PositiveRatingThreshold
}

// IsNegativeRating is true for PERCENT_RATING positions at or below 33.
func (p Position) IsNegativeRating() bool {
	n, ok := p.rating()
	return ok && n <= NegativeRatingThreshold
}

func (p Position) IsSupportOrPositiveRating() bool { return p.IsSupport() || p.IsPositiveRating() }
func (p Position) IsOpposeOrNegativeRating() bool  { return p.IsOppose() || p.IsNegativeRating() }
