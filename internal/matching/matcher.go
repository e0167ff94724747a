package matching

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/wevote/wevoteserver/internal/model"
)

// Method records how a match was made.
type Method string

const (
	MethodNone          Method = ""
	MethodWeVoteID      Method = "we_vote_id"
	MethodTwitterHandle Method = "twitter_handle"
	MethodExactName     Method = "exact_name"
	MethodFuzzyName     Method = "fuzzy_name"
)

// distanceThreshold is the accepted Levenshtein distance for a normalized
// name of length n: about a fifth of it, between 1 and 3.
func distanceThreshold(n int) int {
	th := n / 5
	if th < 1 {
		return 1
	}
	if th > 3 {
		return 3
	}
	return th
}

// fuzzyEqual reports whether one normalized name is a subsequence of the other
// within the length-scaled distance threshold.
func fuzzyEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	thr := distanceThreshold(min(len(a), len(b)))
	if d := fuzzy.RankMatch(a, b); d >= 0 && d <= thr {
		return true
	}
	if d := fuzzy.RankMatch(b, a); d >= 0 && d <= thr {
		return true
	}
	return false
}

// matchNames runs exact then fuzzy comparison of name against each entry's
// alternate names, returning the index of the first hit in universe order.
func matchNames(name string, n int, namesAt func(i int) []string) (int, Method) {
	target := NormalizeName(name)
	if target == "" {
		return -1, MethodNone
	}
	normalized := make([][]string, n)
	for i := range n {
		for _, alt := range namesAt(i) {
			if a := NormalizeName(alt); a != "" {
				normalized[i] = append(normalized[i], a)
			}
		}
	}
	for i, alts := range normalized {
		for _, a := range alts {
			if a == target {
				return i, MethodExactName
			}
		}
	}
	for i, alts := range normalized {
		for _, a := range alts {
			if fuzzyEqual(target, a) {
				return i, MethodFuzzyName
			}
		}
	}
	return -1, MethodNone
}

// MatchCandidate finds the candidate a page refers to. A Twitter handle is
// tried first, then the name against every alternate name. The first match
// in universe order wins.
func MatchCandidate(name, twitterHandle string, universe []model.Candidate) (model.Candidate, Method, bool) {
	if h := NormalizeTwitterHandle(twitterHandle); h != "" {
		for _, c := range universe {
			for _, ch := range c.TwitterHandles() {
				if NormalizeTwitterHandle(ch) == h {
					return c, MethodTwitterHandle, true
				}
			}
		}
	}
	i, method := matchNames(name, len(universe), func(i int) []string { return universe[i].Names() })
	if i < 0 {
		return model.Candidate{}, MethodNone, false
	}
	return universe[i], method, true
}

// MatchMeasure finds the measure whose title matches.
func MatchMeasure(title string, universe []model.Measure) (model.Measure, Method, bool) {
	i, method := matchNames(title, len(universe), func(i int) []string { return universe[i].Titles() })
	if i < 0 {
		return model.Measure{}, MethodNone, false
	}
	return universe[i], method, true
}
