package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Entity abbreviations used inside we_vote_ids.
const (
	AbbrevPosition              = "pos"
	AbbrevVoterGuide            = "vg"
	AbbrevVoterGuidePossibility = "vgp"
	AbbrevPollingLocation       = "ploc"
	AbbrevOfficeHeld            = "officeheld"
	AbbrevRepresentative        = "rep"
	AbbrevOrganization          = "org"
	AbbrevCandidate             = "cand"
	AbbrevMeasure               = "meas"
	AbbrevContestOffice         = "off"
	AbbrevVoter                 = "voter"
)

var sitePrefixPattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,8}$`)

// ValidateSitePrefix checks the per-deployment prefix embedded in every we_vote_id.
func ValidateSitePrefix(prefix string) error {
	if !sitePrefixPattern.MatchString(prefix) {
		return fmt.Errorf("we_vote_id prefix %q must be 1-8 alphanumeric characters", prefix)
	}
	return nil
}

// FormatWeVoteID builds "wv{prefix}{abbrev}{n}", lowercased.
func FormatWeVoteID(sitePrefix, abbrev string, n int64) string {
	return strings.ToLower("wv" + sitePrefix + abbrev + strconv.FormatInt(n, 10))
}
