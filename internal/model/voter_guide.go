package model

import "time"

// VoterGuideOwnerType says what kind of speaker a voter guide belongs to.
type VoterGuideOwnerType string

const (
	OwnerOrganization VoterGuideOwnerType = "ORGANIZATION"
	OwnerPublicFigure VoterGuideOwnerType = "PUBLIC_FIGURE"
	OwnerVoter        VoterGuideOwnerType = "VOTER"
)

// VoterGuide summarizes one organization's positions for one election.
type VoterGuide struct {
	ID                    int64               `json:"id"`
	WeVoteID              string              `json:"we_vote_id"`
	OrganizationWeVoteID  string              `json:"organization_we_vote_id"`
	GoogleCivicElectionID int64               `json:"google_civic_election_id"`
	OwnerType             VoterGuideOwnerType `json:"voter_guide_owner_type"`
	DisplayName           string              `json:"voter_guide_display_name"`
	ImageURL              string              `json:"voter_guide_image_url"`
	TwitterHandle         string              `json:"twitter_handle"`
	StateCode             string              `json:"state_code"`
	NumberOfPositions     int                 `json:"number_of_positions"`
	LastUpdated           time.Time           `json:"last_updated"`
}

// VoterGuideFilter narrows ListVoterGuides. Zero fields do not filter.
type VoterGuideFilter struct {
	OrganizationWeVoteID  string
	GoogleCivicElectionID int64
	Limit                 int
	Offset                int
}

// VoterGuidePossibilityType says which side of the endorsement is fixed on a page.
type VoterGuidePossibilityType string

const (
	PossibilityOrganizationEndorsingCandidates VoterGuidePossibilityType = "ORGANIZATION_ENDORSING_CANDIDATES"
	PossibilityEndorsementsForCandidate        VoterGuidePossibilityType = "ENDORSEMENTS_FOR_CANDIDATE"
	PossibilityUnknownType                     VoterGuidePossibilityType = "UNKNOWN_TYPE"
)

// ParsePossibilityType maps unknown or empty input to UNKNOWN_TYPE.
func ParsePossibilityType(s string) VoterGuidePossibilityType {
	switch t := VoterGuidePossibilityType(s); t {
	case PossibilityOrganizationEndorsingCandidates, PossibilityEndorsementsForCandidate:
		return t
	}
	return PossibilityUnknownType
}

// VoterGuidePossibility is a submitted web page that may hold endorsements.
type VoterGuidePossibility struct {
	ID                        int64                     `json:"voter_guide_possibility_id"`
	WeVoteID                  string                    `json:"voter_guide_possibility_we_vote_id"`
	URL                       string                    `json:"voter_guide_possibility_url"`
	Type                      VoterGuidePossibilityType `json:"voter_guide_possibility_type"`
	OrganizationName          string                    `json:"organization_name"`
	OrganizationTwitterHandle string                    `json:"organization_twitter_handle"`
	OrganizationWeVoteID      string                    `json:"organization_we_vote_id"`
	CandidateName             string                    `json:"candidate_name"`
	CandidateTwitterHandle    string                    `json:"candidate_twitter_handle"`
	CandidateWeVoteID         string                    `json:"candidate_we_vote_id"`
	StateCode                 string                    `json:"state_code"`
	GoogleCivicElectionID     int64                     `json:"google_civic_election_id"`
	VoterWhoSubmittedWeVoteID string                    `json:"voter_who_submitted_we_vote_id"`
	ContributorComments       string                    `json:"contributor_comments"`
	ContributorEmail          string                    `json:"contributor_email"`
	IgnoreThisSource          bool                      `json:"ignore_this_source"`
	DoneVerified              bool                      `json:"done_verified"`
	HideFromActiveReview      bool                      `json:"hide_from_active_review"`
	DateCreated               time.Time                 `json:"date_created"`
	DateLastChanged           time.Time                 `json:"date_last_changed"`
}

// PossibilityFilter narrows ListVoterGuidePossibilities.
type PossibilityFilter struct {
	StateCode       string
	IncludeIgnored  bool
	IncludeVerified bool
	IncludeHidden   bool
	Limit           int
	Offset          int
}

// VoterGuidePossibilityPosition is one ballot item (or one endorser, on
// candidate pages) found on a possibility page.
type VoterGuidePossibilityPosition struct {
	ID                         int64  `json:"possibility_position_id"`
	VoterGuidePossibilityID    int64  `json:"voter_guide_possibility_id"`
	PossibilityPositionNumber  int    `json:"possibility_position_number"`
	BallotItemName             string `json:"ballot_item_name"`
	BallotItemStateCode        string `json:"ballot_item_state_code"`
	CandidateWeVoteID          string `json:"candidate_we_vote_id"`
	CandidateTwitterHandle     string `json:"candidate_twitter_handle"`
	MeasureWeVoteID            string `json:"measure_we_vote_id"`
	OrganizationName           string `json:"organization_name"`
	OrganizationTwitterHandle  string `json:"organization_twitter_handle"`
	OrganizationWeVoteID       string `json:"organization_we_vote_id"`
	PositionStance             Stance `json:"position_stance"`
	StatementText              string `json:"statement_text"`
	MoreInfoURL                string `json:"more_info_url"`
	PossibilityShouldBeIgnored bool   `json:"possibility_should_be_ignored"`
	PositionShouldBeRemoved    bool   `json:"position_should_be_removed"`
	PositionWeVoteID           string `json:"position_we_vote_id"`
	GoogleCivicElectionID      int64  `json:"google_civic_election_id"`
}

// BallotItem returns the matched candidate or measure, if any.
func (pp VoterGuidePossibilityPosition) BallotItem() BallotItem {
	switch {
	case pp.CandidateWeVoteID != "":
		return BallotItem{Kind: BallotItemCandidate, WeVoteID: pp.CandidateWeVoteID}
	case pp.MeasureWeVoteID != "":
		return BallotItem{Kind: BallotItemMeasure, WeVoteID: pp.MeasureWeVoteID}
	}
	return BallotItem{}
}
