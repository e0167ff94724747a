package model

// Candidate is a person running for a contest office.
type Candidate struct {
	ID                        int64  `json:"id"`
	WeVoteID                  string `json:"we_vote_id"`
	CandidateName             string `json:"candidate_name"`
	GoogleCivicCandidateName  string `json:"google_civic_candidate_name"`
	GoogleCivicCandidateName2 string `json:"google_civic_candidate_name2"`
	GoogleCivicCandidateName3 string `json:"google_civic_candidate_name3"`
	BallotpediaCandidateName  string `json:"ballotpedia_candidate_name"`
	TwitterHandle             string `json:"candidate_twitter_handle"`
	TwitterHandle2            string `json:"candidate_twitter_handle2"`
	TwitterHandle3            string `json:"candidate_twitter_handle3"`
	PartyAffiliation          string `json:"party"`
	StateCode                 string `json:"state_code"`
	ContestOfficeWeVoteID     string `json:"contest_office_we_vote_id"`
	ContestOfficeName         string `json:"contest_office_name"`
	CandidateYear             int    `json:"candidate_year"`
	GoogleCivicElectionID     int64  `json:"google_civic_election_id"`
}

// Names returns every non-empty name the candidate is known by.
func (c Candidate) Names() []string {
	return nonEmpty(c.CandidateName, c.GoogleCivicCandidateName, c.GoogleCivicCandidateName2,
		c.GoogleCivicCandidateName3, c.BallotpediaCandidateName)
}

// TwitterHandles returns every non-empty handle on file.
func (c Candidate) TwitterHandles() []string {
	return nonEmpty(c.TwitterHandle, c.TwitterHandle2, c.TwitterHandle3)
}

// Measure is a ballot question.
type Measure struct {
	ID                       int64  `json:"id"`
	WeVoteID                 string `json:"we_vote_id"`
	MeasureTitle             string `json:"measure_title"`
	MeasureSubtitle          string `json:"measure_subtitle"`
	GoogleCivicMeasureTitle  string `json:"google_civic_measure_title"`
	GoogleCivicMeasureTitle2 string `json:"google_civic_measure_title2"`
	GoogleCivicMeasureTitle3 string `json:"google_civic_measure_title3"`
	StateCode                string `json:"state_code"`
	MeasureYear              int    `json:"measure_year"`
	GoogleCivicElectionID    int64  `json:"google_civic_election_id"`
}

// Titles returns every non-empty title the measure is known by.
func (m Measure) Titles() []string {
	return nonEmpty(m.MeasureTitle, m.GoogleCivicMeasureTitle, m.GoogleCivicMeasureTitle2, m.GoogleCivicMeasureTitle3)
}

// ContestOffice is an office on a ballot for one election.
type ContestOffice struct {
	ID                    int64  `json:"id"`
	WeVoteID              string `json:"we_vote_id"`
	OfficeName            string `json:"office_name"`
	StateCode             string `json:"state_code"`
	GoogleCivicElectionID int64  `json:"google_civic_election_id"`
}

// Organization is a group that publishes endorsements.
type Organization struct {
	ID                        int64  `json:"id"`
	WeVoteID                  string `json:"organization_we_vote_id"`
	OrganizationName          string `json:"organization_name"`
	OrganizationTwitterHandle string `json:"organization_twitter_handle"`
	OrganizationWebsite       string `json:"organization_website"`
	OrganizationImageURL      string `json:"organization_image_url"`
	StateServedCode           string `json:"state_served_code"`
	OrganizationType          string `json:"organization_type"`
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
