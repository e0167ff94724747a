package model

import (
	"errors"
	"strings"
	"time"
)

// Visibility selects which of the two position tables holds a row.
type Visibility string

const (
	VisibilityPublic      Visibility = "SHOW_PUBLIC"
	VisibilityFriendsOnly Visibility = "FRIENDS_ONLY"
)

// ParseVisibility accepts the API spellings plus "public"/"friends".
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SHOW_PUBLIC", "PUBLIC":
		return VisibilityPublic, true
	case "FRIENDS_ONLY", "FRIENDS":
		return VisibilityFriendsOnly, true
	}
	return "", false
}

// Other returns the opposite table.
func (v Visibility) Other() Visibility {
	if v == VisibilityPublic {
		return VisibilityFriendsOnly
	}
	return VisibilityPublic
}

func (v Visibility) IsPublic() bool { return v == VisibilityPublic }

// SpeakerKind identifies who holds a position.
type SpeakerKind string

const (
	SpeakerOrganization SpeakerKind = "ORGANIZATION"
	SpeakerPublicFigure SpeakerKind = "PUBLIC_FIGURE"
	SpeakerVoter        SpeakerKind = "VOTER"
)

// Speaker is an organization, public figure or voter, by we_vote_id.
type Speaker struct {
	Kind     SpeakerKind `json:"kind"`
	WeVoteID string      `json:"we_vote_id"`
}

func (s Speaker) IsZero() bool { return s.WeVoteID == "" }

// BallotItemKind is the type of thing a position is about.
type BallotItemKind string

const (
	BallotItemOffice    BallotItemKind = "OFFICE"
	BallotItemCandidate BallotItemKind = "CANDIDATE"
	BallotItemMeasure   BallotItemKind = "MEASURE"
)

// ParseBallotItemKind accepts any casing of OFFICE, CANDIDATE or MEASURE.
func ParseBallotItemKind(s string) (BallotItemKind, bool) {
	switch k := BallotItemKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case BallotItemOffice, BallotItemCandidate, BallotItemMeasure:
		return k, true
	}
	return "", false
}

// BallotItem is an office, candidate or measure, by we_vote_id.
type BallotItem struct {
	Kind     BallotItemKind `json:"kind"`
	WeVoteID string         `json:"we_vote_id"`
}

func (b BallotItem) IsZero() bool { return b.WeVoteID == "" }

// Position is one stance by one speaker on one ballot item. The same struct
// maps both position_entered (public) and position_for_friends.
type Position struct {
	ID                     int64      `json:"id"`
	WeVoteID               string     `json:"position_we_vote_id"`
	Visibility             Visibility `json:"visibility"`
	OrganizationWeVoteID   string     `json:"organization_we_vote_id,omitempty"`
	PublicFigureWeVoteID   string     `json:"public_figure_we_vote_id,omitempty"`
	VoterWeVoteID          string     `json:"voter_we_vote_id,omitempty"`
	VoterID                int64      `json:"voter_id,omitempty"`
	ContestOfficeWeVoteID  string     `json:"contest_office_we_vote_id,omitempty"`
	CandidateWeVoteID      string     `json:"candidate_we_vote_id,omitempty"`
	ContestMeasureWeVoteID string     `json:"contest_measure_we_vote_id,omitempty"`
	GoogleCivicElectionID  int64      `json:"google_civic_election_id"`
	VoteSmartTimeSpan      string     `json:"vote_smart_time_span,omitempty"`
	Stance                 Stance     `json:"stance"`
	StatementText          string     `json:"statement_text"`
	StatementHTML          string     `json:"statement_html"`
	MoreInfoURL            string     `json:"more_info_url"`
	VoteSmartRating        string     `json:"vote_smart_rating,omitempty"`
	BallotItemDisplayName  string     `json:"ballot_item_display_name"`
	SpeakerDisplayName     string     `json:"speaker_display_name"`
	StateCode              string     `json:"state_code"`
	DateEntered            time.Time  `json:"date_entered"`
	DateLastChanged        time.Time  `json:"date_last_changed"`
}

// Speaker returns whichever speaker id is set, organization first.
func (p Position) Speaker() Speaker {
	switch {
	case p.OrganizationWeVoteID != "":
		return Speaker{Kind: SpeakerOrganization, WeVoteID: p.OrganizationWeVoteID}
	case p.PublicFigureWeVoteID != "":
		return Speaker{Kind: SpeakerPublicFigure, WeVoteID: p.PublicFigureWeVoteID}
	case p.VoterWeVoteID != "":
		return Speaker{Kind: SpeakerVoter, WeVoteID: p.VoterWeVoteID}
	}
	return Speaker{}
}

// SetSpeaker clears the other speaker columns and sets s.
func (p *Position) SetSpeaker(s Speaker) {
	p.OrganizationWeVoteID, p.PublicFigureWeVoteID, p.VoterWeVoteID = "", "", ""
	switch s.Kind {
	case SpeakerOrganization:
		p.OrganizationWeVoteID = s.WeVoteID
	case SpeakerPublicFigure:
		p.PublicFigureWeVoteID = s.WeVoteID
	case SpeakerVoter:
		p.VoterWeVoteID = s.WeVoteID
	}
}

// BallotItem returns whichever ballot item id is set, candidate first.
func (p Position) BallotItem() BallotItem {
	switch {
	case p.CandidateWeVoteID != "":
		return BallotItem{Kind: BallotItemCandidate, WeVoteID: p.CandidateWeVoteID}
	case p.ContestMeasureWeVoteID != "":
		return BallotItem{Kind: BallotItemMeasure, WeVoteID: p.ContestMeasureWeVoteID}
	case p.ContestOfficeWeVoteID != "":
		return BallotItem{Kind: BallotItemOffice, WeVoteID: p.ContestOfficeWeVoteID}
	}
	return BallotItem{}
}

// SetBallotItem clears the other ballot item columns and sets b.
func (p *Position) SetBallotItem(b BallotItem) {
	p.ContestOfficeWeVoteID, p.CandidateWeVoteID, p.ContestMeasureWeVoteID = "", "", ""
	switch b.Kind {
	case BallotItemOffice:
		p.ContestOfficeWeVoteID = b.WeVoteID
	case BallotItemCandidate:
		p.CandidateWeVoteID = b.WeVoteID
	case BallotItemMeasure:
		p.ContestMeasureWeVoteID = b.WeVoteID
	}
}

// PositionIdentifiers is the loose set of optional ids callers pass in. Use
// NewPositionLookup to turn it into a PositionLookup.
type PositionIdentifiers struct {
	PositionWeVoteID       string
	OrganizationWeVoteID   string
	PublicFigureWeVoteID   string
	VoterWeVoteID          string
	ContestOfficeWeVoteID  string
	CandidateWeVoteID      string
	ContestMeasureWeVoteID string
	GoogleCivicElectionID  int64
	VoteSmartTimeSpan      string
}

// Lookup key validation failures. Their messages are the status codes.
var (
	ErrTooManyUniqueActorVariables      = errors.New(StatusTooManyUniqueActorVariables)
	ErrNoUniqueActorVariables           = errors.New(StatusNoUniqueActorVariables)
	ErrTooManyUniqueBallotItemVariables = errors.New(StatusTooManyUniqueBallotItemVariables)
	ErrNoUniqueBallotItemVariables      = errors.New(StatusNoUniqueBallotItemVariables)
)

// PositionLookupKind discriminates PositionLookup.
type PositionLookupKind int

const (
	LookupByWeVoteID PositionLookupKind = iota + 1
	LookupBySpeakerAndBallotItem
)

// PositionLookup identifies at most one position. Either WeVoteID is set
// (LookupByWeVoteID) or Speaker and BallotItem are, optionally narrowed by
// election or Vote Smart time span.
type PositionLookup struct {
	Kind                  PositionLookupKind
	WeVoteID              string
	Speaker               Speaker
	BallotItem            BallotItem
	GoogleCivicElectionID int64
	VoteSmartTimeSpan     string
}

// NewPositionLookup validates ids. A position we_vote_id alone is enough;
// otherwise exactly one speaker id and exactly one ballot item id are required.
func NewPositionLookup(ids PositionIdentifiers) (PositionLookup, error) {
	if id := strings.TrimSpace(ids.PositionWeVoteID); id != "" {
		return PositionLookup{Kind: LookupByWeVoteID, WeVoteID: id}, nil
	}
	speaker, err := uniqueSpeaker(ids)
	if err != nil {
		return PositionLookup{}, err
	}
	item, err := uniqueBallotItem(ids)
	if err != nil {
		return PositionLookup{}, err
	}
	return PositionLookup{
		Kind:                  LookupBySpeakerAndBallotItem,
		Speaker:               speaker,
		BallotItem:            item,
		GoogleCivicElectionID: ids.GoogleCivicElectionID,
		VoteSmartTimeSpan:     strings.TrimSpace(ids.VoteSmartTimeSpan),
	}, nil
}

func uniqueSpeaker(ids PositionIdentifiers) (Speaker, error) {
	var found []Speaker
	if v := strings.TrimSpace(ids.OrganizationWeVoteID); v != "" {
		found = append(found, Speaker{Kind: SpeakerOrganization, WeVoteID: v})
	}
	if v := strings.TrimSpace(ids.PublicFigureWeVoteID); v != "" {
		found = append(found, Speaker{Kind: SpeakerPublicFigure, WeVoteID: v})
	}
	if v := strings.TrimSpace(ids.VoterWeVoteID); v != "" {
		found = append(found, Speaker{Kind: SpeakerVoter, WeVoteID: v})
	}
	switch len(found) {
	case 0:
		return Speaker{}, ErrNoUniqueActorVariables
	case 1:
		return found[0], nil
	}
	return Speaker{}, ErrTooManyUniqueActorVariables
}

func uniqueBallotItem(ids PositionIdentifiers) (BallotItem, error) {
	var found []BallotItem
	if v := strings.TrimSpace(ids.ContestOfficeWeVoteID); v != "" {
		found = append(found, BallotItem{Kind: BallotItemOffice, WeVoteID: v})
	}
	if v := strings.TrimSpace(ids.CandidateWeVoteID); v != "" {
		found = append(found, BallotItem{Kind: BallotItemCandidate, WeVoteID: v})
	}
	if v := strings.TrimSpace(ids.ContestMeasureWeVoteID); v != "" {
		found = append(found, BallotItem{Kind: BallotItemMeasure, WeVoteID: v})
	}
	switch len(found) {
	case 0:
		return BallotItem{}, ErrNoUniqueBallotItemVariables
	case 1:
		return found[0], nil
	}
	return BallotItem{}, ErrTooManyUniqueBallotItemVariables
}

// PositionMatch filters position rows. Zero-valued fields do not filter.
type PositionMatch struct {
	Speaker               Speaker
	BallotItem            BallotItem
	GoogleCivicElectionID int64
	VoteSmartTimeSpan     string
	StateCode             string
}
