package voterguides

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wevote/wevoteserver/internal/matching"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// ExtractOptions controls ExtractPossibleEndorsements.
type ExtractOptions struct {
	// SaveMatches writes matched ids back onto the possibility rows.
	SaveMatches bool
}

// PossibleEndorsement is one possibility row after matching.
type PossibleEndorsement struct {
	PossibilityPositionID      int64           `json:"possibility_position_id"`
	PossibilityPositionNumber  int             `json:"possibility_position_number"`
	BallotItemName             string          `json:"ballot_item_name"`
	BallotItemStateCode        string          `json:"ballot_item_state_code"`
	CandidateWeVoteID          string          `json:"candidate_we_vote_id"`
	CandidateName              string          `json:"candidate_name"`
	MeasureWeVoteID            string          `json:"measure_we_vote_id"`
	MeasureTitle               string          `json:"measure_title"`
	OrganizationWeVoteID       string          `json:"organization_we_vote_id"`
	OrganizationName           string          `json:"organization_name"`
	OrganizationTwitterHandle  string          `json:"organization_twitter_handle"`
	PositionStance             model.Stance    `json:"position_stance"`
	StatementText              string          `json:"statement_text"`
	MoreInfoURL                string          `json:"more_info_url"`
	PositionWeVoteID           string          `json:"position_we_vote_id"`
	GoogleCivicElectionID      int64           `json:"google_civic_election_id"`
	PossibilityShouldBeIgnored bool            `json:"possibility_should_be_ignored"`
	PositionShouldBeRemoved    bool            `json:"position_should_be_removed"`
	BallotItemMatch            matching.Method `json:"ballot_item_match"`
	OrganizationMatch          matching.Method `json:"organization_match"`
}

// Matched reports whether both the speaker and the ballot item are known.
func (pe PossibleEndorsement) Matched() bool {
	return pe.OrganizationWeVoteID != "" && (pe.CandidateWeVoteID != "" || pe.MeasureWeVoteID != "")
}

func (pe PossibleEndorsement) ballotItem() model.BallotItem {
	switch {
	case pe.CandidateWeVoteID != "":
		return model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: pe.CandidateWeVoteID}
	case pe.MeasureWeVoteID != "":
		return model.BallotItem{Kind: model.BallotItemMeasure, WeVoteID: pe.MeasureWeVoteID}
	}
	return model.BallotItem{}
}

func endorsementFromRow(row model.VoterGuidePossibilityPosition) PossibleEndorsement {
	return PossibleEndorsement{
		PossibilityPositionID:      row.ID,
		PossibilityPositionNumber:  row.PossibilityPositionNumber,
		BallotItemName:             row.BallotItemName,
		BallotItemStateCode:        row.BallotItemStateCode,
		CandidateWeVoteID:          row.CandidateWeVoteID,
		MeasureWeVoteID:            row.MeasureWeVoteID,
		OrganizationWeVoteID:       row.OrganizationWeVoteID,
		OrganizationName:           row.OrganizationName,
		OrganizationTwitterHandle:  row.OrganizationTwitterHandle,
		PositionStance:             row.PositionStance,
		StatementText:              row.StatementText,
		MoreInfoURL:                row.MoreInfoURL,
		PositionWeVoteID:           row.PositionWeVoteID,
		GoogleCivicElectionID:      row.GoogleCivicElectionID,
		PossibilityShouldBeIgnored: row.PossibilityShouldBeIgnored,
		PositionShouldBeRemoved:    row.PositionShouldBeRemoved,
	}
}

// ExtractResult is the outcome of ExtractPossibleEndorsements.
type ExtractResult struct {
	Success        bool
	Status         model.Status
	Possibility    model.VoterGuidePossibility
	Endorsements   []PossibleEndorsement
	MatchedCount   int
	UnmatchedCount int
}

// extraction carries the per-call state of one ExtractPossibleEndorsements run.
type extraction struct {
	s      *Service
	poss   model.VoterGuidePossibility
	cache  *matching.Cache
	years  []int
	status *model.Status
}

// lookupFailed records a failed lookup and lets processing continue.
func (x *extraction) lookupFailed(what string, err error) {
	x.s.logger.Warn("voter guide possibility lookup failed",
		"voter_guide_possibility_id", x.poss.ID, "lookup", what, "error", err)
	x.status.Addf("%s: %s", StatusLookupFailed, what)
}

// ExtractPossibleEndorsements matches every row of a possibility against the
// candidates, measures and organizations on file. Lookup failures are logged
// and recorded in the status; the remaining rows are still processed.
func (s *Service) ExtractPossibleEndorsements(ctx context.Context, possibilityID int64, opts ExtractOptions) (ExtractResult, error) {
	start := time.Now()
	var res ExtractResult

	poss, err := s.store.GetPossibilityByID(ctx, possibilityID)
	if errors.Is(err, storage.ErrNotFound) {
		res.Status.Add(StatusPossibilityNotFound)
		return res, nil
	}
	if err != nil {
		return ExtractResult{}, fmt.Errorf("voterguides: extract: %w", err)
	}
	res.Possibility = poss

	rows, err := s.store.ListPossibilityPositions(ctx, poss.ID)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("voterguides: extract rows: %w", err)
	}

	x := &extraction{
		s:      s,
		poss:   poss,
		cache:  matching.NewCache(s.store),
		years:  electionYears(s.now(), poss.Type),
		status: &res.Status,
	}

	var endorsements []PossibleEndorsement
	switch poss.Type {
	case model.PossibilityOrganizationEndorsingCandidates:
		endorsements = x.organizationPage(ctx, rows)
	case model.PossibilityEndorsementsForCandidate:
		endorsements = x.candidatePage(ctx, rows)
	default:
		res.Status.Add(StatusPossibilityTypeUnknown)
		for _, row := range rows {
			endorsements = append(endorsements, endorsementFromRow(row))
		}
	}

	for i := range endorsements {
		pe := &endorsements[i]
		if pe.Matched() && pe.PositionWeVoteID == "" {
			pe.PositionWeVoteID = x.existingPosition(ctx, *pe)
		}
		if pe.Matched() {
			res.MatchedCount++
		} else {
			res.UnmatchedCount++
		}
		if opts.SaveMatches {
			x.saveMatch(ctx, rows[i], *pe)
		}
	}

	res.Success = true
	res.Endorsements = endorsements
	res.Status.Addf("%s: %d matched, %d unmatched", StatusEndorsementsExtracted, res.MatchedCount, res.UnmatchedCount)

	s.extractDuration.Record(ctx, telemetry.DurationMS(start),
		metric.WithAttributes(attribute.String("possibility_type", string(poss.Type))))
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("voter_guide_possibility_id", poss.ID),
		attribute.Int("matched", res.MatchedCount),
		attribute.Int("unmatched", res.UnmatchedCount),
	)
	return res, nil
}

// organizationPage handles ORGANIZATION_ENDORSING_CANDIDATES: the organization
// is fixed by the possibility and every row names a ballot item.
func (x *extraction) organizationPage(ctx context.Context, rows []model.VoterGuidePossibilityPosition) []PossibleEndorsement {
	org, method, found, err := x.cache.Organization(ctx, matching.OrganizationKey{
		WeVoteID:      x.poss.OrganizationWeVoteID,
		TwitterHandle: x.poss.OrganizationTwitterHandle,
		Name:          x.poss.OrganizationName,
	})
	if err != nil {
		x.lookupFailed("organization", err)
	} else if !found {
		x.status.Add(StatusOrganizationNotMatched)
	}

	out := make([]PossibleEndorsement, 0, len(rows))
	for _, row := range rows {
		pe := endorsementFromRow(row)
		if found {
			pe.OrganizationWeVoteID = org.WeVoteID
			pe.OrganizationName = org.OrganizationName
			pe.OrganizationTwitterHandle = org.OrganizationTwitterHandle
			pe.OrganizationMatch = method
		}
		x.matchBallotItem(ctx, row, &pe)
		out = append(out, pe)
	}
	return out
}

func (x *extraction) matchBallotItem(ctx context.Context, row model.VoterGuidePossibilityPosition, pe *PossibleEndorsement) {
	switch {
	case row.CandidateWeVoteID != "":
		pe.BallotItemMatch = matching.MethodWeVoteID
		c, err := x.s.store.GetCandidateByWeVoteID(ctx, row.CandidateWeVoteID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			x.lookupFailed("candidate "+row.CandidateWeVoteID, err)
		}
		pe.CandidateName = c.CandidateName
		return
	case row.MeasureWeVoteID != "":
		pe.BallotItemMatch = matching.MethodWeVoteID
		m, err := x.s.store.GetMeasureByWeVoteID(ctx, row.MeasureWeVoteID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			x.lookupFailed("measure "+row.MeasureWeVoteID, err)
		}
		pe.MeasureTitle = m.MeasureTitle
		return
	}

	state := row.BallotItemStateCode
	if state == "" {
		state = x.poss.StateCode
	}
	candidates, err := x.cache.Candidates(ctx, state, x.years)
	if err != nil {
		x.lookupFailed("candidates", err)
	} else if c, method, ok := matching.MatchCandidate(row.BallotItemName, row.CandidateTwitterHandle, candidates); ok {
		pe.CandidateWeVoteID = c.WeVoteID
		pe.CandidateName = c.CandidateName
		pe.BallotItemMatch = method
		if pe.GoogleCivicElectionID == 0 {
			pe.GoogleCivicElectionID = c.GoogleCivicElectionID
		}
		return
	}

	measures, err := x.cache.Measures(ctx, state, x.years)
	if err != nil {
		x.lookupFailed("measures", err)
		return
	}
	if m, method, ok := matching.MatchMeasure(row.BallotItemName, measures); ok {
		pe.MeasureWeVoteID = m.WeVoteID
		pe.MeasureTitle = m.MeasureTitle
		pe.BallotItemMatch = method
		if pe.GoogleCivicElectionID == 0 {
			pe.GoogleCivicElectionID = m.GoogleCivicElectionID
		}
	}
}

// candidatePage handles ENDORSEMENTS_FOR_CANDIDATE: the candidate is fixed by
// the possibility and every row names an endorsing organization.
func (x *extraction) candidatePage(ctx context.Context, rows []model.VoterGuidePossibilityPosition) []PossibleEndorsement {
	cand, method, found := x.fixedCandidate(ctx)
	if !found {
		x.status.Add(StatusCandidateNotMatched)
	}

	out := make([]PossibleEndorsement, 0, len(rows))
	for _, row := range rows {
		pe := endorsementFromRow(row)
		if found {
			pe.CandidateWeVoteID = cand.WeVoteID
			pe.CandidateName = cand.CandidateName
			pe.BallotItemMatch = method
			if pe.GoogleCivicElectionID == 0 {
				pe.GoogleCivicElectionID = cand.GoogleCivicElectionID
			}
		}
		name := row.OrganizationName
		if name == "" {
			name = row.BallotItemName
		}
		org, orgMethod, ok, err := x.cache.Organization(ctx, matching.OrganizationKey{
			WeVoteID:      row.OrganizationWeVoteID,
			TwitterHandle: row.OrganizationTwitterHandle,
			Name:          name,
		})
		switch {
		case err != nil:
			x.lookupFailed("organization "+name, err)
		case ok:
			pe.OrganizationWeVoteID = org.WeVoteID
			pe.OrganizationName = org.OrganizationName
			pe.OrganizationTwitterHandle = org.OrganizationTwitterHandle
			pe.OrganizationMatch = orgMethod
		}
		out = append(out, pe)
	}
	return out
}

func (x *extraction) fixedCandidate(ctx context.Context) (model.Candidate, matching.Method, bool) {
	if x.poss.CandidateWeVoteID != "" {
		c, err := x.s.store.GetCandidateByWeVoteID(ctx, x.poss.CandidateWeVoteID)
		if err == nil {
			return c, matching.MethodWeVoteID, true
		}
		if !errors.Is(err, storage.ErrNotFound) {
			x.lookupFailed("candidate "+x.poss.CandidateWeVoteID, err)
			return model.Candidate{}, matching.MethodNone, false
		}
	}
	candidates, err := x.cache.Candidates(ctx, x.poss.StateCode, x.years)
	if err != nil {
		x.lookupFailed("candidates", err)
		return model.Candidate{}, matching.MethodNone, false
	}
	return matching.MatchCandidate(x.poss.CandidateName, x.poss.CandidateTwitterHandle, candidates)
}

// existingPosition returns the we_vote_id of a position, in either table,
// already held by the endorsement's organization on its ballot item.
func (x *extraction) existingPosition(ctx context.Context, pe PossibleEndorsement) string {
	match := model.PositionMatch{
		Speaker:    model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: pe.OrganizationWeVoteID},
		BallotItem: pe.ballotItem(),
	}
	for _, vis := range []model.Visibility{model.VisibilityPublic, model.VisibilityFriendsOnly} {
		found, err := x.s.store.FindPositions(ctx, vis, match, 1)
		if err != nil {
			x.lookupFailed("existing position", err)
			return ""
		}
		if len(found) > 0 {
			return found[0].WeVoteID
		}
	}
	return ""
}

// saveMatch writes newly matched ids onto the row. Failures are recorded and
// do not stop the run.
func (x *extraction) saveMatch(ctx context.Context, row model.VoterGuidePossibilityPosition, pe PossibleEndorsement) {
	updated := row
	updated.CandidateWeVoteID = pe.CandidateWeVoteID
	updated.MeasureWeVoteID = pe.MeasureWeVoteID
	updated.OrganizationWeVoteID = pe.OrganizationWeVoteID
	if updated.OrganizationName == "" {
		updated.OrganizationName = pe.OrganizationName
	}
	if updated.OrganizationTwitterHandle == "" {
		updated.OrganizationTwitterHandle = pe.OrganizationTwitterHandle
	}
	updated.PositionWeVoteID = pe.PositionWeVoteID
	updated.GoogleCivicElectionID = pe.GoogleCivicElectionID
	if updated == row {
		return
	}
	if _, err := x.s.store.UpdatePossibilityPosition(ctx, updated); err != nil {
		x.s.logger.Warn("save possibility match failed",
			"possibility_position_id", row.ID, "error", err)
		x.status.Addf("%s: row %d", StatusMatchSaveFailed, row.PossibilityPositionNumber)
	}
}
