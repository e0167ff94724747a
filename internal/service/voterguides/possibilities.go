package voterguides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// PossibilityInput carries the fields of a voterGuidePossibilitySave call.
// Empty strings and nil flags leave stored values unchanged.
type PossibilityInput struct {
	ID                        int64
	URL                       string
	Type                      string
	OrganizationName          string
	OrganizationTwitterHandle string
	OrganizationWeVoteID      string
	CandidateName             string
	CandidateTwitterHandle    string
	CandidateWeVoteID         string
	StateCode                 string
	GoogleCivicElectionID     int64
	VoterWhoSubmittedWeVoteID string
	ContributorComments       string
	ContributorEmail          string
	IgnoreThisSource          *bool
	DoneVerified              *bool
	HideFromActiveReview      *bool
}

func (in PossibilityInput) applyTo(v *model.VoterGuidePossibility) {
	set := func(dst *string, val string) {
		if val = strings.TrimSpace(val); val != "" {
			*dst = val
		}
	}
	setFlag := func(dst *bool, val *bool) {
		if val != nil {
			*dst = *val
		}
	}
	set(&v.URL, in.URL)
	if in.Type != "" {
		v.Type = model.ParsePossibilityType(in.Type)
	}
	set(&v.OrganizationName, in.OrganizationName)
	set(&v.OrganizationTwitterHandle, in.OrganizationTwitterHandle)
	set(&v.OrganizationWeVoteID, in.OrganizationWeVoteID)
	set(&v.CandidateName, in.CandidateName)
	set(&v.CandidateTwitterHandle, in.CandidateTwitterHandle)
	set(&v.CandidateWeVoteID, in.CandidateWeVoteID)
	if in.StateCode != "" {
		v.StateCode = strings.ToUpper(strings.TrimSpace(in.StateCode))
	}
	if in.GoogleCivicElectionID > 0 {
		v.GoogleCivicElectionID = in.GoogleCivicElectionID
	}
	set(&v.VoterWhoSubmittedWeVoteID, in.VoterWhoSubmittedWeVoteID)
	set(&v.ContributorComments, in.ContributorComments)
	set(&v.ContributorEmail, in.ContributorEmail)
	setFlag(&v.IgnoreThisSource, in.IgnoreThisSource)
	setFlag(&v.DoneVerified, in.DoneVerified)
	setFlag(&v.HideFromActiveReview, in.HideFromActiveReview)
}

// PossibilityResult is the outcome of a single-possibility operation.
type PossibilityResult struct {
	Success     bool
	Status      model.Status
	Possibility model.VoterGuidePossibility
	Created     bool
}

// CreateOrUpdatePossibility saves a possibility keyed on its URL, or on ID
// when one is given. Saving a URL that already exists updates that row.
func (s *Service) CreateOrUpdatePossibility(ctx context.Context, in PossibilityInput) (PossibilityResult, error) {
	var res PossibilityResult
	in.URL = strings.TrimSpace(in.URL)

	var (
		existing model.VoterGuidePossibility
		err      error
	)
	switch {
	case in.ID > 0:
		existing, err = s.store.GetPossibilityByID(ctx, in.ID)
	case in.URL != "":
		existing, err = s.store.GetPossibilityByURL(ctx, in.URL)
	default:
		res.Status.Add(StatusPossibilityURLMissing)
		return res, nil
	}

	switch {
	case err == nil:
		return s.updatePossibility(ctx, existing, in)
	case !errors.Is(err, storage.ErrNotFound):
		return PossibilityResult{}, fmt.Errorf("voterguides: get possibility: %w", err)
	case in.ID > 0:
		res.Status.Add(StatusPossibilityNotFound)
		return res, nil
	}

	v := model.VoterGuidePossibility{Type: model.PossibilityUnknownType}
	in.applyTo(&v)
	created, err := s.store.CreatePossibility(ctx, v)
	if errors.Is(err, storage.ErrDuplicate) {
		// Lost a race with another save of the same URL.
		existing, err = s.store.GetPossibilityByURL(ctx, in.URL)
		if err != nil {
			return PossibilityResult{}, fmt.Errorf("voterguides: reload possibility: %w", err)
		}
		return s.updatePossibility(ctx, existing, in)
	}
	if err != nil {
		return PossibilityResult{}, fmt.Errorf("voterguides: create possibility: %w", err)
	}
	s.logger.Info("voter guide possibility created",
		"voter_guide_possibility_id", created.ID, "url", created.URL, "type", string(created.Type))
	res.Success = true
	res.Created = true
	res.Possibility = created
	res.Status.Add(StatusPossibilityCreated)
	return res, nil
}

func (s *Service) updatePossibility(ctx context.Context, v model.VoterGuidePossibility, in PossibilityInput) (PossibilityResult, error) {
	in.applyTo(&v)
	saved, err := s.store.UpdatePossibility(ctx, v)
	if err != nil {
		return PossibilityResult{}, fmt.Errorf("voterguides: update possibility %d: %w", v.ID, err)
	}
	res := PossibilityResult{Success: true, Possibility: saved}
	res.Status.Add(StatusPossibilityUpdated)
	return res, nil
}

// RetrievePossibility looks a possibility up by id, or by url when id is zero.
func (s *Service) RetrievePossibility(ctx context.Context, id int64, url string) (PossibilityResult, error) {
	var res PossibilityResult
	var (
		v   model.VoterGuidePossibility
		err error
	)
	switch {
	case id > 0:
		v, err = s.store.GetPossibilityByID(ctx, id)
	case strings.TrimSpace(url) != "":
		v, err = s.store.GetPossibilityByURL(ctx, strings.TrimSpace(url))
	default:
		res.Status.Add(StatusPossibilityIDMissing)
		return res, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		res.Success = true
		res.Status.Add(StatusPossibilityNotFound)
		return res, nil
	}
	if err != nil {
		return PossibilityResult{}, fmt.Errorf("voterguides: retrieve possibility: %w", err)
	}
	res.Success = true
	res.Possibility = v
	res.Status.Add(StatusPossibilityFound)
	return res, nil
}

// ListPossibilities returns possibilities under review, newest first.
func (s *Service) ListPossibilities(ctx context.Context, f model.PossibilityFilter) ([]model.VoterGuidePossibility, error) {
	out, err := s.store.ListPossibilities(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("voterguides: list possibilities: %w", err)
	}
	return out, nil
}

// DeletePossibility removes a possibility and all of its rows.
func (s *Service) DeletePossibility(ctx context.Context, id int64) (PossibilityResult, error) {
	var res PossibilityResult
	err := s.store.DeletePossibility(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		res.Status.Add(StatusPossibilityNotFound)
		return res, nil
	}
	if err != nil {
		return PossibilityResult{}, fmt.Errorf("voterguides: delete possibility %d: %w", id, err)
	}
	s.logger.Info("voter guide possibility deleted", "voter_guide_possibility_id", id)
	res.Success = true
	res.Status.Add(StatusPossibilityDeleted)
	return res, nil
}

// PossibilityPositionsResult lists the rows of one possibility.
type PossibilityPositionsResult struct {
	Success   bool
	Status    model.Status
	Positions []model.VoterGuidePossibilityPosition
}

// ListPossibilityPositions returns a possibility's rows in position-number order.
func (s *Service) ListPossibilityPositions(ctx context.Context, possibilityID int64) (PossibilityPositionsResult, error) {
	var res PossibilityPositionsResult
	if possibilityID <= 0 {
		res.Status.Add(StatusPossibilityIDMissing)
		return res, nil
	}
	if _, err := s.store.GetPossibilityByID(ctx, possibilityID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.Status.Add(StatusPossibilityNotFound)
			return res, nil
		}
		return PossibilityPositionsResult{}, fmt.Errorf("voterguides: get possibility: %w", err)
	}
	rows, err := s.store.ListPossibilityPositions(ctx, possibilityID)
	if err != nil {
		return PossibilityPositionsResult{}, fmt.Errorf("voterguides: list possibility positions: %w", err)
	}
	res.Success = true
	res.Positions = rows
	res.Status.Add(StatusPossibilityPositionsFound)
	return res, nil
}

// PossibilityPositionInput carries a voterGuidePossibilityPositionSave call.
// ID, or else PossibilityPositionNumber, selects an existing row to update;
// otherwise a row is appended. Empty strings and nil flags leave stored values
// unchanged.
type PossibilityPositionInput struct {
	ID                         int64
	VoterGuidePossibilityID    int64
	PossibilityPositionNumber  int
	BallotItemName             string
	BallotItemStateCode        string
	CandidateWeVoteID          string
	CandidateTwitterHandle     string
	MeasureWeVoteID            string
	OrganizationName           string
	OrganizationTwitterHandle  string
	OrganizationWeVoteID       string
	PositionStance             model.Stance
	StatementText              string
	MoreInfoURL                string
	GoogleCivicElectionID      int64
	PossibilityShouldBeIgnored *bool
	PositionShouldBeRemoved    *bool
}

func (in PossibilityPositionInput) applyTo(pp *model.VoterGuidePossibilityPosition) {
	set := func(dst *string, val string) {
		if val = strings.TrimSpace(val); val != "" {
			*dst = val
		}
	}
	set(&pp.BallotItemName, in.BallotItemName)
	if in.BallotItemStateCode != "" {
		pp.BallotItemStateCode = strings.ToUpper(strings.TrimSpace(in.BallotItemStateCode))
	}
	set(&pp.CandidateWeVoteID, in.CandidateWeVoteID)
	set(&pp.CandidateTwitterHandle, in.CandidateTwitterHandle)
	set(&pp.MeasureWeVoteID, in.MeasureWeVoteID)
	set(&pp.OrganizationName, in.OrganizationName)
	set(&pp.OrganizationTwitterHandle, in.OrganizationTwitterHandle)
	set(&pp.OrganizationWeVoteID, in.OrganizationWeVoteID)
	if in.PositionStance != "" {
		pp.PositionStance = in.PositionStance
	}
	set(&pp.StatementText, in.StatementText)
	set(&pp.MoreInfoURL, in.MoreInfoURL)
	if in.GoogleCivicElectionID > 0 {
		pp.GoogleCivicElectionID = in.GoogleCivicElectionID
	}
	if in.PossibilityShouldBeIgnored != nil {
		pp.PossibilityShouldBeIgnored = *in.PossibilityShouldBeIgnored
	}
	if in.PositionShouldBeRemoved != nil {
		pp.PositionShouldBeRemoved = *in.PositionShouldBeRemoved
	}
}

// PossibilityPositionResult is the outcome of SavePossibilityPosition.
type PossibilityPositionResult struct {
	Success  bool
	Status   model.Status
	Position model.VoterGuidePossibilityPosition
	Created  bool
}

// SavePossibilityPosition creates or updates one row of a possibility.
func (s *Service) SavePossibilityPosition(ctx context.Context, in PossibilityPositionInput) (PossibilityPositionResult, error) {
	var res PossibilityPositionResult
	if in.VoterGuidePossibilityID <= 0 {
		res.Status.Add(StatusPossibilityIDMissing)
		return res, nil
	}
	rows, err := s.ListPossibilityPositions(ctx, in.VoterGuidePossibilityID)
	if err != nil {
		return PossibilityPositionResult{}, err
	}
	if !rows.Success {
		res.Status = rows.Status
		return res, nil
	}

	var target *model.VoterGuidePossibilityPosition
	if in.ID > 0 {
		pp, err := s.store.GetPossibilityPosition(ctx, in.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return PossibilityPositionResult{}, fmt.Errorf("voterguides: get possibility position: %w", err)
		}
		if err != nil || pp.VoterGuidePossibilityID != in.VoterGuidePossibilityID {
			res.Status.Add(StatusPossibilityPositionNotOwn)
			return res, nil
		}
		target = &pp
	} else if in.PossibilityPositionNumber > 0 {
		for i := range rows.Positions {
			if rows.Positions[i].PossibilityPositionNumber == in.PossibilityPositionNumber {
				target = &rows.Positions[i]
				break
			}
		}
	}

	if target != nil {
		in.applyTo(target)
		saved, err := s.store.UpdatePossibilityPosition(ctx, *target)
		if err != nil {
			return PossibilityPositionResult{}, fmt.Errorf("voterguides: update possibility position: %w", err)
		}
		res.Success = true
		res.Position = saved
		res.Status.Add(StatusPossibilityPositionSaved)
		return res, nil
	}

	pp := model.VoterGuidePossibilityPosition{
		VoterGuidePossibilityID:   in.VoterGuidePossibilityID,
		PossibilityPositionNumber: in.PossibilityPositionNumber,
	}
	in.applyTo(&pp)
	created, err := s.store.CreatePossibilityPosition(ctx, pp)
	if err != nil {
		return PossibilityPositionResult{}, fmt.Errorf("voterguides: create possibility position: %w", err)
	}
	res.Success = true
	res.Created = true
	res.Position = created
	res.Status.Add(StatusPossibilityPositionSaved)
	return res, nil
}
