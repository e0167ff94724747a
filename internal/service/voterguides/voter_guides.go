package voterguides

import (
	"context"
	"errors"
	"fmt"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// VoterGuideResult is the outcome of a voter guide refresh.
type VoterGuideResult struct {
	Success    bool
	Status     model.Status
	VoterGuide model.VoterGuide
	Created    bool
}

// UpdateOrCreateOrganizationVoterGuideByElectionID refreshes the voter guide
// of one organization for one election from the organization record and its
// public position count.
func (s *Service) UpdateOrCreateOrganizationVoterGuideByElectionID(ctx context.Context, organizationWeVoteID string, googleCivicElectionID int64) (VoterGuideResult, error) {
	var res VoterGuideResult
	if googleCivicElectionID <= 0 {
		res.Status.Add(StatusElectionIDMissing)
		return res, nil
	}
	org, err := s.store.GetOrganizationByWeVoteID(ctx, organizationWeVoteID)
	if errors.Is(err, storage.ErrNotFound) {
		res.Status.Add(StatusOrganizationNotFound)
		return res, nil
	}
	if err != nil {
		return VoterGuideResult{}, fmt.Errorf("voterguides: get organization: %w", err)
	}
	count, err := s.store.CountPublicPositions(ctx, org.WeVoteID, googleCivicElectionID)
	if err != nil {
		return VoterGuideResult{}, fmt.Errorf("voterguides: count positions: %w", err)
	}

	apply := func(g *model.VoterGuide) {
		g.OwnerType = model.OwnerOrganization
		g.DisplayName = org.OrganizationName
		g.TwitterHandle = org.OrganizationTwitterHandle
		g.ImageURL = org.OrganizationImageURL
		g.StateCode = org.StateServedCode
		g.NumberOfPositions = count
	}

	existing, err := s.store.GetVoterGuide(ctx, org.WeVoteID, googleCivicElectionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return VoterGuideResult{}, fmt.Errorf("voterguides: get voter guide: %w", err)
	}
	if err == nil {
		apply(&existing)
		saved, err := s.store.UpdateVoterGuide(ctx, existing)
		if err != nil {
			return VoterGuideResult{}, fmt.Errorf("voterguides: update voter guide: %w", err)
		}
		res.Success = true
		res.VoterGuide = saved
		res.Status.Add(StatusVoterGuideUpdated)
		return res, nil
	}

	g := model.VoterGuide{OrganizationWeVoteID: org.WeVoteID, GoogleCivicElectionID: googleCivicElectionID}
	apply(&g)
	created, err := s.store.CreateVoterGuide(ctx, g)
	if errors.Is(err, storage.ErrDuplicate) {
		return s.UpdateOrCreateOrganizationVoterGuideByElectionID(ctx, organizationWeVoteID, googleCivicElectionID)
	}
	if err != nil {
		return VoterGuideResult{}, fmt.Errorf("voterguides: create voter guide: %w", err)
	}
	res.Success = true
	res.Created = true
	res.VoterGuide = created
	res.Status.Add(StatusVoterGuideCreated)
	return res, nil
}

// VoterGuidesResult lists voter guides.
type VoterGuidesResult struct {
	Success     bool
	Status      model.Status
	VoterGuides []model.VoterGuide
}

// ListVoterGuides returns the voter guides matching f.
func (s *Service) ListVoterGuides(ctx context.Context, f model.VoterGuideFilter) (VoterGuidesResult, error) {
	guides, err := s.store.ListVoterGuides(ctx, f)
	if err != nil {
		return VoterGuidesResult{}, fmt.Errorf("voterguides: list voter guides: %w", err)
	}
	res := VoterGuidesResult{Success: true, VoterGuides: guides}
	res.Status.Add(StatusVoterGuidesRetrieved)
	return res, nil
}
