package voterguides

import (
	"context"
	"fmt"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/positions"
)

// PromoteResult is the outcome of PromotePossibilityPositions.
type PromoteResult struct {
	Success     bool
	Status      model.Status
	Promoted    int
	Removed     int
	Skipped     int
	VoterGuides []model.VoterGuide
}

type guideKey struct {
	organizationWeVoteID  string
	googleCivicElectionID int64
}

// PromotePossibilityPositions turns the matched rows of a possibility into
// public positions. Rows flagged for removal are deleted, ignored or
// unmatched rows are skipped, and every voter guide touched is refreshed.
func (s *Service) PromotePossibilityPositions(ctx context.Context, possibilityID int64) (PromoteResult, error) {
	var res PromoteResult
	ext, err := s.ExtractPossibleEndorsements(ctx, possibilityID, ExtractOptions{SaveMatches: true})
	if err != nil {
		return PromoteResult{}, err
	}
	res.Status.Merge(ext.Status)
	if !ext.Success {
		return res, nil
	}

	var touched []guideKey
	seen := make(map[guideKey]bool)
	for _, pe := range ext.Endorsements {
		if pe.PositionShouldBeRemoved {
			if err := s.store.DeletePossibilityPosition(ctx, pe.PossibilityPositionID); err != nil {
				return PromoteResult{}, fmt.Errorf("voterguides: remove row %d: %w", pe.PossibilityPositionID, err)
			}
			res.Removed++
			continue
		}
		if pe.PossibilityShouldBeIgnored || !pe.Matched() {
			res.Skipped++
			continue
		}

		electionID := pe.GoogleCivicElectionID
		if electionID == 0 {
			electionID = ext.Possibility.GoogleCivicElectionID
		}
		ids := model.PositionIdentifiers{
			PositionWeVoteID:      pe.PositionWeVoteID,
			OrganizationWeVoteID:  pe.OrganizationWeVoteID,
			CandidateWeVoteID:     pe.CandidateWeVoteID,
			GoogleCivicElectionID: electionID,
		}
		if ids.CandidateWeVoteID == "" {
			ids.ContestMeasureWeVoteID = pe.MeasureWeVoteID
		}
		displayName := pe.CandidateName
		if displayName == "" {
			displayName = pe.MeasureTitle
		}
		if displayName == "" {
			displayName = pe.BallotItemName
		}
		saved, err := s.positions.UpdateOrCreatePosition(ctx, positions.UpdateOrCreateInput{
			Identifiers: ids,
			Fields: positions.PositionFields{
				Stance:                pe.PositionStance,
				StatementText:         pe.StatementText,
				MoreInfoURL:           pe.MoreInfoURL,
				BallotItemDisplayName: displayName,
				SpeakerDisplayName:    pe.OrganizationName,
				StateCode:             firstNonEmpty(pe.BallotItemStateCode, ext.Possibility.StateCode),
			},
			SetAsPublicPosition: true,
		})
		if err != nil {
			return PromoteResult{}, fmt.Errorf("voterguides: promote row %d: %w", pe.PossibilityPositionID, err)
		}
		if !saved.Success {
			res.Status.Merge(saved.Status)
			res.Skipped++
			continue
		}
		// An existing friends-only position is updated where it sits.
		if !saved.IsPublicPosition {
			moved, err := s.positions.TransferToPublicPosition(ctx, saved.Position.WeVoteID)
			if err != nil {
				return PromoteResult{}, fmt.Errorf("voterguides: publish row %d: %w", pe.PossibilityPositionID, err)
			}
			if !moved.Success {
				res.Status.Merge(moved.Status)
				res.Skipped++
				continue
			}
			saved.Position = moved.Position
		}
		res.Promoted++

		if saved.Position.WeVoteID != pe.PositionWeVoteID {
			row, err := s.store.GetPossibilityPosition(ctx, pe.PossibilityPositionID)
			if err != nil {
				return PromoteResult{}, fmt.Errorf("voterguides: reload row %d: %w", pe.PossibilityPositionID, err)
			}
			row.PositionWeVoteID = saved.Position.WeVoteID
			if _, err := s.store.UpdatePossibilityPosition(ctx, row); err != nil {
				return PromoteResult{}, fmt.Errorf("voterguides: link row %d: %w", pe.PossibilityPositionID, err)
			}
		}

		key := guideKey{pe.OrganizationWeVoteID, electionID}
		if electionID > 0 && !seen[key] {
			seen[key] = true
			touched = append(touched, key)
		}
	}
	s.promoted.Add(ctx, int64(res.Promoted))

	for _, k := range touched {
		g, err := s.UpdateOrCreateOrganizationVoterGuideByElectionID(ctx, k.organizationWeVoteID, k.googleCivicElectionID)
		if err != nil {
			return PromoteResult{}, err
		}
		res.Status.Merge(g.Status)
		if g.Success {
			res.VoterGuides = append(res.VoterGuides, g.VoterGuide)
		}
	}

	s.logger.Info("voter guide possibility promoted",
		"voter_guide_possibility_id", possibilityID,
		"promoted", res.Promoted, "removed", res.Removed, "skipped", res.Skipped)
	res.Success = true
	res.Status.Addf("%s: %d promoted", StatusPromoteComplete, res.Promoted)
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
