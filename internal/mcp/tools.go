package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
)

const (
	defaultToolLimit = 25
	maxToolLimit     = 200
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_position_retrieve",
			mcplib.WithDescription(`Look up one position by its we_vote_id.

Both the public and the friends-only tables are searched; the result's
visibility field says which one held the row.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("position_we_vote_id",
				mcplib.Description("The position's we_vote_id, e.g. wv01pos123"),
				mcplib.Required(),
			),
		),
		s.handlePositionRetrieve,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_positions_for_ballot_item",
			mcplib.WithDescription("List the public positions about one office, candidate or measure."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("kind_of_ballot_item",
				mcplib.Description("Which kind of ballot item the id names"),
				mcplib.Enum(string(model.BallotItemOffice), string(model.BallotItemCandidate), string(model.BallotItemMeasure)),
				mcplib.Required(),
			),
			mcplib.WithString("ballot_item_we_vote_id",
				mcplib.Description("The ballot item's we_vote_id"),
				mcplib.Required(),
			),
			mcplib.WithNumber("google_civic_election_id",
				mcplib.Description("Optional: only positions for this election"),
			),
		),
		s.handlePositionsForBallotItem,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_voter_guides",
			mcplib.WithDescription("List voter guides for an organization, an election, or both."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("organization_we_vote_id",
				mcplib.Description("The organization's we_vote_id"),
			),
			mcplib.WithNumber("google_civic_election_id",
				mcplib.Description("The Google Civic election id"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of voter guides to return"),
				mcplib.Min(1),
				mcplib.Max(maxToolLimit),
				mcplib.DefaultNumber(defaultToolLimit),
			),
		),
		s.handleVoterGuides,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_possibilities_for_review",
			mcplib.WithDescription(`List voter guide possibilities waiting for review, newest first.

Ignored, verified and hidden possibilities are left out.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("state_code",
				mcplib.Description("Optional two-letter state code"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of possibilities to return"),
				mcplib.Min(1),
				mcplib.Max(maxToolLimit),
				mcplib.DefaultNumber(defaultToolLimit),
			),
		),
		s.handlePossibilitiesForReview,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_possibility_positions",
			mcplib.WithDescription("List the possible endorsements captured for one voter guide possibility."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("voter_guide_possibility_id",
				mcplib.Description("The possibility's numeric id"),
				mcplib.Required(),
			),
		),
		s.handlePossibilityPositions,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_extract_endorsements",
			mcplib.WithDescription(`Match a possibility's rows against known candidates, measures and organizations.

With save_matches the matched we_vote_ids are written back onto the rows.
Needs the verified volunteer role.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("voter_guide_possibility_id",
				mcplib.Description("The possibility's numeric id"),
				mcplib.Required(),
			),
			mcplib.WithBoolean("save_matches",
				mcplib.Description("Write matched ids back onto the possibility rows"),
				mcplib.DefaultBool(false),
			),
		),
		s.handleExtractEndorsements,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_polling_location",
			mcplib.WithDescription("Look up one polling location by its we_vote_id."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("polling_location_we_vote_id",
				mcplib.Description("The polling location's we_vote_id"),
				mcplib.Required(),
			),
		),
		s.handlePollingLocation,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("wevote_representatives",
			mcplib.WithDescription("List the representatives serving a state."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("state_code",
				mcplib.Description("Two-letter state code"),
				mcplib.Required(),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of representatives to return"),
				mcplib.Min(1),
				mcplib.Max(maxToolLimit),
				mcplib.DefaultNumber(defaultToolLimit),
			),
		),
		s.handleRepresentatives,
	)
}

func toolLimit(request mcplib.CallToolRequest) int {
	limit := request.GetInt("limit", defaultToolLimit)
	switch {
	case limit <= 0:
		return defaultToolLimit
	case limit > maxToolLimit:
		return maxToolLimit
	}
	return limit
}

// statusResult reports a success=false service result to the caller.
func statusResult(status model.Status) *mcplib.CallToolResult {
	return errorResult(status.String())
}

func (s *Server) handlePositionRetrieve(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	weVoteID := strings.TrimSpace(request.GetString("position_we_vote_id", ""))
	if weVoteID == "" {
		return errorResult("position_we_vote_id is required"), nil
	}
	res, err := s.positions.RetrievePositionTableUnknown(ctx, model.PositionLookup{
		Kind:     model.LookupByWeVoteID,
		WeVoteID: weVoteID,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("retrieve failed: %v", err)), nil
	}
	if !res.Found {
		return errorResult(model.StatusRetrievePositionNoneFound), nil
	}
	return jsonResult(res.Position), nil
}

func (s *Server) handlePositionsForBallotItem(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	kind, ok := model.ParseBallotItemKind(request.GetString("kind_of_ballot_item", ""))
	if !ok {
		return errorResult("kind_of_ballot_item must be OFFICE, CANDIDATE or MEASURE"), nil
	}
	item := model.BallotItem{Kind: kind, WeVoteID: strings.TrimSpace(request.GetString("ballot_item_we_vote_id", ""))}
	electionID := int64(request.GetInt("google_civic_election_id", 0))

	res, err := s.positions.ListPositionsForBallotItem(ctx, item, electionID)
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}
	if !res.Success {
		return statusResult(res.Status), nil
	}
	return jsonResult(map[string]any{
		"kind_of_ballot_item":    item.Kind,
		"ballot_item_we_vote_id": item.WeVoteID,
		"positions":              res.Positions,
		"total":                  len(res.Positions),
	}), nil
}

func (s *Server) handleVoterGuides(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	f := model.VoterGuideFilter{
		OrganizationWeVoteID:  strings.TrimSpace(request.GetString("organization_we_vote_id", "")),
		GoogleCivicElectionID: int64(request.GetInt("google_civic_election_id", 0)),
		Limit:                 toolLimit(request),
	}
	if f.OrganizationWeVoteID == "" && f.GoogleCivicElectionID <= 0 {
		return errorResult("organization_we_vote_id or google_civic_election_id is required"), nil
	}
	res, err := s.voterGuides.ListVoterGuides(ctx, f)
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"voter_guides": res.VoterGuides,
		"total":        len(res.VoterGuides),
	}), nil
}

func (s *Server) handlePossibilitiesForReview(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	list, err := s.voterGuides.ListPossibilities(ctx, model.PossibilityFilter{
		StateCode: strings.ToUpper(strings.TrimSpace(request.GetString("state_code", ""))),
		Limit:     toolLimit(request),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"voter_guide_possibilities": list,
		"total":                     len(list),
	}), nil
}

func (s *Server) handlePossibilityPositions(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := int64(request.GetInt("voter_guide_possibility_id", 0))
	res, err := s.voterGuides.ListPossibilityPositions(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}
	if !res.Success {
		return statusResult(res.Status), nil
	}
	return jsonResult(map[string]any{
		"voter_guide_possibility_id": id,
		"possible_position_list":     res.Positions,
	}), nil
}

func (s *Server) handleExtractEndorsements(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if !requireRole(ctx, model.RoleVerifiedVolunteer) {
		return errorResult("extracting endorsements needs the verified_volunteer role"), nil
	}
	id := int64(request.GetInt("voter_guide_possibility_id", 0))
	res, err := s.voterGuides.ExtractPossibleEndorsements(ctx, id, voterguides.ExtractOptions{
		SaveMatches: request.GetBool("save_matches", false),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("extract failed: %v", err)), nil
	}
	if !res.Success {
		return statusResult(res.Status), nil
	}
	return jsonResult(map[string]any{
		"voter_guide_possibility_id": res.Possibility.ID,
		"status":                     res.Status,
		"possible_endorsements":      res.Endorsements,
		"matched":                    res.MatchedCount,
		"unmatched":                  res.UnmatchedCount,
	}), nil
}

func (s *Server) handlePollingLocation(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	res, err := s.pollingLocations.RetrievePollingLocation(ctx,
		strings.TrimSpace(request.GetString("polling_location_we_vote_id", "")))
	if err != nil {
		return errorResult(fmt.Sprintf("retrieve failed: %v", err)), nil
	}
	if !res.Success {
		return statusResult(res.Status), nil
	}
	return jsonResult(res.PollingLocation), nil
}

func (s *Server) handleRepresentatives(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	state := strings.ToUpper(strings.TrimSpace(request.GetString("state_code", "")))
	res, err := s.representatives.ListRepresentatives(ctx, state, toolLimit(request), 0)
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}
	if !res.Success {
		return statusResult(res.Status), nil
	}
	return jsonResult(map[string]any{
		"state_code":      state,
		"representatives": res.Representatives,
		"total":           len(res.Representatives),
	}), nil
}
