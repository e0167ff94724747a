package mcp

import (
	"context"
	"fmt"
	"strconv"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// review-possibility walks a volunteer through one voter guide possibility.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("review-possibility",
			mcplib.WithPromptDescription("Review the possible endorsements captured for one voter guide possibility"),
			mcplib.WithArgument("voter_guide_possibility_id",
				mcplib.ArgumentDescription("The numeric id of the possibility to review"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleReviewPossibilityPrompt,
	)

	// state-coverage summarizes what the server knows about one state.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("state-coverage",
			mcplib.WithPromptDescription("Summarize representatives and pending voter guide possibilities for a state"),
			mcplib.WithArgument("state_code",
				mcplib.ArgumentDescription("Two-letter state code, e.g. CA"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleStateCoveragePrompt,
	)
}

func (s *Server) handleReviewPossibilityPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	raw := request.Params.Arguments["voter_guide_possibility_id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("voter_guide_possibility_id must be a positive integer")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Review voter guide possibility %d", id),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review voter guide possibility %[1]d.

1. CALL wevote_possibility_positions with voter_guide_possibility_id=%[1]d
   to see every captured row.

2. CALL wevote_extract_endorsements with voter_guide_possibility_id=%[1]d
   and save_matches=false. Compare each row's ballot_item_name with the
   matched candidate or measure.

3. REPORT:
   - rows that matched, with the we_vote_id they matched
   - rows that did not match, and the likely reason (misspelling,
     wrong election year, candidate not yet in the database)
   - rows whose stance looks wrong for the statement text

4. If every match looks right, CALL wevote_extract_endorsements again with
   save_matches=true.`, id),
				},
			},
		},
	}, nil
}

func (s *Server) handleStateCoveragePrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	state := request.Params.Arguments["state_code"]
	if len(state) != 2 {
		return nil, fmt.Errorf("state_code must be a two-letter state code")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Coverage summary for %s", state),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Summarize our data coverage for %[1]s.

1. CALL wevote_representatives with state_code="%[1]s" and count the
   offices held and representatives returned.

2. CALL wevote_possibilities_for_review with state_code="%[1]s" to list
   voter guide possibilities still waiting for review.

3. Write a short summary: how many representatives we have, which
   possibilities look most important to review first, and anything that
   looks missing.`, state),
				},
			},
		},
	}, nil
}
