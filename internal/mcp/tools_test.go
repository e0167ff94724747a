package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/ctxutil"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
	"github.com/wevote/wevoteserver/internal/testutil"
)

type offlineCivic struct{}

func (offlineCivic) RepresentativesByAddress(context.Context, string) (civic.RepresentativesResponse, error) {
	return civic.RepresentativesResponse{}, errors.New("offline")
}

func newTestServer(t *testing.T) (*Server, *testutil.MemStore) {
	t.Helper()
	logger := testutil.TestLogger()
	store := testutil.NewMemStore()
	positionSvc := positions.New(store, logger)
	s := New(Deps{
		Positions:        positionSvc,
		VoterGuides:      voterguides.New(store, positionSvc, nil, logger),
		PollingLocations: pollinglocations.New(store, logger),
		Representatives:  representatives.New(store, offlineCivic{}, representatives.Config{}, logger),
		Logger:           logger,
		Version:          "test",
	})
	return s, store
}

type toolHandler func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error)

func callTool(t *testing.T, ctx context.Context, h toolHandler, args map[string]any) (*mcplib.CallToolResult, string) {
	t.Helper()
	var req mcplib.CallToolRequest
	req.Params.Arguments = args
	result, err := h(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "tool results are text content")
	return result, text.Text
}

func viewerContext() context.Context {
	return ctxutil.WithClaims(context.Background(), &auth.Claims{
		VoterWeVoteID: "wvtestvoter1",
		Roles:         []model.VoterRole{model.RolePoliticalDataViewer},
	})
}

func TestPositionRetrieveTool(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	pos, err := store.CreatePosition(ctx, model.Position{
		Visibility:           model.VisibilityPublic,
		OrganizationWeVoteID: "wvtestorg1",
		CandidateWeVoteID:    "wvtestcand1",
		Stance:               model.StanceSupport,
	})
	require.NoError(t, err)

	result, text := callTool(t, ctx, s.handlePositionRetrieve, map[string]any{"position_we_vote_id": pos.WeVoteID})
	require.False(t, result.IsError, text)
	var got model.Position
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, pos.WeVoteID, got.WeVoteID)
	assert.Equal(t, model.StanceSupport, got.Stance)

	result, _ = callTool(t, ctx, s.handlePositionRetrieve, map[string]any{})
	assert.True(t, result.IsError)

	result, text = callTool(t, ctx, s.handlePositionRetrieve, map[string]any{"position_we_vote_id": "wvtestpos404"})
	assert.True(t, result.IsError)
	assert.Equal(t, model.StatusRetrievePositionNoneFound, text)
}

func TestPositionsForBallotItemTool(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	for _, org := range []string{"wvtestorg1", "wvtestorg2"} {
		_, err := store.CreatePosition(ctx, model.Position{
			OrganizationWeVoteID: org,
			CandidateWeVoteID:    "wvtestcand9",
			Stance:               model.StanceOppose,
		})
		require.NoError(t, err)
	}

	result, text := callTool(t, ctx, s.handlePositionsForBallotItem, map[string]any{
		"kind_of_ballot_item":    "CANDIDATE",
		"ballot_item_we_vote_id": "wvtestcand9",
	})
	require.False(t, result.IsError, text)
	var got struct {
		Positions []model.Position `json:"positions"`
		Total     int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, 2, got.Total)

	result, _ = callTool(t, ctx, s.handlePositionsForBallotItem, map[string]any{
		"kind_of_ballot_item":    "PARTY",
		"ballot_item_we_vote_id": "wvtestcand9",
	})
	assert.True(t, result.IsError)
}

func TestVoterGuidesToolNeedsFilter(t *testing.T) {
	s, _ := newTestServer(t)
	result, text := callTool(t, context.Background(), s.handleVoterGuides, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "google_civic_election_id")
}

func TestPossibilityTools(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	poss, err := store.CreatePossibility(ctx, model.VoterGuidePossibility{
		URL:              "https://example.org/slate",
		OrganizationName: "Example League",
		StateCode:        "CA",
	})
	require.NoError(t, err)
	_, err = store.CreatePossibilityPosition(ctx, model.VoterGuidePossibilityPosition{
		VoterGuidePossibilityID:   poss.ID,
		PossibilityPositionNumber: 1,
		BallotItemName:            "Maria Gonzalez",
		PositionStance:            model.StanceSupport,
	})
	require.NoError(t, err)

	result, text := callTool(t, ctx, s.handlePossibilitiesForReview, map[string]any{"state_code": "ca"})
	require.False(t, result.IsError, text)
	var review struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &review))
	assert.Equal(t, 1, review.Total)

	result, text = callTool(t, ctx, s.handlePossibilityPositions, map[string]any{"voter_guide_possibility_id": float64(poss.ID)})
	require.False(t, result.IsError, text)
	var rows struct {
		List []model.VoterGuidePossibilityPosition `json:"possible_position_list"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &rows))
	require.Len(t, rows.List, 1)
	assert.Equal(t, "Maria Gonzalez", rows.List[0].BallotItemName)

	result, text = callTool(t, ctx, s.handlePossibilityPositions, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, voterguides.StatusPossibilityIDMissing)
}

func TestExtractEndorsementsNeedsVolunteer(t *testing.T) {
	s, _ := newTestServer(t)

	result, text := callTool(t, viewerContext(), s.handleExtractEndorsements, map[string]any{"voter_guide_possibility_id": float64(1)})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "verified_volunteer")

	volunteer := ctxutil.WithClaims(context.Background(), &auth.Claims{
		Roles: []model.VoterRole{model.RoleVerifiedVolunteer},
	})
	result, text = callTool(t, volunteer, s.handleExtractEndorsements, map[string]any{"voter_guide_possibility_id": float64(404)})
	assert.True(t, result.IsError)
	assert.NotContains(t, text, "verified_volunteer", "role check passed; the possibility is missing")
}

func TestPollingLocationTool(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	loc, err := store.CreatePollingLocation(ctx, model.PollingLocation{
		PollingLocationID: "77",
		LocationName:      "Library",
		State:             "OR",
	})
	require.NoError(t, err)

	result, text := callTool(t, ctx, s.handlePollingLocation, map[string]any{"polling_location_we_vote_id": loc.WeVoteID})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "Library")

	result, _ = callTool(t, ctx, s.handlePollingLocation, map[string]any{"polling_location_we_vote_id": "wvtestploc404"})
	assert.True(t, result.IsError)
}

func TestRepresentativesToolNeedsState(t *testing.T) {
	s, _ := newTestServer(t)
	result, text := callTool(t, context.Background(), s.handleRepresentatives, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, representatives.StatusStateCodeMissing)

	result, text = callTool(t, context.Background(), s.handleRepresentatives, map[string]any{"state_code": "wa"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, `"state_code": "WA"`)
}

func TestToolLimitBounds(t *testing.T) {
	var req mcplib.CallToolRequest
	req.Params.Arguments = map[string]any{}
	assert.Equal(t, defaultToolLimit, toolLimit(req))
	req.Params.Arguments = map[string]any{"limit": float64(5000)}
	assert.Equal(t, maxToolLimit, toolLimit(req))
	req.Params.Arguments = map[string]any{"limit": float64(7)}
	assert.Equal(t, 7, toolLimit(req))
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	assert.True(t, requireRole(context.Background(), model.RoleAdmin))
	assert.False(t, requireRole(viewerContext(), model.RoleVerifiedVolunteer))
	assert.True(t, requireRole(viewerContext(), model.RolePoliticalDataViewer))
}
