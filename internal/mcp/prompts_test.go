package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptRequest(name string, args map[string]string) mcplib.GetPromptRequest {
	return mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: name, Arguments: args},
	}
}

func TestReviewPossibilityPrompt(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.handleReviewPossibilityPrompt(context.Background(),
		promptRequest("review-possibility", map[string]string{"voter_guide_possibility_id": "42"}))
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Contains(t, result.Description, "42")

	msg := result.Messages[0]
	assert.Equal(t, mcplib.RoleUser, msg.Role)
	tc, ok := msg.Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "wevote_possibility_positions")
	assert.Contains(t, tc.Text, "wevote_extract_endorsements")
	assert.Contains(t, tc.Text, "voter_guide_possibility_id=42")
}

func TestReviewPossibilityPromptRejectsBadID(t *testing.T) {
	s, _ := newTestServer(t)
	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := s.handleReviewPossibilityPrompt(context.Background(),
			promptRequest("review-possibility", map[string]string{"voter_guide_possibility_id": raw}))
		assert.Error(t, err, raw)
	}
}

func TestStateCoveragePrompt(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.handleStateCoveragePrompt(context.Background(),
		promptRequest("state-coverage", map[string]string{"state_code": "CA"}))
	require.NoError(t, err)
	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, `state_code="CA"`)
	assert.Contains(t, tc.Text, "wevote_representatives")

	_, err = s.handleStateCoveragePrompt(context.Background(),
		promptRequest("state-coverage", map[string]string{"state_code": "California"}))
	assert.Error(t, err)
}
