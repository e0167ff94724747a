package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/model"
)

// Extra ids are ignored once the position id is known.
func TestNewPositionLookup_WeVoteIDAlone(t *testing.T) {
	lk, err := model.NewPositionLookup(model.PositionIdentifiers{
		PositionWeVoteID:     " wvabcpos12 ",
		OrganizationWeVoteID: "wvabcorg1",
		VoterWeVoteID:        "wvabcvoter1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LookupByWeVoteID, lk.Kind)
	assert.Equal(t, "wvabcpos12", lk.WeVoteID)
}

func TestNewPositionLookup_SpeakerAndBallotItem(t *testing.T) {
	lk, err := model.NewPositionLookup(model.PositionIdentifiers{
		OrganizationWeVoteID:  "wvabcorg1",
		CandidateWeVoteID:     "wvabccand7",
		GoogleCivicElectionID: 4162,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LookupBySpeakerAndBallotItem, lk.Kind)
	assert.Equal(t, model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: "wvabcorg1"}, lk.Speaker)
	assert.Equal(t, model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvabccand7"}, lk.BallotItem)
	assert.Equal(t, int64(4162), lk.GoogleCivicElectionID)
}

func TestNewPositionLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		ids  model.PositionIdentifiers
		want error
	}{
		{"no actor", model.PositionIdentifiers{CandidateWeVoteID: "c"}, model.ErrNoUniqueActorVariables},
		{"two actors", model.PositionIdentifiers{OrganizationWeVoteID: "o", VoterWeVoteID: "v", CandidateWeVoteID: "c"}, model.ErrTooManyUniqueActorVariables},
		{"no ballot item", model.PositionIdentifiers{VoterWeVoteID: "v"}, model.ErrNoUniqueBallotItemVariables},
		{"two ballot items", model.PositionIdentifiers{VoterWeVoteID: "v", CandidateWeVoteID: "c", ContestMeasureWeVoteID: "m"}, model.ErrTooManyUniqueBallotItemVariables},
		{"blank strings count as absent", model.PositionIdentifiers{OrganizationWeVoteID: "  ", VoterWeVoteID: "v"}, model.ErrNoUniqueBallotItemVariables},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NewPositionLookup(tt.ids)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Contains(t, model.ErrTooManyUniqueActorVariables.Error(), "TOO_MANY_UNIQUE")
	assert.Contains(t, model.ErrNoUniqueBallotItemVariables.Error(), "NO_UNIQUE")
}

func TestPositionSpeakerAndBallotItem(t *testing.T) {
	var p model.Position
	p.SetSpeaker(model.Speaker{Kind: model.SpeakerVoter, WeVoteID: "wvabcvoter3"})
	p.SetBallotItem(model.BallotItem{Kind: model.BallotItemMeasure, WeVoteID: "wvabcmeas2"})
	assert.Equal(t, "wvabcvoter3", p.VoterWeVoteID)
	assert.Equal(t, "wvabcmeas2", p.ContestMeasureWeVoteID)

	p.SetSpeaker(model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: "wvabcorg9"})
	assert.Empty(t, p.VoterWeVoteID)
	assert.Equal(t, model.SpeakerOrganization, p.Speaker().Kind)
	assert.Equal(t, model.BallotItemMeasure, p.BallotItem().Kind)
	assert.True(t, model.Position{}.Speaker().IsZero())
}

func TestVisibility(t *testing.T) {
	v, ok := model.ParseVisibility("friends")
	require.True(t, ok)
	assert.Equal(t, model.VisibilityFriendsOnly, v)
	assert.Equal(t, model.VisibilityPublic, v.Other())
	assert.True(t, v.Other().IsPublic())

	_, ok = model.ParseVisibility("everyone")
	assert.False(t, ok)
}

func TestStancePredicates(t *testing.T) {
	rating := func(r string) model.Position {
		return model.Position{Stance: model.StancePercentRating, VoteSmartRating: r}
	}
	assert.True(t, rating("66").IsPositiveRating())
	assert.True(t, rating("90%").IsSupportOrPositiveRating())
	assert.False(t, rating("65").IsPositiveRating())
	assert.True(t, rating("33").IsNegativeRating())
	assert.True(t, rating("0").IsOpposeOrNegativeRating())
	assert.False(t, rating("abc").IsNegativeRating())
	assert.False(t, model.Position{Stance: model.StanceSupport, VoteSmartRating: "10"}.IsNegativeRating())

	assert.True(t, model.Position{}.IsNoStance())
	assert.True(t, model.Position{Stance: model.StanceOppose}.IsOpposeOrNegativeRating())

	st, ok := model.ParseStance("information_only")
	require.True(t, ok)
	assert.Equal(t, model.StanceInformationOnly, st)
}
