package positions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/testutil"
)

func newService(t *testing.T) (*positions.Service, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	return positions.New(store, testutil.TestLogger()), store
}

func orgCandidateInput(org, cand string, public bool) positions.UpdateOrCreateInput {
	return positions.UpdateOrCreateInput{
		Identifiers: model.PositionIdentifiers{
			OrganizationWeVoteID:  org,
			CandidateWeVoteID:     cand,
			GoogleCivicElectionID: 4000,
		},
		Fields:              positions.PositionFields{Stance: model.StanceSupport, StatementText: "Strong record"},
		SetAsPublicPosition: public,
	}
}

func TestUpdateOrCreateThenRetrieveReturnsSameWeVoteID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, err := svc.UpdateOrCreatePosition(ctx, orgCandidateInput("wvtestorg1", "wvtestcand1", true))
	require.NoError(t, err)
	require.True(t, created.Success)
	assert.True(t, created.NewPositionCreated)
	assert.True(t, created.IsPublicPosition)
	assert.True(t, created.Status.Has(positions.StatusPositionCreated))
	require.NotEmpty(t, created.Position.WeVoteID)

	lk, err := model.NewPositionLookup(orgCandidateInput("wvtestorg1", "wvtestcand1", true).Identifiers)
	require.NoError(t, err)
	found, err := svc.RetrievePositionTableUnknown(ctx, lk)
	require.NoError(t, err)
	require.True(t, found.Found)
	assert.Equal(t, created.Position.WeVoteID, found.Position.WeVoteID)

	byID, err := svc.RetrievePositionTableUnknown(ctx, model.PositionLookup{Kind: model.LookupByWeVoteID, WeVoteID: created.Position.WeVoteID})
	require.NoError(t, err)
	assert.True(t, byID.Found)
	assert.Equal(t, model.StanceSupport, byID.Position.Stance)
}

func TestUpdateOrCreateUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	first, err := svc.UpdateOrCreatePosition(ctx, orgCandidateInput("wvtestorg1", "wvtestcand1", false))
	require.NoError(t, err)

	in := orgCandidateInput("wvtestorg1", "wvtestcand1", false)
	in.Fields = positions.PositionFields{Stance: model.StanceOppose}
	second, err := svc.UpdateOrCreatePosition(ctx, in)
	require.NoError(t, err)

	assert.False(t, second.NewPositionCreated)
	assert.Equal(t, first.Position.WeVoteID, second.Position.WeVoteID)
	assert.Equal(t, model.StanceOppose, second.Position.Stance)
	assert.Equal(t, "Strong record", second.Position.StatementText, "empty input fields must not overwrite")
	assert.Len(t, store.PositionsIn(model.VisibilityFriendsOnly), 1)
	assert.Empty(t, store.PositionsIn(model.VisibilityPublic))
}

func TestUpdateOrCreateDefaultsToNoStance(t *testing.T) {
	svc, _ := newService(t)
	in := orgCandidateInput("wvtestorg1", "wvtestcand1", true)
	in.Fields = positions.PositionFields{}

	res, err := svc.UpdateOrCreatePosition(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StanceNoStance, res.Position.Stance)
}

func TestUpdateOrCreateRejectsAmbiguousIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		ids  model.PositionIdentifiers
		want string
	}{
		{
			name: "no speaker",
			ids:  model.PositionIdentifiers{CandidateWeVoteID: "wvtestcand1"},
			want: "NO_UNIQUE",
		},
		{
			name: "two speakers",
			ids:  model.PositionIdentifiers{OrganizationWeVoteID: "wvtestorg1", VoterWeVoteID: "wvtestvoter1", CandidateWeVoteID: "wvtestcand1"},
			want: "TOO_MANY_UNIQUE",
		},
		{
			name: "no ballot item",
			ids:  model.PositionIdentifiers{OrganizationWeVoteID: "wvtestorg1"},
			want: "NO_UNIQUE",
		},
		{
			name: "two ballot items",
			ids:  model.PositionIdentifiers{OrganizationWeVoteID: "wvtestorg1", CandidateWeVoteID: "wvtestcand1", ContestMeasureWeVoteID: "wvtestmeas1"},
			want: "TOO_MANY_UNIQUE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t)
			res, err := svc.UpdateOrCreatePosition(context.Background(), positions.UpdateOrCreateInput{Identifiers: tt.ids})
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.True(t, res.Status.Contains(tt.want), res.Status.String())
			assert.Empty(t, store.PositionsIn(model.VisibilityPublic))
			assert.Empty(t, store.PositionsIn(model.VisibilityFriendsOnly))
		})
	}
}

func TestRetrieveMultipleFoundFails(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	for range 2 {
		p := model.Position{Visibility: model.VisibilityPublic, GoogleCivicElectionID: 4000}
		p.SetSpeaker(model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: "wvtestorg1"})
		p.SetBallotItem(model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand1"})
		_, err := store.CreatePosition(ctx, p)
		require.NoError(t, err)
	}

	lk, err := model.NewPositionLookup(orgCandidateInput("wvtestorg1", "wvtestcand1", true).Identifiers)
	require.NoError(t, err)
	res, err := svc.RetrievePositionTableUnknown(ctx, lk)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(model.StatusRetrievePositionMultipleFound))
}

func TestRetrieveNoneFound(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.RetrievePositionTableUnknown(context.Background(),
		model.PositionLookup{Kind: model.LookupByWeVoteID, WeVoteID: "wvtestpos999"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Found)
	assert.True(t, res.Status.Has(model.StatusRetrievePositionNoneFound))
}

func TestRetrieveChecksPublicBeforeFriends(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	p := model.Position{Visibility: model.VisibilityFriendsOnly, VoteSmartTimeSpan: "2025-2026"}
	p.SetSpeaker(model.Speaker{Kind: model.SpeakerPublicFigure, WeVoteID: "wvtestpf1"})
	p.SetBallotItem(model.BallotItem{Kind: model.BallotItemMeasure, WeVoteID: "wvtestmeas1"})
	friends, err := store.CreatePosition(ctx, p)
	require.NoError(t, err)

	res, err := svc.RetrievePositionTableUnknown(ctx, model.PositionLookup{
		Kind:              model.LookupBySpeakerAndBallotItem,
		Speaker:           model.Speaker{Kind: model.SpeakerPublicFigure, WeVoteID: "wvtestpf1"},
		BallotItem:        model.BallotItem{Kind: model.BallotItemMeasure, WeVoteID: "wvtestmeas1"},
		VoteSmartTimeSpan: "2025-2026",
	})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, friends.WeVoteID, res.Position.WeVoteID)
	assert.Equal(t, model.VisibilityFriendsOnly, res.Position.Visibility)
}

func TestSwitchVisibilityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	created, err := svc.UpdateOrCreatePosition(ctx, orgCandidateInput("wvtestorg1", "wvtestcand1", false))
	require.NoError(t, err)
	id := created.Position.WeVoteID

	moved, err := svc.TransferToPublicPosition(ctx, id)
	require.NoError(t, err)
	assert.True(t, moved.Success)
	assert.True(t, moved.Status.Has(positions.StatusPositionMoved))

	again, err := svc.TransferToPublicPosition(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.True(t, again.Status.Has(positions.StatusPositionAlreadyInTable))

	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 1)
	assert.Empty(t, store.PositionsIn(model.VisibilityFriendsOnly))
	assert.Equal(t, id, store.PositionsIn(model.VisibilityPublic)[0].WeVoteID)

	back, err := svc.TransferToFriendsOnlyPosition(ctx, id)
	require.NoError(t, err)
	assert.True(t, back.Success)
	assert.Empty(t, store.PositionsIn(model.VisibilityPublic))
	assert.Len(t, store.PositionsIn(model.VisibilityFriendsOnly), 1)
}

func TestSwitchVisibilityMergesIntoExistingDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	mk := func(vis model.Visibility, text, url string) model.Position {
		p := model.Position{Visibility: vis, StatementText: text, MoreInfoURL: url}
		p.SetSpeaker(model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: "wvtestorg1"})
		p.SetBallotItem(model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand1"})
		out, err := store.CreatePosition(ctx, p)
		require.NoError(t, err)
		return out
	}
	public := mk(model.VisibilityPublic, "", "")
	friends := mk(model.VisibilityFriendsOnly, "Friends text", "https://example.org")

	res, err := svc.TransferToPublicPosition(ctx, friends.WeVoteID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Merged)
	assert.Equal(t, public.WeVoteID, res.Position.WeVoteID)
	assert.Equal(t, "Friends text", res.Position.StatementText)
	assert.Equal(t, "https://example.org", res.Position.MoreInfoURL)
	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 1)
	assert.Empty(t, store.PositionsIn(model.VisibilityFriendsOnly))
}

func TestMergeKeepsKeeperText(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	keeper, err := store.CreatePosition(ctx, model.Position{
		Visibility:           model.VisibilityPublic,
		OrganizationWeVoteID: "wvtestorg1",
		CandidateWeVoteID:    "wvtestcand1",
		StatementText:        "keep me",
	})
	require.NoError(t, err)
	dup, err := store.CreatePosition(ctx, model.Position{
		Visibility:           model.VisibilityPublic,
		OrganizationWeVoteID: "wvtestorg1",
		CandidateWeVoteID:    "wvtestcand1",
		StatementText:        "drop me",
		StatementHTML:        "<p>x</p>",
	})
	require.NoError(t, err)

	res, err := svc.MergePositionsByWeVoteID(ctx, keeper.WeVoteID, dup.WeVoteID)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "keep me", res.Position.StatementText)
	assert.Equal(t, "<p>x</p>", res.Position.StatementHTML)
	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 1)
}

func TestMergeRejectsUnrelatedPositions(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	mk := func(org, cand string) model.Position {
		p, err := store.CreatePosition(ctx, model.Position{
			Visibility:           model.VisibilityPublic,
			OrganizationWeVoteID: org,
			CandidateWeVoteID:    cand,
			StatementText:        org + " on " + cand,
		})
		require.NoError(t, err)
		return p
	}
	org1 := mk("wvtestorg1", "wvtestcand1")
	org2 := mk("wvtestorg2", "wvtestcand1")
	otherCand := mk("wvtestorg1", "wvtestcand2")

	for _, dup := range []model.Position{org2, otherCand} {
		res, err := svc.MergePositionsByWeVoteID(ctx, org1.WeVoteID, dup.WeVoteID)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.False(t, res.Merged)
		assert.True(t, res.Status.Has(positions.StatusPositionsNotDuplicates))
	}
	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 3)
}

func TestMergeRejectsSamePosition(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	p, err := store.CreatePosition(ctx, model.Position{
		Visibility:           model.VisibilityPublic,
		OrganizationWeVoteID: "wvtestorg1",
		CandidateWeVoteID:    "wvtestcand1",
	})
	require.NoError(t, err)

	res, err := svc.MergePositionsByWeVoteID(ctx, p.WeVoteID, p.WeVoteID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(positions.StatusPositionsNotDuplicates))
	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 1)
}

func TestSwitchUnknownPosition(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.TransferToPublicPosition(context.Background(), "wvtestpos404")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(positions.StatusPositionNotFound))
}

func TestRetrieveVoterPositionWithoutDevice(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.RetrieveVoterPosition(context.Background(), "",
		model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(model.StatusValidVoterDeviceIDMissing))
	assert.True(t, res.Status.Has(model.StatusValidVoterIDMissing))
}

func TestRetrieveVoterPositionUnknownDevice(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.RetrieveVoterPosition(context.Background(), "device-unknown",
		model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand1"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(model.StatusValidVoterIDMissing))
	assert.False(t, res.Status.Has(model.StatusValidVoterDeviceIDMissing))
}

func TestVoterPositionSaveRetrieveAndVisibility(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	voter, err := store.CreateVoter(ctx, model.Voter{FirstName: "Ada", LastName: "Lovelace"}, "device-1")
	require.NoError(t, err)
	item := model.BallotItem{Kind: model.BallotItemMeasure, WeVoteID: "wvtestmeas1"}

	saved, err := svc.SaveVoterPosition(ctx, "device-1", item, positions.PositionFields{Stance: model.StanceOppose}, false)
	require.NoError(t, err)
	require.True(t, saved.Success)
	assert.Equal(t, voter.WeVoteID, saved.Position.VoterWeVoteID)
	assert.Equal(t, "Ada Lovelace", saved.Position.SpeakerDisplayName)
	assert.False(t, saved.IsPublicPosition)

	got, err := svc.RetrieveVoterPosition(ctx, "device-1", item)
	require.NoError(t, err)
	require.True(t, got.Found)
	assert.Equal(t, saved.Position.WeVoteID, got.Position.WeVoteID)

	switched, err := svc.SetVoterPositionVisibility(ctx, "device-1", item, model.VisibilityPublic)
	require.NoError(t, err)
	assert.True(t, switched.Success)
	assert.Len(t, store.PositionsIn(model.VisibilityPublic), 1)
}

func TestVoterPositionRequiresBallotItem(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	_, err := store.CreateVoter(ctx, model.Voter{}, "device-1")
	require.NoError(t, err)

	res, err := svc.RetrieveVoterPosition(ctx, "device-1", model.BallotItem{Kind: model.BallotItemCandidate})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(positions.StatusBallotItemIDMissing))
}

func TestListPositionsForBallotItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	for _, org := range []string{"wvtestorg1", "wvtestorg2"} {
		_, err := svc.UpdateOrCreatePosition(ctx, orgCandidateInput(org, "wvtestcand1", true))
		require.NoError(t, err)
	}
	_, err := svc.UpdateOrCreatePosition(ctx, orgCandidateInput("wvtestorg3", "wvtestcand1", false))
	require.NoError(t, err)

	res, err := svc.ListPositionsForBallotItem(ctx, model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand1"}, 4000)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Positions, 2, "friends-only positions are not listed")
}
