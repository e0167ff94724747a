package storage_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	tc, err := testutil.StartPostgres()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage integration tests disabled: %v\n", err)
		os.Exit(m.Run())
	}

	ctx := context.Background()
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("no Postgres container available")
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	requireDB(t)
	require.NoError(t, testDB.RunMigrations(context.Background(), os.DirFS("../../migrations")))
}

func TestPositionCreateAndGet(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	p := model.Position{
		Visibility:            model.VisibilityPublic,
		OrganizationWeVoteID:  "wvtestorg100",
		CandidateWeVoteID:     "wvtestcand100",
		GoogleCivicElectionID: 4000,
		Stance:                model.StanceSupport,
	}
	created, err := testDB.CreatePosition(ctx, p)
	require.NoError(t, err)
	assert.Regexp(t, `^wvtestpos\d+$`, created.WeVoteID)

	got, err := testDB.GetPositionByWeVoteID(ctx, model.VisibilityPublic, created.WeVoteID)
	require.NoError(t, err)
	assert.Equal(t, model.StanceSupport, got.Stance)
	assert.Equal(t, model.VisibilityPublic, got.Visibility)

	_, err = testDB.GetPositionByWeVoteID(ctx, model.VisibilityFriendsOnly, created.WeVoteID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPositionNewRowDefaultsToNoStance(t *testing.T) {
	requireDB(t)
	created, err := testDB.CreatePosition(context.Background(), model.Position{
		Visibility:        model.VisibilityFriendsOnly,
		VoterWeVoteID:     "wvtestvoter5",
		CandidateWeVoteID: "wvtestcand5",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StanceNoStance, created.Stance)
}

func TestMovePositionKeepsOneCopy(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	created, err := testDB.CreatePosition(ctx, model.Position{
		Visibility:             model.VisibilityFriendsOnly,
		VoterWeVoteID:          "wvtestvoter200",
		ContestMeasureWeVoteID: "wvtestmeas200",
		StatementText:          "yes on this",
	})
	require.NoError(t, err)

	moved, err := testDB.MovePosition(ctx, created, model.VisibilityPublic)
	require.NoError(t, err)
	assert.Equal(t, created.WeVoteID, moved.WeVoteID)
	assert.Equal(t, "yes on this", moved.StatementText)

	_, err = testDB.GetPositionByWeVoteID(ctx, model.VisibilityFriendsOnly, created.WeVoteID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = testDB.GetPositionByWeVoteID(ctx, model.VisibilityPublic, created.WeVoteID)
	require.NoError(t, err)
}

func TestMergePositions(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	keeper, err := testDB.CreatePosition(ctx, model.Position{
		Visibility: model.VisibilityPublic, VoterWeVoteID: "wvtestvoter300", CandidateWeVoteID: "wvtestcand300",
	})
	require.NoError(t, err)
	dup, err := testDB.CreatePosition(ctx, model.Position{
		Visibility: model.VisibilityFriendsOnly, VoterWeVoteID: "wvtestvoter300", CandidateWeVoteID: "wvtestcand300",
		StatementText: "from friends",
	})
	require.NoError(t, err)

	keeper.StatementText = dup.StatementText
	saved, err := testDB.MergePositions(ctx, keeper, dup)
	require.NoError(t, err)
	assert.Equal(t, "from friends", saved.StatementText)

	_, err = testDB.GetPositionByWeVoteID(ctx, model.VisibilityFriendsOnly, dup.WeVoteID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindPositionsFiltersBySpeakerAndItem(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	for _, cand := range []string{"wvtestcand400", "wvtestcand401"} {
		_, err := testDB.CreatePosition(ctx, model.Position{
			Visibility: model.VisibilityPublic, OrganizationWeVoteID: "wvtestorg400",
			CandidateWeVoteID: cand, GoogleCivicElectionID: 4400,
		})
		require.NoError(t, err)
	}

	got, err := testDB.FindPositions(ctx, model.VisibilityPublic, model.PositionMatch{
		Speaker:    model.Speaker{Kind: model.SpeakerOrganization, WeVoteID: "wvtestorg400"},
		BallotItem: model.BallotItem{Kind: model.BallotItemCandidate, WeVoteID: "wvtestcand401"},
	}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	n, err := testDB.CountPublicPositions(ctx, "wvtestorg400", 4400)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPollingLocationUniqueOnSourceAndState(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	loc := model.PollingLocation{PollingLocationID: "80037", State: "ca", Line1: "1 Main St", City: "Oakland"}
	created, err := testDB.CreatePollingLocation(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, "CA", created.State)

	_, err = testDB.CreatePollingLocation(ctx, loc)
	require.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := testDB.GetPollingLocationBySource(ctx, "80037", "CA")
	require.NoError(t, err)
	assert.Equal(t, created.WeVoteID, got.WeVoteID)
}

func TestSelectPollingLocationsSkipsRecentFailures(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	ok, err := testDB.CreatePollingLocation(ctx, model.PollingLocation{PollingLocationID: "sel-1", State: "WY", City: "Cody"})
	require.NoError(t, err)
	failed, err := testDB.CreatePollingLocation(ctx, model.PollingLocation{PollingLocationID: "sel-2", State: "WY", City: "Cody"})
	require.NoError(t, err)
	done, err := testDB.CreatePollingLocation(ctx, model.PollingLocation{PollingLocationID: "sel-3", State: "WY", City: "Cody"})
	require.NoError(t, err)

	_, err = testDB.CreatePollingLocationLogEntry(ctx, model.PollingLocationLogEntry{
		PollingLocationWeVoteID: failed.WeVoteID, StateCode: "WY", Kind: model.LogKindAddressParseError,
	})
	require.NoError(t, err)
	require.NoError(t, testDB.MarkRepresentativesRetrieved(ctx, done.WeVoteID, time.Now().UTC()))

	now := time.Now().UTC()
	got, err := testDB.SelectPollingLocationsForRepresentatives(ctx, "wy", 10, now.Add(-time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ok.WeVoteID, got[0].WeVoteID)
}

func TestClaimBatchProcess(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	bp, err := testDB.CreateBatchProcess(ctx, model.BatchRetrieveRepresentatives, "nv")
	require.NoError(t, err)
	assert.Equal(t, "NV", bp.StateCode)

	claimed, err := testDB.ClaimBatchProcess(ctx, model.BatchRetrieveRepresentatives, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, claimed.DateCheckedOut)

	// The lease blocks a second claim of the same row.
	next, err := testDB.ClaimBatchProcess(ctx, model.BatchRetrieveRepresentatives, time.Minute)
	if err == nil {
		assert.NotEqual(t, claimed.ID, next.ID)
	} else {
		require.ErrorIs(t, err, storage.ErrNotFound)
	}

	require.NoError(t, testDB.CompleteBatchProcess(ctx, claimed.ID, 3, "done"))
	got, err := testDB.GetBatchProcess(ctx, claimed.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DateCompleted)
	assert.Equal(t, 3, got.PollingLocationsRetrieved)
}

func TestOfficeHeldAndRepresentative(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	office, err := testDB.CreateOfficeHeld(ctx, model.OfficeHeld{
		OfficeHeldName: "Governor", OcdDivisionID: "ocd-division/country:us/state:ca", StateCode: "CA",
	})
	require.NoError(t, err)
	office.YearsWithData = model.AddYear(office.YearsWithData, 2026)
	_, err = testDB.UpdateOfficeHeld(ctx, office)
	require.NoError(t, err)

	got, err := testDB.GetOfficeHeld(ctx, office.OcdDivisionID, "Governor")
	require.NoError(t, err)
	assert.Equal(t, []int32{2026}, got.YearsWithData)

	rep, err := testDB.CreateRepresentative(ctx, model.Representative{
		RepresentativeName: "Pat Doe", OfficeHeldWeVoteID: office.WeVoteID, StateCode: "CA",
	})
	require.NoError(t, err)
	rep.RepresentativeURL = "https://gov.ca.gov"
	_, err = testDB.UpdateRepresentative(ctx, rep)
	require.NoError(t, err)

	reps, err := testDB.ListRepresentatives(ctx, "ca", 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, reps)
	assert.Equal(t, "https://gov.ca.gov", reps[0].RepresentativeURL)
}

func TestPossibilityLifecycle(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	v, err := testDB.CreatePossibility(ctx, model.VoterGuidePossibility{URL: "https://example.org/endorsements"})
	require.NoError(t, err)
	assert.Equal(t, model.PossibilityUnknownType, v.Type)

	_, err = testDB.CreatePossibility(ctx, model.VoterGuidePossibility{URL: "https://example.org/endorsements"})
	require.ErrorIs(t, err, storage.ErrDuplicate)

	first, err := testDB.CreatePossibilityPosition(ctx, model.VoterGuidePossibilityPosition{
		VoterGuidePossibilityID: v.ID, BallotItemName: "Jane Smith",
	})
	require.NoError(t, err)
	second, err := testDB.CreatePossibilityPosition(ctx, model.VoterGuidePossibilityPosition{
		VoterGuidePossibilityID: v.ID, BallotItemName: "Measure A",
	})
	require.NoError(t, err)
	assert.Equal(t, first.PossibilityPositionNumber+1, second.PossibilityPositionNumber)

	require.NoError(t, testDB.DeletePossibility(ctx, v.ID))
	rows, err := testDB.ListPossibilityPositions(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestVoterByDeviceID(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	v, err := testDB.CreateVoter(ctx, model.Voter{FirstName: "Sam", IsAdmin: true}, "device-abc")
	require.NoError(t, err)

	got, err := testDB.GetVoterByDeviceID(ctx, "device-abc")
	require.NoError(t, err)
	assert.Equal(t, v.WeVoteID, got.WeVoteID)
	assert.True(t, got.IsAdmin)

	_, err = testDB.GetVoterByDeviceID(ctx, "device-missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
