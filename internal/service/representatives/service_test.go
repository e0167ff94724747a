package representatives_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/testutil"
)

type fakeCivic struct {
	mu    sync.Mutex
	resp  map[string]civic.RepresentativesResponse
	errs  map[string]error
	calls []string
}

func newFakeCivic() *fakeCivic {
	return &fakeCivic{resp: map[string]civic.RepresentativesResponse{}, errs: map[string]error{}}
}

func (f *fakeCivic) RepresentativesByAddress(_ context.Context, address string) (civic.RepresentativesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if err, ok := f.errs[address]; ok {
		return civic.RepresentativesResponse{}, err
	}
	return f.resp[address], nil
}

func californiaResponse() civic.RepresentativesResponse {
	return civic.RepresentativesResponse{
		Divisions: map[string]civic.Division{
			"ocd-division/country:us/state:ca":       {Name: "California"},
			"ocd-division/country:us/state:ca/cd:12": {Name: "California's 12th congressional district"},
		},
		Offices: []civic.Office{
			{Name: "Governor of California", DivisionID: "ocd-division/country:us/state:ca",
				Levels: []string{"administrativeArea1"}, Roles: []string{"headOfGovernment"}, OfficialIndices: []int{0}},
			{Name: "U.S. Representative", DivisionID: "ocd-division/country:us/state:ca/cd:12",
				Levels: []string{"country"}, Roles: []string{"legislatorLowerBody"}, OfficialIndices: []int{1}},
		},
		Officials: []civic.Official{
			{Name: "Jane Doe", Party: "Independent", Phones: []string{"(916) 555-0100"},
				URLs:     []string{"http://gov.ca.gov/"},
				Channels: []civic.Channel{{Type: "Twitter", ID: "JaneDoe"}, {Type: "Facebook", ID: "janedoeca"}}},
			{Name: "John Roe", Party: "Democratic Party", Emails: []string{"roe@house.example"}},
		},
	}
}

func newService(t *testing.T, fc *fakeCivic, cfg representatives.Config) (*representatives.Service, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	svc := representatives.New(store, fc, cfg, testutil.TestLogger())
	svc.SetClock(func() time.Time { return time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC) })
	return svc, store
}

func TestGroomOfficial(t *testing.T) {
	r := representatives.GroomOfficial(civic.Official{
		Name:   " Jane Doe ",
		Party:  "Independent",
		URLs:   []string{"http://janedoe.example", "https://janedoe.example", "https://gov.example"},
		Emails: []string{"jane@example.org", "JANE@example.org"},
		Phones: []string{"1", "2", "3", "4"},
		Channels: []civic.Channel{
			{Type: "Twitter", ID: "@JaneDoe"},
			{Type: "Twitter", ID: "https://twitter.com/janedoe"},
			{Type: "Facebook", ID: "http://www.facebook.com/janedoe"},
			{Type: "Instagram", ID: "https://instagram.com/janedoe_ig/"},
			{Type: "LinkedIn", ID: "jane-doe"},
			{Type: "YouTube", ID: "user/JaneDoeTV"},
			{Type: "Wikipedia", ID: "Jane_Doe"},
			{Type: "BallotPedia", ID: "Jane_Doe"},
		},
	})
	assert.Equal(t, "Jane Doe", r.RepresentativeName)
	assert.Equal(t, "https://janedoe.example", r.RepresentativeURL)
	assert.Equal(t, "https://gov.example", r.RepresentativeURL2, "duplicate url is not stored twice")
	assert.Empty(t, r.RepresentativeURL3)
	assert.Equal(t, "jane@example.org", r.RepresentativeEmail)
	assert.Empty(t, r.RepresentativeEmail2)
	assert.Equal(t, "3", r.RepresentativePhone3)
	assert.Equal(t, "janedoe", r.TwitterHandle)
	assert.Empty(t, r.TwitterHandle2)
	assert.Equal(t, "https://twitter.com/janedoe", r.TwitterURL)
	assert.Equal(t, "https://www.facebook.com/janedoe", r.FacebookURL)
	assert.Equal(t, "janedoe_ig", r.InstagramHandle)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", r.LinkedInURL)
	assert.Equal(t, "https://www.youtube.com/user/JaneDoeTV", r.YouTubeURL)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Jane_Doe", r.WikipediaURL)
	assert.Equal(t, "https://ballotpedia.org/Jane_Doe", r.BallotpediaRepresentativeURL)
}

func TestStateFromOCDID(t *testing.T) {
	tests := map[string]string{
		"ocd-division/country:us/state:ca/cd:12":     "CA",
		"ocd-division/country:us/state:ny":           "NY",
		"ocd-division/country:us":                    "",
		"ocd-division/country:us/district:dc":        "",
		"ocd-division/country:us/state:tx/county:ha": "TX",
	}
	for in, want := range tests {
		assert.Equal(t, want, representatives.StateFromOCDID(in), in)
	}
}

func TestGroomAndStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, newFakeCivic(), representatives.Config{})

	first, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(),
		representatives.GroomOptions{Rules: model.AllowAll()}, nil)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.Equal(t, 2, first.OfficesHeldCreated)
	assert.Equal(t, 2, first.RepresentativesCreated)

	offices := store.OfficesHeld()
	require.Len(t, offices, 2)
	assert.Equal(t, "CA", offices[1].StateCode)
	assert.Equal(t, "cd", offices[1].DistrictScope)
	assert.Equal(t, "12", offices[1].DistrictID)
	assert.Equal(t, []int32{2026}, offices[0].YearsWithData)

	second, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(),
		representatives.GroomOptions{Rules: model.AllowAll()}, nil)
	require.NoError(t, err)
	assert.Zero(t, second.OfficesHeldCreated+second.OfficesHeldUpdated+second.RepresentativesCreated+second.RepresentativesUpdated)
	assert.Len(t, store.OfficesHeld(), 2)

	nextYear, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(),
		representatives.GroomOptions{Rules: model.AllowAll(), Year: 2027}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, nextYear.OfficesHeldUpdated)
	assert.Equal(t, 2, nextYear.RepresentativesUpdated)

	reps, err := svc.ListRepresentatives(ctx, "ca", 0, 0)
	require.NoError(t, err)
	require.Len(t, reps.Representatives, 2)
	jane := reps.Representatives[0]
	assert.Equal(t, "Jane Doe", jane.RepresentativeName)
	assert.Equal(t, []int32{2026, 2027}, jane.YearsInOffice)
	assert.Equal(t, "Governor of California", jane.OfficeHeldName)
	assert.Equal(t, "https://gov.ca.gov/", jane.RepresentativeURL)
}

func TestGroomAndStoreHonoursRules(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, newFakeCivic(), representatives.Config{})

	res, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(),
		representatives.GroomOptions{Rules: model.UpdateOrCreateRules{CreateRepresentativeEntries: true}}, nil)
	require.NoError(t, err)
	assert.True(t, res.Status.Has(representatives.StatusOfficeHeldNotCreated))
	assert.Empty(t, store.OfficesHeld())
	assert.Empty(t, res.Representatives, "representatives need an office held")

	res, err = svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(),
		representatives.GroomOptions{Rules: model.UpdateOrCreateRules{CreateOfficeHeldEntries: true}}, nil)
	require.NoError(t, err)
	assert.Len(t, store.OfficesHeld(), 2)
	assert.True(t, res.Status.Has(representatives.StatusRepresentativeNotCreated))
	assert.Zero(t, res.RepresentativesCreated)
}

func TestGroomAndStoreUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, newFakeCivic(), representatives.Config{})
	cache := representatives.NewImportCache()
	opts := representatives.GroomOptions{Rules: model.AllowAll()}

	_, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(), opts, cache)
	require.NoError(t, err)
	again, err := svc.GroomAndStoreOfficeHeldWithRepresentatives(ctx, californiaResponse(), opts, cache)
	require.NoError(t, err)
	assert.Len(t, again.OfficesHeld, 2)
	assert.Len(t, again.Representatives, 2)
	assert.Len(t, store.OfficesHeld(), 2)
}

func addLocation(t *testing.T, store *testutil.MemStore, id, line1 string) model.PollingLocation {
	t.Helper()
	loc, err := store.CreatePollingLocation(context.Background(), model.PollingLocation{
		PollingLocationID: id, LocationName: "Library " + id,
		Line1: line1, City: "Oakland", State: "CA", ZipLong: "94612",
	})
	require.NoError(t, err)
	return loc
}

func TestRetrieveRepresentativesForPollingLocation(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCivic()
	svc, store := newService(t, fc, representatives.Config{})

	ok := addLocation(t, store, "1", "1 Main St")
	fc.resp[ok.TextForMapSearch()] = californiaResponse()
	missing := addLocation(t, store, "2", "2 Nowhere Rd")
	fc.errs[missing.TextForMapSearch()] = fmt.Errorf("wrapped: %w", civic.ErrNotFound)
	limited := addLocation(t, store, "3", "3 Busy Ave")
	fc.errs[limited.TextForMapSearch()] = civic.ErrRateLimited
	empty := addLocation(t, store, "4", "4 Quiet Ln")

	opts := representatives.RetrieveOptions{Rules: model.AllowAll()}

	res, err := svc.RetrieveRepresentativesForPollingLocationByWeVoteID(ctx, ok.WeVoteID, opts)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.LogKindRepresentativesFound, res.LogKind)
	got, err := store.GetPollingLocation(ctx, ok.WeVoteID)
	require.NoError(t, err)
	require.NotNil(t, got.DateLastRepresentativesRetrieved)

	res, err = svc.RetrieveRepresentativesForPollingLocation(ctx, missing, opts)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.LogKindNoRepresentatives, res.LogKind)
	got, err = store.GetPollingLocation(ctx, missing.WeVoteID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.GoogleResponseAddressNotFound)

	res, err = svc.RetrieveRepresentativesForPollingLocation(ctx, limited, opts)
	require.NoError(t, err)
	assert.Equal(t, model.LogKindRateLimitError, res.LogKind)
	assert.True(t, res.Status.Has(representatives.StatusCivicRateLimited))

	res, err = svc.RetrieveRepresentativesForPollingLocation(ctx, empty, opts)
	require.NoError(t, err)
	assert.True(t, res.Status.Has(representatives.StatusNoRepresentativesReturned))

	entries := store.LogEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, ok.WeVoteID, entries[0].PollingLocationWeVoteID)
	assert.Equal(t, "CA", entries[1].StateCode)

	unknown, err := svc.RetrieveRepresentativesForPollingLocationByWeVoteID(ctx, "wvtestploc404", opts)
	require.NoError(t, err)
	assert.True(t, unknown.Status.Has(representatives.StatusPollingLocationNotFound))
}

func TestProcessNextRepresentatives(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCivic()
	svc, store := newService(t, fc, representatives.Config{
		BatchSize:              2,
		RefreshInterval:        24 * time.Hour,
		FailedLocationCooldown: time.Hour,
	})
	// The store and the service must agree on "now" for lease and cooldown windows.
	store.Now = func() time.Time { return time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC) }

	idle, err := svc.ProcessNextRepresentatives(ctx)
	require.NoError(t, err)
	assert.False(t, idle.Claimed)
	assert.True(t, idle.Status.Has(representatives.StatusNoBatchProcessAvailable))

	a := addLocation(t, store, "1", "1 Main St")
	b := addLocation(t, store, "2", "2 Oak St")
	c := addLocation(t, store, "3", "3 Pine St")
	fc.resp[a.TextForMapSearch()] = californiaResponse()
	fc.resp[b.TextForMapSearch()] = californiaResponse()
	fc.errs[c.TextForMapSearch()] = civic.ErrNotFound

	created, err := svc.CreateRepresentativesBatchProcess(ctx, "ca")
	require.NoError(t, err)
	require.True(t, created.Success)

	first, err := svc.ProcessNextRepresentatives(ctx)
	require.NoError(t, err)
	assert.True(t, first.Claimed)
	assert.Equal(t, 2, first.Retrieved)
	assert.False(t, first.Completed)
	assert.True(t, first.Status.Has(representatives.StatusBatchProcessReleased))

	second, err := svc.ProcessNextRepresentatives(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Retrieved)
	assert.Equal(t, 1, second.Failed)
	assert.True(t, second.Completed)

	bp, err := store.GetBatchProcess(ctx, created.BatchProcess.ID)
	require.NoError(t, err)
	require.NotNil(t, bp.DateCompleted)
	assert.Equal(t, 2, bp.PollingLocationsRetrieved)

	done, err := svc.ProcessNextRepresentatives(ctx)
	require.NoError(t, err)
	assert.False(t, done.Claimed)
	assert.Len(t, fc.calls, 3)
}

func TestLimiterDeadlineAbortsBatch(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCivic()
	svc, store := newService(t, fc, representatives.Config{BatchSize: 5, FailedLocationCooldown: time.Hour})
	store.Now = func() time.Time { return time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC) }

	loc := addLocation(t, store, "1", "1 Main St")
	// A limiter that cannot grant a token before the deadline leaves ctx itself live.
	fc.errs[loc.TextForMapSearch()] = fmt.Errorf("%w: %w", civic.ErrLimiterWait, context.DeadlineExceeded)

	created, err := svc.CreateRepresentativesBatchProcess(ctx, "CA")
	require.NoError(t, err)

	_, err = svc.ProcessNextRepresentatives(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, store.LogEntries(), "an aborted run is not a request crash")

	bp, err := store.GetBatchProcess(ctx, created.BatchProcess.ID)
	require.NoError(t, err)
	assert.Nil(t, bp.DateCompleted)
	assert.Nil(t, bp.DateCheckedOut, "the process is checked back in")

	delete(fc.errs, loc.TextForMapSearch())
	fc.resp[loc.TextForMapSearch()] = californiaResponse()
	again, err := svc.ProcessNextRepresentatives(ctx)
	require.NoError(t, err)
	assert.True(t, again.Claimed)
	assert.Equal(t, 1, again.Retrieved)
}

func TestRequestErrorIsLoggedNotAborted(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCivic()
	svc, store := newService(t, fc, representatives.Config{})

	loc := addLocation(t, store, "1", "1 Main St")
	fc.errs[loc.TextForMapSearch()] = fmt.Errorf("civic: send request: %w", context.DeadlineExceeded)

	res, err := svc.RetrieveRepresentativesForPollingLocation(ctx, loc, representatives.RetrieveOptions{Rules: model.AllowAll()})
	require.NoError(t, err)
	assert.Equal(t, model.LogKindRequestCrash, res.LogKind)
	assert.True(t, res.Status.Has(representatives.StatusCivicRequestFailed))
	assert.Len(t, store.LogEntries(), 1)
}

func TestCreateRepresentativesBatchProcessNeedsState(t *testing.T) {
	svc, _ := newService(t, newFakeCivic(), representatives.Config{})
	res, err := svc.CreateRepresentativesBatchProcess(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Status.Has(representatives.StatusStateCodeMissing))
}
