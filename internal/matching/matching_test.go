package matching_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/matching"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/testutil"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  José  Álvarez ", "jose alvarez"},
		{"O'Brien-Smith, Jr.", "o brien smith jr"},
		{"ＡＢＣ Party", "abc party"},
		{"Prop. 47: Reduced Penalties", "prop 47 reduced penalties"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matching.NormalizeName(tt.in), tt.in)
	}
}

func TestNormalizeTwitterHandle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"@WeVote", "wevote"},
		{"wevote", "wevote"},
		{"https://twitter.com/WeVote", "wevote"},
		{"x.com/WeVote/status/1", "wevote"},
		{"https://example.com/wevote", ""},
		{"not a handle", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matching.NormalizeTwitterHandle(tt.in), tt.in)
	}
}

func candidates() []model.Candidate {
	return []model.Candidate{
		{WeVoteID: "wvtestcand1", CandidateName: "Maria Gonzalez", TwitterHandle: "MariaForCA"},
		{WeVoteID: "wvtestcand2", CandidateName: "Robert Smith", GoogleCivicCandidateName: "Bob Smith"},
		{WeVoteID: "wvtestcand3", CandidateName: "Robert Smithers"},
	}
}

func TestMatchCandidate(t *testing.T) {
	tests := []struct {
		name       string
		pageName   string
		handle     string
		wantID     string
		wantMethod matching.Method
	}{
		{"handle wins", "Somebody Else", "@mariaforca", "wvtestcand1", matching.MethodTwitterHandle},
		{"diacritics folded", "María González", "", "wvtestcand1", matching.MethodExactName},
		{"alternate name", "bob smith", "", "wvtestcand2", matching.MethodExactName},
		{"fuzzy first in order", "Robert Smth", "", "wvtestcand2", matching.MethodFuzzyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, method, ok := matching.MatchCandidate(tt.pageName, tt.handle, candidates())
			require.True(t, ok)
			assert.Equal(t, tt.wantID, c.WeVoteID)
			assert.Equal(t, tt.wantMethod, method)
		})
	}
}

func TestMatchCandidateNoMatch(t *testing.T) {
	_, method, ok := matching.MatchCandidate("Completely Different Person", "", candidates())
	assert.False(t, ok)
	assert.Equal(t, matching.MethodNone, method)

	_, _, ok = matching.MatchCandidate("", "", candidates())
	assert.False(t, ok)
}

func TestMatchMeasure(t *testing.T) {
	universe := []model.Measure{
		{WeVoteID: "wvtestmeas1", MeasureTitle: "Proposition 1", GoogleCivicMeasureTitle: "Prop. 1 Housing Bond"},
		{WeVoteID: "wvtestmeas2", MeasureTitle: "Measure A"},
	}
	m, method, ok := matching.MatchMeasure("PROP 1 housing bond", universe)
	require.True(t, ok)
	assert.Equal(t, "wvtestmeas1", m.WeVoteID)
	assert.Equal(t, matching.MethodExactName, method)

	_, _, ok = matching.MatchMeasure("Measure ZZZ Parks Tax", universe)
	assert.False(t, ok)
}

type countingSource struct {
	*testutil.MemStore
	candidateLoads int
}

func (c *countingSource) ListCandidatesForYears(ctx context.Context, state string, years []int) ([]model.Candidate, error) {
	c.candidateLoads++
	return c.MemStore.ListCandidatesForYears(ctx, state, years)
}

func TestCacheMemoizesUniverse(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{MemStore: testutil.NewMemStore()}
	_, err := src.CreateCandidate(ctx, model.Candidate{CandidateName: "Maria Gonzalez", StateCode: "CA", CandidateYear: 2026})
	require.NoError(t, err)

	cache := matching.NewCache(src)
	first, err := cache.Candidates(ctx, "ca", []int{2027, 2026})
	require.NoError(t, err)
	second, err := cache.Candidates(ctx, "CA", []int{2026, 2027})
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.candidateLoads)
}

func TestCacheOrganizationLookupOrder(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	byHandle, err := store.CreateOrganization(ctx, model.Organization{OrganizationName: "Sierra Club", OrganizationTwitterHandle: "SierraClub"})
	require.NoError(t, err)
	byName, err := store.CreateOrganization(ctx, model.Organization{OrganizationName: "League of Voters"})
	require.NoError(t, err)

	cache := matching.NewCache(store)

	org, method, ok, err := cache.Organization(ctx, matching.OrganizationKey{WeVoteID: byName.WeVoteID, TwitterHandle: "sierraclub"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byName.WeVoteID, org.WeVoteID)
	assert.Equal(t, matching.MethodWeVoteID, method)

	org, method, ok, err = cache.Organization(ctx, matching.OrganizationKey{TwitterHandle: "https://twitter.com/SierraClub", Name: "League of Voters"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byHandle.WeVoteID, org.WeVoteID)
	assert.Equal(t, matching.MethodTwitterHandle, method)

	org, method, ok, err = cache.Organization(ctx, matching.OrganizationKey{Name: "league of voters"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byName.WeVoteID, org.WeVoteID)
	assert.Equal(t, matching.MethodExactName, method)

	_, _, ok, err = cache.Organization(ctx, matching.OrganizationKey{Name: "Nobody"})
	require.NoError(t, err)
	assert.False(t, ok)
}
