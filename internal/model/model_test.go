package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/model"
)

func TestFormatWeVoteID(t *testing.T) {
	assert.Equal(t, "wvabcpos12", model.FormatWeVoteID("ABC", model.AbbrevPosition, 12))
	assert.Equal(t, "wv1officeheld3", model.FormatWeVoteID("1", model.AbbrevOfficeHeld, 3))

	require.NoError(t, model.ValidateSitePrefix("wv01"))
	require.Error(t, model.ValidateSitePrefix(""))
	require.Error(t, model.ValidateSitePrefix("ab-c"))
	require.Error(t, model.ValidateSitePrefix("toolongprefix"))
}

func TestAddToSlots(t *testing.T) {
	var a, b, c string
	assert.True(t, model.AddToSlots("http://x.gov", &a, &b, &c))
	assert.False(t, model.AddToSlots("HTTP://X.GOV", &a, &b, &c), "duplicates are case-insensitive")
	assert.True(t, model.AddToSlots("http://y.gov", &a, &b, &c))
	assert.True(t, model.AddToSlots("http://z.gov", &a, &b, &c))
	assert.False(t, model.AddToSlots("http://w.gov", &a, &b, &c), "all slots full")
	assert.False(t, model.AddToSlots("  ", &a, &b, &c))
	assert.Equal(t, []string{"http://x.gov", "http://y.gov", "http://z.gov"}, []string{a, b, c})
}

func TestAddYear(t *testing.T) {
	var years []int32
	years = model.AddYear(years, 2024)
	years = model.AddYear(years, 2020)
	years = model.AddYear(years, 2026)
	years = model.AddYear(years, 2024)
	assert.Equal(t, []int32{2020, 2024, 2026}, years)
}

func TestTextForMapSearch(t *testing.T) {
	loc := model.PollingLocation{Line1: "1 Main St", Line2: "Room 2", City: "Oakland", State: "ca", ZipLong: "94612"}
	assert.Equal(t, "1 Main St Room 2, Oakland, CA 94612", loc.TextForMapSearch())
	assert.Equal(t, "Oakland", model.PollingLocation{City: "Oakland"}.TextForMapSearch())
}

func TestRoleRank(t *testing.T) {
	ordered := []model.VoterRole{
		model.RolePoliticalDataViewer,
		model.RoleVerifiedVolunteer,
		model.RolePoliticalDataManager,
		model.RoleAdmin,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, model.RoleRank(ordered[i]), model.RoleRank(ordered[i-1]))
	}
	assert.Equal(t, model.RoleRank(model.RolePoliticalDataViewer), model.RoleRank(model.RolePartnerOrganization))
	assert.Equal(t, 0, model.RoleRank(model.VoterRole("unknown")))
	assert.True(t, model.RoleAtLeast(model.RoleAdmin, model.RoleVerifiedVolunteer))
	assert.False(t, model.RoleAtLeast(model.RolePartnerOrganization, model.RoleVerifiedVolunteer))
}

func TestVoterRoles(t *testing.T) {
	v := model.Voter{FirstName: "Ada", IsVerifiedVolunteer: true, IsPoliticalDataViewer: true}
	assert.Equal(t, "Ada", v.FullName())
	assert.Equal(t, model.RoleVerifiedVolunteer, v.HighestRole())
	assert.True(t, v.HasAuthority(model.RoleAdmin, model.RoleVerifiedVolunteer))
	assert.False(t, v.HasAuthority(model.RoleAdmin))
	assert.Equal(t, model.VoterRole(""), model.Voter{}.HighestRole())
}

func TestValidateVoterDeviceID(t *testing.T) {
	require.NoError(t, model.ValidateVoterDeviceID("abc-DEF_123"))
	require.Error(t, model.ValidateVoterDeviceID(""))
	require.Error(t, model.ValidateVoterDeviceID("has space"))
	require.Error(t, model.ValidateVoterDeviceID(strings.Repeat("a", 256)))
}

func TestRawKeyRoundTrip(t *testing.T) {
	raw, prefix, err := model.GenerateRawKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "wv_"))
	got, err := model.ParseRawKey(raw)
	require.NoError(t, err)
	assert.Equal(t, prefix, got)

	_, err = model.ParseRawKey("ak_abc_def")
	require.Error(t, err)
	_, err = model.ParseRawKey("wv_abc_")
	require.Error(t, err)
}

func TestParsePossibilityType(t *testing.T) {
	assert.Equal(t, model.PossibilityEndorsementsForCandidate, model.ParsePossibilityType("ENDORSEMENTS_FOR_CANDIDATE"))
	assert.Equal(t, model.PossibilityUnknownType, model.ParsePossibilityType("whatever"))
	assert.Equal(t, model.PossibilityUnknownType, model.ParsePossibilityType(""))
}

func TestVoterGuideJSONFields(t *testing.T) {
	raw, err := json.Marshal(model.VoterGuide{
		OrganizationWeVoteID:  "wvtestorg1",
		GoogleCivicElectionID: 7000,
		NumberOfPositions:     2,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "wvtestorg1", fields["organization_we_vote_id"])
	assert.InDelta(t, 2, fields["number_of_positions"], 0)
	assert.NotContains(t, fields, "election_day_text", "voter guides carry no election day text")
}
