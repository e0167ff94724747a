package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/apidocs"
	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/authz"
	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/server"
	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/service/voterguides"
	"github.com/wevote/wevoteserver/internal/testutil"
)

const bootstrapKey = "bootstrap-test-key"

type offlineCivic struct{}

func (offlineCivic) RepresentativesByAddress(context.Context, string) (civic.RepresentativesResponse, error) {
	return civic.RepresentativesResponse{}, errors.New("civic api unavailable in tests")
}

type testEnv struct {
	handler http.Handler
	store   *testutil.MemStore
}

func newTestEnv(t *testing.T, requireAPIKey bool) *testEnv {
	t.Helper()
	logger := testutil.TestLogger()
	store := testutil.NewMemStore()

	jwtMgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	cache := authz.NewKeyCache(time.Minute)
	t.Cleanup(cache.Close)

	positionSvc := positions.New(store, logger)
	srv := server.New(server.ServerConfig{
		Store:            store,
		JWTMgr:           jwtMgr,
		Positions:        positionSvc,
		VoterGuides:      voterguides.New(store, positionSvc, nil, logger),
		PollingLocations: pollinglocations.New(store, logger),
		Representatives:  representatives.New(store, offlineCivic{}, representatives.Config{}, logger),
		Logger:           logger,
		KeyVerifier:      authz.NewKeyVerifier(store, cache, bootstrapKey, logger),
		RequireAPIKey:    requireAPIKey,
		Version:          "test",

		MaxRequestBodyBytes: 1 << 20,
	})
	return &testEnv{handler: srv.Handler(), store: store}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// voter creates a voter reachable through deviceID.
func (e *testEnv) voter(t *testing.T, deviceID string, v model.Voter) model.Voter {
	t.Helper()
	created, err := e.store.CreateVoter(context.Background(), v, deviceID)
	require.NoError(t, err)
	return created
}

func (e *testEnv) token(t *testing.T, deviceID string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/admin/token", "", model.TokenRequest{VoterDeviceID: deviceID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type statusBody struct {
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func apiURL(name string, params url.Values) string {
	u := apidocs.URLRoot + name
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[model.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestEveryDocumentedEndpointIsRouted(t *testing.T) {
	env := newTestEnv(t, false)
	for _, ep := range apidocs.All() {
		for _, path := range []string{strings.TrimSuffix(ep.URLRoot, "/"), ep.URLRoot} {
			rec := env.do(t, ep.Method, path, "", nil)
			assert.NotEqual(t, http.StatusNotFound, rec.Code, "%s %s", ep.Method, path)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", ep.Method, path)
		}
	}
}

func TestDocsEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/apis/v1/docs/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, "docs need no api key")
	index := decode[struct {
		statusBody
		APIList []struct {
			Name    string `json:"api_name"`
			DocsURL string `json:"docs_url"`
		} `json:"api_list"`
	}](t, rec)
	assert.True(t, index.Success)
	assert.Len(t, index.APIList, len(apidocs.All()))

	rec = env.do(t, http.MethodGet, "/apis/v1/docs/voterPositionRetrieve/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ep := decode[apidocs.Endpoint](t, rec)
	assert.Equal(t, "voterPositionRetrieve", ep.Name)

	rec = env.do(t, http.MethodGet, "/apis/v1/docs/noSuchEndpoint", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, true)
	target := apiURL("positionRetrieve", url.Values{"position_we_vote_id": {"wvtestpos1"}})

	rec := env.do(t, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, model.StatusValidAPIKeyMissing, decode[statusBody](t, rec).Status)

	rec = env.do(t, http.MethodGet, target+"&api_key=wrong", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, target+"&api_key="+bootstrapKey, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[statusBody](t, rec)
	assert.Equal(t, model.StatusRetrievePositionNoneFound, body.Status)
}

func TestVoterPositionRetrieveWithoutDevice(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, apiURL("voterPositionRetrieve", url.Values{
		"kind_of_ballot_item":    {"CANDIDATE"},
		"ballot_item_we_vote_id": {"wvtestcand1"},
	}), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[statusBody](t, rec)
	assert.False(t, body.Success)
	assert.Contains(t, body.Status, model.StatusValidVoterDeviceIDMissing)
	assert.Contains(t, body.Status, model.StatusValidVoterIDMissing)
}

func TestVoterPositionSaveAndRetrieve(t *testing.T) {
	env := newTestEnv(t, false)
	env.voter(t, "device-1", model.Voter{FirstName: "Ada", LastName: "Lovelace"})
	item := url.Values{
		"voter_device_id":        {"device-1"},
		"kind_of_ballot_item":    {"CANDIDATE"},
		"ballot_item_we_vote_id": {"wvtestcand7"},
	}

	save := url.Values{"stance": {"support"}, "statement_text": {"Strong on transit."}}
	for k, v := range item {
		save[k] = v
	}
	rec := env.do(t, http.MethodPost, apiURL("voterPositionSave", save), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[struct {
		statusBody
		WeVoteID           string `json:"position_we_vote_id"`
		Stance             string `json:"stance"`
		IsPublicPosition   bool   `json:"is_public_position"`
		NewPositionCreated bool   `json:"new_position_created"`
	}](t, rec)
	require.True(t, saved.Success, saved.Status)
	assert.True(t, saved.NewPositionCreated)
	assert.Equal(t, "SUPPORT", saved.Stance)
	assert.False(t, saved.IsPublicPosition, "voter positions start friends-only")

	rec = env.do(t, http.MethodGet, apiURL("voterPositionRetrieve", item), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		statusBody
		WeVoteID      string `json:"position_we_vote_id"`
		StatementText string `json:"statement_text"`
	}](t, rec)
	assert.True(t, got.Success)
	assert.Equal(t, saved.WeVoteID, got.WeVoteID)
	assert.Equal(t, "Strong on transit.", got.StatementText)

	// Friends-only positions are invisible to positionRetrieve.
	rec = env.do(t, http.MethodGet, apiURL("positionRetrieve", url.Values{"position_we_vote_id": {saved.WeVoteID}}), "", nil)
	assert.Equal(t, model.StatusRetrievePositionNoneFound, decode[statusBody](t, rec).Status)

	vis := url.Values{"visibility_setting": {"SHOW_PUBLIC"}}
	for k, v := range item {
		vis[k] = v
	}
	rec = env.do(t, http.MethodPost, apiURL("voterPositionVisibilitySave", vis), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[statusBody](t, rec).Success)

	rec = env.do(t, http.MethodGet, apiURL("positionRetrieve", url.Values{"position_we_vote_id": {saved.WeVoteID}}), "", nil)
	public := decode[struct {
		statusBody
		WeVoteID         string `json:"position_we_vote_id"`
		IsPublicPosition bool   `json:"is_public_position"`
	}](t, rec)
	assert.True(t, public.Success)
	assert.True(t, public.IsPublicPosition)
	assert.Equal(t, saved.WeVoteID, public.WeVoteID)
}

func TestVoterPositionSaveRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, false)
	env.voter(t, "device-2", model.Voter{})

	rec := env.do(t, http.MethodPost, apiURL("voterPositionSave", url.Values{
		"voter_device_id":        {"device-2"},
		"kind_of_ballot_item":    {"CANDIDATE"},
		"ballot_item_we_vote_id": {"wvtestcand1"},
		"stance":                 {"MAYBE"},
	}), "", nil)
	body := decode[statusBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "STANCE_INVALID", body.Status)

	rec = env.do(t, http.MethodPost, apiURL("voterPositionVisibilitySave", url.Values{
		"voter_device_id":    {"device-2"},
		"visibility_setting": {"EVERYONE"},
	}), "", nil)
	body = decode[statusBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "VISIBILITY_SETTING_INVALID", body.Status)
}

func TestVoterGuidePossibilitySaveAndRetrieve(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, apiURL("voterGuidePossibilitySave", url.Values{
		"voter_guide_possibility_url": {"https://example.org/endorsements"},
		"organization_name":           {"Example League"},
		"state_code":                  {"CA"},
	}), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[struct {
		statusBody
		ID      int64 `json:"voter_guide_possibility_id"`
		Created bool  `json:"created"`
	}](t, rec)
	require.True(t, saved.Success, saved.Status)
	assert.True(t, saved.Created)
	assert.Positive(t, saved.ID)

	rec = env.do(t, http.MethodGet, apiURL("voterGuidePossibilityRetrieve", url.Values{
		"voter_guide_possibility_url": {"https://example.org/endorsements"},
	}), "", nil)
	got := decode[struct {
		statusBody
		ID int64 `json:"voter_guide_possibility_id"`
	}](t, rec)
	assert.True(t, got.Success)
	assert.Equal(t, saved.ID, got.ID)

	rec = env.do(t, http.MethodPost, apiURL("voterGuidePossibilitySave", nil), "", nil)
	assert.False(t, decode[statusBody](t, rec).Success, "a url or id is required")
}

func TestVoterGuidesRetrieveNeedsFilter(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, apiURL("voterGuidesRetrieve", nil), "", nil)
	body := decode[statusBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "ORGANIZATION_WE_VOTE_ID_OR_ELECTION_ID_MISSING", body.Status)
}

func TestPollingLocationsSyncOut(t *testing.T) {
	env := newTestEnv(t, false)
	_, err := env.store.CreatePollingLocation(context.Background(), model.PollingLocation{
		PollingLocationID: "1001",
		LocationName:      "Town Hall",
		State:             "CA",
		City:              "Oakland",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, apiURL("pollingLocationsSyncOut", url.Values{"state_code": {"CA"}}), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.PollingLocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Town Hall", list[0].LocationName)
}

func TestAdminTokenFlow(t *testing.T) {
	env := newTestEnv(t, false)
	env.voter(t, "plain-device", model.Voter{})
	env.voter(t, "viewer-device", model.Voter{IsPoliticalDataViewer: true})

	rec := env.do(t, http.MethodPost, "/admin/token", "", model.TokenRequest{VoterDeviceID: "unknown-device"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/token", "", model.TokenRequest{VoterDeviceID: "plain-device"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/token", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	viewer := env.token(t, "viewer-device")

	rec = env.do(t, http.MethodGet, "/admin/voter-guide-possibilities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/voter-guide-possibilities", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/voter-guide-possibilities", viewer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/batch-processes", viewer, map[string]string{"state_code": "CA"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/api-keys", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminValidation(t *testing.T) {
	env := newTestEnv(t, false)
	env.voter(t, "manager-device", model.Voter{IsPoliticalDataManager: true})
	manager := env.token(t, "manager-device")

	rec := env.do(t, http.MethodPost, "/admin/polling-locations", manager, map[string]any{"location_name": "No state"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/voter-guide-possibilities/abc/promote", manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/polling-locations/wvtestploc404", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[statusBody](t, rec).Success)
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.voter(t, "admin-device", model.Voter{IsAdmin: true})
	token := env.token(t, "admin-device")

	rec := env.do(t, http.MethodPost, "/admin/api-keys", token, model.CreateKeyRequest{Label: "partner"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		statusBody
		model.APIKeyWithRawKey
	}](t, rec)
	require.NotEmpty(t, created.RawKey)
	assert.Equal(t, admin.WeVoteID, created.CreatedBy)

	target := apiURL("voterGuidesRetrieve", url.Values{
		"google_civic_election_id": {"7000"},
		"api_key":                  {created.RawKey},
	})
	rec = env.do(t, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/api-keys", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		statusBody
		Keys []model.APIKey `json:"keys"`
	}](t, rec)
	require.Len(t, list.Keys, 1)
	assert.NotContains(t, rec.Body.String(), created.RawKey)

	rec = env.do(t, http.MethodDelete, "/admin/api-keys/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, target, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked keys stop working at once")

	rec = env.do(t, http.MethodDelete, "/admin/api-keys/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/admin/api-keys/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
