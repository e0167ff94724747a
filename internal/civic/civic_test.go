package civic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevote/wevoteserver/internal/civic"
)

const sampleResponse = `{
  "normalizedInput": {"line1": "1 Main St", "city": "Oakland", "state": "CA", "zip": "94612"},
  "divisions": {"ocd-division/country:us/state:ca": {"name": "California", "officeIndices": [0]}},
  "offices": [{"name": "Governor of California", "divisionId": "ocd-division/country:us/state:ca",
               "levels": ["administrativeArea1"], "roles": ["headOfGovernment"], "officialIndices": [0, 7]}],
  "officials": [{"name": "Jane Doe", "party": "Independent", "phones": ["(916) 555-0100"],
                 "channels": [{"type": "Twitter", "id": "janedoe"}]}]
}`

type recorder struct {
	mu      sync.Mutex
	queries []url.Values
}

func (r *recorder) all() []url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]url.Values(nil), r.queries...)
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.queries = append(rec.queries, r.URL.Query())
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestRepresentativesByAddress(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, sampleResponse)
	c := civic.NewClient(civic.Config{APIKey: "k123", BaseURL: srv.URL, Timeout: time.Second})

	resp, err := c.RepresentativesByAddress(context.Background(), "1 Main St, Oakland, CA 94612")
	require.NoError(t, err)
	queries := seen.all()
	require.Len(t, queries, 1)
	assert.Equal(t, "k123", queries[0].Get("key"))
	assert.Equal(t, "1 Main St, Oakland, CA 94612", queries[0].Get("address"))

	require.Len(t, resp.Offices, 1)
	assert.Equal(t, "ocd-division/country:us/state:ca", resp.Offices[0].DivisionID)
	officials := resp.OfficialsFor(resp.Offices[0])
	require.Len(t, officials, 1, "out-of-range index is skipped")
	assert.Equal(t, "Jane Doe", officials[0].Name)
	assert.Equal(t, "janedoe", officials[0].Channels[0].ID)
}

func TestRepresentativesByAddressErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"reason rate limit", http.StatusForbidden,
			`{"error":{"code":403,"message":"quota","errors":[{"reason":"rateLimitExceeded"}]}}`, civic.ErrRateLimited},
		{"status 429", http.StatusTooManyRequests, ``, civic.ErrRateLimited},
		{"parse error", http.StatusBadRequest,
			`{"error":{"code":400,"message":"Failed to parse address","errors":[{"reason":"parseError"}]}}`, civic.ErrAddressParse},
		{"not found", http.StatusNotFound,
			`{"error":{"code":404,"message":"No information for this address","errors":[{"reason":"notFound"}]}}`, civic.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			c := civic.NewClient(civic.Config{APIKey: "k", BaseURL: srv.URL})
			_, err := c.RepresentativesByAddress(context.Background(), "anywhere")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRepresentativesByAddressUnexpectedStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, `oops`)
	c := civic.NewClient(civic.Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.RepresentativesByAddress(context.Background(), "anywhere")
	require.Error(t, err)
	assert.NotErrorIs(t, err, civic.ErrNotFound)
	assert.Contains(t, err.Error(), "500")
}

func TestRepresentativesByAddressRequiresKey(t *testing.T) {
	c := civic.NewClient(civic.Config{})
	_, err := c.RepresentativesByAddress(context.Background(), "anywhere")
	assert.ErrorIs(t, err, civic.ErrNoAPIKey)
}

func TestRepresentativesByAddressHonoursCancel(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, sampleResponse)
	c := civic.NewClient(civic.Config{APIKey: "k", BaseURL: srv.URL, RPS: 0.001})

	_, err := c.RepresentativesByAddress(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.RepresentativesByAddress(ctx, "second")
	require.Error(t, err, "second call must wait for the limiter")
	assert.ErrorIs(t, err, civic.ErrLimiterWait)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a deadline the limiter cannot meet reads as a deadline")
	assert.Len(t, seen.all(), 1)
}
