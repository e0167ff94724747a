// Package civic is a client for the Google Civic Information
// "representatives by address" API.
package civic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/wevote/wevoteserver/internal/telemetry"
)

// DefaultRepresentativesURL is the production endpoint.
const DefaultRepresentativesURL = "https://www.googleapis.com/civicinfo/v2/representatives"

// Sentinel errors returned by RepresentativesByAddress.
var (
	ErrRateLimited  = errors.New("civic: rate limit exceeded")
	ErrAddressParse = errors.New("civic: address could not be parsed")
	ErrNotFound     = errors.New("civic: no information for address")
	ErrNoAPIKey     = errors.New("civic: no API key configured")

	// ErrLimiterWait is returned, together with the context error, when a
	// call gives up waiting for the rate limiter.
	ErrLimiterWait = errors.New("civic: rate limiter wait aborted")
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RPS is the sustained request rate shared by every call. Zero or less
	// disables the limiter.
	RPS float64
}

// Client calls the Google Civic API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	duration metric.Float64Histogram
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRepresentativesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	dur, _ := telemetry.Meter("wevote/civic").Float64Histogram("wevote.civic.request.duration",
		metric.WithDescription("Google Civic request duration (ms)"),
		metric.WithUnit("ms"),
	)
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		duration:   dur,
	}
}

// Division is one entry of the response's divisions map.
type Division struct {
	Name          string `json:"name"`
	OfficeIndices []int  `json:"officeIndices"`
}

// Office is an elected office returned for the address.
type Office struct {
	Name            string   `json:"name"`
	DivisionID      string   `json:"divisionId"`
	Levels          []string `json:"levels"`
	Roles           []string `json:"roles"`
	OfficialIndices []int    `json:"officialIndices"`
}

// Channel is a social media account of an official.
type Channel struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Official is a person currently holding an office.
type Official struct {
	Name     string    `json:"name"`
	Party    string    `json:"party"`
	Phones   []string  `json:"phones"`
	URLs     []string  `json:"urls"`
	Emails   []string  `json:"emails"`
	PhotoURL string    `json:"photoUrl"`
	Channels []Channel `json:"channels"`
}

// NormalizedInput is the address as Google understood it.
type NormalizedInput struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// RepresentativesResponse is the decoded body of a successful call.
type RepresentativesResponse struct {
	NormalizedInput NormalizedInput     `json:"normalizedInput"`
	Divisions       map[string]Division `json:"divisions"`
	Offices         []Office            `json:"offices"`
	Officials       []Official          `json:"officials"`
}

// OfficialsFor returns the officials listed under office, skipping indices
// outside the officials array.
func (r RepresentativesResponse) OfficialsFor(office Office) []Official {
	out := make([]Official, 0, len(office.OfficialIndices))
	for _, i := range office.OfficialIndices {
		if i >= 0 && i < len(r.Officials) {
			out = append(out, r.Officials[i])
		}
	}
	return out
}

type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// RepresentativesByAddress looks up the offices and officials serving
// address. Calls wait on the shared rate limiter and are not retried.
func (c *Client) RepresentativesByAddress(ctx context.Context, address string) (RepresentativesResponse, error) {
	if c.apiKey == "" {
		return RepresentativesResponse{}, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		cause := ctx.Err()
		if cause == nil {
			// Wait fails early when the deadline would pass before a token frees up.
			cause = context.DeadlineExceeded
		}
		return RepresentativesResponse{}, fmt.Errorf("%w: %w (%v)", ErrLimiterWait, cause, err)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("address", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return RepresentativesResponse{}, fmt.Errorf("civic: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RepresentativesResponse{}, fmt.Errorf("civic: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.duration.Record(ctx, telemetry.DurationMS(start),
		metric.WithAttributes(attribute.Int("http.status_code", resp.StatusCode)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return RepresentativesResponse{}, fmt.Errorf("civic: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return RepresentativesResponse{}, classify(resp.StatusCode, body)
	}

	var out RepresentativesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return RepresentativesResponse{}, fmt.Errorf("civic: unmarshal response: %w", err)
	}
	return out, nil
}

// classify maps an error response onto the package sentinels. The error
// reason wins over the HTTP status when both are present.
func classify(status int, body []byte) error {
	var e apiError
	msg := ""
	if json.Unmarshal(body, &e) == nil && e.Error != nil {
		msg = e.Error.Message
		for _, d := range e.Error.Errors {
			switch d.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
				return fmt.Errorf("%w: %s", ErrRateLimited, msg)
			case "parseError":
				return fmt.Errorf("%w: %s", ErrAddressParse, msg)
			case "notFound":
				return fmt.Errorf("%w: %s", ErrNotFound, msg)
			}
		}
	}
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrAddressParse, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("civic: unexpected status %d: %s", status, msg)
}
