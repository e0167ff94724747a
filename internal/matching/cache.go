package matching

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// Source loads the matching universe. *storage.DB implements it.
type Source interface {
	ListCandidatesForYears(ctx context.Context, stateCode string, years []int) ([]model.Candidate, error)
	ListMeasuresForYears(ctx context.Context, stateCode string, years []int) ([]model.Measure, error)
	GetOrganizationByWeVoteID(ctx context.Context, weVoteID string) (model.Organization, error)
	FindOrganizationsByTwitterHandle(ctx context.Context, handle string) ([]model.Organization, error)
	FindOrganizationsByName(ctx context.Context, name string) ([]model.Organization, error)
}

// OrganizationKey is what a page tells us about an organization.
type OrganizationKey struct {
	WeVoteID      string
	TwitterHandle string
	Name          string
}

type orgResult struct {
	org    model.Organization
	method Method
	found  bool
}

// Cache memoizes universe loads and organization lookups for the lifetime of
// one extraction. It is safe for concurrent use but must not outlive the call
// that created it.
type Cache struct {
	src Source

	mu         sync.Mutex
	candidates map[string][]model.Candidate
	measures   map[string][]model.Measure
	orgs       map[OrganizationKey]orgResult
}

// NewCache wraps src.
func NewCache(src Source) *Cache {
	return &Cache{
		src:        src,
		candidates: make(map[string][]model.Candidate),
		measures:   make(map[string][]model.Measure),
		orgs:       make(map[OrganizationKey]orgResult),
	}
}

func universeKey(stateCode string, years []int) string {
	ys := slices.Clone(years)
	slices.Sort(ys)
	parts := make([]string, len(ys))
	for i, y := range ys {
		parts[i] = strconv.Itoa(y)
	}
	return strings.ToUpper(stateCode) + "|" + strings.Join(parts, ",")
}

// Candidates returns the candidates in stateCode running in any of years.
func (c *Cache) Candidates(ctx context.Context, stateCode string, years []int) ([]model.Candidate, error) {
	key := universeKey(stateCode, years)
	c.mu.Lock()
	cached, ok := c.candidates[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	out, err := c.src.ListCandidatesForYears(ctx, stateCode, years)
	if err != nil {
		return nil, fmt.Errorf("matching: load candidates for %s: %w", key, err)
	}
	c.mu.Lock()
	c.candidates[key] = out
	c.mu.Unlock()
	return out, nil
}

// Measures returns the measures in stateCode for any of years.
func (c *Cache) Measures(ctx context.Context, stateCode string, years []int) ([]model.Measure, error) {
	key := universeKey(stateCode, years)
	c.mu.Lock()
	cached, ok := c.measures[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	out, err := c.src.ListMeasuresForYears(ctx, stateCode, years)
	if err != nil {
		return nil, fmt.Errorf("matching: load measures for %s: %w", key, err)
	}
	c.mu.Lock()
	c.measures[key] = out
	c.mu.Unlock()
	return out, nil
}

// Organization resolves key by we_vote_id, then Twitter handle, then exact
// name. When several organizations share a handle or name the first on file
// wins. Misses are cached too.
func (c *Cache) Organization(ctx context.Context, key OrganizationKey) (model.Organization, Method, bool, error) {
	key.TwitterHandle = NormalizeTwitterHandle(key.TwitterHandle)
	key.Name = strings.TrimSpace(key.Name)
	c.mu.Lock()
	cached, ok := c.orgs[key]
	c.mu.Unlock()
	if ok {
		return cached.org, cached.method, cached.found, nil
	}

	res, err := c.lookupOrganization(ctx, key)
	if err != nil {
		return model.Organization{}, MethodNone, false, err
	}
	c.mu.Lock()
	c.orgs[key] = res
	c.mu.Unlock()
	return res.org, res.method, res.found, nil
}

func (c *Cache) lookupOrganization(ctx context.Context, key OrganizationKey) (orgResult, error) {
	if key.WeVoteID != "" {
		org, err := c.src.GetOrganizationByWeVoteID(ctx, key.WeVoteID)
		switch {
		case err == nil:
			return orgResult{org: org, method: MethodWeVoteID, found: true}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return orgResult{}, fmt.Errorf("matching: organization %s: %w", key.WeVoteID, err)
		}
	}
	if key.TwitterHandle != "" {
		orgs, err := c.src.FindOrganizationsByTwitterHandle(ctx, key.TwitterHandle)
		if err != nil {
			return orgResult{}, fmt.Errorf("matching: organization by handle: %w", err)
		}
		if len(orgs) > 0 {
			return orgResult{org: orgs[0], method: MethodTwitterHandle, found: true}, nil
		}
	}
	if key.Name != "" {
		orgs, err := c.src.FindOrganizationsByName(ctx, key.Name)
		if err != nil {
			return orgResult{}, fmt.Errorf("matching: organization by name: %w", err)
		}
		if len(orgs) > 0 {
			return orgResult{org: orgs[0], method: MethodExactName, found: true}, nil
		}
	}
	return orgResult{}, nil
}
