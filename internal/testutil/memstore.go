package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// MemStore is an in-memory stand-in for *storage.DB. It satisfies every
// service Store interface and returns the same sentinel errors, so service
// tests run without Docker. Rows are kept in insertion order.
type MemStore struct {
	mu         sync.Mutex
	sitePrefix string
	counters   map[string]int64
	nextID     int64

	positions     map[model.Visibility][]model.Position
	voters        []model.Voter
	deviceLinks   map[string]string
	organizations []model.Organization
	candidates    []model.Candidate
	measures      []model.Measure
	offices       []model.ContestOffice
	voterGuides   []model.VoterGuide
	possibilities []model.VoterGuidePossibility
	possPositions []model.VoterGuidePossibilityPosition
	locations     []model.PollingLocation
	logEntries    []model.PollingLocationLogEntry
	batches       []model.BatchProcess
	officesHeld   []model.OfficeHeld
	reps          []model.Representative
	apiKeys       []model.APIKey

	// Now is the clock used for timestamps. Tests may replace it.
	Now func() time.Time
}

// NewMemStore returns an empty store minting ids with TestSitePrefix.
func NewMemStore() *MemStore {
	return &MemStore{
		sitePrefix:  TestSitePrefix,
		counters:    make(map[string]int64),
		positions:   make(map[model.Visibility][]model.Position),
		deviceLinks: make(map[string]string),
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemStore) mint(abbrev string) string {
	m.counters[abbrev]++
	return model.FormatWeVoteID(m.sitePrefix, abbrev, m.counters[abbrev])
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Ping always succeeds.
func (m *MemStore) Ping(context.Context) error { return nil }

// --- positions ---

func matchesPosition(p model.Position, f model.PositionMatch) bool {
	if !f.Speaker.IsZero() && p.Speaker() != f.Speaker {
		return false
	}
	if !f.BallotItem.IsZero() && p.BallotItem() != f.BallotItem {
		return false
	}
	if f.GoogleCivicElectionID > 0 && p.GoogleCivicElectionID != f.GoogleCivicElectionID {
		return false
	}
	if f.VoteSmartTimeSpan != "" && p.VoteSmartTimeSpan != f.VoteSmartTimeSpan {
		return false
	}
	if f.StateCode != "" && !strings.EqualFold(p.StateCode, f.StateCode) {
		return false
	}
	return true
}

func (m *MemStore) GetPositionByWeVoteID(_ context.Context, vis model.Visibility, weVoteID string) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.positions[vis] {
		if p.WeVoteID == weVoteID {
			return p, nil
		}
	}
	return model.Position{}, storage.ErrNotFound
}

func (m *MemStore) FindPositions(_ context.Context, vis model.Visibility, f model.PositionMatch, limit int) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Position
	for _, p := range m.positions[vis] {
		if matchesPosition(p, f) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemStore) CountPublicPositions(_ context.Context, organizationWeVoteID string, googleCivicElectionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.positions[model.VisibilityPublic] {
		if p.OrganizationWeVoteID == organizationWeVoteID && p.GoogleCivicElectionID == googleCivicElectionID {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) CreatePosition(_ context.Context, p model.Position) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPublic
	}
	if p.WeVoteID == "" {
		p.WeVoteID = m.mint(model.AbbrevPosition)
	}
	if p.Stance == "" {
		p.Stance = model.StanceNoStance
	}
	now := m.Now()
	p.ID = m.id()
	p.DateEntered, p.DateLastChanged = now, now
	m.positions[p.Visibility] = append(m.positions[p.Visibility], p)
	return p, nil
}

func (m *MemStore) UpdatePosition(_ context.Context, p model.Position) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.positions[p.Visibility]
	for i := range rows {
		if rows[i].WeVoteID == p.WeVoteID {
			p.ID, p.DateEntered = rows[i].ID, rows[i].DateEntered
			p.DateLastChanged = m.Now()
			rows[i] = p
			return p, nil
		}
	}
	return model.Position{}, storage.ErrNotFound
}

func (m *MemStore) removePosition(vis model.Visibility, weVoteID string) bool {
	rows := m.positions[vis]
	for i := range rows {
		if rows[i].WeVoteID == weVoteID {
			m.positions[vis] = slices.Delete(rows, i, i+1)
			return true
		}
	}
	return false
}

func (m *MemStore) MovePosition(_ context.Context, p model.Position, to model.Visibility) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removePosition(p.Visibility, p.WeVoteID) {
		return model.Position{}, storage.ErrNotFound
	}
	p.Visibility = to
	p.ID = m.id()
	p.DateLastChanged = m.Now()
	m.positions[to] = append(m.positions[to], p)
	return p, nil
}

func (m *MemStore) MergePositions(_ context.Context, keeper, duplicate model.Position) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.removePosition(duplicate.Visibility, duplicate.WeVoteID) {
		return model.Position{}, storage.ErrNotFound
	}
	rows := m.positions[keeper.Visibility]
	for i := range rows {
		if rows[i].WeVoteID == keeper.WeVoteID {
			keeper.DateLastChanged = m.Now()
			rows[i] = keeper
			return keeper, nil
		}
	}
	return model.Position{}, storage.ErrNotFound
}

// PositionsIn returns a copy of one table, for assertions.
func (m *MemStore) PositionsIn(vis model.Visibility) []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.positions[vis])
}

// --- voters ---

func (m *MemStore) GetVoterByDeviceID(_ context.Context, voterDeviceID string) (model.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	weVoteID, ok := m.deviceLinks[voterDeviceID]
	if !ok {
		return model.Voter{}, storage.ErrNotFound
	}
	for _, v := range m.voters {
		if v.WeVoteID == weVoteID {
			return v, nil
		}
	}
	return model.Voter{}, storage.ErrNotFound
}

func (m *MemStore) GetVoterByWeVoteID(_ context.Context, weVoteID string) (model.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voters {
		if v.WeVoteID == weVoteID {
			return v, nil
		}
	}
	return model.Voter{}, storage.ErrNotFound
}

func (m *MemStore) CreateVoter(_ context.Context, v model.Voter, voterDeviceID string) (model.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.deviceLinks[voterDeviceID]; taken && voterDeviceID != "" {
		return model.Voter{}, storage.ErrDuplicate
	}
	if v.WeVoteID == "" {
		v.WeVoteID = m.mint(model.AbbrevVoter)
	}
	v.ID = m.id()
	v.DateJoined = m.Now()
	m.voters = append(m.voters, v)
	if voterDeviceID != "" {
		m.deviceLinks[voterDeviceID] = v.WeVoteID
	}
	return v, nil
}

// --- organizations, candidates, measures, offices ---

func (m *MemStore) GetOrganizationByWeVoteID(_ context.Context, weVoteID string) (model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.organizations {
		if o.WeVoteID == weVoteID {
			return o, nil
		}
	}
	return model.Organization{}, storage.ErrNotFound
}

func (m *MemStore) FindOrganizationsByTwitterHandle(_ context.Context, handle string) ([]model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle = strings.TrimLeft(handle, "@")
	var out []model.Organization
	for _, o := range m.organizations {
		if o.OrganizationTwitterHandle != "" && strings.EqualFold(o.OrganizationTwitterHandle, handle) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemStore) FindOrganizationsByName(_ context.Context, name string) ([]model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Organization
	for _, o := range m.organizations {
		if strings.EqualFold(o.OrganizationName, name) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemStore) CreateOrganization(_ context.Context, o model.Organization) (model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.WeVoteID == "" {
		o.WeVoteID = m.mint(model.AbbrevOrganization)
	}
	o.ID = m.id()
	m.organizations = append(m.organizations, o)
	return o, nil
}

func (m *MemStore) ListCandidatesForYears(_ context.Context, stateCode string, years []int) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Candidate
	for _, c := range m.candidates {
		if slices.Contains(years, c.CandidateYear) && (stateCode == "" || strings.EqualFold(c.StateCode, stateCode)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) GetCandidateByWeVoteID(_ context.Context, weVoteID string) (model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.WeVoteID == weVoteID {
			return c, nil
		}
	}
	return model.Candidate{}, storage.ErrNotFound
}

func (m *MemStore) CreateCandidate(_ context.Context, c model.Candidate) (model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.WeVoteID == "" {
		c.WeVoteID = m.mint(model.AbbrevCandidate)
	}
	c.ID = m.id()
	m.candidates = append(m.candidates, c)
	return c, nil
}

func (m *MemStore) ListMeasuresForYears(_ context.Context, stateCode string, years []int) ([]model.Measure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Measure
	for _, ms := range m.measures {
		if slices.Contains(years, ms.MeasureYear) && (stateCode == "" || strings.EqualFold(ms.StateCode, stateCode)) {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *MemStore) GetMeasureByWeVoteID(_ context.Context, weVoteID string) (model.Measure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.measures {
		if ms.WeVoteID == weVoteID {
			return ms, nil
		}
	}
	return model.Measure{}, storage.ErrNotFound
}

func (m *MemStore) CreateMeasure(_ context.Context, ms model.Measure) (model.Measure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.WeVoteID == "" {
		ms.WeVoteID = m.mint(model.AbbrevMeasure)
	}
	ms.ID = m.id()
	m.measures = append(m.measures, ms)
	return ms, nil
}

func (m *MemStore) GetContestOfficeByWeVoteID(_ context.Context, weVoteID string) (model.ContestOffice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offices {
		if o.WeVoteID == weVoteID {
			return o, nil
		}
	}
	return model.ContestOffice{}, storage.ErrNotFound
}

// AddContestOffice seeds a contest office.
func (m *MemStore) AddContestOffice(o model.ContestOffice) model.ContestOffice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.WeVoteID == "" {
		o.WeVoteID = m.mint(model.AbbrevContestOffice)
	}
	o.ID = m.id()
	m.offices = append(m.offices, o)
	return o
}

// --- voter guides ---

func (m *MemStore) GetVoterGuide(_ context.Context, organizationWeVoteID string, googleCivicElectionID int64) (model.VoterGuide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.voterGuides {
		if g.OrganizationWeVoteID == organizationWeVoteID && g.GoogleCivicElectionID == googleCivicElectionID {
			return g, nil
		}
	}
	return model.VoterGuide{}, storage.ErrNotFound
}

func (m *MemStore) CreateVoterGuide(_ context.Context, g model.VoterGuide) (model.VoterGuide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.voterGuides {
		if existing.OrganizationWeVoteID == g.OrganizationWeVoteID && existing.GoogleCivicElectionID == g.GoogleCivicElectionID {
			return model.VoterGuide{}, storage.ErrDuplicate
		}
	}
	if g.WeVoteID == "" {
		g.WeVoteID = m.mint(model.AbbrevVoterGuide)
	}
	g.ID = m.id()
	g.LastUpdated = m.Now()
	m.voterGuides = append(m.voterGuides, g)
	return g, nil
}

func (m *MemStore) UpdateVoterGuide(_ context.Context, g model.VoterGuide) (model.VoterGuide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.voterGuides {
		if m.voterGuides[i].WeVoteID == g.WeVoteID {
			g.ID = m.voterGuides[i].ID
			g.LastUpdated = m.Now()
			m.voterGuides[i] = g
			return g, nil
		}
	}
	return model.VoterGuide{}, storage.ErrNotFound
}

func (m *MemStore) ListVoterGuides(_ context.Context, f model.VoterGuideFilter) ([]model.VoterGuide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VoterGuide
	for _, g := range m.voterGuides {
		if f.OrganizationWeVoteID != "" && g.OrganizationWeVoteID != f.OrganizationWeVoteID {
			continue
		}
		if f.GoogleCivicElectionID > 0 && g.GoogleCivicElectionID != f.GoogleCivicElectionID {
			continue
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](rows []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	offset = max(offset, 0)
	if offset >= len(rows) {
		return nil
	}
	return rows[offset:min(offset+limit, len(rows))]
}

// --- voter guide possibilities ---

func (m *MemStore) GetPossibilityByID(_ context.Context, id int64) (model.VoterGuidePossibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.possibilities {
		if v.ID == id {
			return v, nil
		}
	}
	return model.VoterGuidePossibility{}, storage.ErrNotFound
}

func (m *MemStore) GetPossibilityByURL(_ context.Context, url string) (model.VoterGuidePossibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.possibilities {
		if v.URL == url {
			return v, nil
		}
	}
	return model.VoterGuidePossibility{}, storage.ErrNotFound
}

func (m *MemStore) CreatePossibility(_ context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.possibilities {
		if existing.URL == v.URL {
			return model.VoterGuidePossibility{}, storage.ErrDuplicate
		}
	}
	if v.WeVoteID == "" {
		v.WeVoteID = m.mint(model.AbbrevVoterGuidePossibility)
	}
	if v.Type == "" {
		v.Type = model.PossibilityUnknownType
	}
	now := m.Now()
	v.ID = m.id()
	v.DateCreated, v.DateLastChanged = now, now
	m.possibilities = append(m.possibilities, v)
	return v, nil
}

func (m *MemStore) UpdatePossibility(_ context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.possibilities {
		if m.possibilities[i].ID == v.ID {
			v.DateCreated = m.possibilities[i].DateCreated
			v.DateLastChanged = m.Now()
			m.possibilities[i] = v
			return v, nil
		}
	}
	return model.VoterGuidePossibility{}, storage.ErrNotFound
}

func (m *MemStore) ListPossibilities(_ context.Context, f model.PossibilityFilter) ([]model.VoterGuidePossibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VoterGuidePossibility
	for i := len(m.possibilities) - 1; i >= 0; i-- {
		v := m.possibilities[i]
		switch {
		case f.StateCode != "" && !strings.EqualFold(v.StateCode, f.StateCode):
		case !f.IncludeIgnored && v.IgnoreThisSource:
		case !f.IncludeVerified && v.DoneVerified:
		case !f.IncludeHidden && v.HideFromActiveReview:
		default:
			out = append(out, v)
		}
	}
	return page(out, f.Limit, f.Offset), nil
}

func (m *MemStore) DeletePossibility(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.possibilities {
		if m.possibilities[i].ID == id {
			m.possibilities = slices.Delete(m.possibilities, i, i+1)
			m.possPositions = slices.DeleteFunc(m.possPositions, func(pp model.VoterGuidePossibilityPosition) bool {
				return pp.VoterGuidePossibilityID == id
			})
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemStore) ListPossibilityPositions(_ context.Context, possibilityID int64) ([]model.VoterGuidePossibilityPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VoterGuidePossibilityPosition
	for _, pp := range m.possPositions {
		if pp.VoterGuidePossibilityID == possibilityID {
			out = append(out, pp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PossibilityPositionNumber < out[j].PossibilityPositionNumber
	})
	return out, nil
}

func (m *MemStore) GetPossibilityPosition(_ context.Context, id int64) (model.VoterGuidePossibilityPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pp := range m.possPositions {
		if pp.ID == id {
			return pp, nil
		}
	}
	return model.VoterGuidePossibilityPosition{}, storage.ErrNotFound
}

func (m *MemStore) CreatePossibilityPosition(_ context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pp.PositionStance == "" {
		pp.PositionStance = model.StanceSupport
	}
	if pp.PossibilityPositionNumber <= 0 {
		highest := 0
		for _, existing := range m.possPositions {
			if existing.VoterGuidePossibilityID == pp.VoterGuidePossibilityID {
				highest = max(highest, existing.PossibilityPositionNumber)
			}
		}
		pp.PossibilityPositionNumber = highest + 1
	}
	pp.ID = m.id()
	m.possPositions = append(m.possPositions, pp)
	return pp, nil
}

func (m *MemStore) UpdatePossibilityPosition(_ context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.possPositions {
		if m.possPositions[i].ID == pp.ID {
			m.possPositions[i] = pp
			return pp, nil
		}
	}
	return model.VoterGuidePossibilityPosition{}, storage.ErrNotFound
}

func (m *MemStore) DeletePossibilityPosition(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.possPositions {
		if m.possPositions[i].ID == id {
			m.possPositions = slices.Delete(m.possPositions, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

// --- polling locations ---

func (m *MemStore) GetPollingLocation(_ context.Context, weVoteID string) (model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.locations {
		if p.WeVoteID == weVoteID {
			return p, nil
		}
	}
	return model.PollingLocation{}, storage.ErrNotFound
}

func (m *MemStore) GetPollingLocationBySource(_ context.Context, pollingLocationID, state string) (model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.locations {
		if p.PollingLocationID == pollingLocationID && strings.EqualFold(p.State, state) {
			return p, nil
		}
	}
	return model.PollingLocation{}, storage.ErrNotFound
}

func (m *MemStore) CreatePollingLocation(_ context.Context, p model.PollingLocation) (model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.State = strings.ToUpper(p.State)
	for _, existing := range m.locations {
		if existing.PollingLocationID == p.PollingLocationID && existing.State == p.State {
			return model.PollingLocation{}, storage.ErrDuplicate
		}
	}
	if p.WeVoteID == "" {
		p.WeVoteID = m.mint(model.AbbrevPollingLocation)
	}
	p.ID = m.id()
	p.DateLastUpdated = m.Now()
	m.locations = append(m.locations, p)
	return p, nil
}

func (m *MemStore) UpdatePollingLocation(_ context.Context, p model.PollingLocation) (model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.locations {
		if m.locations[i].WeVoteID == p.WeVoteID {
			p.ID = m.locations[i].ID
			p.State = strings.ToUpper(p.State)
			p.DateLastUpdated = m.Now()
			m.locations[i] = p
			return p, nil
		}
	}
	return model.PollingLocation{}, storage.ErrNotFound
}

func (m *MemStore) ListPollingLocations(_ context.Context, state string, limit, offset int) ([]model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PollingLocation
	for _, p := range m.locations {
		if strings.EqualFold(p.State, state) && !p.PollingLocationDeleted {
			out = append(out, p)
		}
	}
	return page(out, limit, offset), nil
}

func (m *MemStore) SelectPollingLocationsForRepresentatives(_ context.Context, state string, limit int, refreshedAfter, failedAfter time.Time) ([]model.PollingLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	failed := make(map[string]bool)
	for _, e := range m.logEntries {
		if !e.LogEntryDeleted && e.Kind.IsFailure() && e.DateTime.After(failedAfter) {
			failed[e.PollingLocationWeVoteID] = true
		}
	}
	var out []model.PollingLocation
	for _, p := range m.locations {
		switch {
		case !strings.EqualFold(p.State, state), p.PollingLocationDeleted, failed[p.WeVoteID]:
		case p.DateLastRepresentativesRetrieved != nil && !p.DateLastRepresentativesRetrieved.Before(refreshedAfter):
		default:
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UseForBulkRetrieve && !out[j].UseForBulkRetrieve })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) MarkRepresentativesRetrieved(_ context.Context, weVoteID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.locations {
		if m.locations[i].WeVoteID == weVoteID {
			m.locations[i].DateLastRepresentativesRetrieved = &at
		}
	}
	return nil
}

func (m *MemStore) IncrementAddressNotFound(_ context.Context, weVoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.locations {
		if m.locations[i].WeVoteID == weVoteID {
			m.locations[i].GoogleResponseAddressNotFound++
		}
	}
	return nil
}

func (m *MemStore) CreatePollingLocationLogEntry(_ context.Context, e model.PollingLocationLogEntry) (model.PollingLocationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.DateTime.IsZero() {
		e.DateTime = m.Now()
	}
	e.ID = m.id()
	m.logEntries = append(m.logEntries, e)
	return e, nil
}

// LogEntries returns a copy of every polling location log entry.
func (m *MemStore) LogEntries() []model.PollingLocationLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.logEntries)
}

// --- batch processes ---

func (m *MemStore) CreateBatchProcess(_ context.Context, kind model.BatchProcessKind, stateCode string) (model.BatchProcess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := model.BatchProcess{ID: m.id(), Kind: kind, StateCode: strings.ToUpper(stateCode), DateAdded: m.Now()}
	m.batches = append(m.batches, b)
	return b, nil
}

func (m *MemStore) GetBatchProcess(_ context.Context, id int64) (model.BatchProcess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return model.BatchProcess{}, storage.ErrNotFound
}

func (m *MemStore) ClaimBatchProcess(_ context.Context, kind model.BatchProcessKind, lease time.Duration) (model.BatchProcess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for i := range m.batches {
		b := &m.batches[i]
		if b.Kind != kind || b.DateCompleted != nil || b.Paused {
			continue
		}
		if b.DateCheckedOut != nil && !b.DateCheckedOut.Before(now.Add(-lease)) {
			continue
		}
		b.DateCheckedOut = &now
		if b.DateStarted == nil {
			b.DateStarted = &now
		}
		return *b, nil
	}
	return model.BatchProcess{}, storage.ErrNotFound
}

func (m *MemStore) ReleaseBatchProcess(_ context.Context, id int64, retrieved int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.batches {
		if m.batches[i].ID == id {
			m.batches[i].DateCheckedOut = nil
			m.batches[i].PollingLocationsRetrieved += retrieved
		}
	}
	return nil
}

func (m *MemStore) CompleteBatchProcess(_ context.Context, id int64, retrieved int, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for i := range m.batches {
		if m.batches[i].ID == id {
			m.batches[i].DateCompleted = &now
			m.batches[i].DateCheckedOut = nil
			m.batches[i].PollingLocationsRetrieved += retrieved
			m.batches[i].CompletionSummary = summary
		}
	}
	return nil
}

// --- offices held and representatives ---

func (m *MemStore) GetOfficeHeld(_ context.Context, ocdDivisionID, officeHeldName string) (model.OfficeHeld, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.officesHeld {
		if o.OcdDivisionID == ocdDivisionID && o.OfficeHeldName == officeHeldName {
			return o, nil
		}
	}
	return model.OfficeHeld{}, storage.ErrNotFound
}

func (m *MemStore) CreateOfficeHeld(_ context.Context, o model.OfficeHeld) (model.OfficeHeld, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.officesHeld {
		if existing.OcdDivisionID == o.OcdDivisionID && existing.OfficeHeldName == o.OfficeHeldName {
			return model.OfficeHeld{}, storage.ErrDuplicate
		}
	}
	if o.WeVoteID == "" {
		o.WeVoteID = m.mint(model.AbbrevOfficeHeld)
	}
	o.ID = m.id()
	o.DateLastUpdated = m.Now()
	m.officesHeld = append(m.officesHeld, o)
	return o, nil
}

func (m *MemStore) UpdateOfficeHeld(_ context.Context, o model.OfficeHeld) (model.OfficeHeld, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.officesHeld {
		if m.officesHeld[i].WeVoteID == o.WeVoteID {
			o.ID = m.officesHeld[i].ID
			o.DateLastUpdated = m.Now()
			m.officesHeld[i] = o
			return o, nil
		}
	}
	return model.OfficeHeld{}, storage.ErrNotFound
}

func (m *MemStore) GetRepresentative(_ context.Context, officeHeldWeVoteID, representativeName string) (model.Representative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reps {
		if r.OfficeHeldWeVoteID == officeHeldWeVoteID && r.RepresentativeName == representativeName {
			return r, nil
		}
	}
	return model.Representative{}, storage.ErrNotFound
}

func (m *MemStore) CreateRepresentative(_ context.Context, r model.Representative) (model.Representative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reps {
		if existing.OfficeHeldWeVoteID == r.OfficeHeldWeVoteID && existing.RepresentativeName == r.RepresentativeName {
			return model.Representative{}, storage.ErrDuplicate
		}
	}
	if r.WeVoteID == "" {
		r.WeVoteID = m.mint(model.AbbrevRepresentative)
	}
	r.ID = m.id()
	r.DateLastUpdated = m.Now()
	m.reps = append(m.reps, r)
	return r, nil
}

func (m *MemStore) UpdateRepresentative(_ context.Context, r model.Representative) (model.Representative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reps {
		if m.reps[i].WeVoteID == r.WeVoteID {
			r.ID = m.reps[i].ID
			r.DateLastUpdated = m.Now()
			m.reps[i] = r
			return r, nil
		}
	}
	return model.Representative{}, storage.ErrNotFound
}

func (m *MemStore) ListRepresentatives(_ context.Context, stateCode string, limit, offset int) ([]model.Representative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Representative
	for _, r := range m.reps {
		if strings.EqualFold(r.StateCode, stateCode) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RepresentativeName < out[j].RepresentativeName })
	return page(out, limit, offset), nil
}

// OfficesHeld returns a copy of every office held row.
func (m *MemStore) OfficesHeld() []model.OfficeHeld {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.officesHeld)
}

// --- api keys ---

func (m *MemStore) CreateAPIKey(_ context.Context, key model.APIKey) (model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	key.CreatedAt = m.Now()
	m.apiKeys = append(m.apiKeys, key)
	return key, nil
}

func (m *MemStore) GetActiveAPIKeysByPrefix(_ context.Context, prefix string) ([]model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.APIKey
	for _, k := range m.apiKeys {
		if k.Prefix == prefix && k.RevokedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemStore) ListAPIKeys(_ context.Context, limit, offset int) ([]model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(slices.Clone(m.apiKeys), limit, offset), nil
}

func (m *MemStore) TouchAPIKey(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for i := range m.apiKeys {
		if m.apiKeys[i].ID == id {
			m.apiKeys[i].LastUsedAt = &now
		}
	}
	return nil
}

func (m *MemStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for i := range m.apiKeys {
		if m.apiKeys[i].ID == id && m.apiKeys[i].RevokedAt == nil {
			m.apiKeys[i].RevokedAt = &now
			return nil
		}
	}
	return storage.ErrNotFound
}
