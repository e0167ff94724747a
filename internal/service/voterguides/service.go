// Package voterguides manages voter guide possibilities (pages that may hold
// endorsements), reconciles their rows with candidates, measures and
// organizations, and maintains the per-election voter guide summaries.
package voterguides

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/wevote/wevoteserver/internal/matching"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/service/positions"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// Status codes recorded by this package.
const (
	StatusPossibilityNotFound       = "VOTER_GUIDE_POSSIBILITY_NOT_FOUND"
	StatusPossibilityURLMissing     = "VOTER_GUIDE_POSSIBILITY_URL_MISSING"
	StatusPossibilityIDMissing      = "VOTER_GUIDE_POSSIBILITY_ID_MISSING"
	StatusPossibilityCreated        = "VOTER_GUIDE_POSSIBILITY_CREATED"
	StatusPossibilityUpdated        = "VOTER_GUIDE_POSSIBILITY_UPDATED"
	StatusPossibilityFound          = "VOTER_GUIDE_POSSIBILITY_FOUND"
	StatusPossibilityDeleted        = "VOTER_GUIDE_POSSIBILITY_DELETED"
	StatusPossibilityTypeUnknown    = "VOTER_GUIDE_POSSIBILITY_TYPE_UNKNOWN"
	StatusPossibilityPositionSaved  = "VOTER_GUIDE_POSSIBILITY_POSITION_SAVED"
	StatusPossibilityPositionsFound = "VOTER_GUIDE_POSSIBILITY_POSITIONS_RETRIEVED"
	StatusPossibilityPositionNotOwn = "VOTER_GUIDE_POSSIBILITY_POSITION_NOT_ON_POSSIBILITY"
	StatusOrganizationNotMatched    = "ORGANIZATION_NOT_MATCHED"
	StatusCandidateNotMatched       = "CANDIDATE_NOT_MATCHED"
	StatusLookupFailed              = "MATCH_LOOKUP_FAILED"
	StatusMatchSaveFailed           = "MATCH_SAVE_FAILED"
	StatusEndorsementsExtracted     = "POSSIBLE_ENDORSEMENTS_EXTRACTED"
	StatusFetchFailed               = "VOTER_GUIDE_POSSIBILITY_FETCH_FAILED"
	StatusScanSkipped               = "VOTER_GUIDE_POSSIBILITY_SCAN_SKIPPED"
	StatusScanComplete              = "VOTER_GUIDE_POSSIBILITY_SCAN_COMPLETE"
	StatusPromoteComplete           = "VOTER_GUIDE_POSSIBILITY_PROMOTE_COMPLETE"
	StatusOrganizationNotFound      = "ORGANIZATION_NOT_FOUND"
	StatusElectionIDMissing         = "VALID_GOOGLE_CIVIC_ELECTION_ID_MISSING"
	StatusVoterGuideCreated         = "VOTER_GUIDE_CREATED"
	StatusVoterGuideUpdated         = "VOTER_GUIDE_UPDATED"
	StatusVoterGuidesRetrieved      = "VOTER_GUIDES_RETRIEVED"
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	matching.Source

	GetPossibilityByID(ctx context.Context, id int64) (model.VoterGuidePossibility, error)
	GetPossibilityByURL(ctx context.Context, url string) (model.VoterGuidePossibility, error)
	CreatePossibility(ctx context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error)
	UpdatePossibility(ctx context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error)
	ListPossibilities(ctx context.Context, f model.PossibilityFilter) ([]model.VoterGuidePossibility, error)
	DeletePossibility(ctx context.Context, id int64) error

	ListPossibilityPositions(ctx context.Context, possibilityID int64) ([]model.VoterGuidePossibilityPosition, error)
	GetPossibilityPosition(ctx context.Context, id int64) (model.VoterGuidePossibilityPosition, error)
	CreatePossibilityPosition(ctx context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error)
	UpdatePossibilityPosition(ctx context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error)
	DeletePossibilityPosition(ctx context.Context, id int64) error

	GetCandidateByWeVoteID(ctx context.Context, weVoteID string) (model.Candidate, error)
	GetMeasureByWeVoteID(ctx context.Context, weVoteID string) (model.Measure, error)
	FindPositions(ctx context.Context, vis model.Visibility, m model.PositionMatch, limit int) ([]model.Position, error)
	CountPublicPositions(ctx context.Context, organizationWeVoteID string, googleCivicElectionID int64) (int, error)

	GetVoterGuide(ctx context.Context, organizationWeVoteID string, googleCivicElectionID int64) (model.VoterGuide, error)
	CreateVoterGuide(ctx context.Context, g model.VoterGuide) (model.VoterGuide, error)
	UpdateVoterGuide(ctx context.Context, g model.VoterGuide) (model.VoterGuide, error)
	ListVoterGuides(ctx context.Context, f model.VoterGuideFilter) ([]model.VoterGuide, error)
}

// PositionSaver creates or updates positions. *positions.Service implements it.
type PositionSaver interface {
	UpdateOrCreatePosition(ctx context.Context, in positions.UpdateOrCreateInput) (positions.SaveResult, error)
	TransferToPublicPosition(ctx context.Context, weVoteID string) (positions.SwitchResult, error)
}

// Service implements voter guide and possibility operations.
type Service struct {
	store     Store
	positions PositionSaver
	http      *http.Client
	logger    *slog.Logger
	now       func() time.Time

	extractDuration metric.Float64Histogram
	promoted        metric.Int64Counter
}

// New creates a voter guides Service. httpClient is used to fetch pages for
// scanning; its Timeout bounds every fetch.
func New(store Store, positionSaver PositionSaver, httpClient *http.Client, logger *slog.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	meter := telemetry.Meter("wevote/voterguides")
	extractDur, _ := meter.Float64Histogram("wevote.voterguide.extract.duration",
		metric.WithDescription("Time to extract and match possible endorsements (ms)"),
		metric.WithUnit("ms"),
	)
	promoted, _ := meter.Int64Counter("wevote.voterguide.positions.promoted",
		metric.WithDescription("Possibility rows promoted to public positions"),
	)
	return &Service{
		store:           store,
		positions:       positionSaver,
		http:            httpClient,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		extractDuration: extractDur,
		promoted:        promoted,
	}
}

// SetClock replaces the clock used for the election-year window.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// electionYears is the window candidates and measures are matched in: this
// year and next, plus last year on candidate pages, which are often
// submitted after the election.
func electionYears(now time.Time, t model.VoterGuidePossibilityType) []int {
	y := now.Year()
	years := []int{y, y + 1}
	if t == model.PossibilityEndorsementsForCandidate {
		years = append(years, y-1)
	}
	slices.Sort(years)
	return years
}
