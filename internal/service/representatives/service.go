// Package representatives imports offices held and the representatives who
// hold them from the Google Civic API, one polling location address at a time.
package representatives

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// Status codes recorded by this package.
const (
	StatusOfficeHeldNotCreated      = "OFFICE_HELD_NOT_CREATED"
	StatusRepresentativeNotCreated  = "REPRESENTATIVE_NOT_CREATED"
	StatusRepresentativesStored     = "REPRESENTATIVES_STORED"
	StatusAddressMissing            = "POLLING_LOCATION_ADDRESS_MISSING"
	StatusPollingLocationNotFound   = "POLLING_LOCATION_NOT_FOUND"
	StatusCivicRateLimited          = "GOOGLE_CIVIC_RATE_LIMITED"
	StatusCivicAddressParseError    = "GOOGLE_CIVIC_ADDRESS_PARSE_ERROR"
	StatusCivicAddressNotFound      = "GOOGLE_CIVIC_ADDRESS_NOT_FOUND"
	StatusCivicRequestFailed        = "GOOGLE_CIVIC_REQUEST_FAILED"
	StatusNoRepresentativesReturned = "NO_REPRESENTATIVES_RETURNED"
	StatusNoBatchProcessAvailable   = "NO_BATCH_PROCESS_AVAILABLE"
	StatusBatchProcessCompleted     = "BATCH_PROCESS_COMPLETED"
	StatusBatchProcessReleased      = "BATCH_PROCESS_CHECKED_IN"
	StatusBatchProcessCreated       = "BATCH_PROCESS_CREATED"
	StatusStateCodeMissing          = "STATE_CODE_MISSING"
	StatusRepresentativesListed     = "REPRESENTATIVES_RETRIEVED"
)

// Civic is the part of the Google Civic client the service uses.
// *civic.Client implements it.
type Civic interface {
	RepresentativesByAddress(ctx context.Context, address string) (civic.RepresentativesResponse, error)
}

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	GetOfficeHeld(ctx context.Context, ocdDivisionID, officeHeldName string) (model.OfficeHeld, error)
	CreateOfficeHeld(ctx context.Context, o model.OfficeHeld) (model.OfficeHeld, error)
	UpdateOfficeHeld(ctx context.Context, o model.OfficeHeld) (model.OfficeHeld, error)

	GetRepresentative(ctx context.Context, officeHeldWeVoteID, representativeName string) (model.Representative, error)
	CreateRepresentative(ctx context.Context, r model.Representative) (model.Representative, error)
	UpdateRepresentative(ctx context.Context, r model.Representative) (model.Representative, error)
	ListRepresentatives(ctx context.Context, stateCode string, limit, offset int) ([]model.Representative, error)

	GetPollingLocation(ctx context.Context, weVoteID string) (model.PollingLocation, error)
	SelectPollingLocationsForRepresentatives(ctx context.Context, state string, limit int, refreshedAfter, failedAfter time.Time) ([]model.PollingLocation, error)
	MarkRepresentativesRetrieved(ctx context.Context, weVoteID string, at time.Time) error
	IncrementAddressNotFound(ctx context.Context, weVoteID string) error
	CreatePollingLocationLogEntry(ctx context.Context, e model.PollingLocationLogEntry) (model.PollingLocationLogEntry, error)

	CreateBatchProcess(ctx context.Context, kind model.BatchProcessKind, stateCode string) (model.BatchProcess, error)
	ClaimBatchProcess(ctx context.Context, kind model.BatchProcessKind, lease time.Duration) (model.BatchProcess, error)
	ReleaseBatchProcess(ctx context.Context, id int64, retrieved int) error
	CompleteBatchProcess(ctx context.Context, id int64, retrieved int, summary string) error
}

// Config tunes batch retrieval.
type Config struct {
	// BatchSize is how many polling locations one ProcessNextRepresentatives
	// call retrieves.
	BatchSize int
	// Lease is how long a claimed batch process stays checked out.
	Lease time.Duration
	// FailedLocationCooldown holds back locations with a recent failure.
	FailedLocationCooldown time.Duration
	// RefreshInterval holds back locations retrieved recently.
	RefreshInterval time.Duration
}

// Service implements representative import.
type Service struct {
	store  Store
	civic  Civic
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	imported metric.Int64Counter
}

// New creates a representatives Service.
func New(store Store, civicClient Civic, cfg Config, logger *slog.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 125
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 10 * time.Minute
	}
	imported, _ := telemetry.Meter("wevote/representatives").Int64Counter("wevote.representatives.imported",
		metric.WithDescription("Offices held and representatives created or updated"),
	)
	return &Service{
		store:    store,
		civic:    civicClient,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		imported: imported,
	}
}

// SetClock replaces the service clock.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ListResult lists representatives.
type ListResult struct {
	Success         bool
	Status          model.Status
	Representatives []model.Representative
}

// ListRepresentatives returns the representatives serving a state.
func (s *Service) ListRepresentatives(ctx context.Context, stateCode string, limit, offset int) (ListResult, error) {
	var res ListResult
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	if stateCode == "" {
		res.Status.Add(StatusStateCodeMissing)
		return res, nil
	}
	reps, err := s.store.ListRepresentatives(ctx, stateCode, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("representatives: list: %w", err)
	}
	res.Success = true
	res.Representatives = reps
	res.Status.Add(StatusRepresentativesListed)
	return res, nil
}
