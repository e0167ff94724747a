// Package pollinglocations imports VIP polling location feeds and serves the
// stored locations.
package pollinglocations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// Status codes recorded by this package.
const (
	StatusCreated          = "POLLING_LOCATION_CREATED"
	StatusUpdated          = "POLLING_LOCATION_UPDATED"
	StatusUnchanged        = "POLLING_LOCATION_UNCHANGED"
	StatusFound            = "POLLING_LOCATION_FOUND"
	StatusNotFound         = "POLLING_LOCATION_NOT_FOUND"
	StatusIDMissing        = "POLLING_LOCATION_ID_MISSING"
	StatusStateMissing     = "STATE_CODE_MISSING"
	StatusListRetrieved    = "POLLING_LOCATIONS_RETRIEVED"
	StatusImportComplete   = "POLLING_LOCATION_IMPORT_COMPLETE"
	StatusNoFilesMatched   = "POLLING_LOCATION_IMPORT_NO_FILES"
	StatusImportFileFailed = "POLLING_LOCATION_IMPORT_FILE_FAILED"
	StatusWeVoteIDMissing  = "POLLING_LOCATION_WE_VOTE_ID_MISSING"
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	GetPollingLocation(ctx context.Context, weVoteID string) (model.PollingLocation, error)
	GetPollingLocationBySource(ctx context.Context, pollingLocationID, state string) (model.PollingLocation, error)
	CreatePollingLocation(ctx context.Context, p model.PollingLocation) (model.PollingLocation, error)
	UpdatePollingLocation(ctx context.Context, p model.PollingLocation) (model.PollingLocation, error)
	ListPollingLocations(ctx context.Context, state string, limit, offset int) ([]model.PollingLocation, error)
}

// Service implements polling location import and lookup.
type Service struct {
	store  Store
	logger *slog.Logger

	importedRows metric.Int64Counter
}

// New creates a polling locations Service.
func New(store Store, logger *slog.Logger) *Service {
	imported, _ := telemetry.Meter("wevote/pollinglocations").Int64Counter("wevote.polling_locations.imported",
		metric.WithDescription("Polling location rows created or updated by imports"),
	)
	return &Service{store: store, logger: logger, importedRows: imported}
}

// SaveResult is the outcome of UpdateOrCreatePollingLocation.
type SaveResult struct {
	Success                   bool
	Status                    model.Status
	PollingLocation           model.PollingLocation
	NewPollingLocationCreated bool
	Updated                   bool
}

// UpdateOrCreatePollingLocation saves loc keyed on (polling_location_id,
// state). Address fields of an existing row are overwritten only by non-empty
// values.
func (s *Service) UpdateOrCreatePollingLocation(ctx context.Context, loc model.PollingLocation) (SaveResult, error) {
	var res SaveResult
	loc.PollingLocationID = strings.TrimSpace(loc.PollingLocationID)
	loc.State = strings.ToUpper(strings.TrimSpace(loc.State))
	if loc.PollingLocationID == "" {
		res.Status.Add(StatusIDMissing)
		return res, nil
	}
	if loc.State == "" {
		res.Status.Add(StatusStateMissing)
		return res, nil
	}

	existing, err := s.store.GetPollingLocationBySource(ctx, loc.PollingLocationID, loc.State)
	switch {
	case err == nil:
		return s.update(ctx, existing, loc)
	case !errors.Is(err, storage.ErrNotFound):
		return SaveResult{}, fmt.Errorf("pollinglocations: get by source: %w", err)
	}

	created, err := s.store.CreatePollingLocation(ctx, loc)
	if errors.Is(err, storage.ErrDuplicate) {
		existing, err = s.store.GetPollingLocationBySource(ctx, loc.PollingLocationID, loc.State)
		if err != nil {
			return SaveResult{}, fmt.Errorf("pollinglocations: reload after duplicate: %w", err)
		}
		return s.update(ctx, existing, loc)
	}
	if err != nil {
		return SaveResult{}, fmt.Errorf("pollinglocations: create: %w", err)
	}
	res.Success = true
	res.NewPollingLocationCreated = true
	res.PollingLocation = created
	res.Status.Add(StatusCreated)
	return res, nil
}

func (s *Service) update(ctx context.Context, existing, loc model.PollingLocation) (SaveResult, error) {
	res := SaveResult{Success: true, PollingLocation: existing}
	changed := false
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&existing.LocationName, loc.LocationName)
	set(&existing.PollingHoursText, loc.PollingHoursText)
	set(&existing.DirectionsText, loc.DirectionsText)
	set(&existing.Line1, loc.Line1)
	set(&existing.Line2, loc.Line2)
	set(&existing.City, loc.City)
	set(&existing.ZipLong, loc.ZipLong)
	if loc.Latitude != nil && loc.Longitude != nil && !sameCoordinates(existing, loc) {
		existing.Latitude, existing.Longitude = loc.Latitude, loc.Longitude
		changed = true
	}
	if loc.UseForBulkRetrieve && !existing.UseForBulkRetrieve {
		existing.UseForBulkRetrieve = true
		changed = true
	}
	if !changed {
		res.Status.Add(StatusUnchanged)
		return res, nil
	}
	saved, err := s.store.UpdatePollingLocation(ctx, existing)
	if err != nil {
		return SaveResult{}, fmt.Errorf("pollinglocations: update %s: %w", existing.WeVoteID, err)
	}
	res.PollingLocation = saved
	res.Updated = true
	res.Status.Add(StatusUpdated)
	return res, nil
}

func sameCoordinates(a, b model.PollingLocation) bool {
	return a.Latitude != nil && a.Longitude != nil &&
		*a.Latitude == *b.Latitude && *a.Longitude == *b.Longitude
}

// RetrieveResult is the outcome of RetrievePollingLocation.
type RetrieveResult struct {
	Success         bool
	Status          model.Status
	PollingLocation model.PollingLocation
}

// RetrievePollingLocation looks a polling location up by we_vote_id.
func (s *Service) RetrievePollingLocation(ctx context.Context, weVoteID string) (RetrieveResult, error) {
	var res RetrieveResult
	if strings.TrimSpace(weVoteID) == "" {
		res.Status.Add(StatusWeVoteIDMissing)
		return res, nil
	}
	loc, err := s.store.GetPollingLocation(ctx, strings.TrimSpace(weVoteID))
	if errors.Is(err, storage.ErrNotFound) {
		res.Status.Add(StatusNotFound)
		return res, nil
	}
	if err != nil {
		return RetrieveResult{}, fmt.Errorf("pollinglocations: retrieve: %w", err)
	}
	res.Success = true
	res.PollingLocation = loc
	res.Status.Add(StatusFound)
	return res, nil
}

// ListResult lists polling locations.
type ListResult struct {
	Success          bool
	Status           model.Status
	PollingLocations []model.PollingLocation
}

// ListPollingLocations returns the live polling locations of a state.
func (s *Service) ListPollingLocations(ctx context.Context, state string, limit, offset int) (ListResult, error) {
	var res ListResult
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		res.Status.Add(StatusStateMissing)
		return res, nil
	}
	locs, err := s.store.ListPollingLocations(ctx, state, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("pollinglocations: list: %w", err)
	}
	res.Success = true
	res.PollingLocations = locs
	res.Status.Add(StatusListRetrieved)
	return res, nil
}
