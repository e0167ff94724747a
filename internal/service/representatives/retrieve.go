package representatives

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
)

// RetrieveOptions controls RetrieveRepresentativesForPollingLocation.
type RetrieveOptions struct {
	Rules model.UpdateOrCreateRules
	// BatchProcessID is recorded on log entries when set.
	BatchProcessID *int64
	// Cache is shared across the locations of one batch. Nil means a fresh one.
	Cache *ImportCache
}

// RetrieveResult is the outcome of one polling location retrieval.
type RetrieveResult struct {
	Success bool
	Status  model.Status
	LogKind model.PollingLocationLogKind
	Groom   GroomResult
}

// RetrieveRepresentativesForPollingLocationByWeVoteID loads the polling
// location and retrieves its representatives.
func (s *Service) RetrieveRepresentativesForPollingLocationByWeVoteID(ctx context.Context, weVoteID string, opts RetrieveOptions) (RetrieveResult, error) {
	loc, err := s.store.GetPollingLocation(ctx, weVoteID)
	if errors.Is(err, storage.ErrNotFound) {
		var res RetrieveResult
		res.Status.Add(StatusPollingLocationNotFound)
		return res, nil
	}
	if err != nil {
		return RetrieveResult{}, fmt.Errorf("representatives: get polling location: %w", err)
	}
	return s.RetrieveRepresentativesForPollingLocation(ctx, loc, opts)
}

// RetrieveRepresentativesForPollingLocation queries Google Civic with the
// location's address and stores the offices and officials returned. Civic
// failures are written to the polling location log and reported in the
// status; only store failures and cancellation return an error.
func (s *Service) RetrieveRepresentativesForPollingLocation(ctx context.Context, loc model.PollingLocation, opts RetrieveOptions) (RetrieveResult, error) {
	var res RetrieveResult
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("polling_location_we_vote_id", loc.WeVoteID))

	address := loc.TextForMapSearch()
	if strings.TrimSpace(loc.City) == "" || address == "" {
		res.Status.Add(StatusAddressMissing)
		return res, s.writeLog(ctx, loc, model.LogKindAddressParseError, res.Status, opts, &res)
	}

	resp, err := s.civic.RepresentativesByAddress(ctx, address)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, civic.ErrLimiterWait) {
			return RetrieveResult{}, fmt.Errorf("representatives: retrieve %s: %w", loc.WeVoteID, err)
		}
		kind := model.LogKindRequestCrash
		switch {
		case errors.Is(err, civic.ErrRateLimited):
			kind = model.LogKindRateLimitError
			res.Status.Add(StatusCivicRateLimited)
		case errors.Is(err, civic.ErrAddressParse):
			kind = model.LogKindAddressParseError
			res.Status.Add(StatusCivicAddressParseError)
		case errors.Is(err, civic.ErrNotFound):
			kind = model.LogKindNoRepresentatives
			res.Status.Add(StatusCivicAddressNotFound)
			if err := s.store.IncrementAddressNotFound(ctx, loc.WeVoteID); err != nil {
				return RetrieveResult{}, fmt.Errorf("representatives: count address not found: %w", err)
			}
		default:
			res.Status.Add(StatusCivicRequestFailed)
		}
		s.logger.Warn("google civic request failed",
			"polling_location_we_vote_id", loc.WeVoteID, "kind", string(kind), "error", err)
		return res, s.writeLog(ctx, loc, kind, res.Status, opts, &res)
	}

	if len(resp.Offices) == 0 {
		res.Status.Add(StatusNoRepresentativesReturned)
		return res, s.writeLog(ctx, loc, model.LogKindNoRepresentatives, res.Status, opts, &res)
	}

	groomed, err := s.GroomAndStoreOfficeHeldWithRepresentatives(ctx, resp, GroomOptions{
		Rules:     opts.Rules,
		StateCode: loc.State,
	}, opts.Cache)
	if err != nil {
		return RetrieveResult{}, err
	}
	res.Groom = groomed
	res.Status.Merge(groomed.Status)

	if err := s.store.MarkRepresentativesRetrieved(ctx, loc.WeVoteID, s.now()); err != nil {
		return RetrieveResult{}, fmt.Errorf("representatives: mark retrieved: %w", err)
	}
	if err := s.writeLog(ctx, loc, model.LogKindRepresentativesFound, res.Status, opts, &res); err != nil {
		return RetrieveResult{}, err
	}
	res.Success = true
	return res, nil
}

func (s *Service) writeLog(ctx context.Context, loc model.PollingLocation, kind model.PollingLocationLogKind, status model.Status, opts RetrieveOptions, res *RetrieveResult) error {
	res.LogKind = kind
	_, err := s.store.CreatePollingLocationLogEntry(ctx, model.PollingLocationLogEntry{
		PollingLocationWeVoteID: loc.WeVoteID,
		StateCode:               strings.ToUpper(loc.State),
		Kind:                    kind,
		TextForMapSearch:        loc.TextForMapSearch(),
		StatusText:              status.String(),
		BatchProcessID:          opts.BatchProcessID,
		DateTime:                s.now(),
	})
	if err != nil {
		return fmt.Errorf("representatives: write log entry: %w", err)
	}
	return nil
}

// BatchResult is the outcome of ProcessNextRepresentatives.
type BatchResult struct {
	Success      bool
	Status       model.Status
	BatchProcess model.BatchProcess
	Claimed      bool
	Retrieved    int
	Failed       int
	Completed    bool
}

// ProcessNextRepresentatives claims the next open representatives batch
// process, retrieves one batch of its state's polling locations, and then
// completes the process when the state is exhausted or checks it back in.
func (s *Service) ProcessNextRepresentatives(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	bp, err := s.store.ClaimBatchProcess(ctx, model.BatchRetrieveRepresentatives, s.cfg.Lease)
	if errors.Is(err, storage.ErrNotFound) {
		res.Success = true
		res.Status.Add(StatusNoBatchProcessAvailable)
		return res, nil
	}
	if err != nil {
		return BatchResult{}, fmt.Errorf("representatives: claim batch process: %w", err)
	}
	res.Claimed = true
	res.BatchProcess = bp

	now := s.now()
	locs, err := s.store.SelectPollingLocationsForRepresentatives(ctx, bp.StateCode, s.cfg.BatchSize,
		now.Add(-s.cfg.RefreshInterval), now.Add(-s.cfg.FailedLocationCooldown))
	if err != nil {
		return BatchResult{}, s.releaseAfter(bp.ID, 0, fmt.Errorf("representatives: select polling locations: %w", err))
	}

	opts := RetrieveOptions{Rules: model.AllowAll(), BatchProcessID: &bp.ID, Cache: NewImportCache()}
	for _, loc := range locs {
		r, err := s.RetrieveRepresentativesForPollingLocation(ctx, loc, opts)
		if err != nil {
			return BatchResult{}, s.releaseAfter(bp.ID, res.Retrieved, err)
		}
		if r.Success {
			res.Retrieved++
		} else {
			res.Failed++
		}
	}

	if len(locs) < s.cfg.BatchSize {
		summary := fmt.Sprintf("%d polling locations retrieved in final batch for %s", res.Retrieved, bp.StateCode)
		if err := s.store.CompleteBatchProcess(ctx, bp.ID, res.Retrieved, summary); err != nil {
			return BatchResult{}, fmt.Errorf("representatives: complete batch process %d: %w", bp.ID, err)
		}
		res.Completed = true
		res.Status.Add(StatusBatchProcessCompleted)
	} else {
		if err := s.store.ReleaseBatchProcess(ctx, bp.ID, res.Retrieved); err != nil {
			return BatchResult{}, fmt.Errorf("representatives: release batch process %d: %w", bp.ID, err)
		}
		res.Status.Add(StatusBatchProcessReleased)
	}

	s.logger.Info("representatives batch processed",
		"batch_process_id", bp.ID, "state_code", bp.StateCode,
		"retrieved", res.Retrieved, "failed", res.Failed, "completed", res.Completed)
	res.Success = true
	return res, nil
}

const releaseTimeout = 5 * time.Second

// releaseAfter checks the process back in after a failed run. It uses a
// fresh context so cancellation of the run does not strand the lease.
func (s *Service) releaseAfter(id int64, retrieved int, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.store.ReleaseBatchProcess(ctx, id, retrieved); err != nil {
		s.logger.Error("release batch process failed", "batch_process_id", id, "error", err)
	}
	return cause
}

// CreateRepresentativesBatchProcess queues retrieval for every polling
// location in a state.
func (s *Service) CreateRepresentativesBatchProcess(ctx context.Context, stateCode string) (BatchResult, error) {
	var res BatchResult
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))
	if len(stateCode) != 2 {
		res.Status.Add(StatusStateCodeMissing)
		return res, nil
	}
	bp, err := s.store.CreateBatchProcess(ctx, model.BatchRetrieveRepresentatives, stateCode)
	if err != nil {
		return BatchResult{}, fmt.Errorf("representatives: create batch process: %w", err)
	}
	s.logger.Info("representatives batch process created", "batch_process_id", bp.ID, "state_code", stateCode)
	res.Success = true
	res.BatchProcess = bp
	res.Status.Add(StatusBatchProcessCreated)
	return res, nil
}
