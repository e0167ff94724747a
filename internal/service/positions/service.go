// Package positions resolves, creates and moves positions across the public
// and friends-only tables.
package positions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wevote/wevoteserver/internal/model"
	"github.com/wevote/wevoteserver/internal/storage"
	"github.com/wevote/wevoteserver/internal/telemetry"
)

// Status codes recorded by this package.
const (
	StatusPositionCreated         = "POSITION_CREATED"
	StatusPositionUpdated         = "POSITION_UPDATED"
	StatusPositionSaveFailed      = "POSITION_SAVE_FAILED"
	StatusPositionNotFound        = "POSITION_NOT_FOUND"
	StatusPositionAlreadyInTable  = "POSITION_ALREADY_IN_TARGET_TABLE"
	StatusPositionMoved           = "POSITION_MOVED"
	StatusPositionMerged          = "POSITION_MERGED"
	StatusPositionsNotDuplicates  = "POSITIONS_NOT_DUPLICATES"
	StatusPositionMissingIdentity = "POSITION_CREATE_REQUIRES_SPEAKER_AND_BALLOT_ITEM"
	StatusPositionListRetrieved   = "POSITION_LIST_RETRIEVED"
	StatusKindOfBallotItemMissing = "VALID_KIND_OF_BALLOT_ITEM_MISSING"
	StatusBallotItemIDMissing     = "VALID_BALLOT_ITEM_WE_VOTE_ID_MISSING"
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	GetPositionByWeVoteID(ctx context.Context, vis model.Visibility, weVoteID string) (model.Position, error)
	FindPositions(ctx context.Context, vis model.Visibility, m model.PositionMatch, limit int) ([]model.Position, error)
	CreatePosition(ctx context.Context, p model.Position) (model.Position, error)
	UpdatePosition(ctx context.Context, p model.Position) (model.Position, error)
	MovePosition(ctx context.Context, p model.Position, to model.Visibility) (model.Position, error)
	MergePositions(ctx context.Context, keeper, duplicate model.Position) (model.Position, error)
	GetVoterByDeviceID(ctx context.Context, voterDeviceID string) (model.Voter, error)
}

// Service implements position lookup and create-or-update.
type Service struct {
	store  Store
	logger *slog.Logger

	lookupDuration metric.Float64Histogram
}

// New creates a positions Service.
func New(store Store, logger *slog.Logger) *Service {
	meter := telemetry.Meter("wevote/positions")
	lookupDur, _ := meter.Float64Histogram("wevote.position.lookup.duration",
		metric.WithDescription("Time to resolve a position across both tables (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{store: store, logger: logger, lookupDuration: lookupDur}
}

// RetrieveResult is the outcome of a single-position lookup.
type RetrieveResult struct {
	Success  bool
	Status   model.Status
	Found    bool
	Position model.Position
}

// retrieveStep is one (visibility-agnostic) query in the lookup order.
type retrieveStep struct {
	name  string
	match model.PositionMatch
}

// lookupSteps expands a speaker and ballot item lookup into the ordered
// queries: election, then time span, then the bare pair.
func lookupSteps(lk model.PositionLookup) []retrieveStep {
	base := model.PositionMatch{Speaker: lk.Speaker, BallotItem: lk.BallotItem}
	prefix := strings.ToLower(string(lk.Speaker.Kind))
	var steps []retrieveStep
	if lk.Speaker.Kind == model.SpeakerVoter {
		return append(steps, retrieveStep{name: prefix + "+ballot_item", match: base})
	}
	if lk.GoogleCivicElectionID > 0 {
		m := base
		m.GoogleCivicElectionID = lk.GoogleCivicElectionID
		steps = append(steps, retrieveStep{name: prefix + "+ballot_item+election", match: m})
	}
	if lk.VoteSmartTimeSpan != "" {
		m := base
		m.VoteSmartTimeSpan = lk.VoteSmartTimeSpan
		steps = append(steps, retrieveStep{name: prefix + "+ballot_item+time_span", match: m})
	}
	if len(steps) == 0 {
		steps = append(steps, retrieveStep{name: prefix + "+ballot_item", match: base})
	}
	return steps
}

// RetrievePositionTableUnknown finds the position identified by lk without
// knowing which table holds it. Each lookup step checks the public table
// first, then the friends-only table, and the first hit wins.
func (s *Service) RetrievePositionTableUnknown(ctx context.Context, lk model.PositionLookup) (RetrieveResult, error) {
	start := time.Now()
	defer func() {
		s.lookupDuration.Record(ctx, telemetry.DurationMS(start),
			metric.WithAttributes(attribute.Int("kind", int(lk.Kind))))
	}()

	tables := []model.Visibility{model.VisibilityPublic, model.VisibilityFriendsOnly}
	res := RetrieveResult{Success: true}

	if lk.Kind == model.LookupByWeVoteID {
		for _, vis := range tables {
			p, err := s.store.GetPositionByWeVoteID(ctx, vis, lk.WeVoteID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return RetrieveResult{}, fmt.Errorf("positions: retrieve by we_vote_id: %w", err)
			}
			res.Found, res.Position = true, p
			res.Status.Add(model.StatusRetrievePositionFound)
			return res, nil
		}
		res.Status.Add(model.StatusRetrievePositionNoneFound)
		return res, nil
	}

	for _, step := range lookupSteps(lk) {
		for _, vis := range tables {
			found, err := s.store.FindPositions(ctx, vis, step.match, 2)
			if err != nil {
				return RetrieveResult{}, fmt.Errorf("positions: retrieve by %s: %w", step.name, err)
			}
			switch len(found) {
			case 0:
				continue
			case 1:
				res.Found, res.Position = true, found[0]
				res.Status.Add(model.StatusRetrievePositionFound)
				return res, nil
			default:
				res.Success = false
				res.Status.Addf("%s: %s in %s", model.StatusRetrievePositionMultipleFound, step.name, vis)
				return res, nil
			}
		}
	}
	res.Status.Add(model.StatusRetrievePositionNoneFound)
	return res, nil
}

// PositionFields are the writable, non-identifying fields of a position.
// Empty values leave the stored value unchanged on update.
type PositionFields struct {
	Stance                model.Stance
	StatementText         string
	StatementHTML         string
	MoreInfoURL           string
	VoteSmartRating       string
	BallotItemDisplayName string
	SpeakerDisplayName    string
	StateCode             string
	VoterID               int64
}

func (f PositionFields) applyTo(p *model.Position) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if f.Stance != "" {
		p.Stance = f.Stance
	}
	set(&p.StatementText, f.StatementText)
	set(&p.StatementHTML, f.StatementHTML)
	set(&p.MoreInfoURL, f.MoreInfoURL)
	set(&p.VoteSmartRating, f.VoteSmartRating)
	set(&p.BallotItemDisplayName, f.BallotItemDisplayName)
	set(&p.SpeakerDisplayName, f.SpeakerDisplayName)
	set(&p.StateCode, f.StateCode)
	if f.VoterID != 0 {
		p.VoterID = f.VoterID
	}
}

// UpdateOrCreateInput identifies a position and carries the values to save.
type UpdateOrCreateInput struct {
	Identifiers         model.PositionIdentifiers
	Fields              PositionFields
	SetAsPublicPosition bool
}

// SaveResult is the outcome of UpdateOrCreatePosition.
type SaveResult struct {
	Success            bool
	Status             model.Status
	Position           model.Position
	IsPublicPosition   bool
	NewPositionCreated bool
}

// UpdateOrCreatePosition updates the position the identifiers resolve to, or
// creates one in the public or friends-only table when none exists.
func (s *Service) UpdateOrCreatePosition(ctx context.Context, in UpdateOrCreateInput) (SaveResult, error) {
	var res SaveResult
	lk, err := model.NewPositionLookup(in.Identifiers)
	if err != nil {
		res.Status.Add(err.Error())
		return res, nil
	}

	found, err := s.RetrievePositionTableUnknown(ctx, lk)
	if err != nil {
		return SaveResult{}, err
	}
	res.Status.Merge(found.Status)
	if !found.Success {
		return res, nil
	}

	if found.Found {
		p := found.Position
		in.Fields.applyTo(&p)
		saved, err := s.store.UpdatePosition(ctx, p)
		if err != nil {
			res.Status.Addf("%s: %v", StatusPositionSaveFailed, err)
			return res, fmt.Errorf("positions: update %s: %w", p.WeVoteID, err)
		}
		res.Success = true
		res.Position = saved
		res.IsPublicPosition = saved.Visibility.IsPublic()
		res.Status.Add(StatusPositionUpdated)
		return res, nil
	}

	// A we_vote_id miss can still be created when the speaker and ballot
	// item were supplied alongside it.
	if lk.Kind == model.LookupByWeVoteID {
		ids := in.Identifiers
		ids.PositionWeVoteID = ""
		byPair, err := model.NewPositionLookup(ids)
		if err != nil {
			res.Status.Add(StatusPositionMissingIdentity)
			return res, nil
		}
		again, err := s.RetrievePositionTableUnknown(ctx, byPair)
		if err != nil {
			return SaveResult{}, err
		}
		if again.Found || !again.Success {
			res.Status.Merge(again.Status)
			res.Success = again.Success
			res.Position = again.Position
			return res, nil
		}
		lk = byPair
	}

	vis := model.VisibilityFriendsOnly
	if in.SetAsPublicPosition {
		vis = model.VisibilityPublic
	}
	p := model.Position{
		Visibility:            vis,
		GoogleCivicElectionID: lk.GoogleCivicElectionID,
		VoteSmartTimeSpan:     lk.VoteSmartTimeSpan,
		Stance:                model.StanceNoStance,
	}
	p.SetSpeaker(lk.Speaker)
	p.SetBallotItem(lk.BallotItem)
	in.Fields.applyTo(&p)

	created, err := s.store.CreatePosition(ctx, p)
	if err != nil {
		res.Status.Addf("%s: %v", StatusPositionSaveFailed, err)
		return res, fmt.Errorf("positions: create: %w", err)
	}
	s.logger.Info("position created",
		"position_we_vote_id", created.WeVoteID,
		"speaker_we_vote_id", lk.Speaker.WeVoteID,
		"ballot_item_we_vote_id", lk.BallotItem.WeVoteID,
		"visibility", string(vis))
	res.Success = true
	res.Position = created
	res.IsPublicPosition = vis.IsPublic()
	res.NewPositionCreated = true
	res.Status.Add(StatusPositionCreated)
	return res, nil
}

// locate finds a position by we_vote_id in whichever table holds it.
func (s *Service) locate(ctx context.Context, weVoteID string) (model.Position, bool, error) {
	res, err := s.RetrievePositionTableUnknown(ctx, model.PositionLookup{Kind: model.LookupByWeVoteID, WeVoteID: weVoteID})
	if err != nil {
		return model.Position{}, false, err
	}
	return res.Position, res.Found, nil
}

// SwitchResult is the outcome of a visibility change.
type SwitchResult struct {
	Success  bool
	Status   model.Status
	Position model.Position
	Merged   bool
}

// SwitchPositionVisibility moves a position into the table for to. If that
// table already holds a position by the same speaker on the same ballot
// item, the two are merged and the one in the target table is kept.
func (s *Service) SwitchPositionVisibility(ctx context.Context, weVoteID string, to model.Visibility) (SwitchResult, error) {
	var res SwitchResult
	current, ok, err := s.locate(ctx, weVoteID)
	if err != nil {
		return SwitchResult{}, err
	}
	if !ok {
		res.Status.Add(StatusPositionNotFound)
		return res, nil
	}
	if current.Visibility == to {
		res.Success = true
		res.Position = current
		res.Status.Add(StatusPositionAlreadyInTable)
		return res, nil
	}

	dups, err := s.store.FindPositions(ctx, to, model.PositionMatch{
		Speaker:    current.Speaker(),
		BallotItem: current.BallotItem(),
	}, 1)
	if err != nil {
		return SwitchResult{}, fmt.Errorf("positions: find duplicate in %s: %w", to, err)
	}
	if len(dups) > 0 {
		merged, err := s.MergePositionVisibility(ctx, dups[0], current)
		if err != nil {
			return SwitchResult{}, err
		}
		res.Success = true
		res.Merged = true
		res.Position = merged
		res.Status.Add(StatusPositionMerged)
		return res, nil
	}

	moved, err := s.store.MovePosition(ctx, current, to)
	if err != nil {
		return SwitchResult{}, fmt.Errorf("positions: move %s to %s: %w", weVoteID, to, err)
	}
	res.Success = true
	res.Position = moved
	res.Status.Add(StatusPositionMoved)
	return res, nil
}

// TransferToPublicPosition makes a position public.
func (s *Service) TransferToPublicPosition(ctx context.Context, weVoteID string) (SwitchResult, error) {
	return s.SwitchPositionVisibility(ctx, weVoteID, model.VisibilityPublic)
}

// TransferToFriendsOnlyPosition makes a position friends-only.
func (s *Service) TransferToFriendsOnlyPosition(ctx context.Context, weVoteID string) (SwitchResult, error) {
	return s.SwitchPositionVisibility(ctx, weVoteID, model.VisibilityFriendsOnly)
}

// MergePositionVisibility copies the duplicate's statement text, HTML and
// more-info URL into any of those the keeper lacks, then deletes the duplicate.
func (s *Service) MergePositionVisibility(ctx context.Context, keeper, duplicate model.Position) (model.Position, error) {
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	fill(&keeper.StatementText, duplicate.StatementText)
	fill(&keeper.StatementHTML, duplicate.StatementHTML)
	fill(&keeper.MoreInfoURL, duplicate.MoreInfoURL)

	saved, err := s.store.MergePositions(ctx, keeper, duplicate)
	if err != nil {
		return model.Position{}, fmt.Errorf("positions: merge %s into %s: %w", duplicate.WeVoteID, keeper.WeVoteID, err)
	}
	s.logger.Info("positions merged",
		"keeper_we_vote_id", keeper.WeVoteID,
		"duplicate_we_vote_id", duplicate.WeVoteID)
	return saved, nil
}

// MergePositionsByWeVoteID looks both positions up and merges them. The two
// must be distinct and share a speaker and a ballot item.
func (s *Service) MergePositionsByWeVoteID(ctx context.Context, keeperID, duplicateID string) (SwitchResult, error) {
	var res SwitchResult
	if keeperID == duplicateID {
		res.Status.Add(StatusPositionsNotDuplicates)
		return res, nil
	}
	keeper, ok, err := s.locate(ctx, keeperID)
	if err != nil {
		return SwitchResult{}, err
	}
	dup, dupOK, err := s.locate(ctx, duplicateID)
	if err != nil {
		return SwitchResult{}, err
	}
	if !ok || !dupOK {
		res.Status.Add(StatusPositionNotFound)
		return res, nil
	}
	if keeper.Speaker() != dup.Speaker() || keeper.BallotItem() != dup.BallotItem() {
		res.Status.Add(StatusPositionsNotDuplicates)
		return res, nil
	}
	merged, err := s.MergePositionVisibility(ctx, keeper, dup)
	if err != nil {
		return SwitchResult{}, err
	}
	res.Success = true
	res.Merged = true
	res.Position = merged
	res.Status.Add(StatusPositionMerged)
	return res, nil
}

// ListResult holds a list of positions and the status of the query.
type ListResult struct {
	Success   bool
	Status    model.Status
	Positions []model.Position
}

// ListPositionsForBallotItem returns the public positions on one ballot item,
// narrowed to an election when googleCivicElectionID is positive.
func (s *Service) ListPositionsForBallotItem(ctx context.Context, item model.BallotItem, googleCivicElectionID int64) (ListResult, error) {
	var res ListResult
	if item.Kind == "" {
		res.Status.Add(StatusKindOfBallotItemMissing)
		return res, nil
	}
	if item.IsZero() {
		res.Status.Add(StatusBallotItemIDMissing)
		return res, nil
	}
	found, err := s.store.FindPositions(ctx, model.VisibilityPublic, model.PositionMatch{
		BallotItem:            item,
		GoogleCivicElectionID: googleCivicElectionID,
	}, 0)
	if err != nil {
		return ListResult{}, fmt.Errorf("positions: list for ballot item: %w", err)
	}
	res.Success = true
	res.Positions = found
	res.Status.Add(StatusPositionListRetrieved)
	return res, nil
}

// resolveVoter maps a device id to a voter, recording the standard status
// codes when either is missing.
func (s *Service) resolveVoter(ctx context.Context, voterDeviceID string, status *model.Status) (model.Voter, bool, error) {
	if model.ValidateVoterDeviceID(voterDeviceID) != nil {
		status.Add(model.StatusValidVoterDeviceIDMissing)
		status.Add(model.StatusValidVoterIDMissing)
		return model.Voter{}, false, nil
	}
	v, err := s.store.GetVoterByDeviceID(ctx, voterDeviceID)
	if errors.Is(err, storage.ErrNotFound) {
		status.Add(model.StatusValidVoterIDMissing)
		return model.Voter{}, false, nil
	}
	if err != nil {
		return model.Voter{}, false, fmt.Errorf("positions: resolve voter: %w", err)
	}
	return v, true, nil
}

func checkBallotItem(item model.BallotItem, status *model.Status) bool {
	switch {
	case item.Kind == "":
		status.Add(StatusKindOfBallotItemMissing)
		return false
	case item.IsZero():
		status.Add(StatusBallotItemIDMissing)
		return false
	}
	return true
}

// RetrieveVoterPosition returns the signed-in voter's own position on one
// ballot item.
func (s *Service) RetrieveVoterPosition(ctx context.Context, voterDeviceID string, item model.BallotItem) (RetrieveResult, error) {
	var res RetrieveResult
	voter, ok, err := s.resolveVoter(ctx, voterDeviceID, &res.Status)
	if err != nil || !ok {
		return res, err
	}
	if !checkBallotItem(item, &res.Status) {
		return res, nil
	}
	found, err := s.RetrievePositionTableUnknown(ctx, model.PositionLookup{
		Kind:       model.LookupBySpeakerAndBallotItem,
		Speaker:    model.Speaker{Kind: model.SpeakerVoter, WeVoteID: voter.WeVoteID},
		BallotItem: item,
	})
	if err != nil {
		return RetrieveResult{}, err
	}
	res.Success = found.Success
	res.Found = found.Found
	res.Position = found.Position
	res.Status.Merge(found.Status)
	return res, nil
}

// SaveVoterPosition creates or updates the voter's own position.
func (s *Service) SaveVoterPosition(ctx context.Context, voterDeviceID string, item model.BallotItem, fields PositionFields, setAsPublic bool) (SaveResult, error) {
	var res SaveResult
	voter, ok, err := s.resolveVoter(ctx, voterDeviceID, &res.Status)
	if err != nil || !ok {
		return res, err
	}
	if !checkBallotItem(item, &res.Status) {
		return res, nil
	}
	ids := model.PositionIdentifiers{VoterWeVoteID: voter.WeVoteID}
	switch item.Kind {
	case model.BallotItemOffice:
		ids.ContestOfficeWeVoteID = item.WeVoteID
	case model.BallotItemCandidate:
		ids.CandidateWeVoteID = item.WeVoteID
	case model.BallotItemMeasure:
		ids.ContestMeasureWeVoteID = item.WeVoteID
	}
	if fields.SpeakerDisplayName == "" {
		fields.SpeakerDisplayName = voter.FullName()
	}
	fields.VoterID = voter.ID
	saved, err := s.UpdateOrCreatePosition(ctx, UpdateOrCreateInput{
		Identifiers:         ids,
		Fields:              fields,
		SetAsPublicPosition: setAsPublic,
	})
	saved.Status = mergeStatus(res.Status, saved.Status)
	return saved, err
}

// SetVoterPositionVisibility switches the voter's own position to vis.
func (s *Service) SetVoterPositionVisibility(ctx context.Context, voterDeviceID string, item model.BallotItem, vis model.Visibility) (SwitchResult, error) {
	found, err := s.RetrieveVoterPosition(ctx, voterDeviceID, item)
	if err != nil {
		return SwitchResult{}, err
	}
	if !found.Found {
		res := SwitchResult{Status: found.Status}
		if found.Success {
			res.Status.Add(StatusPositionNotFound)
		}
		return res, nil
	}
	switched, err := s.SwitchPositionVisibility(ctx, found.Position.WeVoteID, vis)
	switched.Status = mergeStatus(found.Status, switched.Status)
	return switched, err
}

func mergeStatus(first, second model.Status) model.Status {
	out := model.NewStatus(first.Codes()...)
	out.Merge(second)
	return out
}
