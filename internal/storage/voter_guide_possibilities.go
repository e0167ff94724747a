package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const possibilityColumns = `id, we_vote_id, voter_guide_possibility_url, voter_guide_possibility_type,
	organization_name, organization_twitter_handle, organization_we_vote_id, candidate_name, candidate_twitter_handle,
	candidate_we_vote_id, state_code, google_civic_election_id, voter_who_submitted_we_vote_id, contributor_comments,
	contributor_email, ignore_this_source, done_verified, hide_from_active_review, date_created, date_last_changed`

func scanPossibility(row pgx.Row) (model.VoterGuidePossibility, error) {
	var v model.VoterGuidePossibility
	err := row.Scan(&v.ID, &v.WeVoteID, &v.URL, &v.Type,
		&v.OrganizationName, &v.OrganizationTwitterHandle, &v.OrganizationWeVoteID, &v.CandidateName, &v.CandidateTwitterHandle,
		&v.CandidateWeVoteID, &v.StateCode, &v.GoogleCivicElectionID, &v.VoterWhoSubmittedWeVoteID, &v.ContributorComments,
		&v.ContributorEmail, &v.IgnoreThisSource, &v.DoneVerified, &v.HideFromActiveReview, &v.DateCreated, &v.DateLastChanged)
	return v, err
}

func (db *DB) getPossibility(ctx context.Context, where string, arg any) (model.VoterGuidePossibility, error) {
	v, err := scanPossibility(db.pool.QueryRow(ctx,
		`SELECT `+possibilityColumns+` FROM voter_guide_possibilities WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoterGuidePossibility{}, ErrNotFound
		}
		return model.VoterGuidePossibility{}, fmt.Errorf("storage: get voter guide possibility: %w", err)
	}
	return v, nil
}

// GetPossibilityByID looks a possibility up by primary key.
func (db *DB) GetPossibilityByID(ctx context.Context, id int64) (model.VoterGuidePossibility, error) {
	return db.getPossibility(ctx, "id = $1", id)
}

// GetPossibilityByURL looks a possibility up by its page URL.
func (db *DB) GetPossibilityByURL(ctx context.Context, url string) (model.VoterGuidePossibility, error) {
	return db.getPossibility(ctx, "voter_guide_possibility_url = $1", url)
}

// CreatePossibility inserts v, minting its we_vote_id if unset.
func (db *DB) CreatePossibility(ctx context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error) {
	var err error
	if v.WeVoteID == "" {
		if v.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevVoterGuidePossibility); err != nil {
			return model.VoterGuidePossibility{}, err
		}
	}
	if v.Type == "" {
		v.Type = model.PossibilityUnknownType
	}
	now := time.Now().UTC()
	v.DateCreated, v.DateLastChanged = now, now
	err = db.pool.QueryRow(ctx,
		`INSERT INTO voter_guide_possibilities (we_vote_id, voter_guide_possibility_url, voter_guide_possibility_type,
		 organization_name, organization_twitter_handle, organization_we_vote_id, candidate_name, candidate_twitter_handle,
		 candidate_we_vote_id, state_code, google_civic_election_id, voter_who_submitted_we_vote_id, contributor_comments,
		 contributor_email, ignore_this_source, done_verified, hide_from_active_review, date_created, date_last_changed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19) RETURNING id`,
		v.WeVoteID, v.URL, string(v.Type),
		v.OrganizationName, v.OrganizationTwitterHandle, v.OrganizationWeVoteID, v.CandidateName, v.CandidateTwitterHandle,
		v.CandidateWeVoteID, v.StateCode, v.GoogleCivicElectionID, v.VoterWhoSubmittedWeVoteID, v.ContributorComments,
		v.ContributorEmail, v.IgnoreThisSource, v.DoneVerified, v.HideFromActiveReview, v.DateCreated, v.DateLastChanged,
	).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.VoterGuidePossibility{}, fmt.Errorf("storage: create voter guide possibility: %w", ErrDuplicate)
		}
		return model.VoterGuidePossibility{}, fmt.Errorf("storage: create voter guide possibility: %w", err)
	}
	return v, nil
}

// UpdatePossibility rewrites every mutable column of v.
func (db *DB) UpdatePossibility(ctx context.Context, v model.VoterGuidePossibility) (model.VoterGuidePossibility, error) {
	v.DateLastChanged = time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE voter_guide_possibilities SET voter_guide_possibility_url = $2, voter_guide_possibility_type = $3,
		 organization_name = $4, organization_twitter_handle = $5, organization_we_vote_id = $6, candidate_name = $7,
		 candidate_twitter_handle = $8, candidate_we_vote_id = $9, state_code = $10, google_civic_election_id = $11,
		 voter_who_submitted_we_vote_id = $12, contributor_comments = $13, contributor_email = $14,
		 ignore_this_source = $15, done_verified = $16, hide_from_active_review = $17, date_last_changed = $18
		 WHERE id = $1`,
		v.ID, v.URL, string(v.Type),
		v.OrganizationName, v.OrganizationTwitterHandle, v.OrganizationWeVoteID, v.CandidateName,
		v.CandidateTwitterHandle, v.CandidateWeVoteID, v.StateCode, v.GoogleCivicElectionID,
		v.VoterWhoSubmittedWeVoteID, v.ContributorComments, v.ContributorEmail,
		v.IgnoreThisSource, v.DoneVerified, v.HideFromActiveReview, v.DateLastChanged,
	)
	if err != nil {
		return model.VoterGuidePossibility{}, fmt.Errorf("storage: update voter guide possibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.VoterGuidePossibility{}, ErrNotFound
	}
	return v, nil
}

func possibilityWhere(f model.PossibilityFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.StateCode != "" {
		args = append(args, strings.ToUpper(f.StateCode))
		conds = append(conds, fmt.Sprintf("upper(state_code) = $%d", len(args)))
	}
	if !f.IncludeIgnored {
		conds = append(conds, "NOT ignore_this_source")
	}
	if !f.IncludeVerified {
		conds = append(conds, "NOT done_verified")
	}
	if !f.IncludeHidden {
		conds = append(conds, "NOT hide_from_active_review")
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// ListPossibilities returns possibilities matching f, newest first.
func (db *DB) ListPossibilities(ctx context.Context, f model.PossibilityFilter) ([]model.VoterGuidePossibility, error) {
	where, args := possibilityWhere(f)
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))
	rows, err := db.pool.Query(ctx,
		fmt.Sprintf(`SELECT `+possibilityColumns+` FROM voter_guide_possibilities WHERE %s
		 ORDER BY date_last_changed DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list voter guide possibilities: %w", err)
	}
	defer rows.Close()

	var out []model.VoterGuidePossibility
	for rows.Next() {
		v, err := scanPossibility(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan voter guide possibility: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeletePossibility removes a possibility and, by cascade, its positions.
func (db *DB) DeletePossibility(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM voter_guide_possibilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: delete voter guide possibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const possibilityPositionColumns = `id, voter_guide_possibility_id, possibility_position_number, ballot_item_name,
	ballot_item_state_code, candidate_we_vote_id, candidate_twitter_handle, measure_we_vote_id, organization_name,
	organization_twitter_handle, organization_we_vote_id, position_stance, statement_text, more_info_url,
	possibility_should_be_ignored, position_should_be_removed, position_we_vote_id, google_civic_election_id`

func scanPossibilityPosition(row pgx.Row) (model.VoterGuidePossibilityPosition, error) {
	var pp model.VoterGuidePossibilityPosition
	err := row.Scan(&pp.ID, &pp.VoterGuidePossibilityID, &pp.PossibilityPositionNumber, &pp.BallotItemName,
		&pp.BallotItemStateCode, &pp.CandidateWeVoteID, &pp.CandidateTwitterHandle, &pp.MeasureWeVoteID, &pp.OrganizationName,
		&pp.OrganizationTwitterHandle, &pp.OrganizationWeVoteID, &pp.PositionStance, &pp.StatementText, &pp.MoreInfoURL,
		&pp.PossibilityShouldBeIgnored, &pp.PositionShouldBeRemoved, &pp.PositionWeVoteID, &pp.GoogleCivicElectionID)
	return pp, err
}

// ListPossibilityPositions returns the rows of one possibility in position-number order.
func (db *DB) ListPossibilityPositions(ctx context.Context, possibilityID int64) ([]model.VoterGuidePossibilityPosition, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+possibilityPositionColumns+` FROM voter_guide_possibility_positions
		 WHERE voter_guide_possibility_id = $1 ORDER BY possibility_position_number, id`, possibilityID)
	if err != nil {
		return nil, fmt.Errorf("storage: list possibility positions: %w", err)
	}
	defer rows.Close()

	var out []model.VoterGuidePossibilityPosition
	for rows.Next() {
		pp, err := scanPossibilityPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan possibility position: %w", err)
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// GetPossibilityPosition looks one row up by primary key.
func (db *DB) GetPossibilityPosition(ctx context.Context, id int64) (model.VoterGuidePossibilityPosition, error) {
	pp, err := scanPossibilityPosition(db.pool.QueryRow(ctx,
		`SELECT `+possibilityPositionColumns+` FROM voter_guide_possibility_positions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoterGuidePossibilityPosition{}, ErrNotFound
		}
		return model.VoterGuidePossibilityPosition{}, fmt.Errorf("storage: get possibility position: %w", err)
	}
	return pp, nil
}

// CreatePossibilityPosition inserts pp. A zero position number is replaced
// with one past the current highest for the possibility.
func (db *DB) CreatePossibilityPosition(ctx context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error) {
	if pp.PositionStance == "" {
		pp.PositionStance = model.StanceSupport
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO voter_guide_possibility_positions (voter_guide_possibility_id, possibility_position_number,
		 ballot_item_name, ballot_item_state_code, candidate_we_vote_id, candidate_twitter_handle, measure_we_vote_id,
		 organization_name, organization_twitter_handle, organization_we_vote_id, position_stance, statement_text,
		 more_info_url, possibility_should_be_ignored, position_should_be_removed, position_we_vote_id,
		 google_civic_election_id)
		 VALUES ($1,
		   CASE WHEN $2 > 0 THEN $2 ELSE (SELECT COALESCE(max(possibility_position_number), 0) + 1
		     FROM voter_guide_possibility_positions WHERE voter_guide_possibility_id = $1) END,
		   $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, possibility_position_number`,
		pp.VoterGuidePossibilityID, pp.PossibilityPositionNumber,
		pp.BallotItemName, pp.BallotItemStateCode, pp.CandidateWeVoteID, pp.CandidateTwitterHandle, pp.MeasureWeVoteID,
		pp.OrganizationName, pp.OrganizationTwitterHandle, pp.OrganizationWeVoteID, string(pp.PositionStance), pp.StatementText,
		pp.MoreInfoURL, pp.PossibilityShouldBeIgnored, pp.PositionShouldBeRemoved, pp.PositionWeVoteID,
		pp.GoogleCivicElectionID,
	).Scan(&pp.ID, &pp.PossibilityPositionNumber)
	if err != nil {
		return model.VoterGuidePossibilityPosition{}, fmt.Errorf("storage: create possibility position: %w", err)
	}
	return pp, nil
}

// UpdatePossibilityPosition rewrites every mutable column of pp.
func (db *DB) UpdatePossibilityPosition(ctx context.Context, pp model.VoterGuidePossibilityPosition) (model.VoterGuidePossibilityPosition, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE voter_guide_possibility_positions SET possibility_position_number = $2, ballot_item_name = $3,
		 ballot_item_state_code = $4, candidate_we_vote_id = $5, candidate_twitter_handle = $6, measure_we_vote_id = $7,
		 organization_name = $8, organization_twitter_handle = $9, organization_we_vote_id = $10, position_stance = $11,
		 statement_text = $12, more_info_url = $13, possibility_should_be_ignored = $14, position_should_be_removed = $15,
		 position_we_vote_id = $16, google_civic_election_id = $17
		 WHERE id = $1`,
		pp.ID, pp.PossibilityPositionNumber, pp.BallotItemName,
		pp.BallotItemStateCode, pp.CandidateWeVoteID, pp.CandidateTwitterHandle, pp.MeasureWeVoteID,
		pp.OrganizationName, pp.OrganizationTwitterHandle, pp.OrganizationWeVoteID, string(pp.PositionStance),
		pp.StatementText, pp.MoreInfoURL, pp.PossibilityShouldBeIgnored, pp.PositionShouldBeRemoved,
		pp.PositionWeVoteID, pp.GoogleCivicElectionID,
	)
	if err != nil {
		return model.VoterGuidePossibilityPosition{}, fmt.Errorf("storage: update possibility position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.VoterGuidePossibilityPosition{}, ErrNotFound
	}
	return pp, nil
}

// DeletePossibilityPosition removes one row.
func (db *DB) DeletePossibilityPosition(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM voter_guide_possibility_positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("storage: delete possibility position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
