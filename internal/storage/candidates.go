package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const candidateColumns = `id, we_vote_id, candidate_name, google_civic_candidate_name, google_civic_candidate_name2,
	google_civic_candidate_name3, ballotpedia_candidate_name, candidate_twitter_handle, candidate_twitter_handle2,
	candidate_twitter_handle3, party, state_code, contest_office_we_vote_id, contest_office_name, candidate_year,
	google_civic_election_id`

func scanCandidate(row pgx.Row) (model.Candidate, error) {
	var c model.Candidate
	err := row.Scan(&c.ID, &c.WeVoteID, &c.CandidateName, &c.GoogleCivicCandidateName, &c.GoogleCivicCandidateName2,
		&c.GoogleCivicCandidateName3, &c.BallotpediaCandidateName, &c.TwitterHandle, &c.TwitterHandle2,
		&c.TwitterHandle3, &c.PartyAffiliation, &c.StateCode, &c.ContestOfficeWeVoteID, &c.ContestOfficeName,
		&c.CandidateYear, &c.GoogleCivicElectionID)
	return c, err
}

// ListCandidatesForYears returns candidates running in any of years, in id
// order. An empty stateCode matches every state.
func (db *DB) ListCandidatesForYears(ctx context.Context, stateCode string, years []int) ([]model.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE candidate_year = ANY($1) AND ($2 = '' OR upper(state_code) = upper($2))
		 ORDER BY id`, years, stateCode)
	if err != nil {
		return nil, fmt.Errorf("storage: list candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCandidateByWeVoteID looks a candidate up by we_vote_id.
func (db *DB) GetCandidateByWeVoteID(ctx context.Context, weVoteID string) (model.Candidate, error) {
	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE we_vote_id = $1`, weVoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Candidate{}, ErrNotFound
		}
		return model.Candidate{}, fmt.Errorf("storage: get candidate: %w", err)
	}
	return c, nil
}

// CreateCandidate inserts a candidate, minting its we_vote_id if unset.
func (db *DB) CreateCandidate(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	var err error
	if c.WeVoteID == "" {
		if c.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevCandidate); err != nil {
			return model.Candidate{}, err
		}
	}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO candidates (we_vote_id, candidate_name, google_civic_candidate_name, google_civic_candidate_name2,
		 google_civic_candidate_name3, ballotpedia_candidate_name, candidate_twitter_handle, candidate_twitter_handle2,
		 candidate_twitter_handle3, party, state_code, contest_office_we_vote_id, contest_office_name, candidate_year,
		 google_civic_election_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		c.WeVoteID, c.CandidateName, c.GoogleCivicCandidateName, c.GoogleCivicCandidateName2,
		c.GoogleCivicCandidateName3, c.BallotpediaCandidateName, c.TwitterHandle, c.TwitterHandle2,
		c.TwitterHandle3, c.PartyAffiliation, c.StateCode, c.ContestOfficeWeVoteID, c.ContestOfficeName,
		c.CandidateYear, c.GoogleCivicElectionID,
	).Scan(&c.ID)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("storage: create candidate: %w", err)
	}
	return c, nil
}
