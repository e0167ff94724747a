package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const measureColumns = `id, we_vote_id, measure_title, measure_subtitle, google_civic_measure_title,
	google_civic_measure_title2, google_civic_measure_title3, state_code, measure_year, google_civic_election_id`

func scanMeasure(row pgx.Row) (model.Measure, error) {
	var m model.Measure
	err := row.Scan(&m.ID, &m.WeVoteID, &m.MeasureTitle, &m.MeasureSubtitle, &m.GoogleCivicMeasureTitle,
		&m.GoogleCivicMeasureTitle2, &m.GoogleCivicMeasureTitle3, &m.StateCode, &m.MeasureYear, &m.GoogleCivicElectionID)
	return m, err
}

// ListMeasuresForYears returns measures on the ballot in any of years, in id
// order. An empty stateCode matches every state.
func (db *DB) ListMeasuresForYears(ctx context.Context, stateCode string, years []int) ([]model.Measure, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+measureColumns+` FROM contest_measures
		 WHERE measure_year = ANY($1) AND ($2 = '' OR upper(state_code) = upper($2))
		 ORDER BY id`, years, stateCode)
	if err != nil {
		return nil, fmt.Errorf("storage: list measures: %w", err)
	}
	defer rows.Close()

	var out []model.Measure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan measure: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMeasureByWeVoteID looks a measure up by we_vote_id.
func (db *DB) GetMeasureByWeVoteID(ctx context.Context, weVoteID string) (model.Measure, error) {
	m, err := scanMeasure(db.pool.QueryRow(ctx,
		`SELECT `+measureColumns+` FROM contest_measures WHERE we_vote_id = $1`, weVoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Measure{}, ErrNotFound
		}
		return model.Measure{}, fmt.Errorf("storage: get measure: %w", err)
	}
	return m, nil
}

// CreateMeasure inserts a measure, minting its we_vote_id if unset.
func (db *DB) CreateMeasure(ctx context.Context, m model.Measure) (model.Measure, error) {
	var err error
	if m.WeVoteID == "" {
		if m.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevMeasure); err != nil {
			return model.Measure{}, err
		}
	}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO contest_measures (we_vote_id, measure_title, measure_subtitle, google_civic_measure_title,
		 google_civic_measure_title2, google_civic_measure_title3, state_code, measure_year, google_civic_election_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		m.WeVoteID, m.MeasureTitle, m.MeasureSubtitle, m.GoogleCivicMeasureTitle,
		m.GoogleCivicMeasureTitle2, m.GoogleCivicMeasureTitle3, m.StateCode, m.MeasureYear, m.GoogleCivicElectionID,
	).Scan(&m.ID)
	if err != nil {
		return model.Measure{}, fmt.Errorf("storage: create measure: %w", err)
	}
	return m, nil
}

// GetContestOfficeByWeVoteID looks a contest office up by we_vote_id.
func (db *DB) GetContestOfficeByWeVoteID(ctx context.Context, weVoteID string) (model.ContestOffice, error) {
	var o model.ContestOffice
	err := db.pool.QueryRow(ctx,
		`SELECT id, we_vote_id, office_name, state_code, google_civic_election_id
		 FROM contest_offices WHERE we_vote_id = $1`, weVoteID,
	).Scan(&o.ID, &o.WeVoteID, &o.OfficeName, &o.StateCode, &o.GoogleCivicElectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContestOffice{}, ErrNotFound
		}
		return model.ContestOffice{}, fmt.Errorf("storage: get contest office: %w", err)
	}
	return o, nil
}
