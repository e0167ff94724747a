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

const voterGuideColumns = `id, we_vote_id, organization_we_vote_id, google_civic_election_id,
	voter_guide_owner_type, display_name, image_url, twitter_handle, state_code, number_of_positions, last_updated`

func scanVoterGuide(row pgx.Row) (model.VoterGuide, error) {
	var g model.VoterGuide
	err := row.Scan(&g.ID, &g.WeVoteID, &g.OrganizationWeVoteID, &g.GoogleCivicElectionID,
		&g.OwnerType, &g.DisplayName, &g.ImageURL, &g.TwitterHandle, &g.StateCode, &g.NumberOfPositions, &g.LastUpdated)
	return g, err
}

// GetVoterGuide returns the guide for one organization and election.
func (db *DB) GetVoterGuide(ctx context.Context, organizationWeVoteID string, googleCivicElectionID int64) (model.VoterGuide, error) {
	g, err := scanVoterGuide(db.pool.QueryRow(ctx,
		`SELECT `+voterGuideColumns+` FROM voter_guides
		 WHERE organization_we_vote_id = $1 AND google_civic_election_id = $2`,
		organizationWeVoteID, googleCivicElectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoterGuide{}, ErrNotFound
		}
		return model.VoterGuide{}, fmt.Errorf("storage: get voter guide: %w", err)
	}
	return g, nil
}

// CreateVoterGuide inserts g, minting its we_vote_id if unset.
func (db *DB) CreateVoterGuide(ctx context.Context, g model.VoterGuide) (model.VoterGuide, error) {
	var err error
	if g.WeVoteID == "" {
		if g.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevVoterGuide); err != nil {
			return model.VoterGuide{}, err
		}
	}
	g.LastUpdated = time.Now().UTC()
	err = db.pool.QueryRow(ctx,
		`INSERT INTO voter_guides (we_vote_id, organization_we_vote_id, google_civic_election_id,
		 voter_guide_owner_type, display_name, image_url, twitter_handle, state_code, number_of_positions, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		g.WeVoteID, g.OrganizationWeVoteID, g.GoogleCivicElectionID,
		string(g.OwnerType), g.DisplayName, g.ImageURL, g.TwitterHandle, g.StateCode, g.NumberOfPositions, g.LastUpdated,
	).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.VoterGuide{}, fmt.Errorf("storage: create voter guide: %w", ErrDuplicate)
		}
		return model.VoterGuide{}, fmt.Errorf("storage: create voter guide: %w", err)
	}
	return g, nil
}

// UpdateVoterGuide rewrites the denormalized fields of g.
func (db *DB) UpdateVoterGuide(ctx context.Context, g model.VoterGuide) (model.VoterGuide, error) {
	g.LastUpdated = time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE voter_guides SET voter_guide_owner_type = $2, display_name = $3,
		 image_url = $4, twitter_handle = $5, state_code = $6, number_of_positions = $7, last_updated = $8
		 WHERE we_vote_id = $1`,
		g.WeVoteID, string(g.OwnerType), g.DisplayName,
		g.ImageURL, g.TwitterHandle, g.StateCode, g.NumberOfPositions, g.LastUpdated,
	)
	if err != nil {
		return model.VoterGuide{}, fmt.Errorf("storage: update voter guide: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.VoterGuide{}, ErrNotFound
	}
	return g, nil
}

func voterGuideWhere(f model.VoterGuideFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OrganizationWeVoteID != "" {
		args = append(args, f.OrganizationWeVoteID)
		conds = append(conds, fmt.Sprintf("organization_we_vote_id = $%d", len(args)))
	}
	if f.GoogleCivicElectionID > 0 {
		args = append(args, f.GoogleCivicElectionID)
		conds = append(conds, fmt.Sprintf("google_civic_election_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// ListVoterGuides returns guides matching f, most recently updated first.
func (db *DB) ListVoterGuides(ctx context.Context, f model.VoterGuideFilter) ([]model.VoterGuide, error) {
	where, args := voterGuideWhere(f)
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))
	rows, err := db.pool.Query(ctx,
		fmt.Sprintf(`SELECT `+voterGuideColumns+` FROM voter_guides WHERE %s
		 ORDER BY last_updated DESC, id LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list voter guides: %w", err)
	}
	defer rows.Close()

	var out []model.VoterGuide
	for rows.Next() {
		g, err := scanVoterGuide(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan voter guide: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// clampLimit applies the default page size of 50 and caps pages at 1000.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 1000:
		return 1000
	}
	return limit
}
