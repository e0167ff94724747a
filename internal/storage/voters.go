package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const voterColumns = `v.id, v.we_vote_id, v.first_name, v.last_name, v.email, v.is_admin, v.is_political_data_manager,
	v.is_political_data_viewer, v.is_verified_volunteer, v.is_partner_organization, v.date_joined`

func scanVoter(row pgx.Row) (model.Voter, error) {
	var v model.Voter
	err := row.Scan(&v.ID, &v.WeVoteID, &v.FirstName, &v.LastName, &v.Email, &v.IsAdmin, &v.IsPoliticalDataManager,
		&v.IsPoliticalDataViewer, &v.IsVerifiedVolunteer, &v.IsPartnerOrganization, &v.DateJoined)
	return v, err
}

// GetVoterByDeviceID resolves a voter through voter_device_links.
func (db *DB) GetVoterByDeviceID(ctx context.Context, voterDeviceID string) (model.Voter, error) {
	v, err := scanVoter(db.pool.QueryRow(ctx,
		`SELECT `+voterColumns+` FROM voter_device_links l
		 JOIN voters v ON v.we_vote_id = l.voter_we_vote_id
		 WHERE l.voter_device_id = $1`, voterDeviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Voter{}, ErrNotFound
		}
		return model.Voter{}, fmt.Errorf("storage: get voter by device id: %w", err)
	}
	return v, nil
}

// GetVoterByWeVoteID looks a voter up by we_vote_id.
func (db *DB) GetVoterByWeVoteID(ctx context.Context, weVoteID string) (model.Voter, error) {
	v, err := scanVoter(db.pool.QueryRow(ctx,
		`SELECT `+voterColumns+` FROM voters v WHERE v.we_vote_id = $1`, weVoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Voter{}, ErrNotFound
		}
		return model.Voter{}, fmt.Errorf("storage: get voter: %w", err)
	}
	return v, nil
}

// CreateVoter inserts a voter and, when voterDeviceID is non-empty, links the
// device to it in the same transaction.
func (db *DB) CreateVoter(ctx context.Context, v model.Voter, voterDeviceID string) (model.Voter, error) {
	err := db.inTx(ctx, "create voter", func(tx pgx.Tx) error {
		var err error
		if v.WeVoteID == "" {
			if v.WeVoteID, err = db.nextWeVoteID(ctx, tx, model.AbbrevVoter); err != nil {
				return err
			}
		}
		if v.DateJoined.IsZero() {
			v.DateJoined = time.Now().UTC()
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO voters (we_vote_id, first_name, last_name, email, is_admin, is_political_data_manager,
			 is_political_data_viewer, is_verified_volunteer, is_partner_organization, date_joined)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			v.WeVoteID, v.FirstName, v.LastName, v.Email, v.IsAdmin, v.IsPoliticalDataManager,
			v.IsPoliticalDataViewer, v.IsVerifiedVolunteer, v.IsPartnerOrganization, v.DateJoined,
		).Scan(&v.ID); err != nil {
			return fmt.Errorf("storage: create voter: %w", err)
		}
		if voterDeviceID == "" {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO voter_device_links (voter_device_id, voter_we_vote_id) VALUES ($1, $2)
			 ON CONFLICT (voter_device_id) DO UPDATE SET voter_we_vote_id = EXCLUDED.voter_we_vote_id`,
			voterDeviceID, v.WeVoteID,
		); err != nil {
			return fmt.Errorf("storage: link voter device: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Voter{}, err
	}
	return v, nil
}
