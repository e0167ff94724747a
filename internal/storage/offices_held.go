package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const officeHeldColumns = `id, we_vote_id, office_held_name, ocd_division_id, state_code, district_name, district_id,
	district_scope, levels, roles, years_with_data, date_last_updated`

func scanOfficeHeld(row pgx.Row) (model.OfficeHeld, error) {
	var o model.OfficeHeld
	err := row.Scan(&o.ID, &o.WeVoteID, &o.OfficeHeldName, &o.OcdDivisionID, &o.StateCode, &o.DistrictName, &o.DistrictID,
		&o.DistrictScope, &o.Levels, &o.Roles, &o.YearsWithData, &o.DateLastUpdated)
	return o, err
}

// GetOfficeHeld looks an office up by its natural key.
func (db *DB) GetOfficeHeld(ctx context.Context, ocdDivisionID, officeHeldName string) (model.OfficeHeld, error) {
	o, err := scanOfficeHeld(db.pool.QueryRow(ctx,
		`SELECT `+officeHeldColumns+` FROM offices_held WHERE ocd_division_id = $1 AND office_held_name = $2`,
		ocdDivisionID, officeHeldName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.OfficeHeld{}, ErrNotFound
		}
		return model.OfficeHeld{}, fmt.Errorf("storage: get office held: %w", err)
	}
	return o, nil
}

// CreateOfficeHeld inserts o, minting its we_vote_id if unset.
func (db *DB) CreateOfficeHeld(ctx context.Context, o model.OfficeHeld) (model.OfficeHeld, error) {
	var err error
	if o.WeVoteID == "" {
		if o.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevOfficeHeld); err != nil {
			return model.OfficeHeld{}, err
		}
	}
	o.DateLastUpdated = time.Now().UTC()
	err = db.pool.QueryRow(ctx,
		`INSERT INTO offices_held (we_vote_id, office_held_name, ocd_division_id, state_code, district_name,
		 district_id, district_scope, levels, roles, years_with_data, date_last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		o.WeVoteID, o.OfficeHeldName, o.OcdDivisionID, o.StateCode, o.DistrictName,
		o.DistrictID, o.DistrictScope, nonNilStrings(o.Levels), nonNilStrings(o.Roles), nonNilInts(o.YearsWithData),
		o.DateLastUpdated,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.OfficeHeld{}, fmt.Errorf("storage: create office held: %w", ErrDuplicate)
		}
		return model.OfficeHeld{}, fmt.Errorf("storage: create office held: %w", err)
	}
	return o, nil
}

// UpdateOfficeHeld rewrites the descriptive columns of o.
func (db *DB) UpdateOfficeHeld(ctx context.Context, o model.OfficeHeld) (model.OfficeHeld, error) {
	o.DateLastUpdated = time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE offices_held SET state_code = $2, district_name = $3, district_id = $4, district_scope = $5,
		 levels = $6, roles = $7, years_with_data = $8, date_last_updated = $9
		 WHERE we_vote_id = $1`,
		o.WeVoteID, o.StateCode, o.DistrictName, o.DistrictID, o.DistrictScope,
		nonNilStrings(o.Levels), nonNilStrings(o.Roles), nonNilInts(o.YearsWithData), o.DateLastUpdated,
	)
	if err != nil {
		return model.OfficeHeld{}, fmt.Errorf("storage: update office held: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.OfficeHeld{}, ErrNotFound
	}
	return o, nil
}

// NOT NULL array columns reject a nil slice, which pgx encodes as NULL.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int32) []int32 {
	if s == nil {
		return []int32{}
	}
	return s
}
