package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const representativeColumns = `id, we_vote_id, representative_name, office_held_we_vote_id, office_held_name,
	ocd_division_id, state_code, political_party, representative_url, representative_url2, representative_url3,
	representative_email, representative_email2, representative_email3, representative_phone, representative_phone2,
	representative_phone3, representative_twitter_handle, representative_twitter_handle2, representative_twitter_handle3,
	twitter_url, facebook_url, instagram_handle, linkedin_url, youtube_url, wikipedia_url, ballotpedia_representative_url,
	photo_url_from_google_civic, google_civic_representative_name, google_civic_representative_name2,
	google_civic_representative_name3, years_in_office, date_last_updated`

// representativeFields lists the pointers in representativeColumns order.
func representativeFields(r *model.Representative) []any {
	return []any{
		&r.ID, &r.WeVoteID, &r.RepresentativeName, &r.OfficeHeldWeVoteID, &r.OfficeHeldName,
		&r.OcdDivisionID, &r.StateCode, &r.PoliticalParty, &r.RepresentativeURL, &r.RepresentativeURL2, &r.RepresentativeURL3,
		&r.RepresentativeEmail, &r.RepresentativeEmail2, &r.RepresentativeEmail3, &r.RepresentativePhone, &r.RepresentativePhone2,
		&r.RepresentativePhone3, &r.TwitterHandle, &r.TwitterHandle2, &r.TwitterHandle3,
		&r.TwitterURL, &r.FacebookURL, &r.InstagramHandle, &r.LinkedInURL, &r.YouTubeURL, &r.WikipediaURL, &r.BallotpediaRepresentativeURL,
		&r.PhotoURLFromGoogleCivic, &r.GoogleCivicName, &r.GoogleCivicName2,
		&r.GoogleCivicName3, &r.YearsInOffice, &r.DateLastUpdated,
	}
}

// representativeValues lists the writable values in representativeColumns
// order, skipping id.
func representativeValues(r model.Representative) []any {
	return []any{
		r.WeVoteID, r.RepresentativeName, r.OfficeHeldWeVoteID, r.OfficeHeldName,
		r.OcdDivisionID, r.StateCode, r.PoliticalParty, r.RepresentativeURL, r.RepresentativeURL2, r.RepresentativeURL3,
		r.RepresentativeEmail, r.RepresentativeEmail2, r.RepresentativeEmail3, r.RepresentativePhone, r.RepresentativePhone2,
		r.RepresentativePhone3, r.TwitterHandle, r.TwitterHandle2, r.TwitterHandle3,
		r.TwitterURL, r.FacebookURL, r.InstagramHandle, r.LinkedInURL, r.YouTubeURL, r.WikipediaURL, r.BallotpediaRepresentativeURL,
		r.PhotoURLFromGoogleCivic, r.GoogleCivicName, r.GoogleCivicName2,
		r.GoogleCivicName3, nonNilInts(r.YearsInOffice), r.DateLastUpdated,
	}
}

// GetRepresentative looks a representative up by its natural key.
func (db *DB) GetRepresentative(ctx context.Context, officeHeldWeVoteID, representativeName string) (model.Representative, error) {
	var r model.Representative
	err := db.pool.QueryRow(ctx,
		`SELECT `+representativeColumns+` FROM representatives
		 WHERE office_held_we_vote_id = $1 AND representative_name = $2`,
		officeHeldWeVoteID, representativeName,
	).Scan(representativeFields(&r)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Representative{}, ErrNotFound
		}
		return model.Representative{}, fmt.Errorf("storage: get representative: %w", err)
	}
	return r, nil
}

// CreateRepresentative inserts r, minting its we_vote_id if unset.
func (db *DB) CreateRepresentative(ctx context.Context, r model.Representative) (model.Representative, error) {
	var err error
	if r.WeVoteID == "" {
		if r.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevRepresentative); err != nil {
			return model.Representative{}, err
		}
	}
	r.DateLastUpdated = time.Now().UTC()
	err = db.pool.QueryRow(ctx,
		`INSERT INTO representatives (we_vote_id, representative_name, office_held_we_vote_id, office_held_name,
		 ocd_division_id, state_code, political_party, representative_url, representative_url2, representative_url3,
		 representative_email, representative_email2, representative_email3, representative_phone, representative_phone2,
		 representative_phone3, representative_twitter_handle, representative_twitter_handle2, representative_twitter_handle3,
		 twitter_url, facebook_url, instagram_handle, linkedin_url, youtube_url, wikipedia_url, ballotpedia_representative_url,
		 photo_url_from_google_civic, google_civic_representative_name, google_civic_representative_name2,
		 google_civic_representative_name3, years_in_office, date_last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		 $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
		 RETURNING id`,
		representativeValues(r)...,
	).Scan(&r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Representative{}, fmt.Errorf("storage: create representative: %w", ErrDuplicate)
		}
		return model.Representative{}, fmt.Errorf("storage: create representative: %w", err)
	}
	return r, nil
}

// UpdateRepresentative rewrites every mutable column of r.
func (db *DB) UpdateRepresentative(ctx context.Context, r model.Representative) (model.Representative, error) {
	r.DateLastUpdated = time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE representatives SET representative_name = $2, office_held_we_vote_id = $3, office_held_name = $4,
		 ocd_division_id = $5, state_code = $6, political_party = $7, representative_url = $8, representative_url2 = $9,
		 representative_url3 = $10, representative_email = $11, representative_email2 = $12, representative_email3 = $13,
		 representative_phone = $14, representative_phone2 = $15, representative_phone3 = $16,
		 representative_twitter_handle = $17, representative_twitter_handle2 = $18, representative_twitter_handle3 = $19,
		 twitter_url = $20, facebook_url = $21, instagram_handle = $22, linkedin_url = $23, youtube_url = $24,
		 wikipedia_url = $25, ballotpedia_representative_url = $26, photo_url_from_google_civic = $27,
		 google_civic_representative_name = $28, google_civic_representative_name2 = $29,
		 google_civic_representative_name3 = $30, years_in_office = $31, date_last_updated = $32
		 WHERE we_vote_id = $1`,
		representativeValues(r)...,
	)
	if err != nil {
		return model.Representative{}, fmt.Errorf("storage: update representative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Representative{}, ErrNotFound
	}
	return r, nil
}

// ListRepresentatives returns representatives serving a state, in name order.
func (db *DB) ListRepresentatives(ctx context.Context, stateCode string, limit, offset int) ([]model.Representative, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+representativeColumns+` FROM representatives
		 WHERE upper(state_code) = upper($1)
		 ORDER BY representative_name, id LIMIT $2 OFFSET $3`,
		stateCode, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("storage: list representatives: %w", err)
	}
	defer rows.Close()

	var out []model.Representative
	for rows.Next() {
		var r model.Representative
		if err := rows.Scan(representativeFields(&r)...); err != nil {
			return nil, fmt.Errorf("storage: scan representative: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
