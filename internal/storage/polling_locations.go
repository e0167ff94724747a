package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const pollingLocationColumns = `id, we_vote_id, polling_location_id, location_name, polling_hours_text, directions_text,
	line1, line2, city, state, zip_long, latitude, longitude, use_for_bulk_retrieve, polling_location_deleted,
	google_response_address_not_found, date_last_representatives_retrieved, date_last_updated`

func scanPollingLocation(row pgx.Row) (model.PollingLocation, error) {
	var p model.PollingLocation
	err := row.Scan(&p.ID, &p.WeVoteID, &p.PollingLocationID, &p.LocationName, &p.PollingHoursText, &p.DirectionsText,
		&p.Line1, &p.Line2, &p.City, &p.State, &p.ZipLong, &p.Latitude, &p.Longitude, &p.UseForBulkRetrieve,
		&p.PollingLocationDeleted, &p.GoogleResponseAddressNotFound, &p.DateLastRepresentativesRetrieved, &p.DateLastUpdated)
	return p, err
}

func (db *DB) collectPollingLocations(ctx context.Context, sql string, args ...any) ([]model.PollingLocation, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query polling locations: %w", err)
	}
	defer rows.Close()

	var out []model.PollingLocation
	for rows.Next() {
		p, err := scanPollingLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan polling location: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPollingLocation looks a polling location up by we_vote_id.
func (db *DB) GetPollingLocation(ctx context.Context, weVoteID string) (model.PollingLocation, error) {
	p, err := scanPollingLocation(db.pool.QueryRow(ctx,
		`SELECT `+pollingLocationColumns+` FROM polling_locations WHERE we_vote_id = $1`, weVoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PollingLocation{}, ErrNotFound
		}
		return model.PollingLocation{}, fmt.Errorf("storage: get polling location: %w", err)
	}
	return p, nil
}

// GetPollingLocationBySource looks a polling location up by its VIP id and state.
func (db *DB) GetPollingLocationBySource(ctx context.Context, pollingLocationID, state string) (model.PollingLocation, error) {
	p, err := scanPollingLocation(db.pool.QueryRow(ctx,
		`SELECT `+pollingLocationColumns+` FROM polling_locations
		 WHERE polling_location_id = $1 AND state = upper($2)`, pollingLocationID, state))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PollingLocation{}, ErrNotFound
		}
		return model.PollingLocation{}, fmt.Errorf("storage: get polling location by source: %w", err)
	}
	return p, nil
}

// CreatePollingLocation inserts p, minting its we_vote_id if unset. A
// concurrent insert of the same (polling_location_id, state) returns ErrDuplicate.
func (db *DB) CreatePollingLocation(ctx context.Context, p model.PollingLocation) (model.PollingLocation, error) {
	var err error
	if p.WeVoteID == "" {
		if p.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevPollingLocation); err != nil {
			return model.PollingLocation{}, err
		}
	}
	p.DateLastUpdated = time.Now().UTC()
	err = db.pool.QueryRow(ctx,
		`INSERT INTO polling_locations (we_vote_id, polling_location_id, location_name, polling_hours_text,
		 directions_text, line1, line2, city, state, zip_long, latitude, longitude, use_for_bulk_retrieve,
		 polling_location_deleted, date_last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, upper($9), $10, $11, $12, $13, $14, $15) RETURNING id, state`,
		p.WeVoteID, p.PollingLocationID, p.LocationName, p.PollingHoursText,
		p.DirectionsText, p.Line1, p.Line2, p.City, p.State, p.ZipLong, p.Latitude, p.Longitude, p.UseForBulkRetrieve,
		p.PollingLocationDeleted, p.DateLastUpdated,
	).Scan(&p.ID, &p.State)
	if err != nil {
		if isUniqueViolation(err) {
			return model.PollingLocation{}, fmt.Errorf("storage: create polling location: %w", ErrDuplicate)
		}
		return model.PollingLocation{}, fmt.Errorf("storage: create polling location: %w", err)
	}
	return p, nil
}

// UpdatePollingLocation rewrites the address and flags of p.
func (db *DB) UpdatePollingLocation(ctx context.Context, p model.PollingLocation) (model.PollingLocation, error) {
	p.DateLastUpdated = time.Now().UTC()
	tag, err := db.pool.Exec(ctx,
		`UPDATE polling_locations SET location_name = $2, polling_hours_text = $3, directions_text = $4,
		 line1 = $5, line2 = $6, city = $7, zip_long = $8, latitude = $9, longitude = $10,
		 use_for_bulk_retrieve = $11, polling_location_deleted = $12, date_last_updated = $13
		 WHERE we_vote_id = $1`,
		p.WeVoteID, p.LocationName, p.PollingHoursText, p.DirectionsText,
		p.Line1, p.Line2, p.City, p.ZipLong, p.Latitude, p.Longitude,
		p.UseForBulkRetrieve, p.PollingLocationDeleted, p.DateLastUpdated,
	)
	if err != nil {
		return model.PollingLocation{}, fmt.Errorf("storage: update polling location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.PollingLocation{}, ErrNotFound
	}
	return p, nil
}

// ListPollingLocations returns live polling locations in a state, in id order.
func (db *DB) ListPollingLocations(ctx context.Context, state string, limit, offset int) ([]model.PollingLocation, error) {
	return db.collectPollingLocations(ctx,
		`SELECT `+pollingLocationColumns+` FROM polling_locations
		 WHERE state = upper($1) AND NOT polling_location_deleted
		 ORDER BY id LIMIT $2 OFFSET $3`, state, clampLimit(limit), max(offset, 0))
}

// SelectPollingLocationsForRepresentatives picks up to limit live locations in
// state that were not retrieved after refreshedAfter and have no failure log
// entry after failedAfter. Bulk-retrieve locations come first.
func (db *DB) SelectPollingLocationsForRepresentatives(ctx context.Context, state string, limit int, refreshedAfter, failedAfter time.Time) ([]model.PollingLocation, error) {
	return db.collectPollingLocations(ctx,
		`SELECT `+pollingLocationColumns+` FROM polling_locations p
		 WHERE p.state = upper($1)
		   AND NOT p.polling_location_deleted
		   AND (p.date_last_representatives_retrieved IS NULL OR p.date_last_representatives_retrieved < $2)
		   AND NOT EXISTS (
		     SELECT 1 FROM polling_location_log_entries l
		     WHERE l.polling_location_we_vote_id = p.we_vote_id
		       AND NOT l.log_entry_deleted
		       AND l.kind_of_log_entry <> $3
		       AND l.date_time > $4)
		 ORDER BY p.use_for_bulk_retrieve DESC, p.id
		 LIMIT $5`,
		state, refreshedAfter, string(model.LogKindRepresentativesFound), failedAfter, limit)
}

// MarkRepresentativesRetrieved stamps a successful representatives retrieval.
func (db *DB) MarkRepresentativesRetrieved(ctx context.Context, weVoteID string, at time.Time) error {
	if _, err := db.pool.Exec(ctx,
		`UPDATE polling_locations SET date_last_representatives_retrieved = $2 WHERE we_vote_id = $1`,
		weVoteID, at,
	); err != nil {
		return fmt.Errorf("storage: mark representatives retrieved: %w", err)
	}
	return nil
}

// IncrementAddressNotFound bumps google_response_address_not_found.
func (db *DB) IncrementAddressNotFound(ctx context.Context, weVoteID string) error {
	if _, err := db.pool.Exec(ctx,
		`UPDATE polling_locations SET google_response_address_not_found = google_response_address_not_found + 1
		 WHERE we_vote_id = $1`, weVoteID,
	); err != nil {
		return fmt.Errorf("storage: increment address not found: %w", err)
	}
	return nil
}

// CreatePollingLocationLogEntry records one retrieval outcome.
func (db *DB) CreatePollingLocationLogEntry(ctx context.Context, e model.PollingLocationLogEntry) (model.PollingLocationLogEntry, error) {
	if e.DateTime.IsZero() {
		e.DateTime = time.Now().UTC()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO polling_location_log_entries (polling_location_we_vote_id, state_code, kind_of_log_entry,
		 text_for_map_search, status, batch_process_id, date_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.PollingLocationWeVoteID, e.StateCode, string(e.Kind), e.TextForMapSearch, e.StatusText, e.BatchProcessID, e.DateTime,
	).Scan(&e.ID)
	if err != nil {
		return model.PollingLocationLogEntry{}, fmt.Errorf("storage: create polling location log entry: %w", err)
	}
	return e, nil
}
