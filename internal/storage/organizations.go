package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wevote/wevoteserver/internal/model"
)

const organizationColumns = `id, we_vote_id, organization_name, organization_twitter_handle, organization_website,
	organization_image_url, state_served_code, organization_type`

func scanOrganization(row pgx.Row) (model.Organization, error) {
	var o model.Organization
	err := row.Scan(&o.ID, &o.WeVoteID, &o.OrganizationName, &o.OrganizationTwitterHandle, &o.OrganizationWebsite,
		&o.OrganizationImageURL, &o.StateServedCode, &o.OrganizationType)
	return o, err
}

func (db *DB) queryOrganizations(ctx context.Context, sql string, args ...any) ([]model.Organization, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query organizations: %w", err)
	}
	defer rows.Close()

	var out []model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan organization: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOrganizationByWeVoteID looks an organization up by we_vote_id.
func (db *DB) GetOrganizationByWeVoteID(ctx context.Context, weVoteID string) (model.Organization, error) {
	o, err := scanOrganization(db.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE we_vote_id = $1`, weVoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Organization{}, ErrNotFound
		}
		return model.Organization{}, fmt.Errorf("storage: get organization: %w", err)
	}
	return o, nil
}

// FindOrganizationsByTwitterHandle matches the handle case-insensitively,
// with or without a leading @.
func (db *DB) FindOrganizationsByTwitterHandle(ctx context.Context, handle string) ([]model.Organization, error) {
	return db.queryOrganizations(ctx,
		`SELECT `+organizationColumns+` FROM organizations
		 WHERE lower(organization_twitter_handle) = lower(ltrim($1, '@')) ORDER BY id`, handle)
}

// FindOrganizationsByName matches the name case-insensitively.
func (db *DB) FindOrganizationsByName(ctx context.Context, name string) ([]model.Organization, error) {
	return db.queryOrganizations(ctx,
		`SELECT `+organizationColumns+` FROM organizations
		 WHERE lower(organization_name) = lower($1) ORDER BY id`, name)
}

// CreateOrganization inserts an organization, minting its we_vote_id if unset.
func (db *DB) CreateOrganization(ctx context.Context, o model.Organization) (model.Organization, error) {
	var err error
	if o.WeVoteID == "" {
		if o.WeVoteID, err = db.nextWeVoteID(ctx, db.pool, model.AbbrevOrganization); err != nil {
			return model.Organization{}, err
		}
	}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO organizations (we_vote_id, organization_name, organization_twitter_handle, organization_website,
		 organization_image_url, state_served_code, organization_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		o.WeVoteID, o.OrganizationName, o.OrganizationTwitterHandle, o.OrganizationWebsite,
		o.OrganizationImageURL, o.StateServedCode, o.OrganizationType,
	).Scan(&o.ID)
	if err != nil {
		return model.Organization{}, fmt.Errorf("storage: create organization: %w", err)
	}
	return o, nil
}
