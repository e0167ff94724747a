package model

import "time"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}

// TokenRequest is the request body for POST /admin/token. The device id must
// resolve to a voter holding at least one admin role.
type TokenRequest struct {
	VoterDeviceID string `json:"voter_device_id" validate:"required,max=255"`
}

// TokenResponse is the response for POST /admin/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateKeyRequest is the request body for POST /admin/api-keys. The key is
// recorded as created by the calling voter.
type CreateKeyRequest struct {
	Label string `json:"label" validate:"max=255"`
}

// PollingLocationInput is the admin create/update body for a polling location.
type PollingLocationInput struct {
	PollingLocationID  string   `json:"polling_location_id" validate:"required,max=255"`
	LocationName       string   `json:"location_name" validate:"max=255"`
	PollingHoursText   string   `json:"polling_hours_text"`
	DirectionsText     string   `json:"directions_text"`
	Line1              string   `json:"line1" validate:"required"`
	Line2              string   `json:"line2"`
	City               string   `json:"city" validate:"required"`
	State              string   `json:"state" validate:"required,len=2,alpha"`
	ZipLong            string   `json:"zip_long" validate:"omitempty,max=10"`
	Latitude           *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude          *float64 `json:"longitude" validate:"omitempty,longitude"`
	UseForBulkRetrieve bool     `json:"use_for_bulk_retrieve"`
}

// ImportPollingLocationsRequest is the request body for POST /admin/polling-locations/import.
type ImportPollingLocationsRequest struct {
	Glob string `json:"glob" validate:"required"`
}

// RetrieveRepresentativesRequest is the request body for
// POST /admin/representatives/retrieve.
type RetrieveRepresentativesRequest struct {
	PollingLocationWeVoteID string               `json:"polling_location_we_vote_id" validate:"required"`
	Rules                   *UpdateOrCreateRules `json:"rules,omitempty"`
}

// UpdateOrCreateRules says which OfficeHeld and Representative rows an import
// may create or modify.
type UpdateOrCreateRules struct {
	CreateOfficeHeldEntries     bool `json:"create_office_held_entries"`
	UpdateOfficeHeldEntries     bool `json:"update_office_held_entries"`
	CreateRepresentativeEntries bool `json:"create_representative_entries"`
	UpdateRepresentativeEntries bool `json:"update_representative_entries"`
}

// AllowAll permits every create and update.
func AllowAll() UpdateOrCreateRules {
	return UpdateOrCreateRules{true, true, true, true}
}

// BatchProcessRequest is the request body for POST /admin/batch-processes.
type BatchProcessRequest struct {
	StateCode string `json:"state_code" validate:"required,len=2,alpha"`
}

// VisibilityRequest is the request body for POST /admin/positions/{we_vote_id}/visibility.
type VisibilityRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=SHOW_PUBLIC FRIENDS_ONLY PUBLIC FRIENDS"`
}

// MergeRequest is the request body for POST /admin/positions/merge.
type MergeRequest struct {
	KeeperWeVoteID    string `json:"keeper_we_vote_id" validate:"required"`
	DuplicateWeVoteID string `json:"duplicate_we_vote_id" validate:"required,nefield=KeeperWeVoteID"`
}

// RefreshVoterGuideRequest is the request body for POST /admin/voter-guides/refresh.
type RefreshVoterGuideRequest struct {
	OrganizationWeVoteID  string `json:"organization_we_vote_id" validate:"required"`
	GoogleCivicElectionID int64  `json:"google_civic_election_id" validate:"required,gt=0"`
}

// ExtractRequest is the request body for
// POST /admin/voter-guide-possibilities/{id}/extract.
type ExtractRequest struct {
	SaveMatches bool `json:"save_matches"`
}
