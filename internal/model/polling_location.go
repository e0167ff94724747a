package model

import (
	"strings"
	"time"
)

// PollingLocation is a VIP polling place, unique on (polling_location_id, state).
// Its address is used to query Google Civic for the representatives who
// serve it.
type PollingLocation struct {
	ID                               int64      `json:"id"`
	WeVoteID                         string     `json:"polling_location_we_vote_id"`
	PollingLocationID                string     `json:"polling_location_id"`
	LocationName                     string     `json:"location_name"`
	PollingHoursText                 string     `json:"polling_hours_text"`
	DirectionsText                   string     `json:"directions_text"`
	Line1                            string     `json:"line1"`
	Line2                            string     `json:"line2"`
	City                             string     `json:"city"`
	State                            string     `json:"state"`
	ZipLong                          string     `json:"zip_long"`
	Latitude                         *float64   `json:"latitude,omitempty"`
	Longitude                        *float64   `json:"longitude,omitempty"`
	UseForBulkRetrieve               bool       `json:"use_for_bulk_retrieve"`
	PollingLocationDeleted           bool       `json:"polling_location_deleted"`
	GoogleResponseAddressNotFound    int        `json:"google_response_address_not_found"`
	DateLastRepresentativesRetrieved *time.Time `json:"date_last_representatives_retrieved,omitempty"`
	DateLastUpdated                  time.Time  `json:"date_last_updated"`
}

// TextForMapSearch is the one-line address sent to geocoding APIs.
func (p PollingLocation) TextForMapSearch() string {
	var parts []string
	street := strings.TrimSpace(p.Line1)
	if l2 := strings.TrimSpace(p.Line2); l2 != "" {
		street = strings.TrimSpace(street + " " + l2)
	}
	if street != "" {
		parts = append(parts, street)
	}
	if c := strings.TrimSpace(p.City); c != "" {
		parts = append(parts, c)
	}
	stateZip := strings.TrimSpace(strings.ToUpper(p.State) + " " + strings.TrimSpace(p.ZipLong))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// PollingLocationLogKind classifies a retrieval attempt for one location.
type PollingLocationLogKind string

const (
	LogKindRateLimitError       PollingLocationLogKind = "RATE_LIMIT_ERROR"
	LogKindAddressParseError    PollingLocationLogKind = "ADDRESS_PARSE_ERROR"
	LogKindNoRepresentatives    PollingLocationLogKind = "NO_REPRESENTATIVES_RETURNED"
	LogKindRequestCrash         PollingLocationLogKind = "REQUEST_CRASH"
	LogKindRepresentativesFound PollingLocationLogKind = "REPRESENTATIVES_RECEIVED"
)

// IsFailure reports whether the kind should hold the location back from the
// next batch runs.
func (k PollingLocationLogKind) IsFailure() bool {
	return k != LogKindRepresentativesFound
}

// PollingLocationLogEntry records the outcome of one retrieval attempt.
type PollingLocationLogEntry struct {
	ID                      int64                  `json:"id"`
	PollingLocationWeVoteID string                 `json:"polling_location_we_vote_id"`
	StateCode               string                 `json:"state_code"`
	Kind                    PollingLocationLogKind `json:"kind_of_log_entry"`
	TextForMapSearch        string                 `json:"text_for_map_search"`
	StatusText              string                 `json:"status"`
	BatchProcessID          *int64                 `json:"batch_process_id,omitempty"`
	DateTime                time.Time              `json:"date_time"`
	LogEntryDeleted         bool                   `json:"log_entry_deleted"`
}

// BatchProcessKind names the work a batch process row drives.
type BatchProcessKind string

const (
	BatchRetrieveRepresentatives BatchProcessKind = "RETRIEVE_REPRESENTATIVES_FROM_POLLING_LOCATIONS"
)

// BatchProcess is a unit of scheduled import work, claimed by one worker at a time.
type BatchProcess struct {
	ID                        int64            `json:"id"`
	Kind                      BatchProcessKind `json:"kind_of_process"`
	StateCode                 string           `json:"state_code"`
	DateAdded                 time.Time        `json:"date_added"`
	DateStarted               *time.Time       `json:"date_started,omitempty"`
	DateCheckedOut            *time.Time       `json:"date_checked_out,omitempty"`
	DateCompleted             *time.Time       `json:"date_completed,omitempty"`
	Paused                    bool             `json:"batch_process_paused"`
	CompletionSummary         string           `json:"completion_summary"`
	PollingLocationsRetrieved int              `json:"polling_locations_retrieved"`
}
