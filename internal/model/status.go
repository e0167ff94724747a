package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status accumulates result codes for one operation, in the order they were
// recorded. Its JSON form is the space-joined code list, which is what API
// clients read from the "status" field.
type Status struct {
	codes []string
}

// NewStatus returns a Status seeded with codes.
func NewStatus(codes ...string) Status {
	var s Status
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add appends code. Empty codes are ignored.
func (s *Status) Add(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	s.codes = append(s.codes, code)
}

// Addf appends a formatted code, typically CODE plus a detail: "POSITION_SAVE_FAILED: timeout".
func (s *Status) Addf(format string, args ...any) {
	s.Add(fmt.Sprintf(format, args...))
}

// Merge appends every code of other.
func (s *Status) Merge(other Status) {
	s.codes = append(s.codes, other.codes...)
}

// Has reports whether code was recorded. Detail suffixes after ':' are ignored.
func (s Status) Has(code string) bool {
	for _, c := range s.codes {
		head, _, _ := strings.Cut(c, ":")
		if head == code {
			return true
		}
	}
	return false
}

// Contains reports whether any recorded code contains substr.
func (s Status) Contains(substr string) bool {
	for _, c := range s.codes {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// Codes returns a copy of the recorded codes.
func (s Status) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Empty reports whether nothing was recorded.
func (s Status) Empty() bool { return len(s.codes) == 0 }

func (s Status) String() string {
	return strings.Join(s.codes, " ")
}

// MarshalJSON encodes the status as a single string.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON splits a status string back into codes.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.codes = nil
	for _, f := range strings.Fields(raw) {
		s.Add(f)
	}
	return nil
}

// Status codes shared across services and handlers.
const (
	StatusTooManyUniqueActorVariables      = "TOO_MANY_UNIQUE_ACTOR_VARIABLES"
	StatusNoUniqueActorVariables           = "NO_UNIQUE_ACTOR_VARIABLES_RECEIVED"
	StatusTooManyUniqueBallotItemVariables = "TOO_MANY_UNIQUE_BALLOT_ITEM_VARIABLES"
	StatusNoUniqueBallotItemVariables      = "NO_UNIQUE_BALLOT_ITEM_VARIABLES_RECEIVED"

	StatusRetrievePositionNoneFound     = "RETRIEVE_POSITION_NONE_FOUND"
	StatusRetrievePositionMultipleFound = "RETRIEVE_POSITION_MULTIPLE_FOUND"
	StatusRetrievePositionFound         = "RETRIEVE_POSITION_FOUND"

	StatusValidVoterDeviceIDMissing = "VALID_VOTER_DEVICE_ID_MISSING"
	StatusValidVoterIDMissing       = "VALID_VOTER_ID_MISSING"
	StatusValidAPIKeyMissing        = "VALID_API_KEY_MISSING"
)
