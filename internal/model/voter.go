package model

import (
	"fmt"
	"time"
)

// VoterRole is one admin-surface permission a voter can hold.
type VoterRole string

const (
	RoleAdmin                VoterRole = "admin"
	RolePoliticalDataManager VoterRole = "political_data_manager"
	RoleVerifiedVolunteer    VoterRole = "verified_volunteer"
	RolePoliticalDataViewer  VoterRole = "political_data_viewer"
	RolePartnerOrganization  VoterRole = "partner_organization"
)

// RoleRank returns the numeric rank of a role (higher = more privileges).
// Partner organizations read at the viewer level.
func RoleRank(r VoterRole) int {
	switch r {
	case RoleAdmin:
		return 4
	case RolePoliticalDataManager:
		return 3
	case RoleVerifiedVolunteer:
		return 2
	case RolePoliticalDataViewer, RolePartnerOrganization:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast returns true if role r has at least the privileges of minRole.
func RoleAtLeast(r, minRole VoterRole) bool {
	return RoleRank(r) >= RoleRank(minRole)
}

// Voter is a We Vote account. Only the fields the server needs for
// authority checks and position ownership are modelled.
type Voter struct {
	ID                     int64     `json:"id"`
	WeVoteID               string    `json:"we_vote_id"`
	FirstName              string    `json:"first_name"`
	LastName               string    `json:"last_name"`
	Email                  string    `json:"email"`
	IsAdmin                bool      `json:"is_admin"`
	IsPoliticalDataManager bool      `json:"is_political_data_manager"`
	IsPoliticalDataViewer  bool      `json:"is_political_data_viewer"`
	IsVerifiedVolunteer    bool      `json:"is_verified_volunteer"`
	IsPartnerOrganization  bool      `json:"is_partner_organization"`
	DateJoined             time.Time `json:"date_joined"`
}

// FullName joins first and last name.
func (v Voter) FullName() string {
	switch {
	case v.FirstName == "":
		return v.LastName
	case v.LastName == "":
		return v.FirstName
	}
	return v.FirstName + " " + v.LastName
}

// Roles returns every role flag the voter holds, highest first.
func (v Voter) Roles() []VoterRole {
	var roles []VoterRole
	if v.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	if v.IsPoliticalDataManager {
		roles = append(roles, RolePoliticalDataManager)
	}
	if v.IsVerifiedVolunteer {
		roles = append(roles, RoleVerifiedVolunteer)
	}
	if v.IsPoliticalDataViewer {
		roles = append(roles, RolePoliticalDataViewer)
	}
	if v.IsPartnerOrganization {
		roles = append(roles, RolePartnerOrganization)
	}
	return roles
}

// HighestRole returns the best-ranked role, or "" when the voter has none.
func (v Voter) HighestRole() VoterRole {
	var best VoterRole
	for _, r := range v.Roles() {
		if RoleRank(r) > RoleRank(best) {
			best = r
		}
	}
	return best
}

// HasAuthority reports whether any held role is in allowed.
func (v Voter) HasAuthority(allowed ...VoterRole) bool {
	for _, held := range v.Roles() {
		for _, a := range allowed {
			if held == a {
				return true
			}
		}
	}
	return false
}

// ValidateVoterDeviceID checks the opaque device id format clients send.
func ValidateVoterDeviceID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("voter_device_id is required")
	}
	if len(id) > 255 {
		return fmt.Errorf("voter_device_id must be at most 255 characters")
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return fmt.Errorf("voter_device_id contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
